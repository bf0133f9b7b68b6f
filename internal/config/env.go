package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	foundationerrors "git.home.luguber.info/inful/mdxbuilder/internal/foundation/errors"
)

// loadEnvFile loads .env then .env.local from the project root. Existing
// process environment variables are never overwritten.
func loadEnvFile(root string) error {
	for _, name := range []string{".env", ".env.local"} {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to load environment file").
				WithContext("file", path).
				Build()
		}
		slog.Debug("Loaded environment variables", "file", path)
	}
	return nil
}
