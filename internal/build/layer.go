package build

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/mdxbuilder/internal/components"
	"git.home.luguber.info/inful/mdxbuilder/internal/entry"
)

// Layer is one source of static files copied into the output.
type Layer struct {
	Name string
	Dir  string
	// Skip excludes files by path relative to Dir.
	Skip func(rel string) bool
}

// skipContentSources excludes content and component sources from the
// content layer.
func skipContentSources(rel string) bool {
	if entry.IsContentFile(rel) {
		return true
	}
	ext := strings.ToLower(filepath.Ext(rel))
	for _, c := range components.Extensions {
		if ext == c {
			return true
		}
	}
	return false
}

// LayerStaticAssets copies layers into outputDir in order; a later layer
// overwrites files from an earlier one. Missing layer directories are
// skipped. Hidden files and node_modules are never copied.
func LayerStaticAssets(outputDir string, layers []Layer) (int, error) {
	copied := 0
	for _, layer := range layers {
		if layer.Dir == "" {
			continue
		}
		if info, err := os.Stat(layer.Dir); err != nil || !info.IsDir() {
			continue
		}
		err := filepath.WalkDir(layer.Dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(layer.Dir, path)
			if err != nil {
				return err
			}
			if rel == "." {
				return nil
			}
			name := d.Name()
			if strings.HasPrefix(name, ".") || name == "node_modules" {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if sameDir(path, outputDir) {
					return filepath.SkipDir
				}
				return nil
			}
			if layer.Skip != nil && layer.Skip(rel) {
				return nil
			}
			if err := copyFile(path, filepath.Join(outputDir, rel)); err != nil {
				return fmt.Errorf("copy %s layer: %w", layer.Name, err)
			}
			copied++
			return nil
		})
		if err != nil {
			return copied, err
		}
	}
	return copied, nil
}

func sameDir(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
