package build

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/mdxbuilder/internal/bundler"
	foundationerrors "git.home.luguber.info/inful/mdxbuilder/internal/foundation/errors"
)

// Reconcile maps entry names to the bundler's entry outputs. generated holds
// the generated entry file of each name; outbase and outdir are the
// directories the bundler mirrored them from and into. Every name must
// resolve to exactly one output.
func Reconcile(generated map[string]string, outbase, outdir string, outputs []bundler.Output) (map[string]string, error) {
	reverse := make(map[string]string, len(generated))
	for name, src := range generated {
		rel, err := filepath.Rel(outbase, src)
		if err != nil {
			return nil, foundationerrors.ReconcileError("generated entry outside entry root").
				WithCause(err).
				WithContext("entry", name).
				Build()
		}
		key := filepath.Join(outdir, strings.TrimSuffix(rel, filepath.Ext(rel)))
		reverse[key] = name
	}

	matched := make(map[string]string, len(generated))
	var duplicate []string
	for _, o := range outputs {
		if o.Kind != bundler.OutputEntryPoint {
			continue
		}
		name, ok := reverse[filepath.Clean(bundler.StripHash(o.Path))]
		if !ok {
			continue
		}
		if prev, seen := matched[name]; seen && prev != o.Path {
			duplicate = append(duplicate, name)
			continue
		}
		matched[name] = o.Path
	}

	var missing []string
	for name := range generated {
		if _, ok := matched[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 && len(duplicate) == 0 {
		return matched, nil
	}
	sort.Strings(missing)
	sort.Strings(duplicate)
	b := foundationerrors.ReconcileError(fmt.Sprintf("could not match bundler output for %d entries", len(missing)+len(duplicate))).
		WithHint("this is a bug in output naming; rerun with --verbose and report the bundler outputs").
		Fatal()
	if len(missing) > 0 {
		b = b.WithContext("missing", missing)
	}
	if len(duplicate) > 0 {
		b = b.WithContext("duplicate", duplicate)
	}
	return nil, b.Build()
}
