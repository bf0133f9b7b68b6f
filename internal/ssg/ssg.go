// Package ssg renders compiled server modules to HTML.
package ssg

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/mdxbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/mdxbuilder/internal/logfields"
)

// Renderer loads a compiled server module and returns the markup produced
// by its render export.
type Renderer interface {
	Render(ctx context.Context, modulePath string) (string, error)
}

// loader imports the module named by the first argument and writes the
// awaited result of its render export to stdout.
const loader = `import { pathToFileURL } from "node:url";
const mod = await import(pathToFileURL(process.argv[1]).href);
if (typeof mod.render !== "function") {
  throw new Error("module does not export render()");
}
process.stdout.write(String(await mod.render()));
`

// NodeRenderer renders with a node subprocess per module.
type NodeRenderer struct {
	// Node is the node executable; empty means "node" on PATH.
	Node string
	Dir  string
}

func (r *NodeRenderer) Render(ctx context.Context, modulePath string) (string, error) {
	node := r.Node
	if node == "" {
		node = "node"
	}
	// #nosec G204 - module path is produced by the build
	cmd := exec.CommandContext(ctx, node, "--input-type=module", "-e", loader, modulePath)
	cmd.Dir = r.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", errors.ToolchainError("server render failed").
			WithCause(err).
			WithContext("module", modulePath).
			WithContext("output", strings.TrimSpace(stderr.String())).
			Build()
	}
	return stdout.String(), nil
}

// RenderFunc adapts a function to Renderer.
type RenderFunc func(ctx context.Context, modulePath string) (string, error)

func (f RenderFunc) Render(ctx context.Context, modulePath string) (string, error) {
	return f(ctx, modulePath)
}

// RenderAll renders every module concurrently and returns markup keyed like
// modules. limit bounds concurrency; zero uses GOMAXPROCS. All failures are
// reported, sorted by name.
func RenderAll(ctx context.Context, r Renderer, modules map[string]string, limit int) (map[string]string, error) {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	var (
		mu   sync.Mutex
		out  = make(map[string]string, len(modules))
		errs = make(map[string]error)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for name, path := range modules {
		g.Go(func() error {
			html, err := r.Render(gctx, path)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Debug("Render failed", logfields.Entry(name), logfields.Error(err))
				errs[name] = err
				return nil
			}
			out[name] = html
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return out, err
	}
	if len(errs) == 0 {
		return out, nil
	}

	names := make([]string, 0, len(errs))
	for name := range errs {
		names = append(names, name)
	}
	sort.Strings(names)
	msgs := make([]string, 0, len(names))
	for _, name := range names {
		msg := fmt.Sprintf("%s: %v", name, errs[name])
		if output := renderOutput(errs[name]); output != "" {
			msg += "\n" + output
		}
		msgs = append(msgs, msg)
	}
	return out, errors.ToolchainError(fmt.Sprintf("server render failed for %d entries", len(names))).
		WithCause(errs[names[0]]).
		WithContext("entries", names).
		WithContext("output", strings.Join(msgs, "\n")).
		Build()
}

// renderOutput returns the raw tool output attached to a render error.
func renderOutput(err error) string {
	ce, ok := errors.AsClassified(err)
	if !ok {
		return ""
	}
	s, _ := ce.Context().GetString("output")
	return s
}
