package commands

import (
	"fmt"
	"time"

	"git.home.luguber.info/inful/mdxbuilder/internal/build"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	BuildFlags `embed:""`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root, b.BuildFlags)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	report, err := build.NewOrchestrator(cfg).Build(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Built %d pages into %s in %s\n", len(report.Entries), cfg.OutputDir(), report.Duration().Round(time.Millisecond))
	return nil
}
