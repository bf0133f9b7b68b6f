package commands

import (
	"fmt"

	"git.home.luguber.info/inful/mdxbuilder/internal/scaffold"
)

// CreateCmd implements the 'create' command.
type CreateCmd struct {
	Dir    string `arg:"" help:"Directory for the new project"`
	From   string `name:"from" help:"Clone a starter from this git repository instead of the built-in starter"`
	Branch string `name:"branch" help:"Branch to clone with --from"`
	Depth  int    `name:"depth" default:"1" help:"Clone depth with --from (0 for full history)"`
	Force  bool   `help:"Write into a non-empty directory"`
}

func (c *CreateCmd) Run(_ *Global, _ *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	created, err := scaffold.Create(ctx, c.Dir, scaffold.CreateOptions{
		From:   c.From,
		Branch: c.Branch,
		Depth:  c.Depth,
		Force:  c.Force,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Created project in %s\n", c.Dir)
	for _, f := range created {
		fmt.Println("  " + f)
	}
	fmt.Printf("\nNext: cd %s && mdxbuilder dev\n", c.Dir)
	return nil
}
