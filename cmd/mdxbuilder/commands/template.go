package commands

import (
	"fmt"

	"git.home.luguber.info/inful/mdxbuilder/internal/scaffold"
)

// TemplateCmd groups entry template commands.
type TemplateCmd struct {
	Eject  TemplateEjectCmd  `cmd:"" help:"Copy the built-in entry templates into templates/ for editing"`
	Revert TemplateRevertCmd `cmd:"" help:"Remove template overrides and use the built-in templates"`
}

// TemplateEjectCmd implements 'mdxbuilder template eject'.
type TemplateEjectCmd struct {
	Force bool `help:"Overwrite existing overrides"`
}

func (t *TemplateEjectCmd) Run(_ *Global, root *CLI) error {
	written, err := scaffold.Eject(root.ProjectRoot(), t.Force)
	if err != nil {
		return err
	}
	if len(written) == 0 {
		fmt.Println("Templates already ejected; use --force to overwrite")
		return nil
	}
	for _, p := range written {
		fmt.Println("Wrote", p)
	}
	return nil
}

// TemplateRevertCmd implements 'mdxbuilder template revert'.
type TemplateRevertCmd struct{}

func (t *TemplateRevertCmd) Run(_ *Global, root *CLI) error {
	removed, err := scaffold.Revert(root.ProjectRoot())
	if err != nil {
		return err
	}
	if len(removed) == 0 {
		fmt.Println("No template overrides found")
		return nil
	}
	for _, p := range removed {
		fmt.Println("Removed", p)
	}
	return nil
}
