package main

import (
	"github.com/spf13/cobra"

	"github.com/cubtera/cubtera/internal/bootstrap"
)

// newConfigCommand builds "config": dump the fully resolved configuration
// as JSON, matching the original CLI's "cfg" command.
func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Aliases: []string{"cfg"},
		Short:   "Print the resolved configuration",
		RunE: func(c *cobra.Command, args []string) error {
			ctx := c.Context()
			app, err := bootstrap.New(ctx, configFile)
			if err != nil {
				return err
			}
			defer app.Close(ctx)
			return printJSON(app.Cfg)
		},
	}
	return cmd
}
