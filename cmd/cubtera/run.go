package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/cubtera/cubtera/internal/bootstrap"
	"github.com/cubtera/cubtera/pkg/runner"
	"github.com/cubtera/cubtera/pkg/unit"
)

// newRunCommand builds "run": resolve a unit against its dims, run its
// gates, build a Load for the manifest's runner type and execute the
// seven-step pipeline, mirroring the original CLI's "run" invocation
// (spec.md §6.4/§7).
func newRunCommand() *cobra.Command {
	var org, unitName, dimContext string
	var dims, extensions []string

	cmd := &cobra.Command{
		Use:   "run -u <unit> -d <type:name> [-d ...] [-e <ext>] [-c <context>] -- <command...>",
		Short: "Run a unit through its runner pipeline",
		Args:  cobra.ArbitraryArgs,
		RunE: func(c *cobra.Command, args []string) error {
			ctx := c.Context()
			app, err := bootstrap.New(ctx, configFile)
			if err != nil {
				return err
			}
			defer app.Close(ctx)

			resolvedOrg := org
			if resolvedOrg == "" {
				resolvedOrg = app.Cfg.Org
			}
			cfg := *app.Cfg
			cfg.Org = resolvedOrg

			u, err := unit.New(ctx, &cfg, app.Fs, unitName, dims, extensions, app.NewUnitDataSource(resolvedOrg), dimContext)
			if err != nil {
				return err
			}

			if err := u.Build(); err != nil {
				if errors.Is(err, unit.ErrGated) {
					app.Logger.Warnf("%v", err)
					os.Exit(0)
				}
				return err
			}

			builder := runner.NewBuilder(&cfg)
			load, kind, err := builder.Build(u, args, app.Fs, app.Logger)
			if err != nil {
				return err
			}

			r, err := runner.New(kind, load)
			if err != nil {
				return err
			}

			pipelineCtx, err := runner.Execute(r)
			if err != nil {
				app.Logger.Errorf("%v", err)
				os.Exit(1)
			}
			app.Logger.Debugf("pipeline context: %v", pipelineCtx)

			if exitCode, ok := pipelineCtx["exit_code"].(int); ok {
				os.Exit(exitCode)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&org, "org", "o", "", "organisation (defaults to the configured org)")
	cmd.Flags().StringVarP(&unitName, "unit", "u", "", "unit name")
	cmd.Flags().StringArrayVarP(&dims, "dim", "d", nil, "dimension as type:name, repeatable")
	cmd.Flags().StringArrayVarP(&extensions, "ext", "e", nil, "state path extension, repeatable")
	cmd.Flags().StringVarP(&dimContext, "context", "c", "", "context overlay (a single opaque string, e.g. branch:feature-1)")
	_ = cmd.MarkFlagRequired("unit")
	_ = cmd.MarkFlagRequired("dim")

	return cmd
}
