package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/cubtera/cubtera/internal/bootstrap"
	"github.com/cubtera/cubtera/pkg/invapi"
)

// newImCommand builds the "im" command tree. Each child op is named after
// its REST counterpart (dimTypes, dims, dimsData, ...) rather than the
// original CLI's getAll/getByName/getParent names, since pkg/invapi only
// ever implements the read-side query set (see DESIGN.md's CB6 entry).
func newImCommand() *cobra.Command {
	var org string

	cmd := &cobra.Command{
		Use:   "im",
		Short: "Query the dimensional inventory",
	}
	cmd.PersistentFlags().StringVarP(&org, "org", "o", "", "organisation (defaults to the configured org)")

	run := func(fn func(ctx context.Context, svc *invapi.Service, org string) (map[string]interface{}, error)) func(*cobra.Command, []string) error {
		return func(c *cobra.Command, args []string) error {
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

			svc := invapi.New(app.Cfg, app.NewDataSource, app.DlogDB)
			envelope, err := fn(ctx, svc, resolvedOrg)
			if err != nil {
				return err
			}
			return printJSON(envelope)
		}
	}

	var dimType, name, dimContext string

	dimTypesCmd := &cobra.Command{
		Use:   "dimTypes",
		Short: "List known dimension types",
		RunE: run(func(ctx context.Context, svc *invapi.Service, org string) (map[string]interface{}, error) {
			return svc.DimTypes(ctx, org)
		}),
	}

	dimsCmd := &cobra.Command{
		Use:   "dims",
		Short: "List dim names of a type",
		RunE: run(func(ctx context.Context, svc *invapi.Service, org string) (map[string]interface{}, error) {
			return svc.DimsByType(ctx, org, dimType)
		}),
	}
	dimsCmd.Flags().StringVarP(&dimType, "type", "t", "", "dimension type")
	_ = dimsCmd.MarkFlagRequired("type")

	dimsDataCmd := &cobra.Command{
		Use:   "dimsData",
		Short: "List merged data records of every dim of a type",
		RunE: run(func(ctx context.Context, svc *invapi.Service, org string) (map[string]interface{}, error) {
			return svc.DimsDataByType(ctx, org, dimType)
		}),
	}
	dimsDataCmd.Flags().StringVarP(&dimType, "type", "t", "", "dimension type")
	_ = dimsDataCmd.MarkFlagRequired("type")

	dimCmd := &cobra.Command{
		Use:   "dim",
		Short: "Show a single dim's fully resolved record",
		RunE: run(func(ctx context.Context, svc *invapi.Service, org string) (map[string]interface{}, error) {
			return svc.DimByName(ctx, org, dimType, name, dimContext)
		}),
	}
	dimCmd.Flags().StringVarP(&dimType, "type", "t", "", "dimension type")
	dimCmd.Flags().StringVarP(&name, "name", "n", "", "dim name")
	dimCmd.Flags().StringVarP(&dimContext, "context", "c", "", "context overlay (a single opaque string, e.g. branch:feature-1)")
	_ = dimCmd.MarkFlagRequired("type")
	_ = dimCmd.MarkFlagRequired("name")

	dimDefaultsCmd := &cobra.Command{
		Use:   "dimDefaults",
		Short: "Show a dim type's defaults record",
		RunE: run(func(ctx context.Context, svc *invapi.Service, org string) (map[string]interface{}, error) {
			return svc.DimsDefaultsByType(ctx, org, dimType)
		}),
	}
	dimDefaultsCmd.Flags().StringVarP(&dimType, "type", "t", "", "dimension type")
	_ = dimDefaultsCmd.MarkFlagRequired("type")

	dimParentCmd := &cobra.Command{
		Use:   "dimParent",
		Short: "Show a dim's parent record",
		RunE: run(func(ctx context.Context, svc *invapi.Service, org string) (map[string]interface{}, error) {
			return svc.DimParent(ctx, org, dimType, name)
		}),
	}
	dimParentCmd.Flags().StringVarP(&dimType, "type", "t", "", "dimension type")
	dimParentCmd.Flags().StringVarP(&name, "name", "n", "", "dim name")
	_ = dimParentCmd.MarkFlagRequired("type")
	_ = dimParentCmd.MarkFlagRequired("name")

	dimsByParentCmd := &cobra.Command{
		Use:   "dimsByParent",
		Short: "List a dim's children",
		RunE: run(func(ctx context.Context, svc *invapi.Service, org string) (map[string]interface{}, error) {
			return svc.DimsByParent(ctx, org, dimType, name)
		}),
	}
	dimsByParentCmd.Flags().StringVarP(&dimType, "type", "t", "", "dimension type")
	dimsByParentCmd.Flags().StringVarP(&name, "name", "n", "", "dim name")
	_ = dimsByParentCmd.MarkFlagRequired("type")
	_ = dimsByParentCmd.MarkFlagRequired("name")

	orgsCmd := &cobra.Command{
		Use:   "orgs",
		Short: "List configured organisations",
		RunE: run(func(ctx context.Context, svc *invapi.Service, org string) (map[string]interface{}, error) {
			return svc.Orgs(ctx)
		}),
	}

	cmd.AddCommand(dimTypesCmd, dimsCmd, dimsDataCmd, dimCmd, dimDefaultsCmd, dimParentCmd, dimsByParentCmd, orgsCmd)
	return cmd
}
