package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/cubtera/cubtera/internal/bootstrap"
	"github.com/cubtera/cubtera/pkg/cerrors"
	"github.com/cubtera/cubtera/pkg/invapi"
)

// newLogCommand builds the "log" command tree: "log get" searches the
// deployment audit log written by pkg/dlog after every apply/destroy.
func newLogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Query the deployment audit log",
	}
	cmd.AddCommand(newLogGetCommand())
	return cmd
}

func newLogGetCommand() *cobra.Command {
	var org string
	var queries []string
	var limit int

	get := &cobra.Command{
		Use:   "get",
		Short: "Search dlog records",
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

			filters, err := parseQueries(queries)
			if err != nil {
				return err
			}

			svc := invapi.New(app.Cfg, app.NewDataSource, app.DlogDB)
			envelope, err := svc.Dlog(ctx, resolvedOrg, filters, limit)
			if err != nil {
				return err
			}
			return printJSON(envelope)
		},
	}
	get.Flags().StringVarP(&org, "org", "o", "", "organisation (defaults to the configured org)")
	get.Flags().StringArrayVarP(&queries, "query", "q", nil, "filter as key:value, repeatable")
	get.Flags().IntVarP(&limit, "limit", "l", 10, "maximum records returned")

	return get
}

// parseQueries turns "key:value" flag strings into KeyValue filters.
func parseQueries(queries []string) ([]invapi.KeyValue, error) {
	filters := make([]invapi.KeyValue, 0, len(queries))
	for _, q := range queries {
		parts := strings.SplitN(q, ":", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, cerrors.Newf(cerrors.CategoryCli, cerrors.SeverityCritical,
				"malformed query %q (want key:value)", q)
		}
		filters = append(filters, invapi.KeyValue{Key: parts[0], Value: parts[1]})
	}
	return filters, nil
}
