package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formbind"
	"github.com/goliatone/go-formbind/pkg/openapi"
)

func newOpenAPICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "openapi <file|url> [schema|operationId]",
		Short: "Print descriptors derived from an OpenAPI schema",
		Long:  "With a single argument the command lists the schemas and operations the document offers.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := openapi.ParseSource(args[0])
			if err != nil {
				return err
			}
			loader := openapi.NewLoader(
				openapi.WithHTTPClient(http.DefaultClient),
				openapi.WithTimeout(a.cfg.GetDuration(cfgKeyTimeout)),
			)
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			if len(args) == 1 {
				data, err := loader.Load(ctx, src)
				if err != nil {
					return err
				}
				doc, err := openapi.Parse(ctx, data)
				if err != nil {
					return err
				}
				for _, name := range doc.Schemas() {
					fmt.Fprintf(a.out, "schema\t%s\n", name)
				}
				for _, id := range doc.Operations() {
					fmt.Fprintf(a.out, "operation\t%s\n", id)
				}
				return nil
			}

			fields, err := formbind.ImportOpenAPI(ctx, loader, src, args[1])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(a.out)
			enc.SetIndent("", "  ")
			return enc.Encode(fields)
		},
	}
}
