package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formbind"
	"github.com/goliatone/go-formbind/pkg/orchestrator"
	"github.com/goliatone/go-formbind/pkg/renderers/html"
	"github.com/goliatone/go-formbind/pkg/widgets"
)

func newSnapshotCmd(a *app) *cobra.Command {
	var (
		id     string
		mode   string
		action string
		output string
	)
	cmd := &cobra.Command{
		Use:   "snapshot <form>",
		Short: "Render a declared form to HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseTarget(mode, id)
			if err != nil {
				return err
			}
			form, catalog, err := a.form(args[0])
			if err != nil {
				return err
			}
			client, err := a.client(catalog)
			if err != nil {
				return err
			}
			renderer, err := html.New(html.WithAction(action), html.WithWidgets(widgets.NewRegistry()))
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			o, err := formbind.OpenDeclared(ctx, form, client, target,
				orchestrator.WithLogger(a.logger.WithField("form", form.Resource)),
				orchestrator.WithBaseParams(a.params().Merge(form.BaseParams())),
			)
			if err != nil {
				return err
			}
			defer o.Close()

			out, err := renderer.Render(ctx, o.View(), o.Callbacks())
			if err != nil {
				return err
			}
			if output != "" {
				if err := os.WriteFile(output, out, 0o644); err != nil {
					return err
				}
				a.logger.WithField("path", output).Info("snapshot written")
				return nil
			}
			_, err = a.out.Write(out)
			return err
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&id, "id", "", "entity id to load")
	flags.StringVar(&mode, "mode", "auto", "auto, create, edit or view")
	flags.StringVar(&action, "action", "", "form action attribute")
	flags.StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	return cmd
}
