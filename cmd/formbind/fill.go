package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formbind"
	"github.com/goliatone/go-formbind/pkg/orchestrator"
	"github.com/goliatone/go-formbind/pkg/renderers/tui"
)

func newFillCmd(a *app) *cobra.Command {
	var (
		id      string
		mode    string
		format  string
		confirm bool
	)
	cmd := &cobra.Command{
		Use:   "fill <form>",
		Short: "Fill a declared form in the terminal and save it",
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

			for source, err := range o.DictionaryErrors() {
				a.logger.WithError(err).WithField("source", source).Warn("dictionary unavailable")
			}

			renderer := tui.New(
				tui.WithPromptDriver(a.driver),
				tui.WithOutputFormat(tui.OutputFormat(format)),
				tui.WithConfirmSave(confirm),
				tui.WithTheme(tui.Theme{ErrorPrefix: "! "}),
			)
			out, err := renderer.Render(ctx, o.View(), o.Callbacks())
			if err != nil {
				if le := o.LoadErr(); le != nil {
					return fmt.Errorf("%w: %v", err, le)
				}
				return err
			}
			_, err = fmt.Fprintln(a.out, string(out))
			return err
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&id, "id", "", "entity id to edit")
	flags.StringVar(&mode, "mode", "auto", "auto, create, edit or view")
	flags.StringVar(&format, "format", string(tui.OutputFormatJSON), "output format: json, form or pretty")
	flags.BoolVar(&confirm, "confirm", true, "ask before saving")
	return cmd
}
