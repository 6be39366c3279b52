package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newDescribeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "describe [form]",
		Short: "Print the descriptors of a declared form as JSON",
		Long:  "Without an argument describe lists the declared forms.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				catalog, err := a.catalog()
				if err != nil {
					return err
				}
				for _, name := range catalog.Names() {
					fmt.Fprintln(a.out, name)
				}
				return nil
			}

			form, _, err := a.form(args[0])
			if err != nil {
				return err
			}
			fields, err := form.Build()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(a.out)
			enc.SetIndent("", "  ")
			return enc.Encode(fields)
		},
	}
}
