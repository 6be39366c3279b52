package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd(a *app) *cobra.Command {
	var (
		formsDir string
		baseURL  string
	)

	root := &cobra.Command{
		Use:   "formbind",
		Short: "Inspect, fill and serve declarative forms",
		Long: `formbind loads form declarations (YAML or JSON) and binds them to a
JSON API: describe prints the resolved descriptors, fill walks a form in the
terminal, snapshot renders it to HTML and serve exposes dictionaries and
forms over HTTP.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.configure(); err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("forms") {
				a.cfg.Set(cfgKeyFormsDir, formsDir)
			}
			if flags.Changed("base-url") {
				a.cfg.Set(cfgKeyBaseURL, baseURL)
			}
			return nil
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default: ./formbind.yaml or <user config dir>/formbind/formbind.yaml)")
	flags.StringVar(&formsDir, "forms", "", "directory holding form declarations (default: ./forms)")
	flags.StringVar(&baseURL, "base-url", "", "API base URL; empty uses an in-memory store")

	root.AddCommand(
		newDescribeCmd(a),
		newFillCmd(a),
		newSnapshotCmd(a),
		newServeCmd(a),
		newOpenAPICmd(a),
	)
	return root
}
