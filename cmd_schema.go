package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSchemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the base tables questions can be answered from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			askService, ds, err := a.openAskService(cmd.Context())
			if err != nil {
				return err
			}
			defer ds.Close()

			catalog, err := askService.Schema(cmd.Context())
			if err != nil {
				return err
			}
			if len(catalog.Tables) == 0 {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "(no tables)")
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), catalog.Text())
			return err
		},
	}
}
