package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-ask/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-ask/pkg/services"
)

func newAskCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question and print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "text", "json", "sql":
			default:
				return fmt.Errorf("--format must be text, json or sql, got %q", format)
			}

			askService, ds, err := a.openAskService(cmd.Context())
			if err != nil {
				return err
			}
			defer ds.Close()

			result, err := askService.Ask(cmd.Context(), strings.Join(args, " "))
			if errors.Is(err, apperrors.ErrEmptyQuestion) {
				return err
			}
			if result != nil {
				if writeErr := writeAskResult(cmd.OutOrStdout(), result, format); writeErr != nil {
					return writeErr
				}
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or sql")
	return cmd
}

func writeAskResult(w io.Writer, result *services.AskResult, format string) error {
	displaySQL := result.SQLClean
	if displaySQL == "" {
		displaySQL = result.SQL
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "sql":
		if displaySQL == "" {
			return fmt.Errorf("no SQL was generated: %s", result.Answer)
		}
		_, err := fmt.Fprintln(w, displaySQL)
		return err
	default:
		if _, err := fmt.Fprintln(w, result.Answer); err != nil {
			return err
		}
		if displaySQL != "" {
			_, err := fmt.Fprintf(w, "\n```sql\n%s\n```\n", displaySQL)
			return err
		}
		return nil
	}
}
