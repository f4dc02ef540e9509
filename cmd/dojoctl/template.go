package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dojo-hub/dojo-community-hub/internal/domain/roster"
	"github.com/dojo-hub/dojo-community-hub/internal/infrastructure/spreadsheet"
)

func (c *cli) templateCmd() *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write the roster import template",
		Long: `Write the roster import template with the header row and one sample student.

CSV goes to stdout unless --output is given; xlsx always needs --output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var data []byte
			switch format {
			case "csv":
				data = []byte(roster.Template())
			case "xlsx":
				if output == "" {
					return fmt.Errorf("--output is required for xlsx")
				}
				b, err := spreadsheet.Template()
				if err != nil {
					return fmt.Errorf("failed to render workbook: %w", err)
				}
				data = b
			default:
				return fmt.Errorf("unknown format %q, use csv or xlsx", format)
			}

			if output == "" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("failed to write template: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "template format: csv or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write instead of stdout")
	return cmd
}
