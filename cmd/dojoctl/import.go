package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/dojo-hub/dojo-community-hub/internal/application/command"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/roster"
	"github.com/dojo-hub/dojo-community-hub/internal/infrastructure/spreadsheet"
)

var (
	validStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	invalidStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// errInvalidRows is returned by "import commit --strict" when a row needs fixing.
var errInvalidRows = errors.New("roster has invalid rows, fix them or drop --strict")

type importFlags struct {
	location string
	class    string
	asJSON   bool
	welcome  bool
	strict   bool
}

func (c *cli) importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a student roster from a file",
		Long: `Preview or commit a roster file (.csv, .tsv, .txt or .xlsx).

Columns are positional: Name, Age, Birthday, Gender, Belt, Stripes, Points,
LocalXP, Parent Name, Email, Phone, then optional Location and Class.
Run "dojoctl template" for a starter file.`,
	}

	var f importFlags
	cmd.PersistentFlags().StringVar(&f.location, "location", "", "default location for rows without one")
	cmd.PersistentFlags().StringVar(&f.class, "class", "", "default class for rows without one")
	cmd.PersistentFlags().BoolVar(&f.asJSON, "json", false, "print the report as JSON")

	preview := &cobra.Command{
		Use:   "preview <file>",
		Short: "Validate a roster file without saving anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runImport(cmd, args[0], f, false)
		},
	}

	commit := &cobra.Command{
		Use:   "commit <file>",
		Short: "Validate a roster file and save its valid rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runImport(cmd, args[0], f, true)
		},
	}
	commit.Flags().BoolVar(&f.welcome, "welcome", false, "generate a welcome message per new student")
	commit.Flags().BoolVar(&f.strict, "strict", false, "refuse to commit when any row is invalid")

	cmd.AddCommand(preview, commit)
	return cmd
}

func (c *cli) runImport(cmd *cobra.Command, path string, f importFlags, doCommit bool) error {
	previewCmd, err := readRosterFile(path)
	if err != nil {
		return err
	}
	previewCmd.Defaults = roster.Defaults{
		Location: strings.TrimSpace(f.location),
		Class:    strings.TrimSpace(f.class),
	}

	ctx := cmd.Context()
	app, err := c.app(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	preview, err := app.PreviewImport.Handle(ctx, previewCmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !doCommit {
		return printReport(out, preview.Report, f.asJSON)
	}

	if f.strict && preview.Report.ErrorCount > 0 {
		if err := printReport(out, preview.Report, f.asJSON); err != nil {
			return err
		}
		return errInvalidRows
	}

	res, err := app.CommitImport.Handle(ctx, command.CommitImportCommand{
		BatchID:         preview.Batch.ID,
		WelcomeMessages: f.welcome,
	})
	if err != nil {
		return err
	}

	if f.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"report":      preview.Report,
			"imported":    res.Imported,
			"skipped":     res.Skipped,
			"student_ids": res.StudentIDs,
			"welcome":     res.Welcome,
		})
	}

	if err := printReport(out, preview.Report, false); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nimported %d student(s), skipped %d row(s)\n", res.Imported, res.Skipped)
	for _, id := range res.StudentIDs {
		if text, ok := res.Welcome[id]; ok {
			fmt.Fprintf(out, "  %s: %s\n", id, text)
		}
	}
	return nil
}

// readRosterFile turns path into a preview command: spreadsheets go through
// the file decoder, anything else is read as delimited text.
func readRosterFile(path string) (command.PreviewImportCommand, error) {
	file, err := os.Open(path)
	if err != nil {
		return command.PreviewImportCommand{}, fmt.Errorf("failed to open roster: %w", err)
	}
	defer file.Close()

	data, err := spreadsheet.ReadAll(file)
	if err != nil {
		return command.PreviewImportCommand{}, err
	}

	name := filepath.Base(path)
	format, err := spreadsheet.DetectFormat(name)
	if err != nil {
		return command.PreviewImportCommand{}, err
	}
	if format == spreadsheet.FormatXLSX {
		return command.PreviewImportCommand{FileName: name, File: data}, nil
	}
	return command.PreviewImportCommand{Raw: string(data)}, nil
}

func printReport(w io.Writer, r roster.Report, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	t := table.New().
		Headers("ROW", "NAME", "BELT", "STRIPES", "POINTS", "LOCATION", "CLASS", "STATUS").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row < 0 || col != 7 || row >= len(r.Rows) {
				return lipgloss.NewStyle()
			}
			if r.Rows[row].Status == roster.RowValid {
				return validStyle
			}
			return invalidStyle
		})
	for _, row := range r.Rows {
		status := string(row.Status)
		if row.Message != "" {
			status += ": " + row.Message
		}
		t.Row(
			strconv.Itoa(row.SourceRow),
			row.Name,
			beltCell(row),
			strconv.Itoa(row.Stripes),
			strconv.Itoa(row.InitialPoints),
			row.Location,
			row.Class,
			status,
		)
	}
	fmt.Fprintln(w, t.String())

	for _, row := range r.Rows {
		for _, warning := range row.Warnings {
			fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("row %d: %s", row.SourceRow, warning)))
		}
	}
	fmt.Fprintf(w, "valid %d, invalid %d, skipped blank %d\n", r.ValidCount, r.ErrorCount, r.SkippedCount)
	return nil
}

func beltCell(row roster.RowReport) string {
	if row.Status == roster.RowInvalidBelt {
		return "? " + row.BeltInput
	}
	return row.BeltID
}
