package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/dojo-hub/dojo-community-hub/config"
	"github.com/dojo-hub/dojo-community-hub/internal/application/command"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/roster"
	"github.com/dojo-hub/dojo-community-hub/internal/infrastructure/spreadsheet"
)

func testCLI(t *testing.T) *cli {
	t.Helper()
	dojo, err := (&config.DojoFile{
		Locations: []config.LocationEntry{{Name: "Harbor", Classes: []string{"Tigers"}}},
	}).Build()
	require.NoError(t, err)

	cfg := &config.Config{
		App:      config.AppConfig{Name: "dojoctl-test", Environment: config.EnvDevelopment},
		Import:   config.ImportConfig{DraftTTL: command.DefaultDraftTTL},
		Dojo:     dojo,
		Features: config.LoadFeatureFlags(nil),
	}
	return &cli{loadConfig: func() (*config.Config, error) { return cfg, nil }}
}

func execute(t *testing.T, c *cli, args ...string) (string, error) {
	t.Helper()
	root := c.rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeRoster(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const rosterCSV = "Name,Age,Birthday,Gender,Belt,Stripes\nAna,9,2016-04-02,F,Yellow,2\nBen,10,,M,Purple,1\n"

func TestTemplate_CSVToStdout(t *testing.T) {
	out, err := execute(t, testCLI(t), "template")
	require.NoError(t, err)
	assert.Equal(t, roster.Template(), out)
}

func TestTemplate_XLSXToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.xlsx")
	out, err := execute(t, testCLI(t), "template", "--format", "xlsx", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)

	wb, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows(wb.GetSheetName(0))
	require.NoError(t, err)
	assert.Equal(t, roster.TemplateHeader, rows[0])
}

func TestTemplate_Errors(t *testing.T) {
	_, err := execute(t, testCLI(t), "template", "--format", "xlsx")
	assert.ErrorContains(t, err, "--output is required")

	_, err = execute(t, testCLI(t), "template", "--format", "pdf")
	assert.ErrorContains(t, err, `unknown format "pdf"`)
}

func TestImportPreview_JSON(t *testing.T) {
	path := writeRoster(t, "roster.csv", rosterCSV)
	out, err := execute(t, testCLI(t), "import", "preview", path, "--location", "Harbor", "--json")
	require.NoError(t, err)

	var report roster.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.ValidCount)
	assert.Equal(t, 1, report.ErrorCount)
	require.Len(t, report.Rows, 2)
	assert.Equal(t, "Tigers", report.Rows[0].Class)
	assert.Equal(t, roster.RowInvalidBelt, report.Rows[1].Status)
}

func TestImportPreview_Table(t *testing.T) {
	path := writeRoster(t, "roster.csv", rosterCSV)
	out, err := execute(t, testCLI(t), "import", "preview", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Ana")
	assert.Contains(t, out, "? Purple")
	assert.NotContains(t, out, "INVALID_BELT")
	assert.Contains(t, out, "yellow")
	assert.Contains(t, out, "valid 1, invalid 1, skipped blank 0")
}

func TestImportCommit(t *testing.T) {
	path := writeRoster(t, "roster.csv", rosterCSV)
	out, err := execute(t, testCLI(t), "import", "commit", path, "--welcome")
	require.NoError(t, err)
	assert.Contains(t, out, "imported 1 student(s), skipped 1 row(s)")
	assert.Contains(t, out, "Welcome to the dojo, Ana!")
}

func TestImportCommit_StrictRefusesInvalidRows(t *testing.T) {
	path := writeRoster(t, "roster.csv", rosterCSV)
	out, err := execute(t, testCLI(t), "import", "commit", path, "--strict")
	assert.ErrorIs(t, err, errInvalidRows)
	assert.NotContains(t, out, "imported")
}

func TestImportPreview_Workbook(t *testing.T) {
	data, err := spreadsheet.Template()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "roster.xlsx")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	out, err := execute(t, testCLI(t), "import", "preview", path, "--json")
	require.NoError(t, err)

	var report roster.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.ValidCount)
	assert.Equal(t, "Jane Doe", report.Rows[0].Name)
}

func TestImportPreview_LegacyWorkbookRejected(t *testing.T) {
	path := writeRoster(t, "roster.xls", "binary")
	_, err := execute(t, testCLI(t), "import", "preview", path)
	assert.ErrorContains(t, err, "legacy .xls")
}

func TestMigrate_RequiresDatabase(t *testing.T) {
	_, err := execute(t, testCLI(t), "migrate", "status")
	assert.ErrorContains(t, err, "DATABASE_URL is not set")
}
