package spreadsheet

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/dojo-hub/dojo-community-hub/internal/domain/roster"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/shared"
)

func workbook(t *testing.T, rows ...[]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestDecode_XLSXMatchesText(t *testing.T) {
	data := workbook(t,
		[]string{"Name", "Age", "Birthday", "Gender", "Belt"},
		[]string{"Ana", "9", "2016-04-02", "F", "Yellow"},
	)

	fromXLSX, err := Decode("roster.xlsx", data)
	require.NoError(t, err)

	fromText, err := Decode("roster.csv", []byte("Name,Age,Birthday,Gender,Belt\nAna,9,2016-04-02,F,Yellow\n"))
	require.NoError(t, err)

	assert.Equal(t, fromText, fromXLSX)
}

func TestDecode_TextStripsBOM(t *testing.T) {
	rows, err := Decode("roster.txt", []byte("\ufeffName\tBelt\nAna\tWhite"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Name", rows[0][0])
}

func TestDecode_Rejects(t *testing.T) {
	for _, tc := range []struct {
		name string
		data []byte
	}{
		{"legacy.xls", []byte("anything")},
		{"photo.png", []byte("anything")},
		{"broken.xlsx", []byte("not a zip")},
		{"latin1.csv", []byte{0xff, 0xfe, 'A'}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.name, tc.data)
			assert.ErrorIs(t, err, shared.ErrImportFileUnreadable)
		})
	}
}

func TestReadAll_Limit(t *testing.T) {
	_, err := ReadAll(bytes.NewReader(make([]byte, MaxFileSize+1)))
	assert.ErrorIs(t, err, shared.ErrImportFileUnreadable)

	data, err := ReadAll(strings.NewReader("Name,Belt"))
	require.NoError(t, err)
	assert.Equal(t, "Name,Belt", string(data))
}

func TestTemplate_RoundTrip(t *testing.T) {
	data, err := Template()
	require.NoError(t, err)

	rows, err := Decode("template.xlsx", data)
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.True(t, roster.IsHeaderRow(rows[0]))
}
