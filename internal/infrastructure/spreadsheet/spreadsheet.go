// Package spreadsheet turns uploaded roster files into rows of cells.
// Delimited text goes through the roster tokenizer; .xlsx is read with excelize.
package spreadsheet

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/dojo-hub/dojo-community-hub/internal/domain/roster"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/shared"
)

// MaxFileSize limits uploaded roster files.
const MaxFileSize = 5 << 20

// Format is the detected file format.
type Format string

const (
	FormatText Format = "text"
	FormatXLSX Format = "xlsx"
)

// DetectFormat maps a file name to its format. An empty name is text.
func DetectFormat(name string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case "", ".csv", ".txt", ".tsv":
		return FormatText, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".xls":
		return "", unreadable("legacy .xls workbooks are not supported, save the file as .xlsx or .csv", nil)
	default:
		return "", unreadable(fmt.Sprintf("unsupported file type %q", ext), nil)
	}
}

// ReadAll reads at most MaxFileSize bytes from r.
func ReadAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return nil, unreadable("failed to read upload", err)
	}
	if len(data) > MaxFileSize {
		return nil, unreadable(fmt.Sprintf("file is larger than %d bytes", MaxFileSize), nil)
	}
	return data, nil
}

// Decode returns the rows of the file named name.
// For .xlsx only the first sheet is read.
func Decode(name string, data []byte) ([][]string, error) {
	format, err := DetectFormat(name)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatXLSX:
		return decodeXLSX(data)
	default:
		if !utf8.Valid(data) {
			return nil, unreadable("text file is not valid UTF-8", nil)
		}
		text := strings.TrimPrefix(string(data), "\ufeff")
		return roster.Tokenize(text), nil
	}
}

func decodeXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, unreadable("failed to open workbook", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, unreadable("workbook has no sheets", nil)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, unreadable(fmt.Sprintf("failed to read sheet %q", sheets[0]), err)
	}
	return rows, nil
}

// Template returns the import template as a workbook with the header row and one sample.
func Template() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows := roster.Tokenize(roster.Template())
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write template row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to encode template workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func unreadable(msg string, err error) error {
	return shared.WrapError("roster", "Decode", shared.ErrImportFileUnreadable, msg, err)
}
