// Package roster содержит конвейер массового импорта списка учеников:
// разбор табличного текста, распознавание поясов, филиалов и групп,
// отчёт для проверки и фиксацию валидного подмножества.
package roster

import (
	"encoding/csv"
	"strings"
)

// Delimiter - разделитель столбцов, выбранный для входных данных.
type Delimiter rune

const (
	DelimiterTab   Delimiter = '\t'
	DelimiterComma Delimiter = ','
)

// DetectDelimiter выбирает разделитель по первой непустой строке:
// табуляция, если она даёт хотя бы два столбца, иначе запятая.
func DetectDelimiter(raw string) Delimiter {
	for _, line := range splitLines(raw) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if len(strings.Split(line, "\t")) >= 2 {
			return DelimiterTab
		}
		return DelimiterComma
	}
	return DelimiterTab
}

// Tokenize разбивает текст на строки и столбцы.
// Переводы строк CRLF и CR допускаются. Пустая строка внутри текста
// остаётся пустым рядом (nil), чтобы индекс ряда совпадал с номером строки
// во входных данных; пустые строки в конце отбрасываются.
// Ячейки в кавычках с запятыми внутри остаются одной ячейкой;
// окружающие кавычки снимаются, пробелы обрезаются.
func Tokenize(raw string) [][]string {
	delim := DetectDelimiter(raw)

	lines := splitLines(raw)
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}

	var rows [][]string
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			rows = append(rows, nil)
			continue
		}

		var cells []string
		if delim == DelimiterTab {
			cells = strings.Split(line, "\t")
		} else {
			cells = splitCommaLine(line)
		}

		for i := range cells {
			cells[i] = CleanCell(cells[i])
		}
		rows = append(rows, cells)
	}
	return rows
}

// CleanCell обрезает пробелы и снимает окружающие кавычки.
func CleanCell(cell string) string {
	cell = strings.TrimSpace(cell)
	for len(cell) >= 2 {
		first, last := cell[0], cell[len(cell)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			cell = strings.TrimSpace(cell[1 : len(cell)-1])
			continue
		}
		break
	}
	if cell == `"` || cell == `""` {
		return ""
	}
	return cell
}

func splitLines(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	return strings.Split(raw, "\n")
}

func splitCommaLine(line string) []string {
	r := csv.NewReader(strings.NewReader(line))
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	record, err := r.Read()
	if err != nil {
		return strings.Split(line, ",")
	}
	return record
}
