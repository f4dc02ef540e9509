package roster

import "fmt"

// Report - сводка пакета для проверки администратором перед фиксацией.
type Report struct {
	BatchID       string `json:"batch_id"`
	SchemaVersion string `json:"schema_version"`
	ValidCount    int    `json:"valid_count"`
	ErrorCount    int    `json:"error_count"`

	// SkippedCount - пустые строки без имени, отброшенные при разборе.
	SkippedCount int `json:"skipped_count"`

	// WillSkipOnCommit - строки, которые не попадут в список при фиксации.
	WillSkipOnCommit int `json:"will_skip_on_commit"`

	Rows []RowReport `json:"rows"`
}

// RowReport - состояние одной строки в отчёте.
type RowReport struct {
	Index          int       `json:"index"`
	SourceRow      int       `json:"source_row"`
	Name           string    `json:"name"`
	BeltInput      string    `json:"belt_input"`
	BeltID         string    `json:"belt_id"`
	Stripes        int       `json:"stripes"`
	InitialPoints  int       `json:"initial_points"`
	DeclaredPoints int       `json:"declared_points"`
	Location       string    `json:"location"`
	Class          string    `json:"class"`
	Status         RowStatus `json:"status"`
	Message        string    `json:"message,omitempty"`
	Warnings       []string  `json:"warnings,omitempty"`
}

// Summarize строит отчёт по пакету.
func Summarize(b *Batch) Report {
	r := Report{
		BatchID:       b.ID,
		SchemaVersion: b.SchemaVersion,
		SkippedCount:  b.SkippedRows,
		Rows:          make([]RowReport, 0, len(b.Rows)),
	}

	for _, row := range b.Rows {
		if row.Status.IsValid() {
			r.ValidCount++
		} else {
			r.ErrorCount++
		}
		r.Rows = append(r.Rows, RowReport{
			Index:          row.Index,
			SourceRow:      row.SourceRow,
			Name:           row.Name,
			BeltInput:      row.Belt.Input(),
			BeltID:         row.Belt.WireID(),
			Stripes:        row.Stripes,
			InitialPoints:  row.InitialPoints,
			DeclaredPoints: row.DeclaredPoints,
			Location:       row.Location,
			Class:          row.Class,
			Status:         row.Status,
			Message:        statusMessage(row),
			Warnings:       row.Warnings,
		})
	}
	r.WillSkipOnCommit = r.ErrorCount
	return r
}

func statusMessage(row Row) string {
	switch row.Status {
	case RowInvalidBelt:
		if row.Belt.Input() == "" {
			return "belt is missing"
		}
		return fmt.Sprintf("belt %q is not in the ledger", row.Belt.Input())
	case RowMalformed:
		if row.Name != "" {
			return "name is too long"
		}
		return "name is missing"
	default:
		return ""
	}
}
