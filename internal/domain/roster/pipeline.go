package roster

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dojo-hub/dojo-community-hub/internal/domain/belt"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/shared"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/student"
)

// Pipeline разбирает табличные данные в пакет кандидатов.
// Неизменяем после создания и безопасен для параллельного использования.
type Pipeline struct {
	ledger    *belt.Ledger
	policy    belt.PointsPolicy
	directory Directory
}

// NewPipeline создаёт конвейер импорта.
func NewPipeline(ledger *belt.Ledger, policy belt.PointsPolicy, directory Directory) *Pipeline {
	if ledger == nil {
		ledger = belt.DefaultLedger()
	}
	return &Pipeline{ledger: ledger, policy: policy, directory: directory}
}

// ParseText разбирает вставленный текст.
func (p *Pipeline) ParseText(raw string, defaults Defaults) *Batch {
	return p.ParseRows(Tokenize(raw), defaults)
}

// ParseRows разбирает уже разбитые на ячейки строки (например, из .xlsx).
// Ошибки строк выражаются статусами, а не ошибками: строка никогда не теряется,
// кроме пустых строк без имени.
func (p *Pipeline) ParseRows(rows [][]string, defaults Defaults) *Batch {
	b := &Batch{
		SchemaVersion: SchemaV1,
		CreatedAt:     time.Now().UTC(),
		Defaults:      defaults,
		Rows:          make([]Row, 0, len(rows)),
	}

	first := true
	for i, raw := range rows {
		cells := make([]string, len(raw))
		for j, c := range raw {
			cells[j] = CleanCell(c)
		}
		if nonEmptyCount(cells) == 0 {
			continue
		}

		if first {
			first = false
			if IsHeaderRow(cells) {
				b.HeaderDetected = true
				continue
			}
		}

		if cellAt(cells, ColName) == "" && nonEmptyCount(cells) <= 2 {
			b.SkippedRows++
			continue
		}

		row := p.buildRow(cells, defaults)
		row.Index = len(b.Rows)
		row.SourceRow = i + 1
		b.Rows = append(b.Rows, row)
	}

	return b
}

func (p *Pipeline) buildRow(cells []string, defaults Defaults) Row {
	row := Row{
		Cells:  cells,
		Name:   cellAt(cells, ColName),
		Gender: cellAt(cells, ColGender),
		Parent: student.Parent{
			Name:  cellAt(cells, ColParentName),
			Email: cellAt(cells, ColParentEmail),
			Phone: cellAt(cells, ColParentPhone),
		},
	}

	row.Age = row.parseInt(cellAt(cells, ColAge), "age")
	if row.Age < 0 {
		row.Age = 0
	}

	if raw := cellAt(cells, ColBirthday); raw != "" {
		if t, err := shared.ParseDate(raw); err == nil {
			row.Birthday = t
		} else {
			row.warn(fmt.Sprintf("birthday %q is not YYYY-MM-DD", raw))
		}
	}

	row.Stripes = row.parseInt(cellAt(cells, ColStripes), "stripes")
	if row.Stripes < 0 {
		row.Stripes = 0
	}
	row.DeclaredPoints = row.parseInt(cellAt(cells, ColPoints), "points")
	row.LocalXP = row.parseInt(cellAt(cells, ColLocalXP), "local xp")

	row.Location = p.directory.ResolveLocation(cellAt(cells, ColLocation), defaults.Location)
	row.Class = p.directory.ResolveClass(row.Location, cellAt(cells, ColClass), defaults.Class)

	row.Belt = p.ledger.Resolve(cellAt(cells, ColBelt))
	p.refresh(&row)
	return row
}

// refresh пересчитывает очки и статус строки после разбора или правки.
func (p *Pipeline) refresh(row *Row) {
	// Для нераспознанного пояса берётся глобальная стоимость полосы:
	// значение нужно только для предпросмотра.
	row.InitialPoints = p.policy.InitialPoints(row.Stripes, row.Belt.BeltID())

	switch {
	case strings.TrimSpace(row.Name) == "", len([]rune(row.Name)) > student.MaxNameLength:
		row.Status = RowMalformed
	case !row.Belt.IsResolved():
		row.Status = RowInvalidBelt
	default:
		row.Status = RowValid
	}
}

// parseInt берёт ведущее целое число ячейки: "2.0" даёт 2, "3 stripes" - 3.
// Ячейка без ведущих цифр даёт 0 и предупреждение.
func (r *Row) parseInt(raw, field string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	v, ok := LeadingInt(raw)
	if !ok {
		r.warn(fmt.Sprintf("%s %q is not a number", field, raw))
		return 0
	}
	return v
}

// LeadingInt разбирает необязательный знак и цифры в начале s.
// ok равно false, если цифр нет или число не помещается в int.
func LeadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	v, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return v, true
}

func (r *Row) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// RowEdit - правка одной строки в предпросмотре. nil-поля не меняются.
type RowEdit struct {
	Name     *string
	Belt     *string
	Stripes  *int
	Location *string
	Class    *string
}

// EditRow применяет правку к одной строке: пояс распознаётся заново,
// очки и статус пересчитываются только для этой строки.
func (p *Pipeline) EditRow(b *Batch, index int, edit RowEdit) error {
	if index < 0 || index >= len(b.Rows) {
		return shared.WrapError("roster", "EditRow", shared.ErrImportRowOutOfRange,
			"row index out of range", fmt.Errorf("index %d of %d", index, len(b.Rows)))
	}

	row := &b.Rows[index]
	if edit.Name != nil {
		row.Name = strings.TrimSpace(*edit.Name)
	}
	if edit.Belt != nil {
		row.Belt = p.ledger.Resolve(*edit.Belt)
	}
	if edit.Stripes != nil {
		row.Stripes = *edit.Stripes
		if row.Stripes < 0 {
			row.Stripes = 0
		}
	}
	if edit.Location != nil {
		row.Location = p.directory.ResolveLocation(*edit.Location, b.Defaults.Location)
		if edit.Class == nil {
			row.Class = p.directory.ResolveClass(row.Location, row.Class, b.Defaults.Class)
		}
	}
	if edit.Class != nil {
		row.Class = p.directory.ResolveClass(row.Location, *edit.Class, b.Defaults.Class)
	}

	p.refresh(row)
	return nil
}

// ValidStudents строит учеников из валидного подмножества пакета.
// newID выдаёт идентификатор для каждого нового ученика.
func (p *Pipeline) ValidStudents(b *Batch, newID func() string) ([]*student.Student, error) {
	rows := b.ValidRows()
	out := make([]*student.Student, 0, len(rows))
	for _, r := range rows {
		s, err := student.NewStudent(student.NewStudentParams{
			ID:            newID(),
			Name:          r.Name,
			Age:           r.Age,
			Birthday:      r.Birthday,
			Gender:        r.Gender,
			BeltID:        r.Belt.BeltID(),
			Stripes:       r.Stripes,
			LocalXP:       r.LocalXP,
			Location:      r.Location,
			AssignedClass: r.Class,
			Parent:        r.Parent,
		}, p.ledger, p.policy)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", r.SourceRow, err)
		}
		out = append(out, s)
	}
	return out, nil
}
