package roster

import (
	"context"
	"time"

	"github.com/dojo-hub/dojo-community-hub/internal/domain/belt"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/student"
)

// RowStatus - статус строки импорта.
type RowStatus string

const (
	// RowValid - строка будет импортирована.
	RowValid RowStatus = "valid"
	// RowInvalidBelt - пояс не распознан, строка будет пропущена.
	RowInvalidBelt RowStatus = "invalid_belt"
	// RowMalformed - нет имени при заполненных столбцах.
	RowMalformed RowStatus = "malformed"
)

// IsValid возвращает true для строк, пригодных к импорту.
func (s RowStatus) IsValid() bool {
	return s == RowValid
}

// Defaults - значения по умолчанию для пакета импорта.
type Defaults struct {
	Location string `json:"location"`
	Class    string `json:"class"`
}

// Row - кандидат в ученики, полученный из одной строки таблицы.
type Row struct {
	// Index - позиция в пакете (с нуля), используется для правки.
	Index int `json:"index"`

	// SourceRow - номер строки во входных данных (с единицы, включая заголовок).
	SourceRow int `json:"source_row"`

	Cells []string `json:"cells"`

	Name     string          `json:"name"`
	Age      int             `json:"age"`
	Birthday time.Time       `json:"birthday"`
	Gender   string          `json:"gender"`
	Belt     belt.Resolution `json:"belt"`

	// Stripes - заявленные полосы (не отрицательны).
	Stripes int `json:"stripes"`

	// DeclaredPoints - значение столбца Points, только для отображения.
	DeclaredPoints int `json:"declared_points"`

	// InitialPoints - стартовые очки: Stripes × стоимость полосы.
	InitialPoints int `json:"initial_points"`

	LocalXP  int            `json:"local_xp"`
	Parent   student.Parent `json:"parent"`
	Location string         `json:"location"`
	Class    string         `json:"class"`

	Status   RowStatus `json:"status"`
	Warnings []string  `json:"warnings,omitempty"`
}

// Batch - результат разбора одного импорта, ожидающий проверки.
type Batch struct {
	ID             string    `json:"id"`
	SchemaVersion  string    `json:"schema_version"`
	Fingerprint    string    `json:"fingerprint"`
	Source         string    `json:"source"`
	CreatedAt      time.Time `json:"created_at"`
	Defaults       Defaults  `json:"defaults"`
	HeaderDetected bool      `json:"header_detected"`

	// SkippedRows - строки без имени с не более чем двумя заполненными ячейками.
	SkippedRows int `json:"skipped_rows"`

	Rows []Row `json:"rows"`
}

// ValidRows возвращает строки, пригодные к импорту, в исходном порядке.
func (b *Batch) ValidRows() []Row {
	out := make([]Row, 0, len(b.Rows))
	for _, r := range b.Rows {
		if r.Status.IsValid() {
			out = append(out, r)
		}
	}
	return out
}

// InvalidCount возвращает число строк, которые будут пропущены при фиксации.
func (b *Batch) InvalidCount() int {
	return len(b.Rows) - len(b.ValidRows())
}

// DraftStore хранит пакеты импорта между предпросмотром и фиксацией.
// Реализации находятся в infrastructure/persistence.
type DraftStore interface {
	// Save сохраняет пакет на указанное время.
	Save(ctx context.Context, batch *Batch, ttl time.Duration) error

	// Get возвращает пакет по ID.
	// Возвращает shared.ErrImportBatchNotFound, если пакет не найден или истёк.
	Get(ctx context.Context, id string) (*Batch, error)

	// Delete удаляет пакет.
	Delete(ctx context.Context, id string) error

	// FindByFingerprint ищет живой пакет с тем же отпечатком входных данных.
	FindByFingerprint(ctx context.Context, fingerprint string) (string, bool, error)
}
