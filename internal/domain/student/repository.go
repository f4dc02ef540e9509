package student

import "context"

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Эти интерфейсы определяют контракт для работы с хранилищем данных.
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет операции хранения учеников.
type Repository interface {
	// SaveStudents сохраняет учеников целиком (вставка или обновление)
	// в одной транзакции: либо сохраняются все, либо ни один.
	SaveStudents(ctx context.Context, students []*Student) error

	// GetByID возвращает ученика по ID.
	// Возвращает ErrStudentNotFound, если ученик не найден.
	GetByID(ctx context.Context, id string) (*Student, error)

	// GetByIDs возвращает учеников по списку ID в порядке списка.
	// Возвращает ErrStudentNotFound, если хотя бы один не найден.
	GetByIDs(ctx context.Context, ids []string) ([]*Student, error)

	// List возвращает учеников по фильтру, отсортированных по имени.
	List(ctx context.Context, opts ListOptions) ([]*Student, error)

	// Count возвращает количество учеников по фильтру.
	Count(ctx context.Context, opts ListOptions) (int, error)
}

// ListOptions содержит параметры фильтрации и пагинации.
type ListOptions struct {
	// Location - филиал (пусто - все).
	Location string

	// AssignedClass - группа (пусто - все).
	AssignedClass string

	// BeltID - пояс (пусто - все).
	BeltID string

	// ReadyOnly - только готовые к аттестации.
	ReadyOnly bool

	// Offset - смещение (для пагинации).
	Offset int

	// Limit - максимальное количество записей.
	Limit int
}

// DefaultListOptions возвращает параметры по умолчанию.
func DefaultListOptions() ListOptions {
	return ListOptions{
		Offset: 0,
		Limit:  500,
	}
}

// WithLocation устанавливает филиал.
func (o ListOptions) WithLocation(location string) ListOptions {
	o.Location = location
	return o
}

// WithClass устанавливает группу.
func (o ListOptions) WithClass(class string) ListOptions {
	o.AssignedClass = class
	return o
}

// WithBelt устанавливает пояс.
func (o ListOptions) WithBelt(beltID string) ListOptions {
	o.BeltID = beltID
	return o
}

// WithReadyOnly оставляет только готовых к аттестации.
func (o ListOptions) WithReadyOnly() ListOptions {
	o.ReadyOnly = true
	return o
}

// WithOffset устанавливает смещение.
func (o ListOptions) WithOffset(offset int) ListOptions {
	o.Offset = offset
	return o
}

// WithLimit устанавливает лимит.
func (o ListOptions) WithLimit(limit int) ListOptions {
	o.Limit = limit
	return o
}

// Matches проверяет ученика на соответствие фильтру (без пагинации).
func (o ListOptions) Matches(s *Student) bool {
	if o.Location != "" && s.Location != o.Location {
		return false
	}
	if o.AssignedClass != "" && s.AssignedClass != o.AssignedClass {
		return false
	}
	if o.BeltID != "" && s.BeltID != o.BeltID {
		return false
	}
	if o.ReadyOnly && !s.IsReadyForGrading {
		return false
	}
	return true
}
