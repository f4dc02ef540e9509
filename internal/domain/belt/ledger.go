// Package belt описывает упорядоченную систему поясов клуба и политику
// начисления полос. Здесь нет внешних зависимостей.
package belt

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dojo-hub/dojo-community-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// BELT
// ══════════════════════════════════════════════════════════════════════════════

// Belt - одна ступень в системе поясов.
type Belt struct {
	// ID - стабильный идентификатор пояса (например, "white").
	ID string

	// Name - отображаемое название (например, "White").
	Name string

	// Order - позиция в системе; меньший порядок идёт раньше.
	Order int

	// Color - цвет для интерфейса (необязательно).
	Color string
}

// String возвращает строковое представление пояса для логирования.
func (b Belt) String() string {
	return fmt.Sprintf("Belt{ID: %s, Name: %s, Order: %d}", b.ID, b.Name, b.Order)
}

// ══════════════════════════════════════════════════════════════════════════════
// LEDGER
// ══════════════════════════════════════════════════════════════════════════════

// Ledger - неизменяемая упорядоченная система поясов клуба.
// Создаётся один раз из конфигурации и передаётся по ссылке.
type Ledger struct {
	belts []Belt
	index map[string]int
}

// NewLedger создаёт систему поясов, сортируя пояса по Order.
// Пустой список и повторяющиеся ID отклоняются.
func NewLedger(belts []Belt) (*Ledger, error) {
	if len(belts) == 0 {
		return nil, shared.ErrEmptyLedger
	}

	sorted := make([]Belt, len(belts))
	copy(sorted, belts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order < sorted[j].Order
	})

	index := make(map[string]int, len(sorted))
	for i, b := range sorted {
		id := strings.TrimSpace(b.ID)
		if id == "" {
			return nil, shared.NewDomainError("belt", "NewLedger", shared.ErrEmptyValue,
				fmt.Sprintf("belt at position %d has an empty id", i))
		}
		if _, exists := index[id]; exists {
			return nil, shared.WrapError("belt", "NewLedger", shared.ErrDuplicateBelt, "duplicate belt", fmt.Errorf("id %q", id))
		}
		sorted[i].ID = id
		if strings.TrimSpace(b.Name) == "" {
			sorted[i].Name = id
		}
		index[id] = i
	}

	return &Ledger{belts: sorted, index: index}, nil
}

// DefaultLedger возвращает стандартную систему поясов WT:
// White, Yellow, Green, Blue, Red, Black.
func DefaultLedger() *Ledger {
	l, err := NewLedger([]Belt{
		{ID: "white", Name: "White", Order: 1, Color: "#ffffff"},
		{ID: "yellow", Name: "Yellow", Order: 2, Color: "#f5d90a"},
		{ID: "green", Name: "Green", Order: 3, Color: "#2e9e44"},
		{ID: "blue", Name: "Blue", Order: 4, Color: "#1f5fbf"},
		{ID: "red", Name: "Red", Order: 5, Color: "#c62828"},
		{ID: "black", Name: "Black", Order: 6, Color: "#111111"},
	})
	if err != nil {
		panic(err)
	}
	return l
}

// Belts возвращает копию упорядоченного списка поясов.
func (l *Ledger) Belts() []Belt {
	out := make([]Belt, len(l.belts))
	copy(out, l.belts)
	return out
}

// Len возвращает количество поясов.
func (l *Ledger) Len() int {
	return len(l.belts)
}

// First возвращает начальный пояс.
func (l *Ledger) First() Belt {
	return l.belts[0]
}

// Last возвращает высший пояс.
func (l *Ledger) Last() Belt {
	return l.belts[len(l.belts)-1]
}

// ByID возвращает пояс по идентификатору.
func (l *Ledger) ByID(id string) (Belt, bool) {
	i, ok := l.index[id]
	if !ok {
		return Belt{}, false
	}
	return l.belts[i], true
}

// IndexOf возвращает позицию пояса в системе (с нуля) или -1.
func (l *Ledger) IndexOf(id string) int {
	if i, ok := l.index[id]; ok {
		return i
	}
	return -1
}

// Next возвращает следующий пояс после указанного.
// Для высшего и неизвестного пояса возвращает false.
func (l *Ledger) Next(id string) (Belt, bool) {
	i := l.IndexOf(id)
	if i < 0 || i+1 >= len(l.belts) {
		return Belt{}, false
	}
	return l.belts[i+1], true
}

// IsLast проверяет, является ли пояс высшим.
func (l *Ledger) IsLast(id string) bool {
	i := l.IndexOf(id)
	return i >= 0 && i == len(l.belts)-1
}

// Contains проверяет, есть ли пояс в системе.
func (l *Ledger) Contains(id string) bool {
	_, ok := l.index[id]
	return ok
}

// Resolve сопоставляет ячейку таблицы с поясом.
// Сначала ищется совпадение названия без учёта регистра,
// затем ячейка трактуется как порядковый номер с единицы.
// ID пояса не сопоставляется: числовой ID не должен перекрывать номер.
func (l *Ledger) Resolve(cell string) Resolution {
	input := strings.TrimSpace(cell)
	if input == "" {
		return Resolution{kind: Unresolved, input: input}
	}

	for _, b := range l.belts {
		if strings.EqualFold(b.Name, input) {
			return Resolution{kind: ResolvedByName, belt: b, input: input}
		}
	}

	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(l.belts) {
		return Resolution{kind: ResolvedByIndex, belt: l.belts[n-1], input: input}
	}

	return Resolution{kind: Unresolved, input: input}
}
