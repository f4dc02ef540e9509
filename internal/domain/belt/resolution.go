package belt

import (
	"encoding/json"
	"fmt"
)

// InvalidBeltID - маркер нераспознанного пояса во внешних представлениях
// (отчёт предпросмотра, JSON черновика). Внутри домена не используется.
const InvalidBeltID = "INVALID_BELT"

// ResolutionKind определяет, как была распознана ячейка пояса.
type ResolutionKind int

const (
	// Unresolved - ячейка не совпала ни с одним поясом.
	Unresolved ResolutionKind = iota
	// ResolvedByName - совпадение по названию или ID.
	ResolvedByName
	// ResolvedByIndex - ячейка оказалась порядковым номером пояса.
	ResolvedByIndex
)

// String возвращает название способа распознавания.
func (k ResolutionKind) String() string {
	switch k {
	case ResolvedByName:
		return "name"
	case ResolvedByIndex:
		return "index"
	default:
		return "unresolved"
	}
}

// Resolution - результат распознавания ячейки пояса.
// Либо содержит пояс, либо помечен как нераспознанный.
type Resolution struct {
	kind  ResolutionKind
	belt  Belt
	input string
}

// IsResolved возвращает true, если пояс найден.
func (r Resolution) IsResolved() bool {
	return r.kind != Unresolved
}

// Kind возвращает способ распознавания.
func (r Resolution) Kind() ResolutionKind {
	return r.kind
}

// Belt возвращает найденный пояс.
func (r Resolution) Belt() (Belt, bool) {
	return r.belt, r.IsResolved()
}

// BeltID возвращает ID найденного пояса или пустую строку.
func (r Resolution) BeltID() string {
	if !r.IsResolved() {
		return ""
	}
	return r.belt.ID
}

// Input возвращает исходное (обрезанное) значение ячейки.
func (r Resolution) Input() string {
	return r.input
}

// WireID возвращает ID пояса или InvalidBeltID для внешних представлений.
func (r Resolution) WireID() string {
	if !r.IsResolved() {
		return InvalidBeltID
	}
	return r.belt.ID
}

// String возвращает строковое представление для логирования.
func (r Resolution) String() string {
	if !r.IsResolved() {
		return fmt.Sprintf("Resolution{%q: unresolved}", r.input)
	}
	return fmt.Sprintf("Resolution{%q: %s by %s}", r.input, r.belt.ID, r.kind)
}

type resolutionJSON struct {
	Kind      string `json:"kind"`
	Input     string `json:"input"`
	BeltID    string `json:"belt_id"`
	BeltName  string `json:"belt_name,omitempty"`
	BeltOrder int    `json:"belt_order,omitempty"`
}

// MarshalJSON сериализует результат распознавания для хранения черновика.
func (r Resolution) MarshalJSON() ([]byte, error) {
	return json.Marshal(resolutionJSON{
		Kind:      r.kind.String(),
		Input:     r.input,
		BeltID:    r.WireID(),
		BeltName:  r.belt.Name,
		BeltOrder: r.belt.Order,
	})
}

// UnmarshalJSON восстанавливает результат распознавания.
func (r *Resolution) UnmarshalJSON(data []byte) error {
	var raw resolutionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.input = raw.Input
	switch raw.Kind {
	case "name":
		r.kind = ResolvedByName
	case "index":
		r.kind = ResolvedByIndex
	default:
		r.kind = Unresolved
		r.belt = Belt{}
		return nil
	}
	r.belt = Belt{ID: raw.BeltID, Name: raw.BeltName, Order: raw.BeltOrder}
	return nil
}
