// Package student содержит доменную модель ученика клуба.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package student

import (
	"fmt"
	"strings"
	"time"

	"github.com/dojo-hub/dojo-community-hub/internal/domain/belt"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/scoring"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// MaxNameLength - максимальная длина имени ученика.
const MaxNameLength = 100

// Parent - контакт родителя или опекуна.
type Parent struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// IsEmpty возвращает true, если контакт не заполнен.
func (p Parent) IsEmpty() bool {
	return p.Name == "" && p.Email == "" && p.Phone == ""
}

// PerformanceRecord - результат одной тренировки. Не изменяется после добавления.
type PerformanceRecord struct {
	// Date - дата тренировки.
	Date time.Time `json:"date"`

	// Scores - оценки по навыкам; «не оценено» сериализуется как null.
	Scores scoring.SkillScores `json:"scores"`

	// BonusPoints - бонусные очки.
	BonusPoints int `json:"bonus_points"`

	// HomeworkPoints - очки за домашнее задание.
	HomeworkPoints int `json:"homework_points"`

	// SessionTotal - итог тренировки, начисленный ученику.
	SessionTotal int `json:"session_total"`
}

// FeedbackSource определяет автора отзыва.
type FeedbackSource string

const (
	// FeedbackSourceAI - текст сгенерирован сервисом генерации.
	FeedbackSourceAI FeedbackSource = "ai"
	// FeedbackSourceSystem - системное сообщение (например, о повышении).
	FeedbackSourceSystem FeedbackSource = "system"
	// FeedbackSourceCoach - заметка тренера.
	FeedbackSourceCoach FeedbackSource = "coach"
)

// IsValid проверяет, что источник корректен.
func (s FeedbackSource) IsValid() bool {
	switch s {
	case FeedbackSourceAI, FeedbackSourceSystem, FeedbackSourceCoach:
		return true
	default:
		return false
	}
}

// FeedbackRecord - запись в истории отзывов.
type FeedbackRecord struct {
	Date   time.Time      `json:"date"`
	Source FeedbackSource `json:"source"`
	Text   string         `json:"text"`
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Student - центральная сущность: ученик, его пояс и прогресс.
type Student struct {
	// ID - внутренний уникальный идентификатор (UUID в строковом формате).
	ID string

	// Name - имя ученика.
	Name string

	// Age - возраст, как указан при зачислении (0 - неизвестен).
	Age int

	// Birthday - дата рождения (нулевое время - неизвестна).
	Birthday time.Time

	// Gender - пол в свободной форме.
	Gender string

	// BeltID - текущий пояс.
	BeltID string

	// Stripes - полосы на текущем поясе; всегда вычисляются из TotalPoints.
	Stripes int

	// TotalPoints - очки, накопленные на текущем поясе.
	TotalPoints int

	// LocalXP - опыт из внешней системы клуба, хранится для отображения.
	LocalXP int

	// AttendanceCount - количество посещённых тренировок.
	AttendanceCount int

	// IsReadyForGrading - тренер подтвердил готовность к аттестации.
	IsReadyForGrading bool

	// LastPromotionDate - дата последнего повышения (нулевое время - не было).
	LastPromotionDate time.Time

	// PerformanceHistory - история тренировок, только добавление.
	PerformanceHistory []PerformanceRecord

	// FeedbackHistory - история отзывов, только добавление.
	FeedbackHistory []FeedbackRecord

	// Location - филиал клуба.
	Location string

	// AssignedClass - группа внутри филиала.
	AssignedClass string

	// Parent - контакт родителя.
	Parent Parent

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrStudentNotFound - ученик не найден.
	ErrStudentNotFound = shared.ErrStudentNotFound

	// ErrInvalidName - пустое имя.
	ErrInvalidName = shared.ErrInvalidStudentName

	// ErrNameTooLong - имя длиннее MaxNameLength.
	ErrNameTooLong = shared.ErrStudentNameTooLong

	// ErrUnknownBelt - пояс не найден в системе поясов.
	ErrUnknownBelt = shared.ErrBeltNotFound

	// ErrNegativeStripes - отрицательное число полос.
	ErrNegativeStripes = shared.ErrNegativeStripes

	// ErrReadinessLocked - недостаточно полос для отметки готовности.
	ErrReadinessLocked = shared.ErrReadinessLocked
)

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// NewStudentParams содержит параметры для создания нового ученика.
type NewStudentParams struct {
	ID            string
	Name          string
	Age           int
	Birthday      time.Time
	Gender        string
	BeltID        string
	Stripes       int
	LocalXP       int
	Location      string
	AssignedClass string
	Parent        Parent
}

// NewStudent создаёт нового ученика с валидацией всех полей.
// Стартовые очки равны Stripes × стоимость полосы текущего пояса.
func NewStudent(params NewStudentParams, ledger *belt.Ledger, policy belt.PointsPolicy) (*Student, error) {
	if params.ID == "" {
		return nil, shared.NewDomainError("student", "Create", shared.ErrInvalidID, "student id is required")
	}

	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, ErrInvalidName
	}
	if len([]rune(name)) > MaxNameLength {
		return nil, ErrNameTooLong
	}

	if ledger != nil && !ledger.Contains(params.BeltID) {
		return nil, ErrUnknownBelt
	}

	if params.Stripes < 0 {
		return nil, ErrNegativeStripes
	}

	age := params.Age
	if age < 0 {
		age = 0
	}

	now := time.Now().UTC()
	points := policy.InitialPoints(params.Stripes, params.BeltID)

	return &Student{
		ID:            params.ID,
		Name:          name,
		Age:           age,
		Birthday:      params.Birthday,
		Gender:        strings.TrimSpace(params.Gender),
		BeltID:        params.BeltID,
		Stripes:       policy.StripesFor(points, params.BeltID),
		TotalPoints:   points,
		LocalXP:       params.LocalXP,
		Location:      params.Location,
		AssignedClass: params.AssignedClass,
		Parent:        params.Parent,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS
// ══════════════════════════════════════════════════════════════════════════════

// RecordAttendance увеличивает счётчик посещений.
func (s *Student) RecordAttendance() {
	s.AttendanceCount++
	s.UpdatedAt = time.Now().UTC()
}

// AddFeedback добавляет запись в историю отзывов.
// Пустой текст игнорируется.
func (s *Student) AddFeedback(source FeedbackSource, text string, at time.Time) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	if !source.IsValid() {
		source = FeedbackSourceSystem
	}
	s.FeedbackHistory = append(s.FeedbackHistory, FeedbackRecord{
		Date:   at.UTC(),
		Source: source,
		Text:   text,
	})
	s.UpdatedAt = time.Now().UTC()
	return true
}

// LastPerformance возвращает последнюю запись о тренировке.
func (s *Student) LastPerformance() (PerformanceRecord, bool) {
	if len(s.PerformanceHistory) == 0 {
		return PerformanceRecord{}, false
	}
	return s.PerformanceHistory[len(s.PerformanceHistory)-1], true
}

// String возвращает строковое представление ученика для логирования.
func (s *Student) String() string {
	return fmt.Sprintf(
		"Student{ID: %s, Name: %s, Belt: %s, Stripes: %d, Points: %d, Ready: %t}",
		s.ID, s.Name, s.BeltID, s.Stripes, s.TotalPoints, s.IsReadyForGrading,
	)
}

// Clone создаёт глубокую копию ученика.
func (s *Student) Clone() *Student {
	if s == nil {
		return nil
	}

	clone := *s
	if s.PerformanceHistory != nil {
		clone.PerformanceHistory = make([]PerformanceRecord, len(s.PerformanceHistory))
		for i, r := range s.PerformanceHistory {
			r.Scores = r.Scores.Clone()
			clone.PerformanceHistory[i] = r
		}
	}
	if s.FeedbackHistory != nil {
		clone.FeedbackHistory = append([]FeedbackRecord(nil), s.FeedbackHistory...)
	}
	return &clone
}
