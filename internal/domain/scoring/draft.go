package scoring

import (
	"strings"
	"time"

	"github.com/dojo-hub/dojo-community-hub/internal/domain/shared"
)

// Skill - навык, оцениваемый на тренировке.
type Skill struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Entry - запись одного ученика в черновике сессии.
type Entry struct {
	StudentID string      `json:"student_id"`
	Attending bool        `json:"attending"`
	Scores    SkillScores `json:"scores"`
	Bonus     int         `json:"bonus"`
	Homework  int         `json:"homework"`
}

// Total возвращает итог сессии для записи.
func (e Entry) Total() int {
	return SessionTotal(e.Scores, e.Bonus, e.Homework)
}

// IsTrivial возвращает true, если запись пуста и не должна сохраняться.
func (e Entry) IsTrivial() bool {
	return IsTrivial(e.Scores, e.Bonus, e.Homework)
}

// SessionDraft - сериализуемое состояние тренировки до сохранения.
// Черновик не привязан к интерфейсу: его можно передать по HTTP,
// сохранить и восстановить.
type SessionDraft struct {
	ID       string    `json:"id"`
	Date     time.Time `json:"date"`
	Location string    `json:"location"`
	Class    string    `json:"class"`
	Skills   []Skill   `json:"skills"`
	Entries  []Entry   `json:"entries"`
}

// NewSessionDraft создаёт черновик: все ученики присутствуют, все оценки «не оценено».
func NewSessionDraft(id string, date time.Time, skills []Skill, studentIDs []string) (*SessionDraft, error) {
	if len(skills) == 0 {
		return nil, shared.ErrEmptySession
	}

	d := &SessionDraft{
		ID:      id,
		Date:    date,
		Skills:  append([]Skill(nil), skills...),
		Entries: make([]Entry, 0, len(studentIDs)),
	}
	for _, sid := range studentIDs {
		d.Entries = append(d.Entries, Entry{
			StudentID: sid,
			Attending: true,
			Scores:    d.blankScores(),
		})
	}
	return d, nil
}

func (d *SessionDraft) blankScores() SkillScores {
	scores := make(SkillScores, len(d.Skills))
	for _, s := range d.Skills {
		scores[s.ID] = Ungraded
	}
	return scores
}

func (d *SessionDraft) hasSkill(id string) bool {
	for _, s := range d.Skills {
		if s.ID == id {
			return true
		}
	}
	return false
}

func (d *SessionDraft) entry(studentID string) (*Entry, error) {
	for i := range d.Entries {
		if d.Entries[i].StudentID == studentID {
			return &d.Entries[i], nil
		}
	}
	return nil, shared.ErrStudentNotInSession
}

// Entry возвращает копию записи ученика.
func (d *SessionDraft) Entry(studentID string) (Entry, bool) {
	e, err := d.entry(studentID)
	if err != nil {
		return Entry{}, false
	}
	return *e, true
}

// SetAttendance отмечает присутствие ученика.
func (d *SessionDraft) SetAttendance(studentID string, attending bool) error {
	e, err := d.entry(studentID)
	if err != nil {
		return err
	}
	e.Attending = attending
	return nil
}

// SetScore ставит оценку навыка ученику.
func (d *SessionDraft) SetScore(studentID, skillID string, score Score) error {
	if !d.hasSkill(skillID) {
		return shared.ErrUnknownSkill
	}
	e, err := d.entry(studentID)
	if err != nil {
		return err
	}
	if e.Scores == nil {
		e.Scores = d.blankScores()
	}
	e.Scores[skillID] = score
	return nil
}

// SetBonus задаёт бонусные очки (отрицательные становятся нулём).
func (d *SessionDraft) SetBonus(studentID string, bonus int) error {
	e, err := d.entry(studentID)
	if err != nil {
		return err
	}
	e.Bonus = SanitizeBonus(bonus)
	return nil
}

// SetHomework задаёт очки за домашнее задание (отрицательные становятся нулём).
func (d *SessionDraft) SetHomework(studentID string, homework int) error {
	e, err := d.entry(studentID)
	if err != nil {
		return err
	}
	e.Homework = SanitizeBonus(homework)
	return nil
}

// Filter отбирает учеников, видимых в текущем фильтре интерфейса.
// nil означает «все».
type Filter func(studentID string) bool

// FilterByIDs возвращает фильтр по множеству ID.
func FilterByIDs(ids ...string) Filter {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[strings.TrimSpace(id)] = struct{}{}
	}
	return func(studentID string) bool {
		_, ok := set[studentID]
		return ok
	}
}

// BulkApply ставит оценку по всем навыкам сессии каждому присутствующему
// ученику, попавшему в фильтр. Ungraded очищает оценки.
// Отсутствующие ученики не затрагиваются. Возвращает число изменённых записей.
func (d *SessionDraft) BulkApply(filter Filter, score Score) int {
	changed := 0
	for i := range d.Entries {
		e := &d.Entries[i]
		if !e.Attending {
			continue
		}
		if filter != nil && !filter(e.StudentID) {
			continue
		}
		if e.Scores == nil {
			e.Scores = make(SkillScores, len(d.Skills))
		}
		for _, s := range d.Skills {
			e.Scores[s.ID] = score
		}
		changed++
	}
	return changed
}

// AttendingEntries возвращает записи присутствующих учеников в исходном порядке.
func (d *SessionDraft) AttendingEntries() []Entry {
	out := make([]Entry, 0, len(d.Entries))
	for _, e := range d.Entries {
		if e.Attending {
			out = append(out, e)
		}
	}
	return out
}

// AttendingStudentIDs возвращает ID присутствующих учеников.
func (d *SessionDraft) AttendingStudentIDs() []string {
	entries := d.AttendingEntries()
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.StudentID)
	}
	return ids
}

// Normalize приводит черновик, пришедший извне, к корректному виду:
// бонусы не отрицательны, оценки только по навыкам сессии.
func (d *SessionDraft) Normalize() error {
	if len(d.Skills) == 0 {
		return shared.ErrEmptySession
	}
	for i := range d.Entries {
		e := &d.Entries[i]
		e.Bonus = SanitizeBonus(e.Bonus)
		e.Homework = SanitizeBonus(e.Homework)
		clean := d.blankScores()
		for skillID, s := range e.Scores {
			if _, ok := clean[skillID]; ok {
				clean[skillID] = s
			}
		}
		e.Scores = clean
	}
	return nil
}
