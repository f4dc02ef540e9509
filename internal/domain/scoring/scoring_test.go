package scoring

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojo-hub/dojo-community-hub/internal/domain/shared"
)

func TestNewScore_Clamps(t *testing.T) {
	assert.Equal(t, 0, NewScore(-3).Points())
	assert.Equal(t, 1, NewScore(1).Points())
	assert.Equal(t, 2, NewScore(5).Points())
	assert.True(t, NewScore(0).IsGraded())
	assert.False(t, Ungraded.IsGraded())
	assert.Equal(t, 0, Ungraded.Points())
}

func TestScore_JSONNull(t *testing.T) {
	scores := SkillScores{"kicks": NewScore(2), "forms": Ungraded}
	data, err := json.Marshal(scores)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kicks":2,"forms":null}`, string(data))

	var decoded SkillScores
	require.NoError(t, json.Unmarshal([]byte(`{"kicks":9,"forms":null,"sparring":-1}`), &decoded))
	assert.Equal(t, 2, decoded["kicks"].Points())
	assert.False(t, decoded["forms"].IsGraded())
	v, graded := decoded["sparring"].Value()
	assert.True(t, graded)
	assert.Equal(t, 0, v)
}

func TestSessionTotal(t *testing.T) {
	scores := SkillScores{"a": NewScore(2), "b": NewScore(1), "c": Ungraded}
	assert.Equal(t, 3, SessionTotal(scores, 0, 0))
	assert.Equal(t, 8, SessionTotal(scores, 5, 0))
	assert.Equal(t, 3, SessionTotal(scores, -10, -1))
	assert.Equal(t, 60, SessionTotal(nil, 50, 10))
}

func TestIsTrivial(t *testing.T) {
	blank := SkillScores{"a": Ungraded, "b": Ungraded}
	assert.True(t, IsTrivial(blank, 0, 0))
	assert.True(t, IsTrivial(blank, -5, 0))
	assert.False(t, IsTrivial(blank, 1, 0))
	assert.False(t, IsTrivial(blank, 0, 1))
	assert.False(t, IsTrivial(SkillScores{"a": NewScore(0)}, 0, 0))
}

func TestSessionDraft_BulkApply(t *testing.T) {
	skills := []Skill{{ID: "kicks"}, {ID: "forms"}, {ID: "sparring"}, {ID: "discipline"}}
	d, err := NewSessionDraft("s1", time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), skills, []string{"s-1", "s-2", "s-3", "s-4"})
	require.NoError(t, err)
	require.NoError(t, d.SetAttendance("s-4", false))

	changed := d.BulkApply(FilterByIDs("s-1", "s-2", "s-4"), NewScore(2))
	assert.Equal(t, 2, changed)

	for _, id := range []string{"s-1", "s-2"} {
		e, ok := d.Entry(id)
		require.True(t, ok)
		for _, s := range skills {
			assert.Equal(t, 2, e.Scores[s.ID].Points(), "student %s skill %s", id, s.ID)
		}
		assert.Equal(t, 8, e.Total())
	}

	outsideFilter, _ := d.Entry("s-3")
	assert.True(t, outsideFilter.IsTrivial())

	absent, _ := d.Entry("s-4")
	assert.True(t, absent.Scores.AllUngraded())

	d.BulkApply(nil, Ungraded)
	cleared, _ := d.Entry("s-1")
	assert.True(t, cleared.Scores.AllUngraded())
}

func TestSessionDraft_Setters(t *testing.T) {
	d, err := NewSessionDraft("s1", time.Now(), []Skill{{ID: "kicks"}}, []string{"s-1"})
	require.NoError(t, err)

	assert.True(t, errors.Is(d.SetScore("s-1", "unknown", NewScore(1)), shared.ErrUnknownSkill))
	assert.True(t, errors.Is(d.SetScore("ghost", "kicks", NewScore(1)), shared.ErrStudentNotInSession))

	require.NoError(t, d.SetScore("s-1", "kicks", NewScore(1)))
	require.NoError(t, d.SetBonus("s-1", -4))
	require.NoError(t, d.SetHomework("s-1", 3))

	e, _ := d.Entry("s-1")
	assert.Equal(t, 0, e.Bonus)
	assert.Equal(t, 4, e.Total())
	assert.Equal(t, []string{"s-1"}, d.AttendingStudentIDs())

	_, err = NewSessionDraft("s2", time.Now(), nil, nil)
	assert.True(t, errors.Is(err, shared.ErrEmptySession))
}

func TestSessionDraft_Normalize(t *testing.T) {
	d := &SessionDraft{
		Skills: []Skill{{ID: "kicks"}, {ID: "forms"}},
		Entries: []Entry{{
			StudentID: "s-1",
			Attending: true,
			Scores:    SkillScores{"kicks": NewScore(2), "stray": NewScore(2)},
			Bonus:     -1,
		}},
	}
	require.NoError(t, d.Normalize())

	e := d.Entries[0]
	assert.Len(t, e.Scores, 2)
	assert.False(t, e.Scores["forms"].IsGraded())
	assert.Equal(t, 2, e.Total())
}
