package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/dojo-hub/dojo-community-hub/internal/domain/shared"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/student"
)

// StudentRepository implements student.Repository on top of DB.
// Stored and returned students are deep copies.
type StudentRepository struct {
	db *studentTable

	// FailNextSave, when set, is returned by the next SaveStudents call. Tests only.
	FailNextSave error
}

// NewStudentRepository creates a repository over the DB's student table.
func NewStudentRepository(db *DB) *StudentRepository {
	return &StudentRepository{db: db.students}
}

var _ student.Repository = (*StudentRepository)(nil)

// SaveStudents stores copies of all students or none of them.
func (r *StudentRepository) SaveStudents(ctx context.Context, students []*student.Student) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if err := r.FailNextSave; err != nil {
		r.FailNextSave = nil
		return err
	}

	for _, s := range students {
		if s == nil || s.ID == "" {
			return shared.NewDomainError("student", "SaveStudents", shared.ErrInvalidEntity, "student without id")
		}
	}
	for _, s := range students {
		r.db.t[s.ID] = s.Clone()
	}
	return nil
}

// GetByID returns a copy of the student.
func (r *StudentRepository) GetByID(ctx context.Context, id string) (*student.Student, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	if s, ok := r.db.t[id]; ok {
		return s.Clone(), nil
	}
	return nil, student.ErrStudentNotFound
}

// GetByIDs returns copies in the order of ids.
func (r *StudentRepository) GetByIDs(ctx context.Context, ids []string) ([]*student.Student, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	out := make([]*student.Student, 0, len(ids))
	for _, id := range ids {
		s, ok := r.db.t[id]
		if !ok {
			return nil, shared.WrapError("student", "GetByIDs", shared.ErrStudentNotFound,
				fmt.Sprintf("student %s not found", id), nil)
		}
		out = append(out, s.Clone())
	}
	return out, nil
}

func (r *StudentRepository) query(opts student.ListOptions) []*student.Student {
	res := make([]*student.Student, 0, len(r.db.t))
	for _, s := range r.db.t {
		if opts.Matches(s) {
			res = append(res, s)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Name != res[j].Name {
			return res[i].Name < res[j].Name
		}
		return res[i].ID < res[j].ID
	})
	return res
}

// List returns copies ordered by name.
func (r *StudentRepository) List(ctx context.Context, opts student.ListOptions) ([]*student.Student, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	matched := r.query(opts)
	if opts.Offset > 0 {
		if opts.Offset >= len(matched) {
			return []*student.Student{}, nil
		}
		matched = matched[opts.Offset:]
	}
	if opts.Limit > 0 && len(matched) > opts.Limit {
		matched = matched[:opts.Limit]
	}

	out := make([]*student.Student, len(matched))
	for i, s := range matched {
		out[i] = s.Clone()
	}
	return out, nil
}

// Count returns the number of matching students.
func (r *StudentRepository) Count(ctx context.Context, opts student.ListOptions) (int, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()
	return len(r.query(opts)), nil
}
