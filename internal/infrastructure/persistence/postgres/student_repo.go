package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dojo-hub/dojo-community-hub/internal/domain/shared"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StudentRepository implements student.Repository for PostgreSQL.
type StudentRepository struct {
	conn *Connection
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(conn *Connection) *StudentRepository {
	return &StudentRepository{conn: conn}
}

var _ student.Repository = (*StudentRepository)(nil)

const studentColumns = `
	id, name, age, birthday, gender, belt_id, stripes, total_points, local_xp,
	attendance_count, is_ready_for_grading, last_promotion_date, location,
	assigned_class, parent, performance_history, feedback_history,
	created_at, updated_at`

const upsertStudentSQL = `
	INSERT INTO students (` + studentColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		age = EXCLUDED.age,
		birthday = EXCLUDED.birthday,
		gender = EXCLUDED.gender,
		belt_id = EXCLUDED.belt_id,
		stripes = EXCLUDED.stripes,
		total_points = EXCLUDED.total_points,
		local_xp = EXCLUDED.local_xp,
		attendance_count = EXCLUDED.attendance_count,
		is_ready_for_grading = EXCLUDED.is_ready_for_grading,
		last_promotion_date = EXCLUDED.last_promotion_date,
		location = EXCLUDED.location,
		assigned_class = EXCLUDED.assigned_class,
		parent = EXCLUDED.parent,
		performance_history = EXCLUDED.performance_history,
		feedback_history = EXCLUDED.feedback_history,
		updated_at = EXCLUDED.updated_at`

// ─────────────────────────────────────────────────────────────────────────────
// Writes
// ─────────────────────────────────────────────────────────────────────────────

// SaveStudents upserts all students in one transaction.
func (r *StudentRepository) SaveStudents(ctx context.Context, students []*student.Student) error {
	if len(students) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, s := range students {
		args, err := studentArgs(s)
		if err != nil {
			return err
		}
		batch.Queue(upsertStudentSQL, args...)
	}

	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		results := tx.SendBatch(ctx, batch)
		for i := range students {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				if IsCheckViolation(err) {
					return shared.WrapError("student", "SaveStudents", shared.ErrInvalidEntity,
						fmt.Sprintf("student %s violates a constraint", students[i].ID), err)
				}
				return fmt.Errorf("failed to save student %s: %w", students[i].ID, err)
			}
		}
		return results.Close()
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Reads
// ─────────────────────────────────────────────────────────────────────────────

// GetByID returns a student by ID.
func (r *StudentRepository) GetByID(ctx context.Context, id string) (*student.Student, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
	s, err := scanStudent(row)
	if IsNoRows(err) {
		return nil, student.ErrStudentNotFound
	}
	return s, err
}

// GetByIDs returns students in the order of ids.
func (r *StudentRepository) GetByIDs(ctx context.Context, ids []string) ([]*student.Student, error) {
	if len(ids) == 0 {
		return []*student.Student{}, nil
	}

	rows, err := r.conn.Query(ctx, `SELECT `+studentColumns+` FROM students WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	found, err := scanStudents(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*student.Student, len(found))
	for _, s := range found {
		byID[s.ID] = s
	}

	out := make([]*student.Student, 0, len(ids))
	for _, id := range ids {
		s, ok := byID[id]
		if !ok {
			return nil, shared.WrapError("student", "GetByIDs", shared.ErrStudentNotFound,
				fmt.Sprintf("student %s not found", id), nil)
		}
		out = append(out, s)
	}
	return out, nil
}

// List returns students matching opts ordered by name.
func (r *StudentRepository) List(ctx context.Context, opts student.ListOptions) ([]*student.Student, error) {
	where, args := buildFilter(opts)
	query := `SELECT ` + studentColumns + ` FROM students` + where + ` ORDER BY name, id`

	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	return scanStudents(rows)
}

// Count returns the number of students matching opts. Pagination is ignored.
func (r *StudentRepository) Count(ctx context.Context, opts student.ListOptions) (int, error) {
	where, args := buildFilter(opts)

	var count int
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM students`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count students: %w", err)
	}
	return count, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

// buildFilter turns ListOptions into a WHERE clause with positional arguments.
func buildFilter(opts student.ListOptions) (string, []any) {
	var clauses []string
	var args []any

	add := func(column string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if opts.Location != "" {
		add("location", opts.Location)
	}
	if opts.AssignedClass != "" {
		add("assigned_class", opts.AssignedClass)
	}
	if opts.BeltID != "" {
		add("belt_id", opts.BeltID)
	}
	if opts.ReadyOnly {
		clauses = append(clauses, "is_ready_for_grading")
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func studentArgs(s *student.Student) ([]any, error) {
	parent, err := json.Marshal(s.Parent)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal parent: %w", err)
	}
	performance, err := json.Marshal(nonNil(s.PerformanceHistory))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal performance history: %w", err)
	}
	feedback, err := json.Marshal(nonNil(s.FeedbackHistory))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal feedback history: %w", err)
	}

	updatedAt := s.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	createdAt := s.CreatedAt
	if createdAt.IsZero() {
		createdAt = updatedAt
	}

	return []any{
		s.ID,
		s.Name,
		s.Age,
		nullTime(s.Birthday),
		s.Gender,
		s.BeltID,
		s.Stripes,
		s.TotalPoints,
		s.LocalXP,
		s.AttendanceCount,
		s.IsReadyForGrading,
		nullTime(s.LastPromotionDate),
		s.Location,
		s.AssignedClass,
		parent,
		performance,
		feedback,
		createdAt,
		updatedAt,
	}, nil
}

func scanStudent(row pgx.Row) (*student.Student, error) {
	var s student.Student
	var birthday, lastPromotion *time.Time
	var parent, performance, feedback []byte

	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Age,
		&birthday,
		&s.Gender,
		&s.BeltID,
		&s.Stripes,
		&s.TotalPoints,
		&s.LocalXP,
		&s.AttendanceCount,
		&s.IsReadyForGrading,
		&lastPromotion,
		&s.Location,
		&s.AssignedClass,
		&parent,
		&performance,
		&feedback,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan student: %w", err)
	}

	if birthday != nil {
		s.Birthday = birthday.UTC()
	}
	if lastPromotion != nil {
		s.LastPromotionDate = lastPromotion.UTC()
	}
	if err := decodeJSONColumns(&s, parent, performance, feedback); err != nil {
		return nil, err
	}
	return &s, nil
}

func scanStudents(rows pgx.Rows) ([]*student.Student, error) {
	defer rows.Close()

	students := []*student.Student{}
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return students, nil
}

func decodeJSONColumns(s *student.Student, parent, performance, feedback []byte) error {
	if len(parent) > 0 {
		if err := json.Unmarshal(parent, &s.Parent); err != nil {
			return fmt.Errorf("failed to decode parent of %s: %w", s.ID, err)
		}
	}
	if len(performance) > 0 {
		if err := json.Unmarshal(performance, &s.PerformanceHistory); err != nil {
			return fmt.Errorf("failed to decode performance history of %s: %w", s.ID, err)
		}
	}
	if len(feedback) > 0 {
		if err := json.Unmarshal(feedback, &s.FeedbackHistory); err != nil {
			return fmt.Errorf("failed to decode feedback history of %s: %w", s.ID, err)
		}
	}
	if len(s.PerformanceHistory) == 0 {
		s.PerformanceHistory = nil
	}
	if len(s.FeedbackHistory) == 0 {
		s.FeedbackHistory = nil
	}
	return nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
