package redis

import (
	"context"
	"errors"

	"github.com/dojo-hub/dojo-community-hub/internal/domain/student"
	"github.com/dojo-hub/dojo-community-hub/pkg/circuitbreaker"
	"github.com/dojo-hub/dojo-community-hub/pkg/logger"
)

// CachedStudentRepository is a read-through cache in front of a student.Repository.
// GetByID is served from Redis when possible. Writes go to the repository first
// and then refresh the cached copies. Cache failures are logged and never fail
// the call; a circuit breaker stops hitting Redis while it is down.
type CachedStudentRepository struct {
	next    student.Repository
	store   Store
	breaker *circuitbreaker.CircuitBreaker
	log     *logger.Logger
}

// NewCachedStudentRepository wraps next with a Redis read-through cache.
func NewCachedStudentRepository(next student.Repository, store Store, log *logger.Logger) *CachedStudentRepository {
	if log == nil {
		log = logger.Nop()
	}
	log = log.With(logger.Component("student-cache"))
	return &CachedStudentRepository{
		next:  next,
		store: store,
		breaker: circuitbreaker.CacheBreaker(func(name string, from, to circuitbreaker.State) {
			log.Warn("cache breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		}),
		log: log,
	}
}

var _ student.Repository = (*CachedStudentRepository)(nil)

// SaveStudents persists then refreshes the cache.
func (r *CachedStudentRepository) SaveStudents(ctx context.Context, students []*student.Student) error {
	if err := r.next.SaveStudents(ctx, students); err != nil {
		return err
	}
	for _, s := range students {
		r.put(ctx, s)
	}
	return nil
}

// GetByID reads through the cache.
func (r *CachedStudentRepository) GetByID(ctx context.Context, id string) (*student.Student, error) {
	var cached student.Student
	err := r.breaker.Execute(ctx, func(ctx context.Context) error {
		err := r.store.Get(ctx, StudentKey(id), &cached)
		if errors.Is(err, ErrCacheMiss) {
			return nil
		}
		return err
	})
	if err == nil && cached.ID == id {
		return &cached, nil
	}
	if err != nil && !circuitbreaker.IsRejected(err) {
		r.log.Warn("student cache read failed", logger.StudentID(id), logger.Err(err))
	}

	s, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.put(ctx, s)
	return s, nil
}

// GetByIDs goes to the repository; session commits need a consistent snapshot.
func (r *CachedStudentRepository) GetByIDs(ctx context.Context, ids []string) ([]*student.Student, error) {
	return r.next.GetByIDs(ctx, ids)
}

// List goes to the repository.
func (r *CachedStudentRepository) List(ctx context.Context, opts student.ListOptions) ([]*student.Student, error) {
	return r.next.List(ctx, opts)
}

// Count goes to the repository.
func (r *CachedStudentRepository) Count(ctx context.Context, opts student.ListOptions) (int, error) {
	return r.next.Count(ctx, opts)
}

// Invalidate drops a cached student.
func (r *CachedStudentRepository) Invalidate(ctx context.Context, id string) error {
	return r.store.Delete(ctx, StudentKey(id))
}

func (r *CachedStudentRepository) put(ctx context.Context, s *student.Student) {
	err := r.breaker.Execute(ctx, func(ctx context.Context) error {
		return r.store.Set(ctx, StudentKey(s.ID), s, TTLStudentCache)
	})
	if err != nil && !circuitbreaker.IsRejected(err) {
		r.log.Warn("student cache write failed", logger.StudentID(s.ID), logger.Err(err))
	}
}
