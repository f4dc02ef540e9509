// Package memory implements in-process storage for development and tests.
// Data lives in guarded maps and is lost on restart.
package memory

import (
	"sync"
	"time"

	"github.com/dojo-hub/dojo-community-hub/internal/domain/student"
	"github.com/dojo-hub/dojo-community-hub/pkg/timeutil"
)

// DB groups the in-memory tables.
type DB struct {
	students *studentTable
	drafts   *draftTable
	clock    timeutil.Clock
}

type studentTable struct {
	t     map[string]*student.Student
	mutex sync.RWMutex
}

type draftEntry struct {
	data      []byte
	expiresAt time.Time
}

type draftTable struct {
	t             map[string]draftEntry
	byFingerprint map[string]string
	mutex         sync.Mutex
}

// Open creates an empty database using the system clock.
func Open() *DB {
	return OpenWithClock(timeutil.SystemClock{})
}

// OpenWithClock creates an empty database with a custom clock for draft expiry.
func OpenWithClock(clock timeutil.Clock) *DB {
	return &DB{
		students: &studentTable{t: make(map[string]*student.Student)},
		drafts: &draftTable{
			t:             make(map[string]draftEntry),
			byFingerprint: make(map[string]string),
		},
		clock: clock,
	}
}
