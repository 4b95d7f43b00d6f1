package inmemdb

import (
	"sync"

	"github.com/trezcool/registrar/core/catalog"
	"github.com/trezcool/registrar/core/enrollment"
)

type (
	// DB holds the ledger tables. A single mutex guards both so that a seat count and
	// the enrollments holding its seats always change together.
	DB struct {
		mutex       sync.RWMutex
		offerings   map[string]*catalog.Offering
		enrollments map[string]*enrollmentRow
		seq         int64
	}

	enrollmentRow struct {
		enrollment.Enrollment
		seq int64 // insertion order
	}
)

func Open() *DB {
	return &DB{
		offerings:   make(map[string]*catalog.Offering),
		enrollments: make(map[string]*enrollmentRow),
	}
}

// SetSeatsTaken overrides the seat count of an offering, bypassing the ledger.
// It only exists to simulate corrupted state in tests.
func (db *DB) SetSeatsTaken(offeringID string, seats int) bool {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	off, ok := db.offerings[offeringID]
	if ok {
		off.SeatsTaken = seats
	}
	return ok
}
