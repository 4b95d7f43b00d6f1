package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/registrar/core/enrollment"
)

type enrollmentRepository struct {
	db *DB
}

func NewEnrollmentRepository(db *DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) hasActive(studentID, offeringID string) bool {
	for _, row := range repo.db.enrollments {
		if row.StudentID == studentID && row.OfferingID == offeringID && row.IsActive() {
			return true
		}
	}
	return false
}

func (repo *enrollmentRepository) CreateEnrollment(_ context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	off, ok := repo.db.offerings[enr.OfferingID]
	if !ok {
		return enrollment.Enrollment{}, enrollment.ErrOfferingNotFound
	}
	if repo.hasActive(enr.StudentID, enr.OfferingID) {
		return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
	}
	if off.SeatsAvailable() <= 0 {
		return enrollment.Enrollment{}, enrollment.ErrCapacityExceeded
	}

	enr.CopyDisplayFields(*off)
	repo.db.seq++
	repo.db.enrollments[enr.ID] = &enrollmentRow{Enrollment: enr, seq: repo.db.seq}
	off.SeatsTaken++
	return enr, nil
}

// release checks that enrollment id can leave the active set and gives its seat back.
// Must be called with the write lock held.
func (repo *enrollmentRepository) release(id string) (*enrollmentRow, error) {
	row, ok := repo.db.enrollments[id]
	if !ok {
		return nil, enrollment.ErrEnrollmentNotFound
	}
	if !row.IsActive() {
		return nil, enrollment.ErrImmutable
	}
	off, ok := repo.db.offerings[row.OfferingID]
	if !ok || off.SeatsTaken <= 0 {
		return nil, enrollment.ErrInconsistent
	}
	off.SeatsTaken--
	return row, nil
}

func (repo *enrollmentRepository) DeleteEnrollment(_ context.Context, id string) (enrollment.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	row, err := repo.release(id)
	if err != nil {
		return enrollment.Enrollment{}, err
	}
	delete(repo.db.enrollments, id)
	return row.Enrollment, nil
}

func (repo *enrollmentRepository) GradeEnrollment(
	_ context.Context,
	id string,
	grade float64,
	status enrollment.Status,
	gradedAt time.Time,
) (enrollment.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	row, err := repo.release(id)
	if err != nil {
		return enrollment.Enrollment{}, err
	}
	row.Status = status
	row.Grade = &grade
	row.GradedAt = &gradedAt
	return row.Enrollment, nil
}

func (repo *enrollmentRepository) GetEnrollment(_ context.Context, id string) (enrollment.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if row, ok := repo.db.enrollments[id]; ok {
		return row.Enrollment, nil
	}
	return enrollment.Enrollment{}, enrollment.ErrEnrollmentNotFound
}

func (repo *enrollmentRepository) QueryEnrollments(
	_ context.Context,
	studentID string,
	statuses ...enrollment.Status,
) ([]enrollment.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rows := make([]*enrollmentRow, 0)
	for _, row := range repo.db.enrollments {
		if row.StudentID == studentID && hasStatus(row.Status, statuses) {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	enrs := make([]enrollment.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrs = append(enrs, row.Enrollment)
	}
	return enrs, nil
}

func hasStatus(status enrollment.Status, statuses []enrollment.Status) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
