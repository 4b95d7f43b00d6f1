package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/registrar/core/catalog"
	"github.com/trezcool/registrar/core/enrollment"
)

const enrollmentColumns = `id, seq, student_id, offering_id, status, enrolled_at, enrolled_by, grade, graded_at,
	subject_code, subject_name, credits, instructor, schedule, term`

type enrollmentRow struct {
	ID          string       `db:"id"`
	Seq         int64        `db:"seq"`
	StudentID   string       `db:"student_id"`
	OfferingID  string       `db:"offering_id"`
	Status      string       `db:"status"`
	EnrolledAt  time.Time    `db:"enrolled_at"`
	EnrolledBy  string       `db:"enrolled_by"`
	Grade       null.Float64 `db:"grade"`
	GradedAt    null.Time    `db:"graded_at"`
	SubjectCode string       `db:"subject_code"`
	SubjectName string       `db:"subject_name"`
	Credits     int          `db:"credits"`
	Instructor  string       `db:"instructor"`
	Schedule    string       `db:"schedule"`
	Term        string       `db:"term"`
}

func (row enrollmentRow) enrollment() enrollment.Enrollment {
	enr := enrollment.Enrollment{
		ID:          row.ID,
		StudentID:   row.StudentID,
		OfferingID:  row.OfferingID,
		Status:      enrollment.Status(row.Status),
		EnrolledAt:  row.EnrolledAt.UTC(),
		EnrolledBy:  row.EnrolledBy,
		SubjectCode: row.SubjectCode,
		SubjectName: row.SubjectName,
		Credits:     row.Credits,
		Instructor:  row.Instructor,
		Schedule:    row.Schedule,
		Term:        row.Term,
	}
	if row.Grade.Valid {
		grade := row.Grade.Float64
		enr.Grade = &grade
	}
	if row.GradedAt.Valid {
		gradedAt := row.GradedAt.Time.UTC()
		enr.GradedAt = &gradedAt
	}
	return enr
}

type enrollmentRepository struct {
	db *sqlx.DB
}

func NewEnrollmentRepository(db *sqlx.DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		off, err := getOffering(ctx, tx, enr.OfferingID)
		if errors.Is(err, catalog.ErrNotFound) {
			return enrollment.ErrOfferingNotFound
		}
		if err != nil {
			return err
		}

		var active bool
		err = tx.GetContext(ctx, &active, tx.Rebind(`SELECT EXISTS (
			SELECT 1 FROM enrollments WHERE student_id = ? AND offering_id = ? AND status = ?
		)`), enr.StudentID, enr.OfferingID, string(enrollment.StatusActive))
		if err != nil {
			return errors.Wrap(err, "checking active enrollment")
		}
		if active {
			return enrollment.ErrAlreadyEnrolled
		}

		// take the seat: the guard makes the capacity check and the increment one step
		res, err := tx.ExecContext(ctx, tx.Rebind(
			`UPDATE offerings SET seats_taken = seats_taken + 1 WHERE id = ? AND seats_taken < capacity`,
		), enr.OfferingID)
		if err != nil {
			return errors.Wrap(err, "taking seat")
		}
		if n, err := res.RowsAffected(); err != nil {
			return errors.Wrap(err, "taking seat")
		} else if n == 0 {
			return enrollment.ErrCapacityExceeded
		}

		var seq int64
		err = tx.GetContext(ctx, &seq, tx.Rebind(
			`SELECT COALESCE(MAX(seq), 0) + 1 FROM enrollments WHERE student_id = ?`,
		), enr.StudentID)
		if err != nil {
			return errors.Wrap(err, "computing enrollment seq")
		}

		enr.CopyDisplayFields(off)
		_, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO enrollments (
			id, seq, student_id, offering_id, status, enrolled_at, enrolled_by,
			subject_code, subject_name, credits, instructor, schedule, term
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			enr.ID, seq, enr.StudentID, enr.OfferingID, string(enr.Status), enr.EnrolledAt, enr.EnrolledBy,
			enr.SubjectCode, enr.SubjectName, enr.Credits, enr.Instructor, enr.Schedule, enr.Term,
		)
		if isUniqueViolation(err) {
			// a concurrent enrollment of the same student won the race
			return enrollment.ErrAlreadyEnrolled
		}
		return errors.Wrap(err, "inserting enrollment")
	})
	if err != nil {
		return enrollment.Enrollment{}, err
	}
	return enr, nil
}

// release checks that enrollment id can leave the active set, then gives its seat back.
func release(ctx context.Context, tx *sqlx.Tx, id string) (enrollment.Enrollment, error) {
	enr, err := getEnrollment(ctx, tx, id)
	if err != nil {
		return enrollment.Enrollment{}, err
	}
	if !enr.IsActive() {
		return enrollment.Enrollment{}, enrollment.ErrImmutable
	}

	res, err := tx.ExecContext(ctx, tx.Rebind(
		`UPDATE offerings SET seats_taken = seats_taken - 1 WHERE id = ? AND seats_taken > 0`,
	), enr.OfferingID)
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "releasing seat")
	}
	if n, err := res.RowsAffected(); err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "releasing seat")
	} else if n == 0 {
		return enrollment.Enrollment{}, enrollment.ErrInconsistent
	}
	return enr, nil
}

// checkChanged maps a guarded write that matched no row to the error of a concurrent change.
func checkChanged(res sql.Result, err error, action string) error {
	if err != nil {
		return errors.Wrap(err, action)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, action)
	}
	if n == 0 {
		return enrollment.ErrEnrollmentNotFound
	}
	return nil
}

func (repo *enrollmentRepository) DeleteEnrollment(ctx context.Context, id string) (enrollment.Enrollment, error) {
	var enr enrollment.Enrollment
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var err error
		if enr, err = release(ctx, tx, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(
			`DELETE FROM enrollments WHERE id = ? AND status = ?`,
		), id, string(enrollment.StatusActive))
		return checkChanged(res, err, "deleting enrollment")
	})
	if err != nil {
		return enrollment.Enrollment{}, err
	}
	return enr, nil
}

func (repo *enrollmentRepository) GradeEnrollment(
	ctx context.Context,
	id string,
	grade float64,
	status enrollment.Status,
	gradedAt time.Time,
) (enrollment.Enrollment, error) {
	var enr enrollment.Enrollment
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var err error
		if enr, err = release(ctx, tx, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(
			`UPDATE enrollments SET status = ?, grade = ?, graded_at = ? WHERE id = ? AND status = ?`,
		), string(status), grade, gradedAt, id, string(enrollment.StatusActive))
		return checkChanged(res, err, "grading enrollment")
	})
	if err != nil {
		return enrollment.Enrollment{}, err
	}

	enr.Status = status
	enr.Grade = &grade
	enr.GradedAt = &gradedAt
	return enr, nil
}

func (repo *enrollmentRepository) GetEnrollment(ctx context.Context, id string) (enrollment.Enrollment, error) {
	return getEnrollment(ctx, repo.db, id)
}

func getEnrollment(ctx context.Context, q queryer, id string) (enrollment.Enrollment, error) {
	var row enrollmentRow
	err := sqlx.GetContext(ctx, q, &row, q.Rebind(`SELECT `+enrollmentColumns+` FROM enrollments WHERE id = ?`), id)
	if err != nil {
		return enrollment.Enrollment{}, trapNoRowsErr(err, enrollment.ErrEnrollmentNotFound)
	}
	return row.enrollment(), nil
}

func (repo *enrollmentRepository) QueryEnrollments(
	ctx context.Context,
	studentID string,
	statuses ...enrollment.Status,
) ([]enrollment.Enrollment, error) {
	q := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE student_id = ?`
	args := []interface{}{studentID}
	if len(statuses) > 0 {
		marks := make([]string, 0, len(statuses))
		for _, s := range statuses {
			marks = append(marks, "?")
			args = append(args, string(s))
		}
		q += ` AND status IN (` + strings.Join(marks, ", ") + `)`
	}
	q += ` ORDER BY seq ASC, enrolled_at ASC, id ASC`

	rows := make([]enrollmentRow, 0)
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting enrollments")
	}
	enrs := make([]enrollment.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrs = append(enrs, row.enrollment())
	}
	return enrs, nil
}
