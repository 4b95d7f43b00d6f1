package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/registrar/core"
	"github.com/trezcool/registrar/core/catalog"
)

const offeringColumns = `id, subject_code, subject_name, credits, instructor, schedule, department, term,
	capacity, seats_taken, capacity - seats_taken AS seats_available, created_at, updated_at`

type offeringRow struct {
	ID             string    `db:"id"`
	SubjectCode    string    `db:"subject_code"`
	SubjectName    string    `db:"subject_name"`
	Credits        int       `db:"credits"`
	Instructor     string    `db:"instructor"`
	Schedule       string    `db:"schedule"`
	Department     string    `db:"department"`
	Term           string    `db:"term"`
	Capacity       int       `db:"capacity"`
	SeatsTaken     int       `db:"seats_taken"`
	SeatsAvailable int       `db:"seats_available"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (row offeringRow) offering() catalog.Offering {
	return catalog.Offering{
		ID:          row.ID,
		SubjectCode: row.SubjectCode,
		SubjectName: row.SubjectName,
		Credits:     row.Credits,
		Instructor:  row.Instructor,
		Schedule:    row.Schedule,
		Department:  row.Department,
		Term:        row.Term,
		Capacity:    row.Capacity,
		SeatsTaken:  row.SeatsTaken,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

type offeringRepository struct {
	db *sqlx.DB
}

func NewOfferingRepository(db *sqlx.DB) catalog.Repository {
	return &offeringRepository{db: db}
}

func (repo *offeringRepository) CreateOffering(ctx context.Context, off catalog.Offering) (catalog.Offering, error) {
	off.SeatsTaken = 0
	q := repo.db.Rebind(`INSERT INTO offerings (
		id, subject_code, subject_name, credits, instructor, schedule, department, term,
		capacity, seats_taken, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`)
	_, err := repo.db.ExecContext(ctx, q,
		off.ID, off.SubjectCode, off.SubjectName, off.Credits, off.Instructor, off.Schedule, off.Department, off.Term,
		off.Capacity, off.CreatedAt, off.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return catalog.Offering{}, catalog.ErrOfferingExists
	}
	if err != nil {
		return catalog.Offering{}, errors.Wrap(err, "inserting offering")
	}
	return off, nil
}

func (repo *offeringRepository) ImportOfferings(ctx context.Context, offs []catalog.Offering) (created, updated int, err error) {
	err = inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		selectQ := tx.Rebind(`SELECT capacity FROM offerings WHERE id = ?`)
		insertQ := tx.Rebind(`INSERT INTO offerings (
			id, subject_code, subject_name, credits, instructor, schedule, department, term,
			capacity, seats_taken, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`)
		updateQ := tx.Rebind(`UPDATE offerings SET
			subject_code = ?, subject_name = ?, credits = ?, instructor = ?, schedule = ?, department = ?, term = ?,
			updated_at = ?
		WHERE id = ?`)

		for _, off := range offs {
			var capacity int
			err := tx.GetContext(ctx, &capacity, selectQ, off.ID)
			if errors.Is(err, sql.ErrNoRows) {
				if _, err = tx.ExecContext(ctx, insertQ,
					off.ID, off.SubjectCode, off.SubjectName, off.Credits, off.Instructor, off.Schedule,
					off.Department, off.Term, off.Capacity, off.CreatedAt, off.UpdatedAt,
				); err != nil {
					return errors.Wrapf(err, "inserting offering %s", off.ID)
				}
				created++
				continue
			}
			if err != nil {
				return errors.Wrapf(err, "selecting offering %s", off.ID)
			}

			if off.Capacity != capacity {
				return errors.WithMessagef(catalog.ErrCapacityFixed, "offering %s has a capacity of %d", off.ID, capacity)
			}
			if _, err = tx.ExecContext(ctx, updateQ,
				off.SubjectCode, off.SubjectName, off.Credits, off.Instructor, off.Schedule, off.Department, off.Term,
				off.UpdatedAt, off.ID,
			); err != nil {
				return errors.Wrapf(err, "updating offering %s", off.ID)
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return created, updated, nil
}

func (repo *offeringRepository) GetOffering(ctx context.Context, id string) (catalog.Offering, error) {
	return getOffering(ctx, repo.db, id)
}

func getOffering(ctx context.Context, q queryer, id string) (catalog.Offering, error) {
	var row offeringRow
	err := sqlx.GetContext(ctx, q, &row, q.Rebind(`SELECT `+offeringColumns+` FROM offerings WHERE id = ?`), id)
	if err != nil {
		return catalog.Offering{}, trapNoRowsErr(err, catalog.ErrNotFound)
	}
	return row.offering(), nil
}

func (repo *offeringRepository) QueryOfferings(
	ctx context.Context,
	filter *catalog.QueryFilter,
	ordering ...core.DBOrdering,
) ([]catalog.Offering, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter == nil {
		filter = new(catalog.QueryFilter)
	}
	if filter.Department != "" {
		where = append(where, "department = ?")
		args = append(args, filter.Department)
	}
	if filter.Instructor != "" {
		where = append(where, "instructor = ?")
		args = append(args, filter.Instructor)
	}
	if filter.Term != "" {
		where = append(where, "term = ?")
		args = append(args, filter.Term)
	}
	if filter.OnlyAvailable {
		where = append(where, "seats_taken < capacity")
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + offeringColumns + ` FROM offerings`)
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY " + orderBy(ordering))

	rows := make([]offeringRow, 0)
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(sb.String()), args...); err != nil {
		return nil, errors.Wrap(err, "selecting offerings")
	}

	// the search is matched here: LOWER and ILIKE fold case differently per driver
	offs := make([]catalog.Offering, 0, len(rows))
	for _, row := range rows {
		off := row.offering()
		if filter.Match(off) {
			offs = append(offs, off)
		}
	}
	return offs, nil
}

// orderBy renders ordering, keeping only known columns and ending with the id for a stable result.
func orderBy(ordering []core.DBOrdering) string {
	if len(ordering) == 0 {
		ordering = catalog.DefaultOrdering
	}
	allowed := make(map[string]bool, len(catalog.OrderingFields))
	for _, col := range catalog.OrderingFields {
		allowed[col] = true
	}

	terms := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		if allowed[ord.Field] {
			terms = append(terms, ord.String())
		}
	}
	terms = append(terms, "id ASC")
	return strings.Join(terms, ", ")
}
