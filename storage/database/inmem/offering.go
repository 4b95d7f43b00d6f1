package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/registrar/core"
	"github.com/trezcool/registrar/core/catalog"
)

type offeringRepository struct {
	db *DB
}

func NewOfferingRepository(db *DB) catalog.Repository {
	return &offeringRepository{db: db}
}

func (repo *offeringRepository) CreateOffering(_ context.Context, off catalog.Offering) (catalog.Offering, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.offerings[off.ID]; ok {
		return catalog.Offering{}, catalog.ErrOfferingExists
	}
	off.SeatsTaken = 0
	repo.db.offerings[off.ID] = &off
	return off, nil
}

func (repo *offeringRepository) ImportOfferings(_ context.Context, offs []catalog.Offering) (created, updated int, err error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	// check everything before writing anything
	for _, off := range offs {
		if orig, ok := repo.db.offerings[off.ID]; ok && off.Capacity != orig.Capacity {
			return 0, 0, errors.WithMessagef(catalog.ErrCapacityFixed, "offering %s has a capacity of %d", off.ID, orig.Capacity)
		}
	}

	for _, off := range offs {
		orig, ok := repo.db.offerings[off.ID]
		if !ok {
			off := off
			off.SeatsTaken = 0
			repo.db.offerings[off.ID] = &off
			created++
			continue
		}
		orig.SubjectCode = off.SubjectCode
		orig.SubjectName = off.SubjectName
		orig.Credits = off.Credits
		orig.Instructor = off.Instructor
		orig.Schedule = off.Schedule
		orig.Department = off.Department
		orig.Term = off.Term
		orig.UpdatedAt = off.UpdatedAt
		updated++
	}
	return created, updated, nil
}

func (repo *offeringRepository) GetOffering(_ context.Context, id string) (catalog.Offering, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if off, ok := repo.db.offerings[id]; ok {
		return *off, nil
	}
	return catalog.Offering{}, catalog.ErrNotFound
}

func (repo *offeringRepository) QueryOfferings(
	_ context.Context,
	filter *catalog.QueryFilter,
	ordering ...core.DBOrdering,
) ([]catalog.Offering, error) {
	repo.db.mutex.RLock()
	offs := make([]catalog.Offering, 0, len(repo.db.offerings))
	for _, off := range repo.db.offerings {
		offs = append(offs, *off)
	}
	repo.db.mutex.RUnlock()

	// the predicate runs outside of the lock: it is caller code
	filtered := offs[:0]
	for _, off := range offs {
		if filter.Match(off) {
			filtered = append(filtered, off)
		}
	}

	if len(ordering) == 0 {
		ordering = catalog.DefaultOrdering
	}
	sortOfferings(filtered, ordering)
	return filtered, nil
}

func compareOfferings(a, b catalog.Offering, field string) int {
	cmpInt := func(x, y int) int {
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	switch field {
	case "id":
		return strings.Compare(a.ID, b.ID)
	case "subject_code":
		return strings.Compare(a.SubjectCode, b.SubjectCode)
	case "subject_name":
		return strings.Compare(a.SubjectName, b.SubjectName)
	case "credits":
		return cmpInt(a.Credits, b.Credits)
	case "instructor":
		return strings.Compare(a.Instructor, b.Instructor)
	case "department":
		return strings.Compare(a.Department, b.Department)
	case "term":
		return strings.Compare(a.Term, b.Term)
	case "capacity":
		return cmpInt(a.Capacity, b.Capacity)
	case "seats_available":
		return cmpInt(a.SeatsAvailable(), b.SeatsAvailable())
	}
	return 0
}

// sortOfferings sorts by ordering, then by id for a stable result.
func sortOfferings(offs []catalog.Offering, ordering []core.DBOrdering) {
	sort.SliceStable(offs, func(i, j int) bool {
		for _, ord := range ordering {
			c := compareOfferings(offs[i], offs[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return offs[i].ID < offs[j].ID
	})
}
