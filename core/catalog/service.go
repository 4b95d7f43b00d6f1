package catalog

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/registrar/core"
)

var (
	// errors
	ErrNotFound       = errors.New("offering not found")
	ErrOfferingExists = errors.New("an offering with this id already exists")
	ErrCapacityFixed  = errors.New("capacity is fixed at offering creation")
)

// minimum similarity ratio for an offering to be suggested
const suggestionCutoff = 0.6

type (
	Repository interface {
		CreateOffering(ctx context.Context, off Offering) (Offering, error)
		// ImportOfferings creates new offerings and updates the descriptive fields of existing ones, all or nothing.
		// Capacity and SeatsTaken of an existing offering are never changed: a different capacity fails
		// with ErrCapacityFixed.
		ImportOfferings(ctx context.Context, offs []Offering) (created, updated int, err error)
		GetOffering(ctx context.Context, id string) (Offering, error)
		// QueryOfferings applies AND operation on available QueryFilter fields.
		// An empty ordering falls back to DefaultOrdering.
		QueryOfferings(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Offering, error)
	}

	Service interface {
		Create(ctx context.Context, no NewOffering) (Offering, error)
		Import(ctx context.Context, nos []NewOffering) (ImportResult, error)
		GetByID(ctx context.Context, id string) (Offering, error)
		Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Offering, error)
		// Suggest returns up to n offering IDs resembling query, most similar first.
		Suggest(ctx context.Context, query string, n int) ([]string, error)
	}

	ImportResult struct {
		Created int `json:"created"`
		Updated int `json:"updated"`
	}

	service struct {
		repo     Repository
		validate *validator.Validate
		logger   core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, validate *validator.Validate, logger core.Logger) Service {
	return &service{repo: repo, validate: validate, logger: logger}
}

func (svc *service) Create(ctx context.Context, no NewOffering) (Offering, error) {
	if err := no.Validate(svc.validate); err != nil {
		return Offering{}, err
	}
	off, err := svc.repo.CreateOffering(ctx, no.offering(time.Now().UTC()))
	if errors.Is(err, ErrOfferingExists) {
		return Offering{}, core.NewValidationError(err, core.FieldError{Field: "id", Error: err.Error()})
	}
	if err != nil {
		return Offering{}, errors.Wrap(err, "creating offering")
	}
	svc.logger.Info("offering created", map[string]interface{}{"offering_id": off.ID, "capacity": off.Capacity})
	return off, nil
}

func (svc *service) Import(ctx context.Context, nos []NewOffering) (ImportResult, error) {
	now := time.Now().UTC()
	seen := make(map[string]int, len(nos))
	offs := make([]Offering, 0, len(nos))
	for i := range nos {
		if err := nos[i].Validate(svc.validate); err != nil {
			return ImportResult{}, errors.Wrapf(err, "offering #%d (%s)", i+1, nos[i].ID)
		}
		if j, ok := seen[nos[i].ID]; ok {
			err := core.NewValidationError(
				errors.Errorf("offering #%d duplicates offering #%d", i+1, j+1),
				core.FieldError{Field: "id", Error: ErrOfferingExists.Error()},
			)
			return ImportResult{}, err
		}
		seen[nos[i].ID] = i
		offs = append(offs, nos[i].offering(now))
	}

	created, updated, err := svc.repo.ImportOfferings(ctx, offs)
	if errors.Is(err, ErrCapacityFixed) {
		return ImportResult{}, core.NewValidationError(err, core.FieldError{Field: "capacity", Error: ErrCapacityFixed.Error()})
	}
	if err != nil {
		return ImportResult{}, errors.Wrap(err, "importing offerings")
	}
	svc.logger.Info("catalog imported", map[string]interface{}{"created": created, "updated": updated})
	return ImportResult{Created: created, Updated: updated}, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Offering, error) {
	return svc.repo.GetOffering(ctx, core.CleanString(id))
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Offering, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	filter.Clean()
	return svc.repo.QueryOfferings(ctx, filter, ordering...)
}

func (svc *service) Suggest(ctx context.Context, query string, n int) ([]string, error) {
	query = core.CleanString(query, true /* lower */)
	if query == "" || n <= 0 {
		return nil, nil
	}
	offs, err := svc.repo.QueryOfferings(ctx, new(QueryFilter))
	if err != nil {
		return nil, errors.Wrap(err, "querying offerings")
	}

	type candidate struct {
		id    string
		score float64
	}
	queryChars := strings.Split(query, "")
	matcher := difflib.NewMatcher(nil, queryChars) // the matcher caches details about its 2nd sequence
	candidates := make([]candidate, 0)
	for _, off := range offs {
		var best float64
		for _, s := range []string{off.ID, off.SubjectCode} {
			matcher.SetSeq1(strings.Split(strings.ToLower(s), ""))
			if ratio := matcher.Ratio(); ratio > best {
				best = ratio
			}
		}
		if best >= suggestionCutoff {
			candidates = append(candidates, candidate{id: off.ID, score: best})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.id)
	}
	return ids, nil
}
