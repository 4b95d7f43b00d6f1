package catalog_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/registrar/core"
	"github.com/trezcool/registrar/core/catalog"
	inmemdb "github.com/trezcool/registrar/storage/database/inmem"
	testutil "github.com/trezcool/registrar/tests"
)

func newService(t *testing.T) (catalog.Service, *inmemdb.DB) {
	t.Helper()
	db := inmemdb.Open()
	validate, _ := core.NewValidator()
	return catalog.NewService(inmemdb.NewOfferingRepository(db), validate, testutil.NewLogger()), db
}

func newOffering(id string, capacity int) catalog.NewOffering {
	return catalog.NewOffering{
		ID:          id,
		SubjectCode: id,
		SubjectName: "Subject " + id,
		Credits:     5,
		Department:  "Mathematics",
		Term:        "2025-1",
		Capacity:    capacity,
	}
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	off, err := svc.Create(ctx, newOffering("MAT101", 30))
	require.NoError(t, err)
	assert.Equal(t, 0, off.SeatsTaken)
	assert.Equal(t, 30, off.SeatsAvailable())
	assert.False(t, off.CreatedAt.IsZero())

	_, err = svc.Create(ctx, newOffering("MAT101", 10))
	var verr *core.ValidationError
	if assert.True(t, errors.As(err, &verr), "Create() error = %v", err) {
		assert.Equal(t, "id", verr.Fields[0].Field)
		assert.True(t, errors.Is(err, catalog.ErrOfferingExists))
	}

	_, err = svc.Create(ctx, newOffering("", 10))
	var verrs validator.ValidationErrors
	assert.True(t, errors.As(err, &verrs), "Create() error = %v", err)

	got, err := svc.GetByID(ctx, " MAT101 ")
	require.NoError(t, err)
	assert.Equal(t, 30, got.Capacity)

	_, err = svc.GetByID(ctx, "MAT999")
	assert.True(t, errors.Is(err, catalog.ErrNotFound), "GetByID() error = %v", err)
}

func TestService_Import(t *testing.T) {
	ctx := context.Background()
	svc, db := newService(t)

	_, err := svc.Create(ctx, newOffering("MAT101", 30))
	require.NoError(t, err)
	db.SetSeatsTaken("MAT101", 12)

	updated := newOffering("MAT101", 30)
	updated.Instructor = "Prof. Ada"
	res, err := svc.Import(ctx, []catalog.NewOffering{updated, newOffering("PHY101", 20)})
	require.NoError(t, err)
	assert.Equal(t, catalog.ImportResult{Created: 1, Updated: 1}, res)

	off, err := svc.GetByID(ctx, "MAT101")
	require.NoError(t, err)
	assert.Equal(t, 30, off.Capacity)
	assert.Equal(t, "Prof. Ada", off.Instructor)
	assert.Equal(t, 12, off.SeatsTaken, "Import() must not touch the seats taken")

	tests := []struct {
		name      string
		offerings []catalog.NewOffering
		wantField string
	}{
		{name: "capacity lowered", offerings: []catalog.NewOffering{newOffering("MAT101", 11)}, wantField: "capacity"},
		{name: "capacity raised", offerings: []catalog.NewOffering{newOffering("MAT101", 40)}, wantField: "capacity"},
		{name: "duplicate ids", offerings: []catalog.NewOffering{newOffering("X1", 1), newOffering("X1", 2)}, wantField: "id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Import(ctx, tt.offerings)
			var verr *core.ValidationError
			if assert.True(t, errors.As(err, &verr), "Import() error = %v", err) {
				assert.Equal(t, tt.wantField, verr.Fields[0].Field)
			}
		})
	}

	// all or nothing
	_, err = svc.Import(ctx, []catalog.NewOffering{newOffering("NEW1", 5), newOffering("MAT101", 1)})
	assert.Error(t, err)
	_, err = svc.GetByID(ctx, "NEW1")
	assert.True(t, errors.Is(err, catalog.ErrNotFound), "GetByID() error = %v", err)
	off, err = svc.GetByID(ctx, "MAT101")
	require.NoError(t, err)
	assert.Equal(t, 30, off.Capacity)

	// invalid entries are reported with their position
	bad := newOffering("BAD", 5)
	bad.Credits = 0
	_, err = svc.Import(ctx, []catalog.NewOffering{newOffering("OK1", 5), bad})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "offering #2 (BAD)")
	}
}

func TestService_Query(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	for _, no := range []catalog.NewOffering{newOffering("B2", 10), newOffering("A1", 30), newOffering("C3", 20)} {
		_, err := svc.Create(ctx, no)
		require.NoError(t, err)
	}

	tests := []struct {
		name     string
		ordering []core.DBOrdering
		want     []string
	}{
		{name: "default", want: []string{"A1", "B2", "C3"}},
		{name: "capacity desc", ordering: []core.DBOrdering{{Field: "capacity"}}, want: []string{"A1", "C3", "B2"}},
		{name: "seats available asc", ordering: []core.DBOrdering{{Field: "seats_available", Ascending: true}}, want: []string{"B2", "C3", "A1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offs, err := svc.Query(ctx, nil, tt.ordering...)
			require.NoError(t, err)
			got := make([]string, 0, len(offs))
			for _, off := range offs {
				got = append(got, off.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_Suggest(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	for _, id := range []string{"MAT101-2025-1", "MAT102-2025-1", "PHY101-2025-1"} {
		_, err := svc.Create(ctx, newOffering(id, 10))
		require.NoError(t, err)
	}

	tests := []struct {
		name  string
		query string
		n     int
		want  []string
	}{
		{name: "close match first", query: "mat101-2025-1x", n: 2, want: []string{"MAT101-2025-1", "MAT102-2025-1"}},
		{name: "limit", query: "mat101-2025-1x", n: 1, want: []string{"MAT101-2025-1"}},
		{name: "nothing similar", query: "zzz", n: 3, want: []string{}},
		{name: "blank", query: " ", n: 3, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Suggest(ctx, tt.query, tt.n)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
