package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/registrar/core"
	"github.com/trezcool/registrar/core/catalog"
	sqlxrepos "github.com/trezcool/registrar/storage/database/sqlx"
	testutil "github.com/trezcool/registrar/tests"
)

func TestOfferingRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t, testutil.NewConfig(t))
	repo := sqlxrepos.NewOfferingRepository(db)

	created := testutil.CreateOffering(t, repo, "MAT101", 6, 30, func(o *catalog.Offering) {
		o.SubjectName = "Calculus_I"
		o.SeatsTaken = 5 // ignored
	})
	assert.Equal(t, 0, created.SeatsTaken)

	_, err := repo.CreateOffering(ctx, created)
	assert.True(t, errors.Is(err, catalog.ErrOfferingExists), "CreateOffering() error = %v", err)

	got, err := repo.GetOffering(ctx, "MAT101")
	require.NoError(t, err)
	assert.Equal(t, "Calculus_I", got.SubjectName)
	assert.Equal(t, 30, got.Capacity)
	assert.WithinDuration(t, created.CreatedAt, got.CreatedAt, time.Millisecond)

	_, err = repo.GetOffering(ctx, "NOPE")
	assert.True(t, errors.Is(err, catalog.ErrNotFound), "GetOffering() error = %v", err)

	testutil.CreateOffering(t, repo, "PHY101", 4, 10, func(o *catalog.Offering) {
		o.SubjectName = "Calculus for physicists"
		o.Department = "Physics"
	})

	tests := []struct {
		name     string
		filter   *catalog.QueryFilter
		ordering []core.DBOrdering
		want     []string
	}{
		{name: "all", want: []string{"MAT101", "PHY101"}},
		{name: "search", filter: &catalog.QueryFilter{Search: "CALCULUS", SearchBy: catalog.SearchBySubjectName}, want: []string{"MAT101", "PHY101"}},
		{name: "underscore is literal", filter: &catalog.QueryFilter{Search: "_", SearchBy: catalog.SearchBySubjectName}, want: []string{"MAT101"}},
		{name: "department", filter: &catalog.QueryFilter{Department: "Physics"}, want: []string{"PHY101"}},
		{name: "ordering", ordering: []core.DBOrdering{{Field: "credits", Ascending: true}}, want: []string{"PHY101", "MAT101"}},
		{name: "unknown ordering is ignored", ordering: []core.DBOrdering{{Field: "1; DROP TABLE offerings"}}, want: []string{"MAT101", "PHY101"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offs, err := repo.QueryOfferings(ctx, tt.filter, tt.ordering...)
			require.NoError(t, err)
			got := make([]string, 0, len(offs))
			for _, off := range offs {
				got = append(got, off.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	testutil.CreateOffering(t, repo, "MAT201", 6, 30, func(o *catalog.Offering) { o.SubjectName = "Álgebra Lineal" })
	for _, search := range []string{"ÁLGEBRA", "álgebra", "lineal"} {
		offs, err := repo.QueryOfferings(ctx, &catalog.QueryFilter{Search: search, SearchBy: catalog.SearchBySubjectName})
		require.NoError(t, err)
		if assert.Len(t, offs, 1, "QueryOfferings(%q)", search) {
			assert.Equal(t, "MAT201", offs[0].ID)
		}
	}
}

func TestOfferingRepository_ImportOfferings(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t, testutil.NewConfig(t))
	repo := sqlxrepos.NewOfferingRepository(db)

	testutil.CreateOffering(t, repo, "MAT101", 6, 30)
	_, err := db.Exec(`UPDATE offerings SET seats_taken = 10 WHERE id = 'MAT101'`)
	require.NoError(t, err)

	now := time.Now().UTC()
	mat := catalog.Offering{ID: "MAT101", SubjectCode: "MAT101", SubjectName: "Calculus I", Credits: 8, Term: "2025-2", Capacity: 30, UpdatedAt: now}
	phy := catalog.Offering{ID: "PHY101", SubjectCode: "PHY101", SubjectName: "Physics I", Credits: 4, Term: "2025-2", Capacity: 5, CreatedAt: now, UpdatedAt: now}

	created, updated, err := repo.ImportOfferings(ctx, []catalog.Offering{mat, phy})
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, updated)

	got, err := repo.GetOffering(ctx, "MAT101")
	require.NoError(t, err)
	assert.Equal(t, 8, got.Credits)
	assert.Equal(t, 30, got.Capacity)
	assert.Equal(t, 10, got.SeatsTaken)

	// capacity is fixed, rolled back as a whole
	mat.Capacity = 31
	other := phy
	other.ID = "CHE101"
	_, _, err = repo.ImportOfferings(ctx, []catalog.Offering{other, mat})
	assert.True(t, errors.Is(err, catalog.ErrCapacityFixed), "ImportOfferings() error = %v", err)
	_, err = repo.GetOffering(ctx, "CHE101")
	assert.True(t, errors.Is(err, catalog.ErrNotFound), "GetOffering() error = %v", err)
	got, err = repo.GetOffering(ctx, "MAT101")
	require.NoError(t, err)
	assert.Equal(t, 30, got.Capacity)
}
