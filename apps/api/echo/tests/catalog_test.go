package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/registrar/core/catalog"
	"github.com/trezcool/registrar/tests"
)

func (e *env) offering(t *testing.T, id string) catalog.Offering {
	t.Helper()
	off, err := e.offRepo.GetOffering(context.Background(), id)
	require.NoError(t, err)
	return off
}

func Test_catalogApi_offeringQuery(t *testing.T) {
	e := setup(t)

	path := func(base, search, searchBy, department, ordering string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if searchBy != "" {
			v.Add("search_by", searchBy)
		}
		if department != "" {
			v.Add("department", department)
		}
		if ordering != "" {
			v.Add("ordering", ordering)
		}
		if len(v) == 0 {
			return base
		}
		return base + "?" + v.Encode()
	}
	physics := func(o *catalog.Offering) {
		o.SubjectName = "Quantum Physics"
		o.Department = "Physics"
	}

	testutil.CreateOffering(t, e.offRepo, "MAT101", 5, 2)
	testutil.CreateOffering(t, e.offRepo, "PHY205", 3, 1, physics)
	testutil.CreateOffering(t, e.offRepo, "CHE330", 4, 10)
	require.True(t, e.db.SetSeatsTaken("PHY205", 1)) // full

	mat, phy, che := e.offering(t, "MAT101"), e.offering(t, "PHY205"), e.offering(t, "CHE330")
	studentToken := getToken(t, e.conf, e.student)
	all, available := "/v1/offerings", "/v1/offerings/available"

	tests := []httpTest{
		{name: "Auth required", path: all, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Get all", path: all, token: studentToken, wantData: marchallList(t, che, mat, phy)},
		{name: "search (unknown)", path: path(all, "lol", "", "", ""), token: studentToken, wantData: marchallList(t)},
		{name: "search=quantum", path: path(all, "quantum", "", "", ""), token: studentToken, wantData: marchallList(t, phy)},
		{name: "search=mat&search_by=subject_code", path: path(all, "mat", "subject_code", "", ""), token: studentToken, wantData: marchallList(t, mat)},
		{name: "department=Physics", path: path(all, "", "", "Physics", ""), token: studentToken, wantData: marchallList(t, phy)},
		{name: "order by -credits", path: path(all, "", "", "", "-credits"), token: studentToken, wantData: marchallList(t, mat, che, phy)},
		{name: "order by unknown field", path: path(all, "", "", "", "lol"), token: studentToken, wantData: marchallList(t, che, mat, phy)},
		// available
		{name: "Available: auth required", path: available, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Available: full offerings excluded", path: available, token: studentToken, wantData: marchallList(t, che, mat)},
		{name: "Available: department=Physics", path: path(available, "", "", "Physics", ""), token: studentToken, wantData: marchallList(t)},
		{name: "Available: search=subject", path: path(available, "subject", "", "", ""), token: studentToken, wantData: marchallList(t, che, mat)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, e.serve(tt))
		})
	}
}

func Test_catalogApi_offeringRetrieve(t *testing.T) {
	e := setup(t)

	mat := testutil.CreateOffering(t, e.offRepo, "MAT101", 5, 2)
	testutil.CreateOffering(t, e.offRepo, "PHY205", 3, 1)
	studentToken := getToken(t, e.conf, e.student)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/offerings/MAT101", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Found", path: "/v1/offerings/MAT101", token: studentToken, wantCode: http.StatusOK, wantData: marchallObj(t, mat)},
		{
			name: "Not found, with suggestions", path: "/v1/offerings/MAT10", token: studentToken, wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpNotFound{Error: catalog.ErrNotFound.Error(), Suggestions: []string{"MAT101"}}),
		},
		{
			name: "Not found, nothing alike", path: "/v1/offerings/zzz", token: studentToken, wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpNotFound{Error: catalog.ErrNotFound.Error(), Suggestions: []string{}}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, e.serve(tt))
		})
	}
}

func Test_catalogApi_offeringCreate(t *testing.T) {
	e := setup(t)

	testutil.CreateOffering(t, e.offRepo, "MAT101", 5, 2)
	reqMsg := "this field is required"
	valid := catalog.NewOffering{
		ID:          "PHY205",
		SubjectCode: "PHY205",
		SubjectName: "Quantum Physics",
		Credits:     3,
		Instructor:  "Prof. Bohr",
		Department:  "Physics",
		Term:        "2025-1",
		Capacity:    30,
	}
	duplicate := valid
	duplicate.ID = "MAT101"

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", token: getToken(t, e.conf, e.student), body: marchallObj(t, valid),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "required fields", token: e.adminToken, body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"id":           reqMsg,
				"subject_code": reqMsg,
				"subject_name": reqMsg,
				"credits":      "credits must be 1 or greater",
				"term":         reqMsg,
			}),
		},
		{
			name: "invalid id", token: e.adminToken, body: []byte(`{"id": "PHY 205", "subject_code": "PHY205", "subject_name": "Physics", "credits": 3, "term": "2025-1"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"id": "only letters, digits, dashes, dots and underscores are allowed"}),
		},
		{
			name: "duplicate id", token: e.adminToken, body: marchallObj(t, duplicate),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"id": catalog.ErrOfferingExists.Error()}),
		},
		{name: "created", token: e.adminToken, body: marchallObj(t, valid), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/offerings"

		t.Run(tt.name, func(t *testing.T) {
			rec := e.serve(tt)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusCreated {
				var got catalog.Offering
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
				require.Equal(t, valid.ID, got.ID)
				require.Equal(t, valid.Capacity, got.Capacity)
				require.Zero(t, got.SeatsTaken)
				require.Equal(t, valid.SubjectName, e.offering(t, valid.ID).SubjectName)
			}
		})
	}
}
