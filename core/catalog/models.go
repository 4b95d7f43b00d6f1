package catalog

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/registrar/core"
)

// Offering is a scheduled instance of a subject for a given term, with a finite number of seats.
// The catalog owns every field but SeatsTaken, which only the enrollment ledger changes.
type Offering struct {
	ID          string    `json:"id"`
	SubjectCode string    `json:"subject_code"`
	SubjectName string    `json:"subject_name"`
	Credits     int       `json:"credits"`
	Instructor  string    `json:"instructor"`
	Schedule    string    `json:"schedule"`
	Department  string    `json:"department"`
	Term        string    `json:"term"`
	Capacity    int       `json:"capacity"`
	SeatsTaken  int       `json:"seats_taken"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

func (o Offering) SeatsAvailable() int {
	return o.Capacity - o.SeatsTaken
}

func (o Offering) MarshalJSON() ([]byte, error) {
	type offering Offering
	return json.Marshal(struct {
		offering
		SeatsAvailable int `json:"seats_available"`
	}{offering(o), o.SeatsAvailable()})
}

// NewOffering contains information needed to create a new Offering.
type NewOffering struct {
	ID          string `json:"id" yaml:"id" validate:"required,max=64,identifier"`
	SubjectCode string `json:"subject_code" yaml:"subject_code" validate:"required,max=32,identifier"`
	SubjectName string `json:"subject_name" yaml:"subject_name" validate:"required,notblank,max=255"`
	Credits     int    `json:"credits" yaml:"credits" validate:"min=1,max=60"`
	Instructor  string `json:"instructor" yaml:"instructor" validate:"max=255"`
	Schedule    string `json:"schedule" yaml:"schedule" validate:"max=255"`
	Department  string `json:"department" yaml:"department" validate:"max=255"`
	Term        string `json:"term" yaml:"term" validate:"required,max=32"`
	Capacity    int    `json:"capacity" yaml:"capacity" validate:"min=0"`
}

func (no *NewOffering) Clean() {
	no.ID = core.CleanString(no.ID)
	no.SubjectCode = core.CleanString(no.SubjectCode)
	no.SubjectName = core.CleanString(no.SubjectName)
	no.Instructor = core.CleanString(no.Instructor)
	no.Schedule = core.CleanString(no.Schedule)
	no.Department = core.CleanString(no.Department)
	no.Term = core.CleanString(no.Term)
}

func (no *NewOffering) Validate(validate *validator.Validate) error {
	no.Clean()
	return validate.Struct(no)
}

func (no NewOffering) offering(now time.Time) Offering {
	return Offering{
		ID:          no.ID,
		SubjectCode: no.SubjectCode,
		SubjectName: no.SubjectName,
		Credits:     no.Credits,
		Instructor:  no.Instructor,
		Schedule:    no.Schedule,
		Department:  no.Department,
		Term:        no.Term,
		Capacity:    no.Capacity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Search fields
const (
	SearchBySubjectName = "subject_name"
	SearchBySubjectCode = "subject_code"
	SearchByInstructor  = "instructor"
	SearchByDepartment  = "department"
	SearchByTerm        = "term"
)

// OrderingFields maps the API ordering fields to their columns.
var OrderingFields = map[string]string{
	"id":              "id",
	"subject_code":    "subject_code",
	"subject_name":    "subject_name",
	"credits":         "credits",
	"instructor":      "instructor",
	"department":      "department",
	"term":            "term",
	"capacity":        "capacity",
	"seats_available": "seats_available",
}

// DefaultOrdering gives a stable order to offerings listings.
var DefaultOrdering = []core.DBOrdering{
	{Field: "subject_code", Ascending: true},
	{Field: "id", Ascending: true},
}

type QueryFilter struct {
	// Search does a case-insensitive substring match on the SearchBy field (subject name by default).
	Search     string `query:"search"`
	SearchBy   string `query:"search_by"`
	Department string `query:"department"`
	Instructor string `query:"instructor"`
	Term       string `query:"term"`

	// OnlyAvailable keeps offerings with at least one free seat.
	OnlyAvailable bool `query:"-"`

	// Predicate is applied last, on top of the other criteria. In-process callers only.
	Predicate func(Offering) bool `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.SearchBy = core.CleanString(qf.SearchBy, true /* lower */)
	qf.Department = core.CleanString(qf.Department)
	qf.Instructor = core.CleanString(qf.Instructor)
	qf.Term = core.CleanString(qf.Term)
	switch qf.SearchBy {
	case SearchBySubjectCode, SearchByInstructor, SearchByDepartment, SearchByTerm:
	default:
		qf.SearchBy = SearchBySubjectName
	}
}

// SearchValue returns the value of o the Search criteria applies to.
func (qf *QueryFilter) SearchValue(o Offering) string {
	switch qf.SearchBy {
	case SearchBySubjectCode:
		return o.SubjectCode
	case SearchByInstructor:
		return o.Instructor
	case SearchByDepartment:
		return o.Department
	case SearchByTerm:
		return o.Term
	default:
		return o.SubjectName
	}
}

// Match applies every criteria of the filter, Predicate included, to o.
func (qf *QueryFilter) Match(o Offering) bool {
	if qf == nil {
		return true
	}
	if qf.Search != "" && !core.ContainsFold(qf.SearchValue(o), qf.Search) {
		return false
	}
	if qf.Department != "" && o.Department != qf.Department {
		return false
	}
	if qf.Instructor != "" && o.Instructor != qf.Instructor {
		return false
	}
	if qf.Term != "" && o.Term != qf.Term {
		return false
	}
	if qf.OnlyAvailable && o.SeatsAvailable() <= 0 {
		return false
	}
	if qf.Predicate != nil && !qf.Predicate(o) {
		return false
	}
	return true
}
