package enrollment

import (
	"time"

	"github.com/trezcool/registrar/core/catalog"
)

// Status of an enrollment. Only active enrollments hold a seat; completed ones are immutable.
type Status string

const (
	StatusActive Status = "active"
	StatusPassed Status = "passed"
	StatusFailed Status = "failed"
)

func (s Status) IsCompleted() bool {
	return s == StatusPassed || s == StatusFailed
}

// Enrollment links one student to one offering.
// Display fields are copied from the offering at enrollment time.
type Enrollment struct {
	ID         string     `json:"id"`
	StudentID  string     `json:"student_id"`
	OfferingID string     `json:"offering_id"`
	Status     Status     `json:"status"`
	EnrolledAt time.Time  `json:"enrolled_at"` // UTC
	EnrolledBy string     `json:"enrolled_by"`
	Grade      *float64   `json:"grade,omitempty"`
	GradedAt   *time.Time `json:"graded_at,omitempty"` // UTC

	SubjectCode string `json:"subject_code"`
	SubjectName string `json:"subject_name"`
	Credits     int    `json:"credits"`
	Instructor  string `json:"instructor"`
	Schedule    string `json:"schedule"`
	Term        string `json:"term"`
}

// CopyDisplayFields copies the offering fields rendered along with the enrollment.
func (enr *Enrollment) CopyDisplayFields(off catalog.Offering) {
	enr.SubjectCode = off.SubjectCode
	enr.SubjectName = off.SubjectName
	enr.Credits = off.Credits
	enr.Instructor = off.Instructor
	enr.Schedule = off.Schedule
	enr.Term = off.Term
}

func (enr Enrollment) IsActive() bool {
	return enr.Status == StatusActive
}

// Summary holds a student's dashboard counters.
type Summary struct {
	StudentID          string `json:"student_id"`
	AvailableOfferings int    `json:"available_offerings"`
	ActiveEnrollments  int    `json:"active_enrollments"`
	TotalCredits       int    `json:"total_credits"`
}
