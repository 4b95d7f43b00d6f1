package enrollment

import (
	"context"
	"math"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/registrar/core"
	"github.com/trezcool/registrar/core/catalog"
	"github.com/trezcool/registrar/core/session"
)

var (
	// errors
	ErrNotFound           = errors.New("not found")
	ErrOfferingNotFound   = errors.WithMessage(ErrNotFound, "offering")
	ErrEnrollmentNotFound = errors.WithMessage(ErrNotFound, "enrollment")
	ErrAlreadyEnrolled    = errors.New("the student is already enrolled in this offering")
	ErrCapacityExceeded   = errors.New("no seats left in this offering")
	ErrImmutable          = errors.New("the enrollment is graded and cannot be changed")
	// ErrInconsistent means a seat count would go below zero: the ledger state was corrupted earlier.
	ErrInconsistent = errors.New("ledger inconsistency: seat count would go negative")
)

// Grade scale
const (
	MinGrade = 0.0
	MaxGrade = 10.0
)

// Email templates
const (
	tmplEnrollmentConfirmed = "enrollment_confirmed"
	tmplEnrollmentDropped   = "enrollment_dropped"
)

type (
	// Repository is the persistence boundary of the ledger.
	// Every mutation is atomic with respect to the offering seat count.
	Repository interface {
		// CreateEnrollment checks, in this order, that the offering exists (ErrOfferingNotFound), that the student
		// has no active enrollment in it (ErrAlreadyEnrolled) and that a seat is left (ErrCapacityExceeded).
		// It then stores enr with the offering display fields and takes one seat.
		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		// DeleteEnrollment removes an active enrollment and releases its seat.
		// Fails with ErrEnrollmentNotFound, ErrImmutable or ErrInconsistent, changing nothing.
		DeleteEnrollment(ctx context.Context, id string) (Enrollment, error)
		// GradeEnrollment completes an active enrollment and releases its seat; same failures as DeleteEnrollment.
		GradeEnrollment(ctx context.Context, id string, grade float64, status Status, gradedAt time.Time) (Enrollment, error)
		GetEnrollment(ctx context.Context, id string) (Enrollment, error)
		// QueryEnrollments returns the enrollments of studentID having one of statuses (any when empty),
		// in insertion order.
		QueryEnrollments(ctx context.Context, studentID string, statuses ...Status) ([]Enrollment, error)
	}

	Service interface {
		Enroll(ctx context.Context, actor session.Session, studentID, offeringID string) (Enrollment, error)
		Unenroll(ctx context.Context, actor session.Session, enrollmentID string) (Enrollment, error)
		PostGrade(ctx context.Context, actor session.Session, enrollmentID string, grade float64) (Enrollment, error)
		GetByID(ctx context.Context, enrollmentID string) (Enrollment, error)
		// ListAvailable returns the offerings with seats left, narrowed by filter (may be nil).
		ListAvailable(ctx context.Context, filter *catalog.QueryFilter) ([]catalog.Offering, error)
		// ListEnrollments returns the active enrollments of studentID, most recent last.
		ListEnrollments(ctx context.Context, studentID string) ([]Enrollment, error)
		TotalCredits(ctx context.Context, studentID string) (int, error)
		Transcript(ctx context.Context, studentID string) (Transcript, error)
		Summary(ctx context.Context, studentID string) (Summary, error)
	}

	service struct {
		repo       Repository
		catalogSvc catalog.Service
		mailSvc    core.EmailService
		logger     core.Logger
		conf       *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	catalogSvc catalog.Service,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
) Service {
	return &service{
		repo:       repo,
		catalogSvc: catalogSvc,
		mailSvc:    mailSvc,
		logger:     logger,
		conf:       conf,
	}
}

func requiredField(field string) error {
	return core.NewValidationError(nil, core.FieldError{Field: field, Error: "this field is required"})
}

func (svc *service) Enroll(ctx context.Context, actor session.Session, studentID, offeringID string) (Enrollment, error) {
	studentID = core.CleanString(studentID)
	offeringID = core.CleanString(offeringID)
	if studentID == "" {
		return Enrollment{}, requiredField("student_id")
	}
	if offeringID == "" {
		return Enrollment{}, requiredField("offering_id")
	}

	enr, err := svc.repo.CreateEnrollment(ctx, Enrollment{
		ID:         uuid.New().String(),
		StudentID:  studentID,
		OfferingID: offeringID,
		Status:     StatusActive,
		EnrolledAt: time.Now().UTC(),
		EnrolledBy: actor.UserID,
	})
	if err != nil {
		return Enrollment{}, err
	}

	svc.logger.Info("student enrolled", actor, map[string]interface{}{
		"enrollment_id": enr.ID,
		"student_id":    enr.StudentID,
		"offering_id":   enr.OfferingID,
	})
	svc.notify(actor, enr, tmplEnrollmentConfirmed, "Enrollment confirmed: "+enr.SubjectName)
	return enr, nil
}

func (svc *service) Unenroll(ctx context.Context, actor session.Session, enrollmentID string) (Enrollment, error) {
	enr, err := svc.repo.DeleteEnrollment(ctx, core.CleanString(enrollmentID))
	if err != nil {
		if errors.Is(err, ErrInconsistent) {
			svc.logger.Error("unenroll failed", err, actor, map[string]interface{}{"enrollment_id": enrollmentID})
		}
		return Enrollment{}, err
	}

	svc.logger.Info("student unenrolled", actor, map[string]interface{}{
		"enrollment_id": enr.ID,
		"student_id":    enr.StudentID,
		"offering_id":   enr.OfferingID,
	})
	svc.notify(actor, enr, tmplEnrollmentDropped, "Enrollment dropped: "+enr.SubjectName)
	return enr, nil
}

func (svc *service) PostGrade(ctx context.Context, actor session.Session, enrollmentID string, grade float64) (Enrollment, error) {
	if math.IsNaN(grade) || grade < MinGrade || grade > MaxGrade {
		return Enrollment{}, core.NewValidationError(nil, core.FieldError{
			Field: "grade",
			Error: "grade must be between 0 and 10",
		})
	}

	status := StatusFailed
	if grade >= svc.conf.Ledger.PassingGrade {
		status = StatusPassed
	}
	enr, err := svc.repo.GradeEnrollment(ctx, core.CleanString(enrollmentID), grade, status, time.Now().UTC())
	if err != nil {
		if errors.Is(err, ErrInconsistent) {
			svc.logger.Error("grade posting failed", err, actor, map[string]interface{}{"enrollment_id": enrollmentID})
		}
		return Enrollment{}, err
	}

	svc.logger.Info("grade posted", actor, map[string]interface{}{
		"enrollment_id": enr.ID,
		"student_id":    enr.StudentID,
		"status":        string(enr.Status),
	})
	return enr, nil
}

func (svc *service) GetByID(ctx context.Context, enrollmentID string) (Enrollment, error) {
	return svc.repo.GetEnrollment(ctx, core.CleanString(enrollmentID))
}

func (svc *service) ListAvailable(ctx context.Context, filter *catalog.QueryFilter) ([]catalog.Offering, error) {
	qf := catalog.QueryFilter{}
	if filter != nil {
		qf = *filter
	}
	qf.OnlyAvailable = true
	return svc.catalogSvc.Query(ctx, &qf)
}

func (svc *service) ListEnrollments(ctx context.Context, studentID string) ([]Enrollment, error) {
	return svc.repo.QueryEnrollments(ctx, core.CleanString(studentID), StatusActive)
}

func (svc *service) TotalCredits(ctx context.Context, studentID string) (int, error) {
	enrs, err := svc.ListEnrollments(ctx, studentID)
	if err != nil {
		return 0, err
	}
	var total int
	for _, enr := range enrs {
		total += enr.Credits
	}
	return total, nil
}

func (svc *service) Transcript(ctx context.Context, studentID string) (Transcript, error) {
	studentID = core.CleanString(studentID)
	enrs, err := svc.repo.QueryEnrollments(ctx, studentID, StatusPassed, StatusFailed)
	if err != nil {
		return Transcript{}, err
	}
	return NewTranscript(studentID, enrs), nil
}

func (svc *service) Summary(ctx context.Context, studentID string) (Summary, error) {
	studentID = core.CleanString(studentID)
	enrs, err := svc.ListEnrollments(ctx, studentID)
	if err != nil {
		return Summary{}, err
	}
	offs, err := svc.ListAvailable(ctx, nil)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{
		StudentID:          studentID,
		AvailableOfferings: len(offs),
		ActiveEnrollments:  len(enrs),
	}
	for _, enr := range enrs {
		sum.TotalCredits += enr.Credits
	}
	return sum, nil
}

// notify mails the actor about enr when acting on their own enrollment.
func (svc *service) notify(actor session.Session, enr Enrollment, tmpl, subject string) {
	if actor.UserID != enr.StudentID {
		return
	}
	to, ok := actor.Address()
	if !ok {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{to},
		Subject:      subject,
		TemplateName: tmpl,
		TemplateData: map[string]interface{}{
			"Name":       actor.Name,
			"Enrollment": enr,
		},
	})
}
