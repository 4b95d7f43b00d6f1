package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/registrar/core"
	"github.com/trezcool/registrar/core/catalog"
	"github.com/trezcool/registrar/core/enrollment"
)

var errEnrNotFoundInCtx = errors.New("enrollment object not found in echo.Context")

type enrollmentApi struct {
	svc        enrollment.Service
	catalogSvc catalog.Service
	validate   *validator.Validate
}

func registerEnrollmentAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	catalogSvc catalog.Service,
	svc enrollment.Service,
	validate *validator.Validate,
) {
	api := enrollmentApi{
		svc:        svc,
		catalogSvc: catalogSvc,
		validate:   validate,
	}

	sg := g.Group("/students/:sid", jwt, selfOrAdminMiddleware())
	sg.POST("/enrollments", api.enroll)
	sg.GET("/enrollments", api.query)
	sg.GET("/credits", api.totalCredits)
	sg.GET("/summary", api.summary)
	sg.GET("/transcript", api.transcript)

	dg := g.Group("/enrollments/:id", jwt, enrollmentOwnerOrAdminMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.DELETE("", api.destroy)
	dg.POST("/grade", api.grade, adminMiddleware())
}

// Handlers

func (api *enrollmentApi) enroll(ctx echo.Context) error {
	var data EnrollRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	enr, err := api.svc.Enroll(ctx.Request().Context(), sess, ctx.Param("sid"), data.OfferingID)
	if errors.Is(err, enrollment.ErrOfferingNotFound) {
		return offeringNotFound(ctx, api.catalogSvc, data.OfferingID)
	}
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *enrollmentApi) query(ctx echo.Context) error {
	enrs, err := api.svc.ListEnrollments(ctx.Request().Context(), ctx.Param("sid"))
	if err != nil {
		return errors.Wrap(err, "listing enrollments")
	}
	if enrs == nil {
		enrs = []enrollment.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrs)
}

func (api *enrollmentApi) totalCredits(ctx echo.Context) error {
	total, err := api.svc.TotalCredits(ctx.Request().Context(), ctx.Param("sid"))
	if err != nil {
		return errors.Wrap(err, "computing total credits")
	}
	return ctx.JSON(http.StatusOK, CreditsResponse{TotalCredits: total})
}

func (api *enrollmentApi) summary(ctx echo.Context) error {
	sum, err := api.svc.Summary(ctx.Request().Context(), ctx.Param("sid"))
	if err != nil {
		return errors.Wrap(err, "computing summary")
	}
	return ctx.JSON(http.StatusOK, sum)
}

func (api *enrollmentApi) transcript(ctx echo.Context) error {
	tr, err := api.svc.Transcript(ctx.Request().Context(), ctx.Param("sid"))
	if err != nil {
		return errors.Wrap(err, "building transcript")
	}
	return ctx.JSON(http.StatusOK, tr)
}

func (api *enrollmentApi) retrieve(ctx echo.Context) error {
	enr, ok := ctx.Get("object").(enrollment.Enrollment)
	if !ok {
		return errors.Wrap(errEnrNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *enrollmentApi) destroy(ctx echo.Context) error {
	enr, ok := ctx.Get("object").(enrollment.Enrollment)
	if !ok {
		return errors.Wrap(errEnrNotFoundInCtx, "retrieving object from context")
	}
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	if _, err := api.svc.Unenroll(ctx.Request().Context(), sess, enr.ID); err != nil {
		return errors.Wrap(err, "unenrolling")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *enrollmentApi) grade(ctx echo.Context) error {
	enr, ok := ctx.Get("object").(enrollment.Enrollment)
	if !ok {
		return errors.Wrap(errEnrNotFoundInCtx, "retrieving object from context")
	}

	var data GradeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	enr, err = api.svc.PostGrade(ctx.Request().Context(), sess, enr.ID, *data.Grade)
	if err != nil {
		return errors.Wrap(err, "posting grade")
	}
	return ctx.JSON(http.StatusOK, enr)
}

// enrollmentOwnerOrAdminMiddleware loads the enrollment of the `id` path param in the context.
// Enrollments of other students are reported as not found.
func enrollmentOwnerOrAdminMiddleware(svc enrollment.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sess, err := getContextSession(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context session")
			}

			enr, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err == nil {
				if sess.CanActFor(enr.StudentID) {
					ctx.Set("object", enr)
					return next(ctx)
				}
			} else if !errors.Is(err, enrollment.ErrNotFound) {
				return errors.Wrap(err, "finding enrollment by ID")
			}
			return errHttpNotFound
		}
	}
}

type (
	EnrollRequest struct {
		OfferingID string `json:"offering_id" validate:"required"`
	}

	GradeRequest struct {
		Grade *float64 `json:"grade" validate:"required"`
	}

	CreditsResponse struct {
		TotalCredits int `json:"total_credits"`
	}
)

func (er *EnrollRequest) Validate(validate *validator.Validate) error {
	er.OfferingID = core.CleanString(er.OfferingID)
	return validate.Struct(er)
}
