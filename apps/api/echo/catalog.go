package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/registrar/core/catalog"
	"github.com/trezcool/registrar/core/enrollment"
)

// number of suggestions sent along an unknown offering error
const maxSuggestions = 3

type catalogApi struct {
	svc      catalog.Service
	enrSvc   enrollment.Service
	validate *validator.Validate
}

func registerCatalogAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc catalog.Service,
	enrSvc enrollment.Service,
	validate *validator.Validate,
) {
	api := catalogApi{
		svc:      svc,
		enrSvc:   enrSvc,
		validate: validate,
	}

	og := g.Group("/offerings", jwt)
	og.GET("", api.query)
	og.POST("", api.create, adminMiddleware())
	og.GET("/available", api.queryAvailable)
	og.GET("/:id", api.retrieve)
}

// Handlers

func (api *catalogApi) create(ctx echo.Context) error {
	var data catalog.NewOffering
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewOffering")
	}
	off, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating offering")
	}
	return ctx.JSON(http.StatusCreated, off)
}

func (api *catalogApi) query(ctx echo.Context) error {
	ordering := new(Ordering)
	ordering.Bind(ctx, catalog.OrderingFields)

	offs, err := api.svc.Query(ctx.Request().Context(), bindOfferingFilter(ctx), ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying offerings")
	}
	if offs == nil {
		offs = []catalog.Offering{}
	}
	return ctx.JSON(http.StatusOK, offs)
}

func (api *catalogApi) queryAvailable(ctx echo.Context) error {
	offs, err := api.enrSvc.ListAvailable(ctx.Request().Context(), bindOfferingFilter(ctx))
	if err != nil {
		return errors.Wrap(err, "listing available offerings")
	}
	if offs == nil {
		offs = []catalog.Offering{}
	}
	return ctx.JSON(http.StatusOK, offs)
}

func (api *catalogApi) retrieve(ctx echo.Context) error {
	id := ctx.Param("id")
	off, err := api.svc.GetByID(ctx.Request().Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		return offeringNotFound(ctx, api.svc, id)
	}
	if err != nil {
		return errors.Wrap(err, "getting offering")
	}
	return ctx.JSON(http.StatusOK, off)
}

// offeringNotFound responds 404 with the IDs of the offerings resembling id.
func offeringNotFound(ctx echo.Context, svc catalog.Service, id string) error {
	suggestions, err := svc.Suggest(ctx.Request().Context(), id, maxSuggestions)
	if err != nil {
		return errors.Wrap(err, "suggesting offerings")
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	return ctx.JSON(http.StatusNotFound, echo.Map{
		"error":       catalog.ErrNotFound.Error(),
		"suggestions": suggestions,
	})
}
