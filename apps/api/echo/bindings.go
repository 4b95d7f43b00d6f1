package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/registrar/core"
	"github.com/trezcool/registrar/core/catalog"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind parses the `ordering` query param, e.g. `?ordering=term,-credits`, keeping the allowed fields only.
func (ord *Ordering) Bind(ctx echo.Context, allowed map[string]string) {
	if val := ctx.QueryParam(orderingParam); val != "" {
		ord.Orderings = core.ParseOrdering(val, allowed)
	}
}

func bindOfferingFilter(ctx echo.Context) *catalog.QueryFilter {
	return &catalog.QueryFilter{
		Search:     ctx.QueryParam("search"),
		SearchBy:   ctx.QueryParam("search_by"),
		Department: ctx.QueryParam("department"),
		Instructor: ctx.QueryParam("instructor"),
		Term:       ctx.QueryParam("term"),
	}
}
