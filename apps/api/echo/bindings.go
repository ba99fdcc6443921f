package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/gablilli/selfhosted-classeviva/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// OrderingFor keeps the requested orderings whose field is allowed.
func (ord *Ordering) OrderingFor(allowed map[string]string) []core.DBOrdering {
	kept := make([]core.DBOrdering, 0, len(ord.Orderings))
	for _, o := range ord.Orderings {
		if _, ok := allowed[o.Field]; ok {
			kept = append(kept, o)
		}
	}
	return kept
}
