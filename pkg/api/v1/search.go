package apiv1

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/taghound/taghound/pkg/query"
)

// SearchGroup serves ranked index search.
type SearchGroup struct {
	routerGroup *echo.Group
	engine      *query.Engine
}

func NewSearchGroup(g *echo.Group, engine *query.Engine) *SearchGroup {
	group := &SearchGroup{routerGroup: g, engine: engine}

	g.GET("", group.Search)

	return group
}

// Search runs a ranked lookup. ?q= is the query, ?dir= optionally
// scopes results to a subtree, ?limit= caps the hit count.
func (g *SearchGroup) Search(c echo.Context) error {
	ctx := c.Request().Context()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	results, err := g.engine.Search(ctx, c.QueryParam("q"), c.QueryParam("dir"), limit)
	if err != nil {
		return DomainErrorResponse(c, err)
	}

	return SuccessResponse(c, results)
}
