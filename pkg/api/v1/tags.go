package apiv1

import (
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/taghound/taghound/pkg/query"
)

// TagsGroup serves tag browsing endpoints.
type TagsGroup struct {
	routerGroup *echo.Group
	engine      *query.Engine
}

func NewTagsGroup(g *echo.Group, engine *query.Engine) *TagsGroup {
	group := &TagsGroup{routerGroup: g, engine: engine}

	g.GET("", group.List)
	g.GET("/:name/files", group.Files)

	return group
}

// List returns every known tag with its usage count.
func (g *TagsGroup) List(c echo.Context) error {
	tags, err := g.engine.ListTags(c.Request().Context())
	if err != nil {
		return DomainErrorResponse(c, err)
	}
	return SuccessResponse(c, tags)
}

// Files returns the files carrying one tag, optionally narrowed by a
// name substring via ?q=.
func (g *TagsGroup) Files(c echo.Context) error {
	// Tag names may contain characters the router escapes
	name, err := url.PathUnescape(c.Param("name"))
	if err != nil {
		name = c.Param("name")
	}

	tagFiles, err := g.engine.FilesForTag(c.Request().Context(), name, c.QueryParam("q"))
	if err != nil {
		return DomainErrorResponse(c, err)
	}
	return SuccessResponse(c, tagFiles)
}
