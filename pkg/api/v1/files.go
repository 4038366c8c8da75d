package apiv1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taghound/taghound/pkg/query"
	"github.com/taghound/taghound/pkg/types"
)

// FilesGroup serves directory listings and single record lookups.
type FilesGroup struct {
	routerGroup *echo.Group
	engine      *query.Engine
}

// ListingResponse wraps a directory listing. Indexed is false when no
// crawl has reached the directory yet, which is different from an
// indexed directory that happens to be empty.
type ListingResponse struct {
	Indexed  bool                `json:"indexed"`
	Dir      string              `json:"dir"`
	Partial  bool                `json:"partial,omitempty"`
	Children []*types.FileRecord `json:"children"`
}

func NewFilesGroup(g *echo.Group, engine *query.Engine) *FilesGroup {
	group := &FilesGroup{routerGroup: g, engine: engine}

	g.GET("", group.List)
	g.GET("/record", group.Record)

	return group
}

// List returns the direct children of an indexed directory.
func (g *FilesGroup) List(c echo.Context) error {
	ctx := c.Request().Context()

	dir := c.QueryParam("dir")
	if dir == "" {
		return ErrorResponse(c, http.StatusBadRequest, "dir is required")
	}
	includeHidden := c.QueryParam("hidden") == "true"

	listing, err := g.engine.ListChildren(ctx, dir, includeHidden)
	if err != nil {
		if (&types.ErrNotIndexed{}).From(err) {
			// Not an error to ask about unindexed territory; the client
			// decides whether to trigger a crawl.
			return SuccessResponse(c, ListingResponse{
				Indexed:  false,
				Dir:      dir,
				Children: []*types.FileRecord{},
			})
		}
		return DomainErrorResponse(c, err)
	}

	return SuccessResponse(c, ListingResponse{
		Indexed:  true,
		Dir:      listing.Dir,
		Partial:  listing.Partial,
		Children: listing.Children,
	})
}

// Record returns the indexed record for a single path.
func (g *FilesGroup) Record(c echo.Context) error {
	ctx := c.Request().Context()

	path := c.QueryParam("path")
	if path == "" {
		return ErrorResponse(c, http.StatusBadRequest, "path is required")
	}

	record, err := g.engine.GetRecord(ctx, path)
	if err != nil {
		return DomainErrorResponse(c, err)
	}

	return SuccessResponse(c, record)
}
