package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

var (
	offsetParam = "offset"
	limitParam  = "limit"
)

// Pagination binds the offset/limit query params; bad values fall back to
// the defaults.
type Pagination struct {
	Offset int
	Limit  int
}

func (p *Pagination) Bind(ctx echo.Context) {
	if val, err := strconv.Atoi(ctx.QueryParam(offsetParam)); err == nil && val > 0 {
		p.Offset = val
	}
	if val, err := strconv.Atoi(ctx.QueryParam(limitParam)); err == nil && val > 0 {
		p.Limit = val
	}
}

func pathID(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}
