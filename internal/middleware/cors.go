package middleware // middleware provides shared request processing for handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// AllowedMethods is declared on pre-flight responses.
var AllowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete}

// CORSGate decides per request whether the calling origin may read the
// response.  Allowed origins are echoed back verbatim, never as "*".  A
// rejected origin is still served; only the header is missing, so the
// browser hides the response from the page.
type CORSGate struct {
	origins map[string]bool
}

// NewCORSGate builds a gate for the given allow-list.  Entries are matched
// exactly.
func NewCORSGate(origins []string) *CORSGate {
	g := &CORSGate{origins: make(map[string]bool, len(origins))}
	for _, o := range origins {
		g.origins[o] = true
	}
	return g
}

// IsAllowed reports whether origin may receive CORS headers.  An empty
// origin means a same-origin or non-browser request and is always allowed.
func (g *CORSGate) IsAllowed(origin string) bool {
	return origin == "" || g.origins[origin]
}

// allow sets the allow-origin header when the request's origin passes the
// gate and reports whether it did.
func (g *CORSGate) allow(c echo.Context) bool {
	origin := c.Request().Header.Get(echo.HeaderOrigin)
	if !g.IsAllowed(origin) {
		return false
	}
	if origin != "" {
		h := c.Response().Header()
		h.Set(echo.HeaderAccessControlAllowOrigin, origin)
		h.Add(echo.HeaderVary, echo.HeaderOrigin)
	}
	return true
}

// Middleware applies the gate to every non-OPTIONS request.  Pre-flight is
// left to the routes that register Preflight.
func (g *CORSGate) Middleware() echo.MiddlewareFunc {
	return echomw.CORSWithConfig(echomw.CORSConfig{
		Skipper: func(c echo.Context) bool { return c.Request().Method == http.MethodOptions },
		AllowOriginFunc: func(origin string) (bool, error) {
			return g.IsAllowed(origin), nil
		},
		AllowMethods: AllowedMethods,
	})
}

// Preflight answers OPTIONS requests.  Allowed origins additionally get the
// method list; the status is 204 either way.
func (g *CORSGate) Preflight(c echo.Context) error {
	if g.allow(c) {
		c.Response().Header().Set(echo.HeaderAccessControlAllowMethods, strings.Join(AllowedMethods, ","))
	}
	return c.NoContent(http.StatusNoContent)
}
