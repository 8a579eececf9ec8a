package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-catalog/internal/handler"
	"github.com/iliyamo/movie-catalog/internal/middleware"
)

// RegisterRoutes registers the service level routes: the greeting at "/"
// and the health check used by load balancers.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/", handler.Root)
	e.GET("/healthz", handler.Health)
}

// RegisterMovies registers the /movies resource.  The CORS gate runs for
// every route of e so browser callers get a consistent header; cache wraps
// the movie routes only (reads are cached, writes purge it).
func RegisterMovies(e *echo.Echo, h *handler.MovieHandler, gate *middleware.CORSGate, cache echo.MiddlewareFunc) {
	e.Use(gate.Middleware())

	var g *echo.Group
	if cache != nil {
		g = e.Group("/movies", cache)
	} else {
		g = e.Group("/movies")
	}
	g.GET("", h.ListMovies)
	g.POST("", h.CreateMovie)
	g.GET("/:id", h.GetMovie)
	g.PATCH("/:id", h.UpdateMovie)
	g.DELETE("/:id", h.DeleteMovie)
	g.OPTIONS("/:id", gate.Preflight)
}
