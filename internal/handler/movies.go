// Package handler exposes the HTTP handlers of the movie catalog.  Handlers
// translate requests into validator and repository calls and shape the JSON
// responses; they hold no state of their own.
package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-catalog/internal/middleware"
	"github.com/iliyamo/movie-catalog/internal/queue"
	"github.com/iliyamo/movie-catalog/internal/repository"
	"github.com/iliyamo/movie-catalog/internal/validation"
)

const (
	msgNotFound    = "Movie not found"
	msgCreated     = "Movie created!"
	msgDeleted     = "Movie deleted"
	msgInvalidBody = "invalid request body"
)

// MovieHandler bundles the dependencies of the /movies endpoints.
type MovieHandler struct {
	Repo   *repository.MovieRepo
	Events queue.Publisher
}

// NewMovieHandler constructs a MovieHandler and panics if repo is nil.  A
// nil publisher disables events.
func NewMovieHandler(repo *repository.MovieRepo, events queue.Publisher) *MovieHandler {
	if repo == nil {
		panic("nil repository passed to NewMovieHandler")
	}
	if events == nil {
		events = queue.NopPublisher{}
	}
	return &MovieHandler{Repo: repo, Events: events}
}

// ListMovies handles GET /movies.  The optional ?genre= filter matches
// genres without regard to case.
func (h *MovieHandler) ListMovies(c echo.Context) error {
	movies := h.Repo.List(c.Request().Context(), c.QueryParam("genre"))
	return c.JSON(http.StatusOK, movies)
}

// GetMovie handles GET /movies/:id.
func (h *MovieHandler) GetMovie(c echo.Context) error {
	m, err := h.Repo.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"message": msgNotFound})
	}
	return c.JSON(http.StatusOK, m)
}

// CreateMovie handles POST /movies.  The body is validated in full; on
// success the stored movie is returned with 201.
func (h *MovieHandler) CreateMovie(c echo.Context) error {
	raw, err := readBody(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": msgInvalidBody})
	}
	in, err := validation.ValidateMovie(raw)
	if err != nil {
		return validationFailed(c, err)
	}
	m := h.Repo.Create(c.Request().Context(), in)
	h.publish(c, queue.NewMovieEvent(queue.MovieCreated, m.ID, &m))
	return c.JSON(http.StatusCreated, echo.Map{"message": msgCreated, "newMovie": m})
}

// UpdateMovie handles PATCH /movies/:id.  The body is validated before the
// lookup, and a missing movie is reported with 400 rather than 404.
func (h *MovieHandler) UpdateMovie(c echo.Context) error {
	raw, err := readBody(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": msgInvalidBody})
	}
	patch, err := validation.ValidatePartialMovie(raw)
	if err != nil {
		return validationFailed(c, err)
	}
	m, err := h.Repo.UpdatePartial(c.Request().Context(), c.Param("id"), patch)
	if err != nil {
		// TODO: switch to 404 once existing clients stop relying on 400 here.
		return c.JSON(http.StatusBadRequest, echo.Map{"message": msgNotFound})
	}
	h.publish(c, queue.NewMovieEvent(queue.MovieUpdated, m.ID, m))
	return c.JSON(http.StatusOK, m)
}

// DeleteMovie handles DELETE /movies/:id.
func (h *MovieHandler) DeleteMovie(c echo.Context) error {
	id := c.Param("id")
	if err := h.Repo.DeleteByID(c.Request().Context(), id); err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"message": msgNotFound})
	}
	h.publish(c, queue.NewMovieEvent(queue.MovieDeleted, id, nil))
	return c.JSON(http.StatusOK, echo.Map{"message": msgDeleted})
}

func (h *MovieHandler) publish(c echo.Context, ev queue.MovieEvent) {
	if err := h.Events.Publish(c.Request().Context(), ev); err != nil {
		middleware.Logger(c).WithError(err).WithField("event", ev.Type).Warn("failed to publish movie event")
	}
}

func validationFailed(c echo.Context, err error) error {
	var verr *validation.ValidationError
	if errors.As(err, &verr) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": verr})
	}
	return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
}

// readBody decodes the JSON request body into an untyped value for the
// validator.  An empty body decodes as an empty object.
func readBody(c echo.Context) (any, error) {
	b, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON body")
	}
	return v, nil
}
