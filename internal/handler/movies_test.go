package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-catalog/internal/handler"
	"github.com/iliyamo/movie-catalog/internal/middleware"
	"github.com/iliyamo/movie-catalog/internal/model"
	"github.com/iliyamo/movie-catalog/internal/queue"
	"github.com/iliyamo/movie-catalog/internal/repository"
	"github.com/iliyamo/movie-catalog/internal/router"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.MovieEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.MovieEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

type testServer struct {
	e      *echo.Echo
	repo   *repository.MovieRepo
	events *recordingPublisher
}

func seed() []model.Movie {
	return []model.Movie{
		{
			ID: "m1", Title: "The Shawshank Redemption", Year: 1994, Director: "Frank Darabont",
			Duration: 142, Rate: 9.3, Poster: "https://example.com/1.jpg", Genre: []model.Genre{model.GenreDrama},
		},
		{
			ID: "m2", Title: "Inception", Year: 2010, Director: "Christopher Nolan",
			Duration: 148, Rate: 8.8, Poster: "https://example.com/2.jpg",
			Genre: []model.Genre{model.GenreAction, model.GenreSciFi},
		},
	}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	n := 0
	repo := repository.NewMovieRepo(seed(), repository.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("new-%d", n)
	}))
	events := &recordingPublisher{}
	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterMovies(e, handler.NewMovieHandler(repo, events),
		middleware.NewCORSGate([]string{"http://localhost:8080", "http://movies.com"}), nil)
	return &testServer{e: e, repo: repo, events: events}
}

func (s *testServer) do(method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

const validBody = `{
	"title": "Alien",
	"year": 1979,
	"director": "Ridley Scott",
	"duration": 117,
	"poster": "https://example.com/alien.jpg",
	"genre": ["Horror", "Sci-Fi"]
}`

func TestRootAndHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "hello world", decode[map[string]string](t, rec)["message"])

	rec = s.do(http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestListMovies(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/movies", "")
	require.Equal(t, http.StatusOK, rec.Code)
	movies := decode[[]model.Movie](t, rec)
	require.Len(t, movies, 2)
	require.Equal(t, "m1", movies[0].ID)
}

func TestListMoviesGenreFilter(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/movies?genre=drama", "")
	require.Equal(t, http.StatusOK, rec.Code)
	movies := decode[[]model.Movie](t, rec)
	require.Len(t, movies, 1)
	require.Equal(t, "m1", movies[0].ID)

	rec = s.do(http.MethodGet, "/movies?genre=western", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestGetMovie(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/movies/m2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Inception", decode[model.Movie](t, rec).Title)

	rec = s.do(http.MethodGet, "/movies/unknown", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, map[string]string{"message": "Movie not found"}, decode[map[string]string](t, rec))
}

func TestCreateMovie(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodPost, "/movies", validBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[struct {
		Message  string      `json:"message"`
		NewMovie model.Movie `json:"newMovie"`
	}](t, rec)
	require.Equal(t, "Movie created!", resp.Message)
	require.Equal(t, "new-1", resp.NewMovie.ID)
	require.Equal(t, float64(0), resp.NewMovie.Rate)
	require.Equal(t, 3, s.repo.Len())

	rec = s.do(http.MethodGet, "/movies/new-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, resp.NewMovie, decode[model.Movie](t, rec))

	require.Equal(t, []string{queue.MovieCreated}, s.events.types())
}

func TestCreateMovieIgnoresClientID(t *testing.T) {
	s := newTestServer(t)
	body := strings.Replace(validBody, `"title"`, `"id": "m1", "title"`, 1)
	rec := s.do(http.MethodPost, "/movies", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, 3, s.repo.Len())

	m, err := s.repo.GetByID(context.Background(), "m1")
	require.NoError(t, err)
	require.Equal(t, "The Shawshank Redemption", m.Title)
}

func TestCreateMovieValidationError(t *testing.T) {
	s := newTestServer(t)
	body := strings.Replace(validBody, "1979", "-5", 1)
	rec := s.do(http.MethodPost, "/movies", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decode[struct {
		Error []struct {
			Path    []any  `json:"path"`
			Message string `json:"message"`
		} `json:"error"`
	}](t, rec)
	require.Len(t, resp.Error, 1)
	require.Equal(t, []any{"year"}, resp.Error[0].Path)
	require.Equal(t, "Number must be greater than 0", resp.Error[0].Message)
	require.Equal(t, 2, s.repo.Len())
	require.Empty(t, s.events.types())
}

func TestCreateMovieRejectsOversizedYear(t *testing.T) {
	s := newTestServer(t)
	for _, year := range []string{"1e19", "1e300", "9223372036854775808", "1e400"} {
		body := strings.Replace(validBody, "1979", year, 1)
		rec := s.do(http.MethodPost, "/movies", body)
		require.Equal(t, http.StatusBadRequest, rec.Code, year)
		require.Contains(t, rec.Body.String(), `"code":"too_big"`, year)
		require.Contains(t, rec.Body.String(), `"path":["year"]`, year)
	}
	require.Equal(t, 2, s.repo.Len())
	require.Empty(t, s.events.types())
}

func TestCreateMovieMissingTitle(t *testing.T) {
	s := newTestServer(t)
	body := strings.Replace(validBody, `"title": "Alien",`, "", 1)
	rec := s.do(http.MethodPost, "/movies", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), `"path":["title"]`)
	require.Contains(t, rec.Body.String(), "Movie title is required")
}

func TestCreateMovieMalformedJSON(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodPost, "/movies", `{"title":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid request body", decode[map[string]string](t, rec)["message"])
}

func TestUpdateMovie(t *testing.T) {
	s := newTestServer(t)
	before, err := s.repo.GetByID(context.Background(), "m2")
	require.NoError(t, err)

	rec := s.do(http.MethodPatch, "/movies/m2", `{"title":"X","id":"hijack"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	expected := *before
	expected.Title = "X"
	require.Equal(t, expected, decode[model.Movie](t, rec))
	require.Equal(t, []string{queue.MovieUpdated}, s.events.types())
}

func TestUpdateMovieEmptyBody(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodPatch, "/movies/m1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "The Shawshank Redemption", decode[model.Movie](t, rec).Title)
}

func TestUpdateMovieValidationError(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodPatch, "/movies/m1", `{"genre":["Sci"]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), `"error"`)
	require.Contains(t, rec.Body.String(), "invalid_enum_value")

	m, err := s.repo.GetByID(context.Background(), "m1")
	require.NoError(t, err)
	require.Equal(t, []model.Genre{model.GenreDrama}, m.Genre)
}

func TestUpdateMovieNotFoundIs400(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodPatch, "/movies/unknown", `{"title":"X"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, map[string]string{"message": "Movie not found"}, decode[map[string]string](t, rec))
	require.Empty(t, s.events.types())
}

func TestDeleteMovie(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodDelete, "/movies/m1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, map[string]string{"message": "Movie deleted"}, decode[map[string]string](t, rec))
	require.Equal(t, 1, s.repo.Len())

	rec = s.do(http.MethodGet, "/movies/m1", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodDelete, "/movies/m1", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, 1, s.repo.Len())
	require.Equal(t, []string{queue.MovieDeleted}, s.events.types())
}

func TestCORSOnMovieRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/movies", "", echo.HeaderOrigin, "http://evil.com")
	require.Equal(t, http.StatusOK, rec.Code)
	_, ok := rec.Header()[echo.HeaderAccessControlAllowOrigin]
	require.False(t, ok)

	rec = s.do(http.MethodGet, "/movies", "", echo.HeaderOrigin, "http://movies.com")
	require.Equal(t, "http://movies.com", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))

	rec = s.do(http.MethodOptions, "/movies/m1", "", echo.HeaderOrigin, "http://localhost:8080")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "http://localhost:8080", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	require.Equal(t, "GET,POST,PATCH,DELETE", rec.Header().Get(echo.HeaderAccessControlAllowMethods))
}

func TestNewMovieHandlerPanicsOnNilRepo(t *testing.T) {
	require.Panics(t, func() { handler.NewMovieHandler(nil, nil) })
}
