// Package repository contains data access logic separated from HTTP handlers.
// This file defines the in-memory movie store.  Records keep insertion order
// (seed order first, then creation order) and every mutation happens under a
// single write lock.
package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/iliyamo/movie-catalog/internal/model"
)

// MovieRepo owns the process-lifetime list of movies.  Callers only ever
// receive copies, so nothing outside the repo can change stored records.
type MovieRepo struct {
	mu     sync.RWMutex
	movies []model.Movie
	newID  func() string
}

// Option customizes a MovieRepo.
type Option func(*MovieRepo)

// WithIDGenerator replaces the UUID generator, mainly for tests.
func WithIDGenerator(gen func() string) Option {
	return func(r *MovieRepo) { r.newID = gen }
}

// NewMovieRepo builds a repo holding a copy of seed.  Seed records without
// an id get a generated one.
func NewMovieRepo(seed []model.Movie, opts ...Option) *MovieRepo {
	r := &MovieRepo{newID: uuid.NewString}
	for _, o := range opts {
		o(r)
	}
	r.movies = make([]model.Movie, 0, len(seed))
	for _, m := range seed {
		m = m.Clone()
		if m.ID == "" {
			m.ID = r.newID()
		}
		r.movies = append(r.movies, m)
	}
	return r
}

// Len returns the number of stored movies.
func (r *MovieRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.movies)
}

// List returns every movie, or only those carrying genre (compared without
// regard to case) when genre is not empty.  The result is never nil.
func (r *MovieRepo) List(_ context.Context, genre string) []model.Movie {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Movie, 0, len(r.movies))
	for _, m := range r.movies {
		if genre != "" && !m.HasGenre(genre) {
			continue
		}
		out = append(out, m.Clone())
	}
	return out
}

// GetByID returns the movie with the given id or ErrMovieNotFound.
func (r *MovieRepo) GetByID(_ context.Context, id string) (*model.Movie, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.indexOf(id)
	if i < 0 {
		return nil, ErrMovieNotFound
	}
	m := r.movies[i].Clone()
	return &m, nil
}

// Create assigns a fresh id to the validated input, appends it and returns
// the stored record.
func (r *MovieRepo) Create(_ context.Context, in model.MovieInput) model.Movie {
	m := model.Movie{
		Title:    in.Title,
		Year:     in.Year,
		Director: in.Director,
		Duration: in.Duration,
		Rate:     in.Rate,
		Poster:   in.Poster,
		Genre:    append([]model.Genre(nil), in.Genre...),
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	m.ID = r.newID()
	r.movies = append(r.movies, m)
	return m.Clone()
}

// UpdatePartial merges the patch onto the stored movie in place.  Fields
// absent from the patch keep their values and the id never changes.
func (r *MovieRepo) UpdatePartial(_ context.Context, id string, p model.MoviePatch) (*model.Movie, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(id)
	if i < 0 {
		return nil, ErrMovieNotFound
	}
	r.movies[i] = p.Apply(r.movies[i])
	m := r.movies[i].Clone()
	return &m, nil
}

// DeleteByID removes the movie with the given id.  It returns
// ErrMovieNotFound and leaves the store untouched when there is no match.
func (r *MovieRepo) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(id)
	if i < 0 {
		return ErrMovieNotFound
	}
	r.movies = append(r.movies[:i], r.movies[i+1:]...)
	return nil
}

// indexOf must be called with mu held.
func (r *MovieRepo) indexOf(id string) int {
	for i := range r.movies {
		if r.movies[i].ID == id {
			return i
		}
	}
	return -1
}
