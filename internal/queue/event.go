// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"time"

	"github.com/iliyamo/movie-catalog/internal/model"
)

// MovieEventsQueue is the durable queue movie events are published to.
const MovieEventsQueue = "movie.events"

// Event types.
const (
	MovieCreated = "movie.created"
	MovieUpdated = "movie.updated"
	MovieDeleted = "movie.deleted"
)

// MovieEvent is published after a movie was created, updated or deleted.
// Movie is omitted for deletions.
type MovieEvent struct {
	Type       string       `json:"type"`
	MovieID    string       `json:"movie_id"`
	Movie      *model.Movie `json:"movie,omitempty"`
	OccurredAt string       `json:"occurred_at"`
}

// NewMovieEvent builds an event stamped with the current UTC time.
func NewMovieEvent(typ, id string, m *model.Movie) MovieEvent {
	return MovieEvent{
		Type:       typ,
		MovieID:    id,
		Movie:      m,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
}
