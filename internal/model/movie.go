package model

import "strings"

// Genre is one of the fixed genre labels a movie can carry.
type Genre string

const (
	GenreAction    Genre = "Action"
	GenreAdventure Genre = "Adventure"
	GenreComedy    Genre = "Comedy"
	GenreDrama     Genre = "Drama"
	GenreFantasy   Genre = "Fantasy"
	GenreHorror    Genre = "Horror"
	GenreThriller  Genre = "Thriller"
	GenreSciFi     Genre = "Sci-Fi"
	GenreCrime     Genre = "Crime"
)

// Genres lists every accepted genre in declaration order.  Validation
// error messages enumerate them in this order.
var Genres = []Genre{
	GenreAction,
	GenreAdventure,
	GenreComedy,
	GenreDrama,
	GenreFantasy,
	GenreHorror,
	GenreThriller,
	GenreSciFi,
	GenreCrime,
}

// IsValid reports whether g is one of the accepted genres.  The match is
// exact; "drama" is not a valid genre even though the list filter accepts it.
func (g Genre) IsValid() bool {
	for _, v := range Genres {
		if v == g {
			return true
		}
	}
	return false
}

// Movie is a single record held by the movie store.
//
// Fields:
//  ID       – generated identifier, immutable after creation.
//  Title    – non-empty title.
//  Year     – positive release year.
//  Director – director name.
//  Duration – positive runtime in minutes.
//  Rate     – score within [0,10].
//  Poster   – absolute URL of the poster image.
//  Genre    – non-empty list of genres.
type Movie struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Year     int     `json:"year"`
	Director string  `json:"director"`
	Duration int     `json:"duration"`
	Rate     float64 `json:"rate"`
	Poster   string  `json:"poster"`
	Genre    []Genre `json:"genre"`
}

// HasGenre reports whether the movie carries the given genre, ignoring case.
func (m Movie) HasGenre(genre string) bool {
	for _, g := range m.Genre {
		if strings.EqualFold(string(g), genre) {
			return true
		}
	}
	return false
}

// Clone returns a copy of the movie that shares no memory with the receiver.
func (m Movie) Clone() Movie {
	out := m
	if m.Genre != nil {
		out.Genre = append([]Genre(nil), m.Genre...)
	}
	return out
}

// MovieInput holds the validated fields of a movie that is about to be
// created.  It has no ID; the store assigns one.
type MovieInput struct {
	Title    string  `json:"title"`
	Year     int     `json:"year"`
	Director string  `json:"director"`
	Duration int     `json:"duration"`
	Rate     float64 `json:"rate"`
	Poster   string  `json:"poster"`
	Genre    []Genre `json:"genre"`
}

// MoviePatch holds the validated fields of a partial update.  A nil field
// means "leave unchanged".
type MoviePatch struct {
	Title    *string  `json:"title,omitempty"`
	Year     *int     `json:"year,omitempty"`
	Director *string  `json:"director,omitempty"`
	Duration *int     `json:"duration,omitempty"`
	Rate     *float64 `json:"rate,omitempty"`
	Poster   *string  `json:"poster,omitempty"`
	Genre    []Genre  `json:"genre,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p MoviePatch) IsEmpty() bool {
	return p.Title == nil && p.Year == nil && p.Director == nil && p.Duration == nil &&
		p.Rate == nil && p.Poster == nil && p.Genre == nil
}

// Apply returns a copy of m with every non-nil patch field written over it.
// The ID is never touched.
func (p MoviePatch) Apply(m Movie) Movie {
	out := m.Clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Year != nil {
		out.Year = *p.Year
	}
	if p.Director != nil {
		out.Director = *p.Director
	}
	if p.Duration != nil {
		out.Duration = *p.Duration
	}
	if p.Rate != nil {
		out.Rate = *p.Rate
	}
	if p.Poster != nil {
		out.Poster = *p.Poster
	}
	if p.Genre != nil {
		out.Genre = append([]Genre(nil), p.Genre...)
	}
	return out
}
