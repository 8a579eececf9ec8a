// Package seed loads the dataset the movie store starts with.  The dataset
// comes from the embedded movies.json, an external JSON file or a MySQL
// table.  Every record goes through the same validation as a create request
// so the store invariants hold from the first request on.
package seed

import (
	"bytes"
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/movie-catalog/internal/config"
	"github.com/iliyamo/movie-catalog/internal/database"
	"github.com/iliyamo/movie-catalog/internal/model"
	"github.com/iliyamo/movie-catalog/internal/validation"
)

//go:embed movies.json
var embedded []byte

// Load picks the seed source from cfg: MySQL when a database host is set,
// then an external file, then the embedded dataset.
func Load(ctx context.Context, cfg config.Config) ([]model.Movie, error) {
	switch {
	case cfg.DB.Enabled():
		db, err := database.Open(cfg.DB)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		log.WithField("host", cfg.DB.Host).Info("loading seed movies from mysql")
		return FromMySQL(ctx, db)
	case cfg.SeedFile != "":
		log.WithField("path", cfg.SeedFile).Info("loading seed movies from file")
		return FromFile(cfg.SeedFile)
	default:
		return Embedded()
	}
}

// Embedded returns the dataset compiled into the binary.
func Embedded() ([]model.Movie, error) {
	return FromJSON(embedded)
}

// FromFile reads a JSON array of movies from path.
func FromFile(path string) ([]model.Movie, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read seed file %s", path)
	}
	return FromJSON(b)
}

// FromJSON decodes a JSON array of movie objects.  Records that fail
// validation are skipped.
func FromJSON(b []byte) ([]model.Movie, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raws []map[string]any
	if err := dec.Decode(&raws); err != nil {
		return nil, errors.Wrap(err, "failed to decode seed dataset")
	}
	return normalize(raws), nil
}

const selectMovies = `SELECT id, title, year, director, duration, rate, poster, genre
                      FROM movies ORDER BY position, id`

// FromMySQL reads the movies table.  The genre column holds a comma
// separated list such as "Action,Drama".
func FromMySQL(ctx context.Context, db *sql.DB) ([]model.Movie, error) {
	rows, err := db.QueryContext(ctx, selectMovies)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query movies")
	}
	defer rows.Close()

	var raws []map[string]any
	for rows.Next() {
		var (
			id, title, director, poster, genre string
			year, duration                     int64
			rate                               sql.NullFloat64
		)
		if err := rows.Scan(&id, &title, &year, &director, &duration, &rate, &poster, &genre); err != nil {
			return nil, errors.Wrap(err, "failed to scan movie row")
		}
		raw := map[string]any{
			"id":       id,
			"title":    title,
			"year":     float64(year),
			"director": director,
			"duration": float64(duration),
			"poster":   poster,
			"genre":    splitGenres(genre),
		}
		if rate.Valid {
			raw["rate"] = rate.Float64
		}
		raws = append(raws, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate movie rows")
	}
	return normalize(raws), nil
}

func normalize(raws []map[string]any) []model.Movie {
	out := make([]model.Movie, 0, len(raws))
	seen := make(map[string]bool, len(raws))
	for i, raw := range raws {
		id, _ := raw["id"].(string)
		in, err := validation.ValidateMovie(raw)
		if err != nil {
			log.WithError(err).WithField("index", i).WithField("id", id).Warn("skipping invalid seed movie")
			continue
		}
		if id != "" && seen[id] {
			log.WithField("id", id).Warn("skipping duplicate seed movie id")
			continue
		}
		seen[id] = true
		out = append(out, model.Movie{
			ID:       id,
			Title:    in.Title,
			Year:     in.Year,
			Director: in.Director,
			Duration: in.Duration,
			Rate:     in.Rate,
			Poster:   in.Poster,
			Genre:    in.Genre,
		})
	}
	return out
}

func splitGenres(s string) []any {
	out := []any{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
