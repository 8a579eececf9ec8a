// Package validation checks untyped movie payloads against a declarative
// field table and turns them into typed model values.  Nothing here mutates
// its input.
package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/iliyamo/movie-catalog/internal/model"
)

type kind int

const (
	kindString kind = iota
	kindInt
	kindNumber
	kindURL
	kindGenres
)

// fieldRule is one row of the movie schema.
type fieldRule struct {
	name        string
	kind        kind
	required    bool
	minLen      int      // strings only
	positive    bool     // numbers only
	min, max    *float64 // numbers only, inclusive
	def         any      // injected in full mode when the field is absent
	requiredMsg string
	typeMsg     string
}

func bound(v float64) *float64 { return &v }

var movieRules = []fieldRule{
	{
		name:        "title",
		kind:        kindString,
		required:    true,
		minLen:      1,
		requiredMsg: "Movie title is required",
		typeMsg:     "Movie title must be a string",
	},
	{name: "year", kind: kindInt, required: true, positive: true},
	{name: "director", kind: kindString, required: true},
	{name: "duration", kind: kindInt, required: true, positive: true},
	{name: "rate", kind: kindNumber, min: bound(0), max: bound(10), def: float64(0)},
	{name: "poster", kind: kindURL, required: true},
	{name: "genre", kind: kindGenres, required: true, requiredMsg: "Movie genre is required"},
}

// ValidateMovie checks a full movie payload.  Every required field must be
// present; rate defaults to 0.  Unknown fields, id included, are dropped.
func ValidateMovie(raw any) (model.MovieInput, error) {
	vals, err := check(raw, false)
	if err != nil {
		return model.MovieInput{}, err
	}
	return model.MovieInput{
		Title:    vals["title"].(string),
		Year:     vals["year"].(int),
		Director: vals["director"].(string),
		Duration: vals["duration"].(int),
		Rate:     vals["rate"].(float64),
		Poster:   vals["poster"].(string),
		Genre:    vals["genre"].([]model.Genre),
	}, nil
}

// ValidatePartialMovie checks a partial payload used for updates.  No field
// is required and no default is injected, but every present field obeys the
// same rules as in ValidateMovie.
func ValidatePartialMovie(raw any) (model.MoviePatch, error) {
	vals, err := check(raw, true)
	if err != nil {
		return model.MoviePatch{}, err
	}
	var p model.MoviePatch
	if v, ok := vals["title"].(string); ok {
		p.Title = &v
	}
	if v, ok := vals["year"].(int); ok {
		p.Year = &v
	}
	if v, ok := vals["director"].(string); ok {
		p.Director = &v
	}
	if v, ok := vals["duration"].(int); ok {
		p.Duration = &v
	}
	if v, ok := vals["rate"].(float64); ok {
		p.Rate = &v
	}
	if v, ok := vals["poster"].(string); ok {
		p.Poster = &v
	}
	if v, ok := vals["genre"].([]model.Genre); ok {
		p.Genre = v
	}
	return p, nil
}

func check(raw any, partial bool) (map[string]any, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, &ValidationError{Issues: []Issue{{
			Code:     CodeInvalidType,
			Expected: "object",
			Received: typeName(raw),
			Path:     []any{},
			Message:  fmt.Sprintf("Expected object, received %s", typeName(raw)),
		}}}
	}

	out := make(map[string]any, len(movieRules))
	var issues []Issue
	for _, r := range movieRules {
		v, present := obj[r.name]
		if !present {
			switch {
			case partial:
			case r.def != nil:
				out[r.name] = r.def
			case r.required:
				issues = append(issues, r.missing())
			}
			continue
		}
		val, errs := r.apply(v)
		if len(errs) > 0 {
			issues = append(issues, errs...)
			continue
		}
		out[r.name] = val
	}
	if len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}
	return out, nil
}

func (r fieldRule) missing() Issue {
	msg := r.requiredMsg
	if msg == "" {
		msg = "Required"
	}
	return Issue{
		Code:     CodeInvalidType,
		Expected: r.expected(),
		Received: "undefined",
		Path:     []any{r.name},
		Message:  msg,
	}
}

func (r fieldRule) expected() string {
	switch r.kind {
	case kindInt, kindNumber:
		return "number"
	case kindGenres:
		return "array"
	default:
		return "string"
	}
}

func (r fieldRule) typeIssue(v any, path []any) Issue {
	msg := r.typeMsg
	if msg == "" || len(path) > 1 {
		msg = fmt.Sprintf("Expected %s, received %s", r.expected(), typeName(v))
	}
	return Issue{
		Code:     CodeInvalidType,
		Expected: r.expected(),
		Received: typeName(v),
		Path:     path,
		Message:  msg,
	}
}

func (r fieldRule) apply(v any) (any, []Issue) {
	path := []any{r.name}
	switch r.kind {
	case kindString, kindURL:
		s, ok := v.(string)
		if !ok {
			return nil, []Issue{r.typeIssue(v, path)}
		}
		if len(s) < r.minLen {
			return nil, []Issue{{
				Code:    CodeTooSmall,
				Path:    path,
				Message: fmt.Sprintf("String must contain at least %d character(s)", r.minLen),
			}}
		}
		if r.kind == kindURL && !isURL(s) {
			return nil, []Issue{{Code: CodeInvalidString, Path: path, Message: "Invalid url"}}
		}
		return s, nil

	case kindInt, kindNumber:
		f, ok := toFloat(v)
		if !ok {
			return nil, []Issue{r.typeIssue(v, path)}
		}
		var issues []Issue
		if r.kind == kindInt && f != math.Trunc(f) {
			issues = append(issues, Issue{
				Code:     CodeInvalidType,
				Expected: "integer",
				Received: "float",
				Path:     path,
				Message:  "Expected integer, received float",
			})
		}
		if r.positive && f <= 0 {
			issues = append(issues, Issue{Code: CodeTooSmall, Path: path, Message: "Number must be greater than 0"})
		}
		if r.min != nil && f < *r.min {
			issues = append(issues, Issue{
				Code:    CodeTooSmall,
				Path:    path,
				Message: fmt.Sprintf("Number must be greater than or equal to %v", *r.min),
			})
		}
		if r.max != nil && f > *r.max {
			issues = append(issues, Issue{
				Code:    CodeTooBig,
				Path:    path,
				Message: fmt.Sprintf("Number must be less than or equal to %v", *r.max),
			})
		}
		// Integers must fit in an int32 so they survive the conversion below
		// on every platform.
		if r.kind == kindInt && f > math.MaxInt32 {
			issues = append(issues, Issue{
				Code:    CodeTooBig,
				Path:    path,
				Message: fmt.Sprintf("Number must be less than or equal to %d", math.MaxInt32),
			})
		}
		if r.kind == kindInt && f < math.MinInt32 && !r.positive {
			issues = append(issues, Issue{
				Code:    CodeTooSmall,
				Path:    path,
				Message: fmt.Sprintf("Number must be greater than or equal to %d", math.MinInt32),
			})
		}
		if len(issues) == 0 && math.IsInf(f, 0) {
			issues = append(issues, infIssue(f, path))
		}
		if len(issues) > 0 {
			return nil, issues
		}
		if r.kind == kindInt {
			return int(f), nil
		}
		return f, nil

	case kindGenres:
		list, ok := v.([]any)
		if !ok {
			if ss, isStrings := v.([]string); isStrings {
				list = make([]any, len(ss))
				for i, s := range ss {
					list[i] = s
				}
			} else {
				return nil, []Issue{r.typeIssue(v, path)}
			}
		}
		if len(list) == 0 {
			return nil, []Issue{{Code: CodeTooSmall, Path: path, Message: "Array must contain at least 1 element(s)"}}
		}
		genres := make([]model.Genre, 0, len(list))
		var issues []Issue
		for i, item := range list {
			ipath := []any{r.name, i}
			s, ok := item.(string)
			if !ok {
				issues = append(issues, Issue{
					Code:     CodeInvalidType,
					Expected: "string",
					Received: typeName(item),
					Path:     ipath,
					Message:  fmt.Sprintf("Expected string, received %s", typeName(item)),
				})
				continue
			}
			g := model.Genre(s)
			if !g.IsValid() {
				issues = append(issues, Issue{
					Code:     CodeInvalidEnumValue,
					Received: s,
					Options:  genreOptions(),
					Path:     ipath,
					Message:  fmt.Sprintf("Invalid enum value. Expected %s, received '%s'", quotedGenres(), s),
				})
				continue
			}
			genres = append(genres, g)
		}
		if len(issues) > 0 {
			return nil, issues
		}
		return genres, nil
	}
	return nil, []Issue{r.typeIssue(v, path)}
}

// isURL accepts absolute URLs: a scheme plus either a host or an opaque part.
func isURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" {
		return false
	}
	return u.Host != "" || u.Opaque != ""
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		// Literals beyond float64 come back as ±Inf with ErrRange; they are
		// numbers, just out of range.
		f, err := n.Float64()
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func infIssue(f float64, path []any) Issue {
	if f > 0 {
		return Issue{Code: CodeTooBig, Path: path, Message: "Number must be finite"}
	}
	return Issue{Code: CodeTooSmall, Path: path, Message: "Number must be finite"}
}

func typeName(v any) string {
	switch n := v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int64, json.Number:
		return "number"
	case []any, []string:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", n)
	}
}

func genreOptions() []string {
	out := make([]string, len(model.Genres))
	for i, g := range model.Genres {
		out[i] = string(g)
	}
	return out
}

func quotedGenres() string {
	parts := make([]string, len(model.Genres))
	for i, g := range model.Genres {
		parts[i] = "'" + string(g) + "'"
	}
	return strings.Join(parts, " | ")
}
