// internal/domain/movie.go
package domain

// Movie is a single catalog record. The id is supplied by the caller and is not checked for uniqueness.
type Movie struct {
	ID       int     `json:"id" db:"id"`
	Title    string  `json:"title" db:"title" validate:"min=5,max=15"`
	Overview string  `json:"overview" db:"overview" validate:"min=5,max=100"`
	Year     int     `json:"year" db:"year" validate:"lte=2022"`
	Rating   float64 `json:"rating" db:"rating" validate:"gte=1,lte=10"`
	Category string  `json:"category" db:"category"`
}

// Defaults applied to fields a client leaves out of a movie payload.
const (
	DefaultTitle    = "movie title"
	DefaultOverview = "movie overview"
	DefaultYear     = 2022
	DefaultRating   = 1.0
	DefaultCategory = "category movie"
)

// NewMovieTemplate returns a Movie pre-filled with the defaults. Decoding a request
// body into it keeps the defaults for every field the body omits.
func NewMovieTemplate() Movie {
	return Movie{
		Title:    DefaultTitle,
		Overview: DefaultOverview,
		Year:     DefaultYear,
		Rating:   DefaultRating,
		Category: DefaultCategory,
	}
}

// WithContent returns m with every non-id field taken from src.
func (m Movie) WithContent(src Movie) Movie {
	m.Title = src.Title
	m.Overview = src.Overview
	m.Year = src.Year
	m.Rating = src.Rating
	m.Category = src.Category
	return m
}

// Bounds of the id accepted by single-movie lookups.
const (
	MinLookupID = 1
	MaxLookupID = 2000
)

// MessageResponse is the acknowledgement body returned by mutating endpoints.
type MessageResponse struct {
	Message string `json:"message"`
}

// Acknowledgement messages.
const (
	MsgMovieCreated = "the movie was successfully registered"
	MsgMovieUpdated = "the movie was successfully updated"
	MsgMovieDeleted = "the movie was successfully eliminated"
)
