package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"movie-catalog/internal/domain"
)

const documentIndent = "    "

// record is the on-disk shape of a movie. Field order and number formatting follow
// catalogs written by the earlier service so untouched records keep their bytes.
type record struct {
	ID       int     `json:"id"`
	Title    string  `json:"title"`
	Overview string  `json:"overview"`
	Year     int     `json:"year"`
	Rating   decimal `json:"rating"`
	Category string  `json:"category"`
}

// decimal always carries a fractional part: 7 is written as 7.0.
type decimal float64

func (d decimal) MarshalJSON() ([]byte, error) {
	s := strconv.FormatFloat(float64(d), 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return []byte(s), nil
}

// EncodeCatalog renders movies as an indented JSON array. A nil slice encodes as [].
// Non-ASCII characters are written as \u escapes and HTML characters are left as is.
func EncodeCatalog(movies []domain.Movie) ([]byte, error) {
	records := make([]record, 0, len(movies))
	for _, m := range movies {
		records = append(records, record{
			ID:       m.ID,
			Title:    m.Title,
			Overview: m.Overview,
			Year:     m.Year,
			Rating:   decimal(m.Rating),
			Category: m.Category,
		})
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", documentIndent)
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("encode catalog: %w", err)
	}
	return escapeNonASCII(buf.Bytes()), nil
}

// escapeNonASCII rewrites every non-ASCII rune as \uXXXX, using surrogate pairs above
// the BMP. Outside string literals a JSON document is pure ASCII, so this only touches strings.
func escapeNonASCII(data []byte) []byte {
	if !bytes.ContainsFunc(data, func(r rune) bool { return r >= utf8.RuneSelf }) {
		return data
	}
	out := make([]byte, 0, len(data)+len(data)/4)
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		data = data[size:]
		if r < utf8.RuneSelf {
			out = append(out, byte(r))
			continue
		}
		if r1, r2 := utf16.EncodeRune(r); r1 != utf8.RuneError {
			out = fmt.Appendf(out, `\u%04x\u%04x`, r1, r2)
			continue
		}
		out = fmt.Appendf(out, `\u%04x`, r)
	}
	return out
}

// DecodeCatalog parses a catalog document. Empty input and null decode to an empty catalog.
func DecodeCatalog(data []byte) ([]domain.Movie, error) {
	movies := []domain.Movie{}
	if len(bytes.TrimSpace(data)) == 0 {
		return movies, nil
	}
	if err := json.Unmarshal(data, &movies); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if movies == nil {
		movies = []domain.Movie{}
	}
	return movies, nil
}
