package library

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/inkwell-dev/inkwell/internal/validation"
	"github.com/inkwell-dev/inkwell/internal/web/query"
)

// Shelf limits
const (
	MinPublicationYear = 1000
	MaxSearchLength    = 200
	ShelfPageSize      = 10
)

// MsgInvalidYear is returned alongside an empty result for a non-numeric
// year search
const MsgInvalidYear = "Invalid year format."

// ParseYear parses a year search term
func ParseYear(s string) (int, bool) {
	year, err := strconv.Atoi(strings.TrimSpace(s))
	return year, err == nil
}

// Clean trims the form and checks it with the shelf's rules. The title
// limit is the same as catalog.Book's.
func (in *ShelfInput) Clean() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	return validation.ValidateWith(in, validation.Messages{
		"title.trimmedmin":           "Title must be at least 2 characters long.",
		"title.safetext":             "Title contains invalid characters.",
		"author.trimmedmin":          "Author name must be at least 2 characters long.",
		"author.safetext":            "Author name contains invalid characters.",
		"publication_year.min":       fmt.Sprintf("Publication year must be after %d", MinPublicationYear),
		"publication_year.notfuture": fmt.Sprintf("Publication year cannot be in the future (after %d)", validation.CurrentYear()),
	})
}

// ParseShelfQuery reads ?q= and ?search_type= from r
func ParseShelfQuery(r *http.Request) (ShelfQuery, error) {
	p := query.NewParams(r)
	q := ShelfQuery{Type: SearchAll}

	raw, _ := p.String("q")
	if t, ok := p.Choice("search_type", SearchAll, SearchTitle, SearchAuthor, SearchYear); ok {
		q.Type = t
	}
	if err := p.Err(); err != nil {
		return q, err
	}

	switch {
	case utf8.RuneCountInString(raw) > MaxSearchLength:
		return q, validation.Single("q", "Search query is too long.")
	case raw != "" && !validation.IsSafeText(raw):
		return q, validation.Single("q", "Search query contains invalid characters.")
	}
	q.Query = raw
	return q, nil
}

// InvalidYear reports whether q is a year search that cannot match
func (q ShelfQuery) InvalidYear() bool {
	if q.Type != SearchYear || q.Query == "" {
		return false
	}
	_, ok := ParseYear(q.Query)
	return !ok
}
