package catalog

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/inkwell-dev/inkwell/internal/web/query"
)

// Decades accepted by the decade filter
var Decades = []string{
	"1900s", "1910s", "1920s", "1930s", "1940s", "1950s", "1960s",
	"1970s", "1980s", "1990s", "2000s", "2010s", "2020s",
}

// DecadeRange returns the first and last year of a decade name like "1960s"
func DecadeRange(name string) (start, end int, ok bool) {
	if len(name) != 5 || !strings.HasSuffix(name, "s") {
		return 0, 0, false
	}
	start, err := strconv.Atoi(name[:4])
	if err != nil || start%10 != 0 {
		return 0, 0, false
	}
	return start, start + 9, true
}

// DecadeOf returns the decade name a year falls in
func DecadeOf(year int) string {
	start := year - year%10
	if year < 0 && year%10 != 0 {
		start -= 10
	}
	return fmt.Sprintf("%ds", start)
}

var bookSorter = query.Sorter{
	Columns: map[string]string{
		"title":            "b.title",
		"publication_year": "b.publication_year",
		"author__name":     "a.name",
		"id":               "b.id",
	},
	Default:  "title",
	Tiebreak: "b.id",
}

var authorSorter = query.Sorter{
	Columns:  map[string]string{"name": "a.name", "id": "a.id"},
	Default:  "name",
	Tiebreak: "a.id",
}

// BookFilter holds the parsed book list query parameters. Zero values mean
// "not filtered".
type BookFilter struct {
	Title           string
	TitleExact      string
	TitleStartsWith string
	AuthorName      string
	AuthorID        int64
	PublicationYear int
	YearAfter       int
	YearBefore      int
	YearRangeMin    int
	YearRangeMax    int
	Decade          string
	Search          string
	// MultipleBooks limits results to authors with more than one book
	MultipleBooks bool
	Ordering      string

	hasYear, hasAfter, hasBefore, hasMin, hasMax bool
}

// ParseBookFilter reads a BookFilter from r. Malformed values produce
// validation errors keyed by parameter.
func ParseBookFilter(r *http.Request) (BookFilter, error) {
	p := query.NewParams(r)
	var f BookFilter

	f.Title, _ = p.String("title")
	f.TitleExact, _ = p.String("title_exact")
	f.TitleStartsWith, _ = p.String("title_starts_with")
	f.AuthorName, _ = p.String("author_name")
	f.Search = query.Search(r)
	f.Ordering = query.Ordering(r)

	if id, ok := p.Int64("author_id"); ok {
		f.AuthorID = id
	}
	if id, ok := p.Int64("author"); ok {
		f.AuthorID = id
	}
	f.PublicationYear, f.hasYear = p.Int("publication_year")
	f.YearAfter, f.hasAfter = p.Int("year_after")
	f.YearBefore, f.hasBefore = p.Int("year_before")
	f.YearRangeMin, f.hasMin = p.Int("year_range_min")
	f.YearRangeMax, f.hasMax = p.Int("year_range_max")
	f.Decade, _ = p.Choice("decade", Decades...)
	f.MultipleBooks, _ = p.Bool("has_multiple_books_by_author")

	return f, p.Err()
}

// Where renders the filter against books b joined to authors a
func (f BookFilter) Where() *query.Where {
	w := &query.Where{}
	if f.Title != "" {
		w.IContains("b.title", f.Title)
	}
	if f.TitleExact != "" {
		w.IExact("b.title", f.TitleExact)
	}
	if f.TitleStartsWith != "" {
		w.IStartsWith("b.title", f.TitleStartsWith)
	}
	if f.AuthorName != "" {
		w.IContains("a.name", f.AuthorName)
	}
	if f.AuthorID != 0 {
		w.Eq("b.author_id", f.AuthorID)
	}
	if f.hasYear {
		w.Eq("b.publication_year", f.PublicationYear)
	}
	if f.hasAfter {
		w.Gt("b.publication_year", f.YearAfter)
	}
	if f.hasBefore {
		w.Lt("b.publication_year", f.YearBefore)
	}
	if f.hasMin {
		w.Gte("b.publication_year", f.YearRangeMin)
	}
	if f.hasMax {
		w.Lte("b.publication_year", f.YearRangeMax)
	}
	if start, end, ok := DecadeRange(f.Decade); ok {
		w.Between("b.publication_year", start, end)
	}
	if f.Search != "" {
		w.AnyIContains(f.Search, "b.title", "a.name")
	}
	if f.MultipleBooks {
		w.Add("b.author_id IN (SELECT author_id FROM books GROUP BY author_id HAVING COUNT(*) > 1)")
	}
	return w
}

// OrderBy returns the ORDER BY clause for the requested ordering
func (f BookFilter) OrderBy() string {
	return bookSorter.OrderBy(f.Ordering)
}

// AuthorFilter holds the parsed author list query parameters
type AuthorFilter struct {
	Name           string
	NameStartsWith string
	Search         string
	Ordering       string
	// HasBooks is nil when not filtered
	HasBooks     *bool
	BookCountMin int
}

// ParseAuthorFilter reads an AuthorFilter from r
func ParseAuthorFilter(r *http.Request) (AuthorFilter, error) {
	p := query.NewParams(r)
	var f AuthorFilter

	f.Name, _ = p.String("name")
	f.NameStartsWith, _ = p.String("name_starts_with")
	f.Search = query.Search(r)
	f.Ordering = query.Ordering(r)
	if v, ok := p.Bool("has_books"); ok {
		f.HasBooks = &v
	}
	f.BookCountMin, _ = p.Int("book_count_min")

	return f, p.Err()
}

// Where renders the filter against authors a
func (f AuthorFilter) Where() *query.Where {
	w := &query.Where{}
	if f.Name != "" {
		w.IContains("a.name", f.Name)
	}
	if f.NameStartsWith != "" {
		w.IStartsWith("a.name", f.NameStartsWith)
	}
	if f.Search != "" {
		w.IContains("a.name", f.Search)
	}
	if f.HasBooks != nil {
		if *f.HasBooks {
			w.Add("EXISTS (SELECT 1 FROM books b WHERE b.author_id = a.id)")
		} else {
			w.Add("NOT EXISTS (SELECT 1 FROM books b WHERE b.author_id = a.id)")
		}
	}
	if f.BookCountMin > 0 {
		w.Add("(SELECT COUNT(*) FROM books b WHERE b.author_id = a.id) >= ?", f.BookCountMin)
	}
	return w
}

// OrderBy returns the ORDER BY clause for the requested ordering
func (f AuthorFilter) OrderBy() string {
	return authorSorter.OrderBy(f.Ordering)
}
