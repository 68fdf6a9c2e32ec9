package query

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-dev/inkwell/internal/validation"
)

func TestParsePage(t *testing.T) {
	tests := []struct {
		query   string
		want    Page
		wantErr bool
	}{
		{"", Page{Number: 1, Size: 10}, false},
		{"page=3", Page{Number: 3, Size: 10}, false},
		{"page=2&page_size=25", Page{Number: 2, Size: 25}, false},
		{"page_size=500", Page{Number: 1, Size: 100}, false},
		{"page_size=abc", Page{Number: 1, Size: 10}, false},
		{"page_size=-4", Page{Number: 1, Size: 10}, false},
		{"page=last", Page{Number: 0, Size: 10}, false},
		{"page=0", Page{}, true},
		{"page=two", Page{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/books?"+tt.query, nil)
			got, err := ParsePage(r, DefaultPageSize, MaxPageSize)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseListPage(t *testing.T) {
	t.Cleanup(func() { SetListSizes(0, 0) })

	SetListSizes(20, 50)
	p, err := ParseListPage(httptest.NewRequest("GET", "/?page_size=80", nil))
	require.NoError(t, err)
	assert.Equal(t, Page{Number: 1, Size: 50}, p)

	p, err = ParseListPage(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, 20, p.Size)

	SetListSizes(0, 0)
	p, err = ParseListPage(httptest.NewRequest("GET", "/?page_size=500", nil))
	require.NoError(t, err)
	assert.Equal(t, Page{Number: 1, Size: MaxPageSize}, p)
}

func TestPageResolve(t *testing.T) {
	p, err := Page{Number: 0, Size: 10}.Resolve(25)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Number)
	assert.Equal(t, 20, p.Offset())

	_, err = Page{Number: 4, Size: 10}.Resolve(25)
	assert.ErrorIs(t, err, ErrInvalidPage)

	p, err = Page{Number: 1, Size: 10}.Resolve(0)
	require.NoError(t, err)
	assert.False(t, p.HasNext(0))
	assert.False(t, p.HasPrevious())

	p = Page{Number: 2, Size: 10}
	assert.True(t, p.HasNext(21))
	assert.False(t, p.HasNext(20))
	assert.True(t, p.HasPrevious())
}

func TestSorter(t *testing.T) {
	s := Sorter{
		Columns:  map[string]string{"title": "b.title", "publication_year": "b.publication_year"},
		Default:  "title",
		Tiebreak: "b.id",
	}

	assert.Equal(t, " ORDER BY b.title ASC, b.id ASC", s.OrderBy(""))
	assert.Equal(t, " ORDER BY b.publication_year DESC, b.title ASC, b.id ASC", s.OrderBy("-publication_year, title"))
	assert.Equal(t, " ORDER BY b.title ASC, b.id ASC", s.OrderBy("password;DROP TABLE books"))
	assert.Equal(t, " ORDER BY b.title DESC, b.id ASC", s.OrderBy("-title,title"))
	assert.Equal(t, "", Sorter{}.OrderBy("x"))
}

func TestWhere(t *testing.T) {
	var w Where
	assert.Equal(t, "", w.SQL())

	w.IContains("b.title", "50%_off").
		Eq("b.author_id", int64(3)).
		Add("(b.title ILIKE ? OR a.name ILIKE ?)", "%x%", "%x%").
		IStartsWith("a.name", "Tol").
		IExact("b.title", "Dune")

	assert.Equal(t,
		" WHERE b.title ILIKE $1 AND b.author_id = $2 AND (b.title ILIKE $3 OR a.name ILIKE $4) AND a.name ILIKE $5 AND b.title ILIKE $6",
		w.SQL())
	assert.Equal(t, []any{`%50\%\_off%`, int64(3), "%x%", "%x%", "Tol%", "Dune"}, w.Args())
	assert.Equal(t, 5, w.Len())

	limit, args := w.Paginate(Page{Number: 2, Size: 10})
	assert.Equal(t, " LIMIT $7 OFFSET $8", limit)
	assert.Len(t, args, 8)
	assert.Equal(t, 10, args[6])
	assert.Equal(t, 10, args[7])
	assert.Len(t, w.Args(), 6)
}

func TestWhereComparisons(t *testing.T) {
	var w Where
	w.Gt("b.publication_year", 1950).
		Lt("b.publication_year", 2000).
		Gte("b.publication_year", 1960).
		Lte("b.publication_year", 1990).
		Between("b.publication_year", 1970, 1979).
		AnyIContains("tol", "b.title", "a.name").
		AnyIContains("ignored")

	assert.Equal(t,
		" WHERE b.publication_year > $1 AND b.publication_year < $2 AND b.publication_year >= $3"+
			" AND b.publication_year <= $4 AND b.publication_year BETWEEN $5 AND $6"+
			" AND (b.title ILIKE $7 OR a.name ILIKE $8)",
		w.SQL())
	assert.Equal(t, []any{1950, 2000, 1960, 1990, 1970, 1979, "%tol%", "%tol%"}, w.Args())
}

func TestParams(t *testing.T) {
	r := httptest.NewRequest("GET", "/?year_after=1990&author_id=x&has_books=maybe&decade=1950s&title=+Dune+&flag=yes", nil)
	p := NewParams(r)

	n, ok := p.Int("year_after")
	assert.True(t, ok)
	assert.Equal(t, 1990, n)

	_, ok = p.Int64("author_id")
	assert.False(t, ok)

	_, ok = p.Bool("has_books")
	assert.False(t, ok)

	b, ok := p.Bool("flag")
	assert.True(t, ok)
	assert.True(t, b)

	d, ok := p.Choice("decade", "1950s", "1960s")
	assert.True(t, ok)
	assert.Equal(t, "1950s", d)

	s, ok := p.String("title")
	assert.True(t, ok)
	assert.Equal(t, "Dune", s)

	_, ok = p.String("missing")
	assert.False(t, ok)

	ve, ok := validation.AsErrors(p.Err())
	require.True(t, ok)
	assert.Equal(t, []string{"Enter a number."}, ve.Fields["author_id"])
	assert.Contains(t, ve.Fields["has_books"][0], "Select a valid choice.")
}

func TestSearch(t *testing.T) {
	r := httptest.NewRequest("GET", "/?search=%20tolkien%20&ordering=-title", nil)
	assert.Equal(t, "tolkien", Search(r))
	assert.Equal(t, "-title", Ordering(r))
}
