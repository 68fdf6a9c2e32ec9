package query

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
)

// Pagination defaults
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

var listSize, listMax atomic.Int64

func init() {
	listSize.Store(DefaultPageSize)
	listMax.Store(MaxPageSize)
}

// SetListSizes changes the page sizes used by ParseListPage. Non-positive
// values restore the defaults; maxSize is raised to at least size.
func SetListSizes(size, maxSize int) {
	if size <= 0 {
		size = DefaultPageSize
	}
	if maxSize <= 0 {
		maxSize = MaxPageSize
	}
	if maxSize < size {
		maxSize = size
	}
	listSize.Store(int64(size))
	listMax.Store(int64(maxSize))
}

// ParseListPage is ParsePage with the configured list sizes
func ParseListPage(r *http.Request) (Page, error) {
	return ParsePage(r, int(listSize.Load()), int(listMax.Load()))
}

// ErrInvalidPage is returned for page numbers that are malformed or past the
// last page
var ErrInvalidPage = errors.New("invalid page")

// Page is a requested page of results. Number 0 means "last".
type Page struct {
	Number int
	Size   int
}

// ParsePage reads ?page= and ?page_size=. A malformed page_size falls back to
// the default; sizes above max are clamped.
func ParsePage(r *http.Request, defaultSize, maxSize int) (Page, error) {
	if defaultSize <= 0 {
		defaultSize = DefaultPageSize
	}
	if maxSize <= 0 {
		maxSize = MaxPageSize
	}

	q := r.URL.Query()
	p := Page{Number: 1, Size: defaultSize}

	if raw := strings.TrimSpace(q.Get("page_size")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			p.Size = min(n, maxSize)
		}
	}

	raw := strings.TrimSpace(q.Get("page"))
	switch raw {
	case "":
	case "last":
		p.Number = 0
	default:
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return p, ErrInvalidPage
		}
		p.Number = n
	}
	return p, nil
}

// PageCount returns the number of pages needed for total items. An empty
// result still has one page.
func (p Page) PageCount(total int) int {
	if total <= 0 || p.Size <= 0 {
		return 1
	}
	return (total + p.Size - 1) / p.Size
}

// Resolve checks p against the total item count and turns "last" into a page
// number.
func (p Page) Resolve(total int) (Page, error) {
	count := p.PageCount(total)
	if p.Number == 0 {
		p.Number = count
	}
	if p.Number > count {
		return p, ErrInvalidPage
	}
	return p, nil
}

// Offset returns the row offset of the page
func (p Page) Offset() int {
	if p.Number <= 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// Limit returns the page size
func (p Page) Limit() int {
	return p.Size
}

// HasNext reports whether a page follows p
func (p Page) HasNext(total int) bool {
	return p.Number < p.PageCount(total)
}

// HasPrevious reports whether a page precedes p
func (p Page) HasPrevious() bool {
	return p.Number > 1
}
