package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/inkwell-dev/inkwell/internal/db"
	"github.com/inkwell-dev/inkwell/internal/web/query"
)

// memStore is an in-memory Store. Filtering supports author, title and
// search, which is enough for handler tests; SQL rendering is covered by the
// filter and sqlmock tests.
type memStore struct {
	mu        sync.Mutex
	nextID    int64
	authors   map[int64]*Author
	books     map[int64]*Book
	statsRuns int
}

func newMemStore() *memStore {
	return &memStore{authors: make(map[int64]*Author), books: make(map[int64]*Book)}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) booksOf(authorID int64) []Book {
	out := []Book{}
	for _, b := range m.books {
		if b.AuthorID == authorID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}

func paginate[T any](items []T, page query.Page) ([]T, int, error) {
	page, err := page.Resolve(len(items))
	if err != nil {
		return nil, len(items), err
	}
	start := min(page.Offset(), len(items))
	end := min(start+page.Limit(), len(items))
	return items[start:end], len(items), nil
}

func (m *memStore) ListAuthors(_ context.Context, f AuthorFilter, page query.Page) ([]Author, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Author
	for _, a := range m.authors {
		if f.Name != "" && !strings.Contains(strings.ToLower(a.Name), strings.ToLower(f.Name)) {
			continue
		}
		cp := *a
		cp.Books = m.booksOf(a.ID)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, page)
}

func (m *memStore) GetAuthor(_ context.Context, id int64) (*Author, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.authors[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *a
	cp.Books = m.booksOf(id)
	return &cp, nil
}

func (m *memStore) AuthorExists(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.authors[id]
	return ok, nil
}

func (m *memStore) CreateAuthor(_ context.Context, a *Author) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = m.id()
	m.authors[a.ID] = &Author{ID: a.ID, Name: a.Name}
	return nil
}

func (m *memStore) UpdateAuthor(_ context.Context, a *Author) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.authors[a.ID]
	if !ok {
		return db.ErrNotFound
	}
	existing.Name = a.Name
	return nil
}

func (m *memStore) DeleteAuthor(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.authors[id]; !ok {
		return db.ErrNotFound
	}
	delete(m.authors, id)
	for bid, b := range m.books {
		if b.AuthorID == id {
			delete(m.books, bid)
		}
	}
	return nil
}

func (m *memStore) FindOrCreateAuthor(_ context.Context, name string) (*Author, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.authors {
		if a.Name == name {
			cp := *a
			return &cp, false, nil
		}
	}
	a := &Author{ID: m.id(), Name: name}
	m.authors[a.ID] = a
	cp := *a
	return &cp, true, nil
}

func (m *memStore) ListBooks(_ context.Context, f BookFilter, page query.Page) ([]Book, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Book
	for _, b := range m.books {
		if f.AuthorID != 0 && b.AuthorID != f.AuthorID {
			continue
		}
		if f.Title != "" && !strings.Contains(strings.ToLower(b.Title), strings.ToLower(f.Title)) {
			continue
		}
		if f.Search != "" {
			s := strings.ToLower(f.Search)
			if !strings.Contains(strings.ToLower(b.Title), s) &&
				!strings.Contains(strings.ToLower(m.authors[b.AuthorID].Name), s) {
				continue
			}
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return paginate(out, page)
}

func (m *memStore) GetBook(_ context.Context, id int64) (*Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memStore) checkBook(b *Book) error {
	if _, ok := m.authors[b.AuthorID]; !ok {
		return ErrAuthorMissing
	}
	for _, other := range m.books {
		if other.ID != b.ID && other.AuthorID == b.AuthorID && other.Title == b.Title {
			return ErrDuplicateBook
		}
	}
	return nil
}

func (m *memStore) CreateBook(_ context.Context, b *Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkBook(b); err != nil {
		return err
	}
	b.ID = m.id()
	cp := *b
	m.books[b.ID] = &cp
	return nil
}

func (m *memStore) UpdateBook(_ context.Context, b *Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.books[b.ID]; !ok {
		return db.ErrNotFound
	}
	if err := m.checkBook(b); err != nil {
		return err
	}
	cp := *b
	m.books[b.ID] = &cp
	return nil
}

func (m *memStore) DeleteBook(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.books[id]; !ok {
		return db.ErrNotFound
	}
	delete(m.books, id)
	return nil
}

func (m *memStore) BooksByAuthor(_ context.Context, authorID int64) ([]Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.booksOf(authorID), nil
}

func (m *memStore) Statistics(_ context.Context) (*Statistics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statsRuns++
	stats := &Statistics{
		TotalBooks:    len(m.books),
		TotalAuthors:  len(m.authors),
		BooksByDecade: map[string]int{},
		TopAuthors:    []AuthorCount{},
	}
	for _, b := range m.books {
		stats.BooksByDecade[DecadeOf(b.PublicationYear)]++
	}
	return stats, nil
}
