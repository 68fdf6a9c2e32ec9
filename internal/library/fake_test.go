package library

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/inkwell-dev/inkwell/internal/catalog"
	"github.com/inkwell-dev/inkwell/internal/db"
	"github.com/inkwell-dev/inkwell/internal/web/query"
)

// world holds libraries, authors and books in memory. It is the library
// Store, and books() exposes the same data as a catalog.Store.
type world struct {
	mu         sync.Mutex
	nextID     int64
	libraries  map[int64]*Library
	librarians map[int64]*Librarian
	shelves    map[int64]map[int64]bool
	authors    map[int64]*catalog.Author
	books      map[int64]*catalog.Book

	// bookWriteErr fails the next CreateBook or UpdateBook
	bookWriteErr error
}

func newWorld() *world {
	return &world{
		libraries:  make(map[int64]*Library),
		librarians: make(map[int64]*Librarian),
		shelves:    make(map[int64]map[int64]bool),
		authors:    make(map[int64]*catalog.Author),
		books:      make(map[int64]*catalog.Book),
	}
}

func (w *world) id() int64 {
	w.nextID++
	return w.nextID
}

func (w *world) addAuthor(name string) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	a := &catalog.Author{ID: w.id(), Name: name}
	w.authors[a.ID] = a
	return a.ID
}

func (w *world) addBook(title string, year int, authorID int64) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	b := &catalog.Book{ID: w.id(), Title: title, PublicationYear: year, AuthorID: authorID}
	w.books[b.ID] = b
	return b.ID
}

func (w *world) shelfBook(b *catalog.Book) ShelfBook {
	return ShelfBook{
		ID: b.ID, Title: b.Title, Author: w.authors[b.AuthorID].Name,
		AuthorID: b.AuthorID, PublicationYear: b.PublicationYear,
	}
}

func (w *world) sorted(keep func(ShelfBook) bool) []ShelfBook {
	out := []ShelfBook{}
	for _, b := range w.books {
		sb := w.shelfBook(b)
		if keep(sb) {
			out = append(out, sb)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (w *world) library(l *Library) Library {
	cp := *l
	cp.BookCount = len(w.shelves[l.ID])
	if lr, ok := w.librarians[l.ID]; ok {
		lrCopy := *lr
		cp.Librarian = &lrCopy
	}
	return cp
}

func (w *world) ListLibraries(context.Context) ([]Library, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := []Library{}
	for _, l := range w.libraries {
		out = append(out, w.library(l))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (w *world) GetLibrary(_ context.Context, id int64) (*Library, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	l, ok := w.libraries[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := w.library(l)
	cp.Books = w.sorted(func(b ShelfBook) bool { return w.shelves[id][b.ID] })
	return &cp, nil
}

func (w *world) CreateLibrary(_ context.Context, l *Library) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	l.ID = w.id()
	cp := *l
	w.libraries[l.ID] = &cp
	w.shelves[l.ID] = make(map[int64]bool)
	return nil
}

func (w *world) AddBook(_ context.Context, libraryID, bookID int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.libraries[libraryID]; !ok {
		return db.ErrNotFound
	}
	if _, ok := w.books[bookID]; !ok {
		return ErrBookMissing
	}
	w.shelves[libraryID][bookID] = true
	return nil
}

func (w *world) RemoveBook(_ context.Context, libraryID, bookID int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.shelves[libraryID][bookID] {
		return db.ErrNotFound
	}
	delete(w.shelves[libraryID], bookID)
	return nil
}

func (w *world) SetLibrarian(_ context.Context, libraryID int64, name string) (*Librarian, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.libraries[libraryID]; !ok {
		return nil, db.ErrNotFound
	}
	lr, ok := w.librarians[libraryID]
	if !ok {
		lr = &Librarian{ID: w.id(), LibraryID: libraryID}
		w.librarians[libraryID] = lr
	}
	lr.Name = name
	cp := *lr
	return &cp, nil
}

func (w *world) BooksByAuthorName(_ context.Context, name string) ([]ShelfBook, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sorted(func(b ShelfBook) bool { return b.Author == name }), nil
}

func (w *world) libraryNamed(name string) *Library {
	for _, l := range w.libraries {
		if l.Name == name {
			return l
		}
	}
	return nil
}

func (w *world) BooksInLibrary(_ context.Context, libraryName string) ([]ShelfBook, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	l := w.libraryNamed(libraryName)
	if l == nil {
		return []ShelfBook{}, nil
	}
	return w.sorted(func(b ShelfBook) bool { return w.shelves[l.ID][b.ID] }), nil
}

func (w *world) LibrarianFor(_ context.Context, libraryName string) (*Librarian, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	l := w.libraryNamed(libraryName)
	if l == nil || w.librarians[l.ID] == nil {
		return nil, db.ErrNotFound
	}
	cp := *w.librarians[l.ID]
	return &cp, nil
}

func (w *world) SearchShelf(_ context.Context, q ShelfQuery, page query.Page) ([]ShelfBook, int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	needle := strings.ToLower(q.Query)
	year, yearOK := ParseYear(q.Query)
	if q.Type == SearchYear && q.Query != "" && !yearOK {
		return []ShelfBook{}, 0, nil
	}
	books := w.sorted(func(b ShelfBook) bool {
		if q.Query == "" {
			return true
		}
		title := strings.Contains(strings.ToLower(b.Title), needle)
		author := strings.Contains(strings.ToLower(b.Author), needle)
		switch q.Type {
		case SearchTitle:
			return title
		case SearchAuthor:
			return author
		case SearchYear:
			return b.PublicationYear == year
		}
		return title || author
	})

	page, err := page.Resolve(len(books))
	if err != nil {
		return nil, len(books), err
	}
	start := min(page.Offset(), len(books))
	end := min(start+page.Limit(), len(books))
	return books[start:end], len(books), nil
}

func (w *world) GetShelfBook(_ context.Context, id int64) (*ShelfBook, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.books[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	sb := w.shelfBook(b)
	return &sb, nil
}

func (w *world) bookStore() catalog.Store {
	return &worldBooks{w: w}
}

// worldBooks implements the catalog.Store methods the shelf writes use.
// Calling any other method panics on the nil embedded interface.
type worldBooks struct {
	catalog.Store
	w *world
}

func (s *worldBooks) AuthorExists(_ context.Context, id int64) (bool, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	_, ok := s.w.authors[id]
	return ok, nil
}

func (s *worldBooks) FindOrCreateAuthor(_ context.Context, name string) (*catalog.Author, bool, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	for _, a := range s.w.authors {
		if a.Name == name {
			cp := *a
			return &cp, false, nil
		}
	}
	a := &catalog.Author{ID: s.w.id(), Name: name}
	s.w.authors[a.ID] = a
	cp := *a
	return &cp, true, nil
}

func (s *worldBooks) GetBook(_ context.Context, id int64) (*catalog.Book, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	b, ok := s.w.books[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *worldBooks) DeleteAuthor(_ context.Context, id int64) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if _, ok := s.w.authors[id]; !ok {
		return db.ErrNotFound
	}
	delete(s.w.authors, id)
	for bookID, b := range s.w.books {
		if b.AuthorID == id {
			delete(s.w.books, bookID)
		}
	}
	return nil
}

func (s *worldBooks) takeWriteErr() error {
	err := s.w.bookWriteErr
	s.w.bookWriteErr = nil
	return err
}

func (s *worldBooks) CreateBook(_ context.Context, b *catalog.Book) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if err := s.takeWriteErr(); err != nil {
		return err
	}
	for _, other := range s.w.books {
		if other.Title == b.Title && other.AuthorID == b.AuthorID && other.PublicationYear == b.PublicationYear {
			return catalog.ErrDuplicateBook
		}
	}
	b.ID = s.w.id()
	cp := *b
	s.w.books[b.ID] = &cp
	return nil
}

func (s *worldBooks) UpdateBook(_ context.Context, b *catalog.Book) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if err := s.takeWriteErr(); err != nil {
		return err
	}
	if _, ok := s.w.books[b.ID]; !ok {
		return db.ErrNotFound
	}
	cp := *b
	s.w.books[b.ID] = &cp
	return nil
}

func (s *worldBooks) DeleteBook(_ context.Context, id int64) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if _, ok := s.w.books[id]; !ok {
		return db.ErrNotFound
	}
	delete(s.w.books, id)
	for _, shelf := range s.w.shelves {
		delete(shelf, id)
	}
	return nil
}
