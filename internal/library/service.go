package library

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/inkwell-dev/inkwell/internal/catalog"
	"github.com/inkwell-dev/inkwell/internal/db"
	"github.com/inkwell-dev/inkwell/internal/logging"
	"github.com/inkwell-dev/inkwell/internal/validation"
	"github.com/inkwell-dev/inkwell/internal/web/auth"
	"github.com/inkwell-dev/inkwell/internal/web/query"
)

// RoleCounter reports how many users hold each role
type RoleCounter interface {
	CountByRole(ctx context.Context) (map[string]int, error)
}

// ShelfResult is the body returned by shelf writes
type ShelfResult struct {
	Message string     `json:"message"`
	Book    *ShelfBook `json:"book"`
}

// Service implements the library operations. Shelf writes go through the
// catalog so its validation and statistics invalidation apply.
type Service struct {
	store   Store
	catalog *catalog.Service
	roles   RoleCounter
	logger  *zap.Logger
}

// NewService creates a Service
func NewService(store Store, books *catalog.Service, roles RoleCounter, logger *zap.Logger) *Service {
	return &Service{store: store, catalog: books, roles: roles, logger: logging.OrNop(logger).Named("library")}
}

// ListLibraries returns every library with book counts
func (s *Service) ListLibraries(ctx context.Context) ([]Library, error) {
	return s.store.ListLibraries(ctx)
}

// GetLibrary returns one library with its books and librarian
func (s *Service) GetLibrary(ctx context.Context, id int64) (*Library, error) {
	return s.store.GetLibrary(ctx, id)
}

// CreateLibrary validates and stores a library
func (s *Service) CreateLibrary(ctx context.Context, req CreateLibraryRequest) (*Library, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validation.Validate(req); err != nil {
		return nil, err
	}
	l := &Library{Name: req.Name}
	if err := s.store.CreateLibrary(ctx, l); err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info("library created", zap.Int64("library_id", l.ID))
	return l, nil
}

// AddBook puts a book in library id and returns the updated library
func (s *Service) AddBook(ctx context.Context, id int64, req AddBookRequest) (*Library, error) {
	if err := validation.Validate(req); err != nil {
		return nil, err
	}
	if err := s.store.AddBook(ctx, id, req.BookID); err != nil {
		if errors.Is(err, ErrBookMissing) {
			return nil, validation.Single("book_id", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", req.BookID))
		}
		return nil, err
	}
	return s.store.GetLibrary(ctx, id)
}

// RemoveBook takes a book out of library id
func (s *Service) RemoveBook(ctx context.Context, id, bookID int64) error {
	return s.store.RemoveBook(ctx, id, bookID)
}

// SetLibrarian assigns the librarian of library id
func (s *Service) SetLibrarian(ctx context.Context, id int64, req LibrarianRequest) (*Librarian, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validation.Validate(req); err != nil {
		return nil, err
	}
	return s.store.SetLibrarian(ctx, id, req.Name)
}

// Queries runs the sample relationship queries. Empty arguments skip their
// query.
func (s *Service) Queries(ctx context.Context, authorName, libraryName string) (*QueryResults, error) {
	res := &QueryResults{BooksByAuthor: []ShelfBook{}, BooksInLibrary: []ShelfBook{}}
	var err error
	if authorName != "" {
		if res.BooksByAuthor, err = s.store.BooksByAuthorName(ctx, authorName); err != nil {
			return nil, err
		}
	}
	if libraryName != "" {
		if res.BooksInLibrary, err = s.store.BooksInLibrary(ctx, libraryName); err != nil {
			return nil, err
		}
		res.Librarian, err = s.store.LibrarianFor(ctx, libraryName)
		if err != nil && !db.IsNotFound(err) {
			return nil, err
		}
	}
	return res, nil
}

// DashboardPath returns the dashboard a role is sent to. Unknown roles get
// the member dashboard.
func DashboardPath(role string) string {
	switch role {
	case auth.RoleAdmin:
		return "admin"
	case auth.RoleLibrarian:
		return "librarian"
	}
	return "member"
}

// Dashboard builds the summary for role
func (s *Service) Dashboard(ctx context.Context, role string) (*Dashboard, error) {
	libraries, err := s.store.ListLibraries(ctx)
	if err != nil {
		return nil, err
	}
	d := &Dashboard{Role: role, Libraries: libraries}

	switch role {
	case auth.RoleAdmin:
		if s.roles != nil {
			if d.UsersByRole, err = s.roles.CountByRole(ctx); err != nil {
				return nil, err
			}
		}
	case auth.RoleMember:
		for i := range d.Libraries {
			d.Libraries[i].Librarian = nil
		}
	}
	return d, nil
}

// SearchShelf returns one page of shelf books matching q
func (s *Service) SearchShelf(ctx context.Context, q ShelfQuery, page query.Page) ([]ShelfBook, int, error) {
	return s.store.SearchShelf(ctx, q, page)
}

// ShelfBook returns one shelf book
func (s *Service) ShelfBook(ctx context.Context, id int64) (*ShelfBook, error) {
	return s.store.GetShelfBook(ctx, id)
}

// CreateShelfBook stores a book from the shelf form, creating its author by
// name when needed
func (s *Service) CreateShelfBook(ctx context.Context, in ShelfInput) (*ShelfResult, error) {
	return s.writeShelfBook(ctx, &in, func(bookIn catalog.BookInput) (*catalog.BookResult, error) {
		return s.catalog.CreateBook(ctx, bookIn)
	})
}

// UpdateShelfBook replaces a book from the shelf form
func (s *Service) UpdateShelfBook(ctx context.Context, id int64, in ShelfInput) (*ShelfResult, error) {
	if _, err := s.store.GetShelfBook(ctx, id); err != nil {
		return nil, err
	}
	return s.writeShelfBook(ctx, &in, func(bookIn catalog.BookInput) (*catalog.BookResult, error) {
		return s.catalog.UpdateBook(ctx, id, bookIn, false)
	})
}

// DeleteShelfBook removes a book and returns the confirmation message
func (s *Service) DeleteShelfBook(ctx context.Context, id int64) (string, error) {
	return s.catalog.DeleteBook(ctx, id)
}

// writeShelfBook cleans in, resolves its author and runs write. An author
// created for a write that then fails is removed again.
func (s *Service) writeShelfBook(ctx context.Context, in *ShelfInput, write func(catalog.BookInput) (*catalog.BookResult, error)) (*ShelfResult, error) {
	if err := in.Clean(); err != nil {
		return nil, err
	}
	author, created, err := s.catalog.Store().FindOrCreateAuthor(ctx, in.Author)
	if err != nil {
		return nil, err
	}

	res, err := write(catalog.BookInput{Title: &in.Title, PublicationYear: in.PublicationYear, AuthorID: &author.ID})
	if err != nil {
		if created {
			if derr := s.catalog.DeleteAuthor(ctx, author.ID); derr != nil {
				s.logger.Warn("orphan author not removed", zap.Int64("author_id", author.ID), zap.Error(derr))
			}
		}
		return nil, err
	}
	if created {
		s.logger.Info("author created from shelf", zap.Int64("author_id", author.ID), zap.String("name", author.Name))
	}
	return s.shelfResult(ctx, res)
}

func (s *Service) shelfResult(ctx context.Context, res *catalog.BookResult) (*ShelfResult, error) {
	b, err := s.store.GetShelfBook(ctx, res.Book.ID)
	if err != nil {
		return nil, err
	}
	return &ShelfResult{Message: res.Message, Book: b}, nil
}
