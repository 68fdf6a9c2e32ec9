package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/inkwell-dev/inkwell/internal/logging"
	"github.com/inkwell-dev/inkwell/internal/validation"
	"github.com/inkwell-dev/inkwell/internal/web/cache"
	"github.com/inkwell-dev/inkwell/internal/web/query"
)

// Statistics caching
const (
	StatisticsKey = "catalog:statistics"
	StatisticsTTL = 5 * time.Minute
)

// MsgNotUnique is the error for a second book with the same title and author
const MsgNotUnique = "The fields title, author must make a unique set."

// Service implements the catalog operations
type Service struct {
	store  Store
	cache  cache.Cache
	logger *zap.Logger
}

// NewService creates a Service. c caches statistics and may be nil.
func NewService(store Store, c cache.Cache, logger *zap.Logger) *Service {
	return &Service{store: store, cache: c, logger: logging.OrNop(logger).Named("catalog")}
}

// Store returns the underlying store
func (s *Service) Store() Store {
	return s.store
}

// ListAuthors returns a page of authors with nested books
func (s *Service) ListAuthors(ctx context.Context, f AuthorFilter, page query.Page) ([]Author, int, error) {
	return s.store.ListAuthors(ctx, f, page)
}

// GetAuthor returns one author with nested books
func (s *Service) GetAuthor(ctx context.Context, id int64) (*Author, error) {
	return s.store.GetAuthor(ctx, id)
}

// CreateAuthor validates and stores a new author
func (s *Service) CreateAuthor(ctx context.Context, in AuthorInput) (*Author, error) {
	a := &Author{}
	in.applyTo(a)
	a.Name = strings.TrimSpace(a.Name)
	if err := validation.Validate(a); err != nil {
		return nil, err
	}
	if err := s.store.CreateAuthor(ctx, a); err != nil {
		return nil, err
	}
	a.Books = []Book{}
	s.invalidate(ctx)
	logging.FromContext(ctx).Info("author created", zap.Int64("author_id", a.ID))
	return a, nil
}

// UpdateAuthor replaces (partial=false) or patches an author
func (s *Service) UpdateAuthor(ctx context.Context, id int64, in AuthorInput, partial bool) (*Author, error) {
	existing, err := s.store.GetAuthor(ctx, id)
	if err != nil {
		return nil, err
	}
	a := &Author{ID: id}
	if partial {
		a.Name = existing.Name
	}
	in.applyTo(a)
	a.Name = strings.TrimSpace(a.Name)
	if err := validation.Validate(a); err != nil {
		return nil, err
	}
	if err := s.store.UpdateAuthor(ctx, a); err != nil {
		return nil, err
	}
	a.Books = existing.Books
	s.invalidate(ctx)
	return a, nil
}

// DeleteAuthor removes an author and their books
func (s *Service) DeleteAuthor(ctx context.Context, id int64) error {
	if err := s.store.DeleteAuthor(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	logging.FromContext(ctx).Info("author deleted", zap.Int64("author_id", id))
	return nil
}

// ListBooks returns a page of books matching f
func (s *Service) ListBooks(ctx context.Context, f BookFilter, page query.Page) ([]Book, int, error) {
	return s.store.ListBooks(ctx, f, page)
}

// GetBook returns one book
func (s *Service) GetBook(ctx context.Context, id int64) (*Book, error) {
	return s.store.GetBook(ctx, id)
}

// CreateBook validates and stores a new book
func (s *Service) CreateBook(ctx context.Context, in BookInput) (*BookResult, error) {
	b := &Book{}
	in.applyTo(b)
	if err := s.validateBook(ctx, b); err != nil {
		return nil, err
	}
	if err := s.store.CreateBook(ctx, b); err != nil {
		return nil, bookWriteError(b, err)
	}
	s.invalidate(ctx)
	logging.FromContext(ctx).Info("book created", zap.Int64("book_id", b.ID), zap.String("title", b.Title))
	return &BookResult{Message: fmt.Sprintf("Book %q created successfully.", b.Title), Book: b}, nil
}

// UpdateBook replaces (partial=false) or patches a book
func (s *Service) UpdateBook(ctx context.Context, id int64, in BookInput, partial bool) (*BookResult, error) {
	existing, err := s.store.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}
	b := &Book{ID: id}
	if partial {
		*b = *existing
	}
	in.applyTo(b)
	if err := s.validateBook(ctx, b); err != nil {
		return nil, err
	}
	if err := s.store.UpdateBook(ctx, b); err != nil {
		return nil, bookWriteError(b, err)
	}
	s.invalidate(ctx)
	return &BookResult{Message: fmt.Sprintf("Book %q updated successfully.", b.Title), Book: b}, nil
}

// DeleteBook removes a book and returns the confirmation message
func (s *Service) DeleteBook(ctx context.Context, id int64) (string, error) {
	b, err := s.store.GetBook(ctx, id)
	if err != nil {
		return "", err
	}
	if err := s.store.DeleteBook(ctx, id); err != nil {
		return "", err
	}
	s.invalidate(ctx)
	logging.FromContext(ctx).Info("book deleted", zap.Int64("book_id", id))
	return fmt.Sprintf("Book %q deleted successfully.", b.Title), nil
}

// BooksByAuthor lists every book of one author
func (s *Service) BooksByAuthor(ctx context.Context, authorID int64) (*AuthorBooks, error) {
	author, err := s.store.GetAuthor(ctx, authorID)
	if err != nil {
		return nil, err
	}
	books, err := s.store.BooksByAuthor(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if books == nil {
		books = []Book{}
	}
	return &AuthorBooks{Author: author, Books: books, Count: len(books)}, nil
}

// Statistics returns the catalog summary, cached for StatisticsTTL
func (s *Service) Statistics(ctx context.Context) (*Statistics, error) {
	if s.cache == nil {
		return s.store.Statistics(ctx)
	}
	return cache.Remember(ctx, s.cache, StatisticsKey, StatisticsTTL, s.store.Statistics)
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, StatisticsKey); err != nil {
		s.logger.Warn("failed to invalidate statistics", zap.Error(err))
	}
}

func (s *Service) validateBook(ctx context.Context, b *Book) error {
	b.Title = strings.TrimSpace(b.Title)

	errs := validation.New()
	if err := validation.Validate(b); err != nil {
		ve, ok := validation.AsErrors(err)
		if !ok {
			return err
		}
		errs.Merge(ve)
	}
	if b.AuthorID != 0 && !errs.Has("author") {
		ok, err := s.store.AuthorExists(ctx, b.AuthorID)
		if err != nil {
			return err
		}
		if !ok {
			errs.Add("author", invalidPK(b.AuthorID))
		}
	}
	return errs.Err()
}

func bookWriteError(b *Book, err error) error {
	switch {
	case errors.Is(err, ErrDuplicateBook):
		errs := validation.New()
		errs.AddNonField(MsgNotUnique)
		return errs
	case errors.Is(err, ErrAuthorMissing):
		return validation.Single("author", invalidPK(b.AuthorID))
	}
	return err
}

func invalidPK(id int64) string {
	return fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id)
}
