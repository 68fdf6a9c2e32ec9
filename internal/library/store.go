package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/inkwell-dev/inkwell/internal/db"
	"github.com/inkwell-dev/inkwell/internal/web/query"
)

// ErrBookMissing is returned when adding an unknown book to a library
var ErrBookMissing = errors.New("book does not exist")

// Store persists libraries and librarians and answers shelf queries
type Store interface {
	ListLibraries(ctx context.Context) ([]Library, error)
	GetLibrary(ctx context.Context, id int64) (*Library, error)
	CreateLibrary(ctx context.Context, l *Library) error
	AddBook(ctx context.Context, libraryID, bookID int64) error
	RemoveBook(ctx context.Context, libraryID, bookID int64) error
	SetLibrarian(ctx context.Context, libraryID int64, name string) (*Librarian, error)

	BooksByAuthorName(ctx context.Context, name string) ([]ShelfBook, error)
	BooksInLibrary(ctx context.Context, libraryName string) ([]ShelfBook, error)
	LibrarianFor(ctx context.Context, libraryName string) (*Librarian, error)

	SearchShelf(ctx context.Context, q ShelfQuery, page query.Page) ([]ShelfBook, int, error)
	GetShelfBook(ctx context.Context, id int64) (*ShelfBook, error)
}

// PostgresStore implements Store on PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store on conn
func NewPostgresStore(conn *sql.DB) *PostgresStore {
	return &PostgresStore{db: conn}
}

const selectLibrary = `SELECT l.id, l.name,
	(SELECT COUNT(*) FROM library_books lb WHERE lb.library_id = l.id),
	lr.id, lr.name
FROM libraries l LEFT JOIN librarians lr ON lr.library_id = l.id`

type scanner interface {
	Scan(dest ...any) error
}

func scanLibrary(s scanner) (*Library, error) {
	var l Library
	var librarianID sql.NullInt64
	var librarianName sql.NullString
	if err := s.Scan(&l.ID, &l.Name, &l.BookCount, &librarianID, &librarianName); err != nil {
		return nil, db.ConvertDBError(err)
	}
	if librarianID.Valid {
		l.Librarian = &Librarian{ID: librarianID.Int64, Name: librarianName.String, LibraryID: l.ID}
	}
	return &l, nil
}

// ListLibraries returns every library with book counts, by name
func (s *PostgresStore) ListLibraries(ctx context.Context) ([]Library, error) {
	rows, err := s.db.QueryContext(ctx, selectLibrary+" ORDER BY l.name, l.id")
	if err != nil {
		return nil, fmt.Errorf("failed to list libraries: %w", err)
	}
	defer rows.Close()

	libraries := []Library{}
	for rows.Next() {
		l, err := scanLibrary(rows)
		if err != nil {
			return nil, err
		}
		libraries = append(libraries, *l)
	}
	return libraries, rows.Err()
}

// GetLibrary returns the library with its books and librarian
func (s *PostgresStore) GetLibrary(ctx context.Context, id int64) (*Library, error) {
	l, err := scanLibrary(s.db.QueryRowContext(ctx, selectLibrary+" WHERE l.id = $1", id))
	if err != nil {
		return nil, err
	}
	l.Books, err = s.shelfQuery(ctx, shelfSelect+`
		JOIN library_books lb ON lb.book_id = b.id
		WHERE lb.library_id = $1 ORDER BY b.title, b.id`, id)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// CreateLibrary inserts l and fills its ID
func (s *PostgresStore) CreateLibrary(ctx context.Context, l *Library) error {
	err := s.db.QueryRowContext(ctx, "INSERT INTO libraries (name) VALUES ($1) RETURNING id", l.Name).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("failed to insert library: %w", db.ConvertDBError(err))
	}
	return nil
}

// AddBook puts a book in a library. Adding it twice is a no-op.
func (s *PostgresStore) AddBook(ctx context.Context, libraryID, bookID int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO library_books (library_id, book_id) VALUES ($1, $2) ON CONFLICT DO NOTHING", libraryID, bookID)
	if err != nil {
		err = db.ConvertDBError(err)
		if db.IsForeignKeyViolation(err) {
			if db.ConstraintName(err) == "library_books_library_id_fkey" {
				return db.ErrNotFound
			}
			return ErrBookMissing
		}
		return fmt.Errorf("failed to add book: %w", err)
	}
	return nil
}

// RemoveBook takes a book out of a library
func (s *PostgresStore) RemoveBook(ctx context.Context, libraryID, bookID int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM library_books WHERE library_id = $1 AND book_id = $2", libraryID, bookID)
	if err != nil {
		return fmt.Errorf("failed to remove book: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return db.ErrNotFound
	}
	return nil
}

// SetLibrarian names the librarian of a library, replacing any previous one
func (s *PostgresStore) SetLibrarian(ctx context.Context, libraryID int64, name string) (*Librarian, error) {
	lr := &Librarian{Name: name, LibraryID: libraryID}
	err := s.db.QueryRowContext(ctx, `INSERT INTO librarians (name, library_id) VALUES ($1, $2)
		ON CONFLICT (library_id) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, name, libraryID).Scan(&lr.ID)
	if err != nil {
		err = db.ConvertDBError(err)
		if db.IsForeignKeyViolation(err) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("failed to set librarian: %w", err)
	}
	return lr, nil
}

const shelfSelect = `SELECT b.id, b.title, a.name, a.id, b.publication_year
FROM books b JOIN authors a ON a.id = b.author_id`

func (s *PostgresStore) shelfQuery(ctx context.Context, q string, args ...any) ([]ShelfBook, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	defer rows.Close()

	books := []ShelfBook{}
	for rows.Next() {
		var b ShelfBook
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.AuthorID, &b.PublicationYear); err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// BooksByAuthorName returns the books of the author named exactly name
func (s *PostgresStore) BooksByAuthorName(ctx context.Context, name string) ([]ShelfBook, error) {
	return s.shelfQuery(ctx, shelfSelect+" WHERE a.name = $1 ORDER BY b.title, b.id", name)
}

// BooksInLibrary returns the books of the library named exactly libraryName
func (s *PostgresStore) BooksInLibrary(ctx context.Context, libraryName string) ([]ShelfBook, error) {
	return s.shelfQuery(ctx, shelfSelect+`
		JOIN library_books lb ON lb.book_id = b.id
		JOIN libraries l ON l.id = lb.library_id
		WHERE l.name = $1 ORDER BY b.title, b.id`, libraryName)
}

// LibrarianFor returns the librarian of the library named libraryName, or
// db.ErrNotFound
func (s *PostgresStore) LibrarianFor(ctx context.Context, libraryName string) (*Librarian, error) {
	var lr Librarian
	err := s.db.QueryRowContext(ctx, `SELECT lr.id, lr.name, lr.library_id FROM librarians lr
		JOIN libraries l ON l.id = lr.library_id WHERE l.name = $1 ORDER BY l.id LIMIT 1`, libraryName).
		Scan(&lr.ID, &lr.Name, &lr.LibraryID)
	if err != nil {
		return nil, db.ConvertDBError(err)
	}
	return &lr, nil
}

// shelfWhere renders a shelf search. A year search with a non-numeric query
// matches nothing.
func shelfWhere(q ShelfQuery) (*query.Where, bool) {
	w := &query.Where{}
	if q.Query == "" {
		return w, true
	}
	switch q.Type {
	case SearchTitle:
		w.IContains("b.title", q.Query)
	case SearchAuthor:
		w.IContains("a.name", q.Query)
	case SearchYear:
		year, ok := ParseYear(q.Query)
		if !ok {
			return w, false
		}
		w.Eq("b.publication_year", year)
	default:
		w.AnyIContains(q.Query, "b.title", "a.name")
	}
	return w, true
}

// SearchShelf returns one page of books matching q, by title
func (s *PostgresStore) SearchShelf(ctx context.Context, q ShelfQuery, page query.Page) ([]ShelfBook, int, error) {
	where, ok := shelfWhere(q)
	if !ok {
		return []ShelfBook{}, 0, nil
	}

	var total int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM books b JOIN authors a ON a.id = b.author_id"+where.SQL(), where.Args()...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count books: %w", err)
	}
	page, err = page.Resolve(total)
	if err != nil {
		return nil, total, err
	}

	limit, args := where.Paginate(page)
	books, err := s.shelfQuery(ctx, shelfSelect+where.SQL()+" ORDER BY b.title ASC, b.id ASC"+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

// GetShelfBook returns one book with its author's name
func (s *PostgresStore) GetShelfBook(ctx context.Context, id int64) (*ShelfBook, error) {
	var b ShelfBook
	err := s.db.QueryRowContext(ctx, shelfSelect+" WHERE b.id = $1", id).
		Scan(&b.ID, &b.Title, &b.Author, &b.AuthorID, &b.PublicationYear)
	if err != nil {
		return nil, db.ConvertDBError(err)
	}
	return &b, nil
}
