package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/lib/pq"

	"github.com/inkwell-dev/inkwell/internal/db"
	"github.com/inkwell-dev/inkwell/internal/web/query"
)

// Store-level errors
var (
	// ErrDuplicateBook is returned when an author already has a book with the
	// same title
	ErrDuplicateBook = errors.New("duplicate book for author")

	// ErrAuthorMissing is returned when a book refers to an unknown author
	ErrAuthorMissing = errors.New("author does not exist")
)

// Store persists authors and books
type Store interface {
	ListAuthors(ctx context.Context, f AuthorFilter, page query.Page) ([]Author, int, error)
	GetAuthor(ctx context.Context, id int64) (*Author, error)
	AuthorExists(ctx context.Context, id int64) (bool, error)
	CreateAuthor(ctx context.Context, a *Author) error
	UpdateAuthor(ctx context.Context, a *Author) error
	DeleteAuthor(ctx context.Context, id int64) error
	FindOrCreateAuthor(ctx context.Context, name string) (*Author, bool, error)

	ListBooks(ctx context.Context, f BookFilter, page query.Page) ([]Book, int, error)
	GetBook(ctx context.Context, id int64) (*Book, error)
	CreateBook(ctx context.Context, b *Book) error
	UpdateBook(ctx context.Context, b *Book) error
	DeleteBook(ctx context.Context, id int64) error
	BooksByAuthor(ctx context.Context, authorID int64) ([]Book, error)

	Statistics(ctx context.Context) (*Statistics, error)
}

// PostgresStore implements Store on PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store on conn
func NewPostgresStore(conn *sql.DB) *PostgresStore {
	return &PostgresStore{db: conn}
}

// ListAuthors returns one page of authors with their books
func (s *PostgresStore) ListAuthors(ctx context.Context, f AuthorFilter, page query.Page) ([]Author, int, error) {
	where := f.Where()

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM authors a"+where.SQL(), where.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count authors: %w", err)
	}
	page, err := page.Resolve(total)
	if err != nil {
		return nil, total, err
	}

	limit, args := where.Paginate(page)
	rows, err := s.db.QueryContext(ctx, "SELECT a.id, a.name FROM authors a"+where.SQL()+f.OrderBy()+limit, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list authors: %w", err)
	}
	defer rows.Close()

	authors := make([]Author, 0, page.Size)
	for rows.Next() {
		var a Author
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, 0, err
		}
		authors = append(authors, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := s.attachBooks(ctx, authors); err != nil {
		return nil, 0, err
	}
	return authors, total, nil
}

// attachBooks loads the books of every author in one query
func (s *PostgresStore) attachBooks(ctx context.Context, authors []Author) error {
	if len(authors) == 0 {
		return nil
	}
	ids := make([]int64, len(authors))
	index := make(map[int64]int, len(authors))
	for i := range authors {
		ids[i] = authors[i].ID
		index[authors[i].ID] = i
		authors[i].Books = []Book{}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, title, publication_year, author_id FROM books
		WHERE author_id = ANY($1) ORDER BY title, id`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to load books: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ID, &b.Title, &b.PublicationYear, &b.AuthorID); err != nil {
			return err
		}
		i := index[b.AuthorID]
		authors[i].Books = append(authors[i].Books, b)
	}
	return rows.Err()
}

// GetAuthor returns the author with id and their books
func (s *PostgresStore) GetAuthor(ctx context.Context, id int64) (*Author, error) {
	var a Author
	err := s.db.QueryRowContext(ctx, "SELECT id, name FROM authors WHERE id = $1", id).Scan(&a.ID, &a.Name)
	if err != nil {
		return nil, db.ConvertDBError(err)
	}
	authors := []Author{a}
	if err := s.attachBooks(ctx, authors); err != nil {
		return nil, err
	}
	return &authors[0], nil
}

// AuthorExists reports whether an author with id exists
func (s *PostgresStore) AuthorExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM authors WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check author: %w", err)
	}
	return exists, nil
}

// CreateAuthor inserts a and fills its ID
func (s *PostgresStore) CreateAuthor(ctx context.Context, a *Author) error {
	err := s.db.QueryRowContext(ctx, "INSERT INTO authors (name) VALUES ($1) RETURNING id", a.Name).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("failed to insert author: %w", db.ConvertDBError(err))
	}
	return nil
}

// UpdateAuthor renames a
func (s *PostgresStore) UpdateAuthor(ctx context.Context, a *Author) error {
	res, err := s.db.ExecContext(ctx, "UPDATE authors SET name = $1 WHERE id = $2", a.Name, a.ID)
	if err != nil {
		return fmt.Errorf("failed to update author: %w", db.ConvertDBError(err))
	}
	return expectOne(res)
}

// DeleteAuthor removes the author and, by cascade, their books
func (s *PostgresStore) DeleteAuthor(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM authors WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete author: %w", db.ConvertDBError(err))
	}
	return expectOne(res)
}

// FindOrCreateAuthor returns the author named exactly name, creating it when
// missing. The bool reports whether it was created.
func (s *PostgresStore) FindOrCreateAuthor(ctx context.Context, name string) (*Author, bool, error) {
	var a Author
	created := false
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, "SELECT id, name FROM authors WHERE name = $1 ORDER BY id LIMIT 1", name).
			Scan(&a.ID, &a.Name)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to look up author: %w", err)
		}
		a.Name = name
		created = true
		if err := tx.QueryRowContext(ctx, "INSERT INTO authors (name) VALUES ($1) RETURNING id", name).Scan(&a.ID); err != nil {
			return fmt.Errorf("failed to insert author: %w", db.ConvertDBError(err))
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &a, created, nil
}

const bookFrom = " FROM books b JOIN authors a ON a.id = b.author_id"

// ListBooks returns one page of books matching f
func (s *PostgresStore) ListBooks(ctx context.Context, f BookFilter, page query.Page) ([]Book, int, error) {
	where := f.Where()

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*)"+bookFrom+where.SQL(), where.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count books: %w", err)
	}
	page, err := page.Resolve(total)
	if err != nil {
		return nil, total, err
	}

	limit, args := where.Paginate(page)
	rows, err := s.db.QueryContext(ctx,
		"SELECT b.id, b.title, b.publication_year, b.author_id"+bookFrom+where.SQL()+f.OrderBy()+limit, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	books, err := scanBooks(rows, page.Size)
	if err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

func scanBooks(rows *sql.Rows, capacity int) ([]Book, error) {
	books := make([]Book, 0, capacity)
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ID, &b.Title, &b.PublicationYear, &b.AuthorID); err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// GetBook returns the book with id
func (s *PostgresStore) GetBook(ctx context.Context, id int64) (*Book, error) {
	var b Book
	err := s.db.QueryRowContext(ctx, "SELECT id, title, publication_year, author_id FROM books WHERE id = $1", id).
		Scan(&b.ID, &b.Title, &b.PublicationYear, &b.AuthorID)
	if err != nil {
		return nil, db.ConvertDBError(err)
	}
	return &b, nil
}

// bookError maps constraint violations on books to store errors
func bookError(op string, err error) error {
	err = db.ConvertDBError(err)
	switch {
	case db.IsUniqueViolation(err):
		return ErrDuplicateBook
	case db.IsForeignKeyViolation(err):
		return ErrAuthorMissing
	}
	return fmt.Errorf("failed to %s book: %w", op, err)
}

// CreateBook inserts b and fills its ID
func (s *PostgresStore) CreateBook(ctx context.Context, b *Book) error {
	err := s.db.QueryRowContext(ctx,
		"INSERT INTO books (title, publication_year, author_id) VALUES ($1, $2, $3) RETURNING id",
		b.Title, b.PublicationYear, b.AuthorID).Scan(&b.ID)
	if err != nil {
		return bookError("insert", err)
	}
	return nil
}

// UpdateBook writes every field of b
func (s *PostgresStore) UpdateBook(ctx context.Context, b *Book) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE books SET title = $1, publication_year = $2, author_id = $3 WHERE id = $4",
		b.Title, b.PublicationYear, b.AuthorID, b.ID)
	if err != nil {
		return bookError("update", err)
	}
	return expectOne(res)
}

// DeleteBook removes the book with id
func (s *PostgresStore) DeleteBook(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM books WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete book: %w", db.ConvertDBError(err))
	}
	return expectOne(res)
}

// BooksByAuthor returns every book of the author, by title
func (s *PostgresStore) BooksByAuthor(ctx context.Context, authorID int64) ([]Book, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, publication_year, author_id FROM books
		WHERE author_id = $1 ORDER BY title, id`, authorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list books by author: %w", err)
	}
	defer rows.Close()
	return scanBooks(rows, 0)
}

// Statistics aggregates the catalog. Year fields are nil when there are no
// books.
func (s *PostgresStore) Statistics(ctx context.Context) (*Statistics, error) {
	stats := &Statistics{BooksByDecade: map[string]int{}, TopAuthors: []AuthorCount{}}

	var earliest, latest sql.NullInt64
	var average sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), MIN(publication_year), MAX(publication_year), AVG(publication_year) FROM books").
		Scan(&stats.TotalBooks, &earliest, &latest, &average)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate books: %w", err)
	}
	if earliest.Valid {
		e, l := int(earliest.Int64), int(latest.Int64)
		stats.EarliestYear, stats.LatestYear = &e, &l
	}
	if average.Valid {
		avg := math.Round(average.Float64*100) / 100
		stats.AverageYear = &avg
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM authors").Scan(&stats.TotalAuthors); err != nil {
		return nil, fmt.Errorf("failed to count authors: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT publication_year, COUNT(*) FROM books GROUP BY publication_year")
	if err != nil {
		return nil, fmt.Errorf("failed to group books: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var year, n int
		if err := rows.Scan(&year, &n); err != nil {
			return nil, err
		}
		stats.BooksByDecade[DecadeOf(year)] += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	top, err := s.db.QueryContext(ctx, `SELECT a.id, a.name, COUNT(b.id) AS book_count
		FROM authors a JOIN books b ON b.author_id = a.id
		GROUP BY a.id, a.name ORDER BY book_count DESC, a.name ASC LIMIT 5`)
	if err != nil {
		return nil, fmt.Errorf("failed to rank authors: %w", err)
	}
	defer top.Close()
	for top.Next() {
		var ac AuthorCount
		if err := top.Scan(&ac.ID, &ac.Name, &ac.BookCount); err != nil {
			return nil, err
		}
		stats.TopAuthors = append(stats.TopAuthors, ac)
	}
	return stats, top.Err()
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return db.ErrNotFound
	}
	return nil
}
