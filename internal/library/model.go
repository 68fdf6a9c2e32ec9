// Package library serves libraries and their librarians, role dashboards,
// and the permission-gated bookshelf.
package library

// Library holds books and has at most one librarian
type Library struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	BookCount int         `json:"book_count"`
	Librarian *Librarian  `json:"librarian"`
	Books     []ShelfBook `json:"books,omitempty"`
}

// Librarian runs one library
type Librarian struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	LibraryID int64  `json:"library"`
}

// ShelfBook is a book with its author's name
type ShelfBook struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	AuthorID        int64  `json:"author_id"`
	PublicationYear int    `json:"publication_year"`
}

// CreateLibraryRequest is the body of POST /libraries
type CreateLibraryRequest struct {
	Name string `json:"name" validate:"required,max=50"`
}

// LibrarianRequest is the body of PUT /libraries/{id}/librarian
type LibrarianRequest struct {
	Name string `json:"name" validate:"required,max=50"`
}

// AddBookRequest is the body of POST /libraries/{id}/books
type AddBookRequest struct {
	BookID int64 `json:"book_id" validate:"required"`
}

// ShelfInput is the bookshelf form
type ShelfInput struct {
	Title           string `json:"title" validate:"required,trimmedmin=2,max=200,safetext"`
	Author          string `json:"author" validate:"required,trimmedmin=2,max=100,safetext"`
	PublicationYear *int   `json:"publication_year" validate:"required,min=1000,notfuture"`
}

// Search types accepted by the shelf
const (
	SearchAll    = "all"
	SearchTitle  = "title"
	SearchAuthor = "author"
	SearchYear   = "year"
)

// ShelfQuery is a parsed shelf search
type ShelfQuery struct {
	Query string
	Type  string
}

// QueryResults answers the sample relationship queries
type QueryResults struct {
	BooksByAuthor  []ShelfBook `json:"books_by_author"`
	BooksInLibrary []ShelfBook `json:"books_in_library"`
	Librarian      *Librarian  `json:"librarian"`
}

// Dashboard is the role-specific summary
type Dashboard struct {
	Role        string         `json:"role"`
	UsersByRole map[string]int `json:"users_by_role,omitempty"`
	Libraries   []Library      `json:"libraries"`
}
