// Package catalog is the books and authors API: CRUD with filtering,
// ordering, per-author listings and cached statistics.
package catalog

// Author writes books. Books is filled on list and detail responses.
type Author struct {
	ID    int64  `json:"id"`
	Name  string `json:"name" validate:"required,max=100"`
	Books []Book `json:"books"`
}

// Book belongs to exactly one author. (Title, AuthorID) is unique.
type Book struct {
	ID              int64  `json:"id"`
	Title           string `json:"title" validate:"required,max=200"`
	PublicationYear int    `json:"publication_year" validate:"required,notfuture"`
	AuthorID        int64  `json:"author" validate:"required"`
}

// AuthorInput is the writable part of an author. Nil fields are left
// unchanged by a partial update.
type AuthorInput struct {
	Name *string `json:"name"`
}

func (in AuthorInput) applyTo(a *Author) {
	if in.Name != nil {
		a.Name = *in.Name
	}
}

// BookInput is the writable part of a book
type BookInput struct {
	Title           *string `json:"title"`
	PublicationYear *int    `json:"publication_year"`
	AuthorID        *int64  `json:"author"`
}

func (in BookInput) applyTo(b *Book) {
	if in.Title != nil {
		b.Title = *in.Title
	}
	if in.PublicationYear != nil {
		b.PublicationYear = *in.PublicationYear
	}
	if in.AuthorID != nil {
		b.AuthorID = *in.AuthorID
	}
}

// BookResult is the body returned by book create and update
type BookResult struct {
	Message string `json:"message"`
	Book    *Book  `json:"book"`
}

// AuthorBooks is the body of the per-author listing
type AuthorBooks struct {
	Author *Author `json:"author"`
	Books  []Book  `json:"books"`
	Count  int     `json:"count"`
}

// AuthorCount is an author with the number of books they wrote
type AuthorCount struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	BookCount int    `json:"book_count"`
}

// Statistics summarizes the catalog
type Statistics struct {
	TotalBooks    int            `json:"total_books"`
	TotalAuthors  int            `json:"total_authors"`
	EarliestYear  *int           `json:"earliest_year"`
	LatestYear    *int           `json:"latest_year"`
	AverageYear   *float64       `json:"average_year"`
	BooksByDecade map[string]int `json:"books_by_decade"`
	TopAuthors    []AuthorCount  `json:"top_authors"`
}
