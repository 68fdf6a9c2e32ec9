package library

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-dev/inkwell/internal/catalog"
	"github.com/inkwell-dev/inkwell/internal/db"
	"github.com/inkwell-dev/inkwell/internal/validation"
	"github.com/inkwell-dev/inkwell/internal/web/auth"
	"github.com/inkwell-dev/inkwell/internal/web/query"
)

type staticRoles map[string]int

func (s staticRoles) CountByRole(context.Context) (map[string]int, error) {
	return s, nil
}

func fixedYear(t *testing.T, year int) {
	t.Helper()
	prev := validation.CurrentYear
	validation.CurrentYear = func() int { return year }
	t.Cleanup(func() { validation.CurrentYear = prev })
}

func intPtr(v int) *int { return &v }

func newTestService(t *testing.T) (*Service, *world) {
	t.Helper()
	fixedYear(t, 2024)
	w := newWorld()
	books := catalog.NewService(w.bookStore(), nil, nil)
	roles := staticRoles{auth.RoleAdmin: 1, auth.RoleLibrarian: 2, auth.RoleMember: 5}
	return NewService(w, books, roles, nil), w
}

func fieldErrors(t *testing.T, err error) map[string][]string {
	t.Helper()
	ve, ok := validation.AsErrors(err)
	require.True(t, ok, "expected validation errors, got %v", err)
	return ve.Fields
}

func TestService_CreateLibrary(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	l, err := svc.CreateLibrary(ctx, CreateLibraryRequest{Name: "  Central  "})
	require.NoError(t, err)
	assert.Equal(t, "Central", l.Name)
	assert.NotZero(t, l.ID)

	_, err = svc.CreateLibrary(ctx, CreateLibraryRequest{Name: "   "})
	assert.Equal(t, []string{"This field is required."}, fieldErrors(t, err)["name"])
}

func TestService_AddAndRemoveBook(t *testing.T) {
	svc, w := newTestService(t)
	ctx := context.Background()
	author := w.addAuthor("Ursula K. Le Guin")
	book := w.addBook("The Dispossessed", 1974, author)
	l, err := svc.CreateLibrary(ctx, CreateLibraryRequest{Name: "Central"})
	require.NoError(t, err)

	got, err := svc.AddBook(ctx, l.ID, AddBookRequest{BookID: book})
	require.NoError(t, err)
	assert.Equal(t, 1, got.BookCount)
	require.Len(t, got.Books, 1)
	assert.Equal(t, "Ursula K. Le Guin", got.Books[0].Author)

	// adding twice keeps one copy
	got, err = svc.AddBook(ctx, l.ID, AddBookRequest{BookID: book})
	require.NoError(t, err)
	assert.Equal(t, 1, got.BookCount)

	_, err = svc.AddBook(ctx, l.ID, AddBookRequest{BookID: 999})
	assert.Equal(t, []string{`Invalid pk "999" - object does not exist.`}, fieldErrors(t, err)["book_id"])

	_, err = svc.AddBook(ctx, 999, AddBookRequest{BookID: book})
	assert.True(t, errors.Is(err, db.ErrNotFound))

	require.NoError(t, svc.RemoveBook(ctx, l.ID, book))
	assert.True(t, errors.Is(svc.RemoveBook(ctx, l.ID, book), db.ErrNotFound))
}

func TestService_SetLibrarianReplaces(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	l, err := svc.CreateLibrary(ctx, CreateLibraryRequest{Name: "Central"})
	require.NoError(t, err)

	first, err := svc.SetLibrarian(ctx, l.ID, LibrarianRequest{Name: "Grace"})
	require.NoError(t, err)
	second, err := svc.SetLibrarian(ctx, l.ID, LibrarianRequest{Name: "Barbara"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	got, err := svc.GetLibrary(ctx, l.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Librarian)
	assert.Equal(t, "Barbara", got.Librarian.Name)

	_, err = svc.SetLibrarian(ctx, 999, LibrarianRequest{Name: "Nobody"})
	assert.True(t, errors.Is(err, db.ErrNotFound))
}

func TestService_Queries(t *testing.T) {
	svc, w := newTestService(t)
	ctx := context.Background()
	author := w.addAuthor("Octavia Butler")
	kindred := w.addBook("Kindred", 1979, author)
	w.addBook("Dawn", 1987, author)
	l, err := svc.CreateLibrary(ctx, CreateLibraryRequest{Name: "Branch"})
	require.NoError(t, err)
	_, err = svc.AddBook(ctx, l.ID, AddBookRequest{BookID: kindred})
	require.NoError(t, err)

	res, err := svc.Queries(ctx, "Octavia Butler", "Branch")
	require.NoError(t, err)
	assert.Len(t, res.BooksByAuthor, 2)
	assert.Equal(t, "Dawn", res.BooksByAuthor[0].Title)
	require.Len(t, res.BooksInLibrary, 1)
	assert.Equal(t, "Kindred", res.BooksInLibrary[0].Title)
	assert.Nil(t, res.Librarian)

	_, err = svc.SetLibrarian(ctx, l.ID, LibrarianRequest{Name: "Grace"})
	require.NoError(t, err)
	res, err = svc.Queries(ctx, "", "Branch")
	require.NoError(t, err)
	assert.Empty(t, res.BooksByAuthor)
	require.NotNil(t, res.Librarian)
	assert.Equal(t, "Grace", res.Librarian.Name)
}

func TestDashboardPath(t *testing.T) {
	assert.Equal(t, "admin", DashboardPath(auth.RoleAdmin))
	assert.Equal(t, "librarian", DashboardPath(auth.RoleLibrarian))
	assert.Equal(t, "member", DashboardPath(auth.RoleMember))
	assert.Equal(t, "member", DashboardPath(""))
}

func TestService_Dashboard(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	l, err := svc.CreateLibrary(ctx, CreateLibraryRequest{Name: "Central"})
	require.NoError(t, err)
	_, err = svc.SetLibrarian(ctx, l.ID, LibrarianRequest{Name: "Grace"})
	require.NoError(t, err)

	admin, err := svc.Dashboard(ctx, auth.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, 5, admin.UsersByRole[auth.RoleMember])
	require.Len(t, admin.Libraries, 1)
	assert.NotNil(t, admin.Libraries[0].Librarian)

	librarian, err := svc.Dashboard(ctx, auth.RoleLibrarian)
	require.NoError(t, err)
	assert.Nil(t, librarian.UsersByRole)
	assert.NotNil(t, librarian.Libraries[0].Librarian)

	member, err := svc.Dashboard(ctx, auth.RoleMember)
	require.NoError(t, err)
	assert.Nil(t, member.UsersByRole)
	assert.Nil(t, member.Libraries[0].Librarian)
}

func TestService_CreateShelfBook(t *testing.T) {
	svc, w := newTestService(t)
	ctx := context.Background()

	res, err := svc.CreateShelfBook(ctx, ShelfInput{Title: " Beloved ", Author: "Toni Morrison", PublicationYear: intPtr(1987)})
	require.NoError(t, err)
	assert.Equal(t, `Book "Beloved" created successfully.`, res.Message)
	assert.Equal(t, "Toni Morrison", res.Book.Author)
	assert.Len(t, w.authors, 1)

	// the author is reused by name
	_, err = svc.CreateShelfBook(ctx, ShelfInput{Title: "Jazz", Author: "Toni Morrison", PublicationYear: intPtr(1992)})
	require.NoError(t, err)
	assert.Len(t, w.authors, 1)

	_, err = svc.CreateShelfBook(ctx, ShelfInput{Title: "Beloved", Author: "Toni Morrison", PublicationYear: intPtr(1987)})
	ve, ok := validation.AsErrors(err)
	require.True(t, ok)
	assert.Equal(t, []string{catalog.MsgNotUnique}, ve.Fields[validation.NonFieldErrors])
}

func TestService_CreateShelfBookValidation(t *testing.T) {
	svc, w := newTestService(t)

	_, err := svc.CreateShelfBook(context.Background(), ShelfInput{Title: "X", Author: "Y", PublicationYear: intPtr(999)})
	fields := fieldErrors(t, err)
	assert.Equal(t, []string{"Title must be at least 2 characters long."}, fields["title"])
	assert.Equal(t, []string{"Author name must be at least 2 characters long."}, fields["author"])
	assert.Equal(t, []string{"Publication year must be after 1000"}, fields["publication_year"])
	assert.Empty(t, w.authors)
}

func TestService_RejectedShelfWriteKeepsAuthors(t *testing.T) {
	svc, w := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateShelfBook(ctx, ShelfInput{Title: strings.Repeat("a", 201), Author: "New Author", PublicationYear: intPtr(1990)})
	assert.Equal(t, []string{"Ensure this field has no more than 200 characters."}, fieldErrors(t, err)["title"])
	assert.Empty(t, w.authors)

	w.bookWriteErr = errors.New("connection reset")
	_, err = svc.CreateShelfBook(ctx, ShelfInput{Title: "Kindred", Author: "Octavia E. Butler", PublicationYear: intPtr(1979)})
	require.Error(t, err)
	assert.Empty(t, w.authors)

	existing := w.addAuthor("Iain Banks")
	id := w.addBook("Excession", 1996, existing)
	_, err = svc.UpdateShelfBook(ctx, id, ShelfInput{Title: strings.Repeat("b", 201), Author: "Iain M. Banks", PublicationYear: intPtr(1996)})
	require.Error(t, err)
	w.bookWriteErr = errors.New("connection reset")
	_, err = svc.UpdateShelfBook(ctx, id, ShelfInput{Title: "Excession", Author: "Iain M. Banks", PublicationYear: intPtr(1996)})
	require.Error(t, err)
	assert.Len(t, w.authors, 1)
	assert.Contains(t, w.authors, existing)
}

func TestService_UpdateAndDeleteShelfBook(t *testing.T) {
	svc, w := newTestService(t)
	ctx := context.Background()
	author := w.addAuthor("Iain Banks")
	id := w.addBook("Excesion", 1996, author)

	res, err := svc.UpdateShelfBook(ctx, id, ShelfInput{Title: "Excession", Author: "Iain M. Banks", PublicationYear: intPtr(1996)})
	require.NoError(t, err)
	assert.Equal(t, "Excession", res.Book.Title)
	assert.Equal(t, "Iain M. Banks", res.Book.Author)
	assert.Len(t, w.authors, 2)

	_, err = svc.UpdateShelfBook(ctx, 999, ShelfInput{Title: "Nope", Author: "Nobody", PublicationYear: intPtr(2000)})
	assert.True(t, errors.Is(err, db.ErrNotFound))

	msg, err := svc.DeleteShelfBook(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, `Book "Excession" deleted successfully.`, msg)
	_, err = svc.ShelfBook(ctx, id)
	assert.True(t, errors.Is(err, db.ErrNotFound))
}

func TestService_SearchShelf(t *testing.T) {
	svc, w := newTestService(t)
	le := w.addAuthor("Ursula K. Le Guin")
	w.addBook("The Lathe of Heaven", 1971, le)
	w.addBook("The Dispossessed", 1974, le)
	w.addBook("Neuromancer", 1984, w.addAuthor("William Gibson"))

	tests := []struct {
		name  string
		q     ShelfQuery
		total int
	}{
		{"empty", ShelfQuery{Type: SearchAll}, 3},
		{"all matches title", ShelfQuery{Query: "neuro", Type: SearchAll}, 1},
		{"all matches author", ShelfQuery{Query: "guin", Type: SearchAll}, 2},
		{"title only", ShelfQuery{Query: "guin", Type: SearchTitle}, 0},
		{"author", ShelfQuery{Query: "gibson", Type: SearchAuthor}, 1},
		{"year", ShelfQuery{Query: "1974", Type: SearchYear}, 1},
		{"bad year", ShelfQuery{Query: "nineteen", Type: SearchYear}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			books, total, err := svc.SearchShelf(context.Background(), tt.q, query.Page{Number: 1, Size: ShelfPageSize})
			require.NoError(t, err)
			assert.Equal(t, tt.total, total)
			assert.Len(t, books, tt.total)
		})
	}
}
