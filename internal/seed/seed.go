// Package seed loads sample accounts, books, libraries, posts and follows
// through the feature services, so every write is validated. Running it
// twice leaves existing rows alone.
package seed

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/inkwell-dev/inkwell/internal/accounts"
	"github.com/inkwell-dev/inkwell/internal/blog"
	"github.com/inkwell-dev/inkwell/internal/library"
	"github.com/inkwell-dev/inkwell/internal/logging"
	"github.com/inkwell-dev/inkwell/internal/social"
	"github.com/inkwell-dev/inkwell/internal/validation"
	"github.com/inkwell-dev/inkwell/internal/web/auth"
)

// Accounts creates and finds users
type Accounts interface {
	SetupGroups(ctx context.Context) ([]accounts.GroupSetup, error)
	CreateUser(ctx context.Context, in accounts.CreateUserInput) (*accounts.User, error)
	UserByUsername(ctx context.Context, username string) (*accounts.User, error)
}

// Libraries creates libraries and shelves books
type Libraries interface {
	ListLibraries(ctx context.Context) ([]library.Library, error)
	CreateLibrary(ctx context.Context, req library.CreateLibraryRequest) (*library.Library, error)
	AddBook(ctx context.Context, id int64, req library.AddBookRequest) (*library.Library, error)
	SetLibrarian(ctx context.Context, id int64, req library.LibrarianRequest) (*library.Librarian, error)
	CreateShelfBook(ctx context.Context, in library.ShelfInput) (*library.ShelfResult, error)
}

// Posts creates blog posts
type Posts interface {
	CreatePost(ctx context.Context, authorID int64, in blog.PostInput) (*blog.Post, error)
}

// Follows records follows
type Follows interface {
	Follow(ctx context.Context, actorID, targetID int64) (string, error)
}

// DefaultPassword is used for seeded accounts when none is given
const DefaultPassword = "inkwell-sample-pass"

// Options control the amount of sample data
type Options struct {
	// Readers is the number of member accounts to create
	Readers  int
	Password string
}

// Report counts what a run created
type Report struct {
	Groups    int
	Users     int
	Books     int
	Libraries int
	Posts     int
	Follows   int
}

// Seeder writes the sample data
type Seeder struct {
	accounts  Accounts
	libraries Libraries
	posts     Posts
	follows   Follows
	logger    *zap.Logger
}

// New creates a Seeder
func New(a Accounts, l Libraries, p Posts, f Follows, logger *zap.Logger) *Seeder {
	return &Seeder{accounts: a, libraries: l, posts: p, follows: f, logger: logging.OrNop(logger).Named("seed")}
}

type sampleBook struct {
	title  string
	author string
	year   int
}

var sampleBooks = []sampleBook{
	{"Things Fall Apart", "Chinua Achebe", 1958},
	{"Arrow of God", "Chinua Achebe", 1964},
	{"Song of Solomon", "Toni Morrison", 1977},
	{"Beloved", "Toni Morrison", 1987},
	{"The Left Hand of Darkness", "Ursula K. Le Guin", 1969},
	{"The Dispossessed", "Ursula K. Le Guin", 1974},
	{"Kindred", "Octavia E. Butler", 1979},
	{"Parable of the Sower", "Octavia E. Butler", 1993},
	{"Invisible Cities", "Italo Calvino", 1972},
	{"Pedro Páramo", "Juan Rulfo", 1955},
}

type sampleLibrary struct {
	name      string
	librarian string
}

var sampleLibraries = []sampleLibrary{
	{"Central Library", "Margaret Hale"},
	{"Riverside Branch", "Tomás Ortega"},
}

// ReaderName returns the username of the nth seeded reader, from 1
func ReaderName(n int) string {
	return fmt.Sprintf("reader%d", n)
}

// Run seeds everything in dependency order
func (s *Seeder) Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.Password == "" {
		opts.Password = DefaultPassword
	}
	rep := &Report{}

	setup, err := s.accounts.SetupGroups(ctx)
	if err != nil {
		return rep, fmt.Errorf("failed to set up groups: %w", err)
	}
	for _, g := range setup {
		if g.Created {
			rep.Groups++
		}
	}

	inputs := []accounts.CreateUserInput{
		{Username: "admin", Role: auth.RoleAdmin, IsStaff: true, Groups: []string{auth.GroupAdmins}},
		{Username: "librarian", Role: auth.RoleLibrarian, Groups: []string{auth.GroupEditors}},
	}
	for i := 1; i <= opts.Readers; i++ {
		inputs = append(inputs, accounts.CreateUserInput{
			Username: ReaderName(i),
			Role:     auth.RoleMember,
			Groups:   []string{auth.GroupViewers},
		})
	}

	var created []*accounts.User
	var all []*accounts.User
	for _, in := range inputs {
		in.Email = in.Username + "@inkwell.example"
		in.Password = opts.Password
		u, isNew, err := s.user(ctx, in)
		if err != nil {
			return rep, err
		}
		all = append(all, u)
		if isNew {
			created = append(created, u)
			rep.Users++
		}
	}

	shelved, err := s.seedBooks(ctx, rep)
	if err != nil {
		return rep, err
	}
	if err := s.seedLibraries(ctx, shelved, rep); err != nil {
		return rep, err
	}
	if err := s.seedPosts(ctx, created, rep); err != nil {
		return rep, err
	}
	if err := s.seedFollows(ctx, all, rep); err != nil {
		return rep, err
	}

	s.logger.Info("seed complete",
		zap.Int("users", rep.Users),
		zap.Int("books", rep.Books),
		zap.Int("posts", rep.Posts),
		zap.Int("follows", rep.Follows),
	)
	return rep, nil
}

func (s *Seeder) user(ctx context.Context, in accounts.CreateUserInput) (*accounts.User, bool, error) {
	u, err := s.accounts.CreateUser(ctx, in)
	if err == nil {
		return u, true, nil
	}
	if !errors.Is(err, accounts.ErrUsernameTaken) {
		return nil, false, fmt.Errorf("failed to create user %s: %w", in.Username, err)
	}
	u, err = s.accounts.UserByUsername(ctx, in.Username)
	if err != nil {
		return nil, false, err
	}
	return u, false, nil
}

// seedBooks shelves the sample books and returns the ids of the new ones
func (s *Seeder) seedBooks(ctx context.Context, rep *Report) ([]int64, error) {
	var ids []int64
	for _, b := range sampleBooks {
		year := b.year
		res, err := s.libraries.CreateShelfBook(ctx, library.ShelfInput{Title: b.title, Author: b.author, PublicationYear: &year})
		if err != nil {
			if errs, ok := validation.AsErrors(err); ok && errs.Has(validation.NonFieldErrors) {
				continue
			}
			return ids, fmt.Errorf("failed to create book %q: %w", b.title, err)
		}
		ids = append(ids, res.Book.ID)
		rep.Books++
	}
	return ids, nil
}

// seedLibraries creates missing libraries, assigns librarians and spreads the
// new books across them
func (s *Seeder) seedLibraries(ctx context.Context, bookIDs []int64, rep *Report) error {
	existing, err := s.libraries.ListLibraries(ctx)
	if err != nil {
		return err
	}
	byName := make(map[string]int64, len(existing))
	for _, l := range existing {
		byName[l.Name] = l.ID
	}

	ids := make([]int64, len(sampleLibraries))
	for i, sample := range sampleLibraries {
		id, ok := byName[sample.name]
		if !ok {
			l, err := s.libraries.CreateLibrary(ctx, library.CreateLibraryRequest{Name: sample.name})
			if err != nil {
				return fmt.Errorf("failed to create library %q: %w", sample.name, err)
			}
			id = l.ID
			rep.Libraries++
		}
		ids[i] = id
		if _, err := s.libraries.SetLibrarian(ctx, id, library.LibrarianRequest{Name: sample.librarian}); err != nil {
			return err
		}
	}

	for i, bookID := range bookIDs {
		if _, err := s.libraries.AddBook(ctx, ids[i%len(ids)], library.AddBookRequest{BookID: bookID}); err != nil {
			return err
		}
	}
	return nil
}

// seedPosts gives each new user one introductory post
func (s *Seeder) seedPosts(ctx context.Context, users []*accounts.User, rep *Report) error {
	for _, u := range users {
		title := "Notes from " + u.Username
		content := fmt.Sprintf("%s has joined Inkwell and will be sharing reading notes here.", u.Username)
		tags := blog.TagList{"introductions", u.Role}
		if _, err := s.posts.CreatePost(ctx, u.ID, blog.PostInput{Title: &title, Content: &content, Tags: &tags}); err != nil {
			return fmt.Errorf("failed to create post for %s: %w", u.Username, err)
		}
		rep.Posts++
	}
	return nil
}

// seedFollows makes every reader follow the librarian and the reader before them
func (s *Seeder) seedFollows(ctx context.Context, users []*accounts.User, rep *Report) error {
	var librarian *accounts.User
	var readers []*accounts.User
	for _, u := range users {
		switch u.Role {
		case auth.RoleLibrarian:
			librarian = u
		case auth.RoleMember:
			readers = append(readers, u)
		}
	}

	follow := func(actor, target *accounts.User) error {
		if actor == nil || target == nil {
			return nil
		}
		_, err := s.follows.Follow(ctx, actor.ID, target.ID)
		switch {
		case err == nil:
			rep.Follows++
		case errors.Is(err, social.ErrAlreadyFollowing):
		default:
			return fmt.Errorf("failed to follow %s: %w", target.Username, err)
		}
		return nil
	}

	for i, r := range readers {
		if err := follow(r, librarian); err != nil {
			return err
		}
		if i > 0 {
			if err := follow(r, readers[i-1]); err != nil {
				return err
			}
		}
	}
	return nil
}
