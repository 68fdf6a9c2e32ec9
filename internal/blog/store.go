package blog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/inkwell-dev/inkwell/internal/db"
	"github.com/inkwell-dev/inkwell/internal/web/query"
)

// Store persists posts, comments and tags
type Store interface {
	ListPosts(ctx context.Context, f PostFilter, page query.Page) ([]Post, int, error)
	GetPost(ctx context.Context, id int64) (*Post, error)
	CreatePost(ctx context.Context, p *Post) error
	UpdatePost(ctx context.Context, p *Post) error
	DeletePost(ctx context.Context, id int64) error

	ListComments(ctx context.Context, f CommentFilter, page query.Page) ([]Comment, int, error)
	GetComment(ctx context.Context, id int64) (*Comment, error)
	CreateComment(ctx context.Context, c *Comment) error
	UpdateComment(ctx context.Context, c *Comment) error
	DeleteComment(ctx context.Context, id int64) error

	ListTags(ctx context.Context) ([]Tag, error)
	GetTag(ctx context.Context, slug string) (*Tag, error)
}

// PostgresStore implements Store on PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store on conn
func NewPostgresStore(conn *sql.DB) *PostgresStore {
	return &PostgresStore{db: conn}
}

const (
	selectPost = `SELECT p.id, p.author_id, u.username, p.title, p.content, p.created_at, p.updated_at,
	(SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id),
	(SELECT COUNT(*) FROM likes l WHERE l.post_id = p.id)`
	postFrom = `
FROM posts p JOIN users u ON u.id = p.author_id`
)

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(s scanner) (*Post, error) {
	var p Post
	err := s.Scan(&p.ID, &p.AuthorID, &p.Author, &p.Title, &p.Content, &p.CreatedAt, &p.UpdatedAt,
		&p.CommentsCount, &p.LikesCount)
	if err != nil {
		return nil, db.ConvertDBError(err)
	}
	p.Tags = []string{}
	return &p, nil
}

// ListPosts returns one page of posts matching f with their tags
func (s *PostgresStore) ListPosts(ctx context.Context, f PostFilter, page query.Page) ([]Post, int, error) {
	where := f.Where()

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts p"+where.SQL(), where.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count posts: %w", err)
	}
	page, err := page.Resolve(total)
	if err != nil {
		return nil, total, err
	}

	limit, args := where.Paginate(page)
	rows, err := s.db.QueryContext(ctx, selectPost+postFrom+where.SQL()+f.OrderBy()+limit, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	posts := make([]Post, 0, page.Size)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, err
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := s.attachTags(ctx, posts); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// attachTags loads the tag names of every post in one query
func (s *PostgresStore) attachTags(ctx context.Context, posts []Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]int64, len(posts))
	index := make(map[int64]int, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
		index[posts[i].ID] = i
	}

	rows, err := s.db.QueryContext(ctx, `SELECT pt.post_id, t.name FROM post_tags pt
		JOIN tags t ON t.id = pt.tag_id
		WHERE pt.post_id = ANY($1) ORDER BY t.name`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to load tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var postID int64
		var name string
		if err := rows.Scan(&postID, &name); err != nil {
			return err
		}
		i := index[postID]
		posts[i].Tags = append(posts[i].Tags, name)
	}
	return rows.Err()
}

// GetPost returns the post with id and its tags
func (s *PostgresStore) GetPost(ctx context.Context, id int64) (*Post, error) {
	p, err := scanPost(s.db.QueryRowContext(ctx, selectPost+postFrom+" WHERE p.id = $1", id))
	if err != nil {
		return nil, err
	}
	posts := []Post{*p}
	if err := s.attachTags(ctx, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// CreatePost inserts p with its tags, filling ID and timestamps
func (s *PostgresStore) CreatePost(ctx context.Context, p *Post) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `INSERT INTO posts (author_id, title, content)
			VALUES ($1, $2, $3) RETURNING id, created_at, updated_at`,
			p.AuthorID, p.Title, p.Content,
		).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert post: %w", db.ConvertDBError(err))
		}
		return replaceTags(ctx, tx, p.ID, p.Tags)
	})
}

// UpdatePost writes title, content and tags of p and bumps updated_at
func (s *PostgresStore) UpdatePost(ctx context.Context, p *Post) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `UPDATE posts SET title = $1, content = $2, updated_at = NOW()
			WHERE id = $3 RETURNING updated_at`,
			p.Title, p.Content, p.ID,
		).Scan(&p.UpdatedAt)
		if err != nil {
			return db.ConvertDBError(err)
		}
		return replaceTags(ctx, tx, p.ID, p.Tags)
	})
}

func replaceTags(ctx context.Context, tx *sql.Tx, postID int64, names []string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM post_tags WHERE post_id = $1", postID); err != nil {
		return fmt.Errorf("failed to clear tags: %w", err)
	}
	for _, name := range names {
		var tagID int64
		err := tx.QueryRowContext(ctx, `INSERT INTO tags (name, slug) VALUES ($1, $2)
			ON CONFLICT (slug) DO UPDATE SET slug = EXCLUDED.slug
			RETURNING id`, name, Slugify(name)).Scan(&tagID)
		if err != nil {
			return fmt.Errorf("failed to upsert tag %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO post_tags (post_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING", postID, tagID); err != nil {
			return fmt.Errorf("failed to tag post: %w", err)
		}
	}
	return nil
}

// DeletePost removes a post; comments, likes and tag links cascade
func (s *PostgresStore) DeletePost(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "posts", id)
}

func (s *PostgresStore) deleteByID(ctx context.Context, table string, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
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

const selectComment = `SELECT c.id, c.post_id, c.author_id, u.username, c.content, c.created_at, c.updated_at
FROM comments c JOIN users u ON u.id = c.author_id`

func scanComment(s scanner) (*Comment, error) {
	var c Comment
	if err := s.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Author, &c.Content, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, db.ConvertDBError(err)
	}
	return &c, nil
}

// ListComments returns one page of comments matching f, oldest first
func (s *PostgresStore) ListComments(ctx context.Context, f CommentFilter, page query.Page) ([]Comment, int, error) {
	where := f.Where()

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM comments c"+where.SQL(), where.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count comments: %w", err)
	}
	page, err := page.Resolve(total)
	if err != nil {
		return nil, total, err
	}

	limit, args := where.Paginate(page)
	rows, err := s.db.QueryContext(ctx, selectComment+where.SQL()+" ORDER BY c.created_at ASC, c.id ASC"+limit, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	comments := make([]Comment, 0, page.Size)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, 0, err
		}
		comments = append(comments, *c)
	}
	return comments, total, rows.Err()
}

// GetComment returns the comment with id
func (s *PostgresStore) GetComment(ctx context.Context, id int64) (*Comment, error) {
	return scanComment(s.db.QueryRowContext(ctx, selectComment+" WHERE c.id = $1", id))
}

// CreateComment inserts c, filling ID and timestamps. A missing post is
// db.ErrNotFound.
func (s *PostgresStore) CreateComment(ctx context.Context, c *Comment) error {
	err := s.db.QueryRowContext(ctx, `INSERT INTO comments (post_id, author_id, content)
		VALUES ($1, $2, $3) RETURNING id, created_at, updated_at`,
		c.PostID, c.AuthorID, c.Content,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		err = db.ConvertDBError(err)
		if db.IsForeignKeyViolation(err) {
			return db.ErrNotFound
		}
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

// UpdateComment writes the content of c and bumps updated_at
func (s *PostgresStore) UpdateComment(ctx context.Context, c *Comment) error {
	err := s.db.QueryRowContext(ctx,
		"UPDATE comments SET content = $1, updated_at = NOW() WHERE id = $2 RETURNING updated_at",
		c.Content, c.ID,
	).Scan(&c.UpdatedAt)
	return db.ConvertDBError(err)
}

// DeleteComment removes a comment
func (s *PostgresStore) DeleteComment(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "comments", id)
}

const selectTag = `SELECT t.id, t.name, t.slug,
	(SELECT COUNT(*) FROM post_tags pt WHERE pt.tag_id = t.id)
FROM tags t`

// ListTags returns every tag with its post count, by name
func (s *PostgresStore) ListTags(ctx context.Context) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx, selectTag+" ORDER BY t.name")
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	tags := []Tag{}
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.PostCount); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// GetTag returns the tag with slug
func (s *PostgresStore) GetTag(ctx context.Context, slug string) (*Tag, error) {
	var t Tag
	err := s.db.QueryRowContext(ctx, selectTag+" WHERE t.slug = $1", slug).Scan(&t.ID, &t.Name, &t.Slug, &t.PostCount)
	if err != nil {
		return nil, db.ConvertDBError(err)
	}
	return &t, nil
}
