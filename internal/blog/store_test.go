package blog

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-dev/inkwell/internal/db"
	"github.com/inkwell-dev/inkwell/internal/web/query"
)

var postColumns = []string{
	"id", "author_id", "username", "title", "content", "created_at", "updated_at", "comments", "likes",
}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		conn.Close()
	})
	return NewPostgresStore(conn), mock
}

func TestPostgresStore_ListPosts(t *testing.T) {
	store, mock := newMockStore(t)
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM posts p WHERE p.author_id = \$1`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`FROM posts p JOIN users u ON u.id = p.author_id WHERE p.author_id = \$1 ORDER BY p.created_at DESC, p.id ASC LIMIT \$2 OFFSET \$3`).
		WithArgs(int64(3), 10, 0).
		WillReturnRows(sqlmock.NewRows(postColumns).
			AddRow(8, 3, "linus", "Second", "content two", at, at, 1, 4).
			AddRow(5, 3, "linus", "First", "content one", at, at, 0, 0))
	mock.ExpectQuery(`SELECT pt.post_id, t.name FROM post_tags pt`).
		WithArgs(pq.Array([]int64{8, 5})).
		WillReturnRows(sqlmock.NewRows([]string{"post_id", "name"}).AddRow(8, "go").AddRow(8, "kernel"))

	posts, total, err := store.ListPosts(context.Background(), PostFilter{AuthorID: 3}, query.Page{Number: 1, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, posts, 2)
	assert.Equal(t, []string{"go", "kernel"}, posts[0].Tags)
	assert.Equal(t, 4, posts[0].LikesCount)
	assert.Equal(t, []string{}, posts[1].Tags)
}

func TestPostgresStore_GetPostNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`WHERE p.id = \$1`).WithArgs(int64(4)).WillReturnRows(sqlmock.NewRows(postColumns))

	_, err := store.GetPost(context.Background(), 4)
	assert.True(t, db.IsNotFound(err))
}

func TestPostgresStore_CreatePostWithTags(t *testing.T) {
	store, mock := newMockStore(t)
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO posts`).
		WithArgs(int64(1), "Hello", "content").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(9, at, at))
	mock.ExpectExec(`DELETE FROM post_tags WHERE post_id = \$1`).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`INSERT INTO tags .* ON CONFLICT \(slug\)`).
		WithArgs("Web Dev", "web-dev").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectExec(`INSERT INTO post_tags`).
		WithArgs(int64(9), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	p := &Post{AuthorID: 1, Title: "Hello", Content: "content", Tags: []string{"Web Dev"}}
	require.NoError(t, store.CreatePost(context.Background(), p))
	assert.Equal(t, int64(9), p.ID)
	assert.Equal(t, at, p.CreatedAt)
}

func TestPostgresStore_UpdatePostMissingRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE posts SET title = \$1, content = \$2, updated_at = NOW\(\)`).
		WithArgs("Title", "content", int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}))
	mock.ExpectRollback()

	err := store.UpdatePost(context.Background(), &Post{ID: 3, Title: "Title", Content: "content"})
	assert.True(t, db.IsNotFound(err))
}

func TestPostgresStore_CreateCommentMissingPost(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`INSERT INTO comments`).
		WithArgs(int64(7), int64(1), "hi").
		WillReturnError(&pq.Error{Code: "23503", Constraint: "comments_post_id_fkey"})

	err := store.CreateComment(context.Background(), &Comment{PostID: 7, AuthorID: 1, Content: "hi"})
	assert.True(t, db.IsNotFound(err))
}

func TestPostgresStore_ListComments(t *testing.T) {
	store, mock := newMockStore(t)
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM comments c WHERE c.post_id = \$1 AND c.author_id = \$2`).
		WithArgs(int64(4), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`ORDER BY c.created_at ASC, c.id ASC LIMIT \$3 OFFSET \$4`).
		WithArgs(int64(4), int64(2), 10, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "post_id", "author_id", "username", "content", "created_at", "updated_at"}).
			AddRow(1, 4, 2, "grace", "hi", at, at))

	comments, total, err := store.ListComments(context.Background(), CommentFilter{PostID: 4, AuthorID: 2}, query.Page{Number: 1, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "grace", comments[0].Author)
}

func TestPostgresStore_DeleteCommentMissing(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(`DELETE FROM comments WHERE id = \$1`).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.True(t, db.IsNotFound(store.DeleteComment(context.Background(), 5)))
}

func TestPostgresStore_ListTags(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`FROM tags t ORDER BY t.name`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "count"}).
			AddRow(1, "go", "go", 3).
			AddRow(2, "Web Dev", "web-dev", 0))

	tags, err := store.ListTags(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Tag{{1, "go", "go", 3}, {2, "Web Dev", "web-dev", 0}}, tags)
}

func TestPostFilterWhere(t *testing.T) {
	f := PostFilter{Search: "50%", AuthorID: 2, Tag: "Web Dev", FollowedBy: 7}
	w := f.Where()

	assert.Equal(t, " WHERE (p.title ILIKE $1 OR p.content ILIKE $2 OR EXISTS (SELECT 1 FROM post_tags pt JOIN tags t ON t.id = pt.tag_id\n\tWHERE pt.post_id = p.id AND t.name ILIKE $3))"+
		" AND p.author_id = $4"+
		" AND EXISTS (SELECT 1 FROM post_tags pt JOIN tags t ON t.id = pt.tag_id\n\tWHERE pt.post_id = p.id AND t.slug = $5)"+
		" AND p.author_id IN (SELECT following_id FROM follows WHERE follower_id = $6)", w.SQL())
	assert.Equal(t, []any{`%50\%%`, `%50\%%`, `%50\%%`, int64(2), "web-dev", int64(7)}, w.Args())

	assert.Equal(t, " ORDER BY p.title DESC, p.id ASC", PostFilter{Ordering: "-title"}.OrderBy())
	assert.Equal(t, " ORDER BY p.created_at DESC, p.id ASC", PostFilter{Ordering: "bogus"}.OrderBy())
}
