// Package blog serves posts, their comments and tags, and post search.
package blog

import (
	"time"
)

// Post is a blog entry written by a user
type Post struct {
	ID            int64     `json:"id"`
	AuthorID      int64     `json:"author_id"`
	Author        string    `json:"author"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Tags          []string  `json:"tags"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	CommentsCount int       `json:"comments_count"`
	LikesCount    int       `json:"likes_count"`
}

// Comment is a reply to a post
type Comment struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"post"`
	AuthorID  int64     `json:"author_id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tag labels posts
type Tag struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	PostCount int    `json:"post_count"`
}

// PostInput is the body of post writes. Nil fields are left unchanged by
// PATCH.
type PostInput struct {
	Title   *string  `json:"title" validate:"omitnil,notblank,trimmedmin=5,max=200"`
	Content *string  `json:"content" validate:"omitnil,notblank,trimmedmin=20"`
	Tags    *TagList `json:"tags" validate:"-"`
}

// CommentInput is the body of comment writes
type CommentInput struct {
	Content *string `json:"content"`
}
