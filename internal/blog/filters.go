package blog

import (
	"net/http"

	"github.com/inkwell-dev/inkwell/internal/web/query"
)

var postSorter = query.Sorter{
	Columns: map[string]string{
		"created_at": "p.created_at",
		"updated_at": "p.updated_at",
		"title":      "p.title",
	},
	Default:  "-created_at",
	Tiebreak: "p.id",
}

// PostFilter narrows post listings
type PostFilter struct {
	Search   string
	AuthorID int64
	Tag      string
	// FollowedBy keeps posts whose author is followed by this user
	FollowedBy int64
	Ordering   string
}

// ParsePostFilter reads ?search=, ?author=, ?tag= and ?ordering=
func ParsePostFilter(r *http.Request) (PostFilter, error) {
	p := query.NewParams(r)
	f := PostFilter{Search: query.Search(r), Ordering: query.Ordering(r)}
	f.AuthorID, _ = p.Int64("author")
	f.Tag, _ = p.String("tag")
	return f, p.Err()
}

const tagMatch = `EXISTS (SELECT 1 FROM post_tags pt JOIN tags t ON t.id = pt.tag_id
	WHERE pt.post_id = p.id AND `

// Where renders the filter against posts p
func (f PostFilter) Where() *query.Where {
	w := &query.Where{}
	if f.Search != "" {
		pattern := "%" + query.EscapeLike(f.Search) + "%"
		w.Add("(p.title ILIKE ? OR p.content ILIKE ? OR "+tagMatch+"t.name ILIKE ?))", pattern, pattern, pattern)
	}
	if f.AuthorID != 0 {
		w.Eq("p.author_id", f.AuthorID)
	}
	if f.Tag != "" {
		w.Add(tagMatch+"t.slug = ?)", Slugify(f.Tag))
	}
	if f.FollowedBy != 0 {
		w.Add("p.author_id IN (SELECT following_id FROM follows WHERE follower_id = ?)", f.FollowedBy)
	}
	return w
}

// OrderBy renders the requested ordering, newest first by default
func (f PostFilter) OrderBy() string {
	return postSorter.OrderBy(f.Ordering)
}

// CommentFilter narrows comment listings
type CommentFilter struct {
	PostID   int64
	AuthorID int64
}

// ParseCommentFilter reads ?post= and ?author=
func ParseCommentFilter(r *http.Request) (CommentFilter, error) {
	p := query.NewParams(r)
	var f CommentFilter
	f.PostID, _ = p.Int64("post")
	f.AuthorID, _ = p.Int64("author")
	return f, p.Err()
}

// Where renders the filter against comments c
func (f CommentFilter) Where() *query.Where {
	w := &query.Where{}
	if f.PostID != 0 {
		w.Eq("c.post_id", f.PostID)
	}
	if f.AuthorID != 0 {
		w.Eq("c.author_id", f.AuthorID)
	}
	return w
}
