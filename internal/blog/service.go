package blog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/inkwell-dev/inkwell/internal/logging"
	"github.com/inkwell-dev/inkwell/internal/validation"
	"github.com/inkwell-dev/inkwell/internal/web/query"
)

// Field limits
const (
	MinTitleLength   = 5
	MaxTitleLength   = 200
	MinContentLength = 20
	MaxCommentLength = 1000
)

// Notification verbs and targets used by the blog
const (
	VerbCommented = "commented on your post"
	TargetPost    = "post"
)

// ErrNotAuthor is returned when someone other than the author edits or
// deletes a post or comment
var ErrNotAuthor = errors.New("only the author may change this")

// Notifier records a notification for recipientID about an action of actorID
type Notifier interface {
	Notify(ctx context.Context, recipientID, actorID int64, verb, targetType string, targetID int64) error
}

// Service implements the blog operations
type Service struct {
	store    Store
	notifier Notifier
	logger   *zap.Logger
}

// NewService creates a Service. notifier may be nil.
func NewService(store Store, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{store: store, notifier: notifier, logger: logging.OrNop(logger).Named("blog")}
}

// Store returns the underlying store
func (s *Service) Store() Store {
	return s.store
}

// ListPosts returns one page of posts matching f
func (s *Service) ListPosts(ctx context.Context, f PostFilter, page query.Page) ([]Post, int, error) {
	return s.store.ListPosts(ctx, f, page)
}

// Search returns posts whose title, content or tags contain q. An empty q
// matches nothing.
func (s *Service) Search(ctx context.Context, q string, page query.Page) ([]Post, int, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []Post{}, 0, nil
	}
	return s.store.ListPosts(ctx, PostFilter{Search: q}, page)
}

// GetPost returns one post
func (s *Service) GetPost(ctx context.Context, id int64) (*Post, error) {
	return s.store.GetPost(ctx, id)
}

// CreatePost validates in and stores a post by authorID
func (s *Service) CreatePost(ctx context.Context, authorID int64, in PostInput) (*Post, error) {
	p := &Post{AuthorID: authorID, Tags: []string{}}
	if err := applyPost(p, in, false); err != nil {
		return nil, err
	}
	if err := s.store.CreatePost(ctx, p); err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info("post created", zap.Int64("post_id", p.ID), zap.Int64("author_id", authorID))
	return s.store.GetPost(ctx, p.ID)
}

// UpdatePost replaces (partial=false) or patches a post of actorID
func (s *Service) UpdatePost(ctx context.Context, actorID, id int64, in PostInput, partial bool) (*Post, error) {
	p, err := s.store.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.AuthorID != actorID {
		return nil, ErrNotAuthor
	}
	if err := applyPost(p, in, partial); err != nil {
		return nil, err
	}
	if err := s.store.UpdatePost(ctx, p); err != nil {
		return nil, err
	}
	return s.store.GetPost(ctx, id)
}

// DeletePost removes a post of actorID
func (s *Service) DeletePost(ctx context.Context, actorID, id int64) error {
	p, err := s.store.GetPost(ctx, id)
	if err != nil {
		return err
	}
	if p.AuthorID != actorID {
		return ErrNotAuthor
	}
	if err := s.store.DeletePost(ctx, id); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("post deleted", zap.Int64("post_id", id))
	return nil
}

// applyPost copies in onto p and validates the result. On a full update
// every field is required; tags default to none.
func applyPost(p *Post, in PostInput, partial bool) error {
	in.Title = trimmed(in.Title, partial)
	in.Content = trimmed(in.Content, partial)

	errs := validation.New()
	if err := validation.ValidateWith(&in, validation.Messages{
		"title.trimmedmin":   fmt.Sprintf("Title must be at least %d characters long.", MinTitleLength),
		"content.trimmedmin": fmt.Sprintf("Content must be at least %d characters long.", MinContentLength),
	}); err != nil {
		ve, ok := validation.AsErrors(err)
		if !ok {
			return err
		}
		errs.Merge(ve)
	}

	if in.Title != nil {
		p.Title = *in.Title
	}
	if in.Content != nil {
		p.Content = *in.Content
	}
	if in.Tags != nil {
		tags, problems := NormalizeTags(*in.Tags)
		for _, msg := range problems {
			errs.Add("tags", msg)
		}
		p.Tags = tags
	} else if !partial {
		p.Tags = []string{}
	}

	return errs.Err()
}

// trimmed returns s without surrounding space. A missing value on a full
// update becomes empty so the required rule reports it.
func trimmed(s *string, partial bool) *string {
	if s == nil {
		if partial {
			return nil
		}
		empty := ""
		return &empty
	}
	v := strings.TrimSpace(*s)
	return &v
}

// ListComments returns one page of comments matching f
func (s *Service) ListComments(ctx context.Context, f CommentFilter, page query.Page) ([]Comment, int, error) {
	return s.store.ListComments(ctx, f, page)
}

// PostComments returns one page of the comments on post id
func (s *Service) PostComments(ctx context.Context, id int64, page query.Page) ([]Comment, int, error) {
	if _, err := s.store.GetPost(ctx, id); err != nil {
		return nil, 0, err
	}
	return s.store.ListComments(ctx, CommentFilter{PostID: id}, page)
}

// GetComment returns one comment
func (s *Service) GetComment(ctx context.Context, id int64) (*Comment, error) {
	return s.store.GetComment(ctx, id)
}

// AddComment stores a comment by authorID on post postID and notifies the
// post's author
func (s *Service) AddComment(ctx context.Context, authorID, postID int64, in CommentInput) (*Comment, error) {
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	content, err := cleanComment(in)
	if err != nil {
		return nil, err
	}
	c := &Comment{PostID: postID, AuthorID: authorID, Content: content}
	if err := s.store.CreateComment(ctx, c); err != nil {
		return nil, err
	}

	if s.notifier != nil && post.AuthorID != authorID {
		if err := s.notifier.Notify(ctx, post.AuthorID, authorID, VerbCommented, TargetPost, postID); err != nil {
			s.logger.Warn("failed to notify post author", zap.Int64("post_id", postID), zap.Error(err))
		}
	}
	return s.store.GetComment(ctx, c.ID)
}

// UpdateComment changes the content of a comment of actorID
func (s *Service) UpdateComment(ctx context.Context, actorID, id int64, in CommentInput, partial bool) (*Comment, error) {
	c, err := s.store.GetComment(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.AuthorID != actorID {
		return nil, ErrNotAuthor
	}
	if in.Content == nil && partial {
		return c, nil
	}
	if c.Content, err = cleanComment(in); err != nil {
		return nil, err
	}
	if err := s.store.UpdateComment(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteComment removes a comment of actorID
func (s *Service) DeleteComment(ctx context.Context, actorID, id int64) error {
	c, err := s.store.GetComment(ctx, id)
	if err != nil {
		return err
	}
	if c.AuthorID != actorID {
		return ErrNotAuthor
	}
	return s.store.DeleteComment(ctx, id)
}

func cleanComment(in CommentInput) (string, error) {
	content := ""
	if in.Content != nil {
		content = strings.TrimSpace(*in.Content)
	}
	switch {
	case content == "":
		return "", validation.Single("content", "This field is required.")
	case utf8.RuneCountInString(content) > MaxCommentLength:
		return "", validation.Single("content", "Ensure this field has no more than 1000 characters.")
	}
	return content, nil
}

// ListTags returns every tag with its post count
func (s *Service) ListTags(ctx context.Context) ([]Tag, error) {
	return s.store.ListTags(ctx)
}

// TagPosts returns one page of the posts tagged slug
func (s *Service) TagPosts(ctx context.Context, slug string, page query.Page) (*Tag, []Post, int, error) {
	tag, err := s.store.GetTag(ctx, slug)
	if err != nil {
		return nil, nil, 0, err
	}
	posts, total, err := s.store.ListPosts(ctx, PostFilter{Tag: tag.Slug}, page)
	if err != nil {
		return nil, nil, 0, err
	}
	return tag, posts, total, nil
}
