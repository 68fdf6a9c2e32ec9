package social

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/inkwell-dev/inkwell/internal/blog"
	"github.com/inkwell-dev/inkwell/internal/logging"
	"github.com/inkwell-dev/inkwell/internal/web/query"
	"github.com/inkwell-dev/inkwell/internal/web/websocket"
)

// Errors for social actions that conflict with the current state
var (
	ErrFollowSelf       = errors.New("cannot follow yourself")
	ErrUnfollowSelf     = errors.New("cannot unfollow yourself")
	ErrAlreadyFollowing = errors.New("already following")
	ErrNotFollowing     = errors.New("not following")
	ErrAlreadyLiked     = errors.New("already liked")
	ErrNotLiked         = errors.New("not liked")
)

// TargetUser is the target type of follow notifications
const TargetUser = "user"

// Pusher delivers a real-time message to the open connections of a user
type Pusher interface {
	Push(userID int64, typ string, data any) bool
}

// Service implements the social operations
type Service struct {
	store  Store
	posts  blog.Store
	pusher Pusher
	logger *zap.Logger
}

// NewService creates a Service. posts resolves liked posts and builds the
// feed; pusher may be nil.
func NewService(store Store, posts blog.Store, pusher Pusher, logger *zap.Logger) *Service {
	return &Service{store: store, posts: posts, pusher: pusher, logger: logging.OrNop(logger).Named("social")}
}

// Follow makes actorID follow targetID and returns the confirmation
func (s *Service) Follow(ctx context.Context, actorID, targetID int64) (string, error) {
	target, err := s.store.GetUser(ctx, targetID)
	if err != nil {
		return "", err
	}
	if actorID == targetID {
		return "", ErrFollowSelf
	}
	added, err := s.store.Follow(ctx, actorID, targetID)
	if err != nil {
		return "", err
	}
	if !added {
		return "", ErrAlreadyFollowing
	}
	s.notify(ctx, targetID, actorID, VerbFollowed, TargetUser, actorID)
	return fmt.Sprintf("You are now following %s.", target.Username), nil
}

// Unfollow makes actorID stop following targetID and returns the
// confirmation
func (s *Service) Unfollow(ctx context.Context, actorID, targetID int64) (string, error) {
	target, err := s.store.GetUser(ctx, targetID)
	if err != nil {
		return "", err
	}
	if actorID == targetID {
		return "", ErrUnfollowSelf
	}
	removed, err := s.store.Unfollow(ctx, actorID, targetID)
	if err != nil {
		return "", err
	}
	if !removed {
		return "", ErrNotFollowing
	}
	return fmt.Sprintf("You have unfollowed %s.", target.Username), nil
}

// Followers returns one page of the users following userID
func (s *Service) Followers(ctx context.Context, userID int64, page query.Page) ([]UserSummary, int, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, 0, err
	}
	return s.store.Followers(ctx, userID, page)
}

// Following returns one page of the users userID follows
func (s *Service) Following(ctx context.Context, userID int64, page query.Page) ([]UserSummary, int, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, 0, err
	}
	return s.store.Following(ctx, userID, page)
}

// Feed returns one page of posts by the users userID follows, newest first
func (s *Service) Feed(ctx context.Context, userID int64, page query.Page) ([]blog.Post, int, error) {
	return s.posts.ListPosts(ctx, blog.PostFilter{FollowedBy: userID}, page)
}

// Like records that userID likes postID and notifies the post's author
func (s *Service) Like(ctx context.Context, userID, postID int64) error {
	post, err := s.posts.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	added, err := s.store.Like(ctx, userID, postID)
	if err != nil {
		return err
	}
	if !added {
		return ErrAlreadyLiked
	}
	if post.AuthorID != userID {
		s.notify(ctx, post.AuthorID, userID, VerbLiked, blog.TargetPost, postID)
	}
	return nil
}

// Unlike removes the like of userID on postID
func (s *Service) Unlike(ctx context.Context, userID, postID int64) error {
	if _, err := s.posts.GetPost(ctx, postID); err != nil {
		return err
	}
	removed, err := s.store.Unlike(ctx, userID, postID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotLiked
	}
	return nil
}

// Notify stores a notification and pushes it to the recipient's open
// connections
func (s *Service) Notify(ctx context.Context, recipientID, actorID int64, verb, targetType string, targetID int64) error {
	n := &Notification{RecipientID: recipientID, ActorID: actorID, Verb: verb, TargetType: targetType, TargetID: &targetID}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return err
	}
	if s.pusher != nil && s.pusher.Push(recipientID, websocket.TypeNotification, n) {
		s.logger.Debug("notification pushed", zap.Int64("recipient_id", recipientID), zap.Int64("notification_id", n.ID))
	}
	return nil
}

// notify records a notification for a completed action. Failures are logged
// and do not undo the action.
func (s *Service) notify(ctx context.Context, recipientID, actorID int64, verb, targetType string, targetID int64) {
	if err := s.Notify(ctx, recipientID, actorID, verb, targetType, targetID); err != nil {
		s.logger.Warn("failed to create notification",
			zap.Int64("recipient_id", recipientID), zap.String("verb", verb), zap.Error(err))
	}
}

// Notifications returns one page of userID's notifications and the number
// still unread
func (s *Service) Notifications(ctx context.Context, userID int64, page query.Page) ([]Notification, int, int, error) {
	list, total, err := s.store.ListNotifications(ctx, userID, page)
	if err != nil {
		return nil, 0, 0, err
	}
	unread, err := s.store.UnreadCount(ctx, userID)
	if err != nil {
		return nil, 0, 0, err
	}
	return list, total, unread, nil
}

// MarkRead marks one notification of userID as read
func (s *Service) MarkRead(ctx context.Context, userID, id int64) error {
	return s.store.MarkRead(ctx, userID, id)
}

// MarkAllRead marks every notification of userID as read
func (s *Service) MarkAllRead(ctx context.Context, userID int64) (int, error) {
	return s.store.MarkAllRead(ctx, userID)
}
