package social

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/inkwell-dev/inkwell/internal/db"
	"github.com/inkwell-dev/inkwell/internal/web/query"
)

// Store persists follows, likes and notifications
type Store interface {
	GetUser(ctx context.Context, id int64) (*UserSummary, error)
	Follow(ctx context.Context, followerID, followingID int64) (bool, error)
	Unfollow(ctx context.Context, followerID, followingID int64) (bool, error)
	Followers(ctx context.Context, userID int64, page query.Page) ([]UserSummary, int, error)
	Following(ctx context.Context, userID int64, page query.Page) ([]UserSummary, int, error)

	Like(ctx context.Context, userID, postID int64) (bool, error)
	Unlike(ctx context.Context, userID, postID int64) (bool, error)

	CreateNotification(ctx context.Context, n *Notification) error
	ListNotifications(ctx context.Context, recipientID int64, page query.Page) ([]Notification, int, error)
	UnreadCount(ctx context.Context, recipientID int64) (int, error)
	MarkRead(ctx context.Context, recipientID, id int64) error
	MarkAllRead(ctx context.Context, recipientID int64) (int, error)
}

// PostgresStore implements Store on PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store on conn
func NewPostgresStore(conn *sql.DB) *PostgresStore {
	return &PostgresStore{db: conn}
}

const selectSummary = "SELECT u.id, u.username, u.first_name, u.last_name, u.profile_picture FROM users u"

// GetUser returns the summary of an active user
func (s *PostgresStore) GetUser(ctx context.Context, id int64) (*UserSummary, error) {
	var u UserSummary
	err := s.db.QueryRowContext(ctx, selectSummary+" WHERE u.id = $1 AND u.is_active", id).
		Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.ProfilePicture)
	if err != nil {
		return nil, db.ConvertDBError(err)
	}
	return &u, nil
}

// changed runs a write and reports whether it touched a row. Foreign key
// violations become db.ErrNotFound.
func (s *PostgresStore) changed(ctx context.Context, q string, args ...any) (bool, error) {
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		err = db.ConvertDBError(err)
		if db.IsForeignKeyViolation(err) {
			return false, db.ErrNotFound
		}
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Follow records that followerID follows followingID. It reports false when
// the follow already existed.
func (s *PostgresStore) Follow(ctx context.Context, followerID, followingID int64) (bool, error) {
	return s.changed(ctx, `INSERT INTO follows (follower_id, following_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, followerID, followingID)
}

// Unfollow removes a follow and reports whether it existed
func (s *PostgresStore) Unfollow(ctx context.Context, followerID, followingID int64) (bool, error) {
	return s.changed(ctx, "DELETE FROM follows WHERE follower_id = $1 AND following_id = $2", followerID, followingID)
}

func (s *PostgresStore) summaries(ctx context.Context, join, match string, userID int64, page query.Page) ([]UserSummary, int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM follows f WHERE f."+match+" = $1", userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count follows: %w", err)
	}
	page, err = page.Resolve(total)
	if err != nil {
		return nil, total, err
	}

	rows, err := s.db.QueryContext(ctx, selectSummary+" JOIN follows f ON f."+join+" = u.id WHERE f."+match+
		" = $1 ORDER BY f.created_at DESC, u.id ASC LIMIT $2 OFFSET $3", userID, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list follows: %w", err)
	}
	defer rows.Close()

	users := make([]UserSummary, 0, page.Size)
	for rows.Next() {
		var u UserSummary
		if err := rows.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.ProfilePicture); err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// Followers returns one page of the users following userID, newest first
func (s *PostgresStore) Followers(ctx context.Context, userID int64, page query.Page) ([]UserSummary, int, error) {
	return s.summaries(ctx, "follower_id", "following_id", userID, page)
}

// Following returns one page of the users userID follows, newest first
func (s *PostgresStore) Following(ctx context.Context, userID int64, page query.Page) ([]UserSummary, int, error) {
	return s.summaries(ctx, "following_id", "follower_id", userID, page)
}

// Like records a like and reports false when it already existed. A missing
// post is db.ErrNotFound.
func (s *PostgresStore) Like(ctx context.Context, userID, postID int64) (bool, error) {
	return s.changed(ctx, "INSERT INTO likes (user_id, post_id) VALUES ($1, $2) ON CONFLICT DO NOTHING", userID, postID)
}

// Unlike removes a like and reports whether it existed
func (s *PostgresStore) Unlike(ctx context.Context, userID, postID int64) (bool, error) {
	return s.changed(ctx, "DELETE FROM likes WHERE user_id = $1 AND post_id = $2", userID, postID)
}

// CreateNotification inserts n, filling ID, CreatedAt and the actor's
// username
func (s *PostgresStore) CreateNotification(ctx context.Context, n *Notification) error {
	err := s.db.QueryRowContext(ctx, `INSERT INTO notifications (recipient_id, actor_id, verb, target_type, target_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, (SELECT username FROM users WHERE id = $2)`,
		n.RecipientID, n.ActorID, n.Verb, n.TargetType, n.TargetID,
	).Scan(&n.ID, &n.CreatedAt, &n.Actor)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", db.ConvertDBError(err))
	}
	return nil
}

// ListNotifications returns one page of notifications for recipientID,
// unread first then newest
func (s *PostgresStore) ListNotifications(ctx context.Context, recipientID int64, page query.Page) ([]Notification, int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM notifications WHERE recipient_id = $1", recipientID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	page, err = page.Resolve(total)
	if err != nil {
		return nil, total, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT n.id, n.recipient_id, n.actor_id, u.username, n.verb,
		n.target_type, n.target_id, n.read, n.created_at
		FROM notifications n JOIN users u ON u.id = n.actor_id
		WHERE n.recipient_id = $1
		ORDER BY n.read ASC, n.created_at DESC, n.id DESC
		LIMIT $2 OFFSET $3`, recipientID, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	out := make([]Notification, 0, page.Size)
	for rows.Next() {
		var n Notification
		var target sql.NullInt64
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.ActorID, &n.Actor, &n.Verb,
			&n.TargetType, &target, &n.Read, &n.CreatedAt); err != nil {
			return nil, 0, err
		}
		if target.Valid {
			n.TargetID = &target.Int64
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

// UnreadCount returns how many notifications of recipientID are unread
func (s *PostgresStore) UnreadCount(ctx context.Context, recipientID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND NOT read", recipientID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return n, nil
}

// MarkRead marks one notification of recipientID as read. Notifications of
// other users are db.ErrNotFound.
func (s *PostgresStore) MarkRead(ctx context.Context, recipientID, id int64) error {
	ok, err := s.changed(ctx, "UPDATE notifications SET read = TRUE WHERE id = $1 AND recipient_id = $2", id, recipientID)
	if err != nil {
		return err
	}
	if !ok {
		return db.ErrNotFound
	}
	return nil
}

// MarkAllRead marks every unread notification of recipientID as read and
// returns how many changed
func (s *PostgresStore) MarkAllRead(ctx context.Context, recipientID int64) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET read = TRUE WHERE recipient_id = $1 AND NOT read", recipientID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}
