// Package social implements following users, liking posts, the personal
// feed and notifications.
package social

import "time"

// Notification verbs
const (
	VerbFollowed = "started following you"
	VerbLiked    = "liked your post"
)

// UserSummary is the public view of a user in follower lists
type UserSummary struct {
	ID             int64  `json:"id"`
	Username       string `json:"username"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	ProfilePicture string `json:"profile_picture"`
}

// Notification tells a user that someone acted on them or their content
type Notification struct {
	ID          int64     `json:"id"`
	RecipientID int64     `json:"recipient"`
	ActorID     int64     `json:"actor_id"`
	Actor       string    `json:"actor"`
	Verb        string    `json:"verb"`
	TargetType  string    `json:"target_type"`
	TargetID    *int64    `json:"target_id"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
}
