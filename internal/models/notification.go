package models

import "time"

// Notification types emitted on lifecycle transitions.
const (
	NotificationAchievementSubmitted = "achievement_submitted"
	NotificationAchievementApproved  = "achievement_approved"
	NotificationAchievementRejected  = "achievement_rejected"
	NotificationEventCompleted       = "event_completed"
	NotificationBadgeEarned          = "badge_earned"
	NotificationMentorAssigned       = "mentor_assigned"
)

// Notification is a persisted fire-and-forget message to a user.
type Notification struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	Type       string    `db:"type" json:"type"`
	Title      string    `db:"title" json:"title"`
	Body       string    `db:"body" json:"body"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	Read       bool      `db:"read" json:"read"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
