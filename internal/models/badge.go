package models

import (
	"time"

	"github.com/lib/pq"
)

// BadgeCriteriaType enumerates the supported badge criteria.
type BadgeCriteriaType string

const (
	CriteriaAchievementCount   BadgeCriteriaType = "achievement_count"
	CriteriaCreditThreshold    BadgeCriteriaType = "credit_threshold"
	CriteriaEventParticipation BadgeCriteriaType = "event_participation"
	CriteriaSkillBased         BadgeCriteriaType = "skill_based"
)

// Badge is reference data. Badges are evaluated against student aggregates,
// never assigned directly by a user action.
type Badge struct {
	ID             string            `db:"id" json:"id"`
	Name           string            `db:"name" json:"name"`
	Description    string            `db:"description" json:"description"`
	IconURL        string            `db:"icon_url" json:"icon_url"`
	CriteriaType   BadgeCriteriaType `db:"criteria_type" json:"criteria_type"`
	Threshold      int               `db:"threshold" json:"threshold"`
	RequiredSkills pq.StringArray    `db:"required_skills" json:"required_skills"`
	Active         bool              `db:"active" json:"active"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
}

// StudentBadge records an earned badge. Rows are insert-only: badges are
// permanent once earned.
type StudentBadge struct {
	StudentID string    `db:"student_id" json:"student_id"`
	BadgeID   string    `db:"badge_id" json:"badge_id"`
	EarnedAt  time.Time `db:"earned_at" json:"earned_at"`
}

// StudentBadgeDetail joins an earned badge with its reference data.
type StudentBadgeDetail struct {
	StudentBadge
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`
	IconURL     string `db:"icon_url" json:"icon_url"`
}
