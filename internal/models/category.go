package models

import (
	"time"

	"github.com/lib/pq"
)

// AchievementCategory is reference data classifying achievement submissions.
// Once an achievement references a category, the category is only ever
// deactivated, never deleted or edited, so past approvals stay auditable.
type AchievementCategory struct {
	ID               string         `db:"id" json:"id"`
	Name             string         `db:"name" json:"name"`
	Description      string         `db:"description" json:"description"`
	CreditMultiplier float64        `db:"credit_multiplier" json:"credit_multiplier"`
	Tags             pq.StringArray `db:"tags" json:"tags"`
	Active           bool           `db:"active" json:"active"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
}
