package models

import (
	"time"

	"github.com/lib/pq"
)

// StudentProfile carries the academic identity and derived credit aggregates
// of a student user. TotalCredits and AchievementsCount only ever move by
// relative increments inside the transaction of the state change that earned
// them.
type StudentProfile struct {
	UserID            string         `db:"user_id" json:"user_id"`
	InstitutionID     string         `db:"institution_id" json:"institution_id"`
	Department        string         `db:"department" json:"department"`
	RollNumber        string         `db:"roll_number" json:"roll_number"`
	Batch             string         `db:"batch" json:"batch"`
	Course            string         `db:"course" json:"course"`
	Year              int            `db:"year" json:"year"`
	Semester          int            `db:"semester" json:"semester"`
	CGPA              float64        `db:"cgpa" json:"cgpa"`
	Skills            pq.StringArray `db:"skills" json:"skills"`
	Interests         pq.StringArray `db:"interests" json:"interests"`
	TotalCredits      float64        `db:"total_credits" json:"total_credits"`
	AchievementsCount int            `db:"achievements_count" json:"achievements_count"`
	MentorID          *string        `db:"mentor_id" json:"mentor_id,omitempty"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

// StudentDetail joins the profile with identity fields from users.
type StudentDetail struct {
	StudentProfile
	FullName    string `db:"full_name" json:"full_name"`
	Email       string `db:"email" json:"email"`
	PrivacyMode bool   `db:"privacy_mode" json:"privacy_mode"`
	Active      bool   `db:"active" json:"active"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	InstitutionID string
	Department    string
	Batch         string
	MentorID      string
	Search        string
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}
