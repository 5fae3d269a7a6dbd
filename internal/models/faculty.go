package models

import "time"

// FacultyProfile holds mentoring capacity and approval capabilities for a
// faculty user. CurrentMentees never exceeds MaxMentees; the repository
// enforces this with a conditional increment.
type FacultyProfile struct {
	UserID                 string    `db:"user_id" json:"user_id"`
	InstitutionID          string    `db:"institution_id" json:"institution_id"`
	Department             string    `db:"department" json:"department"`
	Designation            string    `db:"designation" json:"designation"`
	CanMentor              bool      `db:"can_mentor" json:"can_mentor"`
	MaxMentees             int       `db:"max_mentees" json:"max_mentees"`
	CurrentMentees         int       `db:"current_mentees" json:"current_mentees"`
	CanApproveAchievements bool      `db:"can_approve_achievements" json:"can_approve_achievements"`
	CanCreateEvents        bool      `db:"can_create_events" json:"can_create_events"`
	MaxCreditValue         float64   `db:"max_credit_value" json:"max_credit_value"`
	CreatedAt              time.Time `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time `db:"updated_at" json:"updated_at"`
}

// FacultyDetail joins the profile with identity fields from users.
type FacultyDetail struct {
	FacultyProfile
	FullName string `db:"full_name" json:"full_name"`
	Email    string `db:"email" json:"email"`
	Active   bool   `db:"active" json:"active"`
}
