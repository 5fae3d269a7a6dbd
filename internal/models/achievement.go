package models

import (
	"time"

	"github.com/lib/pq"
)

// AchievementStatus enumerates the achievement lifecycle states.
type AchievementStatus string

const (
	AchievementPending  AchievementStatus = "PENDING"
	AchievementApproved AchievementStatus = "APPROVED"
	AchievementRejected AchievementStatus = "REJECTED"
)

// Achievement is a claimed accomplishment submitted by a student for credit.
// APPROVED and REJECTED are terminal; the repository guards every decision
// with a status-conditioned update so concurrent reviewers cannot both win.
type Achievement struct {
	ID              string            `db:"id" json:"id"`
	StudentID       string            `db:"student_id" json:"student_id"`
	CategoryID      string            `db:"category_id" json:"category_id"`
	Title           string            `db:"title" json:"title"`
	Description     string            `db:"description" json:"description"`
	DateAchieved    time.Time         `db:"date_achieved" json:"date_achieved"`
	EvidenceURLs    pq.StringArray    `db:"evidence_urls" json:"evidence_urls"`
	SkillTags       pq.StringArray    `db:"skill_tags" json:"skill_tags"`
	Status          AchievementStatus `db:"status" json:"status"`
	Credits         float64           `db:"credits" json:"credits"`
	ApprovedBy      *string           `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt      *time.Time        `db:"approved_at" json:"approved_at,omitempty"`
	RejectionReason *string           `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
}

// AchievementDetail joins the achievement with category and student context.
type AchievementDetail struct {
	Achievement
	CategoryName string `db:"category_name" json:"category_name"`
	StudentName  string `db:"student_name" json:"student_name"`
}

// AchievementFilter captures list filtering criteria.
type AchievementFilter struct {
	StudentID  string
	CategoryID string
	Status     AchievementStatus
	Department string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
