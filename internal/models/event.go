package models

import "time"

// EventStatus enumerates event lifecycle states.
type EventStatus string

const (
	EventDraft     EventStatus = "DRAFT"
	EventPublished EventStatus = "PUBLISHED"
	EventOngoing   EventStatus = "ONGOING"
	EventCompleted EventStatus = "COMPLETED"
	EventCancelled EventStatus = "CANCELLED"
)

// EventRoleName is a capacity-bounded participation category.
type EventRoleName string

const (
	RoleOrganizer   EventRoleName = "ORGANIZER"
	RoleVolunteer   EventRoleName = "VOLUNTEER"
	RoleParticipant EventRoleName = "PARTICIPANT"
)

// Event represents an institution event students register for.
type Event struct {
	ID                   string      `db:"id" json:"id"`
	InstitutionID        string      `db:"institution_id" json:"institution_id"`
	CreatedBy            string      `db:"created_by" json:"created_by"`
	Title                string      `db:"title" json:"title"`
	Description          string      `db:"description" json:"description"`
	Venue                string      `db:"venue" json:"venue"`
	StartDate            time.Time   `db:"start_date" json:"start_date"`
	EndDate              time.Time   `db:"end_date" json:"end_date"`
	RegistrationDeadline time.Time   `db:"registration_deadline" json:"registration_deadline"`
	Status               EventStatus `db:"status" json:"status"`
	CreatedAt            time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time   `db:"updated_at" json:"updated_at"`
}

// EventRole is the per-role capacity row of an event. CurrentCount never
// exceeds MaxCount: registration increments it with a conditional update.
type EventRole struct {
	EventID      string        `db:"event_id" json:"event_id"`
	Role         EventRoleName `db:"role" json:"role"`
	Credits      float64       `db:"credits" json:"credits"`
	MaxCount     int           `db:"max_count" json:"max_count"`
	CurrentCount int           `db:"current_count" json:"current_count"`
}

// EventDetail joins an event with its role capacities.
type EventDetail struct {
	Event
	Roles []EventRole `json:"roles"`
}

// ParticipationStatus enumerates the participation lifecycle states.
type ParticipationStatus string

const (
	ParticipationRegistered ParticipationStatus = "REGISTERED"
	ParticipationAttended   ParticipationStatus = "ATTENDED"
	ParticipationCompleted  ParticipationStatus = "COMPLETED"
	ParticipationCancelled  ParticipationStatus = "CANCELLED"
)

// EventParticipation joins a student to an event under one role, unique per
// (event, student). CreditsEarned stays 0 until COMPLETED.
type EventParticipation struct {
	ID            string              `db:"id" json:"id"`
	EventID       string              `db:"event_id" json:"event_id"`
	StudentID     string              `db:"student_id" json:"student_id"`
	Role          EventRoleName       `db:"role" json:"role"`
	Status        ParticipationStatus `db:"status" json:"status"`
	CreditsEarned float64             `db:"credits_earned" json:"credits_earned"`
	RegisteredAt  time.Time           `db:"registered_at" json:"registered_at"`
	CompletedAt   *time.Time          `db:"completed_at" json:"completed_at,omitempty"`
}

// EventFilter captures list filtering criteria.
type EventFilter struct {
	InstitutionID string
	Status        EventStatus
	From          *time.Time
	To            *time.Time
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}
