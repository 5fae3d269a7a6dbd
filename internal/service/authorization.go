package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/studenthub/hub-api/internal/models"
)

// ApprovalPolicy answers the capability questions the lifecycle services
// ask. Keeping the checks behind one interface means the services never
// compare role strings themselves.
type ApprovalPolicy interface {
	// CanApproveAchievements reports whether the user may decide pending
	// achievements and, when limited, the maximum credit value they may
	// grant per approval. limited is false for institution and super admins.
	CanApproveAchievements(ctx context.Context, user *models.User) (allowed bool, limited bool, maxCredits float64, err error)
	// CanCreateEvents reports whether the user may create events.
	CanCreateEvents(ctx context.Context, user *models.User) (bool, error)
	// CanMentor reports whether the faculty user accepts mentees at all.
	// Capacity is enforced separately by the conditional increment.
	CanMentor(ctx context.Context, user *models.User) (bool, error)
}

type facultyProfileReader interface {
	FindByID(ctx context.Context, userID string) (*models.FacultyDetail, error)
}

// capabilityPolicy derives capabilities from the user's role and, for
// faculty, the approval-power columns of their profile. Admin roles carry
// every capability with no credit cap.
type capabilityPolicy struct {
	faculty facultyProfileReader
}

// NewApprovalPolicy builds the capability-backed policy.
func NewApprovalPolicy(faculty facultyProfileReader) ApprovalPolicy {
	return &capabilityPolicy{faculty: faculty}
}

func isAdmin(role models.UserRole) bool {
	return role == models.RoleInstitutionAdmin || role == models.RoleSuperAdmin
}

func (p *capabilityPolicy) CanApproveAchievements(ctx context.Context, user *models.User) (bool, bool, float64, error) {
	if user == nil {
		return false, false, 0, nil
	}
	if isAdmin(user.Role) {
		return true, false, 0, nil
	}
	if user.Role != models.RoleFaculty {
		return false, false, 0, nil
	}
	profile, err := p.faculty.FindByID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, false, 0, nil
		}
		return false, false, 0, err
	}
	return profile.CanApproveAchievements, true, profile.MaxCreditValue, nil
}

func (p *capabilityPolicy) CanCreateEvents(ctx context.Context, user *models.User) (bool, error) {
	if user == nil {
		return false, nil
	}
	if isAdmin(user.Role) {
		return true, nil
	}
	if user.Role != models.RoleFaculty {
		return false, nil
	}
	profile, err := p.faculty.FindByID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return profile.CanCreateEvents, nil
}

func (p *capabilityPolicy) CanMentor(ctx context.Context, user *models.User) (bool, error) {
	if user == nil || user.Role != models.RoleFaculty {
		return false, nil
	}
	profile, err := p.faculty.FindByID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return profile.CanMentor, nil
}
