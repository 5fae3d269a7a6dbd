package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/studenthub/hub-api/internal/models"
	"github.com/studenthub/hub-api/internal/repository"
	appErrors "github.com/studenthub/hub-api/pkg/errors"
)

type facultyRepository interface {
	FindByID(ctx context.Context, userID string) (*models.FacultyDetail, error)
	AssignMentee(ctx context.Context, studentID, facultyID string) error
}

type menteeLister interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, userID string) (*models.StudentDetail, error)
}

// MentorService manages the mentor-mentee relationship. A student has at
// most one mentor; reassignment atomically releases the old mentor's slot
// and claims one from the new mentor's capacity.
type MentorService struct {
	faculty  facultyRepository
	students menteeLister
	notify   notifier
	logger   *zap.Logger
}

// NewMentorService constructs MentorService.
func NewMentorService(faculty facultyRepository, students menteeLister, notify notifier, logger *zap.Logger) *MentorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MentorService{faculty: faculty, students: students, notify: notify, logger: logger}
}

// Assign sets facultyID as the student's mentor. Assigning the student's
// current mentor is a no-op. A faculty member not accepting mentees surfaces
// as Forbidden; one at capacity as CapacityExceeded.
func (s *MentorService) Assign(ctx context.Context, studentID, facultyID string) (*models.StudentDetail, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	mentor, err := s.faculty.FindByID(ctx, facultyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "faculty member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty member")
	}
	if !mentor.CanMentor {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "faculty member does not accept mentees")
	}

	alreadyAssigned := student.MentorID != nil && *student.MentorID == facultyID
	if err := s.faculty.AssignMentee(ctx, studentID, facultyID); err != nil {
		if errors.Is(err, repository.ErrCapacityReached) {
			return nil, appErrors.Clone(appErrors.ErrCapacityExceeded, "mentor has reached their mentee capacity")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign mentor")
	}

	if !alreadyAssigned {
		s.notify.Notify(models.Notification{
			UserID:     studentID,
			Type:       models.NotificationMentorAssigned,
			Title:      "Mentor assigned",
			Body:       fmt.Sprintf("%s is now your mentor", mentor.FullName),
			ResourceID: &mentor.UserID,
		})
		s.notify.Notify(models.Notification{
			UserID:     facultyID,
			Type:       models.NotificationMentorAssigned,
			Title:      "New mentee",
			Body:       fmt.Sprintf("%s has been assigned to you as a mentee", student.FullName),
			ResourceID: &student.UserID,
		})
	}

	updated, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return updated, nil
}

// Mentees lists a mentor's current mentees.
func (s *MentorService) Mentees(ctx context.Context, facultyID string) ([]models.StudentDetail, error) {
	if _, err := s.faculty.FindByID(ctx, facultyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "faculty member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty member")
	}
	mentees, _, err := s.students.List(ctx, models.StudentFilter{MentorID: facultyID, PageSize: 200})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list mentees")
	}
	return mentees, nil
}
