package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/studenthub/hub-api/internal/models"
	appErrors "github.com/studenthub/hub-api/pkg/errors"
)

type studentRepository interface {
	FindByID(ctx context.Context, userID string) (*models.StudentDetail, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	UpdateProfile(ctx context.Context, userID string, skills, interests []string, cgpa float64, semester int) error
}

// UpdateStudentProfileRequest is the student-editable slice of the profile.
type UpdateStudentProfileRequest struct {
	Skills    []string `json:"skills"`
	Interests []string `json:"interests"`
	CGPA      float64  `json:"cgpa" validate:"gte=0,lte=10"`
	Semester  int      `json:"semester" validate:"gte=1,lte=12"`
}

// StudentService serves student profiles. Credit aggregates on the profile
// are read-only here: they move only inside approval and event-completion
// transactions.
type StudentService struct {
	repo      studentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(repo studentRepository, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, validator: validator.New(), logger: logger}
}

// Get returns a student profile as seen by the viewer. A profile in privacy
// mode is hidden from recruiters; the owner, faculty and admins always see it.
func (s *StudentService) Get(ctx context.Context, studentID string, viewer *models.User) (*models.StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.PrivacyMode && viewer != nil && viewer.Role == models.RoleRecruiter && viewer.ID != studentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "this profile is private")
	}
	return student, nil
}

// List returns students matching the filter. Recruiters only see profiles
// that are not in privacy mode.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter, viewer *models.User) ([]models.StudentDetail, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	if viewer != nil && viewer.Role == models.RoleRecruiter {
		visible := students[:0]
		for _, student := range students {
			if !student.PrivacyMode {
				visible = append(visible, student)
			}
		}
		students = visible
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// UpdateProfile lets a student edit the self-managed slice of their profile.
func (s *StudentService) UpdateProfile(ctx context.Context, studentID string, req UpdateStudentProfileRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}
	if err := s.repo.UpdateProfile(ctx, studentID, req.Skills, req.Interests, req.CGPA, req.Semester); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}
	student, err := s.repo.FindByID(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}
