package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/studenthub/hub-api/internal/models"
	appErrors "github.com/studenthub/hub-api/pkg/errors"
	"github.com/studenthub/hub-api/pkg/export"
)

// PortfolioFormat selects the export encoding.
type PortfolioFormat string

const (
	PortfolioPDF PortfolioFormat = "pdf"
	PortfolioCSV PortfolioFormat = "csv"
)

type approvedAchievementLister interface {
	List(ctx context.Context, filter models.AchievementFilter) ([]models.AchievementDetail, int, error)
}

type earnedBadgeLister interface {
	ListEarned(ctx context.Context, studentID string) ([]models.StudentBadgeDetail, error)
}

type studentParticipationLister interface {
	ListParticipationsByStudent(ctx context.Context, studentID string) ([]models.EventParticipation, error)
}

// PortfolioExport is a rendered portfolio ready to stream to the client.
type PortfolioExport struct {
	FileName    string
	ContentType string
	Content     []byte
}

// PortfolioService assembles a student's verified record into an exportable
// document: profile summary, approved achievements, completed events and
// earned badges. Pending and rejected achievements never appear.
type PortfolioService struct {
	students       studentReader
	achievements   approvedAchievementLister
	participations studentParticipationLister
	badges         earnedBadgeLister
	pdf            *export.PDFExporter
	csv            *export.CSVExporter
	logger         *zap.Logger
}

// NewPortfolioService constructs PortfolioService.
func NewPortfolioService(students studentReader, achievements approvedAchievementLister, participations studentParticipationLister, badges earnedBadgeLister, logger *zap.Logger) *PortfolioService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PortfolioService{
		students:       students,
		achievements:   achievements,
		participations: participations,
		badges:         badges,
		pdf:            export.NewPDFExporter(),
		csv:            export.NewCSVExporter(),
		logger:         logger,
	}
}

// Export renders the student's portfolio in the requested format.
func (s *PortfolioService) Export(ctx context.Context, studentID string, format PortfolioFormat) (*PortfolioExport, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	approved, _, err := s.achievements.List(ctx, models.AchievementFilter{
		StudentID: studentID,
		Status:    models.AchievementApproved,
		PageSize:  500,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list achievements")
	}
	participations, err := s.participations.ListParticipationsByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list participations")
	}
	badges, err := s.badges.ListEarned(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list badges")
	}

	switch format {
	case PortfolioCSV:
		content, err := s.csv.Render(achievementDataset(approved))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render portfolio")
		}
		return &PortfolioExport{
			FileName:    fmt.Sprintf("portfolio-%s.csv", student.RollNumber),
			ContentType: "text/csv",
			Content:     content,
		}, nil
	case PortfolioPDF, "":
		content, err := s.pdf.Render(portfolioDocument(student, approved, participations, badges))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render portfolio")
		}
		return &PortfolioExport{
			FileName:    fmt.Sprintf("portfolio-%s.pdf", student.RollNumber),
			ContentType: "application/pdf",
			Content:     content,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %q", format))
	}
}

func portfolioDocument(student *models.StudentDetail, approved []models.AchievementDetail, participations []models.EventParticipation, badges []models.StudentBadgeDetail) export.Document {
	doc := export.Document{
		Title:    "Verified Student Portfolio",
		Subtitle: student.FullName,
		Fields: []export.Field{
			{Label: "Roll Number", Value: student.RollNumber},
			{Label: "Department", Value: student.Department},
			{Label: "Course", Value: fmt.Sprintf("%s, year %d", student.Course, student.Year)},
			{Label: "CGPA", Value: fmt.Sprintf("%.2f", student.CGPA)},
			{Label: "Total Credits", Value: fmt.Sprintf("%.1f", student.TotalCredits)},
			{Label: "Skills", Value: strings.Join(student.Skills, ", ")},
		},
	}

	doc.Sections = append(doc.Sections, export.Section{
		Heading: "Approved Achievements",
		Data:    achievementDataset(approved),
	})

	eventRows := make([]map[string]string, 0, len(participations))
	for _, p := range participations {
		if p.Status != models.ParticipationCompleted {
			continue
		}
		eventRows = append(eventRows, map[string]string{
			"Event":   p.EventID,
			"Role":    string(p.Role),
			"Credits": fmt.Sprintf("%.1f", p.CreditsEarned),
		})
	}
	doc.Sections = append(doc.Sections, export.Section{
		Heading: "Completed Events",
		Data: export.Dataset{
			Headers: []string{"Event", "Role", "Credits"},
			Rows:    eventRows,
		},
	})

	badgeRows := make([]map[string]string, 0, len(badges))
	for _, b := range badges {
		badgeRows = append(badgeRows, map[string]string{
			"Badge":  b.Name,
			"Earned": b.EarnedAt.Format("2006-01-02"),
		})
	}
	doc.Sections = append(doc.Sections, export.Section{
		Heading: "Badges",
		Data: export.Dataset{
			Headers: []string{"Badge", "Earned"},
			Rows:    badgeRows,
		},
	})
	return doc
}

func achievementDataset(approved []models.AchievementDetail) export.Dataset {
	rows := make([]map[string]string, 0, len(approved))
	for _, a := range approved {
		rows = append(rows, map[string]string{
			"Title":    a.Title,
			"Category": a.CategoryName,
			"Date":     a.DateAchieved.Format("2006-01-02"),
			"Credits":  fmt.Sprintf("%.1f", a.Credits),
			"Skills":   strings.Join(a.SkillTags, ", "),
		})
	}
	return export.Dataset{
		Headers: []string{"Title", "Category", "Date", "Credits", "Skills"},
		Rows:    rows,
	}
}
