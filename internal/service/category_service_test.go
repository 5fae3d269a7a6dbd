package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/studenthub/hub-api/internal/models"
	"github.com/studenthub/hub-api/internal/repository"
	appErrors "github.com/studenthub/hub-api/pkg/errors"
)

type mockCategoryRepo struct {
	categories map[string]*models.AchievementCategory
	nextID     int
}

func newMockCategoryRepo() *mockCategoryRepo {
	return &mockCategoryRepo{categories: map[string]*models.AchievementCategory{}}
}

func (m *mockCategoryRepo) FindByID(ctx context.Context, id string) (*models.AchievementCategory, error) {
	category, ok := m.categories[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return category, nil
}

func (m *mockCategoryRepo) List(ctx context.Context, includeInactive bool) ([]models.AchievementCategory, error) {
	var out []models.AchievementCategory
	for _, category := range m.categories {
		if !includeInactive && !category.Active {
			continue
		}
		out = append(out, *category)
	}
	return out, nil
}

func (m *mockCategoryRepo) Create(ctx context.Context, category *models.AchievementCategory) error {
	for _, existing := range m.categories {
		if existing.Name == category.Name {
			return repository.ErrDuplicate
		}
	}
	m.nextID++
	category.ID = fmt.Sprintf("cat-%d", m.nextID)
	m.categories[category.ID] = category
	return nil
}

func (m *mockCategoryRepo) Deactivate(ctx context.Context, id string) error {
	category, ok := m.categories[id]
	if !ok {
		return sql.ErrNoRows
	}
	category.Active = false
	return nil
}

func TestCategoryCreate(t *testing.T) {
	svc := NewCategoryService(newMockCategoryRepo(), zap.NewNop())

	category, err := svc.Create(context.Background(), CreateCategoryRequest{
		Name:             "Hackathon",
		Description:      "Inter-college hackathons and coding marathons",
		CreditMultiplier: 1.5,
		Tags:             []string{"technical", "competition"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, category.ID)
	assert.Equal(t, "Hackathon", category.Name)
	assert.Equal(t, "Inter-college hackathons and coding marathons", category.Description)
	assert.True(t, category.Active)

	fetched, err := svc.Get(context.Background(), category.ID)
	require.NoError(t, err)
	assert.Equal(t, category.Description, fetched.Description)
}

func TestCategoryCreateValidation(t *testing.T) {
	svc := NewCategoryService(newMockCategoryRepo(), zap.NewNop())

	_, err := svc.Create(context.Background(), CreateCategoryRequest{Name: "", CreditMultiplier: 1})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), CreateCategoryRequest{Name: "Sports", CreditMultiplier: 0})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCategoryCreateDuplicateName(t *testing.T) {
	svc := NewCategoryService(newMockCategoryRepo(), zap.NewNop())

	_, err := svc.Create(context.Background(), CreateCategoryRequest{Name: "Research", CreditMultiplier: 2})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateCategoryRequest{Name: "Research", CreditMultiplier: 1})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestCategoryDeactivateHidesFromDefaultList(t *testing.T) {
	repo := newMockCategoryRepo()
	svc := NewCategoryService(repo, zap.NewNop())

	category, err := svc.Create(context.Background(), CreateCategoryRequest{Name: "Workshops", CreditMultiplier: 1})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(context.Background(), category.ID))

	active, err := svc.List(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := svc.List(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCategoryDeactivateNotFound(t *testing.T) {
	svc := NewCategoryService(newMockCategoryRepo(), zap.NewNop())

	err := svc.Deactivate(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
