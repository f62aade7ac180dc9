package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/SAP-F-2025/adaptive-assessment/internal/models"
	"github.com/SAP-F-2025/adaptive-assessment/internal/repositories"
	"github.com/stretchr/testify/mock"
)

// MockItemRepository is a mock implementation of ItemRepository
type MockItemRepository struct {
	mock.Mock
}

func (m *MockItemRepository) Create(ctx context.Context, item *models.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockItemRepository) GetByID(ctx context.Context, id string) (*models.Item, error) {
	args := m.Called(ctx, id)
	item, _ := args.Get(0).(*models.Item)
	return item, args.Error(1)
}

func (m *MockItemRepository) Update(ctx context.Context, item *models.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockItemRepository) UpsertBatch(ctx context.Context, items []*models.Item) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

func (m *MockItemRepository) List(ctx context.Context, filters repositories.ItemFilters) ([]*models.Item, int64, error) {
	args := m.Called(ctx, filters)
	if page, ok := args.Get(0).(func(context.Context, repositories.ItemFilters) []*models.Item); ok {
		return page(ctx, filters), args.Get(1).(int64), args.Error(2)
	}
	items, _ := args.Get(0).([]*models.Item)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *MockItemRepository) ListActive(ctx context.Context) ([]models.Item, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]models.Item)
	return items, args.Error(1)
}

// MockSessionRepository is a mock implementation of SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	args := m.Called(ctx, id)
	session, _ := args.Get(0).(*models.Session)
	return session, args.Error(1)
}

func (m *MockSessionRepository) Update(ctx context.Context, session *models.Session, expectedVersion int) error {
	args := m.Called(ctx, session, expectedVersion)
	return args.Error(0)
}

func (m *MockSessionRepository) ListBySubject(ctx context.Context, subjectID string, filters repositories.SessionFilters) ([]*models.Session, int64, error) {
	args := m.Called(ctx, subjectID, filters)
	sessions, _ := args.Get(0).([]*models.Session)
	return sessions, args.Get(1).(int64), args.Error(2)
}

func (m *MockSessionRepository) GetReport(ctx context.Context, sessionID string) (*models.SessionReport, error) {
	args := m.Called(ctx, sessionID)
	report, _ := args.Get(0).(*models.SessionReport)
	return report, args.Error(1)
}

func (m *MockSessionRepository) ListReportsBySubject(ctx context.Context, subjectID string) ([]*models.SessionReport, error) {
	args := m.Called(ctx, subjectID)
	reports, _ := args.Get(0).([]*models.SessionReport)
	return reports, args.Error(1)
}

// acceptUpdates makes Update behave like the real repository on success
func acceptUpdates(repo *MockSessionRepository) {
	repo.On("Update", mock.Anything, mock.AnythingOfType("*models.Session"), mock.AnythingOfType("int")).
		Run(func(args mock.Arguments) {
			session := args.Get(1).(*models.Session)
			session.Version = args.Int(2) + 1
		}).
		Return(nil)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ladder returns n multiple choice items with difficulties start, start+step, ...
func ladder(n int, start, step float64) []models.Item {
	items := make([]models.Item, n)
	for i := range items {
		items[i] = models.Item{
			ID:             fmt.Sprintf("item-%02d", i),
			Difficulty:     start + float64(i)*step,
			Discrimination: 1.2,
			Type:           models.MultipleChoice,
			Prompt:         fmt.Sprintf("Question %d", i),
			Options: []models.ItemOption{
				{ID: "A", Text: "first"},
				{ID: "B", Text: "second"},
			},
			AnswerKey: "A",
			IsActive:  true,
		}
	}
	return items
}
