package services

import (
	"context"
	"errors"
	"testing"

	"github.com/SAP-F-2025/adaptive-assessment/internal/models"
	"github.com/SAP-F-2025/adaptive-assessment/internal/repositories"
	"github.com/SAP-F-2025/adaptive-assessment/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestItemBankService_BankIsLoadedOnce(t *testing.T) {
	items := new(MockItemRepository)
	items.On("ListActive", mock.Anything).Return(ladder(4, -1, 0.5), nil)
	service := NewItemBankService(items, testLogger(), validator.New())

	first, err := service.Bank(context.Background())
	require.NoError(t, err)
	second, err := service.Bank(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 4, first.Len())
	items.AssertNumberOfCalls(t, "ListActive", 1)

	service.Invalidate()
	_, err = service.Bank(context.Background())
	require.NoError(t, err)
	items.AssertNumberOfCalls(t, "ListActive", 2)
}

func TestItemBankService_BankLoadError(t *testing.T) {
	items := new(MockItemRepository)
	items.On("ListActive", mock.Anything).Return(nil, errors.New("connection refused")).Once()
	items.On("ListActive", mock.Anything).Return(ladder(2, 0, 1), nil).Once()
	service := NewItemBankService(items, testLogger(), validator.New())

	_, err := service.Bank(context.Background())
	require.Error(t, err)

	// A failed load is not cached.
	bank, err := service.Bank(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, bank.Len())
}

func TestItemBankService_CreateItem(t *testing.T) {
	limit := 45
	validRequest := func() *CreateItemRequest {
		return &CreateItemRequest{
			ID:               "gr-101",
			Difficulty:       -0.4,
			Discrimination:   1.1,
			Type:             models.MultipleChoice,
			Category:         "tenses",
			Skill:            models.SkillGrammar,
			TimeLimitSeconds: &limit,
			Prompt:           "She ___ to work every day.",
			Options: []models.ItemOption{
				{ID: "A", Text: "go"},
				{ID: "B", Text: "goes"},
			},
			AnswerKey: "B",
		}
	}

	tests := []struct {
		name    string
		modify  func(*CreateItemRequest)
		setup   func(*MockItemRepository)
		check   func(*testing.T, error)
		creates bool
	}{
		{
			name: "valid item",
			setup: func(m *MockItemRepository) {
				m.On("GetByID", mock.Anything, "gr-101").Return(nil, repositories.ErrNotFound)
				m.On("Create", mock.Anything, mock.AnythingOfType("*models.Item")).Return(nil)
			},
			check:   func(t *testing.T, err error) { assert.NoError(t, err) },
			creates: true,
		},
		{
			name:   "struct validation",
			modify: func(r *CreateItemRequest) { r.Discrimination = 0 },
			setup:  func(m *MockItemRepository) {},
			check: func(t *testing.T, err error) {
				assert.True(t, IsValidation(err))
			},
		},
		{
			name:   "answer key not among options",
			modify: func(r *CreateItemRequest) { r.AnswerKey = "C" },
			setup:  func(m *MockItemRepository) {},
			check: func(t *testing.T, err error) {
				var ve ValidationErrors
				require.ErrorAs(t, err, &ve)
				assert.Contains(t, ve.Fields(), "answer_key")
			},
		},
		{
			name: "duplicate id",
			setup: func(m *MockItemRepository) {
				m.On("GetByID", mock.Anything, "gr-101").Return(&models.Item{ID: "gr-101"}, nil)
			},
			check: func(t *testing.T, err error) {
				assert.True(t, IsBusinessRule(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := new(MockItemRepository)
			tt.setup(items)
			service := NewItemBankService(items, testLogger(), validator.New())

			req := validRequest()
			if tt.modify != nil {
				tt.modify(req)
			}
			item, err := service.CreateItem(context.Background(), req)
			tt.check(t, err)

			if tt.creates {
				require.NotNil(t, item)
				assert.True(t, item.IsActive)
				assert.Equal(t, "B", item.AnswerKey)
				items.AssertExpectations(t)
			} else {
				items.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestItemBankService_CreateItemInvalidatesBank(t *testing.T) {
	items := new(MockItemRepository)
	items.On("ListActive", mock.Anything).Return(ladder(2, 0, 1), nil)
	items.On("GetByID", mock.Anything, mock.Anything).Return(nil, repositories.ErrNotFound)
	items.On("Create", mock.Anything, mock.Anything).Return(nil)
	service := NewItemBankService(items, testLogger(), validator.New())

	_, err := service.Bank(context.Background())
	require.NoError(t, err)

	_, err = service.CreateItem(context.Background(), &CreateItemRequest{
		Difficulty:     0.2,
		Discrimination: 0.9,
		Type:           models.TrueFalse,
		Prompt:         "The past tense of 'run' is 'ran'.",
		AnswerKey:      "true",
	})
	require.NoError(t, err)

	_, err = service.Bank(context.Background())
	require.NoError(t, err)
	items.AssertNumberOfCalls(t, "ListActive", 2)
}

func TestItemBankService_GetItem(t *testing.T) {
	items := new(MockItemRepository)
	items.On("GetByID", mock.Anything, "missing").Return(nil, repositories.ErrNotFound)
	service := NewItemBankService(items, testLogger(), validator.New())

	_, err := service.GetItem(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrItemNotFound)
	assert.True(t, IsNotFound(err))
}
