package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/SAP-F-2025/adaptive-assessment/internal/itembank"
	"github.com/SAP-F-2025/adaptive-assessment/internal/models"
	"github.com/SAP-F-2025/adaptive-assessment/internal/repositories"
	"github.com/SAP-F-2025/adaptive-assessment/internal/validator"
	"github.com/google/uuid"
)

type itemBankService struct {
	items     repositories.ItemRepository
	validator *validator.Validator
	logger    *ServiceLogger

	mu   sync.RWMutex
	bank *itembank.Bank
}

func NewItemBankService(items repositories.ItemRepository, logger *slog.Logger, validator *validator.Validator) ItemBankService {
	return &itemBankService{
		items:     items,
		validator: validator,
		logger:    NewServiceLogger(logger, LogConfig{Service: "adaptive-assessment", Component: "item_bank"}),
	}
}

// Bank returns the shared bank, loading it from the active items on first
// use or after Invalidate. Sessions only ever read from it.
func (s *itemBankService) Bank(ctx context.Context) (*itembank.Bank, error) {
	s.mu.RLock()
	bank := s.bank
	s.mu.RUnlock()
	if bank != nil {
		return bank, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bank != nil {
		return s.bank, nil
	}

	op := s.logger.WithOperation(ctx, "load_item_bank", "")
	items, err := s.items.ListActive(ctx)
	if err != nil {
		op.LogResult("", "item_bank", err)
		return nil, err
	}
	bank, err = itembank.NewBank(items)
	if err != nil {
		err = fmt.Errorf("failed to build item bank: %w", err)
		op.LogResult("", "item_bank", err)
		return nil, err
	}
	op.With(slog.Int("items", bank.Len())).LogResult("", "item_bank", nil)

	s.bank = bank
	return bank, nil
}

func (s *itemBankService) Invalidate() {
	s.mu.Lock()
	s.bank = nil
	s.mu.Unlock()
}

func (s *itemBankService) CreateItem(ctx context.Context, req *CreateItemRequest) (item *models.Item, err error) {
	op := s.logger.WithOperation(ctx, "create_item", "")
	defer func() {
		id := ""
		if item != nil {
			id = item.ID
		}
		op.LogResult(id, "item", err)
	}()

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	item = &models.Item{
		ID:               req.ID,
		Difficulty:       req.Difficulty,
		Discrimination:   req.Discrimination,
		Type:             req.Type,
		Category:         req.Category,
		ProficiencyTag:   req.ProficiencyTag,
		Skill:            req.Skill,
		TimeLimitSeconds: req.TimeLimitSeconds,
		Prompt:           req.Prompt,
		Options:          req.Options,
		AnswerKey:        req.AnswerKey,
		AudioURL:         req.AudioURL,
		IsActive:         true,
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	if err := s.validator.Validate(item); err != nil {
		return nil, err
	}

	if existing, err := s.items.GetByID(ctx, item.ID); err == nil && existing != nil {
		return nil, NewBusinessRuleError("unique_item_id", "an item with this id already exists",
			map[string]interface{}{"id": item.ID})
	} else if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to check item id: %w", err)
	}

	if err := s.items.Create(ctx, item); err != nil {
		return nil, err
	}
	s.Invalidate()
	return item, nil
}

func (s *itemBankService) GetItem(ctx context.Context, id string) (*models.Item, error) {
	item, err := s.items.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

func (s *itemBankService) ListItems(ctx context.Context, filters repositories.ItemFilters) (*ItemListResponse, error) {
	items, total, err := s.items.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return &ItemListResponse{
		Items:  items,
		Total:  total,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	}, nil
}
