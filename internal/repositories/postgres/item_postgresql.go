package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/adaptive-assessment/internal/models"
	"github.com/SAP-F-2025/adaptive-assessment/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const upsertBatchSize = 100

type ItemPostgreSQL struct {
	db *gorm.DB
}

func NewItemPostgreSQL(db *gorm.DB) repositories.ItemRepository {
	return &ItemPostgreSQL{db: db}
}

func (r *ItemPostgreSQL) Create(ctx context.Context, item *models.Item) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	return nil
}

func (r *ItemPostgreSQL) GetByID(ctx context.Context, id string) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

func (r *ItemPostgreSQL) Update(ctx context.Context, item *models.Item) error {
	result := r.db.WithContext(ctx).Model(item).Select("*").Omit("created_at").Updates(item)
	if result.Error != nil {
		return fmt.Errorf("failed to update item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *ItemPostgreSQL) UpsertBatch(ctx context.Context, items []*models.Item) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"difficulty", "discrimination", "type", "category", "proficiency_tag", "skill",
				"time_limit_seconds", "prompt", "options", "answer_key", "audio_url", "is_active", "updated_at",
			}),
		}).CreateInBatches(items, upsertBatchSize).Error
		if err != nil {
			return fmt.Errorf("failed to upsert items: %w", err)
		}
		return nil
	})
}

func (r *ItemPostgreSQL) List(ctx context.Context, filters repositories.ItemFilters) ([]*models.Item, int64, error) {
	var items []*models.Item
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Item{})
	query = r.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset,
		"id", "difficulty", "discrimination", "created_at")

	if err := query.Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *ItemPostgreSQL) ListActive(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to load active items: %w", err)
	}
	return items, nil
}

func (r *ItemPostgreSQL) applyFilters(query *gorm.DB, filters repositories.ItemFilters) *gorm.DB {
	if filters.Type != nil {
		query = query.Where("type = ?", *filters.Type)
	}
	if filters.Category != "" {
		query = query.Where("category = ?", filters.Category)
	}
	if filters.Skill != nil {
		query = query.Where("skill = ?", *filters.Skill)
	}
	if filters.ProficiencyTag != "" {
		query = query.Where("proficiency_tag = ?", filters.ProficiencyTag)
	}
	if filters.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if filters.MinDifficulty != nil {
		query = query.Where("difficulty >= ?", *filters.MinDifficulty)
	}
	if filters.MaxDifficulty != nil {
		query = query.Where("difficulty <= ?", *filters.MaxDifficulty)
	}
	return query
}
