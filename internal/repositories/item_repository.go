package repositories

import (
	"context"

	"github.com/SAP-F-2025/adaptive-assessment/internal/models"
)

// ItemRepository interface for calibrated item operations
type ItemRepository interface {
	Create(ctx context.Context, item *models.Item) error
	GetByID(ctx context.Context, id string) (*models.Item, error)
	Update(ctx context.Context, item *models.Item) error

	// UpsertBatch inserts items or overwrites existing ones with the same ID
	UpsertBatch(ctx context.Context, items []*models.Item) error

	List(ctx context.Context, filters ItemFilters) ([]*models.Item, int64, error)

	// ListActive returns every active item ordered by ID, the input of an item bank
	ListActive(ctx context.Context) ([]models.Item, error)
}
