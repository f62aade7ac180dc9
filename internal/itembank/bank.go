// Package itembank holds the calibrated items an adaptive session draws
// from. A Bank is immutable after construction and safe for concurrent use
// by any number of sessions.
package itembank

import (
	"errors"
	"fmt"
	"sort"

	"github.com/SAP-F-2025/adaptive-assessment/internal/models"
)

var (
	ErrPoolExhausted         = errors.New("item pool exhausted")
	ErrInvalidDiscrimination = errors.New("item discrimination must be positive")
	ErrDuplicateItem         = errors.New("duplicate item id")
	ErrInvalidItemType       = errors.New("invalid item type")
)

// Constraints narrow the candidate set. Empty fields do not filter.
type Constraints struct {
	Types             []models.ItemType
	Categories        []string
	ProficiencyTags   []string
	ExcludeCategories []string
}

func (c Constraints) IsZero() bool {
	return len(c.Types) == 0 && len(c.Categories) == 0 &&
		len(c.ProficiencyTags) == 0 && len(c.ExcludeCategories) == 0
}

func (c Constraints) matches(item *models.Item) bool {
	if len(c.Types) > 0 && !contains(c.Types, item.Type) {
		return false
	}
	if len(c.Categories) > 0 && !contains(c.Categories, item.Category) {
		return false
	}
	if len(c.ProficiencyTags) > 0 && !contains(c.ProficiencyTags, item.ProficiencyTag) {
		return false
	}
	if contains(c.ExcludeCategories, item.Category) {
		return false
	}
	return true
}

type Bank struct {
	items []models.Item
	index map[string]int
}

// NewBank validates items and returns a bank ordered by item ID.
func NewBank(items []models.Item) (*Bank, error) {
	sorted := make([]models.Item, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	index := make(map[string]int, len(sorted))
	for i, item := range sorted {
		if !(item.Discrimination > 0) {
			return nil, fmt.Errorf("%w: item %s has a=%v", ErrInvalidDiscrimination, item.ID, item.Discrimination)
		}
		if !item.Type.Valid() {
			return nil, fmt.Errorf("%w: item %s has type %q", ErrInvalidItemType, item.ID, item.Type)
		}
		if _, exists := index[item.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateItem, item.ID)
		}
		index[item.ID] = i
	}

	return &Bank{items: sorted, index: index}, nil
}

func (b *Bank) Len() int {
	return len(b.items)
}

// Get returns a copy of the item with the given ID.
func (b *Bank) Get(id string) (models.Item, bool) {
	i, ok := b.index[id]
	if !ok {
		return models.Item{}, false
	}
	return b.items[i], true
}

// Items returns a copy of every item, ordered by ID.
func (b *Bank) Items() []models.Item {
	out := make([]models.Item, len(b.items))
	copy(out, b.items)
	return out
}

// SelectCandidates returns items not in excludeIDs that satisfy the
// constraints, ordered by ID. It fails with ErrPoolExhausted when nothing
// is left.
func (b *Bank) SelectCandidates(excludeIDs []string, c Constraints) ([]models.Item, error) {
	excluded := make(map[string]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = struct{}{}
	}

	var out []models.Item
	for i := range b.items {
		item := &b.items[i]
		if _, skip := excluded[item.ID]; skip {
			continue
		}
		if !c.matches(item) {
			continue
		}
		out = append(out, *item)
	}

	if len(out) == 0 {
		return nil, ErrPoolExhausted
	}
	return out, nil
}

func contains[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
