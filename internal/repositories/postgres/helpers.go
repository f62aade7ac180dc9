package postgres

import (
	"errors"
	"strings"

	"github.com/SAP-F-2025/adaptive-assessment/internal/repositories"
	"gorm.io/gorm"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// applyPaginationAndSort orders by sortBy when it is in allowed, falling
// back to the first allowed column.
func applyPaginationAndSort(query *gorm.DB, sortBy, sortOrder string, limit, offset int, allowed ...string) *gorm.DB {
	column := allowed[0]
	for _, c := range allowed {
		if c == sortBy {
			column = sortBy
			break
		}
	}

	direction := "ASC"
	if strings.EqualFold(sortOrder, "desc") {
		direction = "DESC"
	}
	query = query.Order(column + " " + direction)

	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	query = query.Limit(limit)
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repositories.ErrNotFound
	}
	return err
}
