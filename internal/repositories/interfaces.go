package repositories

import (
	"errors"

	"github.com/SAP-F-2025/adaptive-assessment/internal/models"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrVersionConflict = errors.New("record was modified concurrently")
)

// ===== SHARED FILTER STRUCTS =====

type ItemFilters struct {
	Type           *models.ItemType      `json:"type"`
	Category       string                `json:"category"`
	Skill          *models.LanguageSkill `json:"skill"`
	ProficiencyTag string                `json:"proficiency_tag"`
	ActiveOnly     bool                  `json:"active_only"`
	MinDifficulty  *float64              `json:"min_difficulty"`
	MaxDifficulty  *float64              `json:"max_difficulty"`
	Limit          int                   `json:"limit"`
	Offset         int                   `json:"offset"`
	SortBy         string                `json:"sort_by"`    // "id", "difficulty", "created_at"
	SortOrder      string                `json:"sort_order"` // "asc", "desc"
}

type SessionFilters struct {
	Status    *models.SessionStatus `json:"status"`
	TestType  *models.TestType      `json:"test_type"`
	Limit     int                   `json:"limit"`
	Offset    int                   `json:"offset"`
	SortOrder string                `json:"sort_order"` // by started_at, "asc" or "desc"
}
