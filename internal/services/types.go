package services

import (
	"context"
	"io"

	"github.com/SAP-F-2025/adaptive-assessment/internal/itembank"
	"github.com/SAP-F-2025/adaptive-assessment/internal/models"
	"github.com/SAP-F-2025/adaptive-assessment/internal/repositories"
)

// SessionService runs adaptive test sessions on top of the engine
type SessionService interface {
	Start(ctx context.Context, req *StartSessionRequest) (*StartSessionResponse, error)
	SubmitAnswer(ctx context.Context, sessionID string, req *SubmitAnswerRequest) (*SubmitAnswerResponse, error)
	Finalize(ctx context.Context, sessionID string) (*models.SessionReport, error)
	End(ctx context.Context, sessionID string) (*models.SessionReport, error)
	Abandon(ctx context.Context, sessionID string) error
	Get(ctx context.Context, sessionID string) (*SessionResponse, error)
	ListBySubject(ctx context.Context, subjectID string, filters repositories.SessionFilters) (*SessionListResponse, error)
}

// BankProvider supplies the shared read-only item bank
type BankProvider interface {
	Bank(ctx context.Context) (*itembank.Bank, error)
}

// ItemBankService manages calibrated items and the in-memory bank built from them
type ItemBankService interface {
	BankProvider
	CreateItem(ctx context.Context, req *CreateItemRequest) (*models.Item, error)
	GetItem(ctx context.Context, id string) (*models.Item, error)
	ListItems(ctx context.Context, filters repositories.ItemFilters) (*ItemListResponse, error)
	// Invalidate drops the cached bank so the next Bank call reloads it
	Invalidate()
}

// ImportExportService moves items and results in and out as spreadsheets
type ImportExportService interface {
	ImportItems(ctx context.Context, reader io.Reader, filename string) (*models.ImportSummary, error)
	ImportItemsFromCSV(ctx context.Context, reader io.Reader) (*models.ImportSummary, error)
	ImportItemsFromExcel(ctx context.Context, reader io.Reader) (*models.ImportSummary, error)
	ExportItemsToExcel(ctx context.Context, filters repositories.ItemFilters) ([]byte, error)
	ExportSubjectResults(ctx context.Context, subjectID string) ([]byte, error)
}

// ===== REQUESTS =====

type StartSessionRequest struct {
	SubjectID string          `json:"subject_id" validate:"required,max=255"`
	TestType  models.TestType `json:"test_type" validate:"required,test_type"`
}

type SubmitAnswerRequest struct {
	ItemID              string  `json:"item_id" validate:"required,max=64"`
	AnswerValue         string  `json:"answer_value" validate:"max=2000"`
	ResponseTimeSeconds float64 `json:"response_time_seconds" validate:"gte=0"`
}

type CreateItemRequest struct {
	ID               string               `json:"id" validate:"omitempty,max=64"`
	Difficulty       float64              `json:"difficulty" validate:"gte=-6,lte=6"`
	Discrimination   float64              `json:"discrimination" validate:"gt=0,lte=5"`
	Type             models.ItemType      `json:"type" validate:"required,item_type"`
	Category         string               `json:"category" validate:"max=100"`
	ProficiencyTag   string               `json:"proficiency_tag" validate:"max=50"`
	Skill            models.LanguageSkill `json:"skill" validate:"omitempty,language_skill"`
	TimeLimitSeconds *int                 `json:"time_limit_seconds" validate:"omitempty,gt=0"`
	Prompt           string               `json:"prompt" validate:"required"`
	Options          []models.ItemOption  `json:"options"`
	AnswerKey        string               `json:"answer_key" validate:"required,max=500"`
	AudioURL         *string              `json:"audio_url" validate:"omitempty,url"`
}

// ===== RESPONSES =====

// PresentedItem is an item as shown to a test-taker: no key, no calibration
type PresentedItem struct {
	ID               string               `json:"id"`
	Type             models.ItemType      `json:"type"`
	Category         string               `json:"category,omitempty"`
	Skill            models.LanguageSkill `json:"skill,omitempty"`
	Prompt           string               `json:"prompt"`
	Options          []models.ItemOption  `json:"options,omitempty"`
	AudioURL         *string              `json:"audio_url,omitempty"`
	TimeLimitSeconds *int                 `json:"time_limit_seconds,omitempty"`
}

func presentItem(item *models.Item) *PresentedItem {
	if item == nil {
		return nil
	}
	return &PresentedItem{
		ID:               item.ID,
		Type:             item.Type,
		Category:         item.Category,
		Skill:            item.Skill,
		Prompt:           item.Prompt,
		Options:          item.Options,
		AudioURL:         item.AudioURL,
		TimeLimitSeconds: item.TimeLimitSeconds,
	}
}

type StartSessionResponse struct {
	SessionID       string         `json:"session_id"`
	FirstItem       *PresentedItem `json:"first_item"`
	AbilityEstimate float64        `json:"ability_estimate"`
	StandardError   float64        `json:"standard_error"`
}

type SubmitAnswerResponse struct {
	IsCorrect        bool                  `json:"is_correct"`
	TimedOut         bool                  `json:"timed_out"`
	NewAbility       float64               `json:"new_ability"`
	NewStandardError float64               `json:"new_standard_error"`
	NextItem         *PresentedItem        `json:"next_item"`
	Completed        bool                  `json:"completed"`
	StopReason       models.StopReason     `json:"stop_reason,omitempty"`
	LowConfidence    bool                  `json:"low_confidence"`
	Report           *models.SessionReport `json:"report,omitempty"`
}

type SessionResponse struct {
	*models.Session
	CurrentItem *PresentedItem `json:"current_item,omitempty"`
}

type SessionListResponse struct {
	Sessions []*models.Session `json:"sessions"`
	Total    int64             `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

type ItemListResponse struct {
	Items  []*models.Item `json:"items"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}
