package validator

import (
	"fmt"
	"math"
	"strings"

	"github.com/SAP-F-2025/adaptive-assessment/internal/models"
)

// Calibrated parameters outside these ranges are almost always import errors.
const (
	MaxAbsDifficulty  = 6.0
	MaxDiscrimination = 5.0
)

// ItemValidator checks the rules an item must satisfy before it enters a bank
type ItemValidator struct{}

func NewItemValidator() *ItemValidator {
	return &ItemValidator{}
}

func (iv *ItemValidator) Validate(item *models.Item) ValidationErrors {
	var errs ValidationErrors

	if strings.TrimSpace(item.ID) == "" {
		errs = errs.Add("id", "is required", item.ID)
	}
	if !(item.Discrimination > 0) || item.Discrimination > MaxDiscrimination {
		errs = errs.Add("discrimination", fmt.Sprintf("must be in (0, %g]", MaxDiscrimination), item.Discrimination)
	}
	if math.IsNaN(item.Difficulty) || math.Abs(item.Difficulty) > MaxAbsDifficulty {
		errs = errs.Add("difficulty", fmt.Sprintf("must be within [-%g, %g]", MaxAbsDifficulty, MaxAbsDifficulty), item.Difficulty)
	}
	if !item.Type.Valid() {
		errs = errs.Add("type", "must be a valid item type", item.Type)
	}
	if item.TimeLimitSeconds != nil && *item.TimeLimitSeconds <= 0 {
		errs = errs.Add("time_limit_seconds", "must be positive", *item.TimeLimitSeconds)
	}
	if strings.TrimSpace(item.AnswerKey) == "" {
		errs = errs.Add("answer_key", "is required", nil)
	}

	switch item.Type {
	case models.MultipleChoice:
		errs = iv.validateOptions(item, errs)
	case models.TrueFalse:
		if !isBoolKey(item.AnswerKey) {
			errs = errs.Add("answer_key", "must be true or false", item.AnswerKey)
		}
	}

	if item.Skill == models.SkillListening && (item.AudioURL == nil || *item.AudioURL == "") {
		errs = errs.Add("audio_url", "is required for listening items", nil)
	}

	return errs
}

func (iv *ItemValidator) validateOptions(item *models.Item, errs ValidationErrors) ValidationErrors {
	if len(item.Options) < 2 {
		return errs.Add("options", "multiple choice items need at least 2 options", len(item.Options))
	}

	seen := make(map[string]bool, len(item.Options))
	keyFound := false
	for _, opt := range item.Options {
		id := strings.ToLower(strings.TrimSpace(opt.ID))
		if id == "" || seen[id] {
			return errs.Add("options", "option ids must be unique and non-empty", opt.ID)
		}
		seen[id] = true
		if id == strings.ToLower(strings.TrimSpace(item.AnswerKey)) {
			keyFound = true
		}
	}
	if !keyFound {
		errs = errs.Add("answer_key", "must match one of the option ids", item.AnswerKey)
	}
	return errs
}

func isBoolKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "true", "false":
		return true
	}
	return false
}
