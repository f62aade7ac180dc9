package validator

import (
	"testing"

	"github.com/SAP-F-2025/adaptive-assessment/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type startRequest struct {
	SubjectID string          `json:"subject_id" validate:"required"`
	TestType  models.TestType `json:"test_type" validate:"required,test_type"`
}

func validItem() models.Item {
	return models.Item{
		ID:             "gr-001",
		Difficulty:     0.4,
		Discrimination: 1.1,
		Type:           models.MultipleChoice,
		Options:        []models.ItemOption{{ID: "A", Text: "went"}, {ID: "B", Text: "goed"}},
		AnswerKey:      "a",
	}
}

func TestValidator_StructUsesJSONNames(t *testing.T) {
	v := New()

	err := v.Validate(startRequest{TestType: "final"})
	require.Error(t, err)

	errs, ok := err.(ValidationErrors)
	require.True(t, ok)
	assert.Equal(t, []string{"subject_id", "test_type"}, errs.Fields())
	assert.Equal(t, "must be a valid test type (placement, progress, diagnostic)", errs[1].Message)

	assert.NoError(t, v.Validate(startRequest{SubjectID: "42", TestType: models.TestPlacement}))
}

func TestItemValidator(t *testing.T) {
	audio := "https://cdn.example.com/l1.mp3"
	zero := 0

	tests := []struct {
		name   string
		mutate func(*models.Item)
		fields []string
	}{
		{"valid", func(*models.Item) {}, nil},
		{"non-positive discrimination", func(i *models.Item) { i.Discrimination = 0 }, []string{"discrimination"}},
		{"extreme difficulty", func(i *models.Item) { i.Difficulty = 9 }, []string{"difficulty"}},
		{"unknown type", func(i *models.Item) { i.Type = "essay" }, []string{"type"}},
		{"key not an option", func(i *models.Item) { i.AnswerKey = "C" }, []string{"answer_key"}},
		{"single option", func(i *models.Item) { i.Options = i.Options[:1] }, []string{"options"}},
		{"zero time limit", func(i *models.Item) { i.TimeLimitSeconds = &zero }, []string{"time_limit_seconds"}},
		{"true false key", func(i *models.Item) {
			i.Type = models.TrueFalse
			i.Options = nil
			i.AnswerKey = "maybe"
		}, []string{"answer_key"}},
		{"listening without audio", func(i *models.Item) { i.Skill = models.SkillListening }, []string{"audio_url"}},
		{"listening with audio", func(i *models.Item) {
			i.Skill = models.SkillListening
			i.AudioURL = &audio
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := validItem()
			tt.mutate(&item)

			errs := NewItemValidator().Validate(&item)
			if tt.fields == nil {
				assert.Empty(t, errs)
				return
			}
			assert.Equal(t, tt.fields, errs.Fields())
		})
	}
}

func TestValidator_ValidateItem(t *testing.T) {
	item := validItem()
	item.Discrimination = -1

	err := New().Validate(&item)
	require.Error(t, err)
	assert.Equal(t, []string{"discrimination"}, err.(ValidationErrors).Fields())
}

func TestValidator_NonStructTargetPassesThrough(t *testing.T) {
	err := New().ValidateStruct(42)
	require.Error(t, err)

	_, isFieldErrors := err.(ValidationErrors)
	assert.False(t, isFieldErrors)
}

func TestImportErrors(t *testing.T) {
	item := validItem()
	item.Discrimination = -0.5
	item.AnswerKey = "Z"

	got := ImportErrors(7, NewItemValidator().Validate(&item))
	require.Len(t, got, 2)
	assert.Equal(t, models.ImportValidationError{
		Row: 7, Column: "discrimination", Message: "must be in (0, 5]", Value: "-0.5",
	}, got[0])
	assert.Equal(t, 7, got[1].Row)
	assert.Equal(t, "answer_key", got[1].Column)

	assert.Nil(t, ImportErrors(3, nil))
}
