package engine

import (
	"testing"

	"github.com/SAP-F-2025/adaptive-assessment/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestKeyChecker(t *testing.T) {
	mc := models.Item{
		Type:      models.MultipleChoice,
		AnswerKey: "B",
		Options: []models.ItemOption{
			{ID: "A", Text: "go"},
			{ID: "B", Text: "went"},
		},
	}
	tf := models.Item{Type: models.TrueFalse, AnswerKey: "False"}
	fill := models.Item{Type: models.FillInBlank, AnswerKey: "has been | was"}

	tests := []struct {
		name   string
		item   models.Item
		answer string
		want   bool
	}{
		{"option id", mc, "B", true},
		{"option id lower case", mc, " b ", true},
		{"option text", mc, "Went", true},
		{"wrong option", mc, "A", false},
		{"wrong option text", mc, "go", false},
		{"empty", mc, "  ", false},
		{"true false word", tf, "false", true},
		{"true false synonym", tf, "No", true},
		{"true false wrong", tf, "yes", false},
		{"true false garbage", tf, "maybe", false},
		{"fill first alternative", fill, "Has  been", true},
		{"fill second alternative", fill, "was", true},
		{"fill wrong", fill, "is", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KeyChecker{}.Check(tt.item, tt.answer))
		})
	}
}

func TestAnswerCheckerFunc(t *testing.T) {
	always := AnswerCheckerFunc(func(models.Item, string) bool { return true })
	assert.True(t, always.Check(models.Item{}, ""))
}
