package models

import (
	"time"

	"gorm.io/datatypes"
)

type ItemType string

const (
	MultipleChoice ItemType = "multiple_choice"
	TrueFalse      ItemType = "true_false"
	ShortAnswer    ItemType = "short_answer"
	FillInBlank    ItemType = "fill_blank"
)

// ItemTypes lists every recognised item type.
var ItemTypes = []ItemType{MultipleChoice, TrueFalse, ShortAnswer, FillInBlank}

func (t ItemType) Valid() bool {
	for _, known := range ItemTypes {
		if t == known {
			return true
		}
	}
	return false
}

type LanguageSkill string

const (
	SkillGrammar    LanguageSkill = "grammar"
	SkillVocabulary LanguageSkill = "vocabulary"
	SkillReading    LanguageSkill = "reading"
	SkillListening  LanguageSkill = "listening"
)

var LanguageSkills = []LanguageSkill{SkillGrammar, SkillVocabulary, SkillReading, SkillListening}

// ItemOption is one selectable choice of a multiple choice item.
type ItemOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Item is a calibrated assessment question. Difficulty (b) and
// Discrimination (a) are the 2PL parameters.
type Item struct {
	ID               string                          `json:"id" gorm:"primaryKey;size:64"`
	Difficulty       float64                         `json:"difficulty" gorm:"not null;index"`
	Discrimination   float64                         `json:"discrimination" gorm:"not null"`
	Type             ItemType                        `json:"type" gorm:"not null;size:32;index"`
	Category         string                          `json:"category" gorm:"size:100;index"`
	ProficiencyTag   string                          `json:"proficiency_tag" gorm:"size:50"`
	Skill            LanguageSkill                   `json:"skill,omitempty" gorm:"size:32"`
	TimeLimitSeconds *int                            `json:"time_limit_seconds,omitempty"`
	Prompt           string                          `json:"prompt" gorm:"type:text"`
	Options          datatypes.JSONSlice[ItemOption] `json:"options,omitempty"`
	AnswerKey        string                          `json:"-" gorm:"not null;size:500"`
	AudioURL         *string                         `json:"audio_url,omitempty" gorm:"size:500"`
	IsActive         bool                            `json:"is_active" gorm:"not null;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Item) TableName() string {
	return "items"
}

// TimedOut reports whether a response taking responseTimeSeconds overran
// the item's time limit. Items without a limit never time out.
func (i Item) TimedOut(responseTimeSeconds float64) bool {
	if i.TimeLimitSeconds == nil {
		return false
	}
	return responseTimeSeconds > float64(*i.TimeLimitSeconds)
}
