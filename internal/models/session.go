package models

import (
	"time"

	"gorm.io/datatypes"
)

type TestType string

const (
	TestPlacement  TestType = "placement"
	TestProgress   TestType = "progress"
	TestDiagnostic TestType = "diagnostic"
)

var TestTypes = []TestType{TestPlacement, TestProgress, TestDiagnostic}

func (t TestType) Valid() bool {
	for _, known := range TestTypes {
		if t == known {
			return true
		}
	}
	return false
}

type SessionStatus string

const (
	SessionNotStarted SessionStatus = "not_started"
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionAbandoned  SessionStatus = "abandoned"
)

// Terminal reports whether no further transition is possible.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionAbandoned
}

type StopReason string

const (
	StopPrecisionReached StopReason = "precision_reached"
	StopMaxItems         StopReason = "max_items"
	StopPoolExhausted    StopReason = "pool_exhausted"
	StopEndedByCaller    StopReason = "ended_by_caller"
	StopAbandoned        StopReason = "abandoned"
)

// Session is one adaptive test attempt by one test-taker.
type Session struct {
	ID              string                      `json:"id" gorm:"primaryKey;size:36"`
	SubjectID       string                      `json:"subject_id" gorm:"not null;size:255;index"`
	TestType        TestType                    `json:"test_type" gorm:"not null;size:32"`
	AskedItemIDs    datatypes.JSONSlice[string] `json:"asked_item_ids"`
	Responses       []Response                  `json:"responses" gorm:"foreignKey:SessionID"`
	AbilityEstimate float64                     `json:"ability_estimate"`
	StandardError   float64                     `json:"standard_error"`
	Status          SessionStatus               `json:"status" gorm:"default:in_progress;size:32;index"`
	StopReason      StopReason                  `json:"stop_reason,omitempty" gorm:"size:32"`
	LowConfidence   bool                        `json:"low_confidence"`
	Report          *SessionReport              `json:"report,omitempty" gorm:"foreignKey:SessionID"`

	// PendingItem is the asked item awaiting an answer, frozen when it was
	// asked. It holds the answer key and never leaves the service as JSON.
	PendingItem datatypes.JSONType[*ItemSnapshot] `json:"-"`

	// Version guards concurrent writers, see repositories.SessionRepository.Update.
	Version int `json:"version" gorm:"not null;default:1"`

	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (Session) TableName() string {
	return "adaptive_sessions"
}

// PendingItemID returns the most recently asked item when it has not been
// answered yet.
func (s *Session) PendingItemID() (string, bool) {
	if len(s.AskedItemIDs) == 0 || len(s.AskedItemIDs) == len(s.Responses) {
		return "", false
	}
	return s.AskedItemIDs[len(s.AskedItemIDs)-1], true
}

// Pending returns the frozen pending item, nil when none was recorded.
func (s *Session) Pending() *ItemSnapshot {
	return s.PendingItem.Data()
}

func (s *Session) SetPending(snapshot *ItemSnapshot) {
	s.PendingItem = datatypes.NewJSONType(snapshot)
}

// ItemSnapshot is the copy of an item a session scores against. Calibration
// or key changes made to the bank after the item was asked do not reach it.
type ItemSnapshot struct {
	ID               string        `json:"id"`
	Difficulty       float64       `json:"difficulty"`
	Discrimination   float64       `json:"discrimination"`
	Type             ItemType      `json:"type"`
	Category         string        `json:"category,omitempty"`
	ProficiencyTag   string        `json:"proficiency_tag,omitempty"`
	Skill            LanguageSkill `json:"skill,omitempty"`
	TimeLimitSeconds *int          `json:"time_limit_seconds,omitempty"`
	Prompt           string        `json:"prompt"`
	Options          []ItemOption  `json:"options,omitempty"`
	AnswerKey        string        `json:"answer_key"`
	AudioURL         *string       `json:"audio_url,omitempty"`
}

func SnapshotItem(item *Item) *ItemSnapshot {
	return &ItemSnapshot{
		ID:               item.ID,
		Difficulty:       item.Difficulty,
		Discrimination:   item.Discrimination,
		Type:             item.Type,
		Category:         item.Category,
		ProficiencyTag:   item.ProficiencyTag,
		Skill:            item.Skill,
		TimeLimitSeconds: item.TimeLimitSeconds,
		Prompt:           item.Prompt,
		Options:          append([]ItemOption(nil), item.Options...),
		AnswerKey:        item.AnswerKey,
		AudioURL:         item.AudioURL,
	}
}

// Item rebuilds the item as it was when the snapshot was taken.
func (s *ItemSnapshot) Item() Item {
	return Item{
		ID:               s.ID,
		Difficulty:       s.Difficulty,
		Discrimination:   s.Discrimination,
		Type:             s.Type,
		Category:         s.Category,
		ProficiencyTag:   s.ProficiencyTag,
		Skill:            s.Skill,
		TimeLimitSeconds: s.TimeLimitSeconds,
		Prompt:           s.Prompt,
		Options:          append([]ItemOption(nil), s.Options...),
		AnswerKey:        s.AnswerKey,
		AudioURL:         s.AudioURL,
		IsActive:         true,
	}
}

// Response is a single timed answer, created once per presented item.
type Response struct {
	ID                  uint      `json:"id" gorm:"primaryKey"`
	SessionID           string    `json:"session_id" gorm:"not null;size:36;uniqueIndex:idx_session_sequence"`
	Sequence            int       `json:"sequence" gorm:"not null;uniqueIndex:idx_session_sequence"`
	ItemID              string    `json:"item_id" gorm:"not null;size:64"`
	AnswerValue         string    `json:"answer_value" gorm:"type:text"`
	IsCorrect           bool      `json:"is_correct"`
	ResponseTimeSeconds float64   `json:"response_time_seconds"`
	ItemDifficulty      float64   `json:"item_difficulty"`
	ItemDiscrimination  float64   `json:"item_discrimination"`
	TimedOut            bool      `json:"timed_out"`
	CreatedAt           time.Time `json:"created_at"`
}

func (Response) TableName() string {
	return "session_responses"
}

// SessionReport is the scoring summary of a completed session. It is stored
// alongside the session so repeated finalization returns the same values.
type SessionReport struct {
	SessionID       string     `json:"session_id" gorm:"primaryKey;size:36"`
	SubjectID       string     `json:"subject_id" gorm:"size:255;index"`
	TestType        TestType   `json:"test_type" gorm:"size:32"`
	AbilityEstimate float64    `json:"ability_estimate"`
	StandardError   float64    `json:"standard_error"`
	BandCode        string     `json:"band_code" gorm:"size:8"`
	BandName        string     `json:"band_name" gorm:"size:64"`
	ItemsAsked      int        `json:"items_asked"`
	CorrectCount    int        `json:"correct_count"`
	Accuracy        float64    `json:"accuracy"`
	TimedOutCount   int        `json:"timed_out_count"`
	StopReason      StopReason `json:"stop_reason" gorm:"size:32"`
	LowConfidence   bool       `json:"low_confidence"`
	CompletedAt     time.Time  `json:"completed_at"`
}

func (SessionReport) TableName() string {
	return "session_reports"
}
