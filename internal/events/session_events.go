package events

import (
	"time"

	"github.com/SAP-F-2025/adaptive-assessment/internal/models"
	"github.com/google/uuid"
)

// EventType represents the lifecycle events of an adaptive session
type EventType string

const (
	EventSessionStarted   EventType = "session.started"
	EventAnswerSubmitted  EventType = "session.answer_submitted"
	EventSessionCompleted EventType = "session.completed"
	EventSessionAbandoned EventType = "session.abandoned"
)

const (
	eventSource  = "adaptive-assessment"
	eventVersion = "1.0"
)

// SessionEvent is the envelope published for every lifecycle event
type SessionEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	SessionID string                 `json:"session_id"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type SessionStartedEvent struct {
	SessionID   string          `json:"session_id"`
	SubjectID   string          `json:"subject_id"`
	TestType    models.TestType `json:"test_type"`
	FirstItemID string          `json:"first_item_id"`
	StartedAt   time.Time       `json:"started_at"`
}

type AnswerSubmittedEvent struct {
	SessionID       string  `json:"session_id"`
	SubjectID       string  `json:"subject_id"`
	ItemID          string  `json:"item_id"`
	Sequence        int     `json:"sequence"`
	IsCorrect       bool    `json:"is_correct"`
	TimedOut        bool    `json:"timed_out"`
	AbilityEstimate float64 `json:"ability_estimate"`
	StandardError   float64 `json:"standard_error"`
}

type SessionCompletedEvent struct {
	SessionID       string            `json:"session_id"`
	SubjectID       string            `json:"subject_id"`
	TestType        models.TestType   `json:"test_type"`
	AbilityEstimate float64           `json:"ability_estimate"`
	StandardError   float64           `json:"standard_error"`
	BandCode        string            `json:"band_code"`
	ItemsAsked      int               `json:"items_asked"`
	StopReason      models.StopReason `json:"stop_reason"`
	CompletedAt     time.Time         `json:"completed_at"`
}

type SessionAbandonedEvent struct {
	SessionID   string    `json:"session_id"`
	SubjectID   string    `json:"subject_id"`
	ItemsAsked  int       `json:"items_asked"`
	AbandonedAt time.Time `json:"abandoned_at"`
}

// NewSessionEvent wraps a payload in an envelope with a fresh ID
func NewSessionEvent(eventType EventType, sessionID string, data interface{}) *SessionEvent {
	return &SessionEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    eventSource,
		Version:   eventVersion,
		SessionID: sessionID,
		Data:      data,
	}
}

func NewSessionStartedEvent(session *models.Session) *SessionEvent {
	first, _ := session.PendingItemID()
	return NewSessionEvent(EventSessionStarted, session.ID, SessionStartedEvent{
		SessionID:   session.ID,
		SubjectID:   session.SubjectID,
		TestType:    session.TestType,
		FirstItemID: first,
		StartedAt:   session.StartedAt,
	})
}

// NewAnswerSubmittedEvent describes the latest response of the session
func NewAnswerSubmittedEvent(session *models.Session) *SessionEvent {
	payload := AnswerSubmittedEvent{
		SessionID:       session.ID,
		SubjectID:       session.SubjectID,
		AbilityEstimate: session.AbilityEstimate,
		StandardError:   session.StandardError,
	}
	if n := len(session.Responses); n > 0 {
		last := session.Responses[n-1]
		payload.ItemID = last.ItemID
		payload.Sequence = last.Sequence
		payload.IsCorrect = last.IsCorrect
		payload.TimedOut = last.TimedOut
	}
	return NewSessionEvent(EventAnswerSubmitted, session.ID, payload)
}

func NewSessionCompletedEvent(report *models.SessionReport) *SessionEvent {
	return NewSessionEvent(EventSessionCompleted, report.SessionID, SessionCompletedEvent{
		SessionID:       report.SessionID,
		SubjectID:       report.SubjectID,
		TestType:        report.TestType,
		AbilityEstimate: report.AbilityEstimate,
		StandardError:   report.StandardError,
		BandCode:        report.BandCode,
		ItemsAsked:      report.ItemsAsked,
		StopReason:      report.StopReason,
		CompletedAt:     report.CompletedAt,
	})
}

func NewSessionAbandonedEvent(session *models.Session) *SessionEvent {
	abandonedAt := time.Now().UTC()
	if session.EndedAt != nil {
		abandonedAt = *session.EndedAt
	}
	return NewSessionEvent(EventSessionAbandoned, session.ID, SessionAbandonedEvent{
		SessionID:   session.ID,
		SubjectID:   session.SubjectID,
		ItemsAsked:  len(session.AskedItemIDs),
		AbandonedAt: abandonedAt,
	})
}
