// Package engine drives one adaptive test session: it asks the selector for
// items, re-estimates ability after every answer and applies the stopping
// rules. A Controller has exactly one writer and is not safe for concurrent
// use; independent sessions share only the read-only item bank.
package engine

import (
	"fmt"
	"time"

	"github.com/SAP-F-2025/adaptive-assessment/internal/irt"
	"github.com/SAP-F-2025/adaptive-assessment/internal/itembank"
	"github.com/SAP-F-2025/adaptive-assessment/internal/models"
	"github.com/SAP-F-2025/adaptive-assessment/internal/scoring"
	"github.com/SAP-F-2025/adaptive-assessment/internal/selection"
	"github.com/google/uuid"
)

// Bank is the item bank as seen by a session.
type Bank interface {
	selection.CandidateSource
}

type StartResult struct {
	SessionID       string       `json:"session_id"`
	FirstItem       *models.Item `json:"first_item"`
	AbilityEstimate float64      `json:"ability_estimate"`
	StandardError   float64      `json:"standard_error"`
}

type SubmitResult struct {
	IsCorrect        bool              `json:"is_correct"`
	TimedOut         bool              `json:"timed_out"`
	NewAbility       float64           `json:"new_ability"`
	NewStandardError float64           `json:"new_standard_error"`
	NextItem         *models.Item      `json:"next_item"`
	Completed        bool              `json:"completed"`
	StopReason       models.StopReason `json:"stop_reason,omitempty"`
	LowConfidence    bool              `json:"low_confidence"`
}

type Option func(*Controller)

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithAnswerChecker(checker AnswerChecker) Option {
	return func(c *Controller) { c.checker = checker }
}

func WithIDGenerator(newID func() string) Option {
	return func(c *Controller) { c.newID = newID }
}

type Controller struct {
	bank      Bank
	cfg       Config
	estimator *irt.Estimator
	checker   AnswerChecker
	now       func() time.Time
	newID     func() string

	session *models.Session
}

// New returns a controller in the NotStarted state.
func New(bank Bank, cfg Config, opts ...Option) *Controller {
	cfg = cfg.normalized()
	c := &Controller{
		bank:      bank,
		cfg:       cfg,
		estimator: irt.NewEstimator(cfg.Estimator),
		checker:   KeyChecker{},
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Restore returns a controller that continues a persisted session.
func Restore(session *models.Session, bank Bank, cfg Config, opts ...Option) *Controller {
	c := New(bank, cfg, opts...)
	c.session = session
	return c
}

// Session returns the controlled session, nil before Start. Callers must
// treat it as read-only.
func (c *Controller) Session() *models.Session {
	return c.session
}

func (c *Controller) Status() models.SessionStatus {
	if c.session == nil {
		return models.SessionNotStarted
	}
	return c.session.Status
}

// CurrentItem returns the item awaiting an answer, if any.
func (c *Controller) CurrentItem() (*models.Item, bool) {
	if c.session == nil || c.session.Status != models.SessionInProgress {
		return nil, false
	}
	id, ok := c.session.PendingItemID()
	if !ok {
		return nil, false
	}
	item, ok := c.askedItem(c.session, id)
	if !ok {
		return nil, false
	}
	return &item, true
}

// askedItem returns an asked item as it was when asked. Sessions stored
// without a snapshot fall back to the current bank.
func (c *Controller) askedItem(s *models.Session, id string) (models.Item, bool) {
	if snapshot := s.Pending(); snapshot != nil && snapshot.ID == id {
		return snapshot.Item(), true
	}
	return c.bank.Get(id)
}

func (c *Controller) Start(subjectID string, testType models.TestType) (*StartResult, error) {
	if c.session != nil {
		return nil, ErrSessionAlreadyStarted
	}
	if !testType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTestType, testType)
	}

	session := &models.Session{
		ID:              c.newID(),
		SubjectID:       subjectID,
		TestType:        testType,
		AskedItemIDs:    []string{},
		AbilityEstimate: c.cfg.PriorAbility,
		StandardError:   c.cfg.PriorStandardError,
		Status:          models.SessionInProgress,
		StartedAt:       c.now(),
		Version:         1,
	}

	first, err := c.selectorFor(testType).NextItem(session, c.bank)
	if err != nil {
		return nil, fmt.Errorf("failed to select first item: %w", err)
	}
	if first == nil {
		return nil, fmt.Errorf("failed to select first item: %w", itembank.ErrPoolExhausted)
	}

	session.AskedItemIDs = append(session.AskedItemIDs, first.ID)
	session.SetPending(models.SnapshotItem(first))
	c.session = session

	return &StartResult{
		SessionID:       session.ID,
		FirstItem:       first,
		AbilityEstimate: session.AbilityEstimate,
		StandardError:   session.StandardError,
	}, nil
}

// SubmitAnswer scores the answer to the pending item, re-estimates ability
// over the full history and either completes the session or asks the next
// item. Answers past the item time limit are kept and flagged.
func (c *Controller) SubmitAnswer(itemID, answer string, responseTimeSeconds float64) (*SubmitResult, error) {
	if err := c.requireInProgress(); err != nil {
		return nil, err
	}
	pending, ok := c.session.PendingItemID()
	if !ok || pending != itemID {
		return nil, fmt.Errorf("%w: got %s", ErrOutOfOrderSubmission, itemID)
	}
	if responseTimeSeconds < 0 {
		return nil, ErrInvalidResponseTime
	}
	item, ok := c.askedItem(c.session, itemID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownItem, itemID)
	}

	// Work on a copy so a failure below leaves the session untouched.
	next := cloneSession(c.session)
	now := c.now()

	response := models.Response{
		SessionID:           next.ID,
		Sequence:            len(next.Responses) + 1,
		ItemID:              item.ID,
		AnswerValue:         answer,
		IsCorrect:           c.checker.Check(item, answer),
		ResponseTimeSeconds: responseTimeSeconds,
		ItemDifficulty:      item.Difficulty,
		ItemDiscrimination:  item.Discrimination,
		TimedOut:            item.TimedOut(responseTimeSeconds),
		CreatedAt:           now,
	}
	next.Responses = append(next.Responses, response)

	est := c.estimator.Estimate(observations(next.Responses))
	next.AbilityEstimate = est.Theta
	next.StandardError = est.StandardError
	next.LowConfidence = !est.Converged

	result := &SubmitResult{
		IsCorrect:        response.IsCorrect,
		TimedOut:         response.TimedOut,
		NewAbility:       est.Theta,
		NewStandardError: est.StandardError,
		LowConfidence:    next.LowConfidence,
	}

	reason, stop := c.stoppingRule(next)
	if !stop {
		nextItem, err := c.selectorFor(next.TestType).NextItem(next, c.bank)
		if err != nil {
			return nil, fmt.Errorf("failed to select next item: %w", err)
		}
		if nextItem == nil {
			reason, stop = models.StopPoolExhausted, true
		} else {
			next.AskedItemIDs = append(next.AskedItemIDs, nextItem.ID)
			next.SetPending(models.SnapshotItem(nextItem))
			result.NextItem = nextItem
		}
	}

	if stop {
		complete(next, reason, now)
		result.Completed = true
		result.StopReason = reason
	}

	c.session = next
	return result, nil
}

// End terminates the session early on the caller's request and scores it.
// The pending item was never answered and is withdrawn.
func (c *Controller) End() (*models.SessionReport, error) {
	if err := c.requireInProgress(); err != nil {
		return nil, err
	}

	next := cloneSession(c.session)
	if _, ok := next.PendingItemID(); ok {
		next.AskedItemIDs = next.AskedItemIDs[:len(next.AskedItemIDs)-1]
	}
	complete(next, models.StopEndedByCaller, c.now())
	c.session = next

	report := *next.Report
	return &report, nil
}

// Abandon moves the session to Abandoned. No band is computed.
func (c *Controller) Abandon() error {
	if err := c.requireInProgress(); err != nil {
		return err
	}

	now := c.now()
	next := cloneSession(c.session)
	next.Status = models.SessionAbandoned
	next.StopReason = models.StopAbandoned
	next.EndedAt = &now
	next.SetPending(nil)
	c.session = next
	return nil
}

// Finalize returns the scoring report of a completed session. The report is
// computed once at completion, so repeated calls return identical values.
func (c *Controller) Finalize() (*models.SessionReport, error) {
	if c.session == nil {
		return nil, ErrSessionNotStarted
	}
	switch c.session.Status {
	case models.SessionAbandoned:
		return nil, ErrSessionAbandoned
	case models.SessionInProgress:
		return nil, ErrSessionInProgress
	}

	if c.session.Report == nil {
		completedAt := c.now()
		if c.session.EndedAt != nil {
			completedAt = *c.session.EndedAt
		}
		c.session.Report = scoring.Finalize(c.session, completedAt)
	}

	report := *c.session.Report
	return &report, nil
}

func (c *Controller) requireInProgress() error {
	if c.session == nil {
		return ErrSessionNotStarted
	}
	if c.session.Status.Terminal() {
		return ErrSessionTerminal
	}
	return nil
}

func (c *Controller) stoppingRule(s *models.Session) (models.StopReason, bool) {
	asked := len(s.AskedItemIDs)
	if s.StandardError <= c.cfg.PrecisionThreshold && asked >= c.cfg.MinItems {
		return models.StopPrecisionReached, true
	}
	if asked >= c.cfg.MaxItemsFor(s.TestType) {
		return models.StopMaxItems, true
	}
	return "", false
}

func (c *Controller) selectorFor(testType models.TestType) *selection.Selector {
	cfg := selection.Config{
		PriorAbility:   c.cfg.PriorAbility,
		MaxPerCategory: c.cfg.MaxPerCategory,
	}
	if types, ok := c.cfg.ItemTypes[testType]; ok {
		cfg.Constraints.Types = types
	}
	return selection.New(cfg)
}

func complete(s *models.Session, reason models.StopReason, at time.Time) {
	s.Status = models.SessionCompleted
	s.StopReason = reason
	s.EndedAt = &at
	s.SetPending(nil)
	s.Report = scoring.Finalize(s, at)
}

func observations(responses []models.Response) []irt.Observation {
	out := make([]irt.Observation, len(responses))
	for i, r := range responses {
		out[i] = irt.Observation{
			Params: irt.Params{
				Discrimination: r.ItemDiscrimination,
				Difficulty:     r.ItemDifficulty,
			},
			Correct: r.IsCorrect,
		}
	}
	return out
}

func cloneSession(s *models.Session) *models.Session {
	next := *s
	next.AskedItemIDs = append([]string(nil), s.AskedItemIDs...)
	next.Responses = append([]models.Response(nil), s.Responses...)
	if s.Report != nil {
		report := *s.Report
		next.Report = &report
	}
	return &next
}
