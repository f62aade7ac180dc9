package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/adaptive-assessment/internal/cache"
	"github.com/SAP-F-2025/adaptive-assessment/internal/engine"
	"github.com/SAP-F-2025/adaptive-assessment/internal/events"
	"github.com/SAP-F-2025/adaptive-assessment/internal/models"
	"github.com/SAP-F-2025/adaptive-assessment/internal/repositories"
	"github.com/SAP-F-2025/adaptive-assessment/internal/validator"
)

type sessionService struct {
	sessions  repositories.SessionRepository
	bank      BankProvider
	cache     *cache.SessionCache
	publisher events.EventPublisher
	validator *validator.Validator
	logger    *ServiceLogger
	cfg       engine.Config
	opts      []engine.Option
}

type SessionServiceDeps struct {
	Sessions  repositories.SessionRepository
	Bank      BankProvider
	Cache     *cache.SessionCache // optional
	Publisher events.EventPublisher
	Validator *validator.Validator
	Logger    *slog.Logger
	Engine    engine.Config
	Options   []engine.Option
}

func NewSessionService(deps SessionServiceDeps) SessionService {
	return &sessionService{
		sessions:  deps.Sessions,
		bank:      deps.Bank,
		cache:     deps.Cache,
		publisher: deps.Publisher,
		validator: deps.Validator,
		logger:    NewServiceLogger(deps.Logger, LogConfig{Service: "adaptive-assessment", Component: "session"}),
		cfg:       deps.Engine,
		opts:      deps.Options,
	}
}

// ===== SESSION OPERATIONS =====

func (s *sessionService) Start(ctx context.Context, req *StartSessionRequest) (resp *StartSessionResponse, err error) {
	op := s.logger.WithOperation(ctx, "start_session", req.SubjectID)
	defer func() {
		id := ""
		if resp != nil {
			id = resp.SessionID
		}
		op.LogResult(id, "session", err)
	}()

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := authorizeSubject(ctx, req.SubjectID); err != nil {
		return nil, err
	}

	bank, err := s.bank.Bank(ctx)
	if err != nil {
		return nil, err
	}

	ctrl := engine.New(bank, s.cfg, s.opts...)
	started, err := ctrl.Start(req.SubjectID, req.TestType)
	if err != nil {
		return nil, err
	}

	session := ctrl.Session()
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	s.cacheSession(ctx, session)
	s.publish(ctx, events.NewSessionStartedEvent(session))

	op.With(slog.String("test_type", string(req.TestType)), slog.String("first_item_id", started.FirstItem.ID))

	return &StartSessionResponse{
		SessionID:       started.SessionID,
		FirstItem:       presentItem(started.FirstItem),
		AbilityEstimate: started.AbilityEstimate,
		StandardError:   started.StandardError,
	}, nil
}

func (s *sessionService) SubmitAnswer(ctx context.Context, sessionID string, req *SubmitAnswerRequest) (resp *SubmitAnswerResponse, err error) {
	op := s.logger.WithOperation(ctx, "submit_answer", "")
	defer func() { op.LogResult(sessionID, "session", err) }()

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	var result *engine.SubmitResult
	session, err := s.apply(ctx, sessionID, func(ctrl *engine.Controller) error {
		var err error
		result, err = ctrl.SubmitAnswer(req.ItemID, req.AnswerValue, req.ResponseTimeSeconds)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewAnswerSubmittedEvent(session))
	op.With(
		slog.String("item_id", req.ItemID),
		slog.Bool("is_correct", result.IsCorrect),
		slog.Float64("theta", result.NewAbility),
		slog.Float64("se", result.NewStandardError),
	)
	if result.LowConfidence {
		op.With(slog.String("estimator", irtNonConvergent))
	}

	resp = &SubmitAnswerResponse{
		IsCorrect:        result.IsCorrect,
		TimedOut:         result.TimedOut,
		NewAbility:       result.NewAbility,
		NewStandardError: result.NewStandardError,
		NextItem:         presentItem(result.NextItem),
		Completed:        result.Completed,
		StopReason:       result.StopReason,
		LowConfidence:    result.LowConfidence,
	}
	if result.Completed {
		resp.Report = session.Report
		s.publish(ctx, events.NewSessionCompletedEvent(session.Report))
	}
	return resp, nil
}

// Finalize returns the stored report; it never recomputes one that exists.
func (s *sessionService) Finalize(ctx context.Context, sessionID string) (report *models.SessionReport, err error) {
	op := s.logger.WithOperation(ctx, "finalize_session", "")
	defer func() { op.LogResult(sessionID, "session", err) }()

	if s.cache != nil {
		if cached, err := s.cache.GetReport(ctx, sessionID); err == nil {
			if err := authorizeSubject(ctx, cached.SubjectID); err != nil {
				return nil, err
			}
			return cached, nil
		}
	}

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	hadReport := session.Report != nil
	expected := session.Version

	bank, err := s.bank.Bank(ctx)
	if err != nil {
		return nil, err
	}
	ctrl := engine.Restore(session, bank, s.cfg, s.opts...)
	report, err = ctrl.Finalize()
	if err != nil {
		return nil, err
	}

	if !hadReport {
		if err := s.persist(ctx, ctrl.Session(), expected); err != nil {
			return nil, err
		}
	}
	if s.cache != nil {
		if err := s.cache.PutReport(ctx, report); err != nil {
			s.logger.Logger().Warn("Failed to cache report", "session_id", sessionID, "error", err)
		}
	}
	return report, nil
}

func (s *sessionService) End(ctx context.Context, sessionID string) (report *models.SessionReport, err error) {
	op := s.logger.WithOperation(ctx, "end_session", "")
	defer func() { op.LogResult(sessionID, "session", err) }()

	session, err := s.apply(ctx, sessionID, func(ctrl *engine.Controller) error {
		var err error
		report, err = ctrl.End()
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewSessionCompletedEvent(session.Report))
	return report, nil
}

func (s *sessionService) Abandon(ctx context.Context, sessionID string) (err error) {
	op := s.logger.WithOperation(ctx, "abandon_session", "")
	defer func() { op.LogResult(sessionID, "session", err) }()

	session, err := s.apply(ctx, sessionID, func(ctrl *engine.Controller) error {
		return ctrl.Abandon()
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.NewSessionAbandonedEvent(session))
	return nil
}

func (s *sessionService) Get(ctx context.Context, sessionID string) (*SessionResponse, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	resp := &SessionResponse{Session: session}
	id, ok := session.PendingItemID()
	if !ok || session.Status != models.SessionInProgress {
		return resp, nil
	}
	if snapshot := session.Pending(); snapshot != nil && snapshot.ID == id {
		item := snapshot.Item()
		resp.CurrentItem = presentItem(&item)
	} else {
		bank, err := s.bank.Bank(ctx)
		if err != nil {
			return nil, err
		}
		if item, ok := bank.Get(id); ok {
			resp.CurrentItem = presentItem(&item)
		}
	}
	return resp, nil
}

func (s *sessionService) ListBySubject(ctx context.Context, subjectID string, filters repositories.SessionFilters) (*SessionListResponse, error) {
	if err := authorizeSubject(ctx, subjectID); err != nil {
		return nil, err
	}
	sessions, total, err := s.sessions.ListBySubject(ctx, subjectID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return &SessionListResponse{
		Sessions: sessions,
		Total:    total,
		Limit:    filters.Limit,
		Offset:   filters.Offset,
	}, nil
}

// ===== HELPERS =====

const irtNonConvergent = "non_convergent"

// apply restores a controller for the session, runs fn and persists the
// result. Nothing is written when fn fails.
func (s *sessionService) apply(ctx context.Context, sessionID string, fn func(*engine.Controller) error) (*models.Session, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	bank, err := s.bank.Bank(ctx)
	if err != nil {
		return nil, err
	}

	expected := session.Version
	ctrl := engine.Restore(session, bank, s.cfg, s.opts...)
	if err := fn(ctrl); err != nil {
		return nil, err
	}

	updated := ctrl.Session()
	if err := s.persist(ctx, updated, expected); err != nil {
		return nil, err
	}
	return updated, nil
}

// load fetches a session the caller is allowed to act on
func (s *sessionService) load(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := s.fetch(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := authorizeSubject(ctx, session.SubjectID); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *sessionService) fetch(ctx context.Context, sessionID string) (*models.Session, error) {
	if s.cache != nil {
		session, err := s.cache.GetSession(ctx, sessionID)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Logger().Warn("Session cache read failed", "session_id", sessionID, "error", err)
		}
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	s.cacheSession(ctx, session)
	return session, nil
}

func (s *sessionService) persist(ctx context.Context, session *models.Session, expectedVersion int) error {
	err := s.sessions.Update(ctx, session, expectedVersion)
	if errors.Is(err, repositories.ErrVersionConflict) {
		// Our snapshot is stale; make the next read go to the database.
		if s.cache != nil {
			_ = s.cache.Invalidate(ctx, session.ID)
		}
		return ErrSessionConflict
	}
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	s.cacheSession(ctx, session)
	if session.Report != nil && s.cache != nil {
		if err := s.cache.PutReport(ctx, session.Report); err != nil {
			s.logger.Logger().Warn("Failed to cache report", "session_id", session.ID, "error", err)
		}
	}
	return nil
}

func (s *sessionService) cacheSession(ctx context.Context, session *models.Session) {
	if s.cache == nil {
		return
	}
	if err := s.cache.PutSession(ctx, session); err != nil {
		s.logger.Logger().Warn("Failed to cache session", "session_id", session.ID, "error", err)
	}
}

// publish reports lifecycle events; a broker outage never fails the operation.
func (s *sessionService) publish(ctx context.Context, event *events.SessionEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishSessionEvent(ctx, event); err != nil {
		s.logger.Logger().Error("Failed to publish session event",
			"event_type", event.Type,
			"session_id", event.SessionID,
			"error", err)
	}
}
