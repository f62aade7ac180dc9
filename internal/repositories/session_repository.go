package repositories

import (
	"context"

	"github.com/SAP-F-2025/adaptive-assessment/internal/models"
)

// SessionRepository interface for adaptive session persistence
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error

	// GetByID loads a session with its responses in sequence order and its report
	GetByID(ctx context.Context, id string) (*models.Session, error)

	// Update writes the session state, appends responses that have not been
	// stored yet and stores the report once. The write only succeeds while the
	// stored version equals expectedVersion; session.Version is advanced on success.
	Update(ctx context.Context, session *models.Session, expectedVersion int) error

	ListBySubject(ctx context.Context, subjectID string, filters SessionFilters) ([]*models.Session, int64, error)

	GetReport(ctx context.Context, sessionID string) (*models.SessionReport, error)
	ListReportsBySubject(ctx context.Context, subjectID string) ([]*models.SessionReport, error)
}
