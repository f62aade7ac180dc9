package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/SAP-F-2025/adaptive-assessment/internal/models"
	"github.com/SAP-F-2025/adaptive-assessment/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionPostgreSQL struct {
	db *gorm.DB
}

func NewSessionPostgreSQL(db *gorm.DB) repositories.SessionRepository {
	return &SessionPostgreSQL{db: db}
}

func (r *SessionPostgreSQL) Create(ctx context.Context, session *models.Session) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if session.Version == 0 {
			session.Version = 1
		}
		if err := tx.Omit(clause.Associations).Create(session).Error; err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		return r.appendResponses(tx, session)
	})
}

func (r *SessionPostgreSQL) GetByID(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	if err := r.db.WithContext(ctx).
		Preload("Responses", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Preload("Report").
		First(&session, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &session, nil
}

func (r *SessionPostgreSQL) Update(ctx context.Context, session *models.Session, expectedVersion int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Session{}).
			Where("id = ? AND version = ?", session.ID, expectedVersion).
			Updates(map[string]interface{}{
				"asked_item_ids":   session.AskedItemIDs,
				"ability_estimate": session.AbilityEstimate,
				"standard_error":   session.StandardError,
				"status":           session.Status,
				"stop_reason":      session.StopReason,
				"low_confidence":   session.LowConfidence,
				"pending_item":     session.PendingItem,
				"ended_at":         session.EndedAt,
				"version":          expectedVersion + 1,
				"updated_at":       time.Now(),
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update session: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Session{}).Where("id = ?", session.ID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return repositories.ErrNotFound
			}
			return repositories.ErrVersionConflict
		}

		if err := r.appendResponses(tx, session); err != nil {
			return err
		}

		if session.Report != nil {
			// The first stored report wins.
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(session.Report).Error; err != nil {
				return fmt.Errorf("failed to store session report: %w", err)
			}
		}

		session.Version = expectedVersion + 1
		return nil
	})
}

// appendResponses inserts responses that have no primary key yet. A
// sequence that is already stored is left untouched.
func (r *SessionPostgreSQL) appendResponses(tx *gorm.DB, session *models.Session) error {
	for i := range session.Responses {
		response := &session.Responses[i]
		if response.ID != 0 {
			continue
		}
		response.SessionID = session.ID
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "sequence"}},
			DoNothing: true,
		}).Create(response).Error; err != nil {
			return fmt.Errorf("failed to store response %d: %w", response.Sequence, err)
		}
	}
	return nil
}

func (r *SessionPostgreSQL) ListBySubject(ctx context.Context, subjectID string, filters repositories.SessionFilters) ([]*models.Session, int64, error) {
	var sessions []*models.Session
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Session{}).Where("subject_id = ?", subjectID)
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.TestType != nil {
		query = query.Where("test_type = ?", *filters.TestType)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortOrder := filters.SortOrder
	if sortOrder == "" {
		sortOrder = "desc"
	}
	query = applyPaginationAndSort(query, "started_at", sortOrder, filters.Limit, filters.Offset, "started_at")

	if err := query.Preload("Report").Find(&sessions).Error; err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

func (r *SessionPostgreSQL) GetReport(ctx context.Context, sessionID string) (*models.SessionReport, error) {
	var report models.SessionReport
	if err := r.db.WithContext(ctx).First(&report, "session_id = ?", sessionID).Error; err != nil {
		return nil, notFound(err)
	}
	return &report, nil
}

func (r *SessionPostgreSQL) ListReportsBySubject(ctx context.Context, subjectID string) ([]*models.SessionReport, error) {
	var reports []*models.SessionReport
	if err := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("completed_at ASC").
		Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}
