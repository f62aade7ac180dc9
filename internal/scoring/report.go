package scoring

import (
	"time"

	"github.com/SAP-F-2025/adaptive-assessment/internal/models"
)

// Finalize summarises a finished session. Accuracy is reported next to the
// ability estimate but the band depends on theta alone.
func Finalize(session *models.Session, completedAt time.Time) *models.SessionReport {
	band := BandFor(session.AbilityEstimate)

	report := &models.SessionReport{
		SessionID:       session.ID,
		SubjectID:       session.SubjectID,
		TestType:        session.TestType,
		AbilityEstimate: session.AbilityEstimate,
		StandardError:   session.StandardError,
		BandCode:        band.Code,
		BandName:        band.Name,
		ItemsAsked:      len(session.AskedItemIDs),
		StopReason:      session.StopReason,
		LowConfidence:   session.LowConfidence,
		CompletedAt:     completedAt,
	}

	for _, r := range session.Responses {
		if r.IsCorrect {
			report.CorrectCount++
		}
		if r.TimedOut {
			report.TimedOutCount++
		}
	}
	if n := len(session.Responses); n > 0 {
		report.Accuracy = float64(report.CorrectCount) / float64(n)
	}

	return report
}
