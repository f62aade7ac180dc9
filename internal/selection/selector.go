// Package selection picks the next item of an adaptive session by maximum
// Fisher information at the current ability estimate.
package selection

import (
	"errors"
	"math"

	"github.com/SAP-F-2025/adaptive-assessment/internal/irt"
	"github.com/SAP-F-2025/adaptive-assessment/internal/itembank"
	"github.com/SAP-F-2025/adaptive-assessment/internal/models"
)

// tieEpsilon treats two scores this close as equal.
const tieEpsilon = 1e-12

// CandidateSource is the read side of an item bank.
type CandidateSource interface {
	SelectCandidates(excludeIDs []string, c itembank.Constraints) ([]models.Item, error)
	Get(id string) (models.Item, bool)
}

type Config struct {
	PriorAbility float64
	// MaxPerCategory caps how many items of one category a session sees.
	// Zero disables the cap.
	MaxPerCategory int
	Constraints    itembank.Constraints
}

type Selector struct {
	cfg Config
}

func New(cfg Config) *Selector {
	return &Selector{cfg: cfg}
}

// NextItem returns the best remaining item for the session, or nil when
// the bank has nothing left to offer.
func (s *Selector) NextItem(session *models.Session, bank CandidateSource) (*models.Item, error) {
	candidates, err := s.candidates(session, bank)
	if errors.Is(err, itembank.ErrPoolExhausted) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if len(session.Responses) == 0 {
		return closestTo(s.cfg.PriorAbility, candidates), nil
	}
	return mostInformative(session.AbilityEstimate, candidates), nil
}

func (s *Selector) candidates(session *models.Session, bank CandidateSource) ([]models.Item, error) {
	asked := []string(session.AskedItemIDs)
	capped := s.cappedCategories(asked, bank)
	if len(capped) == 0 {
		return bank.SelectCandidates(asked, s.cfg.Constraints)
	}

	c := s.cfg.Constraints
	c.ExcludeCategories = append(append([]string(nil), c.ExcludeCategories...), capped...)
	candidates, err := bank.SelectCandidates(asked, c)
	if errors.Is(err, itembank.ErrPoolExhausted) {
		// Running out of uncapped categories relaxes the cap instead of
		// ending the session.
		return bank.SelectCandidates(asked, s.cfg.Constraints)
	}
	return candidates, err
}

func (s *Selector) cappedCategories(asked []string, bank CandidateSource) []string {
	if s.cfg.MaxPerCategory <= 0 {
		return nil
	}
	counts := make(map[string]int)
	var order []string
	for _, id := range asked {
		item, ok := bank.Get(id)
		if !ok || item.Category == "" {
			continue
		}
		if counts[item.Category] == 0 {
			order = append(order, item.Category)
		}
		counts[item.Category]++
	}

	var capped []string
	for _, category := range order {
		if counts[category] >= s.cfg.MaxPerCategory {
			capped = append(capped, category)
		}
	}
	return capped
}

// closestTo picks the item whose difficulty is nearest theta.
func closestTo(theta float64, candidates []models.Item) *models.Item {
	var best *models.Item
	for i := range candidates {
		c := &candidates[i]
		if best == nil || closerTie(theta, c, best) {
			best = c
		}
	}
	return best
}

// mostInformative picks the item with maximum Fisher information at theta.
func mostInformative(theta float64, candidates []models.Item) *models.Item {
	var (
		best     *models.Item
		bestInfo float64
	)
	for i := range candidates {
		c := &candidates[i]
		info := irt.Information(theta, params(c))
		switch {
		case best == nil || info > bestInfo+tieEpsilon:
			best, bestInfo = c, info
		case math.Abs(info-bestInfo) <= tieEpsilon && closerTie(theta, c, best):
			best, bestInfo = c, info
		}
	}
	return best
}

// closerTie reports whether a beats b on the tie-break order: difficulty
// nearest theta, then lowest ID.
func closerTie(theta float64, a, b *models.Item) bool {
	da := math.Abs(a.Difficulty - theta)
	db := math.Abs(b.Difficulty - theta)
	if math.Abs(da-db) > tieEpsilon {
		return da < db
	}
	return a.ID < b.ID
}

func params(item *models.Item) irt.Params {
	return irt.Params{Discrimination: item.Discrimination, Difficulty: item.Difficulty}
}
