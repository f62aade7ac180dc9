package engine

import (
	"github.com/SAP-F-2025/adaptive-assessment/internal/irt"
	"github.com/SAP-F-2025/adaptive-assessment/internal/models"
)

// Config holds the priors and stopping rules of a session.
type Config struct {
	PriorAbility       float64
	PriorStandardError float64

	// A session stops once SE <= PrecisionThreshold and at least MinItems
	// were asked, or when the per test type item cap is reached.
	PrecisionThreshold float64
	MinItems           int
	MaxItems           int
	PlacementMaxItems  int

	MaxPerCategory int

	// ItemTypes restricts the item types offered per test type. Test types
	// without an entry see every type.
	ItemTypes map[models.TestType][]models.ItemType

	Estimator irt.EstimatorConfig
}

func DefaultConfig() Config {
	return Config{
		PriorAbility:       0.0,
		PriorStandardError: 1.0,
		PrecisionThreshold: 0.3,
		MinItems:           5,
		MaxItems:           20,
		PlacementMaxItems:  30,
		Estimator:          irt.DefaultEstimatorConfig(),
	}
}

// MaxItemsFor returns the item cap for a test type.
func (c Config) MaxItemsFor(t models.TestType) int {
	if t == models.TestPlacement && c.PlacementMaxItems > 0 {
		return c.PlacementMaxItems
	}
	return c.MaxItems
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.PriorStandardError <= 0 {
		c.PriorStandardError = def.PriorStandardError
	}
	if c.PrecisionThreshold <= 0 {
		c.PrecisionThreshold = def.PrecisionThreshold
	}
	if c.MinItems <= 0 {
		c.MinItems = 1
	}
	if c.MaxItems <= 0 {
		c.MaxItems = def.MaxItems
	}
	if c.MaxItems < c.MinItems {
		c.MaxItems = c.MinItems
	}
	c.Estimator.PriorMean = c.PriorAbility
	return c
}
