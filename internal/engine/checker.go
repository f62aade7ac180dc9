package engine

import (
	"strings"

	"github.com/SAP-F-2025/adaptive-assessment/internal/models"
)

// AnswerChecker decides whether an answer matches an item's key.
type AnswerChecker interface {
	Check(item models.Item, answer string) bool
}

type AnswerCheckerFunc func(item models.Item, answer string) bool

func (f AnswerCheckerFunc) Check(item models.Item, answer string) bool {
	return f(item, answer)
}

// KeyChecker compares answers with Item.AnswerKey, ignoring case and
// surrounding whitespace. Short answer and fill-in-the-blank keys may list
// alternatives separated by "|".
type KeyChecker struct{}

func (KeyChecker) Check(item models.Item, answer string) bool {
	given := normalize(answer)
	if given == "" {
		return false
	}

	switch item.Type {
	case models.TrueFalse:
		key, ok := parseBool(item.AnswerKey)
		if !ok {
			return false
		}
		got, ok := parseBool(given)
		return ok && got == key

	case models.MultipleChoice:
		key := normalize(item.AnswerKey)
		if given == key {
			return true
		}
		// Accept the option text in place of its ID.
		for _, opt := range item.Options {
			if normalize(opt.ID) == key && normalize(opt.Text) == given {
				return true
			}
		}
		return false

	default:
		for _, alt := range strings.Split(item.AnswerKey, "|") {
			if normalize(alt) == given {
				return true
			}
		}
		return false
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func parseBool(s string) (bool, bool) {
	switch normalize(s) {
	case "true", "t", "yes", "y", "1":
		return true, true
	case "false", "f", "no", "n", "0":
		return false, true
	}
	return false, false
}
