package evaluation

import (
	"strings"

	"github.com/yoockh/yoointerview/internal/models"
)

// ScoreBand describes where a 0-100 score falls.
func ScoreBand(score int) string {
	switch {
	case score >= 90:
		return "Exceptional candidate, exceeds requirements"
	case score >= 80:
		return "Strong candidate, meets most requirements"
	case score >= 70:
		return "Good candidate, meets basic requirements"
	case score >= 60:
		return "Adequate candidate, some gaps"
	default:
		return "Does not meet requirements"
	}
}

// DecisionForScore maps a score band onto the closed decision set.
func DecisionForScore(score int) string {
	switch {
	case score >= 90:
		return models.DecisionStrongHire
	case score >= 70:
		return models.DecisionHire
	case score >= 60:
		return models.DecisionHireWithConditions
	default:
		return models.DecisionNoHire
	}
}

// NormalizeDecision folds case, underscores and hyphens ("strong_hire").
func NormalizeDecision(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	for _, d := range models.HiringDecisions {
		if s == d {
			return d, true
		}
	}
	return "", false
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
