package evaluation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/utils"
)

var ErrUnparseable = errors.New("evaluation output is not a usable json object")

// Parse decodes a model reply into an Evaluation. Missing pieces are completed
// so the record always carries a score, a decision from the closed set and
// non-empty strengths and improvements.
func Parse(raw string) (*models.Evaluation, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(utils.ExtractJSONObject(raw)), &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	score, hasScore := coerceInt(pick(m, "finalScore", "final_score", "score"))
	decision, hasDecision := NormalizeDecision(coerceString(pick(m, "hiring_decision", "hiringDecision", "decision")))
	if !hasScore && !hasDecision {
		return nil, ErrUnparseable
	}

	fb := Fallback()
	ev := &models.Evaluation{
		Verdict:        coerceString(pick(m, "verdict")),
		Strengths:      coerceStrings(pick(m, "strengths")),
		Improvements:   coerceStrings(pick(m, "improvements", "gaps")),
		RecommendedFit: coerceString(pick(m, "recommendedFit", "recommended_fit")),
		NextSteps:      coerceStrings(pick(m, "next_steps", "nextSteps")),
	}

	if hasScore {
		ev.FinalScore = clampScore(score)
	} else {
		ev.FinalScore = fb.FinalScore
	}
	if !hasDecision {
		decision = DecisionForScore(ev.FinalScore)
	}
	ev.HiringDecision = decision

	if ev.Verdict == "" {
		ev.Verdict = ScoreBand(ev.FinalScore)
	}
	if len(ev.Strengths) == 0 {
		ev.Strengths = fb.Strengths
	}
	if len(ev.Improvements) == 0 {
		ev.Improvements = fb.Improvements
	}
	if ev.RecommendedFit == "" {
		ev.RecommendedFit = fb.RecommendedFit
	}
	if len(ev.NextSteps) == 0 {
		ev.NextSteps = fb.NextSteps
	}

	df, _ := pick(m, "detailed_feedback", "detailedFeedback").(map[string]any)
	ev.DetailedFeedback = models.DetailedFeedback{
		TechnicalSkills: orDefault(coerceString(df["technical_skills"]), fb.DetailedFeedback.TechnicalSkills),
		Communication:   orDefault(coerceString(df["communication"]), fb.DetailedFeedback.Communication),
		ProblemSolving:  orDefault(coerceString(df["problem_solving"]), fb.DetailedFeedback.ProblemSolving),
		ExperienceMatch: orDefault(coerceString(df["experience_match"]), fb.DetailedFeedback.ExperienceMatch),
	}
	return ev, nil
}

func pick(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func coerceInt(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(math.Round(t)), true
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(t), "%"))
		if i := strings.Index(s, "/"); i > 0 {
			s = strings.TrimSpace(s[:i])
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return int(math.Round(f)), true
	}
	return 0, false
}

func coerceString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

func coerceStrings(v any) []string {
	var out []string
	switch t := v.(type) {
	case []any:
		for _, it := range t {
			if s := coerceString(it); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, line := range strings.Split(t, "\n") {
			if s := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*•")); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
