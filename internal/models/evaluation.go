package models

const (
	DecisionStrongHire         = "STRONG HIRE"
	DecisionHire               = "HIRE"
	DecisionHireWithConditions = "HIRE WITH CONDITIONS"
	DecisionNoHire             = "NO HIRE"
)

// HiringDecisions is the closed label set an Evaluation may carry.
var HiringDecisions = []string{
	DecisionStrongHire,
	DecisionHire,
	DecisionHireWithConditions,
	DecisionNoHire,
}

type Evaluation struct {
	FinalScore       int              `json:"finalScore"`
	Verdict          string           `json:"verdict"`
	Strengths        []string         `json:"strengths"`
	Improvements     []string         `json:"improvements"`
	RecommendedFit   string           `json:"recommendedFit"`
	HiringDecision   string           `json:"hiring_decision"`
	DetailedFeedback DetailedFeedback `json:"detailed_feedback"`
	NextSteps        []string         `json:"next_steps"`

	IsFallback bool `json:"is_fallback"`
}

type DetailedFeedback struct {
	TechnicalSkills string `json:"technical_skills"`
	Communication   string `json:"communication"`
	ProblemSolving  string `json:"problem_solving"`
	ExperienceMatch string `json:"experience_match"`
}
