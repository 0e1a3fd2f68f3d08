package evaluation

import "github.com/yoockh/yoointerview/internal/models"

// Fallback is the record shown when the model cannot produce a usable evaluation.
func Fallback() *models.Evaluation {
	return &models.Evaluation{
		FinalScore:     75,
		Verdict:        "Technical interview completed successfully",
		Strengths:      []string{"Completed the interview process", "Demonstrated communication skills"},
		Improvements:   []string{"Continue developing technical skills", "Practice explaining complex concepts"},
		RecommendedFit: "Candidate shows potential and should be considered for the role.",
		HiringDecision: models.DecisionHireWithConditions,
		DetailedFeedback: models.DetailedFeedback{
			TechnicalSkills: "Demonstrated basic technical understanding",
			Communication:   "Communicated effectively during the interview",
			ProblemSolving:  "Showed problem-solving approach",
			ExperienceMatch: "Experience aligns with some job requirements",
		},
		NextSteps:  []string{"Further technical assessment recommended", "Consider for trial period"},
		IsFallback: true,
	}
}
