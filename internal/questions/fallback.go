package questions

var openingFallbacks = []string{
	"Please introduce yourself and tell me about your background as shown in your resume.",
	"Please introduce yourself and walk me through your professional background from your resume.",
}

var followUpFallbacks = []string{
	"I noticed from your resume you have experience with various technologies. Can you walk me through one of your most challenging projects?",
	"From your resume, I see you have worked with multiple technologies. Can you elaborate on your experience with the most recent project?",
	"Describe a complex project you worked on.",
	"What specific technologies did you use in your most recent role and why did you choose them?",
}

// Fallback picks a canned question deterministically from the history length.
func Fallback(mode Mode, asked int) string {
	set := followUpFallbacks
	if mode == ModeOpening {
		set = openingFallbacks
	}
	if asked < 0 {
		asked = 0
	}
	return set[asked%len(set)]
}

var parsedFollowUpsFallback = []string{
	"Can you explain more about your approach?",
	"Which skills from your resume did you use here?",
	"What challenges did you face, and how did your past experience help?",
}

var failedFollowUpsFallback = []string{
	"Can you elaborate on this?",
	"Why did you choose that approach?",
	"How did your previous experience influence your decisions?",
}
