package questions

import "strings"

type Mode string

const (
	ModeOpening  Mode = "opening"
	ModeFollowUp Mode = "follow_up"
)

// ParseMode accepts the labels older clients send ("first", "primary").
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "first", "opening", "primary":
		return ModeOpening
	default:
		return ModeFollowUp
	}
}

const (
	openingInstructions = "Generate an opening question asking the candidate to introduce themselves and briefly talk about their background from their resume."

	followUpInstructions = `Generate a thoughtful follow-up question that connects to their resume content. Occasionally (about 1-2 times during the interview) you may start with phrases like "from your resume", "I noticed on your resume", but vary your question style naturally. Reference their specific skills, experiences, or achievements from their resume in a conversational way.`
)

func (m Mode) instructions() string {
	if m == ModeOpening {
		return openingInstructions
	}
	return followUpInstructions
}
