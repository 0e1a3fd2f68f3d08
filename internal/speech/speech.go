// Package speech holds the recognition post-processing used by the interview flow.
package speech

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// NoAnswer is recorded when the candidate said nothing recognizable.
const NoAnswer = "(No answer provided)"

const (
	MinListenSeconds = 20
	MaxListenSeconds = 120
)

// Alternative is one transcription hypothesis for a finalized utterance.
// Confidence <= 0 means the engine did not report one.
type Alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

var technicalKeywords = []string{
	"docker", "kubernetes", "python", "javascript", "react", "node",
	"api", "database", "cloud", "aws", "git",
}

// ChooseBestAlternative scores every hypothesis and returns the best transcript.
// The first alternative wins ties.
func ChooseBestAlternative(alts []Alternative) string {
	switch len(alts) {
	case 0:
		return ""
	case 1:
		return alts[0].Transcript
	}

	best := alts[0].Transcript
	bestScore := -1.0
	for _, a := range alts {
		if s := scoreAlternative(a); s > bestScore {
			bestScore = s
			best = a.Transcript
		}
	}
	return best
}

func scoreAlternative(a Alternative) float64 {
	score := a.Confidence
	if score <= 0 {
		score = 0.5
	}
	t := strings.ToLower(a.Transcript)
	for _, k := range technicalKeywords {
		if strings.Contains(t, k) {
			score += 0.1
			break
		}
	}
	if WordCount(t) > 3 {
		score += 0.05
	}
	return score
}

type correction struct {
	re   *regexp.Regexp
	with string
}

// applied in order
var corrections = func() []correction {
	pairs := [][2]string{
		{"doctor", "docker"},
		{"doctors", "docker"},
		{"darker", "docker"},
		{"coober netties", "kubernetes"},
		{"cooper netties", "kubernetes"},
		{"my sequel", "mysql"},
		{"post gray", "postgresql"},
		{"red is", "redis"},
	}
	out := make([]correction, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, correction{
			re:   regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(p[0]) + `\b`),
			with: p[1],
		})
	}
	return out
}()

// CorrectTechnicalTerms fixes common recognizer mistakes on technology names.
// A match starting with an upper-case letter gets a capitalized replacement.
func CorrectTechnicalTerms(text string) string {
	if text == "" {
		return text
	}
	out := text
	for _, c := range corrections {
		with := c.with
		out = c.re.ReplaceAllStringFunc(out, func(m string) string {
			r, _ := utf8.DecodeRuneInString(m)
			if unicode.IsUpper(r) {
				return capitalize(with)
			}
			return with
		})
	}
	return out
}

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

func WordCount(s string) int { return len(strings.Fields(s)) }

// ListenDuration is the answer window in seconds granted for a question.
func ListenDuration(question string) int {
	secs := 60 + (WordCount(question)/10)*10
	if secs < MinListenSeconds {
		return MinListenSeconds
	}
	if secs > MaxListenSeconds {
		return MaxListenSeconds
	}
	return secs
}

// Finalize turns a raw recognized transcript into a recorded answer.
func Finalize(transcript string) string {
	t := strings.TrimSpace(CorrectTechnicalTerms(transcript))
	if t == "" {
		return NoAnswer
	}
	return t
}
