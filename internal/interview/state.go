package interview

import (
	"errors"

	"github.com/yoockh/yoointerview/internal/models"
)

type State string

const (
	StateNotStarted       State = "not_started"
	StateAwaitingQuestion State = "awaiting_question"
	StateSpeaking         State = "speaking"
	StateThinking         State = "thinking"
	StateListening        State = "listening"
	StateSubmitting       State = "submitting"
	StateEvaluating       State = "evaluating"
	StateFinished         State = "finished"
	StateError            State = "error"
)

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool { return s == StateFinished || s == StateError }

var (
	ErrSessionNotFound        = errors.New("session not found")
	ErrRecognitionUnsupported = errors.New("speech recognition is not supported in this browser")
	ErrInterrupted            = errors.New("speech interrupted")
	ErrAlreadyStarted         = errors.New("interview already started")
)

// Used when the question source fails outright.
const ErrorFallbackQuestion = "Can you tell me more about your experience with the technologies mentioned in your resume?"

// Used when the question source returns something too short to ask.
var shortFallbackQuestions = []string{
	"Can you elaborate on the technical challenges you faced in that project?",
	"How did you approach debugging and troubleshooting in that situation?",
	"What specific technologies did you use and why did you choose them?",
	"Tell me about your role in the team and how you collaborated with others.",
	"What would you do differently if you had to implement that solution again?",
}

type EventType string

const (
	EventState      EventType = "state"
	EventQuestion   EventType = "question"
	EventCountdown  EventType = "countdown"
	EventListening  EventType = "listening"
	EventTranscript EventType = "transcript"
	EventAnswer     EventType = "answer"
	EventEvaluation EventType = "evaluation"
	EventError      EventType = "error"
)

type Event struct {
	Type       EventType          `json:"type"`
	State      State              `json:"state,omitempty"`
	Index      int                `json:"index,omitempty"`
	Total      int                `json:"total,omitempty"`
	Text       string             `json:"text,omitempty"`
	Seconds    int                `json:"seconds,omitempty"`
	Final      bool               `json:"final,omitempty"`
	Evaluation *models.Evaluation `json:"evaluation,omitempty"`
	Message    string             `json:"message,omitempty"`
}

// Result is what a finished interview produced.
type Result struct {
	Transcript []models.QAPair
	Evaluation *models.Evaluation
	EndedEarly bool
}
