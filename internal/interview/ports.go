package interview

import (
	"context"
	"time"

	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/questions"
	"github.com/yoockh/yoointerview/internal/speech"
)

type SessionLookup interface {
	Get(ctx context.Context, token string) (*models.Session, error)
}

type QuestionSource interface {
	NextQuestion(ctx context.Context, req questions.Request) (string, error)
}

type Evaluator interface {
	EvaluateSession(ctx context.Context, s *models.Session, transcript []models.QAPair) (*models.Evaluation, error)
}

// Speaker plays a question and blocks until playback ends or ctx is cancelled.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

type ListenOptions struct {
	MaxDuration     time.Duration
	MaxAlternatives int
	Language        string
}

// Utterance is one recognition event. Interim utterances refine the running
// transcript; a final one completes the answer.
type Utterance struct {
	Alternatives []speech.Alternative
	Final        bool
}

type Recognizer interface {
	// Start returns ErrRecognitionUnsupported when the runtime has no recognizer.
	Start(ctx context.Context, opts ListenOptions) (Recognition, error)
}

// Recognition is one capture. Results is closed when the engine stops on its own.
// Stop must be safe to call more than once.
type Recognition interface {
	Results() <-chan Utterance
	Stop()
}

// SupportChecker is optionally implemented by a Recognizer that can tell up front.
type SupportChecker interface {
	Supported() bool
}

type Devices interface {
	Acquire(ctx context.Context) (release func(), err error)
}

type Observer interface {
	Notify(Event)
}

type ObserverFunc func(Event)

func (f ObserverFunc) Notify(e Event) { f(e) }

type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

type noDevices struct{}

func (noDevices) Acquire(context.Context) (func(), error) { return func() {}, nil }
