package interview

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/yoointerview/internal/evaluation"
	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/questions"
	"github.com/yoockh/yoointerview/internal/speech"
)

const testToken = "0123456789abcdef0123456789abcdef"

type fakeSessions map[string]*models.Session

func (f fakeSessions) Get(ctx context.Context, token string) (*models.Session, error) {
	if s, ok := f[token]; ok {
		return s, nil
	}
	return nil, errors.New("not found")
}

type fakeQuestions struct {
	mu   sync.Mutex
	reqs []questions.Request
	next func(i int) (string, error)
}

func (f *fakeQuestions) NextQuestion(ctx context.Context, req questions.Request) (string, error) {
	f.mu.Lock()
	i := len(f.reqs)
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.next == nil {
		return "Question number " + string(rune('A'+i)) + "?", nil
	}
	return f.next(i)
}

type fakeEvaluator struct {
	got []models.QAPair
	ev  *models.Evaluation
	err error
}

func (f *fakeEvaluator) EvaluateSession(ctx context.Context, s *models.Session, transcript []models.QAPair) (*models.Evaluation, error) {
	f.got = transcript
	return f.ev, f.err
}

type fakeSpeaker struct {
	mu     sync.Mutex
	spoken []string
	err    error
}

func (f *fakeSpeaker) Speak(ctx context.Context, text string) error {
	f.mu.Lock()
	f.spoken = append(f.spoken, text)
	f.mu.Unlock()
	return f.err
}

// script returns the utterances delivered for the i-th capture and whether
// the engine then ends on its own.
type fakeRecognizer struct {
	script   func(i int) ([]Utterance, bool)
	startErr error
	started  int
	stopped  int
	mu       sync.Mutex
}

type fakeRecognition struct {
	ch   chan Utterance
	once sync.Once
	r    *fakeRecognizer
}

func (f *fakeRecognition) Results() <-chan Utterance { return f.ch }
func (f *fakeRecognition) Stop() {
	f.once.Do(func() {
		f.r.mu.Lock()
		f.r.stopped++
		f.r.mu.Unlock()
	})
}

func (f *fakeRecognizer) Start(ctx context.Context, opts ListenOptions) (Recognition, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.mu.Lock()
	i := f.started
	f.started++
	f.mu.Unlock()

	rec := &fakeRecognition{ch: make(chan Utterance, 8), r: f}
	if f.script != nil {
		utts, closeAfter := f.script(i)
		for _, u := range utts {
			rec.ch <- u
		}
		if closeAfter {
			close(rec.ch)
		}
	}
	return rec, nil
}

type unsupportedRecognizer struct{ fakeRecognizer }

func (*unsupportedRecognizer) Supported() bool { return false }

type fakeDevices struct {
	err      error
	released int
}

func (f *fakeDevices) Acquire(ctx context.Context) (func(), error) {
	if f.err != nil {
		return nil, f.err
	}
	return func() { f.released++ }, nil
}

// fakeClock fires one-second ticks immediately when tick is set and fires
// answer windows immediately when expire is set.
type fakeClock struct {
	tick   bool
	expire bool
}

func (f fakeClock) After(d time.Duration) <-chan time.Time {
	fire := (d == time.Second && f.tick) || (d != time.Second && f.expire)
	if !fire {
		return nil
	}
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

type recorder struct {
	mu     sync.Mutex
	events []Event
	hook   func(Event)
}

func (r *recorder) Notify(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	if r.hook != nil {
		r.hook(e)
	}
}

func (r *recorder) states() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []State
	for _, e := range r.events {
		if e.Type == EventState {
			out = append(out, e.State)
		}
	}
	return out
}

type harness struct {
	sessions fakeSessions
	qs       *fakeQuestions
	ev       *fakeEvaluator
	sp       *fakeSpeaker
	rec      Recognizer
	dev      *fakeDevices
	obs      *recorder
	clock    fakeClock
}

func newHarness(numQuestions int) *harness {
	return &harness{
		sessions: fakeSessions{testToken: {
			Token:          testToken,
			ResumeText:     "Go engineer, Kubernetes, Postgres",
			JobDescription: "Backend engineer",
			NumQuestions:   numQuestions,
		}},
		qs:    &fakeQuestions{},
		ev:    &fakeEvaluator{ev: &models.Evaluation{FinalScore: 82, HiringDecision: models.DecisionHire}},
		sp:    &fakeSpeaker{},
		dev:   &fakeDevices{},
		obs:   &recorder{},
		clock: fakeClock{tick: true},
	}
}

func (h *harness) controller() *Controller {
	l, _ := test.NewNullLogger()
	return New(Ports{
		Sessions:   h.sessions,
		Questions:  h.qs,
		Evaluator:  h.ev,
		Speaker:    h.sp,
		Recognizer: h.rec,
		Devices:    h.dev,
		Observer:   h.obs,
		Clock:      h.clock,
	}, Config{ThinkingTime: 3 * time.Second, Rand: rand.New(rand.NewPCG(1, 2))}, l)
}

func finalAnswer(alts ...speech.Alternative) func(int) ([]Utterance, bool) {
	return func(int) ([]Utterance, bool) {
		return []Utterance{{Alternatives: alts, Final: true}}, false
	}
}

func TestRunRecordsTargetNumberOfAnswers(t *testing.T) {
	h := newHarness(3)
	fr := &fakeRecognizer{script: finalAnswer(
		speech.Alternative{Transcript: "i use python", Confidence: 0.4},
		speech.Alternative{Transcript: "I use Python and doctor", Confidence: 0.6},
	)}
	h.rec = fr

	res, err := h.controller().Run(context.Background(), testToken)
	require.NoError(t, err)

	require.Len(t, res.Transcript, 3)
	assert.False(t, res.EndedEarly)
	for i, qa := range res.Transcript {
		assert.Equal(t, "Question number "+string(rune('A'+i))+"?", qa.Question)
		assert.Equal(t, "I use Python and docker", qa.Answer)
	}
	assert.Equal(t, 82, res.Evaluation.FinalScore)
	assert.Len(t, h.ev.got, 3)

	require.Len(t, h.qs.reqs, 3)
	assert.Equal(t, questions.ModeOpening, h.qs.reqs[0].Mode)
	assert.Empty(t, h.qs.reqs[0].LastAnswer)
	assert.Equal(t, questions.ModeFollowUp, h.qs.reqs[2].Mode)
	assert.Equal(t, []string{"Question number A?", "Question number B?"}, h.qs.reqs[2].History)
	assert.Equal(t, "I use Python and docker", h.qs.reqs[2].LastAnswer)
	assert.Equal(t, "Go engineer, Kubernetes, Postgres", h.qs.reqs[0].ResumeText)

	assert.Equal(t, 1, h.dev.released)
	assert.Equal(t, 3, fr.started)
	assert.Equal(t, 3, fr.stopped)
	assert.Len(t, h.sp.spoken, 3)

	states := h.obs.states()
	assert.Equal(t, []State{
		StateAwaitingQuestion, StateSpeaking, StateThinking, StateListening, StateSubmitting,
	}, states[:5])
	assert.Equal(t, []State{StateEvaluating, StateFinished}, states[len(states)-2:])
}

func TestRunSilentCandidateGetsSentinelAnswers(t *testing.T) {
	for name, h := range map[string]*harness{
		"engine ends": func() *harness {
			h := newHarness(4)
			h.rec = &fakeRecognizer{script: func(int) ([]Utterance, bool) { return nil, true }}
			return h
		}(),
		"window elapses": func() *harness {
			h := newHarness(4)
			h.rec = &fakeRecognizer{}
			h.clock = fakeClock{tick: true, expire: true}
			return h
		}(),
		"empty final": func() *harness {
			h := newHarness(4)
			h.rec = &fakeRecognizer{script: finalAnswer(speech.Alternative{Transcript: "  "})}
			return h
		}(),
	} {
		t.Run(name, func(t *testing.T) {
			res, err := h.controller().Run(context.Background(), testToken)
			require.NoError(t, err)
			require.Len(t, res.Transcript, 4)
			for _, qa := range res.Transcript {
				assert.Equal(t, speech.NoAnswer, qa.Answer)
			}
		})
	}
}

func TestRunQuestionFallbacks(t *testing.T) {
	h := newHarness(2)
	h.rec = &fakeRecognizer{script: finalAnswer(speech.Alternative{Transcript: "answer"})}
	h.qs.next = func(i int) (string, error) {
		if i == 0 {
			return "", errors.New("network down")
		}
		return "Why", nil
	}

	res, err := h.controller().Run(context.Background(), testToken)
	require.NoError(t, err)
	require.Len(t, res.Transcript, 2)
	assert.Equal(t, ErrorFallbackQuestion, res.Transcript[0].Question)
	assert.Contains(t, shortFallbackQuestions, res.Transcript[1].Question)
}

func TestRunManualSubmitUsesPartialTranscript(t *testing.T) {
	h := newHarness(2)
	h.rec = &fakeRecognizer{script: func(int) ([]Utterance, bool) {
		return []Utterance{{Alternatives: []speech.Alternative{{Transcript: "we ran post gray"}}}}, false
	}}
	c := h.controller()
	h.obs.hook = func(e Event) {
		if e.Type == EventTranscript {
			assert.Equal(t, "we ran postgresql", e.Text)
			assert.True(t, c.Submit())
		}
	}

	res, err := c.Run(context.Background(), testToken)
	require.NoError(t, err)
	require.Len(t, res.Transcript, 2)
	assert.Equal(t, "we ran postgresql", res.Transcript[0].Answer)
}

func TestRunSkipThinking(t *testing.T) {
	h := newHarness(1)
	h.clock = fakeClock{}
	h.rec = &fakeRecognizer{script: finalAnswer(speech.Alternative{Transcript: "ok then"})}
	c := h.controller()
	skipped := 0
	h.obs.hook = func(e Event) {
		if e.Type == EventCountdown {
			skipped++
			assert.True(t, c.SkipThinking())
		}
	}

	res, err := c.Run(context.Background(), testToken)
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, "ok then", res.Transcript[0].Answer)
}

func TestRunInterruptedQuestionSkipsThinking(t *testing.T) {
	h := newHarness(1)
	h.sp.err = ErrInterrupted
	h.rec = &fakeRecognizer{script: finalAnswer(speech.Alternative{Transcript: "straight to it"})}

	res, err := h.controller().Run(context.Background(), testToken)
	require.NoError(t, err)
	assert.Equal(t, "straight to it", res.Transcript[0].Answer)
	assert.Equal(t, []State{
		StateAwaitingQuestion, StateSpeaking, StateListening, StateSubmitting, StateEvaluating, StateFinished,
	}, h.obs.states())
}

func TestRunPlaybackFailureStillThinks(t *testing.T) {
	h := newHarness(1)
	h.sp.err = errors.New("no voices installed")
	h.rec = &fakeRecognizer{script: finalAnswer(speech.Alternative{Transcript: "fine"})}

	_, err := h.controller().Run(context.Background(), testToken)
	require.NoError(t, err)
	assert.Contains(t, h.obs.states(), StateThinking)
}

func TestRunEndDuringListening(t *testing.T) {
	h := newHarness(5)
	h.rec = &fakeRecognizer{script: func(i int) ([]Utterance, bool) {
		if i == 0 {
			return []Utterance{{Alternatives: []speech.Alternative{{Transcript: "first answer"}}, Final: true}}, false
		}
		return []Utterance{{Alternatives: []speech.Alternative{{Transcript: "half an"}}}}, false
	}}
	c := h.controller()
	h.obs.hook = func(e Event) {
		if e.Type == EventTranscript {
			assert.True(t, c.End())
		}
	}

	res, err := c.Run(context.Background(), testToken)
	require.NoError(t, err)
	assert.True(t, res.EndedEarly)
	require.Len(t, res.Transcript, 2)
	assert.Equal(t, "half an", res.Transcript[1].Answer)
	assert.Len(t, h.ev.got, 2)
	assert.Equal(t, StateFinished, c.State())
	assert.Equal(t, 1, h.dev.released)
	assert.False(t, c.End())
}

func TestRunEndWhileSpeakingRecordsSentinel(t *testing.T) {
	h := newHarness(3)
	h.rec = &fakeRecognizer{}
	c := h.controller()
	h.obs.hook = func(e Event) {
		if e.Type == EventState && e.State == StateSpeaking {
			c.End()
		}
	}

	res, err := c.Run(context.Background(), testToken)
	require.NoError(t, err)
	require.Len(t, res.Transcript, 1)
	assert.Equal(t, speech.NoAnswer, res.Transcript[0].Answer)
	assert.Equal(t, StateFinished, c.State())
}

func TestRunUnknownSession(t *testing.T) {
	h := newHarness(3)
	h.rec = &fakeRecognizer{}
	c := h.controller()

	res, err := c.Run(context.Background(), "ffffffffffffffffffffffffffffffff")
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, StateError, c.State())
	assert.Nil(t, h.ev.got)
	assert.Empty(t, h.qs.reqs)

	last := h.obs.events[len(h.obs.events)-1]
	assert.Equal(t, EventError, last.Type)
	assert.Equal(t, "session not found", last.Message)
}

func TestRunRecognitionUnsupported(t *testing.T) {
	t.Run("at listen time", func(t *testing.T) {
		h := newHarness(3)
		h.rec = &fakeRecognizer{startErr: ErrRecognitionUnsupported}
		c := h.controller()
		_, err := c.Run(context.Background(), testToken)
		assert.ErrorIs(t, err, ErrRecognitionUnsupported)
		assert.Equal(t, StateError, c.State())
		assert.Equal(t, 1, h.dev.released)
	})

	t.Run("up front", func(t *testing.T) {
		h := newHarness(3)
		h.rec = &unsupportedRecognizer{}
		c := h.controller()
		_, err := c.Run(context.Background(), testToken)
		assert.ErrorIs(t, err, ErrRecognitionUnsupported)
		assert.Empty(t, h.qs.reqs)
	})
}

func TestRunEvaluatorFailureFallsBack(t *testing.T) {
	h := newHarness(1)
	h.rec = &fakeRecognizer{script: finalAnswer(speech.Alternative{Transcript: "fine"})}
	h.ev.err = errors.New("model timeout")
	h.ev.ev = nil
	h.dev.err = errors.New("permission denied")

	c := h.controller()
	res, err := c.Run(context.Background(), testToken)
	require.NoError(t, err)
	assert.Equal(t, evaluation.Fallback(), res.Evaluation)
	assert.Equal(t, StateFinished, c.State())
}

func TestActionsGatedByState(t *testing.T) {
	h := newHarness(1)
	h.rec = &fakeRecognizer{}
	c := h.controller()
	assert.False(t, c.Submit())
	assert.False(t, c.SkipThinking())
	assert.False(t, c.End())
	assert.Equal(t, StateNotStarted, c.State())
}

func TestRunOnlyOnce(t *testing.T) {
	h := newHarness(1)
	h.rec = &fakeRecognizer{script: finalAnswer(speech.Alternative{Transcript: "done"})}
	c := h.controller()
	_, err := c.Run(context.Background(), testToken)
	require.NoError(t, err)
	_, err = c.Run(context.Background(), testToken)
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestRunCancelledContext(t *testing.T) {
	h := newHarness(2)
	h.rec = &fakeRecognizer{}
	ctx, cancel := context.WithCancel(context.Background())
	c := h.controller()
	h.obs.hook = func(e Event) {
		if e.Type == EventListening {
			cancel()
		}
	}
	_, err := c.Run(ctx, testToken)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, h.dev.released)
}
