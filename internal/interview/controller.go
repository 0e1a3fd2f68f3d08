// Package interview sequences one candidate session: ask, speak, think,
// listen, submit, and finally evaluate.
package interview

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoointerview/internal/evaluation"
	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/questions"
	"github.com/yoockh/yoointerview/internal/speech"
)

const (
	DefaultThinkingTime    = 15 * time.Second
	DefaultMaxAlternatives = 3
	DefaultLanguage        = "en-US"
)

type Ports struct {
	Sessions   SessionLookup
	Questions  QuestionSource
	Evaluator  Evaluator
	Speaker    Speaker
	Recognizer Recognizer
	Devices    Devices
	Observer   Observer
	Clock      Clock
}

type Config struct {
	ThinkingTime time.Duration
	Language     string
	Rand         *rand.Rand
}

type action int

const (
	actSkipThinking action = iota + 1
	actSubmit
)

// Controller drives a single session and is not reusable.
type Controller struct {
	p   Ports
	cfg Config
	log *logrus.Entry

	mu         sync.Mutex
	state      State
	started    bool
	current    string
	partial    string
	transcript []models.QAPair

	actions chan action
	endCh   chan struct{}
	endOnce sync.Once
}

func New(p Ports, cfg Config, log *logrus.Logger) *Controller {
	if log == nil {
		log = logrus.New()
	}
	if p.Devices == nil {
		p.Devices = noDevices{}
	}
	if p.Clock == nil {
		p.Clock = realClock{}
	}
	if cfg.ThinkingTime <= 0 {
		cfg.ThinkingTime = DefaultThinkingTime
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15))
	}
	return &Controller{
		p:       p,
		cfg:     cfg,
		log:     log.WithField("component", "interview"),
		state:   StateNotStarted,
		actions: make(chan action, 4),
		endCh:   make(chan struct{}),
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Transcript returns a copy of the answered questions so far.
func (c *Controller) Transcript() []models.QAPair {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.QAPair(nil), c.transcript...)
}

// SkipThinking ends the preparation countdown early.
func (c *Controller) SkipThinking() bool { return c.post(actSkipThinking, StateThinking) }

// Submit stops listening and records what was heard so far.
func (c *Controller) Submit() bool { return c.post(actSubmit, StateListening) }

// End finishes the interview early. The question being asked is recorded
// with whatever was heard, then the transcript is evaluated.
func (c *Controller) End() bool {
	st := c.State()
	if st == StateNotStarted || st == StateEvaluating || st.Terminal() {
		return false
	}
	c.endOnce.Do(func() { close(c.endCh) })
	return true
}

func (c *Controller) post(a action, want State) bool {
	if c.State() != want {
		return false
	}
	select {
	case c.actions <- a:
		return true
	default:
		return false
	}
}

// stale clicks from a previous phase must not leak into the next one
func (c *Controller) drainActions() {
	for {
		select {
		case <-c.actions:
		default:
			return
		}
	}
}

func (c *Controller) ended() bool {
	select {
	case <-c.endCh:
		return true
	default:
		return false
	}
}

// Run starts the session identified by token and blocks until it finishes,
// fails, or ctx is cancelled.
func (c *Controller) Run(ctx context.Context, token string) (*Result, error) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	c.started = true
	c.mu.Unlock()

	c.log = c.log.WithField("token", token)

	sess, err := c.p.Sessions.Get(ctx, token)
	if err != nil || sess == nil {
		c.log.WithError(err).Warn("session lookup failed")
		return nil, c.fail(ErrSessionNotFound)
	}
	if sc, ok := c.p.Recognizer.(SupportChecker); ok && !sc.Supported() {
		return nil, c.fail(ErrRecognitionUnsupported)
	}

	release := c.acquireDevices(ctx)
	defer release()

	target := sess.TargetQuestions()
	endedEarly := false

	for c.answered() < target {
		q, ended, err := c.nextQuestion(ctx, sess)
		if err != nil {
			return nil, err
		}
		if ended {
			endedEarly = true
			break
		}

		interrupted, ended, err := c.speak(ctx, q)
		if err == nil && !ended && !interrupted {
			ended, err = c.think(ctx)
		}
		if err != nil {
			return nil, err
		}
		if ended {
			c.submit(speech.NoAnswer)
			endedEarly = true
			break
		}

		answer, ended, err := c.listen(ctx, q)
		if err != nil {
			if errors.Is(err, ErrRecognitionUnsupported) {
				return nil, c.fail(err)
			}
			return nil, err
		}
		c.submit(answer)
		if ended {
			endedEarly = true
			break
		}
	}

	release()
	ev := c.evaluate(ctx, sess)
	return &Result{Transcript: c.Transcript(), Evaluation: ev, EndedEarly: endedEarly}, nil
}

func (c *Controller) answered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.transcript)
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	prev := c.state
	c.state = s
	c.mu.Unlock()
	if prev != s {
		c.log.WithFields(logrus.Fields{"from": prev, "to": s}).Debug("state")
		c.emit(Event{Type: EventState, State: s})
	}
}

func (c *Controller) emit(e Event) {
	if c.p.Observer != nil {
		c.p.Observer.Notify(e)
	}
}

func (c *Controller) fail(err error) error {
	c.setState(StateError)
	c.emit(Event{Type: EventError, Message: err.Error()})
	return err
}

func (c *Controller) acquireDevices(ctx context.Context) func() {
	release, err := c.p.Devices.Acquire(ctx)
	if err != nil || release == nil {
		if err != nil {
			c.log.WithError(err).Warn("camera/microphone unavailable, continuing without media")
		}
		return func() {}
	}
	var once sync.Once
	return func() { once.Do(release) }
}

func (c *Controller) nextQuestion(ctx context.Context, sess *models.Session) (string, bool, error) {
	c.setState(StateAwaitingQuestion)

	req := c.questionRequest(sess)

	pctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		q   string
		err error
	}
	done := make(chan result, 1)
	go func() {
		q, err := c.p.Questions.NextQuestion(pctx, req)
		done <- result{q, err}
	}()

	var r result
	select {
	case r = <-done:
	case <-c.endCh:
		cancel()
		<-done
		return "", true, nil
	case <-ctx.Done():
		cancel()
		<-done
		return "", false, ctx.Err()
	}

	q := strings.TrimSpace(r.q)
	switch {
	case r.err != nil:
		c.log.WithError(r.err).Warn("question generation failed, using fallback")
		q = ErrorFallbackQuestion
	case len([]rune(q)) < questions.MinQuestionLength:
		q = shortFallbackQuestions[c.cfg.Rand.IntN(len(shortFallbackQuestions))]
		c.log.WithField("question", q).Info("question too short, using fallback")
	}

	c.mu.Lock()
	c.current = q
	c.partial = ""
	n := len(c.transcript)
	c.mu.Unlock()

	c.emit(Event{Type: EventQuestion, Index: n + 1, Total: sess.TargetQuestions(), Text: q})
	return q, false, nil
}

func (c *Controller) questionRequest(sess *models.Session) questions.Request {
	c.mu.Lock()
	defer c.mu.Unlock()

	req := questions.Request{
		ResumeText:     sess.ResumeText,
		JobDescription: sess.JobDescription,
		Mode:           questions.ModeOpening,
	}
	if n := len(c.transcript); n > 0 {
		req.Mode = questions.ModeFollowUp
		req.LastAnswer = c.transcript[n-1].Answer
		req.History = make([]string, 0, n)
		for _, qa := range c.transcript {
			req.History = append(req.History, qa.Question)
		}
	}
	return req
}

// speak reports ended=true when End arrived during playback, and
// interrupted=true when the candidate cut the question short. An interrupted
// question goes straight to listening without thinking time.
func (c *Controller) speak(ctx context.Context, q string) (interrupted, ended bool, err error) {
	c.setState(StateSpeaking)

	pctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.p.Speaker.Speak(pctx, q) }()

	select {
	case err := <-done:
		switch {
		case errors.Is(err, ErrInterrupted):
			c.log.Info("question interrupted, listening now")
			return true, false, nil
		case err != nil:
			c.log.WithError(err).Warn("speech playback failed")
		}
		return false, false, nil
	case <-c.endCh:
		cancel()
		<-done
		return false, true, nil
	case <-ctx.Done():
		cancel()
		<-done
		return false, false, ctx.Err()
	}
}

func (c *Controller) think(ctx context.Context) (bool, error) {
	c.setState(StateThinking)
	c.drainActions()

	remaining := int((c.cfg.ThinkingTime + time.Second - 1) / time.Second)
	for remaining > 0 {
		c.emit(Event{Type: EventCountdown, Seconds: remaining})
		select {
		case <-c.p.Clock.After(time.Second):
			remaining--
		case a := <-c.actions:
			if a == actSkipThinking {
				return false, nil
			}
		case <-c.endCh:
			return true, nil
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return false, nil
}

// listen returns the recorded answer, never empty.
func (c *Controller) listen(ctx context.Context, q string) (string, bool, error) {
	c.setState(StateListening)
	c.drainActions()

	if c.ended() {
		return speech.NoAnswer, true, nil
	}

	maxSecs := speech.ListenDuration(q)
	c.emit(Event{Type: EventListening, Seconds: maxSecs})

	pctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rec, err := c.p.Recognizer.Start(pctx, ListenOptions{
		MaxDuration:     time.Duration(maxSecs) * time.Second,
		MaxAlternatives: DefaultMaxAlternatives,
		Language:        c.cfg.Language,
	})
	if err != nil {
		if errors.Is(err, ErrRecognitionUnsupported) {
			return "", false, err
		}
		c.log.WithError(err).Warn("recognition failed to start")
		return speech.NoAnswer, false, nil
	}
	defer rec.Stop()

	timeout := c.p.Clock.After(time.Duration(maxSecs) * time.Second)
	results := rec.Results()

	for {
		select {
		case u, ok := <-results:
			if !ok {
				return speech.Finalize(c.heard()), false, nil
			}
			text := speech.ChooseBestAlternative(u.Alternatives)
			if u.Final {
				if strings.TrimSpace(text) == "" {
					text = c.heard()
				}
				return speech.Finalize(text), false, nil
			}
			c.mu.Lock()
			c.partial = text
			c.mu.Unlock()
			c.emit(Event{Type: EventTranscript, Text: speech.CorrectTechnicalTerms(text)})
		case a := <-c.actions:
			if a == actSubmit {
				return speech.Finalize(c.heard()), false, nil
			}
		case <-timeout:
			c.log.WithField("seconds", maxSecs).Info("answer window elapsed, auto-submitting")
			return speech.Finalize(c.heard()), false, nil
		case <-c.endCh:
			return speech.Finalize(c.heard()), true, nil
		case <-ctx.Done():
			return "", false, ctx.Err()
		}
	}
}

func (c *Controller) heard() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.partial
}

func (c *Controller) submit(answer string) {
	c.setState(StateSubmitting)

	c.mu.Lock()
	q := c.current
	c.transcript = append(c.transcript, models.QAPair{Question: q, Answer: answer})
	c.current = ""
	c.partial = ""
	n := len(c.transcript)
	c.mu.Unlock()

	c.emit(Event{Type: EventAnswer, Index: n, Text: answer})
}

// evaluate always ends in StateFinished.
func (c *Controller) evaluate(ctx context.Context, sess *models.Session) *models.Evaluation {
	c.setState(StateEvaluating)

	ev, err := c.p.Evaluator.EvaluateSession(ctx, sess, c.Transcript())
	if err != nil || ev == nil {
		c.log.WithError(err).Warn("evaluation unavailable, using fallback")
		ev = evaluation.Fallback()
	}

	c.setState(StateFinished)
	c.emit(Event{Type: EventEvaluation, Evaluation: ev})
	return ev
}
