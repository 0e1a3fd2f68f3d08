package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/yoockh/yoointerview/internal/extract"
	"github.com/yoockh/yoointerview/internal/interview"
	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/services"
	"github.com/yoockh/yoointerview/internal/speech"
)

var rehearseCmd = &cobra.Command{
	Use:   "rehearse",
	Short: "Run an interview in the terminal, typing answers instead of speaking",
	RunE:  runRehearse,
}

func init() {
	rehearseCmd.Flags().String("token", "", "existing session token")
	rehearseCmd.Flags().String("resume", "", "résumé file for a throwaway session")
	rehearseCmd.Flags().String("jd", "", "job description text file")
	rehearseCmd.Flags().Int("questions", 3, "number of questions for a throwaway session")
	rehearseCmd.Flags().Duration("think", 5*time.Second, "thinking time before each answer")
	rehearseCmd.MarkFlagsMutuallyExclusive("token", "resume")
	rehearseCmd.MarkFlagsOneRequired("token", "resume")
}

func runRehearse(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	token, _ := cmd.Flags().GetString("token")
	think, _ := cmd.Flags().GetDuration("think")

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if token == "" {
		sess, err := throwawaySession(cmd, a.Sessions, extract.New(a.Log))
		if err != nil {
			return err
		}
		token = sess.Token
		defer func() { _ = a.Sessions.Delete(context.Background(), token) }()
	} else if err := a.Sessions.MarkStatus(ctx, token, models.SessionInProgress); err != nil {
		return err
	}

	rec := &promptRecognizer{}
	ctrl := interview.New(interview.Ports{
		Sessions:   a.Sessions,
		Questions:  a.Questions,
		Evaluator:  a.Evaluations,
		Speaker:    terminalSpeaker{out: out},
		Recognizer: rec,
		Observer:   terminalObserver(out),
		Clock:      promptClock{},
	}, interview.Config{ThinkingTime: think}, a.Log)
	rec.onInterrupt = func() { ctrl.End() }

	res, err := ctrl.Run(ctx, token)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d answers recorded", len(res.Transcript))
	if res.EndedEarly {
		fmt.Fprint(out, " (ended early)")
	}
	fmt.Fprintln(out)
	return printJSON(out, res.Evaluation)
}

func throwawaySession(cmd *cobra.Command, sessions services.SessionService, ex *extract.Extractor) (*models.Session, error) {
	resume, _ := cmd.Flags().GetString("resume")
	jdFile, _ := cmd.Flags().GetString("jd")
	n, _ := cmd.Flags().GetInt("questions")

	data, err := os.ReadFile(resume)
	if err != nil {
		return nil, fmt.Errorf("read résumé: %w", err)
	}
	text, err := ex.Extract(filepath.Base(resume), data)
	if err != nil {
		return nil, fmt.Errorf("extract résumé: %w", err)
	}
	var jd string
	if jdFile != "" {
		b, err := os.ReadFile(jdFile)
		if err != nil {
			return nil, fmt.Errorf("read job description: %w", err)
		}
		jd = string(b)
	}
	return sessions.Create(cmd.Context(), services.CreateSessionInput{
		ResumeText:     text,
		JobDescription: jd,
		NumQuestions:   n,
	})
}

type terminalSpeaker struct{ out io.Writer }

func (s terminalSpeaker) Speak(ctx context.Context, text string) error {
	fmt.Fprintf(s.out, "\nInterviewer: %s\n", text)
	return nil
}

func terminalObserver(out io.Writer) interview.ObserverFunc {
	return func(e interview.Event) {
		switch e.Type {
		case interview.EventQuestion:
			fmt.Fprintf(out, "\n--- Question %d of %d ---", e.Index, e.Total)
		case interview.EventCountdown:
			fmt.Fprintf(out, "\rThinking time: %2ds ", e.Seconds)
		case interview.EventListening:
			fmt.Fprintln(out)
		case interview.EventAnswer:
			fmt.Fprintf(out, "Recorded: %s\n", e.Text)
		case interview.EventState:
			if e.State == interview.StateEvaluating {
				fmt.Fprintln(out, "\nEvaluating...")
			}
		case interview.EventError:
			fmt.Fprintf(out, "\nerror: %s\n", e.Message)
		}
	}
}

// promptClock ticks the countdown normally but never expires the answer
// window: the prompt owns stdin until the candidate presses enter.
type promptClock struct{}

func (promptClock) After(d time.Duration) <-chan time.Time {
	if d > time.Second {
		return nil
	}
	return time.After(d)
}

type promptRecognizer struct {
	onInterrupt func()
}

func (r *promptRecognizer) Start(ctx context.Context, opts interview.ListenOptions) (interview.Recognition, error) {
	rec := &promptRecognition{
		results: make(chan interview.Utterance, 1),
		done:    make(chan struct{}),
	}
	go func() {
		defer close(rec.results)

		prompt := promptui.Prompt{Label: "Your answer (enter to submit, empty for no answer)"}
		text, err := prompt.Run()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) && r.onInterrupt != nil {
				r.onInterrupt()
			}
			return
		}
		select {
		case rec.results <- interview.Utterance{
			Alternatives: []speech.Alternative{{Transcript: text, Confidence: 1}},
			Final:        true,
		}:
		case <-rec.done:
		}
	}()
	return rec, nil
}

type promptRecognition struct {
	results chan interview.Utterance
	done    chan struct{}
	once    sync.Once
}

func (r *promptRecognition) Results() <-chan interview.Utterance { return r.results }

func (r *promptRecognition) Stop() { r.once.Do(func() { close(r.done) }) }
