package handlers

import (
	"encoding/base64"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/questions"
	"github.com/yoockh/yoointerview/internal/services"
	"github.com/yoockh/yoointerview/internal/utils"
)

const maxClipBytes = 10 << 20

// InterviewHandler serves the candidate side of a session.
type InterviewHandler struct {
	sessions      services.SessionService
	questions     QuestionGenerator
	evaluations   services.EvaluationService
	transcription services.TranscriptionService
	log           *logrus.Logger
}

func NewInterviewHandler(sessions services.SessionService, q QuestionGenerator, evals services.EvaluationService, tr services.TranscriptionService, log *logrus.Logger) *InterviewHandler {
	return &InterviewHandler{sessions: sessions, questions: q, evaluations: evals, transcription: tr, log: log}
}

// Session answers both /api/interview/:token and the ?token= form.
func (h *InterviewHandler) Session(c *gin.Context) {
	token := utils.FirstNonEmpty(c.Param("token"), c.Query("token"))
	sess, err := h.sessions.Get(c.Request.Context(), token)
	if err != nil {
		writeError(c, err)
		return
	}
	if sess.Status == models.SessionPending {
		if err := h.sessions.Touch(c.Request.Context(), token); err != nil {
			h.log.WithError(err).WithField("token", token).Debug("touch failed")
		}
	}
	c.JSON(http.StatusOK, sess.View())
}

// questionRequest accepts the token form and the direct form.
type questionRequest struct {
	Token           string   `json:"token"`
	QuestionMode    string   `json:"questionMode"`
	QuestionHistory []string `json:"questionHistory"`
	LastAnswer      string   `json:"lastAnswer"`

	ResumeText string   `json:"resumeText"`
	JDText     string   `json:"jdText"`
	History    []string `json:"history"`
	Mode       string   `json:"mode"`
}

func (h *InterviewHandler) Question(c *gin.Context) {
	const op = "InterviewHandler.Question"

	var body questionRequest
	if !bindJSON(c, op, &body) {
		return
	}

	req := questions.Request{
		ResumeText:     body.ResumeText,
		JobDescription: body.JDText,
		History:        body.History,
		LastAnswer:     body.LastAnswer,
		Mode:           questions.ParseMode(body.Mode),
	}
	if body.Token != "" {
		req.History = body.QuestionHistory
		req.Mode = questions.ParseMode(body.QuestionMode)
		req.ResumeText, req.JobDescription = "", ""

		sess, err := h.sessions.Get(c.Request.Context(), body.Token)
		switch {
		case err == nil:
			req.ResumeText = sess.ResumeText
			req.JobDescription = sess.JobDescription
		case utils.IsCode(err, utils.CodeNotFound):
			// unknown sessions still get a question, built without context
		default:
			writeError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"question": h.questions.Generate(c.Request.Context(), req)})
}

type followUpRequest struct {
	LastAnswer       string `json:"lastAnswer"`
	ResumeText       string `json:"resumeText"`
	PreviousQuestion string `json:"previousQuestion"`
}

func (h *InterviewHandler) FollowUps(c *gin.Context) {
	const op = "InterviewHandler.FollowUps"

	var body followUpRequest
	if !bindJSON(c, op, &body) {
		return
	}
	out := h.questions.FollowUps(c.Request.Context(), questions.FollowUpRequest{
		ResumeText:       body.ResumeText,
		PreviousQuestion: body.PreviousQuestion,
		LastAnswer:       body.LastAnswer,
	})
	c.JSON(http.StatusOK, gin.H{"followups": out})
}

type evaluationRequest struct {
	Answers []models.QAPair `json:"answers"`
	JDText  string          `json:"jdText"`
	Token   string          `json:"token"`
}

func (h *InterviewHandler) Evaluate(c *gin.Context) {
	const op = "InterviewHandler.Evaluate"

	var body evaluationRequest
	if !bindJSON(c, op, &body) {
		return
	}
	ev, err := h.evaluations.Submit(c.Request.Context(), services.SubmitInput{
		Token:          body.Token,
		Transcript:     body.Answers,
		JobDescription: body.JDText,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"evaluation": ev})
}

type transcribeRequest struct {
	AudioBase64 string `json:"audio_base64"`
	Language    string `json:"language"`
}

// Transcribe accepts raw audio (audio/* body) or JSON with audio_base64.
func (h *InterviewHandler) Transcribe(c *gin.Context) {
	const op = "InterviewHandler.Transcribe"

	var (
		audio []byte
		lang  = c.Query("lang")
		err   error
	)
	if strings.HasPrefix(c.ContentType(), "application/json") {
		var body transcribeRequest
		if !bindJSON(c, op, &body) {
			return
		}
		raw := body.AudioBase64
		if i := strings.Index(raw, ","); i >= 0 {
			raw = raw[i+1:]
		}
		if audio, err = base64.StdEncoding.DecodeString(raw); err != nil {
			writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid audio_base64", err))
			return
		}
		lang = utils.FirstNonEmpty(body.Language, lang)
	} else {
		if audio, err = io.ReadAll(io.LimitReader(c.Request.Body, maxClipBytes+1)); err != nil {
			writeError(c, utils.E(utils.CodeInvalidArgument, op, "failed to read audio", err))
			return
		}
	}

	out, err := h.transcription.Transcribe(c.Request.Context(), c.Param("token"), audio, lang)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
