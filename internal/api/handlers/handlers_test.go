package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/yoointerview/internal/evaluation"
	"github.com/yoockh/yoointerview/internal/extract"
	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/questions"
	"github.com/yoockh/yoointerview/internal/repositories/memory"
	"github.com/yoockh/yoointerview/internal/services"
	"github.com/yoockh/yoointerview/internal/utils"
)

const goodEvaluation = `{"finalScore": 78, "verdict": "Good", "strengths": ["Go"], "improvements": ["Depth"],
"recommendedFit": "Yes", "hiring_decision": "HIRE",
"detailed_feedback": {"technical_skills": "a", "communication": "b", "problem_solving": "c", "experience_match": "d"},
"next_steps": ["Panel"]}`

func init() { gin.SetMode(gin.TestMode) }

type stubLLM struct {
	out string
	err error
}

func (s *stubLLM) Complete(ctx context.Context, prompt string) (string, error) { return s.out, s.err }

type recordingNotifier struct {
	sent []string
	err  error
}

func (n *recordingNotifier) Send(ctx context.Context, email, link string) error {
	n.sent = append(n.sent, email+" "+link)
	return n.err
}

type fixture struct {
	log       *logrus.Logger
	hook      *test.Hook
	sessions  services.SessionService
	questions *questions.Generator
	evals     services.EvaluationService
	inv       services.InvitationService
	notifier  *recordingNotifier
}

func newFixture() *fixture {
	log, hook := test.NewNullLogger()
	sessions := services.NewSessionService(memory.NewSessionRepo(), nil, log, services.SessionOptions{})
	notifier := &recordingNotifier{}
	ev := evaluation.NewEvaluator(&stubLLM{out: goodEvaluation}, nil, log, time.Second)
	return &fixture{
		log:       log,
		hook:      hook,
		sessions:  sessions,
		questions: questions.NewGenerator(nil, log, time.Second),
		evals:     services.NewEvaluationService(sessions, ev, nil, log),
		notifier:  notifier,
		inv: services.NewInvitationService(services.InvitationDeps{
			Sessions:  sessions,
			Extractor: extract.New(log),
			Notifier:  notifier,
			Link:      func(token string) string { return "http://localhost/interview/" + token },
		}, log),
	}
}

func (f *fixture) session(t *testing.T, n int) *models.Session {
	t.Helper()
	s, err := f.sessions.Create(context.Background(), services.CreateSessionInput{
		ResumeText:     "Senior Go engineer, Kafka, Postgres",
		JobDescription: "Backend engineer",
		Email:          "cand@example.com",
		NumQuestions:   n,
	})
	require.NoError(t, err)
	return s
}

func (f *fixture) interviewRouter() *gin.Engine {
	h := NewInterviewHandler(f.sessions, f.questions, f.evals, nil, f.log)
	r := gin.New()
	r.GET("/api/interview-data", h.Session)
	r.GET("/api/interview/:token", h.Session)
	r.POST("/api/interview/questions", h.Question)
	r.POST("/api/interview/followups", h.FollowUps)
	r.POST("/api/interview/evaluations", h.Evaluate)
	return r
}

func (f *fixture) adminRouter() *gin.Engine {
	h := NewAdminHandler(f.inv, f.sessions, f.evals)
	r := gin.New()
	r.POST("/invitations", h.CreateInvitation)
	r.POST("/notifications", h.SendNotification)
	r.DELETE("/sessions/:token", h.DeleteSession)
	return r
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestFetchSession(t *testing.T) {
	f := newFixture()
	r := f.interviewRouter()
	s := f.session(t, 3)

	w := doJSON(r, http.MethodGet, "/api/interview/"+s.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[map[string]any](t, w)
	assert.Equal(t, "Senior Go engineer, Kafka, Postgres", view["resumeText"])

	w = doJSON(r, http.MethodGet, "/api/interview-data?token="+s.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFetchSessionErrors(t *testing.T) {
	r := newFixture().interviewRouter()

	w := doJSON(r, http.MethodGet, "/api/interview-data", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing token", decode[APIError](t, w).Message)

	w = doJSON(r, http.MethodGet, "/api/interview/ffffffffffffffffffffffffffffffff", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Interview not found", decode[APIError](t, w).Message)
}

func TestGenerateQuestionForms(t *testing.T) {
	f := newFixture()
	r := f.interviewRouter()
	s := f.session(t, 3)

	w := doJSON(r, http.MethodPost, "/api/interview/questions", map[string]any{
		"token":        s.Token,
		"questionMode": "opening",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode[map[string]string](t, w)["question"])

	w = doJSON(r, http.MethodPost, "/api/interview/questions", map[string]any{
		"resumeText": "Python",
		"history":    []string{"Q1?"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode[map[string]string](t, w)["question"])

	// unknown tokens still get a question
	w = doJSON(r, http.MethodPost, "/api/interview/questions", map[string]any{"token": "ffffffffffffffffffffffffffffffff"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFollowUps(t *testing.T) {
	r := newFixture().interviewRouter()

	w := doJSON(r, http.MethodPost, "/api/interview/followups", map[string]any{"lastAnswer": "I used Redis"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[map[string][]string](t, w)["followups"], 3)
}

func TestSubmitEvaluation(t *testing.T) {
	f := newFixture()
	r := f.interviewRouter()
	s := f.session(t, 2)

	w := doJSON(r, http.MethodPost, "/api/interview/evaluations", map[string]any{
		"token":   s.Token,
		"answers": []models.QAPair{{Question: "Q1?", Answer: "A1"}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	out := decode[map[string]models.Evaluation](t, w)
	assert.Equal(t, 78, out["evaluation"].FinalScore)

	got, err := f.sessions.Get(context.Background(), s.Token)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, got.Status)

	w = doJSON(r, http.MethodPost, "/api/interview/evaluations", map[string]any{"token": s.Token})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func multipartInvite(t *testing.T, fields map[string]string, fileName string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, _ = fw.Write(data)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/invitations", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestCreateInvitation(t *testing.T) {
	f := newFixture()
	r := f.adminRouter()

	req := multipartInvite(t, map[string]string{"email": "cand@example.com", "jd": "Go backend", "num_questions": "4"},
		"cv.txt", []byte("Jane Doe\nSenior Go developer with Kubernetes experience"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	out := decode[invitationResponse](t, w)
	assert.True(t, out.Success)
	assert.Equal(t, "Invite sent successfully.", out.Message)
	assert.Equal(t, "http://localhost/interview/"+out.Token, out.Link)
	require.Len(t, f.notifier.sent, 1)

	sess, err := f.sessions.Get(context.Background(), out.Token)
	require.NoError(t, err)
	assert.Equal(t, 4, sess.NumQuestions)
	assert.Equal(t, "Go backend", sess.JobDescription)
	assert.Contains(t, sess.ResumeText, "Kubernetes")
}

func TestCreateInvitationRejects(t *testing.T) {
	f := newFixture()
	r := f.adminRouter()

	cases := []struct {
		name   string
		fields map[string]string
		file   string
		data   []byte
	}{
		{"no file", map[string]string{"email": "cand@example.com"}, "", nil},
		{"bad email", map[string]string{"email": "nope"}, "cv.txt", []byte("Go developer resume")},
		{"bad type", map[string]string{"email": "cand@example.com"}, "cv.exe", []byte("MZ")},
		{"bad count", map[string]string{"email": "cand@example.com", "num_questions": "50"}, "cv.txt", []byte("Go developer")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, multipartInvite(t, tc.fields, tc.file, tc.data))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, utils.CodeInvalidArgument, decode[APIError](t, w).Code)
		})
	}
	assert.Empty(t, f.notifier.sent)
}

func TestCreateInvitationDeliveryFailure(t *testing.T) {
	f := newFixture()
	f.notifier.err = errors.New("smtp down")
	r := f.adminRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartInvite(t, map[string]string{"email": "cand@example.com"}, "cv.txt", []byte("Go developer resume")))
	require.Equal(t, http.StatusAccepted, w.Code)

	out := decode[invitationResponse](t, w)
	assert.False(t, out.Success)
	assert.NotEmpty(t, out.Token)

	// the session survives so the admin can resend
	_, err := f.sessions.Get(context.Background(), out.Token)
	assert.NoError(t, err)
}

func TestSendNotification(t *testing.T) {
	f := newFixture()
	r := f.adminRouter()

	w := doJSON(r, http.MethodPost, "/notifications", map[string]string{"email": "a@example.com", "link": "http://x/1"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPost, "/notifications", map[string]string{"email": "a@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing fields", decode[APIError](t, w).Message)
}

func TestDeleteSession(t *testing.T) {
	f := newFixture()
	r := f.adminRouter()
	s := f.session(t, 1)

	w := doJSON(r, http.MethodDelete, "/sessions/"+s.Token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	_, err := f.sessions.Get(context.Background(), s.Token)
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))
}

func TestLogin(t *testing.T) {
	log, _ := test.NewNullLogger()
	hash, err := utils.HashPassword("s3cret")
	require.NoError(t, err)

	h := NewAuthHandler(AuthConfig{
		Admin:     models.Admin{Username: "admin", PasswordHash: hash},
		JWTSecret: "test-secret",
		JWTIssuer: "yoointerview",
		TokenTTL:  time.Hour,
	}, log)
	r := gin.New()
	r.POST("/login", h.Login)

	w := doJSON(r, http.MethodPost, "/login", map[string]string{"username": "admin", "password": "s3cret"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode[loginResponse](t, w).AccessToken)

	w = doJSON(r, http.MethodPost, "/login", map[string]string{"username": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
