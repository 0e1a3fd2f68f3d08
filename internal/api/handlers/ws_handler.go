package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoointerview/internal/interview"
	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/services"
	"github.com/yoockh/yoointerview/internal/utils"
	"github.com/yoockh/yoointerview/internal/workers"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 25 * time.Second
	wsStartTimeout = 2 * time.Minute
	mediaTimeout   = 30 * time.Second
)

type WSHandler struct {
	sessions      services.SessionService
	questions     QuestionGenerator
	evaluations   services.EvaluationService
	transcription services.TranscriptionService // nil disables server-side recognition
	redis         *redis.Client
	cfg           interview.Config
	log           *logrus.Logger
	upgrader      websocket.Upgrader
}

type WSDeps struct {
	Sessions      services.SessionService
	Questions     QuestionGenerator
	Evaluations   services.EvaluationService
	Transcription services.TranscriptionService
	Redis         *redis.Client
	Config        interview.Config
	// AllowedOrigins empty accepts any origin.
	AllowedOrigins []string
}

func NewWSHandler(d WSDeps, log *logrus.Logger) *WSHandler {
	allowed := map[string]struct{}{}
	for _, o := range d.AllowedOrigins {
		allowed[o] = struct{}{}
	}
	return &WSHandler{
		sessions:      d.Sessions,
		questions:     d.Questions,
		evaluations:   d.Evaluations,
		transcription: d.Transcription,
		redis:         d.Redis,
		cfg:           d.Config,
		log:           log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				_, ok := allowed[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

type wsCapabilities struct {
	SpeechSynthesis   bool `json:"speech_synthesis"`
	SpeechRecognition bool `json:"speech_recognition"`
	ServerSTT         bool `json:"server_stt"`
	Media             bool `json:"media"`
}

type wsClientMsg struct {
	Type string `json:"type"`
	Op   int64  `json:"op"`

	Capabilities wsCapabilities `json:"capabilities"` // start

	Error string `json:"error"` // speech_end

	Alternatives []alternativeMsg `json:"alternatives"` // recognition_result
	Final        *bool            `json:"final"`

	ChunkIndex  int64  `json:"chunk_index"` // audio_chunk
	AudioBase64 string `json:"audio_base64"`
	IsFinal     bool   `json:"is_final"`

	Granted bool `json:"granted"` // media_status
}

type alternativeMsg struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

type wsServerMsg struct {
	Type string `json:"type"`
	Op   int64  `json:"op,omitempty"`

	Text            string `json:"text,omitempty"`
	Lang            string `json:"lang,omitempty"`
	MaxSeconds      int    `json:"max_seconds,omitempty"`
	MaxAlternatives int    `json:"max_alternatives,omitempty"`

	Event *interview.Event `json:"event,omitempty"`

	Code    utils.Code `json:"code,omitempty"`
	Message string     `json:"message,omitempty"`
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (w *wsConn) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.c.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
}

func (w *wsConn) sendError(code utils.Code, msg string) {
	_ = w.writeJSON(wsServerMsg{Type: "error", Code: code, Message: msg})
}

// Interview runs the flow controller for one token over the socket.
func (h *WSHandler) Interview(c *gin.Context) {
	token := c.Param("token")

	// reject unknown tokens before upgrading so the client sees a plain 404
	if _, err := h.sessions.Get(c.Request.Context(), token); err != nil {
		writeError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	log := h.log.WithField("token", token)
	bridge := newWSBridge(wc, h.cfg.Language, h.transcription != nil)
	ctrl := interview.New(interview.Ports{
		Sessions:   h.sessions,
		Questions:  h.questions,
		Evaluator:  h.evaluations,
		Speaker:    bridge,
		Recognizer: bridge,
		Devices:    bridge,
		Observer:   bridge,
	}, h.cfg, h.log)

	started := make(chan struct{})
	readDone := make(chan struct{})
	go h.readLoop(ctx, wc, token, bridge, ctrl, started, readDone)
	go keepAlive(ctx, wc)

	if h.redis != nil && h.transcription != nil {
		pubsub := h.redis.Subscribe(ctx, workers.STTChannel(token))
		defer pubsub.Close()
		go forwardSTT(ctx, pubsub, bridge, log)
	}

	select {
	case <-started:
	case <-readDone:
		return
	case <-time.After(wsStartTimeout):
		wc.sendError(utils.CodeTimeout, "start message not received")
		return
	}

	// a dropped connection tears the flow down
	go func() {
		select {
		case <-readDone:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := h.sessions.MarkStatus(ctx, token, models.SessionInProgress); err != nil {
		log.WithError(err).Warn("mark session in progress failed")
	}

	res, err := ctrl.Run(ctx, token)
	switch {
	case err == nil:
		log.WithFields(logrus.Fields{
			"answers":     len(res.Transcript),
			"ended_early": res.EndedEarly,
			"score":       res.Evaluation.FinalScore,
		}).Info("interview finished")
	case errors.Is(err, interview.ErrSessionNotFound):
		wc.sendError(utils.CodeNotFound, "Interview not found")
	case errors.Is(err, interview.ErrRecognitionUnsupported):
		wc.sendError(utils.CodeInvalidArgument, "speech recognition is not supported by this browser")
	case ctx.Err() != nil:
		log.Info("client left before the interview finished")
		return
	default:
		log.WithError(err).Error("interview flow failed")
		wc.sendError(utils.CodeInternal, "interview failed")
	}

	wc.mu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "interview finished"),
		time.Now().Add(time.Second))
	wc.mu.Unlock()
}

func (h *WSHandler) readLoop(ctx context.Context, wc *wsConn, token string, b *wsBridge, ctrl *interview.Controller, started, done chan struct{}) {
	defer close(done)
	defer b.closeAll()

	conn := wc.c
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	var startOnce sync.Once
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		var msg wsClientMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			wc.sendError(utils.CodeInvalidArgument, "invalid json")
			continue
		}

		switch msg.Type {
		case "start":
			startOnce.Do(func() {
				b.setCapabilities(msg.Capabilities)
				close(started)
			})
		case "speech_end":
			b.speechEnded(msg.Op, msg.Error)
		case "recognition_result":
			final := msg.Final == nil || *msg.Final
			b.recognized(msg.Op, toAlternatives(msg.Alternatives), final)
		case "recognition_end":
			b.recognitionEnded(msg.Op)
		case "audio_chunk":
			if h.transcription == nil {
				wc.sendError(utils.CodeUnavailable, "server-side recognition is not configured")
				continue
			}
			err := h.transcription.Enqueue(ctx, services.ChunkJob{
				Token:       token,
				OpID:        msg.Op,
				ChunkIndex:  msg.ChunkIndex,
				AudioBase64: msg.AudioBase64,
				Language:    b.lang,
				IsFinal:     msg.IsFinal,
			})
			if err != nil {
				wc.sendError(utils.CodeOf(err), utils.Message(err, "failed to queue audio"))
			}
		case "media_status":
			b.mediaStatus(msg.Granted)
		case "skip_thinking":
			ctrl.SkipThinking()
		case "submit_answer":
			ctrl.Submit()
		case "end_interview":
			ctrl.End()
		default:
			wc.sendError(utils.CodeInvalidArgument, "unknown message type")
		}
	}
}

func keepAlive(ctx context.Context, wc *wsConn) {
	t := time.NewTicker(wsPingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := wc.ping(); err != nil {
				return
			}
		}
	}
}

func forwardSTT(ctx context.Context, pubsub *redis.PubSub, b *wsBridge, log *logrus.Entry) {
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			var res services.ChunkResult
			if err := json.Unmarshal([]byte(m.Payload), &res); err != nil {
				log.WithError(err).Warn("bad stt payload")
				continue
			}
			b.chunkRecognized(res)
		}
	}
}
