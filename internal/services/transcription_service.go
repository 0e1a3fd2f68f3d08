package services

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/providers/stt"
	"github.com/yoockh/yoointerview/internal/repositories"
	"github.com/yoockh/yoointerview/internal/speech"
	"github.com/yoockh/yoointerview/internal/utils"
)

const maxAudioBytes = 10 << 20

const (
	STTPending    = "pending"
	STTProcessing = "processing"
	STTDone       = "done"
	STTFailed     = "failed"
)

// ChunkJob is one recorded clip of an answer, queued for recognition.
type ChunkJob struct {
	Token       string `json:"token"`
	OpID        int64  `json:"op"`
	ChunkIndex  int64  `json:"chunk_index"`
	AudioBase64 string `json:"audio_base64"`
	Language    string `json:"language"`
	IsFinal     bool   `json:"is_final"`
}

type ChunkResult struct {
	Type         string               `json:"type"` // always "stt_result"
	OpID         int64                `json:"op"`
	ChunkIndex   int64                `json:"chunk_index"`
	Status       string               `json:"status"`
	Transcript   string               `json:"transcript"`
	Alternatives []speech.Alternative `json:"alternatives"`
	IsFinal      bool                 `json:"is_final"`
}

type Transcript struct {
	Transcript   string               `json:"transcript"`
	Alternatives []speech.Alternative `json:"alternatives"`
}

// AudioQueue hands chunks to the recognition workers.
type AudioQueue interface {
	EnqueueAudio(ctx context.Context, job ChunkJob) error
}

type TranscriptionService interface {
	Transcribe(ctx context.Context, token string, audio []byte, language string) (*Transcript, error)
	Enqueue(ctx context.Context, job ChunkJob) error
	Process(ctx context.Context, job ChunkJob) *ChunkResult
}

type transcriptionService struct {
	sessions SessionService
	stt      stt.Provider
	chunks   repositories.AudioChunkRepository // optional
	queue    AudioQueue
	log      *logrus.Logger
}

func NewTranscriptionService(sessions SessionService, provider stt.Provider, chunks repositories.AudioChunkRepository, queue AudioQueue, log *logrus.Logger) TranscriptionService {
	return &transcriptionService{sessions: sessions, stt: provider, chunks: chunks, queue: queue, log: log}
}

func (s *transcriptionService) Transcribe(ctx context.Context, token string, audio []byte, language string) (*Transcript, error) {
	const op = "TranscriptionService.Transcribe"

	if s.stt == nil {
		return nil, utils.E(utils.CodeUnavailable, op, "speech recognition is not configured", nil)
	}
	if _, err := s.sessions.Get(ctx, token); err != nil {
		return nil, err
	}
	if len(audio) == 0 || len(audio) > maxAudioBytes {
		return nil, utils.E(utils.CodeInvalidArgument, op, "audio must be between 1 byte and 10 MB", nil)
	}

	alts, err := s.stt.Transcribe(ctx, audio, NormalizeLanguage(language))
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "speech recognition failed", err)
	}
	return &Transcript{Transcript: bestTranscript(alts), Alternatives: alts}, nil
}

func (s *transcriptionService) Enqueue(ctx context.Context, job ChunkJob) error {
	const op = "TranscriptionService.Enqueue"

	if s.stt == nil || s.queue == nil {
		return utils.E(utils.CodeUnavailable, op, "server-side recognition is not configured", nil)
	}
	if job.Token == "" || job.ChunkIndex < 0 || job.AudioBase64 == "" {
		return utils.E(utils.CodeInvalidArgument, op, "token, chunk_index and audio_base64 are required", nil)
	}
	job.Language = NormalizeLanguage(job.Language)

	if s.chunks != nil {
		err := s.chunks.InsertChunk(ctx, &models.AudioChunk{
			Token:       job.Token,
			OpID:        job.OpID,
			ChunkIndex:  job.ChunkIndex,
			AudioBase64: job.AudioBase64,
			Language:    job.Language,
			STTStatus:   STTPending,
		})
		if err != nil {
			s.log.WithError(err).WithField("token", job.Token).Warn("audio chunk insert failed")
		}
	}

	if err := s.queue.EnqueueAudio(ctx, job); err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to queue audio", err)
	}
	return nil
}

// Process recognizes one chunk. It never fails: problems are reported through
// the result status so the listener can move on.
func (s *transcriptionService) Process(ctx context.Context, job ChunkJob) *ChunkResult {
	res := &ChunkResult{Type: "stt_result", OpID: job.OpID, ChunkIndex: job.ChunkIndex, IsFinal: job.IsFinal, Status: STTFailed}
	l := s.log.WithFields(logrus.Fields{"token": job.Token, "op": job.OpID, "chunk_index": job.ChunkIndex})

	if s.stt == nil {
		return res
	}
	audio, err := decodeAudio(job.AudioBase64)
	if err != nil {
		l.WithError(err).Warn("base64 decode failed")
		s.mark(ctx, job, res, 0)
		return res
	}

	start := time.Now()
	s.mark(ctx, job, &ChunkResult{Status: STTProcessing}, 0)

	alts, err := s.stt.Transcribe(ctx, audio, NormalizeLanguage(job.Language))
	if err != nil {
		l.WithError(err).Error("stt failed")
		s.mark(ctx, job, res, time.Since(start).Milliseconds())
		return res
	}

	res.Status = STTDone
	res.Alternatives = alts
	res.Transcript = bestTranscript(alts)
	s.mark(ctx, job, res, time.Since(start).Milliseconds())
	return res
}

func (s *transcriptionService) mark(ctx context.Context, job ChunkJob, res *ChunkResult, procMS int64) {
	if s.chunks == nil {
		return
	}
	var conf float64
	for _, a := range res.Alternatives {
		if a.Confidence > conf {
			conf = a.Confidence
		}
	}
	if err := s.chunks.UpdateSTT(ctx, job.Token, job.OpID, job.ChunkIndex, res.Transcript, conf, res.Status, procMS); err != nil {
		s.log.WithError(err).WithField("token", job.Token).Debug("audio chunk status update failed")
	}
}

func bestTranscript(alts []speech.Alternative) string {
	return strings.TrimSpace(speech.CorrectTechnicalTerms(speech.ChooseBestAlternative(alts)))
}

func decodeAudio(b64 string) ([]byte, error) {
	if i := strings.Index(b64, ","); i >= 0 {
		b64 = b64[i+1:] // strip data:...;base64,
	}
	return base64.StdEncoding.DecodeString(b64)
}

func NormalizeLanguage(v string) string {
	v = strings.TrimSpace(v)
	switch v {
	case "", "en", "en-US":
		return "en-US"
	case "id", "id-ID":
		return "id-ID"
	default:
		return v
	}
}
