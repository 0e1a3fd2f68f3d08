package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/speech"
	"github.com/yoockh/yoointerview/internal/utils"
)

func nullLogger() *logrus.Logger {
	l, _ := test.NewNullLogger()
	return l
}

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMapCache() *mapCache { return &mapCache{data: map[string][]byte{}} }

func (c *mapCache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *mapCache) SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = b
	c.sets++
	return nil
}

func (c *mapCache) Del(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

type sentMail struct{ email, link string }

type fakeNotifier struct {
	sent []sentMail
	err  error
}

func (n *fakeNotifier) Send(ctx context.Context, email, link string) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMail{email, link})
	return nil
}

type fakeUploader struct {
	names []string
	err   error
}

func (u *fakeUploader) Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	_, _ = io.ReadAll(r)
	u.names = append(u.names, name)
	return "gs://bucket/" + name, nil
}

type fakeResumeFiles struct{ rows []*models.ResumeFile }

func (f *fakeResumeFiles) Insert(ctx context.Context, row *models.ResumeFile) error {
	f.rows = append(f.rows, row)
	return nil
}

func (f *fakeResumeFiles) LatestByToken(ctx context.Context, token string) (*models.ResumeFile, error) {
	for i := len(f.rows) - 1; i >= 0; i-- {
		if f.rows[i].Token == token {
			return f.rows[i], nil
		}
	}
	return nil, utils.ErrNotFound
}

type fakeEvaluations struct {
	transcripts map[string][]models.TranscriptEntry
	records     []*models.EvaluationRecord
}

func newFakeEvaluations() *fakeEvaluations {
	return &fakeEvaluations{transcripts: map[string][]models.TranscriptEntry{}}
}

func (f *fakeEvaluations) SaveResult(ctx context.Context, token string, tr []models.TranscriptEntry, ev *models.EvaluationRecord) error {
	f.transcripts[token] = tr
	f.records = append(f.records, ev)
	return nil
}

func (f *fakeEvaluations) LatestByToken(ctx context.Context, token string) (*models.EvaluationRecord, error) {
	for i := len(f.records) - 1; i >= 0; i-- {
		if f.records[i].Token == token {
			return f.records[i], nil
		}
	}
	return nil, utils.ErrNotFound
}

func (f *fakeEvaluations) TranscriptByToken(ctx context.Context, token string) ([]models.TranscriptEntry, error) {
	return f.transcripts[token], nil
}

type stubCompleter struct {
	out    string
	err    error
	prompt string
}

func (s *stubCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.out, s.err
}

type fakeSTT struct {
	alts  []speech.Alternative
	err   error
	audio []byte
	lang  string
}

func (f *fakeSTT) Transcribe(ctx context.Context, audio []byte, language string) ([]speech.Alternative, error) {
	f.audio, f.lang = audio, language
	return f.alts, f.err
}

func (f *fakeSTT) Close() error { return nil }

type fakeQueue struct {
	jobs []ChunkJob
}

func (q *fakeQueue) EnqueueAudio(ctx context.Context, job ChunkJob) error {
	q.jobs = append(q.jobs, job)
	return nil
}

type chunkUpdate struct {
	status     string
	transcript string
}

type fakeChunks struct {
	inserted []*models.AudioChunk
	updates  []chunkUpdate
}

func (f *fakeChunks) InsertChunk(ctx context.Context, c *models.AudioChunk) error {
	f.inserted = append(f.inserted, c)
	return nil
}

func (f *fakeChunks) UpdateSTT(ctx context.Context, token string, opID, idx int64, transcript string, conf float64, status string, ms int64) error {
	f.updates = append(f.updates, chunkUpdate{status: status, transcript: transcript})
	return nil
}

func (f *fakeChunks) ListByOp(ctx context.Context, token string, opID int64) ([]models.AudioChunk, error) {
	return nil, errors.New("not used")
}
