package workers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoointerview/internal/services"
)

const (
	DefaultAudioStream = "interview:audio"
	DefaultGroup       = "stt-workers"
)

// STTChannel is the pub/sub channel carrying recognition results for one session.
func STTChannel(token string) string { return "interview:" + token + ":stt" }

// RedisAudioQueue appends chunks to the audio stream consumed by the pool.
type RedisAudioQueue struct {
	Redis  *redis.Client
	Stream string
}

func (q *RedisAudioQueue) EnqueueAudio(ctx context.Context, job services.ChunkJob) error {
	stream := q.Stream
	if stream == "" {
		stream = DefaultAudioStream
	}
	return q.Redis.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: 10000,
		Approx: true,
		Values: jobValues(job),
	}).Err()
}

func jobValues(job services.ChunkJob) map[string]any {
	return map[string]any{
		"token":        job.Token,
		"op_id":        strconv.FormatInt(job.OpID, 10),
		"chunk_index":  strconv.FormatInt(job.ChunkIndex, 10),
		"audio_base64": job.AudioBase64,
		"language":     job.Language,
		"is_final":     strconv.FormatBool(job.IsFinal),
	}
}

type TranscriptionWorkerPool struct {
	Redis         *redis.Client
	Transcription services.TranscriptionService
	NumWorkers    int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
}

func (p *TranscriptionWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Transcription == nil {
		return errors.New("TranscriptionWorkerPool missing dependency: Redis/Transcription must be set")
	}
	if p.Stream == "" {
		p.Stream = DefaultAudioStream
	}
	if p.Group == "" {
		p.Group = DefaultGroup
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 4
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *TranscriptionWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() == nil {
				p.Logger.WithError(err).WithField("consumer", consumer).Debug("xreadgroup failed")
				time.Sleep(500 * time.Millisecond)
			}
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

func (p *TranscriptionWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	job, ok := parseJob(msg.Values)
	if !ok {
		p.Logger.WithField("redis_id", msg.ID).Warn("dropping malformed audio message")
		return
	}

	res := p.Transcription.Process(ctx, job)
	payload, _ := json.Marshal(res)
	if err := p.Redis.Publish(ctx, STTChannel(job.Token), payload).Err(); err != nil {
		p.Logger.WithError(err).WithFields(logrus.Fields{
			"token": job.Token,
			"op":    job.OpID,
		}).Warn("publish stt result failed")
	}
}

func parseJob(values map[string]any) (services.ChunkJob, bool) {
	get := func(k string) string {
		s, _ := values[k].(string)
		return s
	}

	job := services.ChunkJob{
		Token:       get("token"),
		AudioBase64: get("audio_base64"),
		Language:    get("language"),
	}
	var err error
	if job.OpID, err = strconv.ParseInt(get("op_id"), 10, 64); err != nil {
		return job, false
	}
	if job.ChunkIndex, err = strconv.ParseInt(get("chunk_index"), 10, 64); err != nil {
		return job, false
	}
	job.IsFinal, _ = strconv.ParseBool(get("is_final"))
	return job, job.Token != "" && job.AudioBase64 != ""
}
