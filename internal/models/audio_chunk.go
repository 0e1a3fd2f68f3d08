package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AudioChunk is a recorded answer clip queued for server-side recognition.
type AudioChunk struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Token      string             `bson:"token" json:"token"`
	OpID       int64              `bson:"op_id" json:"op_id"`
	ChunkIndex int64              `bson:"chunk_index" json:"chunk_index"`

	AudioBase64 string `bson:"audio_base64,omitempty" json:"-"`
	Language    string `bson:"language" json:"language"`

	Transcript    string  `bson:"transcript,omitempty" json:"transcript,omitempty"`
	STTStatus     string  `bson:"stt_status" json:"stt_status"` // pending|processing|done|failed
	STTConfidence float64 `bson:"stt_confidence,omitempty" json:"stt_confidence,omitempty"`

	ProcessingTimeMS int64     `bson:"processing_time_ms,omitempty" json:"processing_time_ms,omitempty"`
	Timestamp        time.Time `bson:"timestamp" json:"timestamp"`

	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
}
