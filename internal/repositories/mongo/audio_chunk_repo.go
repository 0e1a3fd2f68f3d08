package mongo

import (
	"context"
	"time"

	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const AudioChunksCollection = "audio_chunks"

// audio is only useful while the answer is being recognized
const audioRetention = 24 * time.Hour

type audioChunkRepo struct {
	col *mongo.Collection
}

func NewAudioChunkRepo(db *mongo.Database) repositories.AudioChunkRepository {
	return &audioChunkRepo{col: db.Collection(AudioChunksCollection)}
}

func (r *audioChunkRepo) InsertChunk(ctx context.Context, c *models.AudioChunk) error {
	withChunkDefaults(c, time.Now())
	_, err := r.col.InsertOne(ctx, c)
	return err
}

func withChunkDefaults(c *models.AudioChunk, now time.Time) {
	if c.Timestamp.IsZero() {
		c.Timestamp = now.UTC()
	}
	if c.ExpiresAt.IsZero() {
		c.ExpiresAt = c.Timestamp.Add(audioRetention)
	}
	if c.STTStatus == "" {
		c.STTStatus = "pending"
	}
}

func chunkKey(token string, opID, chunkIndex int64) bson.M {
	return bson.M{"token": token, "op_id": opID, "chunk_index": chunkIndex}
}

func sttUpdate(transcript string, confidence float64, status string, processingMS int64) bson.M {
	set := bson.M{
		"stt_status":     status,
		"transcript":     transcript,
		"stt_confidence": confidence,
	}
	if processingMS > 0 {
		set["processing_time_ms"] = processingMS
	}
	return bson.M{"$set": set}
}

func (r *audioChunkRepo) UpdateSTT(ctx context.Context, token string, opID, chunkIndex int64, transcript string, confidence float64, status string, processingMS int64) error {
	_, err := r.col.UpdateOne(ctx, chunkKey(token, opID, chunkIndex), sttUpdate(transcript, confidence, status, processingMS))
	return err
}

func (r *audioChunkRepo) ListByOp(ctx context.Context, token string, opID int64) ([]models.AudioChunk, error) {
	cur, err := r.col.Find(ctx,
		bson.M{"token": token, "op_id": opID},
		options.Find().
			SetSort(bson.D{{Key: "chunk_index", Value: 1}}).
			SetLimit(500),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.AudioChunk
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
