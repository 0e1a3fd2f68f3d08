package mongo

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestLiveFilterExcludesExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("WIB", 7*3600))
	f := liveFilter("abc", now)

	assert.Equal(t, "abc", f["token"])
	exp, ok := f["expires_at"].(bson.M)
	require.True(t, ok)
	assert.Equal(t, now.UTC(), exp["$gt"])
}

func TestInsertErr(t *testing.T) {
	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	assert.ErrorIs(t, insertErr(dup), utils.ErrConflict)

	boom := errors.New("boom")
	assert.Equal(t, boom, insertErr(boom))
	assert.NoError(t, insertErr(nil))
}

func TestChunkDefaults(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	c := &models.AudioChunk{}
	withChunkDefaults(c, now)
	assert.Equal(t, now, c.Timestamp)
	assert.Equal(t, now.Add(audioRetention), c.ExpiresAt)
	assert.Equal(t, "pending", c.STTStatus)

	kept := &models.AudioChunk{Timestamp: now.Add(-time.Hour), STTStatus: "done"}
	withChunkDefaults(kept, now)
	assert.Equal(t, now.Add(-time.Hour), kept.Timestamp)
	assert.Equal(t, now.Add(-time.Hour).Add(audioRetention), kept.ExpiresAt)
	assert.Equal(t, "done", kept.STTStatus)
}

func TestSTTUpdate(t *testing.T) {
	assert.Equal(t, bson.M{"token": "abc", "op_id": int64(2), "chunk_index": int64(5)}, chunkKey("abc", 2, 5))

	set := sttUpdate("hello", 0.8, "done", 0)["$set"].(bson.M)
	assert.Equal(t, "done", set["stt_status"])
	assert.Equal(t, 0.8, set["stt_confidence"])
	assert.NotContains(t, set, "processing_time_ms")

	set = sttUpdate("", 0, "failed", 120)["$set"].(bson.M)
	assert.Equal(t, int64(120), set["processing_time_ms"])
}
