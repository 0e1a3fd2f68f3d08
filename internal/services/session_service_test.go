package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/yoointerview/internal/cache"
	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/repositories/memory"
	"github.com/yoockh/yoointerview/internal/utils"
)

func newSessionService(c *mapCache) (SessionService, *memory.SessionRepo) {
	repo := memory.NewSessionRepo()
	return NewSessionService(repo, c, nullLogger(), SessionOptions{TTL: time.Hour, CacheTTL: time.Minute}), repo
}

func TestSessionCreateAndGet(t *testing.T) {
	c := newMapCache()
	svc, _ := newSessionService(c)
	ctx := context.Background()

	s, err := svc.Create(ctx, CreateSessionInput{ResumeText: "Go developer", JobDescription: "Backend", Email: " a@b.co "})
	require.NoError(t, err)
	assert.True(t, utils.ValidSessionToken(s.Token))
	assert.Equal(t, models.DefaultNumQuestions, s.NumQuestions)
	assert.Equal(t, models.SessionPending, s.Status)
	assert.Equal(t, "a@b.co", s.Email)
	assert.WithinDuration(t, s.CreatedAt.Add(time.Hour), s.ExpiresAt, time.Second)

	got, err := svc.Get(ctx, s.Token)
	require.NoError(t, err)
	assert.Equal(t, "Go developer", got.ResumeText)
	assert.Equal(t, 1, c.sets)

	// second read is served from cache
	_, err = svc.Get(ctx, s.Token)
	require.NoError(t, err)
	assert.Equal(t, 1, c.sets)
}

func TestSessionCreateRequiresResume(t *testing.T) {
	svc, _ := newSessionService(newMapCache())
	_, err := svc.Create(context.Background(), CreateSessionInput{ResumeText: "  "})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}

func TestSessionGetUnknownTokens(t *testing.T) {
	svc, _ := newSessionService(newMapCache())
	ctx := context.Background()

	_, err := svc.Get(ctx, "")
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	for _, tk := range []string{"nope", "../../etc", "0123456789abcdef0123456789abcdef"} {
		_, err := svc.Get(ctx, tk)
		assert.True(t, utils.IsCode(err, utils.CodeNotFound), tk)
		assert.Equal(t, "Interview not found", utils.Message(err, ""))
	}
}

func TestSessionDeleteInvalidatesCache(t *testing.T) {
	c := newMapCache()
	svc, _ := newSessionService(c)
	ctx := context.Background()

	s, err := svc.Create(ctx, CreateSessionInput{ResumeText: "cv"})
	require.NoError(t, err)
	_, err = svc.Get(ctx, s.Token)
	require.NoError(t, err)
	require.Contains(t, c.data, cache.SessionKey(s.Token))

	require.NoError(t, svc.Delete(ctx, s.Token))
	assert.NotContains(t, c.data, cache.SessionKey(s.Token))

	_, err = svc.Get(ctx, s.Token)
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))

	err = svc.Delete(ctx, s.Token)
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))
}

func TestSessionMarkStatus(t *testing.T) {
	svc, _ := newSessionService(newMapCache())
	ctx := context.Background()

	s, err := svc.Create(ctx, CreateSessionInput{ResumeText: "cv"})
	require.NoError(t, err)

	require.NoError(t, svc.MarkStatus(ctx, s.Token, models.SessionCompleted))
	got, err := svc.Get(ctx, s.Token)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, got.Status)

	err = svc.MarkStatus(ctx, s.Token, "archived")
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}

func TestSessionExpiredCacheEntryIgnored(t *testing.T) {
	c := newMapCache()
	svc, _ := newSessionService(c)
	ctx := context.Background()

	tk, err := utils.NewSessionToken()
	require.NoError(t, err)
	stale := models.Session{Token: tk, ResumeText: "cv", ExpiresAt: time.Now().Add(-time.Minute)}
	require.NoError(t, c.SetJSON(ctx, cache.SessionKey(tk), stale, time.Hour))

	_, err = svc.Get(ctx, tk)
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))
}
