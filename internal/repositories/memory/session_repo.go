// Package memory keeps sessions in process memory. Data is lost on restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/utils"
)

type SessionRepo struct {
	mu   sync.RWMutex
	byTk map[string]models.Session
	now  func() time.Time
}

func NewSessionRepo() *SessionRepo {
	return &SessionRepo{byTk: make(map[string]models.Session), now: time.Now}
}

func (r *SessionRepo) Create(ctx context.Context, s *models.Session) error {
	now := r.now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = s.CreatedAt
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.byTk[s.Token]; ok && !cur.Expired(now) {
		return utils.ErrConflict
	}
	r.byTk[s.Token] = clone(s)
	return nil
}

func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*models.Session, error) {
	now := r.now()

	r.mu.RLock()
	s, ok := r.byTk[token]
	r.mu.RUnlock()

	if !ok {
		return nil, utils.ErrNotFound
	}
	if s.Expired(now) {
		r.mu.Lock()
		if cur, ok := r.byTk[token]; ok && cur.Expired(now) {
			delete(r.byTk, token)
		}
		r.mu.Unlock()
		return nil, utils.ErrNotFound
	}
	out := clone(&s)
	return &out, nil
}

// clone copies s so callers never share ResumeFile with the stored record.
func clone(s *models.Session) models.Session {
	out := *s
	if s.ResumeFile != nil {
		ref := *s.ResumeFile
		out.ResumeFile = &ref
	}
	return out
}

func (r *SessionRepo) Touch(ctx context.Context, token string, at time.Time) error {
	return r.update(token, func(s *models.Session) { s.UpdatedAt = at.UTC() })
}

func (r *SessionRepo) SetStatus(ctx context.Context, token string, status models.SessionStatus) error {
	now := r.now().UTC()
	return r.update(token, func(s *models.Session) {
		s.Status = status
		s.UpdatedAt = now
	})
}

func (r *SessionRepo) update(token string, fn func(*models.Session)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byTk[token]
	if !ok || s.Expired(r.now()) {
		return utils.ErrNotFound
	}
	fn(&s)
	r.byTk[token] = s
	return nil
}

func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byTk[token]; !ok {
		return utils.ErrNotFound
	}
	delete(r.byTk, token)
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (r *SessionRepo) Sweep() int {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for tk, s := range r.byTk {
		if s.Expired(now) {
			delete(r.byTk, tk)
			n++
		}
	}
	return n
}

func (r *SessionRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byTk)
}

// StartJanitor sweeps on every tick until ctx is done.
func (r *SessionRepo) StartJanitor(ctx context.Context, every time.Duration, onSweep func(removed int)) {
	if every <= 0 {
		every = 10 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := r.Sweep(); n > 0 && onSweep != nil {
					onSweep(n)
				}
			}
		}
	}()
}
