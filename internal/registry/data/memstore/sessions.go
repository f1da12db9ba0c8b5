package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lk2023060901/filestore-backend/internal/registry/biz"
)

// SessionStore keeps upload sessions in a map, one per user
type SessionStore struct {
	mu       sync.Mutex
	sessions map[int64]*biz.UploadSession
}

// NewSessionStore creates an empty session store
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[int64]*biz.UploadSession)}
}

func (s *SessionStore) Get(_ context.Context, userID int64) (*biz.UploadSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.sessions[userID]
	if !ok {
		return nil, nil
	}
	c := *cur
	return &c, nil
}

func (s *SessionStore) Put(_ context.Context, sess *biz.UploadSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *sess
	s.sessions[sess.UserID] = &c
	return nil
}

func (s *SessionStore) Increment(_ context.Context, userID int64, sessionID string, at time.Time) (*biz.UploadSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.sessions[userID]
	if !ok || cur.ID != sessionID {
		return nil, nil
	}
	cur.FileCount++
	cur.LastActivityAt = at
	c := *cur
	return &c, nil
}

func (s *SessionStore) Delete(_ context.Context, userID int64, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.sessions[userID]
	if !ok || (sessionID != "" && cur.ID != sessionID) {
		return false, nil
	}
	delete(s.sessions, userID)
	return true, nil
}

func (s *SessionStore) ListIdle(_ context.Context, before time.Time, limit int) ([]*biz.UploadSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*biz.UploadSession
	for _, cur := range s.sessions {
		if cur.LastActivityAt.Before(before) {
			c := *cur
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActivityAt.Before(out[j].LastActivityAt) })
	return out[:clamp(limit, len(out))], nil
}
