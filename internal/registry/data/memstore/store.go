// Package memstore is an in-memory registry store for tests and single-process dev runs.
// All writes are serialized by one mutex; InTx snapshots state and restores it on error.
package memstore

import (
	"context"
	"sync"

	apperrors "github.com/lk2023060901/filestore-backend/internal/pkg/errors"
	"github.com/lk2023060901/filestore-backend/internal/registry/biz"
)

type txKey struct{}

type state struct {
	users  map[int64]*biz.User
	stats  map[int64]*biz.Stats
	groups map[int64]*biz.Group
	files  map[int64]*biz.File
	links  map[int64]*biz.Link

	nextGroupID int64
	nextFileID  int64
	nextLinkID  int64
}

func newState() *state {
	return &state{
		users:  make(map[int64]*biz.User),
		stats:  make(map[int64]*biz.Stats),
		groups: make(map[int64]*biz.Group),
		files:  make(map[int64]*biz.File),
		links:  make(map[int64]*biz.Link),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = copyUser(v)
	}
	for k, v := range s.stats {
		st := *v
		c.stats[k] = &st
	}
	for k, v := range s.groups {
		c.groups[k] = copyGroup(v)
	}
	for k, v := range s.files {
		c.files[k] = copyFile(v)
	}
	for k, v := range s.links {
		c.links[k] = copyLink(v)
	}
	c.nextGroupID, c.nextFileID, c.nextLinkID = s.nextGroupID, s.nextFileID, s.nextLinkID
	return c
}

// Store implements every biz repository in memory
type Store struct {
	mu    sync.Mutex
	state *state

	faultMu sync.Mutex
	faults  map[string][]error
}

// New creates an empty store
func New() *Store {
	return &Store{
		state:  newState(),
		faults: make(map[string][]error),
	}
}

// Repos returns the store wired as biz repositories
func (s *Store) Repos() *biz.Repos {
	return &biz.Repos{
		Tx:     s,
		Users:  userRepo{s},
		Stats:  statsRepo{s},
		Groups: groupRepo{s},
		Files:  fileRepo{s},
		Links:  linkRepo{s},
	}
}

// FailNext queues errs to be returned by the next calls of op, e.g. "Files.Create".
// Tests use it to inject transient failures and constraint races.
func (s *Store) FailNext(op string, errs ...error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.faults[op] = append(s.faults[op], errs...)
}

func (s *Store) fault(op string) error {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	q := s.faults[op]
	if len(q) == 0 {
		return nil
	}
	s.faults[op] = q[1:]
	return q[0]
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// InTx runs fn with the store locked; state changes made by fn are undone if it fails
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	if err := s.fault("InTx"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

// begin locks the store for one repository call unless ctx already holds it,
// then applies queued faults and the context deadline.
func (s *Store) begin(ctx context.Context, op string) (func(), error) {
	if err := s.fault(op); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewStoreUnavailableError(err)
	}
	if s.inTx(ctx) {
		return func() {}, nil
	}
	s.mu.Lock()
	return s.mu.Unlock, nil
}

func copyUser(u *biz.User) *biz.User {
	c := *u
	return &c
}

func copyGroup(g *biz.Group) *biz.Group {
	c := *g
	return &c
}

func copyFile(f *biz.File) *biz.File {
	c := *f
	if f.Tags != nil {
		c.Tags = append([]string(nil), f.Tags...)
	}
	return &c
}

func copyLink(l *biz.Link) *biz.Link {
	c := *l
	if l.ExpiresAt != nil {
		t := *l.ExpiresAt
		c.ExpiresAt = &t
	}
	if l.MaxUses != nil {
		n := *l.MaxUses
		c.MaxUses = &n
	}
	if l.DeactivatedAt != nil {
		t := *l.DeactivatedAt
		c.DeactivatedAt = &t
	}
	return &c
}

func clamp(limit, n int) int {
	if limit > 0 && n > limit {
		return limit
	}
	return n
}
