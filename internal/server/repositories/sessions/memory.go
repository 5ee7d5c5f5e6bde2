package sessions

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/dmitrijs2005/passgate/internal/common"
	"github.com/dmitrijs2005/passgate/internal/server/models"
)

// MemoryStore keeps sessions in process memory. Expired entries are dropped
// lazily on access.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*models.Session
	now      func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, sessions: make(map[string]*models.Session), now: time.Now}
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if s.Expired(m.now()) {
		delete(m.sessions, id)
		return nil, common.ErrorNotFound
	}
	return copySession(s), nil
}

func (m *MemoryStore) Save(ctx context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := prepare(s, m.now(), m.ttl); err != nil {
		return err
	}
	m.sessions[s.ID] = copySession(s)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func copySession(s *models.Session) *models.Session {
	c := *s
	c.Values = maps.Clone(s.Values)
	return &c
}
