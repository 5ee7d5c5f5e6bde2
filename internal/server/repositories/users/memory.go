package users

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/passgate/internal/common"
	"github.com/dmitrijs2005/passgate/internal/server/models"
)

// MemoryDirectory keeps users in process memory. It enforces the same
// uniqueness as the Postgres schema (username, social account id).
type MemoryDirectory struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]*models.User
	now   func() time.Time
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{byID: make(map[string]*models.User), now: time.Now}
}

func (m *MemoryDirectory) FindOne(ctx context.Context, q Query) (*models.User, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, id := range m.order {
		u := m.byID[id]
		if matches(u, q) {
			return clone(u), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *MemoryDirectory) Insert(ctx context.Context, user *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conflicts("", user.Username, user.SocialAccountID) {
		return nil, common.ErrorAlreadyExists
	}

	u := clone(user)
	u.ID = uuid.NewString()
	u.CreatedAt = m.now()
	u.UpdatedAt = u.CreatedAt

	m.byID[u.ID] = u
	m.order = append(m.order, u.ID)
	return clone(u), nil
}

func (m *MemoryDirectory) UpdateByID(ctx context.Context, id string, patch models.UserPatch) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}

	merged := clone(u)
	patch.Apply(merged)
	if m.conflicts(id, merged.Username, merged.SocialAccountID) {
		return nil, common.ErrorAlreadyExists
	}
	merged.UpdatedAt = m.now()

	m.byID[id] = merged
	return clone(merged), nil
}

// InTx runs fn against the directory itself. Single operations are atomic;
// sequences are not isolated from each other.
func (m *MemoryDirectory) InTx(ctx context.Context, fn func(ctx context.Context, d Directory) error) error {
	return fn(ctx, m)
}

// Len returns the number of stored records.
func (m *MemoryDirectory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

func (m *MemoryDirectory) conflicts(selfID string, username, socialID *string) bool {
	for id, other := range m.byID {
		if id == selfID {
			continue
		}
		if username != nil && other.Username != nil && *username == *other.Username {
			return true
		}
		if socialID != nil && other.SocialAccountID != nil && *socialID == *other.SocialAccountID {
			return true
		}
	}
	return false
}

func matches(u *models.User, q Query) bool {
	for f, want := range q {
		var got *string
		switch f {
		case FieldID:
			got = &u.ID
		case FieldUsername:
			got = u.Username
		case FieldSocialAccountID:
			got = u.SocialAccountID
		case FieldSocialAccount:
			got = u.SocialAccount
		case FieldName:
			got = u.Name
		}
		if got == nil || *got != want {
			return false
		}
	}
	return true
}

func clone(u *models.User) *models.User {
	c := *u
	c.Username = copyStr(u.Username)
	c.Password = copyStr(u.Password)
	c.SocialAccountID = copyStr(u.SocialAccountID)
	c.SocialAccount = copyStr(u.SocialAccount)
	c.Name = copyStr(u.Name)
	if u.Profile != nil {
		c.Profile = bytes.Clone(u.Profile)
	}
	return &c
}

func copyStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
