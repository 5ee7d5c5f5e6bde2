// Package sessions stores the server-side state behind the sid cookie.
package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/passgate/internal/common"
	"github.com/dmitrijs2005/passgate/internal/server/models"
)

// DefaultTTL matches the lifetime of a dashboard session.
const DefaultTTL = 14 * 24 * time.Hour

// idBytes is the entropy of a session id; ids are hex encoded.
const idBytes = 32

// Store persists sessions by id.
//
// Get returns common.ErrorNotFound for unknown or expired ids. Save assigns an
// id to a new session and refreshes its expiry.
type Store interface {
	Get(ctx context.Context, id string) (*models.Session, error)
	Save(ctx context.Context, s *models.Session) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// prepare fills in id and timestamps before a session is written.
func prepare(s *models.Session, now time.Time, ttl time.Duration) error {
	if s.ID == "" {
		id, err := common.MakeRandHexString(idBytes)
		if err != nil {
			return err
		}
		s.ID = id
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if ttl > 0 {
		s.ExpiresAt = now.Add(ttl)
	}
	return nil
}
