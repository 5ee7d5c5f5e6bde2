package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/passgate/internal/common"
	"github.com/dmitrijs2005/passgate/internal/logging"
	"github.com/dmitrijs2005/passgate/internal/server/models"
	"github.com/dmitrijs2005/passgate/internal/server/repositories/users"
)

// IdentityService reconciles identities asserted by external providers with
// directory records. One external id maps to at most one record.
type IdentityService struct {
	dir    users.Directory
	logger logging.Logger
	locks  keyedMutex
}

func NewIdentityService(dir users.Directory, logger logging.Logger) *IdentityService {
	return &IdentityService{dir: dir, logger: logger}
}

// LinkExternal finds the record for externalID and refreshes it with the
// provider payload, or creates it on first sight. Directory failures are
// returned as errors, never as a missing user.
func (s *IdentityService) LinkExternal(ctx context.Context, externalID, provider string, profile json.RawMessage, displayName string) (*models.User, error) {
	if externalID == "" {
		return nil, errors.New("empty external id")
	}

	unlock := s.locks.Lock(externalID)
	defer unlock()

	user, err := s.link(ctx, externalID, provider, profile, displayName)
	if errors.Is(err, common.ErrorAlreadyExists) {
		// another instance inserted the same id between our find and insert
		s.logger.Warn(ctx, "external identity insert raced, retrying", "provider", provider, "external_id", externalID)
		user, err = s.link(ctx, externalID, provider, profile, displayName)
	}
	if err != nil {
		return nil, fmt.Errorf("error linking %s identity: %w", provider, err)
	}
	return user, nil
}

func (s *IdentityService) link(ctx context.Context, externalID, provider string, profile json.RawMessage, displayName string) (*models.User, error) {
	var out *models.User

	run := func(ctx context.Context, dir users.Directory) error {
		existing, err := dir.FindOne(ctx, users.Query{users.FieldSocialAccountID: externalID})
		switch {
		case err == nil:
			patch := models.UserPatch{SocialAccount: models.Str(provider), Profile: profile}
			if displayName != "" {
				patch.Name = models.Str(displayName)
			}
			out, err = dir.UpdateByID(ctx, existing.ID, patch)
			return err
		case errors.Is(err, common.ErrorNotFound):
			u := &models.User{
				SocialAccountID: models.Str(externalID),
				SocialAccount:   models.Str(provider),
				Profile:         profile,
			}
			if displayName != "" {
				u.Name = models.Str(displayName)
			}
			out, err = dir.Insert(ctx, u)
			return err
		default:
			return err
		}
	}

	var err error
	if tx, ok := s.dir.(users.TxRunner); ok {
		err = tx.InTx(ctx, run)
	} else {
		err = run(ctx, s.dir)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}
