package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/passgate/internal/common"
	"github.com/dmitrijs2005/passgate/internal/server/auth"
	"github.com/dmitrijs2005/passgate/internal/server/models"
	"github.com/dmitrijs2005/passgate/internal/server/repositories/users"
)

// AccountService handles local username/password accounts.
type AccountService struct {
	dir     users.Directory
	hasher  auth.Hasher
	saltLen int
}

func NewAccountService(dir users.Directory, hasher auth.Hasher, saltLen int) *AccountService {
	return &AccountService{dir: dir, hasher: hasher, saltLen: saltLen}
}

// Register stores a new local account with a freshly salted password.
func (s *AccountService) Register(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, errors.New("username and password are required")
	}

	stored, err := auth.NewSaltedPassword(s.hasher, s.saltLen, password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user, err := s.dir.Insert(ctx, &models.User{
		Username: models.Str(username),
		Password: models.Str(stored),
		Name:     models.Str(username),
	})
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return user, nil
}

// Authenticate returns the account matching the credentials.
// Unknown users and wrong passwords both yield common.ErrorUnauthorized;
// any other error is a directory failure.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" {
		return nil, common.ErrorUnauthorized
	}

	user, err := s.dir.FindOne(ctx, users.Query{users.FieldUsername: username})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}

	if user.Password == nil || !auth.VerifySalted(s.hasher, s.saltLen, *user.Password, password) {
		return nil, common.ErrorUnauthorized
	}
	return user, nil
}
