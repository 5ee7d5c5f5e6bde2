// Package users is the user directory: a store of user records queryable by
// field match, supporting insert and update by id.
package users

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/passgate/internal/server/models"
)

// Field names a queryable user attribute.
type Field string

const (
	FieldID              Field = "id"
	FieldUsername        Field = "username"
	FieldSocialAccountID Field = "socialAccountId"
	FieldSocialAccount   Field = "socialAccount"
	FieldName            Field = "name"
)

// Query is a field→value mapping; a record matches when every field equals
// its value.
type Query map[Field]string

var (
	ErrEmptyQuery   = errors.New("empty query")
	ErrUnknownField = errors.New("unknown query field")
)

// Directory is the contract the strategies need from the user store.
//
// FindOne returns common.ErrorNotFound when nothing matches. Insert assigns
// the ID and returns common.ErrorAlreadyExists when a username or social
// account id is taken. UpdateByID returns the merged record.
type Directory interface {
	FindOne(ctx context.Context, q Query) (*models.User, error)
	Insert(ctx context.Context, user *models.User) (*models.User, error)
	UpdateByID(ctx context.Context, id string, patch models.UserPatch) (*models.User, error)
}

// TxRunner is implemented by directories that can run several operations
// atomically. fn receives a Directory bound to the transaction.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context, d Directory) error) error
}

func validateQuery(q Query) error {
	if len(q) == 0 {
		return ErrEmptyQuery
	}
	for f := range q {
		switch f {
		case FieldID, FieldUsername, FieldSocialAccountID, FieldSocialAccount, FieldName:
		default:
			return ErrUnknownField
		}
	}
	return nil
}
