// Package strategies implements the interchangeable credential verifiers
// (local password, Twitter, Facebook) and the registry that holds the ones
// enabled by configuration.
package strategies

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dmitrijs2005/passgate/internal/server/models"
)

// Name identifies a strategy. It doubles as the URL segment that selects it.
type Name string

const (
	Local    Name = "local"
	Twitter  Name = "twitter"
	Facebook Name = "facebook"
)

// Options are per-request settings handed to a strategy by the dispatcher.
type Options struct {
	// Session asks the strategy to keep its own login session. Always false:
	// sessions are established by the resource.
	Session bool
	// Scope lists the provider permissions to request.
	Scope []string
}

// Strategy verifies credentials carried by a request.
//
// Authenticate may write to w only to set cookies it needs for a multi-leg
// flow; the caller owns the response status and body.
type Strategy interface {
	Name() Name
	Authenticate(w http.ResponseWriter, r *http.Request, opts Options) Result
}

// Result is the outcome of one Authenticate call. It is one of Success,
// Rejected, Fault or Redirect.
type Result interface {
	isResult()
}

// Success carries the authenticated directory record.
type Success struct {
	User *models.User
}

// Rejected means the credentials were checked and refused.
type Rejected struct {
	Reason string
}

// Fault means verification could not complete (store or provider failure).
type Fault struct {
	Err error
}

// Redirect sends the client to an identity provider to continue the flow.
type Redirect struct {
	URL string
}

func (Success) isResult()  {}
func (Rejected) isResult() {}
func (Fault) isResult()    {}
func (Redirect) isResult() {}

// PasswordVerifier checks local credentials. It returns
// common.ErrorUnauthorized for unknown users and wrong passwords.
type PasswordVerifier interface {
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
}

// IdentityLinker maps an external identity to a directory record.
type IdentityLinker interface {
	LinkExternal(ctx context.Context, externalID, provider string, profile json.RawMessage, displayName string) (*models.User, error)
}
