package strategies

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/dmitrijs2005/passgate/internal/common"
	"github.com/dmitrijs2005/passgate/internal/logging"
)

const maxCredentialsBody = 1 << 20

// Rejection reasons of the local strategy.
const (
	ReasonMissingCredentials = "Missing credentials"
	ReasonInvalidPassword    = "Invalid password"
)

type localStrategy struct {
	verifier PasswordVerifier
	logger   logging.Logger
}

func newLocalStrategy(v PasswordVerifier, logger logging.Logger) *localStrategy {
	return &localStrategy{verifier: v, logger: logger}
}

func (s *localStrategy) Name() Name { return Local }

func (s *localStrategy) Authenticate(w http.ResponseWriter, r *http.Request, opts Options) Result {
	username, password, err := readCredentials(r)
	if err != nil {
		s.logger.Debug(r.Context(), "unreadable credentials", "error", err)
		return Rejected{Reason: ReasonMissingCredentials}
	}
	if username == "" || password == "" {
		return Rejected{Reason: ReasonMissingCredentials}
	}

	user, err := s.verifier.Authenticate(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			return Rejected{Reason: ReasonInvalidPassword}
		}
		return Fault{Err: err}
	}
	return Success{User: user}
}

// readCredentials takes username and password from a JSON body, a form body
// or the query string, in that order of preference.
func readCredentials(r *http.Request) (string, string, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" && r.Body != nil {
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		err := json.NewDecoder(io.LimitReader(r.Body, maxCredentialsBody)).Decode(&body)
		if err != nil && !errors.Is(err, io.EOF) {
			return "", "", err
		}
		if body.Username != "" || body.Password != "" {
			return body.Username, body.Password, nil
		}
		q := r.URL.Query()
		return q.Get("username"), q.Get("password"), nil
	}

	if err := r.ParseForm(); err != nil {
		return "", "", err
	}
	return r.Form.Get("username"), r.Form.Get("password"), nil
}
