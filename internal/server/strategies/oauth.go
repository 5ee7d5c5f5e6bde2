package strategies

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/dmitrijs2005/passgate/internal/common"
	"github.com/dmitrijs2005/passgate/internal/logging"
	"github.com/dmitrijs2005/passgate/internal/server/auth"
)

// stateTTL bounds how long a user may spend at the provider.
const stateTTL = 10 * time.Minute

const maxProfileBody = 1 << 20

// Rejection reasons of the OAuth strategies.
const (
	ReasonInvalidState    = "Invalid state"
	ReasonExchangeRefused = "Authorization code refused"
)

// oauthStrategy runs the authorization code flow. A request without a code
// starts the flow; the provider's callback (code and state) completes it.
type oauthStrategy struct {
	provider   Provider
	conf       oauth2.Config
	linker     IdentityLinker
	client     *http.Client
	secret     []byte
	cookiePath string
	secure     bool
	logger     logging.Logger
}

func (s *oauthStrategy) Name() Name { return s.provider.Name }

func (s *oauthStrategy) stateCookieName() string {
	return "passgate_state_" + string(s.provider.Name)
}

func (s *oauthStrategy) Authenticate(w http.ResponseWriter, r *http.Request, opts Options) Result {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		s.clearStateCookie(w)
		reason := q.Get("error_description")
		if reason == "" {
			reason = e
		}
		return Rejected{Reason: reason}
	}
	if q.Get("code") == "" {
		return s.begin(w, opts)
	}
	return s.complete(w, r)
}

func (s *oauthStrategy) begin(w http.ResponseWriter, opts Options) Result {
	nonce, err := common.MakeRandHexString(16)
	if err != nil {
		return Fault{Err: err}
	}

	var verifier string
	var authOpts []oauth2.AuthCodeOption
	if s.provider.PKCE {
		verifier = oauth2.GenerateVerifier()
		authOpts = append(authOpts, oauth2.S256ChallengeOption(verifier))
	}

	token, err := auth.GenerateStateToken(string(s.provider.Name), nonce, verifier, s.secret, stateTTL)
	if err != nil {
		return Fault{Err: fmt.Errorf("state token: %w", err)}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.stateCookieName(),
		Value:    token,
		Path:     s.cookiePath,
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})

	conf := s.conf
	if len(opts.Scope) > 0 {
		conf.Scopes = opts.Scope
	}
	return Redirect{URL: conf.AuthCodeURL(nonce, authOpts...)}
}

func (s *oauthStrategy) complete(w http.ResponseWriter, r *http.Request) Result {
	ctx := r.Context()

	c, err := r.Cookie(s.stateCookieName())
	if err != nil {
		return Rejected{Reason: ReasonInvalidState}
	}
	s.clearStateCookie(w)

	claims, err := auth.ParseStateToken(c.Value, s.secret)
	if err != nil {
		s.logger.Debug(ctx, "bad state cookie", "error", err)
		return Rejected{Reason: ReasonInvalidState}
	}
	state := r.URL.Query().Get("state")
	if claims.Provider != string(s.provider.Name) || subtle.ConstantTimeCompare([]byte(claims.Nonce), []byte(state)) != 1 {
		s.logger.Debug(ctx, "state mismatch", "error", common.ErrStateMismatch)
		return Rejected{Reason: ReasonInvalidState}
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)

	var exOpts []oauth2.AuthCodeOption
	if s.provider.PKCE {
		exOpts = append(exOpts, oauth2.VerifierOption(claims.Verifier))
	}
	tok, err := s.conf.Exchange(ctx, r.URL.Query().Get("code"), exOpts...)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil && re.Response.StatusCode < http.StatusInternalServerError {
			s.logger.Info(ctx, "provider refused code", "provider", s.provider.Name, "error", err)
			return Rejected{Reason: ReasonExchangeRefused}
		}
		return Fault{Err: fmt.Errorf("token exchange: %w", err)}
	}

	profile, err := s.fetchProfile(ctx, tok)
	if err != nil {
		return Fault{Err: err}
	}

	user, err := s.linker.LinkExternal(r.Context(), profile.ID, string(s.provider.Name), profile.Raw, profile.DisplayName)
	if err != nil {
		return Fault{Err: err}
	}
	return Success{User: user}
}

func (s *oauthStrategy) fetchProfile(ctx context.Context, tok *oauth2.Token) (Profile, error) {
	client := s.conf.Client(ctx, tok)
	client.Timeout = s.client.Timeout

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.provider.ProfileURL, nil)
	if err != nil {
		return Profile{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("profile request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("profile request: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBody))
	if err != nil {
		return Profile{}, fmt.Errorf("profile read: %w", err)
	}

	p, err := s.provider.Decode(body)
	if err != nil {
		return Profile{}, fmt.Errorf("profile decode: %w", err)
	}
	return p, nil
}

func (s *oauthStrategy) clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.stateCookieName(),
		Value:    "",
		Path:     s.cookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
