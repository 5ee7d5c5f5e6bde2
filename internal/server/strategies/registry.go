package strategies

import (
	"context"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"time"

	"golang.org/x/oauth2"

	"github.com/dmitrijs2005/passgate/internal/common"
	"github.com/dmitrijs2005/passgate/internal/logging"
	"github.com/dmitrijs2005/passgate/internal/server/config"
)

const defaultProviderTimeout = 10 * time.Second

// Deps are the collaborators strategies are built with.
type Deps struct {
	Accounts   PasswordVerifier
	Identities IdentityLinker
	Logger     logging.Logger
	// HTTPClient is used for provider calls. Defaults to a client with the
	// configured ProviderTimeout.
	HTTPClient *http.Client
	// StateSecret signs OAuth state cookies. Random per registry when empty.
	StateSecret  []byte
	CookieSecure bool
	// Providers overrides the built-in provider definitions by name.
	Providers map[Name]Provider
}

// Registry holds the strategies enabled by configuration. It is built once
// and never modified.
type Registry struct {
	strategies map[Name]Strategy
}

// NewRegistry builds the enabled strategies from a configuration snapshot.
// A strategy whose settings are incomplete is left out without error.
func NewRegistry(cfg *config.Config, mountPath string, deps Deps) *Registry {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	ctx := context.Background()

	client := deps.HTTPClient
	if client == nil {
		timeout := cfg.ProviderTimeout
		if timeout <= 0 {
			timeout = defaultProviderTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	secret := deps.StateSecret
	if len(secret) == 0 {
		secret = common.GenerateRandByteArray(32)
	}

	provider := func(n Name, def func() Provider) Provider {
		if p, ok := deps.Providers[n]; ok {
			return p
		}
		return def()
	}

	newOAuth := func(p Provider, clientID, clientSecret string) Strategy {
		cb, err := callbackURL(cfg.BaseURL, mountPath, p.Name)
		if err != nil {
			logger.Warn(ctx, "strategy disabled: bad baseURL", "strategy", p.Name, "error", err)
			return nil
		}
		return &oauthStrategy{
			provider: p,
			conf: oauth2.Config{
				ClientID:     clientID,
				ClientSecret: clientSecret,
				Endpoint:     p.Endpoint,
				RedirectURL:  cb,
				Scopes:       p.Scopes,
			},
			linker:     deps.Identities,
			client:     client,
			secret:     secret,
			cookiePath: mountPath,
			secure:     deps.CookieSecure,
			logger:     logger.With("strategy", string(p.Name)),
		}
	}

	m := make(map[Name]Strategy)

	if cfg.AllowLocal {
		if deps.Accounts != nil {
			m[Local] = newLocalStrategy(deps.Accounts, logger.With("strategy", string(Local)))
		} else {
			logger.Warn(ctx, "strategy disabled: no account store", "strategy", Local)
		}
	}

	if cfg.AllowTwitter && cfg.BaseURL != "" && cfg.TwitterConsumerKey != "" && cfg.TwitterConsumerSecret != "" && deps.Identities != nil {
		if s := newOAuth(provider(Twitter, TwitterProvider), cfg.TwitterConsumerKey, cfg.TwitterConsumerSecret); s != nil {
			m[Twitter] = s
		}
	}

	if cfg.AllowFacebook && cfg.BaseURL != "" && cfg.FacebookAppID != "" && cfg.FacebookAppSecret != "" && deps.Identities != nil {
		if s := newOAuth(provider(Facebook, FacebookProvider), cfg.FacebookAppID, cfg.FacebookAppSecret); s != nil {
			m[Facebook] = s
		}
	}

	return &Registry{strategies: m}
}

// Lookup returns the strategy registered under name.
func (r *Registry) Lookup(name Name) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// Names lists the registered strategies in sorted order.
func (r *Registry) Names() []Name {
	return slices.Sorted(maps.Keys(r.strategies))
}

// callbackURL resolves {mountPath}/{name}/callback against baseURL.
func callbackURL(baseURL, mountPath string, name Name) (string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	ref := &url.URL{Path: mountPath + "/" + string(name) + "/callback"}
	return base.ResolveReference(ref).String(), nil
}
