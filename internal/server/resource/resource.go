// Package resource is the HTTP face of the gateway: it dispatches requests
// under the mount path to a strategy and turns a verified identity into a
// session.
package resource

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/passgate/internal/common"
	"github.com/dmitrijs2005/passgate/internal/logging"
	"github.com/dmitrijs2005/passgate/internal/server/config"
	"github.com/dmitrijs2005/passgate/internal/server/metrics"
	"github.com/dmitrijs2005/passgate/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/passgate/internal/server/strategies"
)

// Deps are the collaborators a Resource is built with.
type Deps struct {
	Accounts   strategies.PasswordVerifier
	Identities strategies.IdentityLinker
	Sessions   sessions.Store
	Logger     logging.Logger
	Metrics    *metrics.AuthMetrics
	// HTTPClient and Providers are passed through to the strategies.
	HTTPClient *http.Client
	Providers  map[strategies.Name]strategies.Provider
}

// Resource authenticates requests under its mount path. It is safe for
// concurrent use; all state is built in New.
type Resource struct {
	mountPath  string
	dispatcher *Dispatcher
	registry   *strategies.Registry
	sessions   sessionCookies
	logger     logging.Logger
	metrics    *metrics.AuthMetrics
}

// sessionResponse is the body returned after a successful login.
type sessionResponse struct {
	ID   string `json:"id"`
	Path string `json:"path"`
	UID  string `json:"uid"`
}

// New builds the dispatcher and strategy registry from cfg.
func New(cfg *config.Config, deps Deps) *Resource {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.With("module", "resource")

	mountPath := strings.TrimSuffix(cfg.MountPath, "/")
	if mountPath == "" {
		mountPath = common.DefaultMountPath
	}

	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = sessions.DefaultTTL
	}

	registry := strategies.NewRegistry(cfg, mountPath, strategies.Deps{
		Accounts:     deps.Accounts,
		Identities:   deps.Identities,
		Logger:       logger,
		HTTPClient:   deps.HTTPClient,
		StateSecret:  []byte(cfg.StateSecret),
		CookieSecure: cfg.CookieSecure,
		Providers:    deps.Providers,
	})

	return &Resource{
		mountPath:  mountPath,
		dispatcher: NewDispatcher(cfg, logger),
		registry:   registry,
		sessions:   sessionCookies{store: deps.Sessions, ttl: ttl, secure: cfg.CookieSecure},
		logger:     logger,
		metrics:    deps.Metrics,
	}
}

// MountPath is the prefix the resource expects to be mounted under.
func (res *Resource) MountPath() string {
	return res.mountPath
}

// Strategies lists the registered strategies.
func (res *Resource) Strategies() []strategies.Name {
	return res.registry.Names()
}

func (res *Resource) relativePath(p string) string {
	rel := strings.TrimPrefix(p, res.mountPath)
	if rel == "" {
		return "/"
	}
	return rel
}

func (res *Resource) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	route := res.dispatcher.Resolve(res.relativePath(r.URL.Path))

	if route.Logout {
		res.logout(w, r)
		return
	}

	if !route.HasModule() {
		res.metrics.RecordAttempt("", metrics.OutcomeNoModule)
		res.badCredentials(w)
		return
	}

	strategy, ok := res.registry.Lookup(route.Module)
	if !ok {
		res.logger.Warn(ctx, "strategy not configured", "strategy", route.Module)
		res.metrics.RecordAttempt(string(route.Module), metrics.OutcomeNoModule)
		res.badCredentials(w)
		return
	}

	start := time.Now()
	result := strategy.Authenticate(w, r, route.Options)
	res.metrics.ObserveDuration(string(route.Module), time.Since(start))

	switch v := result.(type) {
	case strategies.Redirect:
		res.metrics.RecordAttempt(string(route.Module), metrics.OutcomeRedirect)
		http.Redirect(w, r, v.URL, http.StatusFound)
	case strategies.Success:
		if v.User == nil {
			res.logger.Error(ctx, "strategy reported success without user", "strategy", route.Module)
			res.metrics.RecordAttempt(string(route.Module), metrics.OutcomeFault)
			res.badCredentials(w)
			return
		}
		res.login(w, r, route.Module, v)
	case strategies.Rejected:
		res.logger.Info(ctx, "authentication rejected", "strategy", route.Module, "user", nil, "info", v.Reason)
		res.metrics.RecordAttempt(string(route.Module), metrics.OutcomeRejected)
		res.badCredentials(w)
	case strategies.Fault:
		res.logger.Error(ctx, "authentication failed", "strategy", route.Module, "error", v.Err, "user", nil, "info", nil)
		res.metrics.RecordAttempt(string(route.Module), metrics.OutcomeFault)
		res.badCredentials(w)
	default:
		res.logger.Error(ctx, "unknown strategy result", "strategy", route.Module)
		res.metrics.RecordAttempt(string(route.Module), metrics.OutcomeFault)
		res.badCredentials(w)
	}
}

func (res *Resource) login(w http.ResponseWriter, r *http.Request, module strategies.Name, ok strategies.Success) {
	ctx := r.Context()

	sess, err := res.sessions.load(ctx, r)
	if err != nil {
		res.logger.Error(ctx, "session load failed", "strategy", module, "error", err, "user", ok.User.ID)
		res.metrics.RecordAttempt(string(module), metrics.OutcomeFault)
		res.badCredentials(w)
		return
	}

	sess.Set(res.mountPath, ok.User.ID)
	if err := res.sessions.store.Save(ctx, sess); err != nil {
		res.logger.Error(ctx, "session save failed", "strategy", module, "error", err, "user", ok.User.ID)
		res.metrics.RecordAttempt(string(module), metrics.OutcomeFault)
		res.badCredentials(w)
		return
	}

	res.sessions.write(w, sess)
	res.metrics.RecordAttempt(string(module), metrics.OutcomeSuccess)
	res.logger.Info(ctx, "user logged in", "strategy", module, "user", ok.User.ID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(sessionResponse{ID: sess.ID, Path: res.mountPath, UID: ok.User.ID})
}

// logout clears the cookie and drops the server-side session. It succeeds
// whether or not a session existed.
func (res *Resource) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res.sessions.clear(w)

	if c, err := r.Cookie(common.SessionCookieName); err == nil && c.Value != "" {
		if err := res.sessions.store.Delete(ctx, c.Value); err != nil {
			res.logger.Error(ctx, "session delete failed", "error", err)
		}
	}

	res.metrics.RecordAttempt("", metrics.OutcomeLogout)
	w.WriteHeader(http.StatusNoContent)
}

func (res *Resource) badCredentials(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(common.BadCredentialsMessage))
}
