package resource

import (
	"context"
	"slices"
	"strings"

	"github.com/dmitrijs2005/passgate/internal/logging"
	"github.com/dmitrijs2005/passgate/internal/server/config"
	"github.com/dmitrijs2005/passgate/internal/server/strategies"
)

// LogoutPath is the only mount-relative path that ends a session.
const LogoutPath = "/logout"

// Route is the dispatch decision for one request.
type Route struct {
	Logout  bool
	Module  strategies.Name
	Options strategies.Options
}

// HasModule reports whether a strategy was selected.
func (r Route) HasModule() bool {
	return r.Module != ""
}

// Dispatcher maps mount-relative paths to strategies. It holds a snapshot of
// the allow flags and the parsed Facebook scope.
type Dispatcher struct {
	allowLocal    bool
	allowTwitter  bool
	allowFacebook bool
	scope         []string
}

// NewDispatcher snapshots cfg. An unparsable facebookScope is logged and
// ignored.
func NewDispatcher(cfg *config.Config, logger logging.Logger) *Dispatcher {
	d := &Dispatcher{
		allowLocal:    cfg.AllowLocal,
		allowTwitter:  cfg.AllowTwitter,
		allowFacebook: cfg.AllowFacebook,
	}

	if cfg.AllowFacebook {
		scope, err := config.ParseScope(cfg.FacebookScope)
		if err != nil {
			logger.Warn(context.Background(), "error parsing facebookScope", "value", cfg.FacebookScope, "error", err)
		} else {
			d.scope = scope
		}
	}
	return d
}

// Resolve selects the route for a mount-relative path. Only the first
// non-empty segment matters, so /twitter and /twitter/callback both select
// the twitter strategy.
func (d *Dispatcher) Resolve(path string) Route {
	if path == LogoutPath {
		return Route{Logout: true}
	}

	var first string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			first = seg
			break
		}
	}

	opts := strategies.Options{Session: false}
	switch first {
	case "login":
		if d.allowLocal {
			return Route{Module: strategies.Local, Options: opts}
		}
	case "twitter":
		if d.allowTwitter {
			return Route{Module: strategies.Twitter, Options: opts}
		}
	case "facebook":
		if d.allowFacebook {
			opts.Scope = slices.Clone(d.scope)
			return Route{Module: strategies.Facebook, Options: opts}
		}
	}
	return Route{}
}
