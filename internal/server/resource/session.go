package resource

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/passgate/internal/common"
	"github.com/dmitrijs2005/passgate/internal/server/models"
	"github.com/dmitrijs2005/passgate/internal/server/repositories/sessions"
)

// sessionCookies binds server-side sessions to the sid cookie.
type sessionCookies struct {
	store  sessions.Store
	ttl    time.Duration
	secure bool
}

// load returns the session named by the request's sid cookie, or a fresh
// unsaved session when there is none or it has expired.
func (c sessionCookies) load(ctx context.Context, r *http.Request) (*models.Session, error) {
	cookie, err := r.Cookie(common.SessionCookieName)
	if err != nil || cookie.Value == "" {
		return &models.Session{}, nil
	}

	s, err := c.store.Get(ctx, cookie.Value)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return &models.Session{}, nil
		}
		return nil, err
	}
	return s, nil
}

func (c sessionCookies) write(w http.ResponseWriter, s *models.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    s.ID,
		Path:     "/",
		MaxAge:   int(c.ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c sessionCookies) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
