package resource

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/dmitrijs2005/passgate/internal/common"
	"github.com/dmitrijs2005/passgate/internal/logging"
	"github.com/dmitrijs2005/passgate/internal/server/auth"
	"github.com/dmitrijs2005/passgate/internal/server/config"
	"github.com/dmitrijs2005/passgate/internal/server/metrics"
	"github.com/dmitrijs2005/passgate/internal/server/models"
	"github.com/dmitrijs2005/passgate/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/passgate/internal/server/repositories/users"
	"github.com/dmitrijs2005/passgate/internal/server/services"
	"github.com/dmitrijs2005/passgate/internal/server/strategies"
)

const testSaltLen = 32

type fixture struct {
	res      *Resource
	dir      *users.MemoryDirectory
	sessions *sessions.MemoryStore
	metrics  *metrics.AuthMetrics
	verifier *countingVerifier
	linker   *countingLinker
}

type countingVerifier struct {
	inner strategies.PasswordVerifier
	calls atomic.Int32
}

func (c *countingVerifier) Authenticate(ctx context.Context, u, p string) (*models.User, error) {
	c.calls.Add(1)
	return c.inner.Authenticate(ctx, u, p)
}

type countingLinker struct {
	inner strategies.IdentityLinker
	calls atomic.Int32
}

func (c *countingLinker) LinkExternal(ctx context.Context, id, provider string, profile json.RawMessage, name string) (*models.User, error) {
	c.calls.Add(1)
	return c.inner.LinkExternal(ctx, id, provider, profile, name)
}

func newFixture(t *testing.T, cfg *config.Config, providers map[strategies.Name]strategies.Provider, client *http.Client) *fixture {
	t.Helper()
	cfg.SaltLen = testSaltLen

	dir := users.NewMemoryDirectory()
	store := sessions.NewMemoryStore(cfg.SessionTTL)
	m := metrics.NewAuthMetrics(prometheus.NewRegistry())
	v := &countingVerifier{inner: services.NewAccountService(dir, auth.HMACHasher{}, testSaltLen)}
	l := &countingLinker{inner: services.NewIdentityService(dir, logging.Discard())}

	res := New(cfg, Deps{
		Accounts:   v,
		Identities: l,
		Sessions:   store,
		Logger:     logging.Discard(),
		Metrics:    m,
		HTTPClient: client,
		Providers:  providers,
	})
	return &fixture{res: res, dir: dir, sessions: store, metrics: m, verifier: v, linker: l}
}

func localConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.AllowLocal = true
	return cfg
}

func (f *fixture) addLocalUser(t *testing.T, username, password string) *models.User {
	t.Helper()
	stored, err := auth.NewSaltedPassword(auth.HMACHasher{}, testSaltLen, password)
	require.NoError(t, err)
	u, err := f.dir.Insert(context.Background(), &models.User{Username: models.Str(username), Password: models.Str(stored)})
	require.NoError(t, err)
	return u
}

func (f *fixture) do(r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.res.ServeHTTP(rec, r)
	return rec
}

func sidCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == common.SessionCookieName {
			return c
		}
	}
	return nil
}

func TestLocalLogin_Success(t *testing.T) {
	f := newFixture(t, localConfig(), nil, nil)
	user := f.addLocalUser(t, "a", "pw")

	rec := f.do(httptest.NewRequest(http.MethodGet, "/auth/login?username=a&password=pw", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, user.ID, body.UID)
	assert.Equal(t, "/auth", body.Path)

	c := sidCookie(rec)
	require.NotNil(t, c)
	assert.Equal(t, body.ID, c.Value)
	assert.True(t, c.HttpOnly)

	sess, err := f.sessions.Get(context.Background(), c.Value)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"/auth": user.ID}, sess.Values)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Attempts.WithLabelValues("local", metrics.OutcomeSuccess)))
}

func TestLocalLogin_ReusesExistingSession(t *testing.T) {
	f := newFixture(t, localConfig(), nil, nil)
	user := f.addLocalUser(t, "a", "pw")

	existing := &models.Session{}
	existing.Set("other", "value")
	require.NoError(t, f.sessions.Save(context.Background(), existing))

	r := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("username=a&password=pw"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.AddCookie(&http.Cookie{Name: common.SessionCookieName, Value: existing.ID})

	rec := f.do(r)
	require.Equal(t, http.StatusOK, rec.Code)

	sess, err := f.sessions.Get(context.Background(), existing.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, sess.Values["/auth"])
	assert.Equal(t, "value", sess.Values["other"])
}

func TestLocalLogin_BadCredentials(t *testing.T) {
	f := newFixture(t, localConfig(), nil, nil)
	f.addLocalUser(t, "a", "pw")

	for _, q := range []string{"username=a&password=wrong", "username=ghost&password=pw", "username=a"} {
		rec := f.do(httptest.NewRequest(http.MethodGet, "/auth/login?"+q, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, q)
		assert.Equal(t, "bad credentials", rec.Body.String(), q)
		assert.Nil(t, sidCookie(rec), q)
	}
}

func TestDisabledModule_BadCredentials(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.AllowTwitter = false
	f := newFixture(t, cfg, nil, nil)

	for _, p := range []string{"/auth/twitter", "/auth/login?username=a&password=pw", "/auth", "/auth/unknown"} {
		rec := f.do(httptest.NewRequest(http.MethodGet, p, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, p)
		assert.Equal(t, "bad credentials", rec.Body.String(), p)
	}
	assert.Zero(t, f.verifier.calls.Load())
}

func TestAllowedButUnconfigured_BadCredentials(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.AllowTwitter = true // no baseURL or keys
	f := newFixture(t, cfg, nil, nil)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/auth/twitter", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, f.res.Strategies())
}

func TestLogout(t *testing.T) {
	cfg := localConfig()
	cfg.AllowTwitter = true
	cfg.AllowFacebook = true
	f := newFixture(t, cfg, nil, nil)
	f.addLocalUser(t, "a", "pw")

	login := f.do(httptest.NewRequest(http.MethodGet, "/auth/login?username=a&password=pw", nil))
	require.Equal(t, http.StatusOK, login.Code)
	sid := sidCookie(login)
	require.NotNil(t, sid)
	callsBefore := f.verifier.calls.Load()

	r := httptest.NewRequest(http.MethodGet, "/auth/logout?username=a&password=pw", nil)
	r.AddCookie(sid)
	rec := f.do(r)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	cleared := sidCookie(rec)
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)

	_, err := f.sessions.Get(context.Background(), sid.Value)
	assert.True(t, errors.Is(err, common.ErrorNotFound))
	assert.Equal(t, callsBefore, f.verifier.calls.Load())
	assert.Zero(t, f.linker.calls.Load())
}

func TestLogout_WithoutSessionAndWithoutStrategies(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	f := newFixture(t, cfg, nil, nil)

	rec := f.do(httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

type failingStore struct {
	sessions.Store
}

func (failingStore) Save(ctx context.Context, s *models.Session) error {
	return errors.New("redis down")
}

func (failingStore) Get(ctx context.Context, id string) (*models.Session, error) {
	return nil, common.ErrorNotFound
}

func TestLocalLogin_SessionStoreFailure(t *testing.T) {
	f := newFixture(t, localConfig(), nil, nil)
	f.addLocalUser(t, "a", "pw")
	f.res.sessions.store = failingStore{}

	rec := f.do(httptest.NewRequest(http.MethodGet, "/auth/login?username=a&password=pw", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, sidCookie(rec))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Attempts.WithLabelValues("local", metrics.OutcomeFault)))
}

// twitterServer fakes the token and profile endpoints; the display name it
// returns can be changed between logins.
func twitterServer(t *testing.T, name *atomic.Value) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer"}`))
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		body, _ := json.Marshal(map[string]any{"data": map[string]string{"id": "42", "name": name.Load().(string)}})
		_, _ = w.Write(body)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func twitterLogin(t *testing.T, f *fixture) *httptest.ResponseRecorder {
	t.Helper()

	first := f.do(httptest.NewRequest(http.MethodGet, "/auth/twitter", nil))
	require.Equal(t, http.StatusFound, first.Code)
	loc, err := url.Parse(first.Header().Get("Location"))
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/auth/twitter/callback?code=c&state="+loc.Query().Get("state"), nil)
	for _, c := range first.Result().Cookies() {
		r.AddCookie(c)
	}
	return f.do(r)
}

func TestTwitterLogin_CreatesThenUpdates(t *testing.T) {
	var name atomic.Value
	name.Store("Alice")
	srv := twitterServer(t, &name)

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.AllowTwitter = true
	cfg.BaseURL = "https://example.com"
	cfg.TwitterConsumerKey = "k"
	cfg.TwitterConsumerSecret = "s"

	providers := map[strategies.Name]strategies.Provider{
		strategies.Twitter: {
			Name:       strategies.Twitter,
			Endpoint:   oauth2.Endpoint{AuthURL: srv.URL + "/authorize", TokenURL: srv.URL + "/token", AuthStyle: oauth2.AuthStyleInParams},
			ProfileURL: srv.URL + "/me",
			PKCE:       true,
			Decode:     strategies.TwitterProvider().Decode,
		},
	}
	f := newFixture(t, cfg, providers, srv.Client())

	rec := twitterLogin(t, f)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, f.dir.Len())

	u, err := f.dir.FindOne(context.Background(), users.Query{users.FieldSocialAccountID: "42"})
	require.NoError(t, err)
	assert.Equal(t, "twitter", models.Deref(u.SocialAccount))
	assert.Equal(t, "Alice", models.Deref(u.Name))

	name.Store("Alice B.")
	rec = twitterLogin(t, f)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, f.dir.Len())

	u2, err := f.dir.FindOne(context.Background(), users.Query{users.FieldSocialAccountID: "42"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, u2.ID)
	assert.Equal(t, "Alice B.", models.Deref(u2.Name))

	var body sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, u.ID, body.UID)
}

func TestTwitterLogin_ProviderDeniedIsBadCredentials(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.AllowTwitter = true
	cfg.BaseURL = "https://example.com"
	cfg.TwitterConsumerKey = "k"
	cfg.TwitterConsumerSecret = "s"
	f := newFixture(t, cfg, nil, nil)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/auth/twitter/callback?error=access_denied", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "bad credentials", rec.Body.String())
	assert.Zero(t, f.linker.calls.Load())
}

func TestNew_CustomMountPath(t *testing.T) {
	cfg := localConfig()
	cfg.MountPath = "/gate/"
	f := newFixture(t, cfg, nil, nil)
	user := f.addLocalUser(t, "a", "pw")

	assert.Equal(t, "/gate", f.res.MountPath())
	rec := f.do(httptest.NewRequest(http.MethodGet, "/gate/login?username=a&password=pw", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	sess, err := f.sessions.Get(context.Background(), sidCookie(rec).Value)
	require.NoError(t, err)
	assert.Equal(t, user.ID, sess.Values["/gate"])
}
