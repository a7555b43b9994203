package app

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickethub/tickethub-web/internal/access"
	"github.com/tickethub/tickethub-web/internal/apiclient"
	"github.com/tickethub/tickethub-web/internal/auth"
	"github.com/tickethub/tickethub-web/internal/shared"
	_ "github.com/tickethub/tickethub-web/internal/testing/guard"
	"github.com/tickethub/tickethub-web/internal/tickets"
	"github.com/tickethub/tickethub-web/internal/view"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CSRF_SECRET", "csrf")
	t.Setenv("API_BASE_URL", "http://api.test")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 12, cfg.EventsPageSize)
	assert.Equal(t, 2*time.Minute, cfg.EventsCacheTTL)
	assert.Equal(t, 120, cfg.RateLimit)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "America/Bogota", cfg.Location().String())
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	t.Setenv("CSRF_SECRET", "")
	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("CSRF_SECRET", "csrf")
	t.Setenv("EVENTS_PAGE_SIZE", "0")
	_, err = LoadConfig()
	assert.Error(t, err)
}

func TestConfigLocationFallsBackToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, (&Config{AppLocation: "Nowhere/Invalid"}).Location())
	assert.Equal(t, time.UTC, (*Config)(nil).Location())
}

func TestLoggerJSONCarriesAppAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{AppEnv: "production", LogFormat: "json"}, &buf)
	logger.Debug("hidden")
	logger.Info("hello")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "tickethub-web", entry["app"])
	assert.Equal(t, "production", entry["env"])
}

func TestRecoverRendersFallback(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := Recover(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/events", nil))
	assert.Equal(t, http.StatusInternalServerError, res.Code)
	assert.Contains(t, res.Body.String(), "Algo salió mal")
	assert.Equal(t, "no-store", res.Header().Get("Cache-Control"))
}

func TestAPITokenAttachesBearer(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = apiclient.TokenFromContext(r.Context())
	})

	sess := &shared.Session{ID: "s1"}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	APIToken(next).ServeHTTP(httptest.NewRecorder(), req.WithContext(shared.ContextWithSession(req.Context(), sess)))
	assert.Empty(t, seen)

	sess.SetAuth(shared.SessionAuth{AccessToken: "tok"})
	APIToken(next).ServeHTTP(httptest.NewRecorder(), req.WithContext(shared.ContextWithSession(req.Context(), sess)))
	assert.Equal(t, "tok", seen)
}

type dropRecorder struct{ keys []string }

func (d *dropRecorder) Drop(key string) { d.keys = append(d.keys, key) }

func TestStoreReaperDropsByKey(t *testing.T) {
	bySession, byUser := &dropRecorder{}, &dropRecorder{}
	reaper := StoreReaper{BySession: []Dropper{bySession}, ByUser: []Dropper{byUser}}

	reaper.SessionEnded("s1", nil)
	reaper.SessionEnded("s2", access.NewIdentity("u1", []string{"BUYER"}, "", nil))

	assert.Equal(t, []string{"s1", "s2"}, bySession.keys)
	assert.Equal(t, []string{"u1"}, byUser.keys)
}

// fakeBackend answers the API calls the router test drives.
type fakeBackend struct {
	token      string
	authSeen   string
	validCalls int
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/auth/login":
		_ = json.NewEncoder(w).Encode(map[string]any{
			"accessToken": f.token,
			"user":        map[string]any{"id": "staff-1", "email": "staff@tickethub.test", "name": "Luz", "roles": []string{"STAFF"}},
		})
	case strings.HasPrefix(r.URL.Path, "/tickets/validate/"):
		f.validCalls++
		f.authSeen = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "t-1", "ticketCode": "OK-1", "price": 80, "seat": "B2", "status": "NOT_REDEEMED"})
	default:
		http.NotFound(w, r)
	}
}

type browser struct {
	t      *testing.T
	router http.Handler
	cookie *http.Cookie
}

func (b *browser) do(method, path string, form url.Values, header http.Header) *httptest.ResponseRecorder {
	b.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	res := httptest.NewRecorder()
	b.router.ServeHTTP(res, req)
	for _, c := range res.Result().Cookies() {
		if c.Name == "tickethub_session" {
			b.cookie = c
		}
	}
	return res
}

var csrfMeta = regexp.MustCompile(`<meta name="csrf-token" content="([^"]+)">`)

func (b *browser) csrfFrom(path string) string {
	b.t.Helper()
	res := b.do(http.MethodGet, path, nil, nil)
	require.Equal(b.t, http.StatusOK, res.Code)
	match := csrfMeta.FindStringSubmatch(res.Body.String())
	require.Len(b.t, match, 2)
	return match[1]
}

func newTestRouter(t *testing.T) (*browser, *fakeBackend) {
	t.Helper()
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "staff-1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		Roles:            []string{"STAFF"},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("api"))
	require.NoError(t, err)

	backend := &fakeBackend{token: signed}
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	templates, err := view.NewEngine()
	require.NoError(t, err)
	sessions := shared.NewSessionManager(redisClient, "tickethub_session", time.Hour, false)
	csrf := shared.NewCSRFManager("secret")
	api := apiclient.New(server.URL, time.Second)
	authService := auth.NewService(api)
	guard := access.Middleware{Resolver: auth.NewResolver(authService, logger)}

	router := NewRouter(RouterParams{
		Logger:         logger,
		Config:         &Config{AppEnv: "test", RateLimit: 1000, AppRequestTimeout: 5 * time.Second},
		Templates:      templates,
		SessionManager: sessions,
		CSRFManager:    csrf,
		Guard:          guard,
		AuthHandler:    auth.NewHandler(logger, authService, templates, sessions, csrf, guard),
		TicketsHandler: tickets.NewHandler(logger, tickets.NewService(api), templates, csrf, guard),
	})
	return &browser{t: t, router: router}, backend
}

func TestRouterHealthAndStatic(t *testing.T) {
	b, _ := newTestRouter(t)

	res := b.do(http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"status":"ok"}`, res.Body.String())

	res = b.do(http.MethodGet, "/static/css/app.css", nil, nil)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "public, max-age=3600", res.Header().Get("Cache-Control"))
}

func TestRouterAnonymousFlow(t *testing.T) {
	b, _ := newTestRouter(t)

	res := b.do(http.MethodGet, "/", nil, nil)
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/events", res.Header().Get("Location"))

	res = b.do(http.MethodGet, "/tickets/validate", nil, nil)
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/auth/login", res.Header().Get("Location"))

	res = b.do(http.MethodPost, "/auth/login", url.Values{"email": {"staff@tickethub.test"}, "password": {"correct-horse"}}, nil)
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestRouterLoginForwardsToken(t *testing.T) {
	b, backend := newTestRouter(t)

	token := b.csrfFrom("/auth/login")
	res := b.do(http.MethodPost, "/auth/login", url.Values{
		"email":      {"staff@tickethub.test"},
		"password":   {"correct-horse"},
		"csrf_token": {token},
	}, nil)
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/tickets/validate", res.Header().Get("Location"))

	res = b.do(http.MethodGet, "/", nil, nil)
	assert.Equal(t, "/tickets/validate", res.Header().Get("Location"))

	// The token was rotated at login, so the old one no longer passes.
	res = b.do(http.MethodPost, "/api/tickets/validate/OK-1", nil, http.Header{shared.CSRFHeader: {token}})
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Zero(t, backend.validCalls)

	fresh := b.csrfFrom("/tickets/validate")
	res = b.do(http.MethodPost, "/api/tickets/validate/OK-1", nil, http.Header{shared.CSRFHeader: {fresh}})
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "Bearer "+backend.token, backend.authSeen)
	assert.Contains(t, res.Body.String(), `"seat":"B2"`)
}
