package shared

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickethub/tickethub-web/internal/apiclient"
)

func newTestManager(t *testing.T) *SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "test_session", time.Hour, false)
}

func TestSessionRoundTrip(t *testing.T) {
	sm := newTestManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetAuth(SessionAuth{AccessToken: "tok", Identity: []byte(`{"user_id":"1"}`)})
	sess.AddFlash(FlashMessage{Kind: "success", Message: "hola"})
	res := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, res, nil, sess))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sess.ID})
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, loaded.ID)
	assert.True(t, loaded.Authenticated())
	assert.Equal(t, "tok", loaded.Auth().AccessToken)
	flash := loaded.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "hola", flash.Message)
	assert.Nil(t, loaded.PopFlash())
}

func TestSessionUnknownCookieGetsFreshID(t *testing.T) {
	sm := newTestManager(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: "attacker-chosen"})

	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, "attacker-chosen", sess.ID)
}

func TestSessionRegenerateDropsOldID(t *testing.T) {
	sm := newTestManager(t)
	ctx := context.Background()
	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), nil, sess))
	oldID := sess.ID

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: oldID})
	sess, err = sm.Load(ctx, req)
	require.NoError(t, err)
	sm.Regenerate(sess)
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), nil, sess))
	assert.NotEqual(t, oldID, sess.ID)

	exists, err := sm.client.Exists(ctx, sm.redisKey(oldID)).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}

func TestSessionDestroyExpiresCookie(t *testing.T) {
	sm := newTestManager(t)
	ctx := context.Background()
	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sm.Destroy(sess)
	res := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, res, nil, sess))
	assert.Contains(t, res.Header().Get("Set-Cookie"), "Max-Age=0")
}

func TestCSRFMiddleware(t *testing.T) {
	csrf := NewCSRFManager("secret")
	sess := &Session{ID: "s1", values: map[string]string{}}
	token, err := csrf.EnsureToken(sess)
	require.NoError(t, err)

	handler := csrf.Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(value string) int {
		form := url.Values{CSRFFormField: {value}}
		req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req = req.WithContext(ContextWithSession(req.Context(), sess))
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		return res.Code
	}

	assert.Equal(t, http.StatusNoContent, send(token))
	assert.Equal(t, http.StatusForbidden, send("forged"))
	assert.Equal(t, http.StatusForbidden, send(""))

	get := httptest.NewRecorder()
	handler.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/events", nil))
	assert.Equal(t, http.StatusNoContent, get.Code)
}

func TestCSRFRotate(t *testing.T) {
	csrf := NewCSRFManager("secret")
	sess := &Session{ID: "s1", values: map[string]string{}}
	first, _ := csrf.EnsureToken(sess)
	csrf.Rotate(sess)
	assert.NotEqual(t, first, sess.Get(CSRFSessionKey))
	assert.ErrorIs(t, csrf.VerifyToken(sess, first), ErrCSRFTokenMismatch)
	assert.ErrorIs(t, csrf.VerifyToken(nil, first), ErrCSRFTokenMissing)
}

func TestUserSafeMessage(t *testing.T) {
	assert.Equal(t, "", UserSafeMessage(nil))
	assert.Equal(t, "Ticket inválido", UserSafeMessage(&apiclient.Error{StatusCode: 400, Message: "Ticket inválido"}))
	assert.Equal(t, "Tu sesión expiró. Vuelve a iniciar sesión.", UserSafeMessage(&apiclient.Error{StatusCode: 401, Message: "jwt expired"}))
	assert.Equal(t, genericMessage, UserSafeMessage(&apiclient.Error{StatusCode: 500, Message: "stack trace"}))
	assert.Equal(t, genericMessage, UserSafeMessage(errors.New("dial tcp")))
	assert.Equal(t, "Correo o contraseña incorrectos", UserSafeMessage(ErrInvalidCredentials))
}

func TestNewPager(t *testing.T) {
	p := NewPager(1, 3, 5)
	assert.Equal(t, 0, p.Prev)
	assert.Equal(t, 2, p.Next)
	assert.Equal(t, []int{1, 2, 3}, p.Pages)

	p = NewPager(10, 20, 5)
	assert.Equal(t, []int{8, 9, 10, 11, 12}, p.Pages)
	assert.Equal(t, 9, p.Prev)

	p = NewPager(99, 20, 5)
	assert.Equal(t, 20, p.Page)
	assert.Equal(t, []int{16, 17, 18, 19, 20}, p.Pages)
	assert.Equal(t, 0, p.Next)
}
