package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickethub/tickethub-web/internal/access"
	"github.com/tickethub/tickethub-web/internal/apiclient"
	"github.com/tickethub/tickethub-web/internal/shared"
	"github.com/tickethub/tickethub-web/internal/store"
	"github.com/tickethub/tickethub-web/internal/view"
)

type staticResolver struct{ identity *access.Identity }

func (s staticResolver) ResolveIdentity(*http.Request) access.IdentityState {
	return access.Resolved(s.identity)
}

type recordingAPI struct {
	created []Input
}

func (a *recordingAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.Method {
	case http.MethodPost:
		var in Input
		_ = json.NewDecoder(r.Body).Decode(&in)
		if strings.HasSuffix(in.Email, "@taken.test") {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"statusCode":400,"message":["email already registered"]}`))
			return
		}
		a.created = append(a.created, in)
		_ = json.NewEncoder(w).Encode(User{ID: "u-new", Email: in.Email, Name: in.Name, Roles: []string{in.Role}})
	default:
		_, _ = w.Write([]byte(`{"data":[{"id":"u1","email":"ana@tickethub.test","name":"Ana","roles":["BUYER"]}],"meta":{"page":1,"totalPages":1,"total":1}}`))
	}
}

func newRouter(t *testing.T, api *recordingAPI, sess *shared.Session) http.Handler {
	t.Helper()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)
	svc := NewService(apiclient.New(server.URL, time.Second))
	stores := store.NewRegistry(time.Hour, func(context.Context, string) (*store.Collection[User, struct{}], error) {
		return NewStore(svc, nil), nil
	})
	templates, err := view.NewEngine()
	require.NoError(t, err)
	admin := access.NewIdentity("a1", []string{"ADMINISTRATOR"}, "", nil)
	h := NewHandler(nil, svc, stores, templates, nil, access.Middleware{Resolver: staticResolver{admin}})

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
		})
	})
	r.Route("/admin/users", h.MountRoutes)
	return r
}

func submit(r http.Handler, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/admin/users", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)
	return res
}

func TestUserPages(t *testing.T) {
	r := newRouter(t, &recordingAPI{}, &shared.Session{ID: "s1"})

	res := httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/admin/users", nil))
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "ana@tickethub.test")

	res = httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/admin/users/new", nil))
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "STAFF")
}

func TestCreateUserWithRole(t *testing.T) {
	api := &recordingAPI{}
	sess := &shared.Session{ID: "s1"}
	r := newRouter(t, api, sess)

	res := submit(r, url.Values{"name": {"Luis"}, "email": {"luis@tickethub.test"}, "password": {"s3cret-pass"}, "role": {"staff"}})
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/admin/users", res.Header().Get("Location"))
	require.Len(t, api.created, 1)
	assert.Equal(t, "STAFF", api.created[0].Role)
	assert.Equal(t, "Usuario creado", sess.PopFlash().Message)
}

func TestCreateUserErrors(t *testing.T) {
	api := &recordingAPI{}
	r := newRouter(t, api, &shared.Session{ID: "s1"})

	res := submit(r, url.Values{"name": {"Luis"}, "email": {"luis@tickethub.test"}, "password": {"s3cret-pass"}, "role": {"OWNER"}})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Selecciona una opción válida")

	res = submit(r, url.Values{"name": {"Luis"}, "email": {"luis@taken.test"}, "password": {"s3cret-pass"}, "role": {"BUYER"}})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "email already registered")
	assert.Empty(t, api.created)
}
