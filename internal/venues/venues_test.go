package venues

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

type fakeAPI struct {
	venues []Venue
	reject string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.Method {
	case http.MethodGet:
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": f.venues,
			"meta": map[string]int{"page": 1, "totalPages": 1, "total": len(f.venues)},
		})
	case http.MethodPost:
		var in Input
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.Name == f.reject {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"statusCode":409,"message":"Ya existe un recinto con ese nombre"}`))
			return
		}
		created := Venue{ID: "v-new", Name: in.Name, Address: in.Address, City: in.City, Capacity: in.Capacity}
		f.venues = append(f.venues, created)
		_ = json.NewEncoder(w).Encode(created)
	}
}

type staticResolver struct{ identity *access.Identity }

func (s staticResolver) ResolveIdentity(*http.Request) access.IdentityState {
	return access.Resolved(s.identity)
}

func setup(t *testing.T, api *fakeAPI, identity *access.Identity) (http.Handler, *Stores) {
	t.Helper()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)
	svc := NewService(apiclient.New(server.URL, time.Second))
	stores := store.NewRegistry(time.Hour, func(context.Context, string) (*store.Collection[Venue, struct{}], error) {
		return NewStore(svc, nil), nil
	})
	templates, err := view.NewEngine()
	require.NoError(t, err)
	h := NewHandler(nil, svc, stores, templates, nil, access.Middleware{Resolver: staticResolver{identity}})

	sess := &shared.Session{ID: "s1"}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
		})
	})
	r.Route("/admin/venues", h.MountRoutes)
	return r, stores
}

func admin() *access.Identity {
	return access.NewIdentity("a1", []string{"ADMINISTRATOR"}, "", nil)
}

func postForm(router http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func TestListVenues(t *testing.T) {
	api := &fakeAPI{venues: []Venue{{ID: "v1", Name: "Teatro Real", City: "Madrid", Capacity: 1700}}}
	router, _ := setup(t, api, admin())

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/admin/venues", nil))
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Teatro Real")
}

func TestCreateVenueAddsConfirmedItem(t *testing.T) {
	api := &fakeAPI{}
	router, stores := setup(t, api, admin())

	res := postForm(router, "/admin/venues", url.Values{"name": {"Sala Apolo"}, "address": {"Nou de la Rambla 113"}, "city": {"Barcelona"}, "capacity": {"1200"}})
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/admin/venues", res.Header().Get("Location"))

	col, err := stores.Get(context.Background(), "s1")
	require.NoError(t, err)
	items := col.Snapshot().Items
	require.Len(t, items, 1)
	assert.Equal(t, "v-new", items[0].ID)
}

func TestCreateVenueValidationAndRejection(t *testing.T) {
	api := &fakeAPI{reject: "Duplicado"}
	router, stores := setup(t, api, admin())

	res := postForm(router, "/admin/venues", url.Values{"name": {"X"}})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Este campo es obligatorio")

	res = postForm(router, "/admin/venues", url.Values{"name": {"Duplicado"}, "address": {"Calle 1"}, "city": {"Lima"}, "capacity": {"10"}})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Ya existe un recinto con ese nombre")

	col, err := stores.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, col.Snapshot().Items)
}

func TestVenuesRequireAdministrator(t *testing.T) {
	router, _ := setup(t, &fakeAPI{}, access.NewIdentity("o1", []string{"ORGANIZER"}, "", nil))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/admin/venues", nil))
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestAllWalksPages(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		page := r.URL.Query().Get("page")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []Venue{{ID: "v" + page}},
			"meta": map[string]int{"page": calls, "totalPages": 3, "total": 3},
		})
	}))
	t.Cleanup(server.Close)

	all, err := NewService(apiclient.New(server.URL, time.Second)).All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Venue{{ID: "v1"}, {ID: "v2"}, {ID: "v3"}}, all)
}
