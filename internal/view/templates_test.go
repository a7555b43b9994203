package view

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickethub/tickethub-web/internal/access"
	"github.com/tickethub/tickethub-web/internal/shared"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "$100,50", FormatPrice(100.5))
}

func TestRoleLabel(t *testing.T) {
	assert.Equal(t, "Administrador", roleLabel(access.RoleAdministrator))
	assert.Equal(t, "Staff", roleLabel(access.RoleStaff))
	assert.Equal(t, "Sin rol", roleLabel(access.Role("")))
}

func TestNewTemplateDataPopsFlashAndBuildsNav(t *testing.T) {
	sess := &shared.Session{ID: "s1"}
	sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Hecho"})

	identity := access.NewIdentity("u1", []string{"BUYER", "STAFF"}, "BUYER", nil)
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	ctx := shared.ContextWithSession(req.Context(), sess)
	ctx = access.ContextWithState(ctx, access.Resolved(identity))
	req = req.WithContext(ctx)

	data := NewTemplateData(req, shared.NewCSRFManager("secret"), "Eventos", nil)
	require.NotNil(t, data.Flash)
	assert.Equal(t, "Hecho", data.Flash.Message)
	assert.Nil(t, sess.PopFlash())
	assert.NotEmpty(t, data.CSRFToken)
	assert.Equal(t, "/events", data.CurrentPath)

	paths := make([]string, 0, len(data.Nav))
	for _, link := range data.Nav {
		paths = append(paths, link.Path)
	}
	assert.Contains(t, paths, "/cart")
	assert.NotContains(t, paths, "/admin")
}

func TestRenderLayoutWithRoleSwitch(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	identity := access.NewIdentity("u1", []string{"ADMINISTRATOR", "STAFF"}, "STAFF", nil)
	identity.Name = "Ana"
	res := httptest.NewRecorder()
	err = engine.Render(res, http.StatusOK, "pages/admin/dashboard.html", TemplateData{
		Title:    "Panel de administración",
		Identity: identity,
		Nav:      access.VisibleLinks(identity),
		Data: map[string]any{
			"Summary": struct{ Venues, Categories, ActiveEvents int }{2, 3, 4},
		},
	})
	require.NoError(t, err)
	body := res.Body.String()
	assert.Contains(t, body, "Ana")
	assert.Contains(t, body, `action="/auth/role"`)
	assert.Contains(t, body, `<option value="STAFF" selected>`)
	assert.Contains(t, body, "Eventos activos")
}

func TestRenderUnknownTemplateWritesNothing(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	res := httptest.NewRecorder()
	assert.Error(t, engine.Render(res, http.StatusOK, "pages/missing.html", TemplateData{}))
	assert.Empty(t, res.Body.String())
}
