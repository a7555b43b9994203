package users

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tickethub/tickethub-web/internal/access"
	"github.com/tickethub/tickethub-web/internal/shared"
	"github.com/tickethub/tickethub-web/internal/store"
	"github.com/tickethub/tickethub-web/internal/view"
)

// Stores holds the user listing of each admin session.
type Stores = store.Registry[*store.Collection[User, struct{}]]

// Handler manages user management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	stores    *Stores
	templates *view.Engine
	csrf      *shared.CSRFManager
	guard     access.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, stores *Stores, templates *view.Engine, csrf *shared.CSRFManager, guard access.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, stores: stores, templates: templates, csrf: csrf, guard: guard, validator: validator.New()}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRole(access.RoleAdministrator))
		r.Get("/", h.listUsers)
		r.Get("/new", h.showCreateUserForm)
		r.Post("/", h.createUser)
	})
}

type formPage struct {
	Form   Input
	Roles  []access.Role
	Errors shared.FormErrors
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	col, ok := h.store(w, r)
	if !ok {
		return
	}
	snap, err := col.Fetch(r.Context(), struct{}{}, shared.PageParam(r), 20)
	data := map[string]any{
		"Users": snap,
		"Pager": shared.NewPager(snap.CurrentPage, snap.TotalPages, 5),
	}
	if err != nil && !errors.Is(err, store.ErrSuperseded) {
		h.logger.Error("list users failed", slog.Any("error", err))
		data["Errors"] = shared.FormErrors{"general": shared.UserSafeMessage(err)}
	}
	h.render(w, r, "pages/admin/users.html", "Usuarios", data, http.StatusOK)
}

func (h *Handler) showCreateUserForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/admin/user_form.html", "Nuevo usuario", formPage{Form: Input{Role: access.RoleBuyer.String()}, Roles: AssignableRoles(), Errors: shared.FormErrors{}}, http.StatusOK)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	col, ok := h.store(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := Input{
		Name:     r.PostFormValue("name"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
		Role:     strings.ToUpper(strings.TrimSpace(r.PostFormValue("role"))),
	}
	errs := shared.ValidateForm(h.validator, form)
	if len(errs) == 0 {
		_, err := col.Mutate(r.Context(), store.Mutation[User]{
			Op:   store.OpAdd,
			Item: User{Email: form.Email, Name: form.Name, Roles: []string{form.Role}},
			Send: func(ctx context.Context, _ []User) (User, error) {
				created, err := h.service.CreateUser(ctx, form)
				if err != nil {
					return User{}, err
				}
				return *created, nil
			},
		})
		if err == nil {
			h.logger.Info("user created", slog.String("email", form.Email), slog.String("role", form.Role))
			h.redirectWithFlash(w, r, "/admin/users", "success", "Usuario creado")
			return
		}
		h.logger.Warn("create user failed", slog.Any("error", err))
		errs["general"] = shared.UserSafeMessage(err)
	}
	form.Password = ""
	h.render(w, r, "pages/admin/user_form.html", "Nuevo usuario", formPage{Form: form, Roles: AssignableRoles(), Errors: errs}, http.StatusBadRequest)
}

func (h *Handler) store(w http.ResponseWriter, r *http.Request) (*store.Collection[User, struct{}], bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return nil, false
	}
	col, err := h.stores.Get(r.Context(), sess.ID)
	if err != nil {
		h.logger.Error("users store", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return nil, false
	}
	return col, true
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template, title string, data any, status int) {
	viewData := view.NewTemplateData(r, h.csrf, title, data)
	if err := h.templates.Render(w, status, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
