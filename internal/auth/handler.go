package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tickethub/tickethub-web/internal/access"
	"github.com/tickethub/tickethub-web/internal/shared"
	"github.com/tickethub/tickethub-web/internal/view"
)

// SessionHook is notified when a session stops being used, either because
// the user logged out or because its id was replaced at login.
type SessionHook interface {
	SessionEnded(sessionID string, identity *access.Identity)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	guard          access.Middleware
	hooks          []SessionHook
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager, guard access.Middleware, hooks ...SessionHook) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		guard:          guard,
		hooks:          hooks,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Get("/2fa", h.showTwoFactor)
	r.Post("/2fa", h.handleTwoFactor)
	r.Get("/register", h.showRegister)
	r.Post("/register", h.handleRegister)
	r.Post("/logout", h.handleLogout)
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAuthentication())
		r.Post("/role", h.handleSwitchRole)
	})
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

type twoFactorForm struct {
	Code string `validate:"required,len=6,numeric"`
}

type registerForm struct {
	Name            string `validate:"required,min=2,max=120"`
	Email           string `validate:"required,email"`
	Password        string `validate:"required,min=8"`
	PasswordConfirm string `validate:"required,eqfield=Password"`
}

type formPageData struct {
	Form   any
	Errors shared.FormErrors
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	if h.redirectIfAuthenticated(w, r) {
		return
	}
	h.render(w, r, http.StatusOK, "pages/auth/login.html", "Iniciar sesión", formPageData{Form: loginForm{}, Errors: shared.FormErrors{}})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := loginForm{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	errs := h.validate(form)
	if len(errs) == 0 {
		outcome, err := h.service.Authenticate(r.Context(), form.Email, form.Password)
		if err == nil {
			h.completeStep(w, r, outcome)
			return
		}
		h.logFailure("login", err)
		errs["general"] = shared.UserSafeMessage(err)
	}
	form.Password = ""
	h.render(w, r, http.StatusBadRequest, "pages/auth/login.html", "Iniciar sesión", formPageData{Form: form, Errors: errs})
}

func (h *Handler) showTwoFactor(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.Auth().Challenge == "" {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "pages/auth/twofactor.html", "Verificación en dos pasos", formPageData{Form: twoFactorForm{}, Errors: shared.FormErrors{}})
}

func (h *Handler) handleTwoFactor(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.Auth().Challenge == "" {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := twoFactorForm{Code: r.PostFormValue("code")}
	errs := h.validate(form)
	if len(errs) == 0 {
		outcome, err := h.service.VerifyTwoFactor(r.Context(), sess.Auth().Challenge, form.Code)
		if err == nil {
			h.completeStep(w, r, outcome)
			return
		}
		h.logFailure("verify 2fa", err)
		errs["general"] = shared.UserSafeMessage(err)
	}
	h.render(w, r, http.StatusBadRequest, "pages/auth/twofactor.html", "Verificación en dos pasos", formPageData{Form: twoFactorForm{}, Errors: errs})
}

func (h *Handler) showRegister(w http.ResponseWriter, r *http.Request) {
	if h.redirectIfAuthenticated(w, r) {
		return
	}
	h.render(w, r, http.StatusOK, "pages/auth/register.html", "Crear cuenta", formPageData{Form: registerForm{}, Errors: shared.FormErrors{}})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := registerForm{
		Name:            r.PostFormValue("name"),
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password"),
		PasswordConfirm: r.PostFormValue("password_confirm"),
	}
	errs := h.validate(form)
	if len(errs) == 0 {
		outcome, err := h.service.Register(r.Context(), RegisterInput{Name: form.Name, Email: form.Email, Password: form.Password})
		if err == nil {
			h.completeStep(w, r, outcome)
			return
		}
		h.logFailure("register", err)
		errs["general"] = shared.UserSafeMessage(err)
	}
	form.Password, form.PasswordConfirm = "", ""
	h.render(w, r, http.StatusBadRequest, "pages/auth/register.html", "Crear cuenta", formPageData{Form: form, Errors: errs})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.Logout(r.Context(), sess.Auth().AccessToken); err != nil {
			h.logger.Warn("api logout", slog.Any("error", err))
		}
		h.notify(sess.ID, access.IdentityFromContext(r.Context()))
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

func (h *Handler) handleSwitchRole(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	identity := access.IdentityFromContext(r.Context()).Clone()
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if err := identity.SwitchRole(access.Role(r.PostFormValue("role"))); err != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "error", Message: "No tienes ese rol asignado"})
		http.Redirect(w, r, access.ResolveDefaultRoute(identity.ActiveRole), http.StatusSeeOther)
		return
	}
	if err := StoreIdentity(sess, sess.Auth().AccessToken, identity); err != nil {
		h.logger.Error("store identity", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	MarkStale(sess)
	http.Redirect(w, r, access.ResolveDefaultRoute(identity.ActiveRole), http.StatusSeeOther)
}

// completeStep finishes login, 2FA or registration: either park the 2FA
// challenge or bind the identity and send the user to their landing page.
func (h *Handler) completeStep(w http.ResponseWriter, r *http.Request, outcome *Outcome) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if outcome.NeedsSecondFactor() {
		sess.SetAuth(shared.SessionAuth{Challenge: outcome.Challenge})
		http.Redirect(w, r, "/auth/2fa", http.StatusSeeOther)
		return
	}

	previous := sess.ID
	h.sessionManager.Regenerate(sess)
	if err := StoreIdentity(sess, outcome.AccessToken, outcome.Identity); err != nil {
		h.logger.Error("store identity", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.csrfManager.Rotate(sess)
	h.notify(previous, nil)
	sess.AddFlash(shared.FlashMessage{Kind: "success", Message: welcome(outcome.Identity)})
	h.logger.Info("authenticated",
		slog.String("user_id", outcome.Identity.UserID),
		slog.String("active_role", outcome.Identity.ActiveRole.String()))
	http.Redirect(w, r, access.ResolveDefaultRoute(outcome.Identity.ActiveRole), http.StatusSeeOther)
}

func (h *Handler) redirectIfAuthenticated(w http.ResponseWriter, r *http.Request) bool {
	identity := access.IdentityFromContext(r.Context())
	if identity == nil {
		return false
	}
	http.Redirect(w, r, access.ResolveDefaultRoute(identity.ActiveRole), http.StatusSeeOther)
	return true
}

func (h *Handler) notify(sessionID string, identity *access.Identity) {
	for _, hook := range h.hooks {
		hook.SessionEnded(sessionID, identity)
	}
}

func (h *Handler) validate(form any) shared.FormErrors {
	return shared.ValidateForm(h.validator, form)
}

func (h *Handler) logFailure(step string, err error) {
	if errors.Is(err, shared.ErrInvalidCredentials) {
		h.logger.Info(step+" rejected", slog.Any("error", err))
		return
	}
	h.logger.Warn(step+" failed", slog.Any("error", err))
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	viewData := view.NewTemplateData(r, h.csrfManager, title, data)
	if err := h.templates.Render(w, status, name, viewData); err != nil {
		h.logger.Error("render auth page", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func welcome(identity *access.Identity) string {
	if identity != nil && identity.Name != "" {
		return "Bienvenido, " + identity.Name
	}
	return "Bienvenido a TicketHub"
}
