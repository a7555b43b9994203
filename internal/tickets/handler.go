package tickets

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tickethub/tickethub-web/internal/access"
	"github.com/tickethub/tickethub-web/internal/platform/httpx"
	"github.com/tickethub/tickethub-web/internal/shared"
	"github.com/tickethub/tickethub-web/internal/view"
)

// Handler serves the entrance validation screen and its JSON endpoint.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	guard     access.Middleware
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, guard access.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, guard: guard}
}

// MountRoutes registers the HTML form under /tickets.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRole(access.RoleStaff, access.RoleAdministrator))
		r.Get("/validate", h.showForm)
		r.Post("/validate", h.handleForm)
	})
}

// MountAPI registers the JSON endpoint under /api/tickets.
func (h *Handler) MountAPI(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRole(access.RoleStaff, access.RoleAdministrator))
		r.Post("/validate", h.handleAPIBody)
		r.Post("/validate/{code}", h.handleAPI)
	})
}

type validatePage struct {
	Code   string
	Ticket *Ticket
	Error  string
}

func (h *Handler) showForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, validatePage{})
}

func (h *Handler) handleForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	page := validatePage{Code: r.PostFormValue("code")}
	ticket, err := h.service.Validate(r.Context(), page.Code)
	if err != nil {
		h.logger.Info("ticket rejected", slog.String("code", page.Code), slog.Any("error", err))
		page.Error = rejectionMessage(err)
		h.render(w, r, http.StatusUnprocessableEntity, page)
		return
	}
	h.logger.Info("ticket validated", slog.String("ticket_id", ticket.ID), slog.String("status", string(ticket.Status)))
	page.Ticket = ticket
	h.render(w, r, http.StatusOK, page)
}

type validateRequest struct {
	Code string `json:"code"`
}

// handleAPIBody accepts {"code": "..."} for scanners that cannot put the
// code in the path.
func (h *Handler) handleAPIBody(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.respondValidation(w, r, req.Code)
}

func (h *Handler) handleAPI(w http.ResponseWriter, r *http.Request) {
	h.respondValidation(w, r, chi.URLParam(r, "code"))
}

func (h *Handler) respondValidation(w http.ResponseWriter, r *http.Request, code string) {
	ticket, err := h.service.Validate(r.Context(), code)
	if err != nil {
		if errors.Is(err, ErrCodeRequired) {
			err = errors.Join(httpx.ErrValidation, err)
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ticket)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page validatePage) {
	data := view.NewTemplateData(r, h.csrf, "Validar ticket", page)
	if err := h.templates.Render(w, status, "pages/tickets/validate.html", data); err != nil {
		h.logger.Error("render ticket validation", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func rejectionMessage(err error) string {
	if errors.Is(err, ErrCodeRequired) {
		return "Introduce el código del ticket"
	}
	return shared.UserSafeMessage(err)
}
