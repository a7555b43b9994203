package venues

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tickethub/tickethub-web/internal/access"
	"github.com/tickethub/tickethub-web/internal/shared"
	"github.com/tickethub/tickethub-web/internal/store"
	"github.com/tickethub/tickethub-web/internal/view"
)

// Stores holds the venue listing of each admin session.
type Stores = store.Registry[*store.Collection[Venue, struct{}]]

const pageSize = 20

// Handler manages venue administration.
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

// MountRoutes registers venue routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRole(access.RoleAdministrator))
		r.Get("/", h.list)
		r.Post("/", h.create)
	})
}

type listPage struct {
	Venues store.Snapshot[Venue, struct{}]
	Pager  shared.Pager
	Form   Input
	Errors shared.FormErrors
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	col, ok := h.store(w, r)
	if !ok {
		return
	}
	data := listPage{Errors: shared.FormErrors{}}
	snap, err := col.Fetch(r.Context(), struct{}{}, shared.PageParam(r), pageSize)
	if err != nil && !errors.Is(err, store.ErrSuperseded) {
		h.logger.Error("list venues failed", slog.Any("error", err))
		data.Errors["general"] = shared.UserSafeMessage(err)
	}
	data.Venues = snap
	data.Pager = shared.NewPager(snap.CurrentPage, snap.TotalPages, 5)
	h.render(w, r, http.StatusOK, data)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	col, ok := h.store(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	capacity, _ := strconv.Atoi(r.PostFormValue("capacity"))
	form := Input{
		Name:     r.PostFormValue("name"),
		Address:  r.PostFormValue("address"),
		City:     r.PostFormValue("city"),
		Capacity: capacity,
	}
	errs := shared.ValidateForm(h.validator, form)
	if len(errs) == 0 {
		_, err := col.Mutate(r.Context(), store.Mutation[Venue]{
			Op:   store.OpAdd,
			Item: Venue{Name: form.Name, Address: form.Address, City: form.City, Capacity: form.Capacity},
			Send: func(ctx context.Context, _ []Venue) (Venue, error) {
				created, err := h.service.Create(ctx, form)
				if err != nil {
					return Venue{}, err
				}
				return *created, nil
			},
		})
		if err == nil {
			h.redirectWithFlash(w, r, "/admin/venues", "success", "Recinto creado")
			return
		}
		h.logger.Warn("create venue failed", slog.Any("error", err))
		errs["general"] = shared.UserSafeMessage(err)
	}
	h.render(w, r, http.StatusBadRequest, listPage{
		Venues: col.Snapshot(),
		Pager:  shared.NewPager(1, 1, 5),
		Form:   form,
		Errors: errs,
	})
}

func (h *Handler) store(w http.ResponseWriter, r *http.Request) (*store.Collection[Venue, struct{}], bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return nil, false
	}
	col, err := h.stores.Get(r.Context(), sess.ID)
	if err != nil {
		h.logger.Error("venues store", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return nil, false
	}
	return col, true
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data listPage) {
	viewData := view.NewTemplateData(r, h.csrf, "Recintos", data)
	if err := h.templates.Render(w, status, "pages/admin/venues.html", viewData); err != nil {
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
