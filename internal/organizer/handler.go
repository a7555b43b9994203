package organizer

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tickethub/tickethub-web/internal/access"
	"github.com/tickethub/tickethub-web/internal/events"
	"github.com/tickethub/tickethub-web/internal/shared"
	"github.com/tickethub/tickethub-web/internal/store"
	"github.com/tickethub/tickethub-web/internal/view"
)

// Stores holds the organizer listing of each session.
type Stores = store.Registry[*store.Collection[events.Event, struct{}]]

// startsAtLayout matches <input type="datetime-local">.
const startsAtLayout = "2006-01-02T15:04"

// Handler serves /organizer.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	stores    *Stores
	templates *view.Engine
	csrf      *shared.CSRFManager
	guard     access.Middleware
	validator *validator.Validate
	location  *time.Location
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, stores *Stores, templates *view.Engine, csrf *shared.CSRFManager, guard access.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		stores:    stores,
		templates: templates,
		csrf:      csrf,
		guard:     guard,
		validator: validator.New(),
		location:  time.Local,
	}
}

// SetLocation sets the zone in which event start times are entered.
func (h *Handler) SetLocation(loc *time.Location) {
	if loc != nil {
		h.location = loc
	}
}

// MountRoutes registers organizer routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRole(access.RoleOrganizer))
		r.Get("/events", h.list)
		r.Get("/events/new", h.showForm)
		r.Post("/events", h.create)
	})
}

type eventForm struct {
	Title       string
	Description string
	VenueID     string
	CategoryID  string
	StartsAt    string
	Price       string
	ImageURL    string
}

type formPage struct {
	Form    eventForm
	Options FormOptions
	Errors  shared.FormErrors
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	col, ok := h.store(w, r)
	if !ok {
		return
	}
	snap, err := col.Fetch(r.Context(), struct{}{}, shared.PageParam(r), 20)
	data := map[string]any{
		"Events": snap,
		"Pager":  shared.NewPager(snap.CurrentPage, snap.TotalPages, 5),
	}
	if err != nil && !errors.Is(err, store.ErrSuperseded) {
		h.logger.Error("list organizer events", slog.Any("error", err))
		data["Error"] = shared.UserSafeMessage(err)
	}
	h.render(w, r, http.StatusOK, "pages/organizer/events.html", "Mis eventos", data)
}

func (h *Handler) showForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, eventForm{}, shared.FormErrors{})
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
	form := eventForm{
		Title:       r.PostFormValue("title"),
		Description: r.PostFormValue("description"),
		VenueID:     r.PostFormValue("venue_id"),
		CategoryID:  r.PostFormValue("category_id"),
		StartsAt:    r.PostFormValue("starts_at"),
		Price:       r.PostFormValue("price"),
		ImageURL:    strings.TrimSpace(r.PostFormValue("image_url")),
	}
	input, errs := h.parse(form)
	if len(errs) == 0 {
		_, err := h.service.Create(r.Context(), col, input)
		if err == nil {
			h.redirectWithFlash(w, r, "/organizer/events", "success", "Evento creado")
			return
		}
		h.logger.Warn("create event failed", slog.Any("error", err))
		errs["general"] = shared.UserSafeMessage(err)
	}
	h.renderForm(w, r, http.StatusBadRequest, form, errs)
}

func (h *Handler) parse(form eventForm) (events.Input, shared.FormErrors) {
	input := events.Input{
		Title:       strings.TrimSpace(form.Title),
		Description: strings.TrimSpace(form.Description),
		VenueID:     form.VenueID,
		CategoryID:  form.CategoryID,
		ImageURL:    form.ImageURL,
	}
	errs := shared.FormErrors{}
	if form.StartsAt != "" {
		startsAt, err := time.ParseInLocation(startsAtLayout, form.StartsAt, h.location)
		if err != nil {
			errs["StartsAt"] = "Fecha no válida"
		}
		input.StartsAt = startsAt
	}
	price, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(form.Price), ",", "."), 64)
	switch {
	case form.Price == "":
	case err != nil:
		errs["Price"] = "Precio no válido"
	default:
		input.Price = price
	}
	for field, msg := range shared.ValidateForm(h.validator, input) {
		if _, taken := errs[field]; !taken {
			errs[field] = msg
		}
	}
	return input, errs
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, form eventForm, errs shared.FormErrors) {
	opts, err := h.service.FormOptions(r.Context())
	if err != nil {
		h.logger.Error("load event form options", slog.Any("error", err))
		errs["general"] = shared.UserSafeMessage(err)
	}
	h.render(w, r, status, "pages/organizer/event_form.html", "Nuevo evento", formPage{Form: form, Options: opts, Errors: errs})
}

func (h *Handler) store(w http.ResponseWriter, r *http.Request) (*store.Collection[events.Event, struct{}], bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return nil, false
	}
	col, err := h.stores.Get(r.Context(), sess.ID)
	if err != nil {
		h.logger.Error("organizer store", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return nil, false
	}
	return col, true
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	viewData := view.NewTemplateData(r, h.csrf, title, data)
	if err := h.templates.Render(w, status, name, viewData); err != nil {
		h.logger.Error("render template", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
