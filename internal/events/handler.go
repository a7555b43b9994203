package events

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tickethub/tickethub-web/internal/access"
	"github.com/tickethub/tickethub-web/internal/apiclient"
	"github.com/tickethub/tickethub-web/internal/shared"
	"github.com/tickethub/tickethub-web/internal/store"
	"github.com/tickethub/tickethub-web/internal/view"
)

// Stores holds the listing store of each browser session.
type Stores = store.Registry[*store.Collection[Event, Filter]]

// Handler serves the public event pages.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	stores    *Stores
	templates *view.Engine
	csrf      *shared.CSRFManager
	pageSize  int
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service, stores *Stores, templates *view.Engine, csrf *shared.CSRFManager, pageSize int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if pageSize <= 0 {
		pageSize = 12
	}
	return &Handler{logger: logger, service: service, stores: stores, templates: templates, csrf: csrf, pageSize: pageSize}
}

// MountRoutes registers event routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.detail)
}

type listPage struct {
	Events   store.Snapshot[Event, Filter]
	Filter   Filter
	Statuses []Status
	Pager    shared.Pager
	Error    string
}

type detailPage struct {
	Event    *Event
	CanBuy   bool
	Quantity int
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := parseFilter(r)
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	col, err := h.stores.Get(r.Context(), sess.ID)
	if err != nil {
		h.logger.Error("events store", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	data := listPage{Filter: filter, Statuses: Statuses()}
	snap, err := col.Fetch(r.Context(), filter, page, h.pageSize)
	switch {
	case err == nil, errors.Is(err, store.ErrSuperseded):
	default:
		h.logger.Warn("list events", slog.Any("error", err))
		data.Error = shared.UserSafeMessage(err)
	}
	data.Events = snap
	data.Pager = shared.NewPager(max(snap.CurrentPage, 1), max(snap.TotalPages, 1), 5)
	h.render(w, r, http.StatusOK, "pages/events/list.html", "Eventos", data)
}

func (h *Handler) detail(w http.ResponseWriter, r *http.Request) {
	event, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if apiclient.StatusCode(err) == http.StatusNotFound {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("get event", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	identity := access.IdentityFromContext(r.Context())
	data := detailPage{
		Event:    event,
		CanBuy:   identity.HasRole(access.RoleBuyer) && event.Status == StatusActive,
		Quantity: 1,
	}
	h.render(w, r, http.StatusOK, "pages/events/detail.html", event.Title, data)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	viewData := view.NewTemplateData(r, h.csrf, title, data)
	if err := h.templates.Render(w, status, name, viewData); err != nil {
		h.logger.Error("render events page", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func parseFilter(r *http.Request) Filter {
	q := r.URL.Query()
	filter := Filter{
		Status:     StatusActive,
		Search:     strings.TrimSpace(q.Get("q")),
		CategoryID: q.Get("category"),
	}
	if raw, ok := q["status"]; ok {
		filter.Status = Status(strings.ToLower(strings.TrimSpace(raw[0])))
	}
	return filter
}
