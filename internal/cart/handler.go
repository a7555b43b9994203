package cart

import (
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

// Carts holds the open cart of each user.
type Carts = store.Registry[*Cart]

// Handler serves the buyer cart.
type Handler struct {
	logger    *slog.Logger
	carts     *Carts
	templates *view.Engine
	csrf      *shared.CSRFManager
	guard     access.Middleware
	validator *validator.Validate
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, carts *Carts, templates *view.Engine, csrf *shared.CSRFManager, guard access.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, carts: carts, templates: templates, csrf: csrf, guard: guard, validator: validator.New()}
}

// MountRoutes registers cart routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRole(access.RoleBuyer))
		r.Get("/", h.show)
		r.Post("/items", h.add)
		r.Post("/items/{eventID}", h.update)
		r.Post("/items/{eventID}/delete", h.remove)
	})
}

type addForm struct {
	EventID  string `validate:"required"`
	Quantity int    `validate:"min=1,max=10"`
}

type cartPage struct {
	Items []LineItem
	Total float64
	Count int
	Max   int
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	c, ok := h.cart(w, r)
	if !ok {
		return
	}
	snap := c.Snapshot()
	data := cartPage{Items: snap.Items, Total: Total(snap.Items), Count: Count(snap.Items), Max: MaxQuantity}
	viewData := view.NewTemplateData(r, h.csrf, "Carrito", data)
	if err := h.templates.Render(w, http.StatusOK, "pages/cart/show.html", viewData); err != nil {
		h.logger.Error("render cart", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	c, ok := h.cart(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := addForm{EventID: r.PostFormValue("event_id"), Quantity: atoiDefault(r.PostFormValue("quantity"), 1)}
	if err := h.validator.Struct(form); err != nil {
		h.redirectWithFlash(w, r, "error", "Cantidad no válida")
		return
	}
	_, err := c.Add(r.Context(), form.EventID, form.Quantity)
	h.finish(w, r, err, "Entradas añadidas al carrito")
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	c, ok := h.cart(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	quantity, err := strconv.Atoi(r.PostFormValue("quantity"))
	if err != nil {
		h.redirectWithFlash(w, r, "error", "Cantidad no válida")
		return
	}
	_, err = c.SetQuantity(r.Context(), chi.URLParam(r, "eventID"), quantity)
	h.finish(w, r, err, "Carrito actualizado")
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	c, ok := h.cart(w, r)
	if !ok {
		return
	}
	_, err := c.Remove(r.Context(), chi.URLParam(r, "eventID"))
	h.finish(w, r, err, "Entrada eliminada del carrito")
}

func (h *Handler) cart(w http.ResponseWriter, r *http.Request) (*Cart, bool) {
	identity := access.IdentityFromContext(r.Context())
	c, err := h.carts.Get(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("open cart", slog.String("user_id", identity.UserID), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return nil, false
	}
	return c, true
}

func (h *Handler) finish(w http.ResponseWriter, r *http.Request, err error, success string) {
	switch {
	case err == nil:
		h.redirectWithFlash(w, r, "success", success)
	case errors.Is(err, store.ErrSuperseded):
		h.redirectWithFlash(w, r, "success", success)
	default:
		h.logger.Warn("cart change", slog.String("path", r.URL.Path), slog.Any("error", err))
		h.redirectWithFlash(w, r, "error", failureMessage(err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotOnSale):
		return "Este evento no tiene entradas a la venta"
	case errors.Is(err, ErrInvalidQuantity):
		return "Cantidad no válida"
	case errors.Is(err, store.ErrUnknownItem):
		return "Esa entrada ya no está en el carrito"
	}
	return shared.UserSafeMessage(err)
}

func atoiDefault(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
