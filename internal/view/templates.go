package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tickethub/tickethub-web/internal/access"
	"github.com/tickethub/tickethub-web/internal/shared"
	"github.com/tickethub/tickethub-web/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	Identity    *access.Identity
	Nav         []access.NavLink
	Data        any
}

// NewTemplateData fills the shared fields from the request: CSRF token, the
// pending flash message, and the identity with its visible navigation.
func NewTemplateData(r *http.Request, csrf *shared.CSRFManager, title string, data any) TemplateData {
	sess := shared.SessionFromContext(r.Context())
	var token string
	if csrf != nil {
		token, _ = csrf.EnsureToken(sess)
	}
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	identity := access.IdentityFromContext(r.Context())
	return TemplateData{
		Title:       title,
		CSRFToken:   token,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Identity:    identity,
		Nav:         access.VisibleLinks(identity),
		Data:        data,
	}
}

var pricePrinter = message.NewPrinter(language.Spanish)

// FormatPrice renders an amount with Spanish digit grouping.
func FormatPrice(amount float64) string {
	return pricePrinter.Sprintf("$%.2f", amount)
}

// NewEngine parses the embedded templates.
func NewEngine() (*Engine, error) {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02/01/2006 15:04")
		},
		"formatPrice": FormatPrice,
		"roleLabel":   roleLabel,
	}
	tpl := template.New("root").Funcs(funcMap)
	err := fs.WalkDir(web.Templates, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		raw, err := fs.ReadFile(web.Templates, path)
		if err != nil {
			return err
		}
		_, err = tpl.Parse(string(raw))
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData. The page is rendered
// into a buffer first so a failing template never leaves a half-written
// response behind.
func (e *Engine) Render(w http.ResponseWriter, status int, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	var buf bytes.Buffer
	if err := e.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func roleLabel(role access.Role) string {
	switch role {
	case access.RoleAdministrator:
		return "Administrador"
	case access.RoleOrganizer:
		return "Organizador"
	case access.RoleBuyer:
		return "Comprador"
	case access.RoleStaff:
		return "Staff"
	default:
		return "Sin rol"
	}
}
