package shared

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// FormErrors maps form field names to the message shown next to them. The
// "general" key holds errors not tied to a field.
type FormErrors map[string]string

// ValidateForm runs struct validation and translates failures.
func ValidateForm(v *validator.Validate, form any) FormErrors {
	errs := FormErrors{}
	err := v.Struct(form)
	if err == nil {
		return errs
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		errs["general"] = genericMessage
		return errs
	}
	for _, fe := range fieldErrs {
		errs[fe.Field()] = fieldMessage(fe)
	}
	return errs
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Este campo es obligatorio"
	case "email":
		return "Introduce un correo válido"
	case "url":
		return "Introduce una URL válida"
	case "min", "gte":
		return "El valor es demasiado pequeño"
	case "max", "lte":
		return "El valor es demasiado grande"
	case "len", "numeric":
		return "El código debe tener 6 dígitos"
	case "eqfield":
		return "Las contraseñas no coinciden"
	case "oneof":
		return "Selecciona una opción válida"
	default:
		return "Valor no válido"
	}
}

// PageParam reads the page query parameter, defaulting to 1.
func PageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
