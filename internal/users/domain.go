package users

import (
	"time"

	"github.com/tickethub/tickethub-web/internal/access"
)

// User represents a user account for management.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Roles     []string  `json:"roles"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// Input is the payload for creating a user with a role.
type Input struct {
	Name     string `json:"name" validate:"required,min=2,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=ADMINISTRATOR ORGANIZER BUYER STAFF"`
}

// AssignableRoles lists the roles offered by the user form.
func AssignableRoles() []access.Role {
	return access.AllRoles()
}
