package access

// Landing routes produced by ResolveDefaultRoute.
const (
	RouteAdmin           = "/admin"
	RouteOrganizerEvents = "/organizer/events"
	RouteEvents          = "/events"
	RouteTicketValidate  = "/tickets/validate"
)

// ResolveDefaultRoute maps the active role to the page a user lands on after
// completing any authentication step. Unknown or missing roles land on the
// public event listing.
func ResolveDefaultRoute(active Role) string {
	role, _ := ParseRole(string(active))
	switch role {
	case RoleAdministrator:
		return RouteAdmin
	case RoleOrganizer:
		return RouteOrganizerEvents
	case RoleStaff:
		return RouteTicketValidate
	default:
		return RouteEvents
	}
}

// NavLink is a navigation entry together with the roles allowed to see it.
// An entry without roles is visible to everyone.
type NavLink struct {
	Path  string
	Label string
	Roles []Role
}

var navigation = []NavLink{
	{Path: RouteEvents, Label: "Eventos"},
	{Path: "/cart", Label: "Carrito", Roles: []Role{RoleBuyer}},
	{Path: RouteOrganizerEvents, Label: "Mis eventos", Roles: []Role{RoleOrganizer}},
	{Path: RouteTicketValidate, Label: "Validar tickets", Roles: []Role{RoleStaff, RoleAdministrator}},
	{Path: RouteAdmin, Label: "Administración", Roles: []Role{RoleAdministrator}},
	{Path: "/admin/venues", Label: "Recintos", Roles: []Role{RoleAdministrator}},
	{Path: "/admin/categories", Label: "Categorías", Roles: []Role{RoleAdministrator}},
	{Path: "/admin/users/new", Label: "Crear usuario", Roles: []Role{RoleAdministrator}},
}

// VisibleLinks returns the navigation entries the identity may see. It uses
// the same verdicts as the route guards so a hidden link is never a reachable
// page and vice versa.
func VisibleLinks(identity *Identity) []NavLink {
	state := Resolved(identity)
	links := make([]NavLink, 0, len(navigation))
	for _, link := range navigation {
		if len(link.Roles) == 0 || RequireRole(state, link.Roles...).IsAuthorized() {
			links = append(links, link)
		}
	}
	return links
}
