package tickets

// Status is the redemption state of a ticket.
type Status string

// Ticket statuses reported by the API.
const (
	StatusNotRedeemed Status = "NOT_REDEEMED"
	StatusRedeemed    Status = "REDEEMED"
	StatusCancelled   Status = "CANCELLED"
)

// Ticket is a purchased ticket as returned by the validation endpoint.
type Ticket struct {
	ID         string  `json:"id"`
	TicketCode string  `json:"ticketCode"`
	Price      float64 `json:"price"`
	Seat       string  `json:"seat"`
	Status     Status  `json:"status"`
}
