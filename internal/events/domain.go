package events

import "time"

// Status is the publication state of an event.
type Status string

// Event statuses understood by the API.
const (
	StatusActive    Status = "active"
	StatusDraft     Status = "draft"
	StatusCancelled Status = "cancelled"
	StatusFinished  Status = "finished"
)

// Statuses lists the statuses offered as listing filters.
func Statuses() []Status {
	return []Status{StatusActive, StatusDraft, StatusCancelled, StatusFinished}
}

// Event is a ticketed event.
type Event struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	VenueID      string    `json:"venueId,omitempty"`
	VenueName    string    `json:"venueName,omitempty"`
	CategoryID   string    `json:"categoryId,omitempty"`
	CategoryName string    `json:"categoryName,omitempty"`
	StartsAt     time.Time `json:"startsAt"`
	Price        float64   `json:"price"`
	Status       Status    `json:"status"`
	ImageURL     string    `json:"imageUrl,omitempty"`
	OrganizerID  string    `json:"organizerId,omitempty"`
}

// Filter narrows an event listing.
type Filter struct {
	Status     Status
	Search     string
	CategoryID string
}

// Input is the payload for creating an event.
type Input struct {
	Title       string    `json:"title" validate:"required,min=3,max=160"`
	Description string    `json:"description" validate:"max=4000"`
	VenueID     string    `json:"venueId" validate:"required"`
	CategoryID  string    `json:"categoryId" validate:"required"`
	StartsAt    time.Time `json:"startsAt" validate:"required"`
	Price       float64   `json:"price" validate:"gte=0"`
	ImageURL    string    `json:"imageUrl,omitempty" validate:"omitempty,url"`
}
