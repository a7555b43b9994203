package venues

// Venue is a place where events are held.
type Venue struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	City     string `json:"city"`
	Capacity int    `json:"capacity"`
}

// Input is the payload for creating a venue.
type Input struct {
	Name     string `json:"name" validate:"required,min=2,max=120"`
	Address  string `json:"address" validate:"required,max=240"`
	City     string `json:"city" validate:"required,max=120"`
	Capacity int    `json:"capacity" validate:"gte=1,lte=200000"`
}
