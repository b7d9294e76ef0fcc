package domain

import "time"

// GroupStatus represents where a group is in its lifecycle
type GroupStatus string

const (
	StatusOpen      GroupStatus = "open"
	StatusClosed    GroupStatus = "closed"
	StatusCancelled GroupStatus = "cancelled"
	StatusFinalized GroupStatus = "finalized"
)

// Valid reports whether s is a known status.
func (s GroupStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusClosed, StatusCancelled, StatusFinalized:
		return true
	}
	return false
}

// Active reports whether a group in this status still binds its approved members.
func (s GroupStatus) Active() bool {
	return s == StatusOpen || s == StatusClosed
}

// Terminal reports whether no further transitions are possible.
func (s GroupStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusFinalized
}

// Destination describes where a group is heading
type Destination struct {
	Name string   `json:"name"`
	Lat  *float64 `json:"lat,omitempty"`
	Lon  *float64 `json:"lon,omitempty"`
}

// Group represents one driver-initiated shared ride
type Group struct {
	ID          int64       `json:"id"`
	DriverID    int64       `json:"driver_id"`
	Destination Destination `json:"destination"`
	TotalSeats  int         `json:"total_seats"`
	Price       *float64    `json:"price,omitempty"`
	DepartureAt *time.Time  `json:"departure_at,omitempty"`
	Notes       string      `json:"notes,omitempty"`
	TripID      *int64      `json:"trip_id,omitempty"`
	Status      GroupStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`

	// Populated from JOIN
	DriverName string `json:"driver_name,omitempty"`
}

// GroupView is a group together with its seat usage computed at read time.
type GroupView struct {
	Group
	ApprovedCount  int `json:"approved_count"`
	AvailableSeats int `json:"available_seats"`
}

// NewGroupView derives the available seats from the live approved count.
func NewGroupView(g Group, approved int) GroupView {
	available := g.TotalSeats - approved
	if available < 0 {
		available = 0
	}
	return GroupView{Group: g, ApprovedCount: approved, AvailableSeats: available}
}

// ListFilter narrows a group listing. An empty Status matches every status.
type ListFilter struct {
	Status GroupStatus
	Query  string
}
