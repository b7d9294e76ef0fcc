package group

import (
	"time"

	"github.com/uvgride/grouprides/internal/domain"
)

const timeLayout = time.RFC3339

// CreateGroupRequest represents the request to create a new group
type CreateGroupRequest struct {
	DriverID        int64      `json:"driver_id" validate:"required,gt=0"`
	DestinationName string     `json:"destination_name" validate:"required,max=255"`
	DestinationLat  *float64   `json:"destination_lat,omitempty" validate:"omitempty,gte=-90,lte=90"`
	DestinationLon  *float64   `json:"destination_lon,omitempty" validate:"omitempty,gte=-180,lte=180"`
	TotalSeats      int        `json:"total_seats" validate:"required,gte=1"`
	Price           *float64   `json:"price,omitempty" validate:"omitempty,gte=0"`
	DepartureAt     *time.Time `json:"departure_at,omitempty"`
	Notes           string     `json:"notes,omitempty" validate:"max=1000"`
	TripID          *int64     `json:"trip_id,omitempty" validate:"omitempty,gt=0"`
}

// Params converts the request into creation parameters
func (r *CreateGroupRequest) Params() CreateParams {
	return CreateParams{
		DriverID: r.DriverID,
		Destination: domain.Destination{
			Name: r.DestinationName,
			Lat:  r.DestinationLat,
			Lon:  r.DestinationLon,
		},
		TotalSeats:  r.TotalSeats,
		Price:       r.Price,
		DepartureAt: r.DepartureAt,
		Notes:       r.Notes,
		TripID:      r.TripID,
	}
}

// JoinRequest represents a passenger's request to join a group
type JoinRequest struct {
	UserID       int64    `json:"user_id" validate:"required,gt=0"`
	AgreedAmount *float64 `json:"agreed_amount,omitempty" validate:"omitempty,gte=0"`
}

// LeaveRequest represents a passenger leaving a group
type LeaveRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

// CloseRequest asks for a status change. Status defaults to closed.
type CloseRequest struct {
	ActorID int64  `json:"actor_id" validate:"required,gt=0"`
	Status  string `json:"status,omitempty" validate:"omitempty,oneof=open closed cancelled finalized"`
}

// Target returns the requested status
func (r *CloseRequest) Target() domain.GroupStatus {
	if r.Status == "" {
		return domain.StatusClosed
	}
	return domain.GroupStatus(r.Status)
}

// DestinationResponse describes where a group is heading
type DestinationResponse struct {
	Name string   `json:"name"`
	Lat  *float64 `json:"lat,omitempty"`
	Lon  *float64 `json:"lon,omitempty"`
}

// GroupResponse represents the response for a group
type GroupResponse struct {
	ID             int64               `json:"id"`
	DriverID       int64               `json:"driver_id"`
	DriverName     string              `json:"driver_name,omitempty"`
	Destination    DestinationResponse `json:"destination"`
	TotalSeats     int                 `json:"total_seats"`
	ApprovedCount  int                 `json:"approved_count"`
	AvailableSeats int                 `json:"available_seats"`
	Price          *float64            `json:"price,omitempty"`
	DepartureAt    *string             `json:"departure_at,omitempty"`
	Notes          string              `json:"notes,omitempty"`
	TripID         *int64              `json:"trip_id,omitempty"`
	Status         domain.GroupStatus  `json:"status"`
	CreatedAt      string              `json:"created_at"`
	UpdatedAt      string              `json:"updated_at"`
	Members        []*MemberResponse   `json:"members,omitempty"`
}

// MemberResponse represents a member in a group response
type MemberResponse struct {
	ID           int64               `json:"id"`
	GroupID      int64               `json:"group_id"`
	UserID       int64               `json:"user_id"`
	UserName     string              `json:"user_name,omitempty"`
	Role         domain.MemberRole   `json:"role"`
	Status       domain.MemberStatus `json:"status"`
	AgreedAmount *float64            `json:"agreed_amount,omitempty"`
	JoinedAt     string              `json:"joined_at"`
	ApprovedAt   *string             `json:"approved_at,omitempty"`
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(timeLayout)
	return &s
}

// ToGroupResponse converts a group and its seat usage to a GroupResponse DTO
func ToGroupResponse(v domain.GroupView) *GroupResponse {
	return &GroupResponse{
		ID:         v.ID,
		DriverID:   v.DriverID,
		DriverName: v.DriverName,
		Destination: DestinationResponse{
			Name: v.Destination.Name,
			Lat:  v.Destination.Lat,
			Lon:  v.Destination.Lon,
		},
		TotalSeats:     v.TotalSeats,
		ApprovedCount:  v.ApprovedCount,
		AvailableSeats: v.AvailableSeats,
		Price:          v.Price,
		DepartureAt:    formatTime(v.DepartureAt),
		Notes:          v.Notes,
		TripID:         v.TripID,
		Status:         v.Status,
		CreatedAt:      v.CreatedAt.UTC().Format(timeLayout),
		UpdatedAt:      v.UpdatedAt.UTC().Format(timeLayout),
	}
}

// ToMemberResponse converts a Membership to a MemberResponse DTO
func ToMemberResponse(m *domain.Membership) *MemberResponse {
	return &MemberResponse{
		ID:           m.ID,
		GroupID:      m.GroupID,
		UserID:       m.UserID,
		UserName:     m.UserName,
		Role:         m.Role,
		Status:       m.Status,
		AgreedAmount: m.AgreedAmount,
		JoinedAt:     m.JoinedAt.UTC().Format(timeLayout),
		ApprovedAt:   formatTime(m.ApprovedAt),
	}
}
