package domain

import "time"

// MemberRole represents the role of a group member
type MemberRole string

const (
	RoleDriver    MemberRole = "driver"
	RolePassenger MemberRole = "passenger"
)

// MemberStatus represents the request status of a membership
type MemberStatus string

const (
	MemberPending   MemberStatus = "pending"
	MemberApproved  MemberStatus = "approved"
	MemberWithdrawn MemberStatus = "withdrawn"
)

// Membership represents a user's relationship to one group
type Membership struct {
	ID           int64        `json:"id"`
	GroupID      int64        `json:"group_id"`
	UserID       int64        `json:"user_id"`
	Role         MemberRole   `json:"role"`
	Status       MemberStatus `json:"status"`
	JoinedAt     time.Time    `json:"joined_at"`
	ApprovedAt   *time.Time   `json:"approved_at,omitempty"`
	AgreedAmount *float64     `json:"agreed_amount,omitempty"`

	// Populated from JOIN
	UserName string `json:"user_name,omitempty"`
}

// Approved reports whether the membership currently occupies a seat.
func (m *Membership) Approved() bool {
	return m != nil && m.Status == MemberApproved
}

// EverApproved reports whether the membership was approved at any point.
func (m *Membership) EverApproved() bool {
	return m != nil && m.ApprovedAt != nil
}
