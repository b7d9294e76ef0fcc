package rating

import (
	"time"

	"github.com/uvgride/grouprides/internal/domain"
)

// RateRequest represents a passenger's rating of a group's driver. Score
// range is enforced by the aggregator so it reports INVALID_SCORE.
type RateRequest struct {
	PassengerID int64  `json:"passenger_id" validate:"required,gt=0"`
	Score       int    `json:"score"`
	Comment     string `json:"comment,omitempty" validate:"max=1000"`
}

// RatingResponse represents a single rating
type RatingResponse struct {
	ID            int64  `json:"id"`
	DriverID      int64  `json:"driver_id"`
	PassengerID   int64  `json:"passenger_id"`
	PassengerName string `json:"passenger_name,omitempty"`
	GroupID       int64  `json:"group_id"`
	Score         int    `json:"score"`
	Comment       string `json:"comment,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// RateResponse wraps the stored rating and whether it was new
type RateResponse struct {
	Rating  *RatingResponse `json:"rating"`
	Created bool            `json:"created"`
}

// SummaryResponse is a driver's aggregate rating
type SummaryResponse struct {
	DriverID int64    `json:"driver_id"`
	Count    int      `json:"count"`
	Average  *float64 `json:"average"`
}

// ToRatingResponse converts a Rating to a RatingResponse DTO
func ToRatingResponse(r *domain.Rating) *RatingResponse {
	return &RatingResponse{
		ID:            r.ID,
		DriverID:      r.DriverID,
		PassengerID:   r.PassengerID,
		PassengerName: r.PassengerName,
		GroupID:       r.GroupID,
		Score:         r.Score,
		Comment:       r.Comment,
		CreatedAt:     r.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     r.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// ToSummaryResponse converts a RatingSummary to a SummaryResponse DTO
func ToSummaryResponse(s domain.RatingSummary) *SummaryResponse {
	return &SummaryResponse{DriverID: s.DriverID, Count: s.Count, Average: s.Average}
}
