package domain

import (
	"math"
	"time"
)

const (
	MinScore = 1
	MaxScore = 5
)

// Rating is one passenger's assessment of a driver
type Rating struct {
	ID          int64     `json:"id"`
	DriverID    int64     `json:"driver_id"`
	PassengerID int64     `json:"passenger_id"`
	GroupID     int64     `json:"group_id"`
	Score       int       `json:"score"`
	Comment     string    `json:"comment,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Populated from JOIN
	PassengerName string `json:"passenger_name,omitempty"`
}

// RatingSummary is the aggregate of every rating a driver holds
type RatingSummary struct {
	DriverID int64    `json:"driver_id"`
	Count    int      `json:"count"`
	Average  *float64 `json:"average"`
}

// NewRatingSummary builds a summary from a raw count and an unrounded mean.
// A zero count always yields a nil average.
func NewRatingSummary(driverID int64, count int, mean float64) RatingSummary {
	s := RatingSummary{DriverID: driverID, Count: count}
	if count > 0 {
		avg := math.Round(mean*100) / 100
		s.Average = &avg
	}
	return s
}
