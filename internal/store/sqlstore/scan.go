package sqlstore

import (
	"database/sql"
	"time"

	"github.com/uvgride/grouprides/internal/domain"
)

type scanner interface {
	Scan(dest ...any) error
}

// groupRow mirrors a ride_groups row, nullable columns included.
type groupRow struct {
	id, driverID    int64
	destinationName string
	lat, lon, price sql.NullFloat64
	totalSeats      int
	departureAt     sql.NullTime
	notes, status   string
	tripID          sql.NullInt64
	createdAt       time.Time
	updatedAt       time.Time
	driverName      string
}

func (r *groupRow) targets() []any {
	return []any{
		&r.id, &r.driverID, &r.destinationName, &r.lat, &r.lon,
		&r.totalSeats, &r.price, &r.departureAt, &r.notes, &r.tripID, &r.status, &r.createdAt, &r.updatedAt,
	}
}

func (r *groupRow) group() *domain.Group {
	return &domain.Group{
		ID:       r.id,
		DriverID: r.driverID,
		Destination: domain.Destination{
			Name: r.destinationName,
			Lat:  floatPtr(r.lat),
			Lon:  floatPtr(r.lon),
		},
		TotalSeats:  r.totalSeats,
		Price:       floatPtr(r.price),
		DepartureAt: timePtr(r.departureAt),
		Notes:       r.notes,
		TripID:      intPtr(r.tripID),
		Status:      domain.GroupStatus(r.status),
		CreatedAt:   r.createdAt,
		UpdatedAt:   r.updatedAt,
		DriverName:  r.driverName,
	}
}

func scanGroup(s scanner, withDriverName bool) (*domain.Group, error) {
	var row groupRow
	dest := row.targets()
	if withDriverName {
		dest = append(dest, &row.driverName)
	}
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	return row.group(), nil
}

func scanMembership(s scanner, withUserName bool) (*domain.Membership, error) {
	var (
		m          domain.Membership
		role       string
		status     string
		approvedAt sql.NullTime
		amount     sql.NullFloat64
	)
	dest := []any{&m.ID, &m.GroupID, &m.UserID, &role, &status, &m.JoinedAt, &approvedAt, &amount}
	if withUserName {
		dest = append(dest, &m.UserName)
	}
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	m.Role = domain.MemberRole(role)
	m.Status = domain.MemberStatus(status)
	m.ApprovedAt = timePtr(approvedAt)
	m.AgreedAmount = floatPtr(amount)
	return &m, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	i := v.Int64
	return &i
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func nullTime(p *time.Time) sql.NullTime {
	if p == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *p, Valid: true}
}

func nullInt(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}
