package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uvgride/grouprides/internal/database"
	"github.com/uvgride/grouprides/internal/domain"
)

type tx struct {
	tx      *sql.Tx
	dialect database.Dialect
}

func (t *tx) q(query string) string {
	return database.Rebind(t.dialect, query)
}

// advisoryLock takes a transaction-scoped Postgres advisory lock on key.
func (t *tx) advisoryLock(ctx context.Context, key string) error {
	if t.dialect != database.Postgres {
		return nil
	}
	if _, err := t.tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
		return wrap("lock "+key, err)
	}
	return nil
}

func (t *tx) LockUser(ctx context.Context, userID int64) error {
	return t.advisoryLock(ctx, fmt.Sprintf("user:%d", userID))
}

func (t *tx) LockDriverRatings(ctx context.Context, driverID int64) error {
	return t.advisoryLock(ctx, fmt.Sprintf("ratings:%d", driverID))
}

func (t *tx) LockGroup(ctx context.Context, groupID int64) (*domain.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM ride_groups g WHERE g.id = $1`
	if t.dialect == database.Postgres {
		query += ` FOR UPDATE`
	}

	g, err := scanGroup(t.tx.QueryRowContext(ctx, t.q(query), groupID), false)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, wrap("lock group", err)
	}
	return g, nil
}

func (t *tx) GetGroup(ctx context.Context, groupID int64) (*domain.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM ride_groups g WHERE g.id = $1`

	g, err := scanGroup(t.tx.QueryRowContext(ctx, t.q(query), groupID), false)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, wrap("get group", err)
	}
	return g, nil
}

func (t *tx) CreateGroup(ctx context.Context, g *domain.Group) error {
	query := `
		INSERT INTO ride_groups (driver_id, destination_name, destination_lat, destination_lon,
			total_seats, price, departure_at, notes, trip_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	err := t.tx.QueryRowContext(ctx, t.q(query),
		g.DriverID,
		g.Destination.Name,
		nullFloat(g.Destination.Lat),
		nullFloat(g.Destination.Lon),
		g.TotalSeats,
		nullFloat(g.Price),
		nullTime(g.DepartureAt),
		g.Notes,
		nullInt(g.TripID),
		string(g.Status),
		g.CreatedAt,
		g.UpdatedAt,
	).Scan(&g.ID)
	if err != nil {
		// trip_id is the only unique column besides the key
		if isUniqueViolation(err) {
			return domain.ErrTripAlreadyGrouped
		}
		return wrap("create group", err)
	}
	return nil
}

func (t *tx) UpdateGroupStatus(ctx context.Context, groupID int64, status domain.GroupStatus, at time.Time) error {
	query := `UPDATE ride_groups SET status = $1, updated_at = $2 WHERE id = $3`

	if _, err := t.tx.ExecContext(ctx, t.q(query), string(status), at, groupID); err != nil {
		return wrap("update group status", err)
	}
	return nil
}

func (t *tx) GetMembership(ctx context.Context, groupID, userID int64) (*domain.Membership, error) {
	query := `SELECT ` + memberColumns + ` FROM group_members m WHERE m.group_id = $1 AND m.user_id = $2`

	m, err := scanMembership(t.tx.QueryRowContext(ctx, t.q(query), groupID, userID), false)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, wrap("get member", err)
	}
	return m, nil
}

func (t *tx) InsertMembership(ctx context.Context, m *domain.Membership) error {
	query := `
		INSERT INTO group_members (group_id, user_id, role, status, joined_at, approved_at, agreed_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := t.tx.QueryRowContext(ctx, t.q(query),
		m.GroupID, m.UserID, string(m.Role), string(m.Status), m.JoinedAt, nullTime(m.ApprovedAt), nullFloat(m.AgreedAmount),
	).Scan(&m.ID)
	if err != nil {
		return wrap("add member", err)
	}
	return nil
}

func (t *tx) UpdateMembership(ctx context.Context, m *domain.Membership) error {
	query := `
		UPDATE group_members
		SET status = $1, joined_at = $2, approved_at = $3, agreed_amount = $4
		WHERE id = $5
	`

	_, err := t.tx.ExecContext(ctx, t.q(query),
		string(m.Status), m.JoinedAt, nullTime(m.ApprovedAt), nullFloat(m.AgreedAmount), m.ID)
	if err != nil {
		return wrap("update member", err)
	}
	return nil
}

func (t *tx) CountApproved(ctx context.Context, groupID int64) (int, error) {
	query := `
		SELECT COUNT(*) FROM group_members
		WHERE group_id = $1 AND role = 'passenger' AND status = 'approved'
	`

	var n int
	if err := t.tx.QueryRowContext(ctx, t.q(query), groupID).Scan(&n); err != nil {
		return 0, wrap("count approved members", err)
	}
	return n, nil
}

func (t *tx) FindActiveMembership(ctx context.Context, userID, excludeGroupID int64) (*domain.Membership, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM group_members m
		JOIN ride_groups g ON g.id = m.group_id
		WHERE m.user_id = $1
		  AND m.group_id <> $2
		  AND m.status = 'approved'
		  AND g.status IN ('open', 'closed')
		ORDER BY m.id
		LIMIT 1
	`

	m, err := scanMembership(t.tx.QueryRowContext(ctx, t.q(query), userID, excludeGroupID), false)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, wrap("find active membership", err)
	}
	return m, nil
}

func (t *tx) GetRating(ctx context.Context, driverID, passengerID int64) (*domain.Rating, error) {
	query := `
		SELECT id, driver_id, passenger_id, group_id, score, comment, created_at, updated_at
		FROM driver_ratings
		WHERE driver_id = $1 AND passenger_id = $2
	`

	r := &domain.Rating{}
	err := t.tx.QueryRowContext(ctx, t.q(query), driverID, passengerID).Scan(
		&r.ID, &r.DriverID, &r.PassengerID, &r.GroupID, &r.Score, &r.Comment, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, wrap("get rating", err)
	}
	return r, nil
}

func (t *tx) InsertRating(ctx context.Context, r *domain.Rating) error {
	query := `
		INSERT INTO driver_ratings (driver_id, passenger_id, group_id, score, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := t.tx.QueryRowContext(ctx, t.q(query),
		r.DriverID, r.PassengerID, r.GroupID, r.Score, r.Comment, r.CreatedAt, r.UpdatedAt,
	).Scan(&r.ID)
	if err != nil {
		return wrap("create rating", err)
	}
	return nil
}

func (t *tx) UpdateRating(ctx context.Context, r *domain.Rating) error {
	query := `UPDATE driver_ratings SET group_id = $1, score = $2, comment = $3, updated_at = $4 WHERE id = $5`

	if _, err := t.tx.ExecContext(ctx, t.q(query), r.GroupID, r.Score, r.Comment, r.UpdatedAt, r.ID); err != nil {
		return wrap("update rating", err)
	}
	return nil
}

func (t *tx) RatingSummary(ctx context.Context, driverID int64) (domain.RatingSummary, error) {
	return ratingSummary(ctx, t.tx, t.q, driverID)
}
