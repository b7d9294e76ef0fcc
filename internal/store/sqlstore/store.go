// Package sqlstore implements domain.Store on database/sql for Postgres
// (lib/pq or pgx) and SQLite.
//
// On Postgres the group row is locked with SELECT ... FOR UPDATE and user
// and rating keys with transaction-scoped advisory locks, all bounded by
// lock_timeout. SQLite connections open their transactions with
// BEGIN IMMEDIATE, which serialises writers for the whole database, so the
// finer-grained locks are no-ops there.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/uvgride/grouprides/internal/database"
	"github.com/uvgride/grouprides/internal/domain"
)

// Store handles group, membership and rating persistence
type Store struct {
	db          *sql.DB
	dialect     database.Dialect
	lockTimeout time.Duration
}

// New creates a new SQL-backed store
func New(db *sql.DB, dialect database.Dialect, lockTimeout time.Duration) *Store {
	if lockTimeout <= 0 {
		lockTimeout = 2 * time.Second
	}
	return &Store{db: db, dialect: dialect, lockTimeout: lockTimeout}
}

func (s *Store) q(query string) string {
	return database.Rebind(s.dialect, query)
}

// InTx runs fn inside a database transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx domain.Tx) error) (err error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("begin transaction", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = sqlTx.Rollback()
		}
	}()

	if s.dialect == database.Postgres {
		// SET does not take bind parameters.
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
		if _, err = sqlTx.ExecContext(ctx, stmt); err != nil {
			return wrap("set lock timeout", err)
		}
	}

	if err = fn(&tx{tx: sqlTx, dialect: s.dialect}); err != nil {
		return err
	}

	if err = sqlTx.Commit(); err != nil {
		return wrap("commit transaction", err)
	}
	return nil
}

const groupColumns = `g.id, g.driver_id, g.destination_name, g.destination_lat, g.destination_lon,
	g.total_seats, g.price, g.departure_at, g.notes, g.trip_id, g.status, g.created_at, g.updated_at`

const memberColumns = `m.id, m.group_id, m.user_id, m.role, m.status, m.joined_at, m.approved_at, m.agreed_amount`

const approvedCountExpr = `(SELECT COUNT(*) FROM group_members c
	WHERE c.group_id = g.id AND c.role = 'passenger' AND c.status = 'approved')`

// GetGroup retrieves a group by its ID
func (s *Store) GetGroup(ctx context.Context, id int64) (*domain.Group, error) {
	query := `
		SELECT ` + groupColumns + `, COALESCE(u.name, '')
		FROM ride_groups g
		LEFT JOIN users u ON u.id = g.driver_id
		WHERE g.id = $1
	`

	g, err := scanGroup(s.db.QueryRowContext(ctx, s.q(query), id), true)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, wrap("get group", err)
	}
	return g, nil
}

// ListGroups retrieves groups with their live seat usage, newest first.
func (s *Store) ListGroups(ctx context.Context, filter domain.ListFilter, limit, offset int) ([]domain.GroupView, int, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("g.status = $%d", len(args)))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, likePattern(q))
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			`(LOWER(g.destination_name) LIKE $%d ESCAPE '\' OR LOWER(COALESCE(u.name, '')) LIKE $%d ESCAPE '\')`, n, n))
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM ride_groups g LEFT JOIN users u ON u.id = g.driver_id ` + where
	if err := s.db.QueryRowContext(ctx, s.q(countQuery), args...).Scan(&total); err != nil {
		return nil, 0, wrap("count groups", err)
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT %s, COALESCE(u.name, ''), %s
		FROM ride_groups g
		LEFT JOIN users u ON u.id = g.driver_id
		%s
		ORDER BY g.created_at DESC, g.id DESC
		LIMIT $%d OFFSET $%d
	`, groupColumns, approvedCountExpr, where, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, 0, wrap("list groups", err)
	}
	defer rows.Close()

	views := make([]domain.GroupView, 0)
	for rows.Next() {
		var (
			row      groupRow
			approved int
		)
		dest := append(row.targets(), &row.driverName, &approved)
		if err := rows.Scan(dest...); err != nil {
			return nil, 0, wrap("scan group", err)
		}
		views = append(views, domain.NewGroupView(*row.group(), approved))
	}
	if err := rows.Err(); err != nil {
		return nil, 0, wrap("iterate groups", err)
	}

	return views, total, nil
}

// ListMembers retrieves every membership of a group, driver first.
func (s *Store) ListMembers(ctx context.Context, groupID int64) ([]*domain.Membership, error) {
	query := `
		SELECT ` + memberColumns + `, COALESCE(u.name, '')
		FROM group_members m
		LEFT JOIN users u ON u.id = m.user_id
		WHERE m.group_id = $1
		ORDER BY CASE WHEN m.role = 'driver' THEN 0 ELSE 1 END, m.id
	`

	rows, err := s.db.QueryContext(ctx, s.q(query), groupID)
	if err != nil {
		return nil, wrap("get members", err)
	}
	defer rows.Close()

	members := make([]*domain.Membership, 0)
	for rows.Next() {
		m, err := scanMembership(rows, true)
		if err != nil {
			return nil, wrap("scan member", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate members", err)
	}
	return members, nil
}

// ListRatings retrieves a driver's ratings, most recently updated first.
func (s *Store) ListRatings(ctx context.Context, driverID int64, limit, offset int) ([]*domain.Rating, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM driver_ratings WHERE driver_id = $1`
	if err := s.db.QueryRowContext(ctx, s.q(countQuery), driverID).Scan(&total); err != nil {
		return nil, 0, wrap("count ratings", err)
	}

	query := `
		SELECT r.id, r.driver_id, r.passenger_id, r.group_id, r.score, r.comment,
		       r.created_at, r.updated_at, COALESCE(u.name, '')
		FROM driver_ratings r
		LEFT JOIN users u ON u.id = r.passenger_id
		WHERE r.driver_id = $1
		ORDER BY r.updated_at DESC, r.id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, s.q(query), driverID, limit, offset)
	if err != nil {
		return nil, 0, wrap("list ratings", err)
	}
	defer rows.Close()

	ratings := make([]*domain.Rating, 0)
	for rows.Next() {
		r := &domain.Rating{}
		if err := rows.Scan(&r.ID, &r.DriverID, &r.PassengerID, &r.GroupID, &r.Score, &r.Comment,
			&r.CreatedAt, &r.UpdatedAt, &r.PassengerName); err != nil {
			return nil, 0, wrap("scan rating", err)
		}
		ratings = append(ratings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, wrap("iterate ratings", err)
	}
	return ratings, total, nil
}

// RatingSummary computes the driver's aggregate from the stored ratings.
func (s *Store) RatingSummary(ctx context.Context, driverID int64) (domain.RatingSummary, error) {
	return ratingSummary(ctx, s.db, s.q, driverID)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func ratingSummary(ctx context.Context, db queryer, rebind func(string) string, driverID int64) (domain.RatingSummary, error) {
	query := `
		SELECT COUNT(*), CAST(AVG(score) AS DOUBLE PRECISION)
		FROM driver_ratings
		WHERE driver_id = $1
	`

	var (
		count int
		mean  sql.NullFloat64
	)
	if err := db.QueryRowContext(ctx, rebind(query), driverID).Scan(&count, &mean); err != nil {
		return domain.RatingSummary{}, wrap("summarize ratings", err)
	}
	return domain.NewRatingSummary(driverID, count, mean.Float64), nil
}

func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(q)) + "%"
}
