// Package vehicle answers whether a user may drive. Vehicle records are owned
// by the vehicle service; this package only reads them.
package vehicle

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uvgride/grouprides/internal/database"
)

// Registry reports driver eligibility
type Registry interface {
	HasVehicle(ctx context.Context, userID int64) (bool, error)
}

// SQLRegistry reads the vehicles table
type SQLRegistry struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewSQLRegistry creates a registry backed by the vehicles table
func NewSQLRegistry(db *sql.DB, dialect database.Dialect) *SQLRegistry {
	return &SQLRegistry{db: db, dialect: dialect}
}

// HasVehicle reports whether userID owns at least one vehicle.
func (r *SQLRegistry) HasVehicle(ctx context.Context, userID int64) (bool, error) {
	query := database.Rebind(r.dialect, `SELECT COUNT(*) FROM vehicles WHERE user_id = $1`)

	var n int
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check vehicles: %w", err)
	}
	return n > 0, nil
}

// AllowAll treats every user as eligible. Used when no vehicle data is available.
type AllowAll struct{}

func (AllowAll) HasVehicle(context.Context, int64) (bool, error) { return true, nil }
