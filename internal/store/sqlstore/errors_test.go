package sqlstore

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/uvgride/grouprides/internal/domain"
)

func TestWrapClassifiesContention(t *testing.T) {
	tests := []struct {
		name string
		err  error
		busy bool
	}{
		{"pq lock timeout", &pq.Error{Code: "55P03"}, true},
		{"pq deadlock", &pq.Error{Code: "40P01"}, true},
		{"pq unique violation", &pq.Error{Code: "23505"}, false},
		{"pgx serialization", &pgconn.PgError{Code: "40001"}, true},
		{"sqlite busy", sqlite3.Error{Code: sqlite3.ErrBusy}, true},
		{"sqlite locked", sqlite3.Error{Code: sqlite3.ErrLocked}, true},
		{"plain", errors.New("connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrap("lock group", tt.err)
			if got := errors.Is(err, domain.ErrBusy); got != tt.busy {
				t.Fatalf("busy = %v, want %v (%v)", got, tt.busy, err)
			}
		})
	}
}

func TestLikePatternEscapes(t *testing.T) {
	if got := likePattern("50%_Off"); got != `%50\%\_off%` {
		t.Errorf("likePattern = %s", got)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"pq", &pq.Error{Code: "23505"}, true},
		{"pgx", &pgconn.PgError{Code: "23505"}, true},
		{"pq lock timeout", &pq.Error{Code: "55P03"}, false},
		{"sqlite unique", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, true},
		{"sqlite check", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintCheck}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		if got := isUniqueViolation(tt.err); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}
