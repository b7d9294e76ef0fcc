package sqlstore

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/uvgride/grouprides/internal/database"
	"github.com/uvgride/grouprides/internal/domain"
	"github.com/uvgride/grouprides/internal/group"
	"github.com/uvgride/grouprides/internal/vehicle"
)

// Runs against a real server when POSTGRES_TEST_URL is set, once per driver.
func forEachPostgresDriver(t *testing.T, lockTimeout time.Duration, fn func(t *testing.T, s *Store)) {
	url := os.Getenv("POSTGRES_TEST_URL")
	if url == "" {
		t.Skip("POSTGRES_TEST_URL not set")
	}
	for _, driver := range []string{"postgres", "pgx"} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			db, err := database.Connect(ctx, database.Options{Driver: driver, URL: url, Attempts: 1, LockTimeout: lockTimeout}, zap.NewNop())
			if err != nil {
				t.Fatalf("connect: %v", err)
			}
			t.Cleanup(func() { db.Close() })
			if err := database.Migrate(ctx, db, database.Postgres, zap.NewNop()); err != nil {
				t.Fatalf("migrate: %v", err)
			}
			fn(t, New(db, database.Postgres, lockTimeout))
		})
	}
}

// freshUsers returns ids no earlier run has used.
func freshUsers() int64 {
	return time.Now().UnixNano() / 1000 * 100
}

func newGroupService(s *Store) *group.Service {
	return group.NewService(s, group.NewRegistry(group.PolicyJoin), vehicle.AllowAll{}, nil, zap.NewNop())
}

func TestPostgresConcurrentJoinsNeverOverbook(t *testing.T) {
	forEachPostgresDriver(t, 5*time.Second, func(t *testing.T, s *Store) {
		ctx := context.Background()
		svc := newGroupService(s)
		base := freshUsers()

		g, err := svc.Create(ctx, group.CreateParams{DriverID: base, Destination: domain.Destination{Name: "Campus"}, TotalSeats: 3})
		if err != nil {
			t.Fatal(err)
		}

		const applicants = 20
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			admitted int
		)
		for i := int64(1); i <= applicants; i++ {
			wg.Add(1)
			go func(userID int64) {
				defer wg.Done()
				_, err := svc.Join(ctx, g.ID, userID, group.JoinOptions{})
				switch {
				case err == nil:
					mu.Lock()
					admitted++
					mu.Unlock()
				case errors.Is(err, domain.ErrCapacityExceeded):
				default:
					t.Errorf("join %d: %v", userID, err)
				}
			}(base + i)
		}
		wg.Wait()

		if admitted != 3 {
			t.Fatalf("admitted %d, want 3", admitted)
		}
		var approved int
		s.InTx(ctx, func(tx domain.Tx) error {
			approved, err = tx.CountApproved(ctx, g.ID)
			return err
		})
		if approved != 3 {
			t.Fatalf("stored approved = %d", approved)
		}
	})
}

func TestPostgresSingleActiveMembership(t *testing.T) {
	forEachPostgresDriver(t, 5*time.Second, func(t *testing.T, s *Store) {
		ctx := context.Background()
		svc := newGroupService(s)
		base := freshUsers()
		rider := base + 99

		groups := make([]int64, 5)
		for i := range groups {
			g, err := svc.Create(ctx, group.CreateParams{DriverID: base + int64(i), Destination: domain.Destination{Name: "Zona 4"}, TotalSeats: 2})
			if err != nil {
				t.Fatal(err)
			}
			groups[i] = g.ID
		}

		var (
			wg     sync.WaitGroup
			mu     sync.Mutex
			joined int
		)
		for _, id := range groups {
			wg.Add(1)
			go func(groupID int64) {
				defer wg.Done()
				_, err := svc.Join(ctx, groupID, rider, group.JoinOptions{})
				switch {
				case err == nil:
					mu.Lock()
					joined++
					mu.Unlock()
				case errors.Is(err, domain.ErrAlreadyInActiveGroup):
				default:
					t.Errorf("join group %d: %v", groupID, err)
				}
			}(id)
		}
		wg.Wait()

		if joined != 1 {
			t.Fatalf("rider joined %d groups, want 1", joined)
		}
	})
}

func TestPostgresLockTimeoutIsBusy(t *testing.T) {
	forEachPostgresDriver(t, 200*time.Millisecond, func(t *testing.T, s *Store) {
		ctx := context.Background()
		base := freshUsers()
		g, err := newGroupService(s).Create(ctx, group.CreateParams{DriverID: base, Destination: domain.Destination{Name: "Mall"}, TotalSeats: 1})
		if err != nil {
			t.Fatal(err)
		}

		held := make(chan struct{})
		release := make(chan struct{})
		done := make(chan error, 1)
		go func() {
			done <- s.InTx(ctx, func(tx domain.Tx) error {
				if err := tx.LockUser(ctx, base); err != nil {
					return err
				}
				if _, err := tx.LockGroup(ctx, g.ID); err != nil {
					return err
				}
				close(held)
				<-release
				return nil
			})
		}()
		select {
		case <-held:
		case err := <-done:
			t.Fatalf("holder failed: %v", err)
		}

		rowErr := s.InTx(ctx, func(tx domain.Tx) error {
			_, err := tx.LockGroup(ctx, g.ID)
			return err
		})
		keyErr := s.InTx(ctx, func(tx domain.Tx) error {
			return tx.LockUser(ctx, base)
		})
		close(release)
		if err := <-done; err != nil {
			t.Fatal(err)
		}

		if !errors.Is(rowErr, domain.ErrBusy) {
			t.Errorf("row lock err = %v, want BUSY", rowErr)
		}
		if !errors.Is(keyErr, domain.ErrBusy) {
			t.Errorf("advisory lock err = %v, want BUSY", keyErr)
		}
	})
}

func TestPostgresDuplicateTrip(t *testing.T) {
	forEachPostgresDriver(t, time.Second, func(t *testing.T, s *Store) {
		ctx := context.Background()
		svc := newGroupService(s)
		base := freshUsers()
		trip := base

		if _, err := svc.Create(ctx, group.CreateParams{DriverID: base, Destination: domain.Destination{Name: "Airport"}, TotalSeats: 2, TripID: &trip}); err != nil {
			t.Fatal(err)
		}
		_, err := svc.Create(ctx, group.CreateParams{DriverID: base + 1, Destination: domain.Destination{Name: "Airport"}, TotalSeats: 2, TripID: &trip})
		if !errors.Is(err, domain.ErrTripAlreadyGrouped) {
			t.Fatalf("err = %v", err)
		}
	})
}
