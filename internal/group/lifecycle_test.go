package group

import (
	"context"
	"errors"
	"math"
	"testing"

	"go.uber.org/zap"

	"github.com/uvgride/grouprides/internal/domain"
	"github.com/uvgride/grouprides/internal/store/memstore"
)

func TestCanTransition(t *testing.T) {
	all := []domain.GroupStatus{domain.StatusOpen, domain.StatusClosed, domain.StatusCancelled, domain.StatusFinalized}
	allowed := map[[2]domain.GroupStatus]bool{
		{domain.StatusOpen, domain.StatusClosed}:      true,
		{domain.StatusOpen, domain.StatusCancelled}:   true,
		{domain.StatusClosed, domain.StatusCancelled}: true,
		{domain.StatusClosed, domain.StatusFinalized}: true,
	}
	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]domain.GroupStatus{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestRejectedTransitionLeavesStatusUnchanged(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		path   []domain.GroupStatus
		target domain.GroupStatus
	}{
		{"finalized to open", []domain.GroupStatus{domain.StatusClosed, domain.StatusFinalized}, domain.StatusOpen},
		{"cancelled to closed", []domain.GroupStatus{domain.StatusCancelled}, domain.StatusClosed},
		{"open to finalized", nil, domain.StatusFinalized},
		{"closed to open", []domain.GroupStatus{domain.StatusClosed}, domain.StatusOpen},
		{"closed to closed", []domain.GroupStatus{domain.StatusClosed}, domain.StatusClosed},
		{"unknown status", nil, domain.GroupStatus("archived")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, PolicyJoin)
			g := createGroup(t, svc, 1, 2)
			for _, step := range tt.path {
				if _, err := svc.ChangeStatus(ctx, g.ID, 1, step); err != nil {
					t.Fatalf("step to %s: %v", step, err)
				}
			}
			before, _, _ := svc.GetByIDWithMembers(ctx, g.ID)

			if _, err := svc.ChangeStatus(ctx, g.ID, 1, tt.target); !errors.Is(err, domain.ErrInvalidTransition) {
				t.Fatalf("err = %v, want invalid transition", err)
			}

			after, _, _ := svc.GetByIDWithMembers(ctx, g.ID)
			if after.Status != before.Status {
				t.Errorf("status changed from %s to %s", before.Status, after.Status)
			}
		})
	}
}

func TestTransitionAcceptsMixedCase(t *testing.T) {
	svc, _ := newTestService(t, PolicyJoin)
	g := createGroup(t, svc, 1, 2)
	updated, err := svc.ChangeStatus(context.Background(), g.ID, 1, "Cancelled")
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != domain.StatusCancelled {
		t.Errorf("status = %s", updated.Status)
	}
}

func TestTransitionRequiresDriver(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, PolicyJoin)
	g := createGroup(t, svc, 1, 2)
	mustJoin(t, svc, g.ID, 2)

	if _, err := svc.ChangeStatus(ctx, g.ID, 2, domain.StatusClosed); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("err = %v, want not authorized", err)
	}
	if _, err := svc.ChangeStatus(ctx, 404, 1, domain.StatusClosed); !errors.Is(err, domain.ErrGroupNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestCreateRequiresVehicle(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewService(store, NewRegistry(PolicyJoin), store, nil, zap.NewNop())

	params := CreateParams{DriverID: 1, Destination: domain.Destination{Name: "Airport"}, TotalSeats: 3}
	if _, err := svc.Create(ctx, params); !errors.Is(err, domain.ErrNoVehicle) {
		t.Fatalf("err = %v, want no vehicle", err)
	}

	store.AddVehicle(1)
	g, err := svc.Create(ctx, params)
	if err != nil {
		t.Fatal(err)
	}

	_, members, err := svc.GetByIDWithMembers(ctx, g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 1 || members[0].Role != domain.RoleDriver || !members[0].Approved() {
		t.Fatalf("members = %+v", members)
	}
}

func TestCreateValidation(t *testing.T) {
	nan := math.NaN()
	negative := -1.0
	badLat := 91.0
	zero := int64(0)

	tests := []struct {
		name   string
		params CreateParams
	}{
		{"no driver", CreateParams{Destination: domain.Destination{Name: "X"}, TotalSeats: 1}},
		{"no seats", CreateParams{DriverID: 1, Destination: domain.Destination{Name: "X"}}},
		{"blank destination", CreateParams{DriverID: 1, Destination: domain.Destination{Name: "  "}, TotalSeats: 1}},
		{"markup-only destination", CreateParams{DriverID: 1, Destination: domain.Destination{Name: "<b></b>"}, TotalSeats: 1}},
		{"latitude out of range", CreateParams{DriverID: 1, Destination: domain.Destination{Name: "X", Lat: &badLat}, TotalSeats: 1}},
		{"nan price", CreateParams{DriverID: 1, Destination: domain.Destination{Name: "X"}, TotalSeats: 1, Price: &nan}},
		{"negative price", CreateParams{DriverID: 1, Destination: domain.Destination{Name: "X"}, TotalSeats: 1, Price: &negative}},
		{"zero trip", CreateParams{DriverID: 1, Destination: domain.Destination{Name: "X"}, TotalSeats: 1, TripID: &zero}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, PolicyJoin)
			if _, err := svc.Create(context.Background(), tt.params); !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("err = %v, want validation failure", err)
			}
		})
	}
}

func TestCreateSanitizesText(t *testing.T) {
	svc, _ := newTestService(t, PolicyJoin)
	g, err := svc.Create(context.Background(), CreateParams{
		DriverID:    1,
		Destination: domain.Destination{Name: "<script>x</script>Library"},
		TotalSeats:  2,
		Notes:       "<i>meet</i> at gate 3",
	})
	if err != nil {
		t.Fatal(err)
	}
	if g.Destination.Name != "Library" || g.Notes != "meet at gate 3" {
		t.Errorf("destination = %q, notes = %q", g.Destination.Name, g.Notes)
	}
}

func TestCreateRejectsSecondGroupForTrip(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, PolicyJoin)
	trip := int64(7)

	first, err := svc.Create(ctx, CreateParams{DriverID: 1, Destination: domain.Destination{Name: "Airport"}, TotalSeats: 2, TripID: &trip})
	if err != nil {
		t.Fatal(err)
	}
	_, err = svc.Create(ctx, CreateParams{DriverID: 2, Destination: domain.Destination{Name: "Airport"}, TotalSeats: 2, TripID: &trip})
	if !errors.Is(err, domain.ErrTripAlreadyGrouped) || domain.KindOf(err) != domain.KindConflict {
		t.Fatalf("second create err = %v", err)
	}

	// the rejected create left nothing behind, so driver 2 can still open a group
	if _, err := svc.Create(ctx, CreateParams{DriverID: 2, Destination: domain.Destination{Name: "Airport"}, TotalSeats: 2}); err != nil {
		t.Fatalf("create without trip: %v", err)
	}
	if _, err := svc.Create(ctx, CreateParams{DriverID: 3, Destination: domain.Destination{Name: "Airport"}, TotalSeats: 2, TripID: &trip}); !errors.Is(err, domain.ErrTripAlreadyGrouped) {
		t.Fatalf("trip of %d reused: %v", first.ID, err)
	}
}
