package group

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/uvgride/grouprides/internal/domain"
	"github.com/uvgride/grouprides/internal/store/memstore"
	"github.com/uvgride/grouprides/internal/vehicle"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
	last   []int64
}

func (n *recordingNotifier) record(e string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) NotifyMemberJoined(_, _, _ int64) { n.record("joined") }
func (n *recordingNotifier) NotifyMemberLeft(_, _, _ int64)   { n.record("left") }
func (n *recordingNotifier) NotifyStatusChanged(recipients []int64, _, _ int64, status domain.GroupStatus) {
	n.mu.Lock()
	n.last = recipients
	n.mu.Unlock()
	n.record(string(status))
}

func TestServiceNotifiesAfterCommit(t *testing.T) {
	ctx := context.Background()
	n := &recordingNotifier{}
	svc := NewService(memstore.New(), NewRegistry(PolicyJoin), vehicle.AllowAll{}, n, zap.NewNop())

	g := createGroup(t, svc, 1, 1)
	mustJoin(t, svc, g.ID, 2)
	if _, err := svc.Join(ctx, g.ID, 3, JoinOptions{}); err == nil {
		t.Fatal("expected capacity rejection")
	}
	if _, err := svc.ChangeStatus(ctx, g.ID, 1, domain.StatusClosed); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Leave(ctx, g.ID, 2); err != nil {
		t.Fatal(err)
	}

	want := []string{"joined", "closed", "left"}
	if len(n.events) != len(want) {
		t.Fatalf("events = %v, want %v", n.events, want)
	}
	for i := range want {
		if n.events[i] != want[i] {
			t.Fatalf("events = %v, want %v", n.events, want)
		}
	}
	if len(n.last) != 1 || n.last[0] != 2 {
		t.Errorf("status recipients = %v", n.last)
	}
}

func TestListPagination(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, PolicyJoin)
	store.AddUser(1, "Ana Driver")

	for i := 0; i < 5; i++ {
		createGroup(t, svc, int64(1+i), 2)
	}
	closed := createGroup(t, svc, 50, 2)
	if _, err := svc.ChangeStatus(ctx, closed.ID, 50, domain.StatusClosed); err != nil {
		t.Fatal(err)
	}

	page, total, err := svc.List(ctx, domain.ListFilter{Status: domain.StatusOpen}, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if total != 5 || len(page) != 2 {
		t.Fatalf("total = %d, page = %d", total, len(page))
	}

	all, total, _ := svc.List(ctx, domain.ListFilter{}, 1, 0)
	if total != 6 || len(all) != 6 {
		t.Fatalf("unfiltered total = %d, len = %d", total, len(all))
	}

	byDriver, total, _ := svc.List(ctx, domain.ListFilter{Query: "ana"}, 1, 20)
	if total != 1 || byDriver[0].DriverID != 1 {
		t.Fatalf("search = %+v", byDriver)
	}
}
