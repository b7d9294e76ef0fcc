package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/uvgride/grouprides/internal/domain"
)

// lockTable hands out one exclusive slot per key. A slot is a buffered
// channel of size one: sending acquires it, receiving releases it.
// Slots are never reclaimed; the key space is bounded by users and groups.
type lockTable struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func newLockTable() *lockTable {
	return &lockTable{slots: make(map[string]chan struct{})}
}

func (l *lockTable) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

func (l *lockTable) acquire(ctx context.Context, key string, timeout time.Duration) error {
	ch := l.slot(key)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: timed out waiting for %s", domain.ErrBusy, key)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *lockTable) release(key string) {
	<-l.slot(key)
}

func userKey(id int64) string   { return fmt.Sprintf("user:%d", id) }
func ratingKey(id int64) string { return fmt.Sprintf("ratings:%d", id) }
func groupKey(id int64) string  { return fmt.Sprintf("group:%d", id) }
