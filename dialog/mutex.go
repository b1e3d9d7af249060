package dialog

import (
	"context"
	"sync"
)

// Mutex is a FIFO, cancel-safe lock for serializing commands on a
// connection shared across goroutines (spec.md §4.3). Unlike sync.Mutex, a
// cancelled waiter removes itself from the queue without disturbing the
// others, and release transfers ownership directly to the next waiter
// rather than simply clearing a flag for everyone to race over again.
//
// The zero value is an unlocked Mutex, ready to use.
type Mutex struct {
	mu     sync.Mutex
	locked bool
	queue  []chan struct{}
}

// Lock blocks until the mutex is acquired or ctx is done. On success, the
// caller must call Unlock exactly once. On cancellation, Lock returns
// ctx.Err() and the waiter is removed from the queue; waiters behind it are
// unaffected.
func (m *Mutex) Lock(ctx context.Context) error {
	m.mu.Lock()
	if !m.locked {
		m.locked = true
		m.mu.Unlock()
		return nil
	}
	ready := make(chan struct{})
	m.queue = append(m.queue, ready)
	m.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		m.mu.Lock()
		for i, c := range m.queue {
			if c == ready {
				m.queue = append(m.queue[:i], m.queue[i+1:]...)
				m.mu.Unlock()
				return ctx.Err()
			}
		}
		m.mu.Unlock()
		// We were already handed ownership (Unlock removed us from the
		// queue and closed ready) concurrently with our cancellation; honor
		// the grant instead of reporting an error for a lock we now hold.
		select {
		case <-ready:
			return nil
		default:
			return ctx.Err()
		}
	}
}

// Unlock releases the mutex. If waiters are queued, ownership transfers
// directly to the head of the queue (woken by closing its channel); the
// locked flag is never cleared in that case, since the lock never actually
// became free. If the queue is empty, the mutex is marked free. Unlock
// never blocks and never panics on its own account.
func (m *Mutex) Unlock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		m.locked = false
		return
	}
	next := m.queue[0]
	m.queue = m.queue[1:]
	close(next)
}
