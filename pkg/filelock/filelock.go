// Package filelock implements §3's file lock model: POSIX-style byte range
// or advisory whole-file locks, tagged (inode, owner, session, type, range),
// with the invariants that exclusive locks on one inode are pairwise
// disjoint and a shared lock never overlaps another owner's exclusive lock.
//
// Grounded on LizardFS's src/master/filesystem_node_hardlinks... no single
// header owns this in the retrieval pack as cleanly as goal.h owns slices;
// this package instead follows the POSIX lock table idiom from
// src/master/lock_info.h (ordered ranges per inode) and
// src/master/manage_locks_command.cc's interrupt-on-wait handling,
// supplementing spec.md's data model with the wire contract SPEC_FULL.md §11
// describes for cancelling a blocked lock wait.
package filelock

import (
	"context"
	"sync"

	"github.com/NebulousLabs/errors"
)

// LockType is shared or exclusive.
type LockType int

const (
	Shared LockType = iota
	Exclusive
)

// Range is a half-open byte range [Start, End); End == 0 with Start == 0
// denotes a whole-file advisory lock.
type Range struct {
	Start, End uint64
}

func (r Range) overlaps(o Range) bool {
	if r.End == 0 && r.Start == 0 {
		return true
	}
	if o.End == 0 && o.Start == 0 {
		return true
	}
	return r.Start < o.End && o.Start < r.End
}

// Lock is one held or pending file lock.
type Lock struct {
	Inode   uint64
	Owner   uint64
	Session uint64
	Type    LockType
	Range   Range
}

// ErrWouldBlock is returned by TryAcquire when the lock conflicts with an
// existing holder.
var ErrWouldBlock = errors.New("lock request would block")

// ErrInterrupted is returned when a blocked Acquire's context is cancelled
// before the lock becomes available (the interrupt path manage_locks_
// command.cc exposes to let a client abort a stuck lock wait).
var ErrInterrupted = errors.New("lock wait interrupted")

type waiter struct {
	lock Lock
	ch   chan struct{}
}

// Manager holds every inode's lock table and pending waiters.
type Manager struct {
	mu      sync.Mutex
	held    map[uint64][]Lock // inode -> held locks
	waiters map[uint64][]*waiter
}

// NewManager returns an empty lock manager.
func NewManager() *Manager {
	return &Manager{held: map[uint64][]Lock{}, waiters: map[uint64][]*waiter{}}
}

func conflicts(existing []Lock, l Lock) bool {
	for _, h := range existing {
		if h.Owner == l.Owner {
			continue
		}
		if !h.Range.overlaps(l.Range) {
			continue
		}
		if h.Type == Exclusive || l.Type == Exclusive {
			return true
		}
	}
	return false
}

// TryAcquire attempts to grant l immediately, per the invariants in §3:
// exclusive locks pairwise disjoint; a shared lock does not overlap any
// exclusive lock held by a different owner.
func (m *Manager) TryAcquire(l Lock) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if conflicts(m.held[l.Inode], l) {
		return ErrWouldBlock
	}
	m.held[l.Inode] = append(m.held[l.Inode], l)
	return nil
}

// Acquire blocks until l can be granted or ctx is cancelled.
func (m *Manager) Acquire(ctx context.Context, l Lock) error {
	if err := m.TryAcquire(l); err == nil {
		return nil
	} else if !errors.Contains(err, ErrWouldBlock) {
		return err
	}

	w := &waiter{lock: l, ch: make(chan struct{})}
	m.mu.Lock()
	m.waiters[l.Inode] = append(m.waiters[l.Inode], w)
	m.mu.Unlock()

	select {
	case <-w.ch:
		return nil
	case <-ctx.Done():
		m.removeWaiter(l.Inode, w)
		return ErrInterrupted
	}
}

func (m *Manager) removeWaiter(inode uint64, w *waiter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws := m.waiters[inode]
	for i, cand := range ws {
		if cand == w {
			m.waiters[inode] = append(ws[:i], ws[i+1:]...)
			return
		}
	}
}

// Release drops l and wakes any waiter now satisfiable.
func (m *Manager) Release(l Lock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	held := m.held[l.Inode]
	for i, h := range held {
		if h.Owner == l.Owner && h.Range == l.Range && h.Type == l.Type {
			m.held[l.Inode] = append(held[:i], held[i+1:]...)
			break
		}
	}

	var remaining []*waiter
	for _, w := range m.waiters[l.Inode] {
		if conflicts(m.held[l.Inode], w.lock) {
			remaining = append(remaining, w)
			continue
		}
		m.held[l.Inode] = append(m.held[l.Inode], w.lock)
		close(w.ch)
	}
	m.waiters[l.Inode] = remaining
}
