package service

import (
	"sort"
	"sync"
)

// accountLocks hands out one mutex per account identifier so every
// read-modify-write on a balance runs under mutual exclusion. Mutexes
// live for the process lifetime.
type accountLocks struct {
	mu   sync.Mutex
	held map[string]*sync.Mutex
}

func newAccountLocks() *accountLocks {
	return &accountLocks{held: make(map[string]*sync.Mutex)}
}

// lock acquires the mutexes for the given accounts in sorted identifier
// order, so two transfers touching the same pair cannot deadlock. The
// returned func releases them in reverse order.
func (a *accountLocks) lock(ids ...string) func() {
	sorted := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			sorted = append(sorted, id)
		}
	}
	sort.Strings(sorted)

	locked := make([]*sync.Mutex, 0, len(sorted))
	for _, id := range sorted {
		a.mu.Lock()
		m, ok := a.held[id]
		if !ok {
			m = &sync.Mutex{}
			a.held[id] = m
		}
		a.mu.Unlock()
		m.Lock()
		locked = append(locked, m)
	}

	return func() {
		for i := len(locked) - 1; i >= 0; i-- {
			locked[i].Unlock()
		}
	}
}
