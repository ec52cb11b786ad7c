// Package locks provides per-key mutual exclusion.
package locks

import (
	"sort"
	"sync"
)

// Keyed hands out one mutex per key. Mutexes are never freed; the key space
// is the set of entity ids, which stays small for a single user.
type Keyed struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewKeyed() *Keyed {
	return &Keyed{locks: make(map[string]*sync.Mutex)}
}

func (k *Keyed) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()

	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

// Lock acquires every key in sorted order, skipping duplicates, and returns
// the matching unlock function. Callers taking overlapping key sets can not
// deadlock each other.
func (k *Keyed) Lock(keys ...string) (unlock func()) {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	held := make([]*sync.Mutex, 0, len(sorted))
	for i, key := range sorted {
		if i > 0 && key == sorted[i-1] {
			continue
		}
		m := k.get(key)
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
