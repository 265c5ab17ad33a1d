package cart

import "sync"

// customerLocks serializes mutating cart operations per customer within this
// process. Entries are reference counted so the map does not grow with every
// customer ever seen.
type customerLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newCustomerLocks() *customerLocks {
	return &customerLocks{entries: make(map[string]*lockEntry)}
}

// acquire blocks until the customer's lock is held and returns the release
// function.
func (l *customerLocks) acquire(customerID string) func() {
	l.mu.Lock()
	entry, ok := l.entries[customerID]
	if !ok {
		entry = &lockEntry{}
		l.entries[customerID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, customerID)
		}
		l.mu.Unlock()
	}
}
