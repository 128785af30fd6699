package notify

import "sync"

// entry is one pending registration together with its timer.
type entry struct {
	req   Request
	seq   uint64
	timer Handle
}

// Registry maps cell ids to pending registrations. It is the only owner of
// in-flight state and never blocks on I/O.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	nextSeq uint64
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// put stores e under its cell id, assigning it a fresh sequence number.
// The superseded entry, if any, is returned so its timer can be cancelled.
func (r *Registry) put(e *entry) (previous *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextSeq++
	e.seq = r.nextSeq
	previous = r.entries[e.req.CellID]
	r.entries[e.req.CellID] = e
	return previous
}

// attachTimer records the timer for the entry with the given sequence.
// It reports false when the entry was already resolved or superseded, in
// which case the caller owns the handle and must cancel it.
func (r *Registry) attachTimer(id string, seq uint64, h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok || e.seq != seq {
		return false
	}
	e.timer = h
	return true
}

// resolve removes and returns the pending entry for id in one step.
// A zero seq matches any entry; otherwise the entry must carry that seq.
func (r *Registry) resolve(id string, seq uint64) (*entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok || (seq != 0 && e.seq != seq) {
		return nil, false
	}
	delete(r.entries, id)
	return e, true
}

// Lookup returns the pending request for id without modifying it.
func (r *Registry) Lookup(id string) (Request, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return Request{}, false
	}
	return e.req, true
}

// Remove drops the entry for id, cancelling its timer. No-op if absent.
func (r *Registry) Remove(id string) {
	e, ok := r.resolve(id, 0)
	if ok && e.timer != nil {
		e.timer.Cancel()
	}
}

// Len returns the number of pending registrations.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// IDs returns the pending cell ids in no particular order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}
