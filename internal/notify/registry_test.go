package notify

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingHandle struct {
	mu    sync.Mutex
	calls int
}

func (h *countingHandle) Cancel() {
	h.mu.Lock()
	h.calls++
	h.mu.Unlock()
}

func (h *countingHandle) cancelled() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

func TestRegistry_PutAssignsIncreasingSeq(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	a := &entry{req: Request{CellID: "a"}}
	b := &entry{req: Request{CellID: "b"}}
	assert.Nil(t, r.put(a))
	assert.Nil(t, r.put(b))

	assert.Less(t, a.seq, b.seq)
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_PutReturnsSuperseded(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	first := &entry{req: Request{CellID: "c1", SuccessMessage: "one"}}
	second := &entry{req: Request{CellID: "c1", SuccessMessage: "two"}}
	r.put(first)

	prev := r.put(second)

	assert.Same(t, first, prev)
	got, ok := r.Lookup("c1")
	require.True(t, ok)
	assert.Equal(t, "two", got.SuccessMessage)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_ResolveIsOnce(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	r.put(&entry{req: Request{CellID: "c1"}})

	_, ok := r.resolve("c1", 0)
	assert.True(t, ok)

	_, ok = r.resolve("c1", 0)
	assert.False(t, ok)
	assert.Zero(t, r.Len())
}

func TestRegistry_ResolveChecksSeq(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	old := &entry{req: Request{CellID: "c1"}}
	r.put(old)
	r.put(&entry{req: Request{CellID: "c1"}})

	_, ok := r.resolve("c1", old.seq)

	assert.False(t, ok, "superseded seq must not resolve the newer entry")
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_AttachTimer(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	e := &entry{req: Request{CellID: "c1"}}
	r.put(e)
	h := &countingHandle{}

	assert.True(t, r.attachTimer("c1", e.seq, h))
	assert.False(t, r.attachTimer("c1", e.seq+1, h))
	assert.False(t, r.attachTimer("missing", e.seq, h))
}

func TestRegistry_RemoveCancelsTimer(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	e := &entry{req: Request{CellID: "c1"}}
	r.put(e)
	h := &countingHandle{}
	r.attachTimer("c1", e.seq, h)

	r.Remove("c1")
	r.Remove("c1")

	assert.Equal(t, 1, h.cancelled())
	_, ok := r.Lookup("c1")
	assert.False(t, ok)
}

func TestRegistry_ConcurrentResolveExactlyOnce(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	r.put(&entry{req: Request{CellID: "c1"}})

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := r.resolve("c1", 0); ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestRegistry_IDs(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	r.put(&entry{req: Request{CellID: "a"}})
	r.put(&entry{req: Request{CellID: "b"}})

	assert.ElementsMatch(t, []string{"a", "b"}, r.IDs())
}
