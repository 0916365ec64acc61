package gen_relay

import (
	"sync"

	"github.com/fablecraft/gen-relay/clients/llm"
	"github.com/fablecraft/gen-relay/config"
)

// backendClient pairs a backend descriptor with the client constructed for it
type backendClient struct {
	backend config.Backend
	client  llm.Client
}

// loadBalancer rotates over an ordered snapshot of enabled backends. Pure
// round robin with no health awareness: a backend that just failed can be
// selected again on the very next call. The lock guards the snapshot and the
// cursor; swap replaces the whole snapshot so readers never see a torn list.
type loadBalancer struct {
	mu     sync.Mutex
	items  []backendClient
	cursor int
}

func newLoadBalancer() *loadBalancer {
	return &loadBalancer{}
}

// next returns the backend at the cursor and advances it modulo the list
// length. Returns false when no backends are configured.
func (lb *loadBalancer) next() (backendClient, bool) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if len(lb.items) == 0 {
		return backendClient{}, false
	}

	item := lb.items[lb.cursor]
	lb.cursor = (lb.cursor + 1) % len(lb.items)
	return item, true
}

// swap replaces the backend snapshot and resets the cursor. In-flight calls
// holding a previous selection are unaffected.
func (lb *loadBalancer) swap(items []backendClient) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.items = items
	lb.cursor = 0
}

// size returns the number of backends in the current snapshot
func (lb *loadBalancer) size() int {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return len(lb.items)
}
