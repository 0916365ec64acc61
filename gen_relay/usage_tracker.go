package gen_relay

import (
	"sync"

	"github.com/fablecraft/gen-relay/clients/llm"
	"github.com/fablecraft/gen-relay/utils/token_counter"
)

// BackendUsage is cumulative consumption for one backend
type BackendUsage struct {
	Tokens   int
	Requests int
}

// UsageStats is a snapshot of per-backend and total consumption since the
// relay was constructed
type UsageStats struct {
	PerBackend    map[string]BackendUsage
	TotalTokens   int
	TotalRequests int
}

// usageTracker accumulates token and request consumption per backend name.
// When a backend response carries no usage block the tracker falls back to a
// tiktoken estimate of prompt plus completion.
type usageTracker struct {
	mu         sync.RWMutex
	perBackend map[string]BackendUsage
	total      BackendUsage

	counter token_counter.TokenCounterInterface
}

func newUsageTracker(counter token_counter.TokenCounterInterface) *usageTracker {
	return &usageTracker{
		perBackend: make(map[string]BackendUsage),
		counter:    counter,
	}
}

// record adds one request and the given token count against a backend
func (t *usageTracker) record(backend string, tokens int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	usage := t.perBackend[backend]
	usage.Tokens += tokens
	usage.Requests++
	t.perBackend[backend] = usage

	t.total.Tokens += tokens
	t.total.Requests++
}

// tokensFor returns the token count for a completed call: the backend's own
// usage block when present, otherwise an estimate
func (t *usageTracker) tokensFor(messages []llm.Message, resp *llm.Response) int {
	if resp == nil {
		return 0
	}
	if resp.Usage.TotalTokens > 0 {
		return resp.Usage.TotalTokens
	}
	if t.counter == nil {
		return 0
	}
	return t.counter.CountMessagesTokens(messages) + t.counter.CountTextTokens(resp.Content)
}

// stats returns a copy of the accumulated usage
func (t *usageTracker) stats() UsageStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	perBackend := make(map[string]BackendUsage, len(t.perBackend))
	for name, usage := range t.perBackend {
		perBackend[name] = usage
	}
	return UsageStats{
		PerBackend:    perBackend,
		TotalTokens:   t.total.Tokens,
		TotalRequests: t.total.Requests,
	}
}
