package token_counter

import (
	"testing"

	"github.com/fablecraft/gen-relay/clients/llm"
	"github.com/stretchr/testify/assert"
)

// newCounter skips the test when the encoding data cannot be fetched, which
// happens on machines without network access and an empty tiktoken cache
func newCounter(t *testing.T) TokenCounterInterface {
	t.Helper()
	tc, err := NewTokenCounter()
	if err != nil {
		t.Skipf("tiktoken encoding unavailable: %v", err)
	}
	return tc
}

func TestCountTextTokens(t *testing.T) {
	tc := newCounter(t)

	assert.Equal(t, 0, tc.CountTextTokens(""))
	assert.Greater(t, tc.CountTextTokens("hello world"), 0)

	short := tc.CountTextTokens("hi")
	long := tc.CountTextTokens("a considerably longer sentence with many more words in it")
	assert.Greater(t, long, short)
}

func TestCountMessagesTokens(t *testing.T) {
	tc := newCounter(t)

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: "You are a helpful assistant"},
		{Role: llm.RoleUser, Content: "Write the opening line of a story"},
	}

	total := tc.CountMessagesTokens(messages)
	// At minimum the per-message overhead applies
	assert.GreaterOrEqual(t, total, 8)

	// Adding a message strictly increases the estimate
	more := append(messages, llm.Message{Role: llm.RoleAssistant, Content: "Once upon a time"})
	assert.Greater(t, tc.CountMessagesTokens(more), total)
}

func TestCountMessagesTokens_Empty(t *testing.T) {
	tc := newCounter(t)

	assert.Equal(t, 0, tc.CountMessagesTokens(nil))
}
