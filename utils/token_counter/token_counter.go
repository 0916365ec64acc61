package token_counter

import (
	"fmt"

	"github.com/fablecraft/gen-relay/clients/llm"
	"github.com/pkoukk/tiktoken-go"
)

// TokenCounterInterface estimates token consumption for prompts and
// responses. Used by the relay's usage tracker when a backend response
// carries no usage block.
type TokenCounterInterface interface {
	CountMessagesTokens(messages []llm.Message) int
	CountTextTokens(text string) int
}

// tokenCounterImpl counts tokens with tiktoken
type tokenCounterImpl struct {
	encoder *tiktoken.Tiktoken
}

var _ TokenCounterInterface = (*tokenCounterImpl)(nil)

// Encoding used by GPT-4 and GPT-3.5-turbo; close enough as an estimate for
// the other OpenAI-compatible backends.
var encodingBase = "cl100k_base"

// NewTokenCounter creates a new TokenCounter instance
func NewTokenCounter() (*tokenCounterImpl, error) {
	encoder, err := tiktoken.GetEncoding(encodingBase)
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}

	return &tokenCounterImpl{
		encoder: encoder,
	}, nil
}

// CountMessagesTokens estimates the token count of an ordered message list
func (tc *tokenCounterImpl) CountMessagesTokens(messages []llm.Message) int {
	totalTokens := 0
	for _, msg := range messages {
		totalTokens += len(tc.encoder.Encode(string(msg.Role), nil, nil))
		totalTokens += len(tc.encoder.Encode(msg.Content, nil, nil))
		// Per-message structure overhead, following OpenAI's counting guide
		totalTokens += 4
	}
	return totalTokens
}

// CountTextTokens counts tokens in plain text
func (tc *tokenCounterImpl) CountTextTokens(text string) int {
	return len(tc.encoder.Encode(text, nil, nil))
}
