package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAIClient talks to any OpenAI-compatible endpoint (hosted APIs, local
// Ollama, vLLM, proxies). SDK-level retries are disabled: retry and backend
// rotation belong to the orchestrator, and double-retrying would skew its
// attempt accounting.
type OpenAIClient struct {
	client openai.Client
}

var _ Client = (*OpenAIClient)(nil)

// NewOpenAIClient creates a client for one backend endpoint. The timeout
// bounds every ChatCompletion call issued through this client.
func NewOpenAIClient(baseURL, apiKey string, timeout time.Duration) *OpenAIClient {
	return &OpenAIClient{
		client: openai.NewClient(
			option.WithBaseURL(strings.TrimRight(baseURL, "/")),
			option.WithAPIKey(apiKey),
			option.WithRequestTimeout(timeout),
			option.WithMaxRetries(0),
		),
	}
}

// ChatCompletion issues one generation request and classifies any failure
// as retryable or fatal
func (c *OpenAIClient) ChatCompletion(ctx context.Context, req Request) (*Response, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: toMessageParams(req.Messages),
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.TopP > 0 {
		params.TopP = openai.Float(req.TopP)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classifyError(err)
	}

	raw := completion.RawJSON()
	return &Response{
		Content: ExtractContent(raw),
		Raw:     raw,
		Usage: Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}, nil
}

func toMessageParams(messages []Message) []openai.ChatCompletionMessageParamUnion {
	params := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			params = append(params, openai.SystemMessage(msg.Content))
		case RoleAssistant:
			params = append(params, openai.AssistantMessage(msg.Content))
		default:
			params = append(params, openai.UserMessage(msg.Content))
		}
	}
	return params
}

// classifyError maps SDK and transport failures onto the retryable/fatal
// split. Throttling, request timeouts and server-side errors rotate to the
// next backend; auth and malformed-request errors fail the call outright.
func classifyError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return NewRetryableError(err)
		case apiErr.StatusCode == http.StatusRequestTimeout:
			return NewRetryableError(err)
		case apiErr.StatusCode >= http.StatusInternalServerError:
			return NewRetryableError(err)
		default:
			return NewFatalError(err)
		}
	}

	if errors.Is(err, context.Canceled) {
		return NewFatalError(err)
	}

	// Anything else is a transport-level failure (connection refused, DNS,
	// deadline exceeded) and worth trying against another backend.
	return NewRetryableError(err)
}
