package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/fablecraft/gen-relay/clients/llm"
	"github.com/fablecraft/gen-relay/config"
	"github.com/fablecraft/gen-relay/gen_relay"
	"github.com/fablecraft/gen-relay/utils/logger"
)

// mockLLMClient fakes a remote backend for demo purposes
type mockLLMClient struct {
	name string
}

func (m *mockLLMClient) ChatCompletion(ctx context.Context, req llm.Request) (*llm.Response, error) {
	// Simulate processing time (100ms to 800ms)
	time.Sleep(time.Duration(100+rand.Intn(700)) * time.Millisecond)

	// Simulate occasional transient failures (10% rate)
	if rand.Float32() < 0.1 {
		return nil, llm.NewRetryableError(fmt.Errorf("mock upstream overloaded"))
	}

	last := req.Messages[len(req.Messages)-1]
	return &llm.Response{
		Content: fmt.Sprintf("[%s/%s] mock answer to: %s", m.name, req.Model, last.Content),
		Usage:   llm.Usage{TotalTokens: rand.Intn(500) + 100},
	}, nil
}

func main() {
	fmt.Println("GenRelay Demo")
	fmt.Println("=============")

	log := logger.NewStdoutLoggerWithLevel(logger.LevelDebug)
	defer log.Close()

	manager := config.NewManager(config.DefaultPath, log)

	relay := gen_relay.NewWithOptions(manager, gen_relay.Options{
		Logger: log,
		ClientFactory: func(b config.Backend, timeout time.Duration) llm.Client {
			return &mockLLMClient{name: b.Name}
		},
	})

	fmt.Println("\nBackend connectivity:")
	for name, ok := range relay.TestBackends() {
		status := "ok"
		if !ok {
			status = "unreachable"
		}
		fmt.Printf("  %-20s %s\n", name, status)
	}

	prompts := []string{
		"Write the opening line of a sea shanty",
		"Name three uses for a brick",
		"Write the opening line of a sea shanty", // repeat, should hit the cache
	}

	fmt.Println("\nGeneration:")
	for _, prompt := range prompts {
		outcome := relay.Generate([]llm.Message{
			{Role: llm.RoleSystem, Content: "You are a helpful assistant"},
			{Role: llm.RoleUser, Content: prompt},
		})
		if !outcome.Success {
			fmt.Printf("  FAILED: %s\n", outcome.Payload)
			continue
		}
		fmt.Printf("  %s\n", outcome.Payload)
	}

	cacheStats := relay.CacheStats()
	usage := relay.UsageStats()
	fmt.Printf("\nCache: %d/%d entries (%.1f%% full)\n",
		cacheStats.TotalEntries, cacheStats.MaxSize, cacheStats.UsageRate)
	fmt.Printf("Usage: %d requests, %d tokens\n", usage.TotalRequests, usage.TotalTokens)
	for name, u := range usage.PerBackend {
		fmt.Printf("  %-20s %d requests, %d tokens\n", name, u.Requests, u.Tokens)
	}
}
