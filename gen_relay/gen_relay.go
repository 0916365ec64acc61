// Package gen_relay turns a set of interchangeable, rate-limited,
// occasionally-unreliable text-generation backends into one dependable
// Generate operation. It composes a content-addressed response cache, a per
// backend+model token-bucket limiter and a round-robin load balancer behind
// a retry/backoff loop, so callers never see backend outages, quota limits
// or duplicate work.
package gen_relay

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/fablecraft/gen-relay/clients/llm"
	"github.com/fablecraft/gen-relay/config"
	"github.com/fablecraft/gen-relay/rate_limit"
	"github.com/fablecraft/gen-relay/response_cache"
	"github.com/fablecraft/gen-relay/response_cache/stores/file"
	"github.com/fablecraft/gen-relay/utils/logger"
	"github.com/fablecraft/gen-relay/utils/parallel"
	"github.com/fablecraft/gen-relay/utils/token_counter"
	"github.com/google/uuid"
)

// probeTimeout bounds each TestBackends request
const probeTimeout = 5 * time.Second

// ConfigProvider is the configuration collaborator. The relay reads
// snapshots from it and refreshes them only through Reinitialize.
type ConfigProvider interface {
	EnabledBackends() []config.Backend
	Generation() config.Generation
}

// ClientFactory builds the remote-call client for one backend with the given
// per-call timeout
type ClientFactory func(backend config.Backend, timeout time.Duration) llm.Client

func defaultClientFactory(backend config.Backend, timeout time.Duration) llm.Client {
	return llm.NewOpenAIClient(backend.BaseURL, backend.APIKey, timeout)
}

// Outcome is the result of one Generate call. Payload carries the generated
// text on success and a short display-safe message on failure; no error ever
// crosses this boundary.
type Outcome struct {
	Success bool
	Payload string
}

// GenerateOptions tune one Generate call
type GenerateOptions struct {
	UseCache      bool
	MaxRetries    int
	BackoffFactor float64
	BaseWait      time.Duration
}

// DefaultGenerateOptions returns the standard knobs: caching on, three
// attempts, 1.5x backoff starting from one second
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		UseCache:      true,
		MaxRetries:    3,
		BackoffFactor: 1.5,
		BaseWait:      time.Second,
	}
}

// Options configure relay construction. Zero values pick the defaults: file
// persistence for the cache, the OpenAI-compatible client factory, noop
// logging and the standard limiter rate.
type Options struct {
	Logger        logger.Logger
	CacheStore    response_cache.Store
	CacheMaxSize  int
	ClientFactory ClientFactory
	LimiterRate   float64
	LimiterWindow time.Duration
}

// Relay is the request orchestrator. Explicitly constructed and dependency
// injected; the composition root owns it and calls Reinitialize after
// configuration changes. Safe for concurrent use by multiple goroutines.
type Relay struct {
	cfg      ConfigProvider
	cache    *response_cache.ResponseCache
	limiters *rate_limit.Registry
	balancer *loadBalancer
	tracker  *usageTracker
	factory  ClientFactory
	logger   logger.Logger

	sleep  func(time.Duration)
	jitter func() float64
}

// New creates a relay with default options: cache persisted to
// cache/response_cache.json, real OpenAI-compatible clients, no logging.
func New(cfg ConfigProvider) *Relay {
	return NewWithOptions(cfg, Options{})
}

// NewWithOptions creates a relay with explicit collaborators
func NewWithOptions(cfg ConfigProvider, opts Options) *Relay {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoopLogger()
	}
	store := opts.CacheStore
	if store == nil {
		store = file.NewStore("")
	}
	factory := opts.ClientFactory
	if factory == nil {
		factory = defaultClientFactory
	}

	var counter token_counter.TokenCounterInterface
	if impl, err := token_counter.NewTokenCounter(); err == nil {
		counter = impl
	} else {
		log.Warnf("token counter unavailable: %v, usage estimates disabled", err)
	}

	r := &Relay{
		cfg:      cfg,
		cache:    response_cache.New(store, opts.CacheMaxSize, log),
		limiters: rate_limit.NewRegistry(opts.LimiterRate, opts.LimiterWindow),
		balancer: newLoadBalancer(),
		tracker:  newUsageTracker(counter),
		factory:  factory,
		logger:   log,
		sleep:    time.Sleep,
		jitter:   rand.Float64,
	}
	r.Reinitialize()
	return r
}

// Reinitialize rebuilds the backend snapshot and the rate-limiter registry
// from the latest configuration. In-flight calls keep the backend they
// already selected; only subsequent selections see the new set.
func (r *Relay) Reinitialize() {
	backends := r.cfg.EnabledBackends()
	items := make([]backendClient, 0, len(backends))
	for _, b := range backends {
		items = append(items, backendClient{
			backend: b,
			client:  r.factory(b, b.TimeoutDuration()),
		})
	}
	r.balancer.swap(items)
	r.limiters.Reset()

	if len(items) == 0 {
		r.logger.Errorf("no enabled backends configured")
		return
	}
	r.logger.Infof("relay initialized with %d backend(s)", len(items))
}

// Generate runs one generation request with the default options
func (r *Relay) Generate(messages []llm.Message) Outcome {
	return r.GenerateWithOptions(messages, DefaultGenerateOptions())
}

// GenerateWithOptions runs one generation request: cache lookup, round-robin
// backend selection, rate-limiter gate, remote call, cache write-back.
// Retryable failures rotate to the next backend after an exponential backoff
// with jitter; fatal failures return immediately.
func (r *Relay) GenerateWithOptions(messages []llm.Message, opts GenerateOptions) Outcome {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.BackoffFactor <= 0 {
		opts.BackoffFactor = 1.5
	}
	if opts.BaseWait <= 0 {
		opts.BaseWait = time.Second
	}

	if err := validateMessages(messages); err != nil {
		return failure(err.Error())
	}
	if r.balancer.size() == 0 {
		return failure("no enabled backends, check your settings")
	}

	requestID := uuid.New().String()[:8]
	gen := r.cfg.Generation()

	retries := 0
	for retries < opts.MaxRetries {
		item, ok := r.balancer.next()
		if !ok {
			return failure("no API client available")
		}
		backend := item.backend

		if opts.UseCache {
			if cached, hit := r.cache.Get(messages, backend.Model); hit {
				r.logger.Debugf("generate %s: cache hit for model %s", requestID, backend.Model)
				return Outcome{Success: true, Payload: cached}
			}
		}

		r.limiters.For(backend.Name, backend.Model).Acquire(1, true)

		r.logger.Debugf("generate %s: calling %s model=%s", requestID, backend.Name, backend.Model)

		ctx, cancel := context.WithTimeout(context.Background(), backend.TimeoutDuration())
		resp, err := item.client.ChatCompletion(ctx, llm.Request{
			Model:       backend.Model,
			Messages:    messages,
			Temperature: gen.Temperature,
			TopP:        gen.TopP,
			MaxTokens:   gen.MaxTokens,
		})
		cancel()

		if err == nil {
			if opts.UseCache {
				r.cache.Set(messages, backend.Model, resp.Content)
			}
			r.tracker.record(backend.Name, r.tracker.tokensFor(messages, resp))
			r.logger.Infof("generate %s: success via %s", requestID, backend.Name)
			return Outcome{Success: true, Payload: resp.Content}
		}

		if llm.IsRetryable(err) {
			retries++
			wait := backoffWait(opts.BaseWait, opts.BackoffFactor, retries, r.jitter())
			r.logger.Warnf("generate %s: %s failed (%s), retrying in %s (attempt %d/%d)",
				requestID, backend.Name, llm.CauseMessage(err), wait, retries, opts.MaxRetries)
			r.sleep(wait)
			continue
		}

		r.logger.Errorf("generate %s: fatal error from %s: %v", requestID, backend.Name, err)
		return failure(llm.CauseMessage(err))
	}

	return failure(fmt.Sprintf("still failing after %d retries", opts.MaxRetries))
}

// TestBackends probes every enabled backend with one minimal request under a
// short fixed timeout and reports per-backend reachability. It bypasses the
// cache, the limiters and the balancer, and never mutates any of them.
func (r *Relay) TestBackends() map[string]bool {
	backends := r.cfg.EnabledBackends()
	results := make(map[string]bool, len(backends))
	if len(backends) == 0 {
		return results
	}

	probe := []llm.Message{
		{Role: llm.RoleSystem, Content: "You are a helpful assistant"},
		{Role: llm.RoleUser, Content: "Hello"},
	}

	builder := parallel.NewBuilder()
	for _, backend := range backends {
		b := backend
		builder.Add(b.Name, func(ctx context.Context) (any, error) {
			client := r.factory(b, probeTimeout)
			callCtx, cancel := context.WithTimeout(ctx, probeTimeout)
			defer cancel()
			_, err := client.ChatCompletion(callCtx, llm.Request{
				Model:     b.Model,
				Messages:  probe,
				MaxTokens: 10,
			})
			return nil, err
		})
	}

	for name, result := range builder.Run(context.Background()) {
		if result.Error != nil {
			r.logger.Warnf("backend %s unreachable: %v", name, result.Error)
			results[name] = false
			continue
		}
		results[name] = true
	}
	return results
}

// CacheStats returns current cache occupancy
func (r *Relay) CacheStats() response_cache.Stats {
	return r.cache.Stats()
}

// ClearCache empties the response cache
func (r *Relay) ClearCache() {
	r.cache.Clear()
}

// UsageStats returns accumulated per-backend consumption
func (r *Relay) UsageStats() UsageStats {
	return r.tracker.stats()
}

// validateMessages rejects empty or malformed input before any network or
// limiter activity
func validateMessages(messages []llm.Message) error {
	if len(messages) == 0 {
		return fmt.Errorf("messages must be a non-empty list")
	}
	for i, msg := range messages {
		if msg.Role == "" {
			return fmt.Errorf("message %d has no role", i)
		}
	}
	return nil
}

// backoffWait computes base*factor^attempt plus up to half a second of
// jitter
func backoffWait(base time.Duration, factor float64, attempt int, jitter float64) time.Duration {
	wait := float64(base) * math.Pow(factor, float64(attempt))
	wait += jitter * float64(500*time.Millisecond)
	return time.Duration(wait)
}

func failure(message string) Outcome {
	return Outcome{Success: false, Payload: "error: " + message}
}
