package parallel

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuilder_RunEmpty(t *testing.T) {
	results := NewBuilder().Run(context.Background())
	assert.Empty(t, results)
}

func TestBuilder_RunAllTasks(t *testing.T) {
	var ran atomic.Int32

	b := NewBuilder()
	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("task-%d", i)
		val := i
		b.Add(key, func(ctx context.Context) (any, error) {
			ran.Add(1)
			return val, nil
		})
	}

	results := b.Run(context.Background())

	assert.Equal(t, int32(5), ran.Load())
	assert.Len(t, results, 5)
	for i := 0; i < 5; i++ {
		result := results[fmt.Sprintf("task-%d", i)]
		assert.NoError(t, result.Error)
		assert.Equal(t, i, result.Value)
	}
}

func TestBuilder_ErrorsKeptPerKey(t *testing.T) {
	b := NewBuilder().
		Add("ok", func(ctx context.Context) (any, error) {
			return true, nil
		}).
		Add("bad", func(ctx context.Context) (any, error) {
			return nil, fmt.Errorf("boom")
		})

	results := b.Run(context.Background())

	assert.NoError(t, results["ok"].Error)
	assert.EqualError(t, results["bad"].Error, "boom")
}

func TestBuilder_RunsConcurrently(t *testing.T) {
	b := NewBuilder()
	for i := 0; i < 4; i++ {
		b.Add(fmt.Sprintf("sleep-%d", i), func(ctx context.Context) (any, error) {
			time.Sleep(50 * time.Millisecond)
			return nil, nil
		})
	}

	start := time.Now()
	b.Run(context.Background())
	elapsed := time.Since(start)

	// Serial execution would take at least 200ms
	assert.Less(t, elapsed, 150*time.Millisecond, "tasks should run in parallel")
}
