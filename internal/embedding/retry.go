package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/acsense/internal/logging"
	"github.com/ppiankov/acsense/internal/metrics"
	"github.com/ppiankov/acsense/internal/worker"
)

// caller runs provider requests with a per-attempt timeout, bounded
// retries and a shared rate limit
type caller struct {
	name       string
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
	limiter    *worker.Limiter
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

func newCaller(name string, cfg Config) *caller {
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &caller{
		name:       name,
		timeout:    cfg.timeout(),
		maxRetries: retries,
		backoff:    250 * time.Millisecond,
		limiter:    worker.NewLimiter(cfg.RequestsPerSecond, 1),
		logger:     logging.OrNop(cfg.Logger),
		metrics:    cfg.Metrics,
	}
}

func (c *caller) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		delay := time.Duration(attempt) * c.backoff
		if err := c.limiter.WaitWithDelay(ctx, c.name, delay); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrEmbeddingFailed, op, err)
		}

		start := time.Now()
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := fn(attemptCtx)
		cancel()
		c.metrics.ProviderRequest(c.name, op, time.Since(start), err)

		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil || errors.Is(err, ErrEmptyInput) {
			break
		}

		c.logger.Warn("embedding request failed",
			zap.String("provider", c.name),
			zap.String("operation", op),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	return fmt.Errorf("%w: %s: %v", ErrEmbeddingFailed, op, lastErr)
}
