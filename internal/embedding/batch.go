package embedding

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// embedChunks splits texts into request-sized chunks and calls fn for
// each. A failed chunk drops its texts; the call errors only when
// nothing could be embedded.
func embedChunks(ctx context.Context, logger *zap.Logger, texts []string, size int,
	fn func(ctx context.Context, chunk []string) ([]Result, error)) ([]Result, error) {

	var clean []string
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			clean = append(clean, t)
		}
	}
	if len(clean) == 0 {
		return nil, nil
	}

	var (
		results []Result
		failed  int
		lastErr error
	)
	for start := 0; start < len(clean); start += size {
		end := start + size
		if end > len(clean) {
			end = len(clean)
		}

		chunk, err := fn(ctx, clean[start:end])
		if err != nil {
			failed += end - start
			lastErr = err
			logger.Warn("embedding batch chunk dropped",
				zap.Int("texts", end-start),
				zap.Error(err))
			continue
		}
		results = append(results, chunk...)
	}

	if len(results) == 0 && lastErr != nil {
		return nil, fmt.Errorf("embed %d texts: %w", failed, lastErr)
	}
	return results, nil
}
