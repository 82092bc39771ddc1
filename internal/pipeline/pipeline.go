// Package pipeline wires the extraction strategies into a runnable chain.
package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/ppiankov/acsense/internal/cache"
	"github.com/ppiankov/acsense/internal/depparse"
	"github.com/ppiankov/acsense/internal/embedding"
	"github.com/ppiankov/acsense/internal/extract"
	"github.com/ppiankov/acsense/internal/logging"
	"github.com/ppiankov/acsense/internal/match"
	"github.com/ppiankov/acsense/internal/metrics"
	"github.com/ppiankov/acsense/internal/model"
	"github.com/ppiankov/acsense/internal/patterns"
	"github.com/ppiankov/acsense/internal/worker"
)

// Runtime holds the long-lived components built from one config. Tiers
// that failed to come up are nil and absent from the arbiter chain.
type Runtime struct {
	Config   *model.Config
	Arbiter  *Arbiter
	Cache    *cache.EmbeddingCache
	Provider embedding.Provider
	Index    *patterns.Index
	Matcher  *match.Matcher
	Engine   depparse.Engine
	Metrics  *metrics.Metrics

	logger *zap.Logger
}

// Build is the composition root. A tier that cannot start is logged and
// left out of the chain; rule matching is always present.
func Build(ctx context.Context, cfg *model.Config, logger *zap.Logger, m *metrics.Metrics) *Runtime {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	logger = logging.OrNop(logger)

	rt := &Runtime{
		Config:  cfg,
		Metrics: m,
		logger:  logger,
		Cache: cache.NewEmbeddingCache(cfg.Cache.Dir,
			cache.WithTTL(cfg.Cache.TTL),
			cache.WithMaxEntries(cfg.Cache.MaxEntries),
			cache.WithLogger(logger),
			cache.WithMetrics(m)),
	}

	var stages []Stage

	if cfg.Embedding.Enabled {
		if matcher := rt.buildEmbedding(ctx); matcher != nil {
			stages = append(stages, Stage{
				Strategy:  extract.NewEmbeddingExtractor(matcher),
				Threshold: cfg.Embedding.Threshold,
			})
		}
	}

	if cfg.Dependency.Enabled {
		rt.Engine = depparse.NewHTTPEngine(depparse.HTTPConfig{
			BaseURL:    cfg.Dependency.BaseURL,
			Model:      cfg.Dependency.Model,
			Timeout:    cfg.Dependency.Timeout,
			MemoTTL:    cfg.Dependency.MemoTTL,
			HTTPProxy:  cfg.Embedding.HTTPProxy,
			HTTPSProxy: cfg.Embedding.HTTPSProxy,
		})
		stages = append(stages, Stage{
			Strategy:  extract.NewDependencyExtractor(rt.Engine, logger),
			Threshold: cfg.Dependency.Threshold,
		})
	}

	stages = append(stages, Stage{Strategy: extract.NewPatternExtractor(), Threshold: 0})
	rt.Arbiter = NewArbiter(stages, logger, m)

	methods := make([]string, 0, len(stages))
	for _, st := range stages {
		methods = append(methods, string(st.Strategy.Name()))
	}
	logger.Debug("extraction chain ready", zap.Strings("methods", methods))

	return rt
}

// buildEmbedding brings up provider, index and matcher. Any failure
// disables the tier.
func (rt *Runtime) buildEmbedding(ctx context.Context) *match.Matcher {
	cfg := rt.Config

	pcfg := embedding.ConfigFromModel(cfg.Embedding)
	pcfg.Logger = rt.logger
	pcfg.Metrics = rt.Metrics
	provider, err := embedding.NewProvider(pcfg)
	if err != nil || provider == nil {
		rt.logger.Warn("embedding provider unavailable, similarity matching disabled", zap.Error(err))
		return nil
	}
	rt.Provider = provider

	defs, err := patterns.LoadDefinitions(cfg.Patterns.File)
	if err != nil {
		rt.logger.Warn("pattern definitions not loaded, similarity matching disabled", zap.Error(err))
		return nil
	}

	index := patterns.NewIndex(defs.Patterns, provider, rt.Cache,
		patterns.WithLogger(rt.logger),
		patterns.WithMetrics(rt.Metrics))
	if err := index.Build(ctx); err != nil {
		rt.logger.Warn("pattern index build failed, similarity matching disabled", zap.Error(err))
		return nil
	}
	rt.Index = index

	matcher := match.NewMatcher(provider, index, rt.Cache, rt.logger)
	matcher.SetThreshold(cfg.Embedding.Threshold)
	matcher.SetTopK(cfg.Embedding.TopK)
	rt.Matcher = matcher
	return matcher
}

// BatchProcessor returns a concurrent runner over the arbiter
func (rt *Runtime) BatchProcessor() *worker.BatchProcessor {
	return worker.NewBatchProcessor(rt.Arbiter, rt.Config.Concurrency.Workers)
}

// Close releases the parse engine
func (rt *Runtime) Close() error {
	if rt.Engine != nil {
		return rt.Engine.Close()
	}
	return nil
}
