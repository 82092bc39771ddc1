package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/acsense/internal/cache"
	"github.com/ppiankov/acsense/internal/patterns"
)

var warmTimeout time.Duration

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the embedding cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show embedding cache size and location",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		c := cache.NewEmbeddingCache(cfg.Cache.Dir, cache.WithMaxEntries(cfg.Cache.MaxEntries))

		s := c.Stats()
		fmt.Printf("Directory:    %s\n", c.Dir())
		fmt.Printf("Entries:      %d / %d\n", s.Size, s.MaxEntries)
		fmt.Printf("Default TTL:  %v\n", cfg.Cache.TTL)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached embedding",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		c := cache.NewEmbeddingCache(cfg.Cache.Dir)
		n := c.Len()
		if err := c.Clear(); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		fmt.Printf("✓ Cleared %d entries from %s\n", n, c.Dir())
		return nil
	},
}

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the canonical pattern index",
}

var indexWarmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Embed every pattern so later runs start from cache",
	Long: `Warm loads the pattern definitions, embeds every canonical text and
synonym with the configured provider and stores the vectors in the
embedding cache. Later runs only embed the query text.`,
	RunE: runIndexWarm,
}

func init() {
	rootCmd.AddCommand(cacheCmd, indexCmd)
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd)
	indexCmd.AddCommand(indexWarmCmd)

	indexWarmCmd.Flags().DurationVar(&warmTimeout, "timeout", 5*time.Minute, "timeout for embedding all patterns")
}

func runIndexWarm(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), warmTimeout)
	defer cancel()

	rt, logger, err := buildRuntime(ctx, runtimeOptions{embedding: true, noDependency: true})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if rt.Index == nil {
		return fmt.Errorf("pattern index not built (check embedding provider settings)")
	}
	printIndex(rt.Index)
	return nil
}

func printIndex(ix *patterns.Index) {
	p := ix.Provider()
	fmt.Fprintf(os.Stderr, "✓ Indexed %d patterns with %s/%s\n", ix.Count(), p.Name(), p.Model())
	for _, c := range ix.Categories() {
		fmt.Printf("  %-10s %d\n", c, len(ix.ByCategory(c)))
	}
	if c := ix.Cache(); c != nil {
		s := c.Stats()
		fmt.Printf("\nCache: %d entries in %s (hits %d, misses %d)\n", s.Size, c.Dir(), s.Hits, s.Misses)
	}
}
