package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/acsense/internal/extract"
	"github.com/ppiankov/acsense/internal/metrics"
	"github.com/ppiankov/acsense/internal/pipeline"
	"github.com/ppiankov/acsense/internal/worker"
)

var (
	concurrency  int
	outJSON      string
	outMD        string
	batchTimeout time.Duration
	metricsAddr  string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Parse every bullet in a file in parallel",
	Long: `Batch parses many bullets concurrently:
- Plain text files hold one bullet per line (# starts a comment)
- HTML files are split on list items and paragraphs
- Results keep input order

Example:
  acsense batch criteria.txt
  acsense batch story.html --concurrency 8 --json out.json --md out.md
  acsense batch criteria.txt --metrics-addr :9090`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outJSON, "json", "", "write results as JSON to this path (default: stdout)")
	batchCmd.Flags().StringVar(&outMD, "md", "", "write results as a Markdown table to this path")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	batchCmd.Flags().BoolVar(&withEmbedding, "embedding", false, "enable the embedding tier (overrides config)")
	batchCmd.Flags().BoolVar(&noDependency, "no-dependency", false, "disable the dependency-parse tier")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	m := metrics.New()
	rt, logger, err := buildRuntime(ctx, runtimeOptions{
		embedding:    withEmbedding,
		noDependency: noDependency,
		workers:      concurrency,
		metrics:      m,
	})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	defer func() { _ = rt.Close() }()

	addr := metricsAddr
	if addr == "" {
		addr = rt.Config.Metrics.Addr
	}
	if addr != "" {
		stop := serveMetrics(addr, m, logger)
		defer stop()
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  acsense Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", rt.Config.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Strategies:   %s\n", stageNames(rt))
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	processor := rt.BatchProcessor()

	var results []*worker.ParseResult
	switch strings.ToLower(filepath.Ext(file)) {
	case ".html", ".htm":
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
		results = processor.ProcessBullets(ctx, extract.SplitBullets(string(data)))
	default:
		results, err = processor.ProcessFile(ctx, file)
		if err != nil {
			return fmt.Errorf("process file: %w", err)
		}
	}

	counts := make(map[string]int)
	failures := 0
	for _, r := range results {
		if r.Error != nil {
			failures++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", r.Text, r.Error)
			continue
		}
		counts[string(r.Semantics.Method)]++
	}

	renderer := pipeline.NewRenderer()
	if outJSON != "" {
		if err := renderer.RenderJSON(results, outJSON); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", outJSON)
	} else if err := renderer.WriteJSON(os.Stdout, results); err != nil {
		return err
	}
	if outMD != "" {
		if err := renderer.RenderMarkdown(results, outMD); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote Markdown: %s\n", outMD)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:       %d bullets\n", len(results))
	for _, st := range rt.Arbiter.Stages() {
		name := string(st.Strategy.Name())
		fmt.Fprintf(os.Stderr, "  %-12s %d\n", name+":", counts[name])
	}
	fmt.Fprintf(os.Stderr, "  Failures:    %d\n", failures)
	if rt.Matcher != nil {
		s := rt.Cache.Stats()
		fmt.Fprintf(os.Stderr, "  Cache:       %d entries, hit rate %.0f%%\n", s.Size, s.HitRate*100)
	}
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

// serveMetrics exposes m on addr until the returned stop func is called
func serveMetrics(addr string, m *metrics.Metrics, logger *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics listener failed", zap.String("addr", addr), zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func stageNames(rt *pipeline.Runtime) string {
	var names []string
	for _, st := range rt.Arbiter.Stages() {
		names = append(names, string(st.Strategy.Name()))
	}
	return strings.Join(names, " → ")
}
