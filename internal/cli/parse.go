package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/acsense/internal/metrics"
	"github.com/ppiankov/acsense/internal/model"
	"github.com/ppiankov/acsense/internal/pipeline"
)

var (
	outputFormat  string
	parseTimeout  time.Duration
	withEmbedding bool
	noDependency  bool
)

// parseCmd represents the parse command
var parseCmd = &cobra.Command{
	Use:   "parse <text>",
	Short: "Extract semantic components from one bullet",
	Long: `Parse runs the strategy chain over a single acceptance-criteria bullet
and prints the first confident result.

Example:
  acsense parse "User can rotate the shape"
  acsense parse "1. Bring to Front moves the object to the highest z-order" -o text
  acsense parse "Save is disabled when no item is selected" --embedding`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

// explainCmd represents the explain command
var explainCmd = &cobra.Command{
	Use:   "explain <text>",
	Short: "Show every strategy's result and the signals behind it",
	Long: `Explain runs every available strategy over one bullet and prints all
candidates with their confidence signals and the closest canonical
patterns. Nothing is selected; use it to tune thresholds.

Example:
  acsense explain "Draw Order actions are disabled when no object is selected"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExplain,
}

// entitiesCmd represents the entities command
var entitiesCmd = &cobra.Command{
	Use:   "entities <text>",
	Short: "List named entities in a bullet",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runEntities,
}

func init() {
	rootCmd.AddCommand(parseCmd, explainCmd, entitiesCmd)

	for _, c := range []*cobra.Command{parseCmd, explainCmd, entitiesCmd} {
		c.Flags().StringVarP(&outputFormat, "output", "o", "json", "output format (json, text)")
		c.Flags().DurationVar(&parseTimeout, "timeout", time.Minute, "overall timeout")
		c.Flags().BoolVar(&withEmbedding, "embedding", false, "enable the embedding tier (overrides config)")
		c.Flags().BoolVar(&noDependency, "no-dependency", false, "disable the dependency-parse tier")
	}
}

// runtimeOptions adjust the loaded config before the runtime is built
type runtimeOptions struct {
	embedding    bool
	noDependency bool
	workers      int
	metrics      *metrics.Metrics
}

// buildRuntime loads config and wires the pipeline
func buildRuntime(ctx context.Context, opts runtimeOptions) (*pipeline.Runtime, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if opts.embedding {
		cfg.Embedding.Enabled = true
	}
	if opts.noDependency {
		cfg.Dependency.Enabled = false
	}
	if opts.workers > 0 {
		cfg.Concurrency.Workers = opts.workers
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}

	rt := pipeline.Build(ctx, cfg, logger, opts.metrics)
	return rt, logger, nil
}

func runParse(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), parseTimeout)
	defer cancel()

	rt, logger, err := buildRuntime(ctx, runtimeOptions{embedding: withEmbedding, noDependency: noDependency})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	defer func() { _ = rt.Close() }()

	sc := rt.Arbiter.Parse(ctx, strings.Join(args, " "))

	switch outputFormat {
	case "json":
		return pipeline.NewRenderer().WriteJSON(os.Stdout, sc)
	case "text":
		printComponents(sc)
		return nil
	default:
		return fmt.Errorf("unknown output format %q (supported: json, text)", outputFormat)
	}
}

func runExplain(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), parseTimeout)
	defer cancel()

	rt, logger, err := buildRuntime(ctx, runtimeOptions{embedding: withEmbedding, noDependency: noDependency})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	defer func() { _ = rt.Close() }()

	report := rt.Arbiter.Explain(ctx, strings.Join(args, " "))

	switch outputFormat {
	case "json":
		return pipeline.NewRenderer().WriteJSON(os.Stdout, report)
	case "text":
		return pipeline.NewRenderer().WriteExplain(os.Stdout, report)
	default:
		return fmt.Errorf("unknown output format %q (supported: json, text)", outputFormat)
	}
}

func runEntities(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), parseTimeout)
	defer cancel()

	rt, logger, err := buildRuntime(ctx, runtimeOptions{noDependency: noDependency})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	defer func() { _ = rt.Close() }()

	entities := rt.Arbiter.ExtractEntities(ctx, strings.Join(args, " "))
	if outputFormat == "json" {
		if entities == nil {
			entities = []string{}
		}
		return pipeline.NewRenderer().WriteJSON(os.Stdout, entities)
	}
	for _, e := range entities {
		fmt.Println(e)
	}
	return nil
}

func printComponents(sc model.SemanticComponents) {
	action, target, outcome := sc.ActionTargetOutcome()

	fmt.Printf("Method:      %s\n", sc.Method)
	fmt.Printf("Confidence:  %.2f\n", sc.Confidence)
	fmt.Printf("Subject:     %s\n", sc.Subject)
	fmt.Printf("Action:      %s\n", action)
	fmt.Printf("Target:      %s\n", target)
	if sc.IndirectObject != "" {
		fmt.Printf("Indirect:    %s\n", sc.IndirectObject)
	}
	fmt.Printf("Outcome:     %s\n", outcome)
	if len(sc.Modifiers) > 0 {
		fmt.Printf("Modifiers:   %s\n", strings.Join(sc.Modifiers, "; "))
	}
	for _, p := range sc.Prepositions {
		fmt.Printf("Preposition: %s %s\n", p.Prep, p.Object)
	}
	if sc.Modal != "" {
		fmt.Printf("Modal:       %s\n", sc.Modal)
	}
	fmt.Printf("Tense:       %s\n", sc.Tense)
	fmt.Printf("Negation:    %t\n", sc.Negation)
}
