package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/acsense/internal/model"
	"github.com/ppiankov/acsense/internal/worker"
)

// Renderer writes parse results as JSON or Markdown
type Renderer struct{}

// NewRenderer creates a renderer
func NewRenderer() *Renderer {
	return &Renderer{}
}

// WriteJSON writes v as indented JSON
func (r *Renderer) WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

// RenderJSON writes v as indented JSON to path
func (r *Renderer) RenderJSON(v interface{}, path string) error {
	return writeFile(path, func(w io.Writer) error { return r.WriteJSON(w, v) })
}

// WriteMarkdown writes batch results as a Markdown table
func (r *Renderer) WriteMarkdown(w io.Writer, results []*worker.ParseResult) error {
	var b strings.Builder
	b.WriteString("# Acceptance Criteria Semantics\n\n")
	b.WriteString("| # | Bullet | Method | Confidence | Subject | Action | Object | Outcome | Negation |\n")
	b.WriteString("|---|--------|--------|------------|---------|--------|--------|---------|----------|\n")

	for _, res := range results {
		if res.Semantics == nil {
			fmt.Fprintf(&b, "| %d | %s | error | - | - | - | - | - | - |\n", res.Index+1, mdEscape(res.Text))
			continue
		}
		sc := res.Semantics
		_, _, outcome := sc.ActionTargetOutcome()
		fmt.Fprintf(&b, "| %d | %s | %s | %.2f | %s | %s | %s | %s | %t |\n",
			res.Index+1, mdEscape(res.Text), sc.Method, sc.Confidence,
			mdEscape(sc.Subject), mdEscape(sc.ActionVerb), mdEscape(sc.DirectObject), mdEscape(outcome), sc.Negation)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderMarkdown writes batch results as a Markdown table to path
func (r *Renderer) RenderMarkdown(results []*worker.ParseResult, path string) error {
	return writeFile(path, func(w io.Writer) error { return r.WriteMarkdown(w, results) })
}

// WriteExplain writes a human-readable explain report
func (r *Renderer) WriteExplain(w io.Writer, report model.ExplainReport) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Input:      %s\n", report.Input)
	fmt.Fprintf(&b, "Normalized: %s\n\n", report.Normalized)

	for _, c := range report.Candidates {
		if !c.Available {
			fmt.Fprintf(&b, "[%s] unavailable\n\n", c.Method)
			continue
		}
		status := "below threshold"
		if c.MeetsThreshold {
			status = "accepted"
		}
		fmt.Fprintf(&b, "[%s] confidence %.2f, threshold %.2f, %s\n",
			c.Method, c.Result.Confidence, c.Threshold, status)
		fmt.Fprintf(&b, "  %s\n", c.Result)
		if c.Result.Outcome != "" {
			fmt.Fprintf(&b, "  outcome: %s\n", c.Result.Outcome)
		}
		if len(c.Result.Modifiers) > 0 {
			fmt.Fprintf(&b, "  modifiers: %s\n", strings.Join(c.Result.Modifiers, "; "))
		}
		for _, s := range c.Signals {
			fmt.Fprintf(&b, "  %+.3f %s\n", s.Weight, s.Description)
		}
		b.WriteString("\n")
	}

	for _, cat := range model.Categories {
		matches, ok := report.Matches[cat]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "Top %s patterns:\n", cat)
		for i, m := range matches {
			fmt.Fprintf(&b, "  %d. %s (%.3f)\n", i+1, m.PatternText, m.Score)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()

	return write(f)
}

func mdEscape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
