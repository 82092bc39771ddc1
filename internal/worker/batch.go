package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/acsense/internal/model"
)

// Parser extracts semantics from one bullet
type Parser interface {
	Parse(ctx context.Context, text string) model.SemanticComponents
}

// ParseJob parses a single bullet
type ParseJob struct {
	Index  int
	Text   string
	Parser Parser
}

// Execute executes the parse job
func (j *ParseJob) Execute(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return &ParseResult{Index: j.Index, Text: j.Text, Error: err}
	}
	sc := j.Parser.Parse(ctx, j.Text)
	return &ParseResult{
		Index:     j.Index,
		Text:      j.Text,
		Semantics: &sc,
	}
}

// ParseResult is the outcome of one bullet. Semantics is nil when the
// batch was cancelled before the bullet ran.
type ParseResult struct {
	Index     int                       `json:"index"`
	Text      string                    `json:"text"`
	Semantics *model.SemanticComponents `json:"semantics,omitempty"`
	Error     error                     `json:"-"`
}

// GetError returns the error from the parse result
func (r *ParseResult) GetError() error {
	return r.Error
}

// BatchProcessor parses many bullets concurrently
type BatchProcessor struct {
	parser      Parser
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(parser Parser, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		parser:      parser,
		concurrency: concurrency,
	}
}

// ProcessBullets parses bullets concurrently. Results are in input order.
func (b *BatchProcessor) ProcessBullets(ctx context.Context, bullets []string) []*ParseResult {
	if len(bullets) == 0 {
		return []*ParseResult{}
	}

	pool := NewPoolWithContext(ctx, b.concurrency)
	pool.Start()

	for i, text := range bullets {
		pool.Submit(&ParseJob{
			Index:  i,
			Text:   text,
			Parser: b.parser,
		})
	}

	results := pool.Wait()

	// Bullets never picked up before cancellation still get a slot
	parsed := make([]*ParseResult, len(bullets))
	for _, result := range results {
		r := result.(*ParseResult)
		parsed[r.Index] = r
	}
	for i, r := range parsed {
		if r == nil {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			parsed[i] = &ParseResult{Index: i, Text: bullets[i], Error: err}
		}
	}

	return parsed
}

// ProcessFile reads bullets from a file and parses them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*ParseResult, error) {
	bullets, err := ReadBulletsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read bullets: %w", err)
	}

	return b.ProcessBullets(ctx, bullets), nil
}

// ReadBulletsFromFile reads one bullet per line. Blank lines and lines
// starting with # are skipped; duplicates are kept so output lines up
// with input.
func ReadBulletsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var bullets []string

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		bullets = append(bullets, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return bullets, nil
}
