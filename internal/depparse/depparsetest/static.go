// Package depparsetest provides an in-process engine serving canned parses.
package depparsetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/ppiankov/acsense/internal/depparse"
)

// Engine returns prebuilt docs by exact text
type Engine struct {
	ModelName string
	LoadErr   error
	Docs      map[string]*depparse.Doc

	mu        sync.Mutex
	loadCalls int
	loaded    bool
}

// New returns an engine that loads successfully
func New() *Engine {
	return &Engine{ModelName: "test_model", Docs: map[string]*depparse.Doc{}}
}

// Add registers a parse for text
func (e *Engine) Add(text string, tokens ...depparse.Token) *depparse.Doc {
	doc := &depparse.Doc{Text: text, Tokens: tokens}
	e.Docs[text] = doc
	return doc
}

// Load fails with LoadErr when set
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loadCalls++
	if e.LoadErr != nil {
		return e.LoadErr
	}
	e.loaded = true
	return nil
}

// Parse returns the registered doc
func (e *Engine) Parse(ctx context.Context, text string) (*depparse.Doc, error) {
	e.mu.Lock()
	loaded := e.loaded
	e.mu.Unlock()
	if !loaded {
		return nil, depparse.ErrNotLoaded
	}
	doc, ok := e.Docs[text]
	if !ok {
		return nil, fmt.Errorf("no canned parse for %q", text)
	}
	return doc, nil
}

// Model returns the model name
func (e *Engine) Model() string { return e.ModelName }

// Close is a no-op
func (e *Engine) Close() error { return nil }

// LoadCalls returns how many times Load ran
func (e *Engine) LoadCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadCalls
}

// Tok builds a token
func Tok(i int, text, lemma, pos, tag, dep string, head int) depparse.Token {
	return depparse.Token{Index: i, Text: text, Lemma: lemma, POS: pos, Tag: tag, Dep: dep, Head: head}
}
