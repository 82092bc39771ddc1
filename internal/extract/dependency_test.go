package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ppiankov/acsense/internal/depparse"
	"github.com/ppiankov/acsense/internal/depparse/depparsetest"
	"github.com/ppiankov/acsense/internal/model"
)

var tok = depparsetest.Tok

// "User can rotate the shape"
func rotateEngine() *depparsetest.Engine {
	e := depparsetest.New()
	e.Add("User can rotate the shape",
		tok(0, "User", "user", "NOUN", "NN", "nsubj", 2),
		tok(1, "can", "can", "AUX", "MD", "aux", 2),
		tok(2, "rotate", "rotate", "VERB", "VB", "ROOT", 2),
		tok(3, "the", "the", "DET", "DT", "det", 4),
		tok(4, "shape", "shape", "NOUN", "NN", "dobj", 2),
	)
	return e
}

func TestDependencyExtractor_RotateShape(t *testing.T) {
	x := NewDependencyExtractor(rotateEngine(), nil)
	sc := x.Parse(context.Background(), "User can rotate the shape")

	assert.Equal(t, model.MethodDependency, sc.Method)
	assert.Equal(t, "user", sc.Subject)
	assert.Equal(t, "rotate", sc.ActionVerb)
	assert.Equal(t, "the shape", sc.DirectObject)
	assert.Equal(t, "can", sc.Modal)
	assert.Equal(t, "present", sc.Tense)
	assert.False(t, sc.Negation)
	assert.GreaterOrEqual(t, sc.Confidence, 0.7)
	assert.InDelta(t, 1.0, sc.Confidence, 1e-9)
}

func TestDependencyExtractor_Signals(t *testing.T) {
	x := NewDependencyExtractor(rotateEngine(), nil)
	_, signals := x.ParseWithSignals(context.Background(), "User can rotate the shape")

	require.Len(t, signals, 3)
	assert.Equal(t, model.SignalRootVerb, signals[0].Type)
	assert.Equal(t, model.SignalSubject, signals[1].Type)
	assert.Equal(t, model.SignalObject, signals[2].Type)
}

func TestDependencyExtractor_ImperativeWithPrepAndClause(t *testing.T) {
	e := depparsetest.New()
	// "Click the button on the toolbar when the form is valid"
	e.Add("Click the button on the toolbar when the form is valid",
		tok(0, "Click", "click", "VERB", "VB", "ROOT", 0),
		tok(1, "the", "the", "DET", "DT", "det", 2),
		tok(2, "button", "button", "NOUN", "NN", "dobj", 0),
		tok(3, "on", "on", "ADP", "IN", "prep", 0),
		tok(4, "the", "the", "DET", "DT", "det", 5),
		tok(5, "toolbar", "toolbar", "NOUN", "NN", "pobj", 3),
		tok(6, "when", "when", "SCONJ", "WRB", "mark", 9),
		tok(7, "the", "the", "DET", "DT", "det", 8),
		tok(8, "form", "form", "NOUN", "NN", "nsubj", 9),
		tok(9, "is", "be", "AUX", "VBZ", "advcl", 0),
		tok(10, "valid", "valid", "ADJ", "JJ", "acomp", 9),
	)

	sc := NewDependencyExtractor(e, nil).Parse(context.Background(), "Click the button on the toolbar when the form is valid")

	assert.Equal(t, "user", sc.Subject, "imperative implies the user")
	assert.Equal(t, "click", sc.ActionVerb)
	assert.Equal(t, "the button", sc.DirectObject)
	assert.Equal(t, []model.PrepPair{{Prep: "on", Object: "the toolbar"}}, sc.Prepositions)
	assert.Equal(t, []string{"on the toolbar", "when the form is valid"}, sc.Modifiers)
}

func TestDependencyExtractor_NegationAndFuture(t *testing.T) {
	e := depparsetest.New()
	// "The system will not delete the list of items"
	e.Add("The system will not delete the list of items",
		tok(0, "The", "the", "DET", "DT", "det", 1),
		tok(1, "system", "system", "NOUN", "NN", "nsubj", 4),
		tok(2, "will", "will", "AUX", "MD", "aux", 4),
		tok(3, "not", "not", "PART", "RB", "neg", 4),
		tok(4, "delete", "delete", "VERB", "VB", "ROOT", 4),
		tok(5, "the", "the", "DET", "DT", "det", 6),
		tok(6, "list", "list", "NOUN", "NN", "dobj", 4),
		tok(7, "of", "of", "ADP", "IN", "prep", 6),
		tok(8, "items", "item", "NOUN", "NNS", "pobj", 7),
	)

	sc := NewDependencyExtractor(e, nil).Parse(context.Background(), "The system will not delete the list of items")

	assert.Equal(t, "the system", sc.Subject)
	assert.True(t, sc.Negation)
	assert.Equal(t, "will", sc.Modal)
	assert.Equal(t, "future", sc.Tense)
	assert.Equal(t, "the list of items", sc.DirectObject)
}

func TestDependencyExtractor_PastTense(t *testing.T) {
	e := depparsetest.New()
	saved := tok(1, "saved", "save", "VERB", "VBD", "ROOT", 1)
	saved.Morph = map[string]string{"Tense": "Past"}
	e.Add("Admin saved",
		tok(0, "Admin", "admin", "PROPN", "NNP", "nsubj", 1),
		saved,
	)

	sc := NewDependencyExtractor(e, nil).Parse(context.Background(), "Admin saved")
	assert.Equal(t, "past", sc.Tense)
	assert.Equal(t, "admin", sc.Subject)
	assert.InDelta(t, 0.7, sc.Confidence, 1e-9)
}

func TestDependencyExtractor_NonVerbalRoot(t *testing.T) {
	e := depparsetest.New()
	// "Error message" has no verb at all
	e.Add("Error message",
		tok(0, "Error", "error", "NOUN", "NN", "compound", 1),
		tok(1, "message", "message", "NOUN", "NN", "ROOT", 1),
	)

	sc := NewDependencyExtractor(e, nil).Parse(context.Background(), "Error message")
	assert.Equal(t, "message", sc.ActionVerb)
	assert.Empty(t, sc.Subject)
	assert.InDelta(t, 0.4, sc.Confidence, 1e-9)
}

func TestDependencyExtractor_LoadFailureLoggedOnce(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	e := depparsetest.New()
	e.LoadErr = depparse.ErrModelNotFound

	x := NewDependencyExtractor(e, zap.New(core))
	ctx := context.Background()

	assert.False(t, x.IsAvailable(ctx))
	sc := x.Parse(ctx, "anything")
	assert.Equal(t, model.MethodDependencyUnavailable, sc.Method)
	assert.Zero(t, sc.Confidence)
	assert.Nil(t, x.ExtractEntities(ctx, "anything"))

	assert.Equal(t, 1, e.LoadCalls())
	assert.Equal(t, 1, logs.FilterMessage("dependency parser unavailable").Len())
}

func TestDependencyExtractor_NilEngine(t *testing.T) {
	x := NewDependencyExtractor(nil, nil)
	assert.False(t, x.IsAvailable(context.Background()))
	assert.Equal(t, model.MethodDependencyUnavailable, x.Parse(context.Background(), "x").Method)
}

func TestDependencyExtractor_ParseError(t *testing.T) {
	x := NewDependencyExtractor(depparsetest.New(), nil)
	sc := x.Parse(context.Background(), "not registered")
	assert.Equal(t, model.MethodDependency, sc.Method)
	assert.Zero(t, sc.Confidence)
}

func TestDependencyExtractor_ExtractEntities(t *testing.T) {
	e := rotateEngine()
	doc := e.Docs["User can rotate the shape"]
	doc.Ents = []depparse.Entity{{Text: "User", Label: "PERSON"}}

	x := NewDependencyExtractor(e, nil)
	assert.Equal(t, []string{"User"}, x.ExtractEntities(context.Background(), "User can rotate the shape"))
	assert.Equal(t, []string{"User"}, x.Parse(context.Background(), "User can rotate the shape").Entities)
}

func TestDependencyExtractor_LoadErrorIsSticky(t *testing.T) {
	e := depparsetest.New()
	e.LoadErr = errors.New("connection refused")
	x := NewDependencyExtractor(e, nil)

	x.IsAvailable(context.Background())
	e.LoadErr = nil
	assert.False(t, x.IsAvailable(context.Background()))
}
