package extract

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ppiankov/acsense/internal/depparse"
	"github.com/ppiankov/acsense/internal/logging"
	"github.com/ppiankov/acsense/internal/model"
	"github.com/ppiankov/acsense/internal/score"
)

var (
	subjectDeps     = set("nsubj", "nsubjpass", "csubj", "csubjpass", "agent", "expl")
	chunkLeftDeps   = set("compound", "amod", "det", "nummod", "poss")
	clauseMarks     = set("if", "when", "while", "after", "before")
	negationWords   = set("not", "no", "never", "neither", "nor", "cannot", "n't")
	modalWords      = set("should", "must", "can", "could", "will", "would", "may", "might")
	indirectObjDeps = set("iobj", "dative")
)

func set(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// DependencyExtractor walks a dependency parse. The engine is loaded on
// first use; a load failure makes the extractor unavailable for the
// life of the process.
type DependencyExtractor struct {
	engine depparse.Engine
	scorer *score.Scorer
	logger *zap.Logger

	once    sync.Once
	loadErr error
}

// NewDependencyExtractor wraps engine. A nil engine is never available.
func NewDependencyExtractor(engine depparse.Engine, logger *zap.Logger) *DependencyExtractor {
	return &DependencyExtractor{
		engine: engine,
		scorer: score.NewScorer(),
		logger: logging.OrNop(logger),
	}
}

// Name returns the method tag
func (e *DependencyExtractor) Name() model.Method { return model.MethodDependency }

// IsAvailable loads the engine on first call
func (e *DependencyExtractor) IsAvailable(ctx context.Context) bool {
	if e.engine == nil {
		return false
	}
	e.once.Do(func() {
		e.loadErr = e.engine.Load(ctx)
		if e.loadErr != nil {
			e.logger.Warn("dependency parser unavailable",
				zap.String("model", e.engine.Model()),
				zap.Error(e.loadErr))
		}
	})
	return e.loadErr == nil
}

// Parse extracts components from the parse tree
func (e *DependencyExtractor) Parse(ctx context.Context, text string) model.SemanticComponents {
	sc, _ := e.ParseWithSignals(ctx, text)
	return sc
}

// ParseWithSignals is Parse plus the signals behind the confidence
func (e *DependencyExtractor) ParseWithSignals(ctx context.Context, text string) (model.SemanticComponents, []model.Signal) {
	if !e.IsAvailable(ctx) {
		return model.Empty(model.MethodDependencyUnavailable), nil
	}

	doc, err := e.engine.Parse(ctx, text)
	if err != nil {
		e.logger.Debug("dependency parse failed", zap.Error(err))
		return model.Empty(model.MethodDependency), nil
	}
	return e.analyze(doc)
}

// ExtractEntities returns named entity texts, nil when unavailable
func (e *DependencyExtractor) ExtractEntities(ctx context.Context, text string) []string {
	if !e.IsAvailable(ctx) {
		return nil
	}
	doc, err := e.engine.Parse(ctx, text)
	if err != nil {
		return nil
	}
	return entityTexts(doc)
}

func (e *DependencyExtractor) analyze(doc *depparse.Doc) (model.SemanticComponents, []model.Signal) {
	sc := model.Empty(model.MethodDependency)
	sc.Entities = entityTexts(doc)
	sc.Negation = hasNegation(doc, nil)

	root, ok := findRoot(doc)
	if !ok {
		conf, signals := e.scorer.Dependency("", "", "")
		sc.Confidence = conf
		return sc, signals
	}

	sc.ActionVerb = strings.ToLower(root.Lemma)
	if sc.ActionVerb == "" {
		sc.ActionVerb = strings.ToLower(root.Text)
	}
	sc.Subject = strings.ToLower(findSubject(doc, root))
	sc.DirectObject = findObject(doc, root)
	sc.IndirectObject = findIndirectObject(doc, root)
	sc.Modifiers = append(sc.Modifiers, findModifiers(doc, root)...)
	sc.Prepositions = append(sc.Prepositions, findPrepositions(doc, root)...)
	sc.Negation = hasNegation(doc, &root)
	sc.Modal = findModal(doc, root)
	sc.Tense = findTense(doc, root)

	conf, signals := e.scorer.Dependency(sc.ActionVerb, sc.Subject, sc.DirectObject)
	sc.Confidence = conf
	return sc, signals
}

// findRoot prefers a verbal ROOT, then a verb under ROOT, then ROOT
// itself, then the first verb anywhere
func findRoot(doc *depparse.Doc) (depparse.Token, bool) {
	if root, ok := doc.Root(); ok {
		if root.POS == "VERB" {
			return root, true
		}
		for _, c := range doc.Children(root.Index) {
			if c.POS == "VERB" {
				return c, true
			}
		}
		return root, true
	}
	for _, t := range doc.Tokens {
		if t.POS == "VERB" {
			return t, true
		}
	}
	return depparse.Token{}, false
}

func findSubject(doc *depparse.Doc, root depparse.Token) string {
	for _, c := range doc.Children(root.Index) {
		if !subjectDeps[c.Dep] {
			continue
		}
		if c.Dep == "agent" {
			for _, g := range doc.Children(c.Index) {
				if g.Dep == "pobj" {
					return nounChunk(doc, g)
				}
			}
			continue
		}
		return nounChunk(doc, c)
	}

	// Imperatives have an implied user
	if root.POS == "VERB" && root.Tag == "VB" {
		return "user"
	}
	return ""
}

func findObject(doc *depparse.Doc, root depparse.Token) string {
	children := doc.Children(root.Index)
	for _, c := range children {
		if c.Dep == "dobj" {
			return nounChunk(doc, c)
		}
	}
	for _, c := range children {
		if c.Dep != "prep" {
			continue
		}
		for _, g := range doc.Children(c.Index) {
			if g.Dep == "pobj" {
				return nounChunk(doc, g)
			}
		}
	}
	for _, c := range children {
		if c.Dep == "attr" {
			return nounChunk(doc, c)
		}
	}
	return ""
}

func findIndirectObject(doc *depparse.Doc, root depparse.Token) string {
	for _, c := range doc.Children(root.Index) {
		if indirectObjDeps[c.Dep] {
			return nounChunk(doc, c)
		}
	}
	return ""
}

func findModifiers(doc *depparse.Doc, root depparse.Token) []string {
	var mods []string
	for _, c := range doc.Children(root.Index) {
		switch c.Dep {
		case "advmod":
			mods = append(mods, c.Text)
		case "prep":
			for _, g := range doc.Children(c.Index) {
				if g.Dep == "pobj" {
					mods = append(mods, c.Text+" "+nounChunk(doc, g))
				}
			}
		}
	}

	for _, t := range doc.Tokens {
		if t.Dep == "mark" && clauseMarks[strings.ToLower(t.Text)] {
			mods = append(mods, depparse.JoinText(doc.Subtree(t.Head)))
		}
	}
	return mods
}

func findPrepositions(doc *depparse.Doc, root depparse.Token) []model.PrepPair {
	var pairs []model.PrepPair
	for _, c := range doc.Children(root.Index) {
		if c.Dep != "prep" {
			continue
		}
		for _, g := range doc.Children(c.Index) {
			if g.Dep == "pobj" {
				pairs = append(pairs, model.PrepPair{Prep: c.Text, Object: nounChunk(doc, g)})
			}
		}
	}
	return pairs
}

// hasNegation checks the root's neg children, then every token
func hasNegation(doc *depparse.Doc, root *depparse.Token) bool {
	if root != nil {
		for _, c := range doc.Children(root.Index) {
			if c.Dep == "neg" {
				return true
			}
		}
	}
	for _, t := range doc.Tokens {
		lower := strings.ToLower(t.Text)
		if negationWords[lower] || strings.HasSuffix(lower, "n't") {
			return true
		}
	}
	return false
}

func findModal(doc *depparse.Doc, root depparse.Token) string {
	for _, c := range doc.Children(root.Index) {
		if c.Dep == "aux" && modalWords[strings.ToLower(c.Text)] {
			return strings.ToLower(c.Text)
		}
	}
	return ""
}

func findTense(doc *depparse.Doc, root depparse.Token) string {
	if root.Morph["Tense"] == "Past" {
		return "past"
	}
	for _, c := range doc.Children(root.Index) {
		if c.Dep == "aux" && strings.ToLower(c.Text) == "will" {
			return "future"
		}
	}
	return "present"
}

// nounChunk joins left modifiers, the token and any "of X" expansion
func nounChunk(doc *depparse.Doc, t depparse.Token) string {
	var parts []string
	children := doc.Children(t.Index)
	for _, c := range children {
		if c.Index < t.Index && chunkLeftDeps[c.Dep] {
			parts = append(parts, c.Text)
		}
	}
	parts = append(parts, t.Text)

	for _, c := range children {
		if c.Dep != "prep" || strings.ToLower(c.Text) != "of" {
			continue
		}
		for _, g := range doc.Children(c.Index) {
			if g.Dep == "pobj" {
				parts = append(parts, "of", nounChunk(doc, g))
			}
		}
	}
	return strings.Join(parts, " ")
}

func entityTexts(doc *depparse.Doc) []string {
	if len(doc.Ents) == 0 {
		return nil
	}
	out := make([]string, 0, len(doc.Ents))
	for _, ent := range doc.Ents {
		out = append(out, ent.Text)
	}
	return out
}
