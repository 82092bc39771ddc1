package model

import (
	"fmt"
	"strings"
)

// Method tags the extraction strategy that produced a result
type Method string

const (
	MethodRegex                 Method = "regex"                  // Ordered rule matching
	MethodDependency            Method = "dependency"             // Dependency-parse tree walk
	MethodEmbedding             Method = "embedding"              // Similarity against canonical patterns
	MethodDependencyUnavailable Method = "dependency_unavailable" // Parser model not loaded
	MethodNone                  Method = "none"                   // Nothing parsed yet
)

// PrepPair is a preposition attached to the main verb and its object
type PrepPair struct {
	Prep   string `json:"prep"`
	Object string `json:"object"`
}

// SemanticComponents is the structure every strategy extracts from an
// acceptance-criteria bullet. Values are built fresh for each call and
// never mutated afterwards.
type SemanticComponents struct {
	Subject        string     `json:"subject"`                   // Who acts ("user", "system")
	ActionVerb     string     `json:"action_verb"`               // Core action ("click", "enable")
	DirectObject   string     `json:"direct_object"`             // What is acted upon
	IndirectObject string     `json:"indirect_object,omitempty"` // Secondary target, empty when absent
	Outcome        string     `json:"outcome,omitempty"`         // Expected result when a rule or pattern names one
	Modifiers      []string   `json:"modifiers"`                 // Conditions, constraints and boundary cases, in order
	Prepositions   []PrepPair `json:"prepositions"`              // (prep, object) pairs, in order
	Negation       bool       `json:"negation"`                  // Negative scenario
	Modal          string     `json:"modal,omitempty"`           // should, must, can...
	Tense          string     `json:"tense"`                     // past, present, future
	Confidence     float64    `json:"confidence"`                // Heuristic in [0,1], not a probability
	Method         Method     `json:"method"`                    // Producing strategy
	Entities       []string   `json:"entities,omitempty"`        // Named entities, dependency parse only
}

// Empty returns a zero-confidence result tagged with the given method
func Empty(method Method) SemanticComponents {
	return SemanticComponents{
		Modifiers:    []string{},
		Prepositions: []PrepPair{},
		Tense:        "present",
		Method:       method,
	}
}

// ActionTargetOutcome flattens the components into an action, target,
// outcome triple. An extracted outcome wins over one derived from the verb.
func (s SemanticComponents) ActionTargetOutcome() (string, string, string) {
	var outcome string
	switch {
	case s.Outcome != "":
		outcome = s.Outcome
	case s.ActionVerb == "" && s.Negation:
		outcome = "does not occur"
	case s.ActionVerb == "":
		outcome = "occurs"
	case s.Negation:
		outcome = fmt.Sprintf("is not %sd", s.ActionVerb)
	default:
		outcome = fmt.Sprintf("is %sd", s.ActionVerb)
	}
	return s.ActionVerb, s.DirectObject, outcome
}

// String renders a compact single-line summary
func (s SemanticComponents) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s %.2f] %s %s", s.Method, s.Confidence, s.Subject, s.ActionVerb)
	if s.DirectObject != "" {
		b.WriteString(" " + s.DirectObject)
	}
	if s.Negation {
		b.WriteString(" (negated)")
	}
	return b.String()
}

// ClampConfidence bounds a heuristic score to [0,1]
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
