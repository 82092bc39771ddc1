package model

// ExplainReport lists what every strategy produced for one bullet.
// It is a tuning aid: nothing in it selects a winner.
type ExplainReport struct {
	Input      string                         `json:"input"`      // Text as received
	Normalized string                         `json:"normalized"` // Text every strategy saw
	Candidates []Candidate                    `json:"candidates"`
	Matches    map[Category][]SimilarityMatch `json:"matches,omitempty"` // Top patterns per category, below-threshold included
}

// Candidate is one strategy's output with its acceptance threshold
type Candidate struct {
	Method         Method              `json:"method"`
	Available      bool                `json:"available"`
	Threshold      float64             `json:"threshold"`
	MeetsThreshold bool                `json:"meets_threshold"`
	Result         *SemanticComponents `json:"result,omitempty"`
	Signals        []Signal            `json:"signals,omitempty"`
}

// Signal is one transparent input to a confidence score
type Signal struct {
	Type        SignalType             `json:"type"`
	Weight      float64                `json:"weight"`      // Contribution to confidence
	Description string                 `json:"description"` // Human-readable description
	Data        map[string]interface{} `json:"data,omitempty"`
}

// SignalType classifies a confidence signal
type SignalType string

const (
	SignalRootVerb     SignalType = "root_verb"     // Dependency tree has a main verb
	SignalSubject      SignalType = "subject"       // Subject resolved
	SignalObject       SignalType = "object"        // Direct object resolved
	SignalActionMatch  SignalType = "action_match"  // Best action pattern score
	SignalOutcomeMatch SignalType = "outcome_match" // Best outcome pattern score
	SignalRuleMatch    SignalType = "rule_match"    // Fixed regex confidence
)
