package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/ppiankov/acsense/internal/model"
	"github.com/ppiankov/acsense/internal/score"
)

// rule rewrites the first match of re. An empty template keeps the
// matched phrase; otherwise the template is expanded against the
// submatches.
type rule struct {
	re       *regexp.Regexp
	template string
}

func (r rule) apply(text string) (string, bool) {
	idx := r.re.FindStringSubmatchIndex(text)
	if idx == nil {
		return "", false
	}
	if r.template == "" {
		return text[idx[0]:idx[1]], true
	}
	return string(r.re.ExpandString(nil, r.template, text, idx)), true
}

// label names a rule that only detects
type label struct {
	re   *regexp.Regexp
	name string
}

var actionRules = []rule{
	{regexp.MustCompile(`\b(bring|move|send)\s+(?:to\s+)?(front|back|above|under)`), ""},
	{regexp.MustCompile(`\b(bring)\s+(above\s+objects?)`), ""},
	{regexp.MustCompile(`\b(send)\s+(under\s+objects?)`), ""},
	{regexp.MustCompile(`\b(rotate|flip|mirror|transform|scale)`), "${1}"},
	{regexp.MustCompile(`\b(enable|disable|toggle|show|hide)`), "${1}"},
	{regexp.MustCompile(`\b(?:are|is|becomes?)\s+(enabled|disabled|visible|hidden|available)\b`), "become ${1}"},
	{regexp.MustCompile(`\buser\s+(choose|select|click|toggle)s?\b`), "${1}"},
	{regexp.MustCompile(`\b(add|remove|create|delete)`), "${1}"},
	{regexp.MustCompile(`\b(click|press|tap|select|choose|enter|type|submit|open|close|navigate|upload|download|export|import|save|edit|update|search|filter|sort|drag|drop)(?:s|es|ed)?\b`), "${1}"},
}

// verbPhraseRe catches a known verb with its following word when no
// action rule fired
var verbPhraseRe = regexp.MustCompile(`\b((?:bring|send|move|enable|disable|show|hide|toggle|rotate|flip|mirror)\s+\w+)`)

var targetRules = []*regexp.Regexp{
	regexp.MustCompile(`draw\s+order\s+(?:actions?|commands?|operations?)`),
	regexp.MustCompile(`selected\s+(?:object|shape|item)`),
	regexp.MustCompile(`diameter\s+(?:measurement|label|line)`),
	regexp.MustCompile(`(?:the\s+)?object`),
	regexp.MustCompile(`(?:the\s+)?shape`),
	regexp.MustCompile(`(?:the\s+)?control`),
	regexp.MustCompile(`menu\s+items?`),
	regexp.MustCompile(`(?:the\s+)?(?:\w+\s+)?(?:button|field|menu|dialog|page|tab|list|link|checkbox|dropdown|panel|table|form)s?\b`),
}

var outcomeRules = []rule{
	{regexp.MustCompile(`(?:moves?|appears?)\s+(?:to\s+)?(?:the\s+)?(?:highest|top|above all)\s*(?:z-?order|level)?`), "moves to highest z-order"},
	{regexp.MustCompile(`(?:moves?|appears?)\s+(?:to\s+)?(?:the\s+)?(?:lowest|bottom|below all)\s*(?:z-?order|level)?`), "moves to lowest z-order"},
	{regexp.MustCompile(`(?:increases?|moves? up)\s+(?:by\s+)?one\s+level`), "increases z-order by one level"},
	{regexp.MustCompile(`(?:decreases?|moves? down)\s+(?:by\s+)?one\s+level`), "decreases z-order by one level"},
	{regexp.MustCompile(`(?:becomes?|are|is)\s+(enabled|disabled|visible|hidden)`), "are ${1}"},
	{regexp.MustCompile(`(?:remains?|stays?)\s+(?:the\s+same|unchanged)`), "remains unchanged"},
	{regexp.MustCompile(`(?:displays?|shows?|appears?)`), "is displayed"},
	{regexp.MustCompile(`(?:hides?|removes?|disappears?)`), "is hidden"},
}

var conditionRules = []*regexp.Regexp{
	regexp.MustCompile(`when\s+(?:an?\s+)?object\s+is\s+selected`),
	regexp.MustCompile(`when\s+no\s+object\s+is\s+selected`),
	regexp.MustCompile(`when\s+(?:the\s+)?object\s+is\s+(?:at\s+)?(?:top|bottom)`),
	regexp.MustCompile(`for\s+(?:ellipse|circle|rectangle)`),
}

// clauseRe is tried only when no specific condition matched
var clauseRe = regexp.MustCompile(`\b(?:when|if|after|before|while|once|unless)\s+[^,.;]+`)

var boundaryRules = []label{
	{regexp.MustCompile(`(?:at|when at|already at)\s+(?:the\s+)?(?:top|front|highest)`), "at top"},
	{regexp.MustCompile(`(?:at|when at|already at)\s+(?:the\s+)?(?:bottom|back|lowest)`), "at bottom"},
	{regexp.MustCompile(`(?:when|with|if)\s+no\s+(?:selection|object)`), "no selection"},
	{regexp.MustCompile(`(?:when|with|if)\s+(?:an?\s+)?(?:non-ellipse|non-circle|rectangle|wrong\s+type)`), "wrong object type"},
	{regexp.MustCompile(`multi(?:-|\s)?select`), "multi-selection"},
	{regexp.MustCompile(`(?:repeat|duplicate|reappl)`), "repeated action"},
}

var negationIndicators = []string{
	"disable", "disabled", "hide", "hidden", "no selection",
	"cannot", "should not", "must not", "without",
}

// RuleMatch is what the rule lists found in one bullet. A field no rule
// matched is empty; the outcome falls back to one implied by the action.
type RuleMatch struct {
	Action        string   `json:"action"`
	Target        string   `json:"target"`
	Outcome       string   `json:"outcome"`
	Conditions    []string `json:"conditions"`
	BoundaryCases []string `json:"boundary_cases"`
	Negation      bool     `json:"negation"`
}

// Components converts the match into semantic components
func (r RuleMatch) Components() model.SemanticComponents {
	sc := model.Empty(model.MethodRegex)
	sc.Subject = "user"
	if fields := strings.Fields(r.Action); len(fields) > 0 {
		sc.ActionVerb = fields[0]
	}
	sc.DirectObject = r.Target
	sc.Outcome = r.Outcome
	sc.Modifiers = append(sc.Modifiers, r.Conditions...)
	sc.Modifiers = append(sc.Modifiers, r.BoundaryCases...)
	sc.Negation = r.Negation
	return sc
}

// PatternExtractor applies ordered regex rules. It is always available.
type PatternExtractor struct {
	scorer *score.Scorer
}

// NewPatternExtractor creates a regex extractor
func NewPatternExtractor() *PatternExtractor {
	return &PatternExtractor{scorer: score.NewScorer()}
}

// Name returns the method tag
func (e *PatternExtractor) Name() model.Method { return model.MethodRegex }

// IsAvailable is always true
func (e *PatternExtractor) IsAvailable(ctx context.Context) bool { return true }

// Parse extracts components with the fixed rule confidence
func (e *PatternExtractor) Parse(ctx context.Context, text string) model.SemanticComponents {
	sc, _ := e.ParseWithSignals(ctx, text)
	return sc
}

// ParseWithSignals is Parse plus the confidence signal. The signal
// carries every rule field, including ones the components flatten.
func (e *PatternExtractor) ParseWithSignals(ctx context.Context, text string) (model.SemanticComponents, []model.Signal) {
	rm := e.Match(text)
	sc := rm.Components()
	conf, signals := e.scorer.Regex()
	sc.Confidence = conf
	for i := range signals {
		signals[i].Data = map[string]interface{}{
			"action":         rm.Action,
			"target":         rm.Target,
			"outcome":        rm.Outcome,
			"conditions":     rm.Conditions,
			"boundary_cases": rm.BoundaryCases,
		}
	}
	return sc, signals
}

// Match runs every rule list over the lowercased text
func (e *PatternExtractor) Match(text string) RuleMatch {
	lower := strings.ToLower(strings.TrimSpace(text))
	action := extractAction(lower)
	return RuleMatch{
		Action:        action,
		Target:        extractTarget(lower),
		Outcome:       extractOutcome(lower, action),
		Conditions:    extractConditions(lower),
		BoundaryCases: detectBoundaries(lower),
		Negation:      isNegation(lower),
	}
}

func extractAction(text string) string {
	for _, r := range actionRules {
		if action, ok := r.apply(text); ok {
			return action
		}
	}
	if m := verbPhraseRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

func extractTarget(text string) string {
	for _, re := range targetRules {
		if m := re.FindString(text); m != "" {
			return m
		}
	}
	return ""
}

func extractOutcome(text, action string) string {
	for _, r := range outcomeRules {
		if outcome, ok := r.apply(text); ok {
			return outcome
		}
	}

	switch {
	case strings.Contains(action, "enable"):
		return "are enabled"
	case strings.Contains(action, "disable"):
		return "are disabled"
	case strings.Contains(action, "show"), strings.Contains(action, "visible"):
		return "are visible"
	case strings.Contains(action, "hide"), strings.Contains(action, "hidden"):
		return "are hidden"
	}
	return ""
}

func extractConditions(text string) []string {
	conditions := []string{}
	for _, re := range conditionRules {
		if m := re.FindString(text); m != "" {
			conditions = append(conditions, m)
		}
	}
	if len(conditions) == 0 {
		for _, m := range clauseRe.FindAllString(text, -1) {
			conditions = append(conditions, strings.TrimSpace(m))
		}
	}
	return conditions
}

func detectBoundaries(text string) []string {
	cases := []string{}
	for _, l := range boundaryRules {
		if l.re.MatchString(text) {
			cases = append(cases, l.name)
		}
	}
	return cases
}

func isNegation(text string) bool {
	for _, ind := range negationIndicators {
		if strings.Contains(text, ind) {
			return true
		}
	}
	return false
}
