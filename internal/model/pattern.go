package model

// Category is the closed set of canonical pattern kinds
type Category string

const (
	CategoryAction    Category = "action"    // What the user does
	CategoryOutcome   Category = "outcome"   // What should happen
	CategoryBoundary  Category = "boundary"  // Edge condition worth a test
	CategoryCondition Category = "condition" // Precondition on the action
)

// Categories lists every category in matching order
var Categories = []Category{CategoryAction, CategoryOutcome, CategoryBoundary, CategoryCondition}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	switch c {
	case CategoryAction, CategoryOutcome, CategoryBoundary, CategoryCondition:
		return true
	}
	return false
}

// PatternDefinition is one entry of the pattern definition file
type PatternDefinition struct {
	ID            string   `yaml:"id" json:"id" validate:"required"`
	Canonical     string   `yaml:"canonical" json:"canonical" validate:"required"`
	Category      Category `yaml:"category" json:"category" validate:"required,oneof=action outcome boundary condition"`
	Subcategory   string   `yaml:"subcategory,omitempty" json:"subcategory,omitempty"`
	Synonyms      []string `yaml:"synonyms,omitempty" json:"synonyms,omitempty" validate:"dive,required"`
	RegexFallback string   `yaml:"regex_fallback,omitempty" json:"regex_fallback,omitempty"`
}

// PatternFile is the on-disk pattern definition document
type PatternFile struct {
	Version  string              `yaml:"version,omitempty" json:"version,omitempty"`
	Patterns []PatternDefinition `yaml:"patterns" json:"patterns" validate:"required,min=1,dive"`
}

// MatchMetadata carries pattern details alongside a similarity match
type MatchMetadata struct {
	Subcategory   string `json:"subcategory,omitempty"`
	RegexFallback string `json:"regex_fallback,omitempty"`
}

// SimilarityMatch is a ranked pattern hit for one query. Never persisted.
type SimilarityMatch struct {
	PatternID   string        `json:"pattern_id"`
	PatternText string        `json:"pattern_text"` // Canonical phrase of the pattern
	Category    Category      `json:"category"`
	Score       float64       `json:"similarity_score"`
	Metadata    MatchMetadata `json:"metadata"`
}
