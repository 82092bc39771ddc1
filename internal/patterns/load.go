package patterns

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/acsense/internal/model"
	"github.com/ppiankov/acsense/internal/validate"
)

//go:embed default_patterns.yaml
var defaultPatterns []byte

// LoadDefinitions reads a YAML or JSON definition file. An empty path
// returns the built-in set.
func LoadDefinitions(path string) (*model.PatternFile, error) {
	data := defaultPatterns
	source := "built-in patterns"

	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read pattern file: %w", err)
		}
		source = path
	}

	return ParseDefinitions(data, source)
}

// ParseDefinitions decodes and validates definition data. YAML is a
// superset of JSON so both formats decode here.
func ParseDefinitions(data []byte, source string) (*model.PatternFile, error) {
	var f model.PatternFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", source, err)
	}

	if err := validate.PatternFile(&f); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	return &f, nil
}
