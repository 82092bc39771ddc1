package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/ppiankov/acsense/internal/model"
)

// Validator checks pattern definition documents
type Validator struct {
	v     *validator.Validate
	trans ut.Translator
}

var (
	vOnce sync.Once
	vSvc  *Validator
)

// Default returns the shared validator, initializing on first use
func Default() *Validator {
	vOnce.Do(func() {
		vSvc = New()
	})
	return vSvc
}

// New builds a validator with english messages and yaml field names
func New() *Validator {
	enLoc := en.New()
	uni := ut.New(enLoc, enLoc)
	trans, _ := uni.GetTranslator("en")

	v := validator.New(validator.WithRequiredStructEnabled())

	// prefer yaml tag names in messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		tag := fld.Tag.Get("yaml")
		if tag == "-" || tag == "" {
			return fld.Name
		}
		if idx := strings.Index(tag, ","); idx >= 0 {
			tag = tag[:idx]
		}
		return tag
	})

	_ = en_translations.RegisterDefaultTranslations(v, trans)

	return &Validator{v: v, trans: trans}
}

// PatternFile validates a definition document. Field rules come from
// struct tags; IDs must be unique and regex fallbacks must compile.
// All problems are reported together.
func (val *Validator) PatternFile(f *model.PatternFile) error {
	if f == nil {
		return errors.New("pattern file is nil")
	}

	var problems []string

	if err := val.v.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				problems = append(problems, fmt.Sprintf("%s: %s", trimNamespace(fe.Namespace()), fe.Translate(val.trans)))
			}
		} else {
			problems = append(problems, err.Error())
		}
	}

	seen := make(map[string]int, len(f.Patterns))
	for i, p := range f.Patterns {
		if p.ID != "" {
			if first, dup := seen[p.ID]; dup {
				problems = append(problems, fmt.Sprintf("patterns[%d].id: duplicate of patterns[%d] (%s)", i, first, p.ID))
			} else {
				seen[p.ID] = i
			}
		}
		if p.RegexFallback != "" {
			if _, err := regexp.Compile(p.RegexFallback); err != nil {
				problems = append(problems, fmt.Sprintf("patterns[%d].regex_fallback: %v", i, err))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid pattern definitions: %s", strings.Join(problems, "; "))
	}
	return nil
}

// PatternFile validates f with the shared validator
func PatternFile(f *model.PatternFile) error {
	return Default().PatternFile(f)
}

// trimNamespace drops the root struct name: "PatternFile.patterns[0].id"
// becomes "patterns[0].id"
func trimNamespace(ns string) string {
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return ns
}
