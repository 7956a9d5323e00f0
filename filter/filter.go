package filter

import (
	"fmt"
	"regexp"

	"page-notifier/parser"
)

// Filter removes configured patterns from page text before it is compared,
// so counters, clocks and similar noise do not register as changes.
type Filter struct {
	patterns []*regexp.Regexp
}

// NewFilter compiles the ignore patterns
func NewFilter(patterns []string) (*Filter, error) {
	f := &Filter{}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to compile ignore pattern %q: %w", p, err)
		}
		f.patterns = append(f.patterns, re)
	}
	return f, nil
}

// Apply strips every match of every pattern and re-normalizes whitespace.
// A nil or empty Filter returns text unchanged.
func (f *Filter) Apply(text string) string {
	if f == nil || len(f.patterns) == 0 {
		return text
	}

	for _, re := range f.patterns {
		text = re.ReplaceAllString(text, "")
	}

	return parser.Normalize(text)
}
