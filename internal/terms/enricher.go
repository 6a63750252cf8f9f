package terms

import (
	"fmt"
	"strings"
)

// LearningPath orders the study suggestions attached to an explanation.
type LearningPath struct {
	Prerequisites []string `json:"prerequisites"`
	Related       []string `json:"related_concepts"`
	NextSteps     []string `json:"next_steps"`
}

// Explanation is the enriched, immutable view of one term. Enhanced is false
// for unknown terms, in which case only Term and Definition carry content.
type Explanation struct {
	Term             string       `json:"term"`
	Definition       string       `json:"definition"`
	Category         string       `json:"category,omitempty"`
	Complexity       string       `json:"complexity,omitempty"`
	Enhanced         bool         `json:"enhanced"`
	LearningPath     LearningPath `json:"learning_path"`
	PracticalExample string       `json:"practical_example,omitempty"`
	Misconceptions   []string     `json:"common_misconceptions,omitempty"`
	UsageContext     string       `json:"real_world_usage,omitempty"`
}

// Enricher composes explanations from the dictionary's relationship table and
// the static per-term tables. It is pure given those tables.
type Enricher struct {
	dict *Dictionary
}

func NewEnricher(dict *Dictionary) *Enricher {
	return &Enricher{dict: dict}
}

const maxPathEntries = 3

// Explain builds the explanation for one term. The context and userLevel
// parameters are accepted for future differentiation; they do not currently
// alter the output.
func (e *Enricher) Explain(term, context, userLevel string) Explanation {
	key := strings.ToLower(term)

	definition, ok := e.dict.Definition(key)
	if !ok {
		return Explanation{
			Term:       term,
			Definition: fmt.Sprintf("No definition available for %q", term),
			Enhanced:   false,
		}
	}

	rel, _ := e.dict.Relationship(key)

	explanation := Explanation{
		Term:       term,
		Definition: definition,
		Category:   rel.Category,
		Complexity: rel.Complexity,
		Enhanced:   true,
		LearningPath: LearningPath{
			Prerequisites: clip(rel.Prerequisites, maxPathEntries),
			Related:       clip(rel.Related, maxPathEntries),
			NextSteps:     append([]string(nil), nextStepsTable[key]...),
		},
		Misconceptions: append([]string(nil), misconceptionTable[key]...),
	}

	if example, ok := exampleTable[key]; ok {
		explanation.PracticalExample = example
	} else {
		explanation.PracticalExample = fmt.Sprintf("A fundamental concept in software engineering related to %s.", key)
	}
	if usage, ok := usageContextTable[key]; ok {
		explanation.UsageContext = usage
	} else {
		explanation.UsageContext = "Widely used in modern software development and engineering practices."
	}

	return explanation
}

// ExplainAll enriches every extracted term, keyed by term.
func (e *Enricher) ExplainAll(found []string, context string) map[string]Explanation {
	out := make(map[string]Explanation, len(found))
	for _, term := range found {
		out[term] = e.Explain(term, context, "")
	}
	return out
}

func clip(in []string, n int) []string {
	if len(in) > n {
		in = in[:n]
	}
	return append([]string(nil), in...)
}
