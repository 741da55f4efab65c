package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ComplianceLexicon holds deterministic phrase rules applied on top
// of model output. When the marketing text contains a known-bad
// phrase, the named policy's grade is capped regardless of what the
// model returned.
type ComplianceLexicon struct {
	Terms []LexiconTerm `yaml:"terms"`
}

type LexiconTerm struct {
	Phrase   string `yaml:"phrase"`
	PolicyID string `yaml:"policy_id"`
	MaxGrade int    `yaml:"max_grade"`
}

func LoadComplianceLexicon(path string) (*ComplianceLexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon: %w", err)
	}
	var lex ComplianceLexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("parse lexicon yaml: %w", err)
	}
	for i, term := range lex.Terms {
		if strings.TrimSpace(term.Phrase) == "" || strings.TrimSpace(term.PolicyID) == "" {
			return nil, fmt.Errorf("lexicon term %d: phrase and policy_id are required", i)
		}
		if term.MaxGrade < 0 || term.MaxGrade > 100 {
			return nil, fmt.Errorf("lexicon term %d: max_grade out of range: %d", i, term.MaxGrade)
		}
	}
	return &lex, nil
}

func normalizeTextToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// applyLexiconOverrides caps evaluation grades for lexicon phrases
// present in the marketing text. Runs before scoring so category
// scores and filters see the capped grades.
func applyLexiconOverrides(marketingText string, evals []Evaluation, lex *ComplianceLexicon) []Evaluation {
	if lex == nil || len(lex.Terms) == 0 {
		return evals
	}
	text := normalizeTextToken(marketingText)
	for i := range evals {
		for _, term := range lex.Terms {
			if term.PolicyID != evals[i].PolicyID {
				continue
			}
			phrase := normalizeTextToken(term.Phrase)
			if phrase == "" || !strings.Contains(text, phrase) {
				continue
			}
			if evals[i].Grade > term.MaxGrade {
				evals[i].Grade = term.MaxGrade
				evals[i].Reasons = append(evals[i].Reasons, fmt.Sprintf("Contains flagged phrase %q.", term.Phrase))
			}
		}
	}
	return evals
}
