package main

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// FDA/FTC evaluations at or above this grade are compliant enough
	// to omit from the flagged list.
	compliantGradeCutoff = 85
	// Approved evaluations at or above this grade count as matches.
	approvedMatchThreshold = 50
	// Flagged evaluations below this grade get a fix suggestion.
	violationThreshold = 60
)

type rawGradingResponse struct {
	Evaluations    []rawEvaluation `json:"evaluations"`
	OverallSummary string          `json:"overall_summary"`
}

// rawEvaluation keeps loosely-typed fields as RawMessage so numeric
// grades arriving as strings and reasons arriving as a bare string
// can still be coerced.
type rawEvaluation struct {
	PolicyID string          `json:"policy_id"`
	Type     string          `json:"type"`
	Grade    json.RawMessage `json:"grade"`
	Reasons  json.RawMessage `json:"reasons"`
	Reason   string          `json:"reason"`
}

// NormalizeResponse turns raw model output into a GradingResult. A
// non-nil *MalformedResponseError alongside a usable result means
// some evaluations were rejected but the rest were processed.
func NormalizeResponse(raw string) (GradingResult, error) {
	evals, summary, rejects, err := parseGradingResponse(raw)
	if err != nil {
		return GradingResult{}, err
	}
	result := ScoreEvaluations(evals, summary)
	if len(rejects) > 0 {
		return result, &MalformedResponseError{
			Detail:  fmt.Sprintf("%d evaluation(s) rejected", len(rejects)),
			Rejects: rejects,
		}
	}
	return result, nil
}

// parseGradingResponse validates the untrusted payload shape.
// Individual evaluations missing policy_id or grade are collected as
// rejects rather than aborting the response; a response with no
// usable evaluations at all is a hard failure.
func parseGradingResponse(raw string) ([]Evaluation, string, []FieldError, error) {
	text := stripFences(raw)

	var resp rawGradingResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		truncated := text
		if len(truncated) > 512 {
			truncated = truncated[:512] + fmt.Sprintf("... [truncated, total_length=%d]", len(text))
		}
		return nil, "", nil, &MalformedResponseError{Detail: fmt.Sprintf("not valid JSON: %v (response: %s)", err, truncated)}
	}
	if len(resp.Evaluations) == 0 {
		return nil, "", nil, &MalformedResponseError{Detail: "missing field evaluations"}
	}

	var evals []Evaluation
	var rejects []FieldError
	for i, r := range resp.Evaluations {
		id := strings.TrimSpace(r.PolicyID)
		if id == "" {
			rejects = append(rejects, FieldError{Field: "policy_id", Detail: fmt.Sprintf("missing on evaluation %d", i)})
			continue
		}
		grade, ok := coerceGrade(r.Grade)
		if !ok {
			rejects = append(rejects, FieldError{PolicyID: id, Field: "grade", Detail: "missing or non-numeric"})
			continue
		}
		if grade < 0 || grade > 100 {
			rejects = append(rejects, FieldError{PolicyID: id, Field: "grade", Detail: fmt.Sprintf("out of range: %d", grade)})
			continue
		}
		category, ok := resolveCategory(r.Type, id)
		if !ok {
			rejects = append(rejects, FieldError{PolicyID: id, Field: "type", Detail: fmt.Sprintf("unknown category %q", r.Type)})
			continue
		}
		evals = append(evals, Evaluation{
			PolicyID: id,
			Category: category,
			Grade:    grade,
			Reasons:  coerceReasons(r.Reasons, r.Reason),
		})
	}

	if len(evals) == 0 {
		return nil, "", nil, &MalformedResponseError{Detail: "no usable evaluations", Rejects: rejects}
	}
	return evals, strings.TrimSpace(resp.OverallSummary), rejects, nil
}

// ScoreEvaluations computes category scores and the filtered views.
// Approved scores by best single match; FDA/FTC by rounded mean, since
// regulatory risk accumulates across all cited policies. Model-given
// order is preserved in both lists.
func ScoreEvaluations(evals []Evaluation, overallSummary string) GradingResult {
	var approvedMax, fdaSum, fdaCount, ftcSum, ftcCount int
	var flagged, matches, misses []Evaluation

	for _, e := range evals {
		switch e.Category {
		case CategoryApproved:
			if e.Grade > approvedMax {
				approvedMax = e.Grade
			}
			if e.Grade >= approvedMatchThreshold {
				matches = append(matches, e)
			} else {
				misses = append(misses, e)
			}
		case CategoryFDA:
			fdaSum += e.Grade
			fdaCount++
			if e.Grade < compliantGradeCutoff {
				flagged = append(flagged, e)
			}
		case CategoryFTC:
			ftcSum += e.Grade
			ftcCount++
			if e.Grade < compliantGradeCutoff {
				flagged = append(flagged, e)
			}
		}
	}

	return GradingResult{
		Scores: CategoryScores{
			Approved: approvedMax,
			FDA:      roundedMean(fdaSum, fdaCount),
			FTC:      roundedMean(ftcSum, ftcCount),
		},
		FlaggedEvaluations:   flagged,
		ApprovedMatches:      matches,
		ApprovedMatchSummary: summarizeApprovedMatches(matches),
		OverallSummary:       overallSummary,
		approvedMisses:       misses,
		evaluated:            len(evals),
	}
}

func roundedMean(sum, count int) int {
	if count == 0 {
		return 0
	}
	return int(math.Round(float64(sum) / float64(count)))
}

func summarizeApprovedMatches(matches []Evaluation) string {
	if len(matches) == 0 {
		return "No strong alignment with approved claims."
	}
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.PolicyID
	}
	return fmt.Sprintf("Aligned with %d approved claim(s): %s.", len(matches), strings.Join(ids, ", "))
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// coerceGrade accepts a JSON number or a numeric string; anything
// else (including absence) fails.
func coerceGrade(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}

	var asFloat float64
	if err := json.Unmarshal(raw, &asFloat); err == nil {
		return int(math.Round(asFloat)), true
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		f, err := strconv.ParseFloat(strings.TrimSpace(asString), 64)
		if err != nil {
			return 0, false
		}
		return int(math.Round(f)), true
	}

	return 0, false
}

// coerceReasons accepts ["a", "b"], a bare string, or falls back to a
// legacy singular "reason" field.
func coerceReasons(raw json.RawMessage, fallback string) []string {
	var out []string

	if len(raw) > 0 && string(raw) != "null" {
		var asSlice []string
		if err := json.Unmarshal(raw, &asSlice); err == nil {
			for _, s := range asSlice {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		} else {
			var asString string
			if err := json.Unmarshal(raw, &asString); err == nil {
				if asString = strings.TrimSpace(asString); asString != "" {
					out = append(out, asString)
				}
			}
		}
	}

	if len(out) == 0 {
		if fallback = strings.TrimSpace(fallback); fallback != "" {
			out = append(out, fallback)
		}
	}
	return out
}

// resolveCategory reads the type field, falling back to the policy id
// prefix when the model omits or mangles it.
func resolveCategory(typeField, policyID string) (Category, bool) {
	if c, ok := categoryFromToken(typeField); ok {
		return c, true
	}
	prefix, _, found := strings.Cut(policyID, ":")
	if found {
		return categoryFromToken(prefix)
	}
	return "", false
}

func categoryFromToken(s string) (Category, bool) {
	switch normalizeTextToken(s) {
	case "approved", "approved claim", "approved_claim":
		return CategoryApproved, true
	case "fda":
		return CategoryFDA, true
	case "ftc":
		return CategoryFTC, true
	}
	return "", false
}
