package main

import (
	"errors"
	"strings"
	"testing"
)

const wellFormedResponse = `{
	"evaluations": [
		{"policy_id": "approved:A1", "type": "approved", "grade": 90, "reasons": ["close match to claim wording"]},
		{"policy_id": "approved:A2", "type": "approved", "grade": 40, "reasons": ["weak similarity"]},
		{"policy_id": "fda:F1", "type": "fda", "grade": 95, "reasons": ["Unrelated; no conflict."]},
		{"policy_id": "fda:F2", "type": "fda", "grade": 70, "reasons": ["minor substantiation risk"]},
		{"policy_id": "ftc:T1", "type": "ftc", "grade": 60, "reasons": ["unsubstantiated superiority claim"]}
	],
	"overall_summary": "Mostly aligned, one FTC concern."
}`

func TestNormalizeResponseWorkedExample(t *testing.T) {
	result, err := NormalizeResponse(wellFormedResponse)
	if err != nil {
		t.Fatalf("NormalizeResponse returned error: %v", err)
	}

	if result.Scores.Approved != 90 {
		t.Fatalf("expected approved score 90 (best single match), got %d", result.Scores.Approved)
	}
	if result.Scores.FDA != 83 {
		t.Fatalf("expected fda score 83 (rounded mean of 95,70), got %d", result.Scores.FDA)
	}
	if result.Scores.FTC != 60 {
		t.Fatalf("expected ftc score 60, got %d", result.Scores.FTC)
	}

	if len(result.FlaggedEvaluations) != 2 {
		t.Fatalf("expected 2 flagged evaluations, got %d", len(result.FlaggedEvaluations))
	}
	if result.FlaggedEvaluations[0].PolicyID != "fda:F2" || result.FlaggedEvaluations[1].PolicyID != "ftc:T1" {
		t.Fatalf("expected flagged order [fda:F2 ftc:T1], got %v", result.FlaggedEvaluations)
	}
	for _, e := range result.FlaggedEvaluations {
		if e.Category != CategoryFDA && e.Category != CategoryFTC {
			t.Fatalf("flagged evaluation %s has category %s", e.PolicyID, e.Category)
		}
		if e.Grade >= compliantGradeCutoff {
			t.Fatalf("flagged evaluation %s has compliant grade %d", e.PolicyID, e.Grade)
		}
	}

	if len(result.ApprovedMatches) != 1 || result.ApprovedMatches[0].PolicyID != "approved:A1" {
		t.Fatalf("expected approved matches [approved:A1], got %v", result.ApprovedMatches)
	}
	if result.OverallSummary != "Mostly aligned, one FTC concern." {
		t.Fatalf("unexpected overall summary: %q", result.OverallSummary)
	}
	if !strings.Contains(result.ApprovedMatchSummary, "approved:A1") {
		t.Fatalf("expected match summary to cite approved:A1, got %q", result.ApprovedMatchSummary)
	}
	if !result.Graded() {
		t.Fatal("expected scored result to report Graded")
	}
}

func TestNormalizeResponseStripsMarkdownFences(t *testing.T) {
	fenced := "```json\n" + wellFormedResponse + "\n```"
	result, err := NormalizeResponse(fenced)
	if err != nil {
		t.Fatalf("NormalizeResponse returned error: %v", err)
	}
	if result.Scores.Approved != 90 {
		t.Fatalf("expected approved score 90 after fence stripping, got %d", result.Scores.Approved)
	}
}

func TestNormalizeResponseCoercesLooseTypes(t *testing.T) {
	raw := `{
		"evaluations": [
			{"policy_id": "fda:F1", "grade": "88", "reasons": "compliant enough"},
			{"policy_id": "ftc:T1", "type": "ftc", "grade": 72.6, "reason": "legacy singular reason"}
		],
		"overall_summary": "ok"
	}`
	result, err := NormalizeResponse(raw)
	if err != nil {
		t.Fatalf("NormalizeResponse returned error: %v", err)
	}

	// Category falls back to the id prefix when type is missing.
	if result.Scores.FDA != 88 {
		t.Fatalf("expected string grade coerced to 88, got fda score %d", result.Scores.FDA)
	}
	if result.Scores.FTC != 73 {
		t.Fatalf("expected float grade rounded to 73, got ftc score %d", result.Scores.FTC)
	}
	if len(result.FlaggedEvaluations) != 2 {
		t.Fatalf("expected both evaluations flagged, got %d", len(result.FlaggedEvaluations))
	}
	if got := result.FlaggedEvaluations[0].Reasons; len(got) != 1 || got[0] != "compliant enough" {
		t.Fatalf("expected bare-string reasons coerced, got %v", got)
	}
	if got := result.FlaggedEvaluations[1].Reasons; len(got) != 1 || got[0] != "legacy singular reason" {
		t.Fatalf("expected singular reason fallback, got %v", got)
	}
}

func TestNormalizeResponsePartialAcceptance(t *testing.T) {
	raw := `{
		"evaluations": [
			{"policy_id": "fda:F1", "type": "fda", "grade": 95},
			{"policy_id": "fda:F2", "type": "fda"},
			{"policy_id": "ftc:T1", "type": "ftc", "grade": 140}
		],
		"overall_summary": "ok"
	}`
	result, err := NormalizeResponse(raw)
	if err == nil {
		t.Fatal("expected MalformedResponseError for rejected evaluations")
	}
	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected *MalformedResponseError, got %T: %v", err, err)
	}
	if len(malformed.Rejects) != 2 {
		t.Fatalf("expected 2 rejects, got %d", len(malformed.Rejects))
	}
	if malformed.Rejects[0].PolicyID != "fda:F2" || malformed.Rejects[0].Field != "grade" {
		t.Fatalf("expected first reject to name fda:F2 grade, got %+v", malformed.Rejects[0])
	}
	if malformed.Rejects[1].PolicyID != "ftc:T1" {
		t.Fatalf("expected second reject to name ftc:T1, got %+v", malformed.Rejects[1])
	}

	// The well-formed evaluation is still processed.
	if result.Scores.FDA != 95 {
		t.Fatalf("expected partial result fda score 95, got %d", result.Scores.FDA)
	}
}

func TestNormalizeResponseHardFailures(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", "I cannot grade this material."},
		{"no evaluations", `{"evaluations": [], "overall_summary": "hm"}`},
		{"all rejected", `{"evaluations": [{"type": "fda", "grade": 50}], "overall_summary": ""}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := NormalizeResponse(tc.raw)
			var malformed *MalformedResponseError
			if !errors.As(err, &malformed) {
				t.Fatalf("expected *MalformedResponseError, got %T: %v", err, err)
			}
			if result.Graded() {
				t.Fatal("hard failure must not report a graded result")
			}
		})
	}
}

func TestScoreEvaluationsBoundaries(t *testing.T) {
	evals := []Evaluation{
		{PolicyID: "fda:F1", Category: CategoryFDA, Grade: 85},
		{PolicyID: "fda:F2", Category: CategoryFDA, Grade: 84},
		{PolicyID: "approved:A1", Category: CategoryApproved, Grade: 50},
		{PolicyID: "approved:A2", Category: CategoryApproved, Grade: 49},
	}
	result := ScoreEvaluations(evals, "")

	// 85 is compliant enough to omit; 84 is not.
	if len(result.FlaggedEvaluations) != 1 || result.FlaggedEvaluations[0].PolicyID != "fda:F2" {
		t.Fatalf("expected only fda:F2 flagged, got %v", result.FlaggedEvaluations)
	}
	// 50 matches; 49 misses.
	if len(result.ApprovedMatches) != 1 || result.ApprovedMatches[0].PolicyID != "approved:A1" {
		t.Fatalf("expected only approved:A1 matched, got %v", result.ApprovedMatches)
	}
	if len(result.approvedMisses) != 1 || result.approvedMisses[0].PolicyID != "approved:A2" {
		t.Fatalf("expected approved:A2 recorded as miss, got %v", result.approvedMisses)
	}
}

func TestScoreEvaluationsEmptyCategories(t *testing.T) {
	result := ScoreEvaluations([]Evaluation{
		{PolicyID: "ftc:T1", Category: CategoryFTC, Grade: 40},
	}, "")
	if result.Scores.Approved != 0 || result.Scores.FDA != 0 {
		t.Fatalf("expected zero scores for empty categories, got %+v", result.Scores)
	}
	if result.Scores.FTC != 40 {
		t.Fatalf("expected ftc score 40, got %d", result.Scores.FTC)
	}
	if result.ApprovedMatchSummary != "No strong alignment with approved claims." {
		t.Fatalf("unexpected match summary: %q", result.ApprovedMatchSummary)
	}
}
