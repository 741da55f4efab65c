package main

import (
	"fmt"
	"strings"
)

const (
	minStrictness = 1
	maxStrictness = 10
)

const graderSystemPrompt = `You are a compliance grader evaluating medical marketing content in the U.S.
Reward similarity with approved claims, penalize conflicts with FDA and FTC requirements,
and respond with JSON only (no markdown, no commentary).`

// BuildCompliancePrompt renders the grading instruction for one
// compliance check. Deterministic: same inputs, same prompt. Rejects
// blank text and out-of-range strictness instead of clamping.
func BuildCompliancePrompt(text string, set *PolicySet, strictness int) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", &ValidationError{Field: "marketing_text", Detail: "must not be empty"}
	}
	if strictness < minStrictness || strictness > maxStrictness {
		return "", &ValidationError{Field: "strictness", Detail: fmt.Sprintf("must be between %d and %d, got %d", minStrictness, maxStrictness, strictness)}
	}

	var b strings.Builder

	b.WriteString("## Marketing Text\n")
	b.WriteString(strings.TrimSpace(text))
	b.WriteString("\n\n## Policy Groups\n\n")
	writePolicySection(&b, "Approved Claims (positive alignment)", set.Approved)
	writePolicySection(&b, "FDA Policies", set.FDA)
	writePolicySection(&b, "FTC Policies", set.FTC)

	fmt.Fprintf(&b, "## Strictness Level\nStrictness = %d (scale %d-%d)\n\n", strictness, minStrictness, maxStrictness)
	b.WriteString(`Interpretation:
- Strictness 1-3 (lenient): only clear conflicts should significantly reduce grades; unsubstantiated or vague claims get moderate-to-high grades.
- Strictness 4-7 (standard): apply the scoring rules as written.
- Strictness 8-10 (strict): be conservative; require strong evidence for high grades and penalize weak similarity or even minor risks more heavily.

Higher strictness means lower grades for borderline similarity or mild compliance concerns.
Lower strictness means higher grades unless a clear conflict exists.

## Scoring Rules

### Approved Claims
Grade how similar the marketing text is to each approved claim.
- Very similar wording: 85-100
- Same meaning, rephrased: 70-85
- Partial alignment: 50-70
- Unrelated or no alignment: 0-50

### FDA / FTC Policies
Grade compliance with each regulatory requirement.
- Fully compliant or unrelated: 80-100
- Minor risk or unclear compliance: 60-80
- Clear conflict, violation, or misleading claim: 0-60

## Output Rules
- Evaluate EVERY policy in ALL policy groups. Produce exactly one evaluation object per policy.
- For FDA and FTC policies: if unrelated, grade high (80-100) with the reason "Unrelated; no conflict."
- For approved claims: if unrelated, grade low (0-50) with the reason "Unrelated; no similarity."
- Higher grades mean stronger compliance or stronger similarity.
- Return ONLY JSON in the format below, no text outside the JSON structure.

### Output JSON format
{
  "evaluations": [
    {
      "policy_id": "<approved:3 | fda:7 | ftc:5>",
      "type": "<approved | fda | ftc>",
      "grade": <0-100>,
      "reasons": ["<brief justification>"]
    }
  ],
  "overall_summary": "<short summary>"
}`)

	return b.String(), nil
}

func writePolicySection(b *strings.Builder, title string, items []PolicyItem) {
	b.WriteString(title + "\n")
	if len(items) == 0 {
		b.WriteString("  (none listed)\n\n")
		return
	}
	for _, item := range items {
		fmt.Fprintf(b, "- (%s) %s\n", item.ID, item.Text)
	}
	b.WriteString("\n")
}
