package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

const assistantSystemPrompt = `You are a friendly assistant helping marketing employees understand and
improve their marketing material through compliance insights.
Keep responses brief, constructive, and actionable.`

const noContextReply = "I don't have any grading context yet. Run a compliance check first and I can walk you through the results."

// Assistant drives the follow-up conversation over the latest grading
// result. It reads session state, never mutates it.
type Assistant struct {
	caller ModelCaller
	cfg    Config
}

func NewAssistant(caller ModelCaller, cfg Config) *Assistant {
	return &Assistant{caller: caller, cfg: cfg}
}

// Reply composes a follow-up prompt from the bounded transcript, a
// compact rendering of the latest result, and the user's message,
// then records both turns in the transcript. With no grading result
// it answers with a fixed no-context reply instead of calling the
// model, so nothing gets fabricated.
func (a *Assistant) Reply(ctx context.Context, userText string, state *SessionState, transcript *Transcript) (string, LLMUsage, error) {
	userText = strings.TrimSpace(userText)
	if userText == "" {
		return "", LLMUsage{}, &ValidationError{Field: "message", Detail: "must not be empty"}
	}

	if state.Latest == nil {
		transcript.Append("user", userText)
		transcript.Append("assistant", noContextReply)
		return noContextReply, LLMUsage{}, nil
	}

	prompt := buildAssistantPrompt(userText, state, transcript)
	reply, usage, err := callModel(ctx, a.caller, a.cfg, assistantSystemPrompt, prompt)
	if err != nil {
		return "", usage, err
	}
	reply = strings.TrimSpace(reply)

	transcript.Append("user", userText)
	transcript.Append("assistant", reply)
	return reply, usage, nil
}

func buildAssistantPrompt(userText string, state *SessionState, transcript *Transcript) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Product: %s\nStrictness: %d\n\n", state.Product, state.Strictness)

	b.WriteString("Latest compliance result:\n")
	b.WriteString(renderResultContext(*state.Latest))

	b.WriteString("\nFix suggestions:\n")
	fixes := SuggestFixes(*state.Latest)
	if len(fixes) == 0 {
		b.WriteString("No compliance issues found.\n")
	}
	for _, fix := range fixes {
		b.WriteString("- " + fix + "\n")
	}

	b.WriteString("\nComparison to previous version:\n")
	b.WriteString(CompareResults(state.Previous(), *state.Latest))
	b.WriteString("\n")

	if transcript.Len() > 0 {
		b.WriteString("\nConversation so far:\n")
		for _, turn := range transcript.Turns() {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Text)
		}
	}

	b.WriteString("\nuser: " + userText + "\nassistant:")
	return b.String()
}

// renderResultContext renders flagged items and scores only, not the
// full history.
func renderResultContext(r GradingResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scores: approved=%d fda=%d ftc=%d\n", r.Scores.Approved, r.Scores.FDA, r.Scores.FTC)
	if len(r.FlaggedEvaluations) == 0 {
		b.WriteString("No flagged policies.\n")
	}
	for _, e := range r.FlaggedEvaluations {
		fmt.Fprintf(&b, "- %s (grade %d): %s\n", e.PolicyID, e.Grade, firstReason(e))
	}
	if r.ApprovedMatchSummary != "" {
		fmt.Fprintf(&b, "%s\n", r.ApprovedMatchSummary)
	}
	if r.OverallSummary != "" {
		fmt.Fprintf(&b, "Summary: %s\n", r.OverallSummary)
	}
	return b.String()
}

// SuggestFixes derives one suggestion per problem in a result: each
// flagged FDA/FTC evaluation below the violation threshold and each
// approved claim that missed the match threshold. Worst grade first.
func SuggestFixes(result GradingResult) []string {
	type fix struct {
		grade int
		text  string
	}
	var fixes []fix

	for _, e := range result.FlaggedEvaluations {
		if e.Grade >= violationThreshold {
			continue
		}
		fixes = append(fixes, fix{
			grade: e.Grade,
			text:  fmt.Sprintf("%s (grade %d): %s", e.PolicyID, e.Grade, firstReason(e)),
		})
	}
	for _, e := range result.approvedMisses {
		fixes = append(fixes, fix{
			grade: e.Grade,
			text:  fmt.Sprintf("%s (grade %d): strengthen similarity to this approved claim; %s", e.PolicyID, e.Grade, firstReason(e)),
		})
	}

	sort.SliceStable(fixes, func(i, j int) bool { return fixes[i].grade < fixes[j].grade })

	out := make([]string, len(fixes))
	for i, f := range fixes {
		out[i] = f.text
	}
	return out
}

// CompareResults summarizes how compliance changed between the last
// two grading runs: category score moves beyond 5 points, newly
// flagged policies, and resolved ones.
func CompareResults(previous *GradingResult, current GradingResult) string {
	if previous == nil {
		return "This is the first compliance check of the session."
	}

	var changes []string

	deltas := []struct {
		label string
		diff  int
	}{
		{"APPROVED", current.Scores.Approved - previous.Scores.Approved},
		{"FDA", current.Scores.FDA - previous.Scores.FDA},
		{"FTC", current.Scores.FTC - previous.Scores.FTC},
	}
	for _, d := range deltas {
		if d.diff > 5 {
			changes = append(changes, fmt.Sprintf("%s score improved by +%d.", d.label, d.diff))
		} else if d.diff < -5 {
			changes = append(changes, fmt.Sprintf("%s score decreased by %d.", d.label, -d.diff))
		}
	}

	prevFlagged := flaggedIDSet(previous.FlaggedEvaluations)
	currFlagged := flaggedIDSet(current.FlaggedEvaluations)

	var added, removed []string
	for id := range currFlagged {
		if !prevFlagged[id] {
			added = append(added, id)
		}
	}
	for id := range prevFlagged {
		if !currFlagged[id] {
			removed = append(removed, id)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)

	if len(added) > 0 {
		changes = append(changes, "New compliance issues detected: "+strings.Join(added, ", "))
	}
	if len(removed) > 0 {
		changes = append(changes, "Issues resolved: "+strings.Join(removed, ", "))
	}

	if len(changes) == 0 {
		return "Compliance is unchanged."
	}
	return strings.Join(changes, "\n")
}

func flaggedIDSet(evals []Evaluation) map[string]bool {
	set := make(map[string]bool, len(evals))
	for _, e := range evals {
		set[e.PolicyID] = true
	}
	return set
}

func firstReason(e Evaluation) string {
	if len(e.Reasons) == 0 {
		return "no reason given"
	}
	return e.Reasons[0]
}
