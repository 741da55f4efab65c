package main

import (
	"bytes"
	"strings"
	"testing"
)

func runCommands(t *testing.T, caller *fakeCaller, commands string) string {
	t.Helper()
	c := newTestController(t, caller)
	var out bytes.Buffer
	runCommandLoop(c, strings.NewReader(commands), &out)
	return out.String()
}

func TestCheckCommandSurfacesHardMalformedResponse(t *testing.T) {
	caller := &fakeCaller{script: []fakeReply{{text: "sorry, I cannot grade this"}}}
	out := runCommands(t, caller, "product TestLens\ncheck some marketing text\nquit\n")

	if !strings.Contains(out, "Error: malformed model response") {
		t.Fatalf("expected hard failure surfaced as Error, got:\n%s", out)
	}
	if strings.Contains(out, "Scores: approved=") {
		t.Fatalf("zero-value result must not be rendered, got:\n%s", out)
	}
}

func TestCheckCommandRendersPartialResultWithWarning(t *testing.T) {
	partial := `{
		"evaluations": [
			{"policy_id": "fda:1", "type": "fda", "grade": 40, "reasons": ["cure claim"]},
			{"policy_id": "ftc:1", "type": "ftc"}
		],
		"overall_summary": "partial"
	}`
	caller := &fakeCaller{script: []fakeReply{{text: partial}}}
	out := runCommands(t, caller, "product TestLens\ncheck some marketing text\nquit\n")

	if !strings.Contains(out, "Warning:") || !strings.Contains(out, "ftc:1") {
		t.Fatalf("expected warning naming the rejected evaluation, got:\n%s", out)
	}
	if !strings.Contains(out, "Scores: approved=0 fda=40 ftc=0") {
		t.Fatalf("expected partial result rendered, got:\n%s", out)
	}
}

func TestCheckCommandRendersCleanResult(t *testing.T) {
	caller := &fakeCaller{script: []fakeReply{{text: wellFormedResponse}}}
	out := runCommands(t, caller, "product TestLens\ncheck some marketing text\nquit\n")

	if strings.Contains(out, "Error:") || strings.Contains(out, "Warning:") {
		t.Fatalf("clean run must not warn, got:\n%s", out)
	}
	if !strings.Contains(out, "Scores: approved=90 fda=83 ftc=60") {
		t.Fatalf("expected scores rendered, got:\n%s", out)
	}
}
