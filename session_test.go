package main

import (
	"errors"
	"testing"
)

func resultWithApprovedScore(n int) GradingResult {
	return GradingResult{Scores: CategoryScores{Approved: n}}
}

func TestSessionUpdateBoundsHistory(t *testing.T) {
	s := NewSessionState(5, 3)

	for i := 1; i <= 6; i++ {
		s.Update(resultWithApprovedScore(i * 10))
		if len(s.History) > 3 {
			t.Fatalf("history exceeded bound after update %d: len=%d", i, len(s.History))
		}
	}

	if s.Latest == nil || s.Latest.Scores.Approved != 60 {
		t.Fatalf("expected latest approved score 60, got %+v", s.Latest)
	}
	if len(s.History) != 3 {
		t.Fatalf("expected history length 3, got %d", len(s.History))
	}
	// Oldest dropped first: 10 and 20 evicted.
	if s.History[0].Scores.Approved != 30 || s.History[2].Scores.Approved != 50 {
		t.Fatalf("unexpected history order: %v", s.History)
	}
	if s.Previous() == nil || s.Previous().Scores.Approved != 50 {
		t.Fatalf("expected previous approved score 50, got %+v", s.Previous())
	}
}

func TestSessionPreviousNilOnFirstCheck(t *testing.T) {
	s := NewSessionState(5, 3)
	if s.Previous() != nil {
		t.Fatal("expected nil previous before any update")
	}
	s.Update(resultWithApprovedScore(80))
	if s.Previous() != nil {
		t.Fatal("expected nil previous after a single update")
	}
}

func TestSetProductClearsContext(t *testing.T) {
	s := NewSessionState(5, 3)
	s.Product = "Clareon Toric IOL"
	s.Update(resultWithApprovedScore(70))
	s.Update(resultWithApprovedScore(80))

	if err := s.SetProduct("PRECISION7 Contact Lenses"); err != nil {
		t.Fatalf("SetProduct returned error: %v", err)
	}
	if s.Latest != nil || len(s.History) != 0 {
		t.Fatalf("expected cleared context after product switch, latest=%v history=%v", s.Latest, s.History)
	}
	if s.Product != "PRECISION7 Contact Lenses" {
		t.Fatalf("unexpected product: %q", s.Product)
	}

	var verr *ValidationError
	if err := s.SetProduct("   "); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for blank product, got %v", err)
	}
}

func TestSetStrictnessClearsContextAndValidates(t *testing.T) {
	s := NewSessionState(5, 3)
	s.Update(resultWithApprovedScore(70))

	if err := s.SetStrictness(8); err != nil {
		t.Fatalf("SetStrictness returned error: %v", err)
	}
	if s.Strictness != 8 {
		t.Fatalf("expected strictness 8, got %d", s.Strictness)
	}
	if s.Latest != nil || len(s.History) != 0 {
		t.Fatal("expected cleared context after strictness change")
	}

	for _, n := range []int{0, 11, -1} {
		var verr *ValidationError
		if err := s.SetStrictness(n); !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError for strictness %d, got %v", n, err)
		}
	}
	if s.Strictness != 8 {
		t.Fatalf("rejected strictness should not be applied, got %d", s.Strictness)
	}
}

func TestTranscriptFIFOBound(t *testing.T) {
	tr := NewTranscript(4)
	tr.Append("user", "one")
	tr.Append("assistant", "two")
	tr.Append("user", "three")
	tr.Append("assistant", "four")
	tr.Append("user", "five")
	tr.Append("assistant", "six")

	if tr.Len() != 4 {
		t.Fatalf("expected transcript bounded to 4 turns, got %d", tr.Len())
	}
	turns := tr.Turns()
	if turns[0].Text != "three" || turns[3].Text != "six" {
		t.Fatalf("expected oldest turns evicted first, got %v", turns)
	}
}
