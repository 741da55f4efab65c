package main

import (
	"fmt"
	"strings"
)

// SessionState holds per-session grading context. Mutated only by the
// Controller; the assistant reads it. Each logical session owns its
// own instance, nothing here is shared.
type SessionState struct {
	Product    string
	Strictness int
	Latest     *GradingResult
	History    []GradingResult

	historyBound int
}

func NewSessionState(defaultStrictness, historyBound int) *SessionState {
	return &SessionState{
		Strictness:   defaultStrictness,
		historyBound: historyBound,
	}
}

// Update replaces the latest result, pushing the previous one into
// bounded history. Oldest entries are dropped first.
func (s *SessionState) Update(result GradingResult) {
	if s.Latest != nil {
		s.History = append(s.History, *s.Latest)
		if len(s.History) > s.historyBound {
			s.History = s.History[len(s.History)-s.historyBound:]
		}
	}
	r := result
	s.Latest = &r
}

// Previous returns the result graded immediately before the latest,
// or nil on the first check.
func (s *SessionState) Previous() *GradingResult {
	if len(s.History) == 0 {
		return nil
	}
	prev := s.History[len(s.History)-1]
	return &prev
}

// SetProduct switches products and clears prior grading context:
// results from one product are not comparable state for another.
func (s *SessionState) SetProduct(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &ValidationError{Field: "product", Detail: "must not be empty"}
	}
	s.Product = name
	s.reset()
	return nil
}

// SetStrictness validates the range and clears prior grading context,
// same as a product switch.
func (s *SessionState) SetStrictness(n int) error {
	if n < minStrictness || n > maxStrictness {
		return &ValidationError{Field: "strictness", Detail: fmt.Sprintf("must be between %d and %d, got %d", minStrictness, maxStrictness, n)}
	}
	s.Strictness = n
	s.reset()
	return nil
}

func (s *SessionState) reset() {
	s.Latest = nil
	s.History = nil
}

// ChatTurn is one transcript entry.
type ChatTurn struct {
	Role string // "user" or "assistant"
	Text string
}

// Transcript is a FIFO-bounded window of chat turns. Recency is the
// only signal used, so eviction is plain oldest-first.
type Transcript struct {
	turns []ChatTurn
	bound int
}

func NewTranscript(bound int) *Transcript {
	return &Transcript{bound: bound}
}

func (t *Transcript) Append(role, text string) {
	t.turns = append(t.turns, ChatTurn{Role: role, Text: text})
	if len(t.turns) > t.bound {
		t.turns = t.turns[len(t.turns)-t.bound:]
	}
}

func (t *Transcript) Turns() []ChatTurn {
	return t.turns
}

func (t *Transcript) Len() int {
	return len(t.turns)
}
