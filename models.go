package main

// Category identifies which policy table an item or evaluation
// belongs to.
type Category string

const (
	CategoryApproved Category = "approved"
	CategoryFDA      Category = "fda"
	CategoryFTC      Category = "ftc"
)

// PolicyItem is one approved claim or one FDA/FTC regulatory rule.
// Immutable once loaded.
type PolicyItem struct {
	ID   string // category-prefixed, e.g. "fda:7"
	Text string
}

// PolicySet holds the three policy tables for one product.
type PolicySet struct {
	Product  string
	Approved []PolicyItem
	FDA      []PolicyItem
	FTC      []PolicyItem
}

func (s *PolicySet) Len() int {
	return len(s.Approved) + len(s.FDA) + len(s.FTC)
}

// Evaluation is one graded judgment of the marketing text against a
// single policy item. Produced fresh per grading call, never mutated.
type Evaluation struct {
	PolicyID string   `json:"policy_id"`
	Category Category `json:"category"`
	Grade    int      `json:"grade"`
	Reasons  []string `json:"reasons"`
}

type CategoryScores struct {
	Approved int `json:"approved"`
	FDA      int `json:"fda"`
	FTC      int `json:"ftc"`
}

// GradingResult is the normalized outcome of one compliance check.
// FlaggedEvaluations holds FDA/FTC items graded below the compliant
// cutoff; ApprovedMatches holds approved claims at or above the match
// threshold. All grades are plain ints, all text plain strings.
type GradingResult struct {
	Scores               CategoryScores `json:"scores"`
	FlaggedEvaluations   []Evaluation   `json:"filtered_evaluations"`
	ApprovedMatches      []Evaluation   `json:"approved_matches"`
	ApprovedMatchSummary string         `json:"approved_match_summary"`
	OverallSummary       string         `json:"overall_summary"`

	// approvedMisses keeps the approved evaluations that fell below
	// the match threshold so fix suggestions can cite them. Not part
	// of the serialized result.
	approvedMisses []Evaluation

	// evaluated counts the usable evaluations behind this result.
	evaluated int
}

// Graded reports whether the result was produced from at least one
// usable evaluation, distinguishing a scored result from the zero
// value that accompanies a hard failure.
func (r GradingResult) Graded() bool {
	return r.evaluated > 0
}
