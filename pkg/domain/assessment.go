package domain

// QualityAssessment is the output of the deterministic quality scorer.
// Score is clamped to [0,100]; Valid is always Score >= 50.
type QualityAssessment struct {
	Score           int      `json:"score"`
	Valid           bool     `json:"valid"`
	Issues          []string `json:"issues,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}
