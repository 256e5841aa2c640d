package domain

// ScoreDistribution buckets scored submissions by quality band.
type ScoreDistribution struct {
	Excellent  int `json:"excellent"`  // score >= 90
	Good       int `json:"good"`       // 70 <= score < 90
	Acceptable int `json:"acceptable"` // 50 <= score < 70
	Poor       int `json:"poor"`       // score < 50
}

type CurationStats struct {
	Count          int               `json:"count"`
	AverageScore   float64           `json:"averageScore"`
	Distribution   ScoreDistribution `json:"distribution"`
	IssueFrequency map[string]int    `json:"issueFrequency,omitempty"`
}

type AutoApproveReport struct {
	ConsideredCount int      `json:"consideredCount"`
	ApprovedCount   int      `json:"approvedCount"`
	FailedCount     int      `json:"failedCount,omitempty"`
	ApprovedIDs     []string `json:"approvedIds,omitempty"`
}
