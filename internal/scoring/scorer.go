package scoring

import (
	"strings"

	"github.com/datapeak/curator/pkg/domain"
)

// Scoring is pure: no I/O, no clock, no randomness. Scoring identical
// metadata with the same reputation always yields an identical assessment,
// which keeps results cacheable and re-scoring safe.

const (
	MinScore = 0
	MaxScore = 100

	// ValidThreshold is the minimum score for a submission to be considered
	// worth reviewing at all.
	ValidThreshold = 50

	reputationBonusFloor = 100
	maxScoredTags        = 10
)

var allowedDataTypes = map[string]bool{
	"text":    true,
	"image":   true,
	"tabular": true,
	"audio":   true,
	"video":   true,
}

var allowedLicenses = map[string]bool{
	"CC0":        true,
	"CC-BY":      true,
	"CC-BY-SA":   true,
	"CC-BY-NC":   true,
	"MIT":        true,
	"Apache-2.0": true,
	"GPL-3.0":    true,
}

var allowedContributionTypes = map[domain.ContributionType]bool{
	domain.ContributionSubmit:   true,
	domain.ContributionLabel:    true,
	domain.ContributionValidate: true,
}

var domainKeywords = []string{
	"dataset", "data", "analysis", "research", "study", "survey", "collection",
}

// Score evaluates submission metadata completeness and description quality.
// Component points are additive and the total is clamped to [0,100].
func Score(md domain.SubmissionMetadata, submitterReputation int64) domain.QualityAssessment {
	var (
		score           int
		issues          []string
		recommendations []string
	)

	title := strings.TrimSpace(md.Title)
	if len(title) >= 5 {
		score += 10
	} else {
		score -= 10
		issues = append(issues, "title is missing or shorter than 5 characters")
	}

	desc := strings.TrimSpace(md.Description)
	if len(desc) >= 20 {
		score += 15
	} else {
		score -= 15
		issues = append(issues, "description is missing or shorter than 20 characters")
	}

	if allowedDataTypes[strings.ToLower(strings.TrimSpace(md.DataType))] {
		score += 10
	} else {
		score -= 10
		issues = append(issues, "data type must be one of text, image, tabular, audio, video")
	}

	switch n := len(md.Tags); {
	case n == 0:
		score -= 5
		issues = append(issues, "no tags provided")
	case n > maxScoredTags:
		score -= 5
		issues = append(issues, "too many tags (maximum 10)")
	default:
		pts := 2 * n
		if pts > 10 {
			pts = 10
		}
		score += pts
	}

	if allowedLicenses[strings.TrimSpace(md.License)] {
		score += 10
	} else {
		score -= 10
		issues = append(issues, "license is missing or not in the accepted list")
	}

	if allowedContributionTypes[md.ContributionType] {
		score += 5
	} else {
		score -= 5
		issues = append(issues, "contribution type must be submit, label, or validate")
	}

	if submitterReputation > reputationBonusFloor {
		score += 5
	}

	descScore, descIssues, descRecs := analyzeDescription(desc)
	score += descScore
	issues = append(issues, descIssues...)
	recommendations = append(recommendations, descRecs...)

	if score < MinScore {
		score = MinScore
	}
	if score > MaxScore {
		score = MaxScore
	}

	if score < 70 {
		recommendations = append(recommendations,
			"add a descriptive title and a detailed description of the data",
			"tag the submission with relevant topics and choose an open license",
		)
	}
	if strings.ToLower(strings.TrimSpace(md.DataType)) == "text" && md.File == nil {
		recommendations = append(recommendations, "attach the text file so reviewers can inspect the content")
	}

	return domain.QualityAssessment{
		Score:           score,
		Valid:           score >= ValidThreshold,
		Issues:          issues,
		Recommendations: recommendations,
	}
}

// analyzeDescription is the content sub-score over the free-text description.
// Its points feed the same additive total as the metadata checks.
func analyzeDescription(desc string) (score int, issues []string, recommendations []string) {
	switch n := len(desc); {
	case n < 50:
		score -= 10
		issues = append(issues, "description is too short to be informative (under 50 characters)")
	case n > 1000:
		score -= 5
		issues = append(issues, "description is excessively long (over 1000 characters)")
	default:
		score += 10
	}

	switch words := len(strings.Fields(desc)); {
	case words < 10:
		score -= 10
		issues = append(issues, "description has fewer than 10 words")
	case words > 200:
		recommendations = append(recommendations, "consider trimming the description to its essential points")
	default:
		score += 5
	}

	if sentenceCount(desc) < 2 {
		score -= 5
		issues = append(issues, "description should contain at least two sentences")
	} else {
		score += 5
	}

	lower := strings.ToLower(desc)
	if strings.Contains(lower, "lorem ipsum") {
		score -= 20
		issues = append(issues, "description contains placeholder text")
	}
	if strings.Contains(desc, "TODO") || strings.Contains(desc, "FIXME") {
		score -= 10
		issues = append(issues, "description contains unfinished markers (TODO/FIXME)")
	}

	hasKeyword := false
	for _, kw := range domainKeywords {
		if strings.Contains(lower, kw) {
			hasKeyword = true
			break
		}
	}
	if hasKeyword {
		score += 10
	} else {
		recommendations = append(recommendations, "use more domain terminology (e.g. dataset, analysis, survey) to describe the contribution")
	}

	return score, issues, recommendations
}

func sentenceCount(s string) int {
	count := 0
	for _, part := range strings.FieldsFunc(s, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	}) {
		if strings.TrimSpace(part) != "" {
			count++
		}
	}
	return count
}
