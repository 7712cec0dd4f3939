package models

import "time"

type FailureCategory string

const (
	CategoryTestFailure     FailureCategory = "Test Failure"
	CategoryDependencyIssue FailureCategory = "Dependency Issue"
	CategoryBuildScript     FailureCategory = "Build Script Error"
	CategoryDockerFailure   FailureCategory = "Docker Failure"
	CategoryCredentials     FailureCategory = "Credential/Permissions"
	CategoryUnknown         FailureCategory = "Unknown"
)

type Severity string

const (
	SeverityHigh   Severity = "High"
	SeverityMedium Severity = "Medium"
	SeverityLow    Severity = "Low"
)

// MatchType records where a diagnosis came from: an exact fingerprint hit,
// a nearest-neighbor reuse, a fresh LLM analysis, or the rule-based fallback
// used when the embedding or LLM service was unavailable.
type MatchType string

const (
	MatchExact    MatchType = "Exact"
	MatchVector   MatchType = "Vector"
	MatchLLM      MatchType = "LLM"
	MatchDegraded MatchType = "Degraded"
)

// Diagnosis is the result returned for a single analyzed log. Similarity is
// only set for Exact (0) and Vector (the neighbor's cosine distance) matches.
type Diagnosis struct {
	Category     FailureCategory `json:"category"`
	Severity     Severity        `json:"severity"`
	Analysis     string          `json:"analysis"`
	SuggestedFix string          `json:"suggested_fix"`
	MatchType    MatchType       `json:"match_type"`
	Similarity   *float64        `json:"similarity"`
	Timestamp    time.Time       `json:"timestamp"`
}
