package services

import (
	"strings"

	"github.com/meetgeetha/cicd-debugger/internal/models"
)

// categoryRule pairs a failure category with the keywords that select it.
// Rules are evaluated top to bottom and the first match wins, so more
// specific build-tool markers come before the generic docker/credential ones.
type categoryRule struct {
	category models.FailureCategory
	keywords []string
}

var categoryRules = []categoryRule{
	{models.CategoryTestFailure, []string{"assertionerror", "assert", "test failed", "tests failed", "surefire", "test failure"}},
	{models.CategoryDependencyIssue, []string{"npm err", "could not resolve dependency", "could not resolve", "unresolved dependency", "requirements.txt", "artifact", "package not found"}},
	{models.CategoryBuildScript, []string{"missing script", "no such file", "command not found"}},
	{models.CategoryDockerFailure, []string{"docker build", "dockerfile", "docker:", "error response from daemon", "image pull", "container"}},
	{models.CategoryCredentials, []string{"permission denied", "permission", "credential", "unauthorized", "access denied", "401", "403"}},
}

var severityByCategory = map[models.FailureCategory]models.Severity{
	models.CategoryCredentials:     models.SeverityHigh,
	models.CategoryBuildScript:     models.SeverityHigh,
	models.CategoryTestFailure:     models.SeverityMedium,
	models.CategoryDependencyIssue: models.SeverityMedium,
	models.CategoryDockerFailure:   models.SeverityMedium,
}

var fallbackFixes = map[models.FailureCategory]string{
	models.CategoryTestFailure:     "Run tests locally: `mvn test` or `npm test` and fix failing assertions.",
	models.CategoryDependencyIssue: "Check version numbers, run `npm install` or `mvn -U clean install`.",
	models.CategoryBuildScript:     "Add or correct the build script in package.json.",
	models.CategoryDockerFailure:   "Fix the Dockerfile or verify packages exist. Test using `docker build .`",
	models.CategoryCredentials:     "Ensure CI secrets / cloud IAM permissions are configured.",
}

// Categorize maps raw log text to a failure category using the ordered rule
// table. Matching is case-insensitive substring search; unmatched or empty
// input falls through to Unknown.
func Categorize(logText string) models.FailureCategory {
	text := strings.ToLower(logText)
	if strings.TrimSpace(text) == "" {
		return models.CategoryUnknown
	}

	for _, rule := range categoryRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(text, keyword) {
				return rule.category
			}
		}
	}
	return models.CategoryUnknown
}

// SeverityFor returns the fixed severity for a category, Medium by default.
func SeverityFor(category models.FailureCategory) models.Severity {
	if severity, ok := severityByCategory[category]; ok {
		return severity
	}
	return models.SeverityMedium
}

// FallbackFix returns the static suggested fix for a category, used when no
// LLM-generated fix is available.
func FallbackFix(category models.FailureCategory) string {
	if fix, ok := fallbackFixes[category]; ok {
		return fix
	}
	return "Investigate further manually."
}
