package services

import (
	"testing"

	"github.com/meetgeetha/cicd-debugger/internal/models"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		logText  string
		category models.FailureCategory
	}{
		{
			logText:  "java.lang.AssertionError: expected 200 but was 500",
			category: models.CategoryTestFailure,
		},
		{
			logText:  "Tests failed: 3 of 120 in module core",
			category: models.CategoryTestFailure,
		},
		{
			logText:  "npm ERR! could not resolve dependency tree",
			category: models.CategoryDependencyIssue,
		},
		{
			logText:  "ERROR: Could not find artifact com.example:lib:1.2.3",
			category: models.CategoryDependencyIssue,
		},
		{
			logText:  "sh: 1: webpack: command not found",
			category: models.CategoryBuildScript,
		},
		{
			logText:  "npm run build exited: missing script: build",
			category: models.CategoryBuildScript,
		},
		{
			logText:  "docker: Error response from daemon: manifest unknown",
			category: models.CategoryDockerFailure,
		},
		{
			logText:  "Step 4/9 : COPY app /srv -- Dockerfile parse error",
			category: models.CategoryDockerFailure,
		},
		{
			logText:  "git push failed: Permission denied (publickey)",
			category: models.CategoryCredentials,
		},
		{
			logText:  "HTTP 403 Forbidden while fetching registry token",
			category: models.CategoryCredentials,
		},
		{
			logText:  "something completely unrecognizable happened",
			category: models.CategoryUnknown,
		},
		{
			logText:  "",
			category: models.CategoryUnknown,
		},
		{
			logText:  "   \n\t  ",
			category: models.CategoryUnknown,
		},
	}

	for _, test := range tests {
		category := Categorize(test.logText)
		if category != test.category {
			t.Errorf("For log %q, expected category %q, got %q", test.logText, test.category, category)
		}
	}
}

func TestCategorizeFirstRuleWins(t *testing.T) {
	// Contains both test and docker markers; the test rule is first in the
	// ordered table so it must win.
	logText := "AssertionError in integration test, docker build aborted"
	if category := Categorize(logText); category != models.CategoryTestFailure {
		t.Errorf("Expected %q, got %q", models.CategoryTestFailure, category)
	}
}

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		category models.FailureCategory
		severity models.Severity
	}{
		{models.CategoryCredentials, models.SeverityHigh},
		{models.CategoryBuildScript, models.SeverityHigh},
		{models.CategoryTestFailure, models.SeverityMedium},
		{models.CategoryDependencyIssue, models.SeverityMedium},
		{models.CategoryDockerFailure, models.SeverityMedium},
		{models.CategoryUnknown, models.SeverityMedium},
	}

	for _, test := range tests {
		severity := SeverityFor(test.category)
		if severity != test.severity {
			t.Errorf("For category %q, expected severity %q, got %q", test.category, test.severity, severity)
		}
	}
}

func TestFallbackFix(t *testing.T) {
	if fix := FallbackFix(models.CategoryDependencyIssue); fix == "" {
		t.Error("Expected a fallback fix for dependency issues")
	}
	if fix := FallbackFix(models.CategoryUnknown); fix != "Investigate further manually." {
		t.Errorf("Unexpected fallback fix for unknown category: %q", fix)
	}
}
