package services

import (
	"fmt"

	"github.com/meetgeetha/cicd-debugger/internal/models"
)

// LLM prompt constants for consistent and optimized AI interactions

const (
	// FAILURE_ANALYSIS_PROMPT is used for diagnosing a single CI/CD build
	// failure log. The rule-based category is passed in as a hint; the model
	// explains the failure and proposes a fix.
	FAILURE_ANALYSIS_PROMPT = `You are a CI/CD failure expert helping engineers debug broken builds.

CRITICAL INSTRUCTIONS:
- Return ONLY valid JSON in the exact format specified below
- Do not include any explanatory text, introductions, or markdown formatting
- Be specific and actionable; reference the actual lines from the log

DETECTED FAILURE CATEGORY (rule-based hint): %s

BUILD LOG TO ANALYZE:
%s

REQUIRED JSON FORMAT:
{
  "analysis": "Technical explanation of what failed and why (2-4 sentences, referencing log evidence)",
  "suggested_fix": "Concrete steps to fix the failure, including exact commands where applicable"
}

Return ONLY the JSON object, nothing else.`

	// maxPromptLogChars bounds how much raw log goes into the prompt so a
	// huge build log cannot blow the model's context window.
	maxPromptLogChars = 12000
)

func buildAnalysisPrompt(logText string, category models.FailureCategory) string {
	if len(logText) > maxPromptLogChars {
		logText = logText[:maxPromptLogChars] + "\n... (log truncated)"
	}
	return fmt.Sprintf(FAILURE_ANALYSIS_PROMPT, category, logText)
}
