package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/meetgeetha/cicd-debugger/internal/models"
)

func TestParseAnalysisResponse(t *testing.T) {
	tests := []struct {
		name     string
		response string
		analysis string
		fix      string
		wantErr  bool
	}{
		{
			name:     "plain JSON",
			response: `{"analysis": "the build cache is stale", "suggested_fix": "clear the cache"}`,
			analysis: "the build cache is stale",
			fix:      "clear the cache",
		},
		{
			name:     "json code fence",
			response: "```json\n{\"analysis\": \"a\", \"suggested_fix\": \"f\"}\n```",
			analysis: "a",
			fix:      "f",
		},
		{
			name:     "bare code fence",
			response: "```\n{\"analysis\": \"a\", \"suggested_fix\": \"f\"}\n```",
			analysis: "a",
			fix:      "f",
		},
		{
			name:     "not JSON",
			response: "The build failed because of a missing dependency.",
			wantErr:  true,
		},
		{
			name:     "malformed JSON",
			response: `{"analysis": "a", "suggested_fix":`,
			wantErr:  true,
		},
		{
			name:     "missing analysis",
			response: `{"analysis": "", "suggested_fix": "f"}`,
			wantErr:  true,
		},
		{
			name:     "missing fix",
			response: `{"analysis": "a", "suggested_fix": "  "}`,
			wantErr:  true,
		},
	}

	for _, test := range tests {
		analysis, err := parseAnalysisResponse(test.response)
		if test.wantErr {
			if err == nil {
				t.Errorf("%s: expected an error, got %+v", test.name, analysis)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error: %v", test.name, err)
			continue
		}
		if analysis.Analysis != test.analysis || analysis.SuggestedFix != test.fix {
			t.Errorf("%s: got analysis %q / fix %q", test.name, analysis.Analysis, analysis.SuggestedFix)
		}
	}
}

func TestGenerateAnalysis(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}

		var req OllamaGenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req.Stream {
			t.Error("Expected a non-streaming request")
		}
		if !strings.Contains(req.Prompt, "Dependency Issue") {
			t.Error("Prompt must include the rule-based category hint")
		}
		if !strings.Contains(req.Prompt, "npm ERR!") {
			t.Error("Prompt must include the log text")
		}

		json.NewEncoder(w).Encode(OllamaGenerateResponse{
			Response: "```json\n{\"analysis\": \"peer dependency conflict\", \"suggested_fix\": \"run npm install --legacy-peer-deps\"}\n```",
			Done:     true,
		})
	}))
	defer server.Close()

	ls := NewLLMService(server.URL, "test-model")
	analysis, fix, err := ls.GenerateAnalysis(context.Background(), "npm ERR! could not resolve dependency", models.CategoryDependencyIssue)
	if err != nil {
		t.Fatalf("GenerateAnalysis failed: %v", err)
	}
	if analysis != "peer dependency conflict" {
		t.Errorf("Unexpected analysis: %q", analysis)
	}
	if fix != "run npm install --legacy-peer-deps" {
		t.Errorf("Unexpected fix: %q", fix)
	}
}

func TestGenerateAnalysisServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	ls := NewLLMService(server.URL, "test-model")
	if _, _, err := ls.GenerateAnalysis(context.Background(), "some log", models.CategoryUnknown); err == nil {
		t.Error("Expected an error on HTTP 500")
	}
}

func TestGenerateEmbedding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(OllamaEmbeddingResponse{Embedding: []float64{0.1, 0.2, 0.3}})
	}))
	defer server.Close()

	ls := NewLLMService(server.URL, "test-model")
	embedding, err := ls.GenerateEmbedding(context.Background(), "docker build failed")
	if err != nil {
		t.Fatalf("GenerateEmbedding failed: %v", err)
	}
	if len(embedding) != 3 {
		t.Errorf("Expected 3 dimensions, got %d", len(embedding))
	}
}

func TestGenerateEmbeddingEmptyVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(OllamaEmbeddingResponse{Embedding: []float64{}})
	}))
	defer server.Close()

	ls := NewLLMService(server.URL, "test-model")
	if _, err := ls.GenerateEmbedding(context.Background(), "docker build failed"); err == nil {
		t.Error("Expected an error for an empty embedding")
	}
}

func TestGetAvailableModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"models": [{"name": "llama3.1:8b"}, {"name": "nomic-embed-text"}]}`))
	}))
	defer server.Close()

	ls := NewLLMService(server.URL, "test-model")
	if err := ls.CheckLLMHealth(context.Background()); err != nil {
		t.Errorf("CheckLLMHealth failed: %v", err)
	}

	names, err := ls.GetAvailableModels(context.Background())
	if err != nil {
		t.Fatalf("GetAvailableModels failed: %v", err)
	}
	if len(names) != 2 || names[0] != "llama3.1:8b" {
		t.Errorf("Unexpected models: %v", names)
	}
}

func TestBuildAnalysisPromptTruncatesLongLogs(t *testing.T) {
	longLog := strings.Repeat("x", maxPromptLogChars+5000)
	prompt := buildAnalysisPrompt(longLog, models.CategoryUnknown)
	if !strings.Contains(prompt, "(log truncated)") {
		t.Error("Expected oversized logs to be truncated in the prompt")
	}
	if len(prompt) > maxPromptLogChars+2000 {
		t.Errorf("Prompt still too large: %d chars", len(prompt))
	}
}
