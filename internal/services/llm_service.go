package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/meetgeetha/cicd-debugger/internal/logger"
	"github.com/meetgeetha/cicd-debugger/internal/models"
)

type LLMService struct {
	baseURL    string
	llmModel   string
	embedModel string
	client     *http.Client
	timeout    time.Duration
}

type OllamaGenerateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type OllamaGenerateResponse struct {
	Model     string `json:"model"`
	Response  string `json:"response"`
	Done      bool   `json:"done"`
	CreatedAt string `json:"created_at"`
}

type OllamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type OllamaEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

type OllamaModelsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// failureAnalysis is the JSON shape the LLM is instructed to return.
type failureAnalysis struct {
	Analysis     string `json:"analysis"`
	SuggestedFix string `json:"suggested_fix"`
}

func NewLLMService(ollamaURL, llmModel string) *LLMService {
	if ollamaURL == "" {
		ollamaURL = "http://localhost:11434"
	}
	if llmModel == "" {
		llmModel = "llama3.1:8b"
	}
	embedModel := os.Getenv("OLLAMA_EMBED_MODEL")
	if embedModel == "" {
		embedModel = "nomic-embed-text"
	}

	timeout := 90 * time.Second
	if timeoutStr := os.Getenv("OLLAMA_TIMEOUT_SECONDS"); timeoutStr != "" {
		if t, err := time.ParseDuration(timeoutStr + "s"); err == nil {
			timeout = t
		}
	}

	return &LLMService{
		baseURL:    ollamaURL,
		llmModel:   llmModel,
		embedModel: embedModel,
		client:     &http.Client{},
		timeout:    timeout,
	}
}

// GenerateAnalysis asks the LLM for an explanation and suggested fix for the
// given log, guided by the rule-based category. A single attempt is made; any
// transport error, timeout, non-200 status or malformed response is returned
// to the caller, which is expected to fall back to a degraded diagnosis.
func (ls *LLMService) GenerateAnalysis(ctx context.Context, logText string, category models.FailureCategory) (string, string, error) {
	request := OllamaGenerateRequest{
		Model:  ls.llmModel,
		Prompt: buildAnalysisPrompt(logText, category),
		Stream: false,
		Options: map[string]interface{}{
			"temperature": 0.2,
			"top_p":       0.8,
		},
	}

	response, err := ls.generate(ctx, request)
	if err != nil {
		return "", "", err
	}

	analysis, err := parseAnalysisResponse(response)
	if err != nil {
		return "", "", err
	}
	return analysis.Analysis, analysis.SuggestedFix, nil
}

func (ls *LLMService) generate(ctx context.Context, request OllamaGenerateRequest) (string, error) {
	startTime := time.Now()

	jsonData, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, ls.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/api/generate", ls.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ls.client.Do(req)
	elapsed := time.Since(startTime)

	if err != nil {
		logger.Warn("LLM request failed", map[string]interface{}{
			"elapsed": elapsed.String(),
			"error":   err.Error(),
		})
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	logger.Debug("LLM request completed", map[string]interface{}{
		"elapsed": elapsed.String(),
		"status":  resp.StatusCode,
	})

	if resp.StatusCode != http.StatusOK {
		respBodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Ollama API returned status %d, body: %s", resp.StatusCode, string(respBodyBytes))
	}

	var ollamaResp OllamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return "", fmt.Errorf("failed to decode Ollama response: %w", err)
	}

	return ollamaResp.Response, nil
}

// parseAnalysisResponse extracts the analysis JSON from an LLM response,
// stripping any markdown code fences the model wrapped it in.
func parseAnalysisResponse(response string) (*failureAnalysis, error) {
	cleanResponse := strings.TrimSpace(response)

	if strings.HasPrefix(cleanResponse, "```json") {
		cleanResponse = strings.TrimPrefix(cleanResponse, "```json")
	}
	if strings.HasPrefix(cleanResponse, "```") {
		cleanResponse = strings.TrimPrefix(cleanResponse, "```")
	}
	if strings.HasSuffix(cleanResponse, "```") {
		cleanResponse = strings.TrimSuffix(cleanResponse, "```")
	}
	cleanResponse = strings.TrimSpace(cleanResponse)

	if !strings.HasPrefix(cleanResponse, "{") {
		return nil, fmt.Errorf("LLM did not return valid JSON. Raw response: %q", cleanResponse)
	}

	var analysis failureAnalysis
	if err := json.Unmarshal([]byte(cleanResponse), &analysis); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w. Raw response: %q", err, cleanResponse)
	}

	if strings.TrimSpace(analysis.Analysis) == "" {
		return nil, fmt.Errorf("LLM returned incomplete analysis (missing analysis text)")
	}
	if strings.TrimSpace(analysis.SuggestedFix) == "" {
		return nil, fmt.Errorf("LLM returned incomplete analysis (missing suggested fix)")
	}
	return &analysis, nil
}

// GenerateEmbedding generates an embedding for the given text using Ollama.
func (ls *LLMService) GenerateEmbedding(ctx context.Context, text string) ([]float64, error) {
	request := OllamaEmbeddingRequest{
		Model:  ls.embedModel,
		Prompt: text,
	}
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, ls.timeout)
	defer cancel()

	url := ls.baseURL + "/api/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ls.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding API returned status %d", resp.StatusCode)
	}

	var embeddingResp OllamaEmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embeddingResp); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}
	if len(embeddingResp.Embedding) == 0 {
		return nil, fmt.Errorf("embedding API returned an empty vector")
	}
	return embeddingResp.Embedding, nil
}

// CheckLLMHealth verifies that the Ollama endpoint is reachable.
func (ls *LLMService) CheckLLMHealth(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s/api/tags", ls.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := ls.client.Do(req)
	if err != nil {
		return fmt.Errorf("LLM service not available: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("LLM service returned status %d", resp.StatusCode)
	}
	return nil
}

// GetAvailableModels returns the list of models the Ollama endpoint serves.
func (ls *LLMService) GetAvailableModels(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s/api/tags", ls.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := ls.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get models: status %d", resp.StatusCode)
	}

	var modelsResp OllamaModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&modelsResp); err != nil {
		return nil, err
	}

	var modelNames []string
	for _, model := range modelsResp.Models {
		modelNames = append(modelNames, model.Name)
	}
	return modelNames, nil
}
