package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/meetgeetha/cicd-debugger/internal/logger"
	"github.com/meetgeetha/cicd-debugger/internal/models"
)

// similarityThreshold is the cosine-distance cutoff below which a stored
// failure is reused instead of asking the LLM. A candidate at exactly the
// threshold is rejected.
const similarityThreshold = 0.25

const degradedAnalysisNote = "AI analysis was unavailable for this log. The diagnosis below comes from rule-based categorization only."

var (
	// ErrEmptyLog rejects blank or whitespace-only input before the
	// pipeline runs.
	ErrEmptyLog = errors.New("log text is empty")

	// ErrStoreUnavailable signals that the failure store could not be
	// reached, so no diagnosis can be produced or cached safely.
	ErrStoreUnavailable = errors.New("failure store unavailable")
)

// Embedder turns log text into an embedding vector.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float64, error)
}

// AnalysisGenerator produces an explanation and a suggested fix for a log,
// given the rule-based category as a hint.
type AnalysisGenerator interface {
	GenerateAnalysis(ctx context.Context, logText string, category models.FailureCategory) (string, string, error)
}

// FailureIndex is the persistence surface the pipeline depends on: exact
// fingerprint lookups, nearest-neighbor queries, and append-only ingestion.
type FailureIndex interface {
	LookupFingerprint(ctx context.Context, fingerprint string) (*models.StoredFailure, error)
	RecordFingerprint(ctx context.Context, fingerprint string, storedFailureID uint) error
	Nearest(ctx context.Context, embedding []float64, topK int) ([]Match, error)
	Insert(ctx context.Context, failure *models.StoredFailure) (*models.StoredFailure, error)
	Stats(ctx context.Context) (*models.StoreStats, error)
}

// DiagnosisService runs the analysis pipeline: exact fingerprint match,
// then vector similarity match, then rule-based categorization with a fresh
// LLM analysis. Embedding and LLM outages degrade the result instead of
// failing the request; only fully-formed diagnoses are persisted.
type DiagnosisService struct {
	store    FailureIndex
	embedder Embedder
	llm      AnalysisGenerator
}

func NewDiagnosisService(store FailureIndex, embedder Embedder, llm AnalysisGenerator) *DiagnosisService {
	return &DiagnosisService{
		store:    store,
		embedder: embedder,
		llm:      llm,
	}
}

// Diagnose analyzes one log and returns a diagnosis. Identical content
// (after normalization) always resolves to the same stored diagnosis without
// touching the embedding or LLM services.
func (ds *DiagnosisService) Diagnose(ctx context.Context, logText, source string) (*models.Diagnosis, error) {
	if strings.TrimSpace(logText) == "" {
		return nil, ErrEmptyLog
	}

	fingerprint := ComputeFingerprint(logText)

	// Stage 1: exact duplicate.
	stored, err := ds.store.LookupFingerprint(ctx, fingerprint)
	if err == nil {
		logger.Info("Exact fingerprint match", map[string]interface{}{
			"fingerprint": fingerprint,
			"category":    stored.Category,
		})
		similarity := 0.0
		return stored.Diagnosis(models.MatchExact, &similarity), nil
	}
	if !errors.Is(err, ErrFingerprintNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// Stage 2: vector similarity.
	embedding, embedErr := ds.embedder.GenerateEmbedding(ctx, logText)
	if embedErr != nil {
		logger.Warn("Embedding generation failed, degrading to rule-based diagnosis", map[string]interface{}{
			"error": embedErr.Error(),
		})
		return ds.degradedDiagnosis(logText), nil
	}

	matches, err := ds.store.Nearest(ctx, embedding, 1)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if len(matches) > 0 && matches[0].Distance < similarityThreshold {
		match := matches[0]
		logger.Info("Vector similarity match", map[string]interface{}{
			"distance":         match.Distance,
			"storedFailureId":  match.Failure.ID,
			"matchedCategory":  match.Failure.Category,
			"queryFingerprint": fingerprint,
		})
		// Remember this content hash so an identical log skips the
		// embedding step next time.
		if err := ds.store.RecordFingerprint(ctx, fingerprint, match.Failure.ID); err != nil {
			logger.Warn("Failed to record fingerprint for vector match", map[string]interface{}{
				"error": err.Error(),
			})
		}
		distance := match.Distance
		return match.Failure.Diagnosis(models.MatchVector, &distance), nil
	}

	// Stage 3: fresh analysis.
	category := Categorize(logText)
	severity := SeverityFor(category)

	analysis, suggestedFix, llmErr := ds.llm.GenerateAnalysis(ctx, logText, category)
	if llmErr != nil {
		logger.Warn("LLM analysis failed, returning degraded diagnosis", map[string]interface{}{
			"category": category,
			"error":    llmErr.Error(),
		})
		return ds.degradedDiagnosis(logText), nil
	}

	failure := &models.StoredFailure{
		Fingerprint:  fingerprint,
		Source:       source,
		LogText:      logText,
		Category:     category,
		Severity:     severity,
		Analysis:     analysis,
		SuggestedFix: suggestedFix,
		Embedding:    embedding,
	}
	if _, err := ds.store.Insert(ctx, failure); err != nil {
		// The diagnosis itself is sound; failing the request over a
		// cache write would punish the caller for a storage hiccup.
		logger.Error("Failed to persist diagnosis", map[string]interface{}{
			"fingerprint": fingerprint,
			"error":       err.Error(),
		})
	}

	return &models.Diagnosis{
		Category:     category,
		Severity:     severity,
		Analysis:     analysis,
		SuggestedFix: suggestedFix,
		MatchType:    models.MatchLLM,
		Similarity:   nil,
		Timestamp:    time.Now().UTC(),
	}, nil
}

// degradedDiagnosis builds the best-effort answer used when the embedding or
// LLM service is down. It is never persisted, so a later request for the
// same content gets a full analysis attempt.
func (ds *DiagnosisService) degradedDiagnosis(logText string) *models.Diagnosis {
	category := Categorize(logText)
	return &models.Diagnosis{
		Category:     category,
		Severity:     SeverityFor(category),
		Analysis:     degradedAnalysisNote,
		SuggestedFix: FallbackFix(category),
		MatchType:    models.MatchDegraded,
		Similarity:   nil,
		Timestamp:    time.Now().UTC(),
	}
}

// Search embeds the query text and returns stored failures ascending by
// cosine distance.
func (ds *DiagnosisService) Search(ctx context.Context, query string, limit int) ([]models.FailureSummary, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyLog
	}
	if limit <= 0 {
		limit = 10
	}

	embedding, err := ds.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches, err := ds.store.Nearest(ctx, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	summaries := make([]models.FailureSummary, 0, len(matches))
	for _, match := range matches {
		summaries = append(summaries, models.FailureSummary{
			ID:           match.Failure.ID,
			Source:       match.Failure.Source,
			Excerpt:      logExcerpt(match.Failure.LogText),
			Category:     match.Failure.Category,
			Severity:     match.Failure.Severity,
			Analysis:     match.Failure.Analysis,
			SuggestedFix: match.Failure.SuggestedFix,
			Distance:     match.Distance,
			CreatedAt:    match.Failure.CreatedAt,
		})
	}
	return summaries, nil
}

// Stats reports how many failures are stored, broken down by category and
// severity.
func (ds *DiagnosisService) Stats(ctx context.Context) (*models.StoreStats, error) {
	stats, err := ds.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return stats, nil
}

const excerptLength = 200

func logExcerpt(logText string) string {
	excerpt := strings.TrimSpace(logText)
	if len(excerpt) > excerptLength {
		excerpt = excerpt[:excerptLength] + "..."
	}
	return excerpt
}
