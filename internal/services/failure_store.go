package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/meetgeetha/cicd-debugger/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrFingerprintNotFound is returned by LookupFingerprint when no diagnosis
// has been recorded for a content hash.
var ErrFingerprintNotFound = errors.New("fingerprint not found")

// FailureStore persists diagnosed failures and their fingerprints in
// Postgres. Similarity queries load the stored embeddings and rank them by
// cosine distance in process; with a per-project failure corpus this stays
// well within a single request's budget.
type FailureStore struct {
	db *gorm.DB
}

func NewFailureStore(db *gorm.DB) *FailureStore {
	return &FailureStore{db: db}
}

// LookupFingerprint returns the stored failure an exact content hash resolves
// to, or ErrFingerprintNotFound.
func (fs *FailureStore) LookupFingerprint(ctx context.Context, fingerprint string) (*models.StoredFailure, error) {
	var record models.FingerprintRecord
	err := fs.db.WithContext(ctx).Preload("StoredFailure").Where("fingerprint = ?", fingerprint).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFingerprintNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fingerprint lookup failed: %w", err)
	}
	return &record.StoredFailure, nil
}

// RecordFingerprint maps a content hash to an existing stored failure. The
// write is idempotent: a concurrent request that already recorded the same
// hash wins and this call is a no-op.
func (fs *FailureStore) RecordFingerprint(ctx context.Context, fingerprint string, storedFailureID uint) error {
	record := models.FingerprintRecord{
		Fingerprint:     fingerprint,
		StoredFailureID: storedFailureID,
	}
	err := fs.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "fingerprint"}}, DoNothing: true}).
		Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to record fingerprint: %w", err)
	}
	return nil
}

// Match pairs a stored failure with its cosine distance from a query vector.
type Match struct {
	Failure  models.StoredFailure
	Distance float64
}

// Nearest returns the topK stored failures closest to the query embedding,
// ascending by cosine distance.
func (fs *FailureStore) Nearest(ctx context.Context, embedding []float64, topK int) ([]Match, error) {
	var failures []models.StoredFailure
	if err := fs.db.WithContext(ctx).Find(&failures).Error; err != nil {
		return nil, fmt.Errorf("failed to load stored failures: %w", err)
	}

	var matches []Match
	for _, failure := range failures {
		if len(failure.Embedding) != len(embedding) {
			continue
		}
		matches = append(matches, Match{
			Failure:  failure,
			Distance: CosineDistance(embedding, failure.Embedding),
		})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Insert persists a new stored failure and its own fingerprint mapping.
// Ingestion is idempotent per fingerprint: if a concurrent request already
// stored the same content, the existing row is returned unchanged.
func (fs *FailureStore) Insert(ctx context.Context, failure *models.StoredFailure) (*models.StoredFailure, error) {
	result := fs.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "fingerprint"}}, DoNothing: true}).
		Create(failure)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to insert stored failure: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		// Lost the race; another request persisted this content first.
		var existing models.StoredFailure
		if err := fs.db.WithContext(ctx).Where("fingerprint = ?", failure.Fingerprint).First(&existing).Error; err != nil {
			return nil, fmt.Errorf("failed to load existing stored failure: %w", err)
		}
		failure = &existing
	}

	if err := fs.RecordFingerprint(ctx, failure.Fingerprint, failure.ID); err != nil {
		return nil, err
	}
	return failure, nil
}

// Stats aggregates stored failures by category and severity.
func (fs *FailureStore) Stats(ctx context.Context) (*models.StoreStats, error) {
	stats := &models.StoreStats{
		ByCategory: make(map[models.FailureCategory]int64),
		BySeverity: make(map[models.Severity]int64),
	}

	if err := fs.db.WithContext(ctx).Model(&models.StoredFailure{}).Count(&stats.Total).Error; err != nil {
		return nil, fmt.Errorf("failed to count stored failures: %w", err)
	}

	type bucket struct {
		Key   string
		Count int64
	}

	var byCategory []bucket
	err := fs.db.WithContext(ctx).Model(&models.StoredFailure{}).
		Select("category AS key, COUNT(*) AS count").Group("category").Scan(&byCategory).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate by category: %w", err)
	}
	for _, b := range byCategory {
		stats.ByCategory[models.FailureCategory(b.Key)] = b.Count
	}

	var bySeverity []bucket
	err = fs.db.WithContext(ctx).Model(&models.StoredFailure{}).
		Select("severity AS key, COUNT(*) AS count").Group("severity").Scan(&bySeverity).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate by severity: %w", err)
	}
	for _, b := range bySeverity {
		stats.BySeverity[models.Severity(b.Key)] = b.Count
	}

	return stats, nil
}

// Recent returns the most recently stored failures, newest first.
func (fs *FailureStore) Recent(ctx context.Context, limit, offset int) ([]models.StoredFailure, int64, error) {
	var failures []models.StoredFailure
	err := fs.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Offset(offset).Find(&failures).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch stored failures: %w", err)
	}

	var total int64
	if err := fs.db.WithContext(ctx).Model(&models.StoredFailure{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count stored failures: %w", err)
	}
	return failures, total, nil
}

// CosineDistance computes 1 - cosine similarity between two vectors, so the
// result lives in [0, 2] with 0 meaning identical direction. Mismatched or
// zero-norm vectors are treated as maximally dissimilar.
func CosineDistance(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 2
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
