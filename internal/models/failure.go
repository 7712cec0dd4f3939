package models

import (
	"time"

	"github.com/lib/pq"
)

// StoredFailure is a diagnosed failure persisted for future similarity
// lookups. At most one row exists per fingerprint; the pipeline only ever
// appends, never mutates.
type StoredFailure struct {
	ID           uint            `json:"id" gorm:"primaryKey"`
	Fingerprint  string          `json:"fingerprint" gorm:"size:64;uniqueIndex;not null"`
	Source       string          `json:"source"`
	LogText      string          `json:"logText" gorm:"type:text"`
	Category     FailureCategory `json:"category" gorm:"index"`
	Severity     Severity        `json:"severity" gorm:"type:varchar(20);index"`
	Analysis     string          `json:"analysis" gorm:"type:text"`
	SuggestedFix string          `json:"suggestedFix" gorm:"type:text"`
	Embedding    pq.Float64Array `json:"-" gorm:"type:float8[]"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// FingerprintRecord maps a content hash to an existing stored failure. A hash
// different from the stored failure's own appears here when a near-duplicate
// log was resolved by vector match and its fingerprint recorded for reuse.
type FingerprintRecord struct {
	ID              uint          `json:"id" gorm:"primaryKey"`
	Fingerprint     string        `json:"fingerprint" gorm:"size:64;uniqueIndex;not null"`
	StoredFailureID uint          `json:"storedFailureId" gorm:"not null"`
	StoredFailure   StoredFailure `json:"-" gorm:"foreignKey:StoredFailureID"`
	CreatedAt       time.Time     `json:"createdAt"`
}

// FailureSummary is what Search returns: the stored diagnosis without its
// embedding, plus the distance to the query text.
type FailureSummary struct {
	ID           uint            `json:"id"`
	Source       string          `json:"source"`
	Excerpt      string          `json:"excerpt"`
	Category     FailureCategory `json:"category"`
	Severity     Severity        `json:"severity"`
	Analysis     string          `json:"analysis"`
	SuggestedFix string          `json:"suggestedFix"`
	Distance     float64         `json:"distance"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// StoreStats aggregates the stored failures by category and severity.
type StoreStats struct {
	Total      int64                     `json:"total"`
	ByCategory map[FailureCategory]int64 `json:"byCategory"`
	BySeverity map[Severity]int64        `json:"bySeverity"`
}

func (StoredFailure) TableName() string {
	return "stored_failures"
}

func (FingerprintRecord) TableName() string {
	return "fingerprints"
}

// Diagnosis renders the stored fields as an API diagnosis with the given
// provenance. The stored record itself is never handed out to callers.
func (sf *StoredFailure) Diagnosis(matchType MatchType, similarity *float64) *Diagnosis {
	return &Diagnosis{
		Category:     sf.Category,
		Severity:     sf.Severity,
		Analysis:     sf.Analysis,
		SuggestedFix: sf.SuggestedFix,
		MatchType:    matchType,
		Similarity:   similarity,
		Timestamp:    sf.CreatedAt,
	}
}
