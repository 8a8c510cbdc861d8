// Package review provides persistent storage for clinician review records:
// whether the clinician agreed with the engine's top-ranked module for a
// session, and which module they confirmed instead.
package review

import (
	"context"
	"io"
	"time"
)

// Review represents a clinician's sign-off on one query session. Observed
// and Excluded capture the phenotype sets the suggestion was based on, so a
// review stays interpretable after its session is gone.
type Review struct {
	ID              int64     `json:"id,omitempty"`
	SessionID       string    `json:"session_id"`
	SuggestedModule int       `json:"suggested_module"`
	ConfirmedModule int       `json:"confirmed_module"`
	Agreed          bool      `json:"agreed"`
	Confidence      float64   `json:"confidence"`
	Observed        []string  `json:"observed,omitempty"`
	Excluded        []string  `json:"excluded,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Store defines the interface for review storage operations.
type Store interface {
	// Save stores or updates the review for a session. A session carries at
	// most one review; saving again replaces it.
	Save(ctx context.Context, review *Review) error

	// Get retrieves the review for a session, or nil when none exists.
	Get(ctx context.Context, sessionID string) (*Review, error)

	// List returns reviews newest-first with pagination.
	List(ctx context.Context, limit, offset int) ([]*Review, error)

	// Count returns the total number of reviews.
	Count(ctx context.Context) (int64, error)

	// Delete removes a review by ID.
	Delete(ctx context.Context, id int64) error

	// ExportJSON writes all reviews as JSON.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON reads reviews from JSON, skipping sessions that already
	// have one. Returns the number of imported and skipped entries.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// Export is the JSON export format.
type Export struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Count      int       `json:"count"`
	Reviews    []*Review `json:"reviews"`
}
