// Package sources defines the two collaborator interfaces the planner
// suspends on — duration lookup and content-driven cut-point suggestion —
// plus a yaml manifest implementation of both for offline use.
package sources

import (
	"context"
	"errors"
)

//go:generate mockgen -destination=mocks/mock_sources.go -package=mocks github.com/mattjoyce/kompozer/internal/sources FileResolver,ContentAnalyzer

// ErrNotFound reports that a source reference names no known file.
var ErrNotFound = errors.New("source not found")

// FileResolver resolves a source reference to its available duration.
type FileResolver interface {
	// GetDuration returns the playable duration of the source in seconds.
	// Returns an error wrapping ErrNotFound for unknown references.
	GetDuration(ctx context.Context, sourceRef string) (float64, error)
}

// ContentAnalyzer suggests where to cut a source to fill a target
// duration. Implementations typically run scene or speech detection; the
// planner embeds the answer into the extraction descriptor verbatim.
type ContentAnalyzer interface {
	SuggestCutPoints(ctx context.Context, sourceRef string, targetDurationSeconds float64) (startSeconds, durationSeconds float64, err error)
}
