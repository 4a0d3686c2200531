// Package scan runs the purchase-history and email collaborators side by
// side, joins them, reconciles their output and tracks the user-visible
// scan lifecycle.
package scan

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/subscan/internal/model"
)

var (
	// ErrUnavailable is returned by a collaborator whose prerequisite (for
	// example a connected account) does not exist. It marks the source
	// unavailable rather than failed.
	ErrUnavailable = eris.New("scan: source unavailable")

	// ErrInvalidState is returned when an operation is not allowed in the
	// current lifecycle state.
	ErrInvalidState = eris.New("scan: invalid state")

	// ErrUnknownCandidate is returned for an ID not in the review set.
	ErrUnknownCandidate = eris.New("scan: unknown candidate")

	// ErrSuperseded is returned to a caller whose scan was replaced by a newer one.
	ErrSuperseded = eris.New("scan: superseded by a newer scan")
)

// Reporter receives progress from a running collaborator.
type Reporter func(model.SourceUpdate)

// Source is a candidate-discovery collaborator. Scan must return once ctx
// is done. The returned slice is owned by the orchestrator afterwards.
type Source interface {
	Scan(ctx context.Context, report Reporter) ([]model.Candidate, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, report Reporter) ([]model.Candidate, error)

// Scan calls f.
func (f SourceFunc) Scan(ctx context.Context, report Reporter) ([]model.Candidate, error) {
	return f(ctx, report)
}

// Sink persists scan outcomes. Implementations live outside the engine.
type Sink interface {
	SaveSession(ctx context.Context, result *model.SessionResult) error
	SaveConfirmed(ctx context.Context, sessionID string, records []model.Candidate) error
}

// Options selects which collaborators a scan launches.
type Options struct {
	IncludePurchases bool `json:"include_purchases"`
	IncludeEmail     bool `json:"include_email"`
}

// AllSources launches both collaborators.
func AllSources() Options {
	return Options{IncludePurchases: true, IncludeEmail: true}
}
