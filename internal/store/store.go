// Package store persists scan sessions and confirmed subscriptions.
package store

import (
	"context"

	"github.com/sells-group/subscan/internal/model"
	"github.com/sells-group/subscan/internal/scan"
)

// Store defines the persistence interface behind the scan engine.
type Store interface {
	scan.Sink

	// ListSessions returns the most recent sessions first.
	ListSessions(ctx context.Context, limit int) ([]model.SessionResult, error)
	// ListConfirmed returns every confirmed subscription ordered by name.
	ListConfirmed(ctx context.Context) ([]model.Subscription, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 20

func listLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}
