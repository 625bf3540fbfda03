// Package media provides the now-playing signal sources: a local heuristic
// that scans visible window titles and a remote API client.
package media

import (
	"context"
	"time"

	"github.com/vizmute/vizmute/internal/types"
)

// Source is the polling contract shared by all media source variants.
type Source interface {
	// Poll returns the current media signal. A non-nil error is terminal:
	// the source cannot produce further normal signals and the caller
	// should stop polling it. Transient failures are handled internally
	// by returning the best available signal with a nil error.
	Poll(ctx context.Context) (types.MediaSignal, error)

	// Interval returns the polling cadence for this variant.
	Interval() time.Duration
}
