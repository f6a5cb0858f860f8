package statesync

import (
	"context"
	"sync/atomic"
	"time"
)

// Observability receives hooks around priming passes and handler calls.
// Implementations must be cheap; they run inline with event dispatch.
type Observability interface {
	// OnSyncStart is called before a priming pass. trigger is empty for
	// immediate syncs and holds the trigger event name otherwise.
	OnSyncStart(ctx context.Context, kind EntityKind, trigger string) context.Context

	// OnSyncComplete is called after a priming pass with the number of
	// handler calls it made.
	OnSyncComplete(ctx context.Context, calls int, err error)

	// OnHandlerStart is called before a primed handler runs
	OnHandlerStart(ctx context.Context, event, handler string) context.Context

	// OnHandlerComplete is called after a primed handler returns
	OnHandlerComplete(ctx context.Context, duration time.Duration, err error)

	// OnSyncingStop is called when a syncing is torn down
	OnSyncingStop(ctx context.Context, trigger string)
}

type observabilityHolder struct {
	obs Observability
}

var observability atomic.Pointer[observabilityHolder]

// SetObservability installs hooks for every sync in the process. Pass nil to remove them.
func SetObservability(obs Observability) {
	if obs == nil {
		observability.Store(nil)
		return
	}
	observability.Store(&observabilityHolder{obs: obs})
}

func currentObservability() Observability {
	h := observability.Load()
	if h == nil {
		return nil
	}
	return h.obs
}
