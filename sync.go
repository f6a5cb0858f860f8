package statesync

import (
	"context"
	"regexp"
	"sync/atomic"
	"time"
)

var changeMatcher = regexp.MustCompile(`^change:(.+)`)

// Sync primes the handlers in bindings against the current state of entity,
// as if the syncable events had just fired:
//
//	model       "all", "change"   handler(entity, Options{Sync: true})
//	model       "change:<attr>"   handler(entity, entity.Get(attr), Options{Sync: true})
//	collection  "all", "reset"    handler(entity, Options{Sync: true})
//
// Other event names are skipped. Handlers run in binding order, then event
// name order, then handler name order, so
//
//	{"change:foo change:bar", "a b"}
//
// calls a(foo), b(foo), a(bar), b(bar). Named handlers are looked up on
// target at call time.
func Sync(target HandlerResolver, entity Entity, bindings Bindings) error {
	if target == nil {
		return ErrNilTarget
	}
	if entity == nil {
		return ErrNilEntity
	}
	_, err := syncBindings(context.Background(), target, entity, bindings, "")
	return err
}

func syncBindings(ctx context.Context, target HandlerResolver, entity Entity, bindings Bindings, trigger string) (calls int, err error) {
	obs := currentObservability()
	if obs != nil {
		ctx = obs.OnSyncStart(ctx, entity.EntityKind(), trigger)
		defer func() {
			obs.OnSyncComplete(ctx, calls, err)
		}()
	}

	for _, binding := range bindings {
		for _, event := range binding.EventNames() {
			args, ok, err := syncArgs(entity, event)
			if err != nil {
				return calls, err
			}
			if !ok {
				continue
			}
			n, err := callPrimed(ctx, obs, target, binding.Handlers, event, args)
			calls += n
			if err != nil {
				return calls, err
			}
		}
	}

	logDebug().
		Str("kind", entity.EntityKind().String()).
		Str("trigger", trigger).
		Int("calls", calls).
		Msg("synced entity events")
	return calls, nil
}

// syncArgs reports whether event is syncable for entity and with which arguments
func syncArgs(entity Entity, event string) ([]any, bool, error) {
	marker := Options{Sync: true}
	if event == EventAll {
		return []any{entity, marker}, true, nil
	}

	switch entity.EntityKind() {
	case KindModel:
		if event == EventChange {
			return []any{entity, marker}, true, nil
		}
		if match := changeMatcher.FindStringSubmatch(event); match != nil {
			model, ok := entity.(ModelLike)
			if !ok {
				return nil, false, ErrNotModelLike
			}
			return []any{entity, model.Get(match[1]), marker}, true, nil
		}
	case KindCollection:
		if event == EventReset {
			return []any{entity, marker}, true, nil
		}
	}
	return nil, false, nil
}

func callPrimed(ctx context.Context, obs Observability, target HandlerResolver, spec HandlerSpec, event string, args []any) (int, error) {
	if spec.fn != nil {
		observeHandler(ctx, obs, event, spec.String(), func() error {
			spec.fn(args...)
			return nil
		})
		return 1, nil
	}

	calls := 0
	for _, name := range spec.names {
		fn, ok := target.Handler(name)
		if !ok {
			err := &HandlerError{Handler: name, Event: event, Err: ErrMissingHandler}
			observeHandler(ctx, obs, event, name, func() error { return err })
			return calls, err
		}
		observeHandler(ctx, obs, event, name, func() error {
			fn(args...)
			return nil
		})
		calls++
	}
	return calls, nil
}

func observeHandler(ctx context.Context, obs Observability, event, handler string, run func() error) {
	if obs == nil {
		_ = run()
		return
	}
	ctx = obs.OnHandlerStart(ctx, event, handler)
	start := time.Now()
	err := run()
	obs.OnHandlerComplete(ctx, time.Since(start), err)
}

// SyncOption configures SyncEntityEvents
type SyncOption func(*syncConfig)

type syncConfig struct {
	event  string
	source Emitter
}

// When defers priming until the target emits event, and repeats it every time
func When(event string) SyncOption {
	return func(c *syncConfig) {
		c.event = event
		c.source = nil
	}
}

// WhenOn defers priming until source emits event, and repeats it every time
func WhenOn(source Emitter, event string) SyncOption {
	return func(c *syncConfig) {
		c.event = event
		c.source = source
	}
}

// Syncing is a live binding plus its priming registration, returned by
// SyncEntityEvents. It stops by itself when the target emits EventDestroy.
type Syncing struct {
	target   Target
	entity   Entity
	bindings Bindings
	event    string
	source   Emitter

	binding   *EntityBinding
	triggerID ListenerID
	destroyID ListenerID
	stopped   atomic.Bool
}

// SyncEntityEvents binds the target's handlers to entity events (the live
// path), then primes them: immediately by default, or each time the trigger
// event given by When or WhenOn fires.
func SyncEntityEvents(target Target, entity Entity, bindings Bindings, opts ...SyncOption) (*Syncing, error) {
	if target == nil {
		return nil, ErrNilTarget
	}
	if entity == nil {
		return nil, ErrNilEntity
	}
	if d, ok := target.(interface{ IsDestroyed() bool }); ok && d.IsDestroyed() {
		return nil, ErrDestroyed
	}

	var cfg syncConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	binding, err := BindEntityEvents(target, entity, bindings)
	if err != nil {
		return nil, err
	}

	s := &Syncing{
		target:   target,
		entity:   entity,
		bindings: bindings,
		event:    cfg.event,
		binding:  binding,
	}

	if cfg.event == "" {
		if _, err := syncBindings(context.Background(), target, entity, bindings, ""); err != nil {
			binding.Unbind()
			return nil, err
		}
	} else {
		s.source = cfg.source
		if s.source == nil {
			s.source = target
		}
		s.triggerID = target.ListenTo(s.source, s.event, s.onTrigger)
	}

	s.destroyID = target.Once(EventDestroy, func(...any) {
		s.Stop()
	})
	if tracker, ok := target.(syncTracker); ok {
		tracker.trackSyncing(s)
	}
	return s, nil
}

func (s *Syncing) onTrigger(...any) {
	if s.stopped.Load() {
		return
	}
	if _, err := syncBindings(context.Background(), s.target, s.entity, s.bindings, s.event); err != nil {
		// Handler names were validated at bind time; one vanishing since is a programming error
		panic(err)
	}
}

// Now primes the handlers immediately, independent of the trigger event
func (s *Syncing) Now() error {
	if s.stopped.Load() {
		return nil
	}
	_, err := syncBindings(context.Background(), s.target, s.entity, s.bindings, "")
	return err
}

// Stop removes the live binding and the trigger listener. It is safe to call
// more than once and after the target was destroyed.
func (s *Syncing) Stop() {
	if !s.stopped.CompareAndSwap(false, true) {
		return
	}

	s.binding.Unbind()
	if s.triggerID != 0 {
		s.target.StopListeningID(s.triggerID)
	}
	s.target.Off(s.destroyID)
	if tracker, ok := s.target.(syncTracker); ok {
		tracker.untrackSyncing(s)
	}

	if obs := currentObservability(); obs != nil {
		obs.OnSyncingStop(context.Background(), s.event)
	}
	logDebug().Str("trigger", s.event).Msg("stopped syncing entity events")
}

// Stopped returns true once Stop has run
func (s *Syncing) Stopped() bool {
	return s.stopped.Load()
}

// Target returns the object whose handlers are synced
func (s *Syncing) Target() Target {
	return s.target
}

// Entity returns the synced entity
func (s *Syncing) Entity() Entity {
	return s.entity
}

// Event returns the trigger event, or "" for an immediate sync
func (s *Syncing) Event() string {
	return s.event
}

// EventSource returns the emitter of the trigger event, or nil for an immediate sync
func (s *Syncing) EventSource() Emitter {
	return s.source
}

// StopSyncingEntityEvents stops every syncing target holds for entity and
// returns how many were stopped.
func StopSyncingEntityEvents(target Target, entity Entity) int {
	tracker, ok := target.(syncTracker)
	if !ok {
		return 0
	}
	syncings := tracker.syncingsFor(entity)
	for _, s := range syncings {
		s.Stop()
	}
	return len(syncings)
}
