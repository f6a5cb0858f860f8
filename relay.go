package statesync

// Substitution maps an outgoing event argument to its replacement. It returns
// false to keep the argument as is.
type Substitution func(arg any) (any, bool)

// Relay re-emits every event of a source on a destination. If Substitute is
// set it is applied to the first event argument only, the position where
// emitters put themselves ("change:foo" carries (model, value, options)).
type Relay struct {
	owner Observer
	id    ListenerID
}

// StartRelay starts relaying. The listener on source is owned by owner, so
// owner.StopListening(source) or owner being destroyed also ends the relay.
func StartRelay(owner Observer, source, dest Emitter, substitute Substitution) *Relay {
	r := &Relay{owner: owner}
	r.id = owner.ListenTo(source, EventAll, func(args ...any) {
		if len(args) == 0 {
			return
		}
		name, ok := args[0].(string)
		if !ok {
			return
		}
		payload := args[1:]
		if substitute != nil && len(payload) > 0 {
			if replacement, ok := substitute(payload[0]); ok {
				// Copy so other listeners of the source keep the original
				replaced := make([]any, len(payload))
				copy(replaced, payload)
				replaced[0] = replacement
				payload = replaced
			}
		}
		dest.Trigger(name, payload...)
	})
	return r
}

// Stop ends the relay
func (r *Relay) Stop() {
	if r == nil {
		return
	}
	r.owner.StopListeningID(r.id)
}
