package session

// State is the lifecycle position of one session. Transitions are driven
// exclusively by protocol client events; status reads only ever observe one
// of these six values.
type State string

const (
	// StateUninitialized means a client exists but no event has arrived yet,
	// or no client has ever been constructed for the identity.
	StateUninitialized State = "uninitialized"
	// StatePairing means a pairing code has been emitted and not yet scanned.
	StatePairing State = "pairing"
	// StateAuthenticated means the scan was accepted and the client is still
	// initializing.
	StateAuthenticated State = "authenticated"
	// StateReady means the connection is fully usable and profile info is
	// available.
	StateReady State = "ready"
	// StateDisconnected is terminal until a fresh pairing cycle restarts the
	// session.
	StateDisconnected State = "disconnected"
	// StateAuthFailed is terminal for the pairing attempt that produced it.
	StateAuthFailed State = "auth_failed"
)

// Terminal reports whether the state ends the current pairing cycle. A new
// pairing code event starts a fresh cycle out of a terminal state.
func (s State) Terminal() bool {
	return s == StateDisconnected || s == StateAuthFailed
}
