// Package waclient defines the contract between the gateway and the
// per-account messaging protocol client. The client is an external
// collaborator: the gateway only consumes its lifecycle events and send
// operation, and hands it a private storage directory for whatever it
// persists to resume without re-pairing.
package waclient

import "context"

// EventKind enumerates the lifecycle events a client emits.
type EventKind string

const (
	// EventPairingCode carries a fresh scannable pairing payload. A client
	// may emit it more than once when an unscanned code expires.
	EventPairingCode EventKind = "pairing_code"
	// EventAuthenticated fires once the code is scanned and accepted.
	EventAuthenticated EventKind = "authenticated"
	// EventReady fires when the connection is fully usable. Clients that
	// resume persisted credentials emit it without a preceding pairing code.
	EventReady EventKind = "ready"
	// EventAuthFailed fires when the pairing attempt is rejected.
	EventAuthFailed EventKind = "auth_failed"
	// EventDisconnected fires when the connection drops or is logged out.
	EventDisconnected EventKind = "disconnected"
)

// Profile is the connected account's own descriptor, available once ready.
type Profile struct {
	DisplayName string `json:"display_name"`
	Phone       string `json:"phone"`
	Platform    string `json:"platform"`
}

// Event is one lifecycle notification from a client.
type Event struct {
	Kind    EventKind
	Code    string  // pairing payload, EventPairingCode only
	Profile Profile // populated for EventReady
	Reason  string  // optional detail for auth_failed / disconnected
}

// Client is one live or potential connection to the messaging network for a
// single identity.
type Client interface {
	// Connect starts the connection. Lifecycle progress is reported on the
	// Events channel, never via the return value.
	Connect(ctx context.Context) error

	// Events returns the client's event stream. The channel is closed when
	// the client shuts down for good.
	Events() <-chan Event

	// SendMessage dispatches a message to a recipient. Valid only once an
	// EventReady has been observed.
	SendMessage(ctx context.Context, to, body string) error

	// Disconnect closes the connection and releases held resources. It
	// blocks until shutdown completes or ctx expires.
	Disconnect(ctx context.Context) error
}

// Dialer constructs clients. storageDir is the identity's reserved subtree;
// the client owns its contents.
type Dialer interface {
	Dial(ctx context.Context, identity, storageDir string) (Client, error)
}
