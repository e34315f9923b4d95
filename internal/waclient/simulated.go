package waclient

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const credentialsFile = "credentials.json"

// Simulated is an in-process Client used in development mode and tests. It
// follows the same lifecycle contract as a real network client: pairing codes
// and state changes arrive on the event channel, and credentials persisted in
// the storage directory let a later Connect skip straight to ready.
type Simulated struct {
	identity   string
	storageDir string

	mu      sync.Mutex
	events  chan Event
	ready   bool
	closed  bool
	codeSeq int
	sent    []SentMessage
}

// SentMessage records one SendMessage call for assertions.
type SentMessage struct {
	To   string
	Body string
}

func newSimulated(identity, storageDir string) *Simulated {
	return &Simulated{
		identity:   identity,
		storageDir: storageDir,
		events:     make(chan Event, 8),
	}
}

// Connect resumes persisted credentials when present, otherwise emits the
// first pairing code.
func (s *Simulated) Connect(_ context.Context) error {
	profile, ok, err := s.loadCredentials()
	if err != nil {
		return err
	}
	if ok {
		s.mu.Lock()
		s.ready = true
		s.mu.Unlock()
		s.emit(Event{Kind: EventReady, Profile: profile})
		return nil
	}
	s.EmitPairingCode()
	return nil
}

// Events returns the client's event stream.
func (s *Simulated) Events() <-chan Event {
	return s.events
}

// SendMessage records the message, or fails when the client is not ready.
func (s *Simulated) SendMessage(_ context.Context, to, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return fmt.Errorf("client for %s is not connected", s.identity)
	}
	s.sent = append(s.sent, SentMessage{To: to, Body: body})
	return nil
}

// Disconnect closes the event stream and drops the connection state.
func (s *Simulated) Disconnect(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.ready = false
	close(s.events)
	return nil
}

// EmitPairingCode pushes a fresh deterministic pairing payload, superseding
// any earlier one, the way a real client re-emits after code expiry.
func (s *Simulated) EmitPairingCode() string {
	s.mu.Lock()
	s.codeSeq++
	code := fmt.Sprintf("wabridge-pair:%s:%d", s.identity, s.codeSeq)
	s.mu.Unlock()
	s.emit(Event{Kind: EventPairingCode, Code: code})
	return code
}

// CompletePairing simulates an out-of-band scan: the client authenticates,
// persists credentials for later resumption, and becomes ready.
func (s *Simulated) CompletePairing(profile Profile) error {
	s.emit(Event{Kind: EventAuthenticated})
	if err := s.storeCredentials(profile); err != nil {
		return err
	}
	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()
	s.emit(Event{Kind: EventReady, Profile: profile})
	return nil
}

// FailPairing simulates a rejected pairing attempt.
func (s *Simulated) FailPairing(reason string) {
	s.emit(Event{Kind: EventAuthFailed, Reason: reason})
}

// Drop simulates a connection loss or remote logout.
func (s *Simulated) Drop(reason string) {
	s.mu.Lock()
	s.ready = false
	s.mu.Unlock()
	s.emit(Event{Kind: EventDisconnected, Reason: reason})
}

// Sent returns a copy of the messages dispatched so far.
func (s *Simulated) Sent() []SentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SentMessage, len(s.sent))
	copy(out, s.sent)
	return out
}

// Closed reports whether Disconnect has completed.
func (s *Simulated) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Simulated) emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.events <- ev
}

func (s *Simulated) credentialsPath() string {
	return filepath.Join(s.storageDir, credentialsFile)
}

func (s *Simulated) storeCredentials(profile Profile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return os.WriteFile(s.credentialsPath(), data, 0o600)
}

func (s *Simulated) loadCredentials() (Profile, bool, error) {
	data, err := os.ReadFile(s.credentialsPath())
	if os.IsNotExist(err) {
		return Profile{}, false, nil
	}
	if err != nil {
		return Profile{}, false, err
	}
	var profile Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return Profile{}, false, fmt.Errorf("decode credentials for %s: %w", s.identity, err)
	}
	return profile, true, nil
}
