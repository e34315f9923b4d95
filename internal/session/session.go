package session

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/wabridge/wabridge/internal/waclient"
)

// Session binds one identity to its protocol client and current state. All
// mutations happen on the registry's event pump goroutine; status readers
// take the read lock and always observe a consistent snapshot.
type Session struct {
	identity   string
	storageDir string
	client     waclient.Client

	mu         sync.RWMutex
	state      State
	profile    waclient.Profile
	hasProfile bool
	artifact   *Artifact
	pairErr    string
}

// Status is a point-in-time view of a session.
type Status struct {
	Identity   string
	State      State
	Profile    waclient.Profile
	HasProfile bool
	HasCode    bool
	PairError  string
}

func newSession(identity, storageDir string, client waclient.Client) *Session {
	return &Session{
		identity:   identity,
		storageDir: storageDir,
		client:     client,
		state:      StateUninitialized,
	}
}

// Identity returns the session's account identity.
func (s *Session) Identity() string { return s.identity }

// Snapshot returns the session's current status. It never blocks on network
// activity; it reflects the last event the registry has processed.
func (s *Session) Snapshot() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		Identity:   s.identity,
		State:      s.state,
		Profile:    s.profile,
		HasProfile: s.hasProfile,
		HasCode:    s.artifact != nil,
		PairError:  s.pairErr,
	}
}

// InlineImage returns the encoded pairing image while the session is pairing.
func (s *Session) InlineImage() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StatePairing || s.artifact == nil {
		return nil, ErrNoArtifact
	}
	return s.artifact.PNG, nil
}

// ImagePath returns the on-disk pairing image path while the session is
// pairing and the image was written successfully.
func (s *Session) ImagePath() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StatePairing || s.artifact == nil || s.artifact.Path == "" {
		return "", ErrNoArtifact
	}
	return s.artifact.Path, nil
}

// apply advances the state machine for one client event and returns the
// resulting state. Called only from the registry's pump goroutine, so writes
// are serialized per session.
func (s *Session) apply(ev waclient.Event, logger *slog.Logger) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Kind {
	case waclient.EventPairingCode:
		// A new code starts a fresh pairing cycle, also out of a terminal
		// state, and supersedes any earlier artifact.
		png, err := renderPairingCode(ev.Code)
		if err != nil {
			s.artifact = nil
			s.pairErr = err.Error()
			s.state = StatePairing
			logger.Error("pairing code render failed", "identity", s.identity, "error", err)
			break
		}
		path := filepath.Join(s.storageDir, artifactFile)
		if werr := os.WriteFile(path, png, 0o600); werr != nil {
			logger.Warn("pairing image write failed, serving inline only", "identity", s.identity, "error", werr)
			path = ""
		}
		s.artifact = &Artifact{Raw: ev.Code, PNG: png, Path: path}
		s.pairErr = ""
		s.state = StatePairing

	case waclient.EventAuthenticated:
		if s.state.Terminal() {
			break
		}
		s.state = StateAuthenticated

	case waclient.EventReady:
		// Reachable from any non-terminal state: a client resuming persisted
		// credentials never emits a pairing code first.
		if s.state.Terminal() {
			break
		}
		s.state = StateReady
		s.profile = ev.Profile
		s.hasProfile = true
		s.artifact = nil
		s.pairErr = ""

	case waclient.EventAuthFailed:
		s.state = StateAuthFailed
		s.artifact = nil
		s.profile = waclient.Profile{}
		s.hasProfile = false

	case waclient.EventDisconnected:
		s.state = StateDisconnected
		s.artifact = nil
		s.profile = waclient.Profile{}
		s.hasProfile = false
	}

	return s.state
}
