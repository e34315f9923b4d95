package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/wabridge/wabridge/internal/waclient"
)

const (
	defaultPairWait       = 5 * time.Second
	defaultClientShutdown = 15 * time.Second
	pairPollInterval      = 50 * time.Millisecond
)

// Config carries the registry's dependencies and tunables.
type Config struct {
	// Root is the directory under which each identity owns a storage subtree.
	Root   string
	Dialer waclient.Dialer
	Logger *slog.Logger

	// PairWait bounds how long RequestPairing waits for the first code.
	PairWait time.Duration
	// ClientShutdown bounds how long Destroy waits for the client to close.
	ClientShutdown time.Duration
}

// Registry owns the identity → session mapping. It constructs protocol
// clients lazily (never more than one live client per identity), runs one
// event pump per session, and reclaims client and storage on destroy.
type Registry struct {
	root           string
	dialer         waclient.Dialer
	logger         *slog.Logger
	pairWait       time.Duration
	clientShutdown time.Duration

	// mu guards the handle map and every handle's sess/gone fields, so
	// status reads never wait behind a slow create or destroy.
	mu      sync.Mutex
	handles map[string]*handle
}

// handle carries one identity's session and its operation lock. op
// serializes create and destroy: concurrent first requests queue on it and
// the losers receive the winner's session, and a destroy holds it for the
// whole shutdown-then-reclaim sequence so no create can interleave.
type handle struct {
	op     sync.Mutex
	gone   bool
	sess   *Session
	cancel context.CancelFunc
}

// NewRegistry builds a registry rooted at cfg.Root.
func NewRegistry(cfg Config) *Registry {
	if cfg.PairWait <= 0 {
		cfg.PairWait = defaultPairWait
	}
	if cfg.ClientShutdown <= 0 {
		cfg.ClientShutdown = defaultClientShutdown
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Registry{
		root:           cfg.Root,
		dialer:         cfg.Dialer,
		logger:         cfg.Logger,
		pairWait:       cfg.PairWait,
		clientShutdown: cfg.ClientShutdown,
		handles:        make(map[string]*handle),
	}
}

// GetOrCreate returns the session for the identity, constructing the client
// and its storage subtree on first use. Concurrent calls for one identity
// construct exactly one client.
func (r *Registry) GetOrCreate(ctx context.Context, identity string) (*Session, error) {
	if err := validIdentity(identity); err != nil {
		return nil, err
	}

	for {
		r.mu.Lock()
		h, ok := r.handles[identity]
		if !ok {
			h = &handle{}
			r.handles[identity] = h
		}
		sess, gone := h.sess, h.gone
		r.mu.Unlock()

		if sess != nil && !gone {
			return sess, nil
		}

		h.op.Lock()
		r.mu.Lock()
		sess, gone = h.sess, h.gone
		r.mu.Unlock()
		if gone {
			// Lost a race with a destroy that finished while we waited for
			// the operation lock; start over on a fresh handle.
			h.op.Unlock()
			continue
		}
		if sess != nil {
			h.op.Unlock()
			return sess, nil
		}

		sess, err := r.buildLocked(ctx, identity, h)
		if err != nil {
			r.mu.Lock()
			h.gone = true
			if r.handles[identity] == h {
				delete(r.handles, identity)
			}
			r.mu.Unlock()
			h.op.Unlock()
			return nil, err
		}
		h.op.Unlock()
		return sess, nil
	}
}

// buildLocked constructs the storage dir, client and pump for an identity.
// Callers hold the handle's operation lock.
func (r *Registry) buildLocked(ctx context.Context, identity string, h *handle) (*Session, error) {
	dir := filepath.Join(r.root, identity)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("%w: create storage dir: %v", ErrClientUnavailable, err)
	}

	client, err := r.dialer.Dial(ctx, identity, dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClientUnavailable, err)
	}

	sess := newSession(identity, dir, client)

	// The pump is the registry's owned subscription to the client: it feeds
	// every event through the state machine and dies when destroy cancels it
	// or the client closes its stream.
	pumpCtx, cancel := context.WithCancel(context.Background())
	go r.pump(pumpCtx, sess)

	if err := client.Connect(ctx); err != nil {
		cancel()
		shCtx, shCancel := context.WithTimeout(context.Background(), r.clientShutdown)
		defer shCancel()
		if derr := client.Disconnect(shCtx); derr != nil {
			r.logger.Warn("client teardown after failed connect", "identity", identity, "error", derr)
		}
		return nil, fmt.Errorf("%w: connect: %v", ErrClientUnavailable, err)
	}

	h.cancel = cancel
	r.mu.Lock()
	h.sess = sess
	r.mu.Unlock()

	r.logger.Info("session created", "identity", identity)
	return sess, nil
}

// Get returns the existing session for the identity, without constructing.
// It only touches the map lock, so it never waits behind an in-flight
// create or destroy.
func (r *Registry) Get(identity string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[identity]
	if !ok || h.gone || h.sess == nil {
		return nil, ErrNotFound
	}
	return h.sess, nil
}

// Destroy shuts the client down, removes the session from the mapping, and
// deletes the identity's storage subtree. A failed client shutdown is logged
// but never keeps the identity from being recreated; a failed storage
// removal is reported as ErrResourceCleanup, which callers treat as a
// warning. Destroying an identity with no session is a no-op.
func (r *Registry) Destroy(ctx context.Context, identity string) error {
	r.mu.Lock()
	h, ok := r.handles[identity]
	r.mu.Unlock()
	if !ok {
		return nil
	}

	h.op.Lock()
	defer h.op.Unlock()

	r.mu.Lock()
	sess, gone := h.sess, h.gone
	r.mu.Unlock()
	if gone || sess == nil {
		return nil
	}

	h.cancel()

	// Await client shutdown before touching the storage dir so a half-closed
	// client cannot write into a tree being deleted.
	shCtx, cancel := context.WithTimeout(ctx, r.clientShutdown)
	defer cancel()
	if err := sess.client.Disconnect(shCtx); err != nil {
		r.logger.Warn("client shutdown failed", "identity", identity, "error", err)
	}

	var cleanupErr error
	if err := os.RemoveAll(sess.storageDir); err != nil {
		r.logger.Warn("storage removal failed", "identity", identity, "dir", sess.storageDir, "error", err)
		cleanupErr = fmt.Errorf("%w: remove %s: %v", ErrResourceCleanup, sess.storageDir, err)
	}

	r.mu.Lock()
	h.gone = true
	if r.handles[identity] == h {
		delete(r.handles, identity)
	}
	r.mu.Unlock()

	r.logger.Info("session destroyed", "identity", identity)
	return cleanupErr
}

// Close disconnects every live client without purging storage, so sessions
// resume after a restart. Used on process shutdown.
func (r *Registry) Close(ctx context.Context) {
	r.mu.Lock()
	handles := make(map[string]*handle, len(r.handles))
	for id, h := range r.handles {
		handles[id] = h
	}
	r.handles = make(map[string]*handle)
	r.mu.Unlock()

	for identity, h := range handles {
		h.op.Lock()
		r.mu.Lock()
		sess, gone := h.sess, h.gone
		h.gone = true
		r.mu.Unlock()
		if !gone && sess != nil {
			h.cancel()
			if err := sess.client.Disconnect(ctx); err != nil {
				r.logger.Warn("client shutdown failed", "identity", identity, "error", err)
			}
		}
		h.op.Unlock()
	}
}

// RequestPairing ensures a session exists and waits a bounded interval for
// its first pairing code, returning the current status either way. The
// frontend keeps polling Status afterwards; a code that never gets scanned
// leaves the session pairing until destroyed or superseded.
func (r *Registry) RequestPairing(ctx context.Context, identity string) (Status, error) {
	sess, err := r.GetOrCreate(ctx, identity)
	if err != nil {
		return Status{}, err
	}

	deadline := time.Now().Add(r.pairWait)
	for {
		st := sess.Snapshot()
		if st.HasCode || st.PairError != "" || st.State == StateAuthenticated || st.State == StateReady {
			return st, nil
		}
		if time.Now().After(deadline) {
			return st, nil
		}
		select {
		case <-ctx.Done():
			return st, nil
		case <-time.After(pairPollInterval):
		}
	}
}

// Status returns the current status for the identity's session.
func (r *Registry) Status(identity string) (Status, error) {
	sess, err := r.Get(identity)
	if err != nil {
		return Status{}, err
	}
	return sess.Snapshot(), nil
}

// InlineImage returns the encoded pairing image for the identity.
func (r *Registry) InlineImage(identity string) ([]byte, error) {
	sess, err := r.Get(identity)
	if err != nil {
		return nil, err
	}
	return sess.InlineImage()
}

// ImagePath returns the on-disk pairing image path for the identity.
func (r *Registry) ImagePath(identity string) (string, error) {
	sess, err := r.Get(identity)
	if err != nil {
		return "", err
	}
	return sess.ImagePath()
}

// Send dispatches a message through the identity's client. The session must
// be ready.
func (r *Registry) Send(ctx context.Context, identity, to, body string) error {
	sess, err := r.Get(identity)
	if err != nil {
		return err
	}

	st := sess.Snapshot()
	if st.State != StateReady {
		return fmt.Errorf("%w: session is %s", ErrSendFailed, st.State)
	}
	if err := sess.client.SendMessage(ctx, to, body); err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return nil
}

func (r *Registry) pump(ctx context.Context, sess *Session) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sess.client.Events():
			if !ok {
				return
			}
			state := sess.apply(ev, r.logger)
			r.logger.Info("session event", "identity", sess.identity, "event", string(ev.Kind), "state", string(state))
		}
	}
}

// validIdentity rejects identities that cannot double as a directory name.
// The auth middleware only ever passes validated account IDs; this guards
// the registry when it is embedded elsewhere.
func validIdentity(identity string) error {
	if identity == "" || strings.ContainsAny(identity, `/\`) || identity == "." || identity == ".." {
		return fmt.Errorf("%w: invalid identity %q", ErrNotFound, identity)
	}
	return nil
}
