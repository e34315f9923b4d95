package session

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/wabridge/wabridge/internal/logging"
	"github.com/wabridge/wabridge/internal/waclient"
)

func newTestRegistry(t *testing.T) (*Registry, *waclient.SimDialer) {
	t.Helper()
	dialer := waclient.NewSimDialer()
	reg := NewRegistry(Config{
		Root:           t.TempDir(),
		Dialer:         dialer,
		Logger:         logging.Discard(),
		PairWait:       2 * time.Second,
		ClientShutdown: time.Second,
	})
	return reg, dialer
}

func waitForState(t *testing.T, reg *Registry, identity string, want State) Status {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		st, err := reg.Status(identity)
		if err == nil && st.State == want {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatalf("session %s never reached %s (last: %+v, err: %v)", identity, want, st, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPairingLifecycle(t *testing.T) {
	reg, dialer := newTestRegistry(t)
	ctx := context.Background()

	st, err := reg.RequestPairing(ctx, "u1")
	if err != nil {
		t.Fatalf("request pairing: %v", err)
	}
	if st.State != StatePairing {
		t.Fatalf("expected pairing, got %s", st.State)
	}
	if !st.HasCode {
		t.Fatalf("expected a pairing code to be available")
	}

	png, err := reg.InlineImage("u1")
	if err != nil {
		t.Fatalf("inline image: %v", err)
	}
	if len(png) == 0 {
		t.Fatalf("expected inline image bytes")
	}

	path, err := reg.ImagePath("u1")
	if err != nil {
		t.Fatalf("image path: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("pairing image not on disk: %v", err)
	}

	if err := dialer.Client("u1").CompletePairing(waclient.Profile{DisplayName: "Alice", Phone: "+491700000001", Platform: "android"}); err != nil {
		t.Fatalf("complete pairing: %v", err)
	}

	st = waitForState(t, reg, "u1", StateReady)
	if !st.HasProfile || st.Profile.DisplayName != "Alice" {
		t.Fatalf("expected profile snapshot after ready, got %+v", st)
	}
	if st.HasCode {
		t.Fatalf("pairing artifact should be cleared once ready")
	}
	if _, err := reg.InlineImage("u1"); !errors.Is(err, ErrNoArtifact) {
		t.Fatalf("expected ErrNoArtifact after ready, got %v", err)
	}

	client := dialer.Client("u1")
	if err := reg.Destroy(ctx, "u1"); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if !client.Closed() {
		t.Fatalf("client should be disconnected before storage removal")
	}
	if _, err := reg.Status("u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after destroy, got %v", err)
	}
	if _, err := reg.InlineImage("u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for image after destroy, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("storage subtree should be purged, stat err: %v", err)
	}
}

func TestConcurrentGetOrCreateConstructsOneClient(t *testing.T) {
	reg, dialer := newTestRegistry(t)
	ctx := context.Background()

	const callers = 16
	sessions := make([]*Session, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess, err := reg.GetOrCreate(ctx, "u2")
			if err != nil {
				t.Errorf("getOrCreate %d: %v", i, err)
				return
			}
			sessions[i] = sess
		}(i)
	}
	wg.Wait()

	if dials := dialer.Dials(); dials != 1 {
		t.Fatalf("expected exactly one client construction, got %d", dials)
	}
	for i := 1; i < callers; i++ {
		if sessions[i] != sessions[0] {
			t.Fatalf("caller %d received a different session", i)
		}
	}
}

func TestDestroyThenRecreateBuildsFreshClient(t *testing.T) {
	reg, dialer := newTestRegistry(t)
	ctx := context.Background()

	first, err := reg.GetOrCreate(ctx, "u3")
	if err != nil {
		t.Fatalf("getOrCreate: %v", err)
	}
	if err := reg.Destroy(ctx, "u3"); err != nil {
		t.Fatalf("destroy: %v", err)
	}

	second, err := reg.GetOrCreate(ctx, "u3")
	if err != nil {
		t.Fatalf("getOrCreate after destroy: %v", err)
	}
	if second == first {
		t.Fatalf("expected a fresh session after destroy")
	}
	if dials := dialer.Dials(); dials != 2 {
		t.Fatalf("expected a second client construction, got %d dials", dials)
	}

	st := second.Snapshot()
	if st.State != StateUninitialized && st.State != StatePairing {
		t.Fatalf("fresh session in unexpected state %s", st.State)
	}
}

func TestDestroyUnknownIdentityIsNoop(t *testing.T) {
	reg, _ := newTestRegistry(t)
	if err := reg.Destroy(context.Background(), "never-seen"); err != nil {
		t.Fatalf("destroy of unknown identity should succeed, got %v", err)
	}
}

func TestDialFailureIsClientUnavailableAndRetryable(t *testing.T) {
	reg, dialer := newTestRegistry(t)
	ctx := context.Background()

	dialer.SetDialError(errors.New("socket exhaustion"))
	if _, err := reg.GetOrCreate(ctx, "u4"); !errors.Is(err, ErrClientUnavailable) {
		t.Fatalf("expected ErrClientUnavailable, got %v", err)
	}
	if _, err := reg.Get("u4"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("failed construction must not leave a session behind, got %v", err)
	}

	dialer.SetDialError(nil)
	if _, err := reg.GetOrCreate(ctx, "u4"); err != nil {
		t.Fatalf("retry after dial failure: %v", err)
	}
}

func TestResumedCredentialsSkipPairing(t *testing.T) {
	reg, dialer := newTestRegistry(t)
	ctx := context.Background()

	if _, err := reg.RequestPairing(ctx, "u5"); err != nil {
		t.Fatalf("request pairing: %v", err)
	}
	if err := dialer.Client("u5").CompletePairing(waclient.Profile{DisplayName: "Bob", Phone: "+491700000002", Platform: "web"}); err != nil {
		t.Fatalf("complete pairing: %v", err)
	}
	waitForState(t, reg, "u5", StateReady)

	// Simulate a process restart: drop the in-memory session but keep the
	// storage subtree with the client's persisted credentials.
	reg.Close(ctx)

	if _, err := reg.GetOrCreate(ctx, "u5"); err != nil {
		t.Fatalf("getOrCreate after restart: %v", err)
	}
	st := waitForState(t, reg, "u5", StateReady)
	if !st.HasProfile || st.Profile.DisplayName != "Bob" {
		t.Fatalf("expected restored profile, got %+v", st)
	}
	if st.HasCode {
		t.Fatalf("resumed session must not expose a pairing artifact")
	}
}

func TestDisconnectedEventClearsProfileAndArtifact(t *testing.T) {
	reg, dialer := newTestRegistry(t)
	ctx := context.Background()

	if _, err := reg.RequestPairing(ctx, "u6"); err != nil {
		t.Fatalf("request pairing: %v", err)
	}
	if err := dialer.Client("u6").CompletePairing(waclient.Profile{DisplayName: "Cara", Phone: "+491700000003", Platform: "ios"}); err != nil {
		t.Fatalf("complete pairing: %v", err)
	}
	waitForState(t, reg, "u6", StateReady)

	dialer.Client("u6").Drop("stream error")
	st := waitForState(t, reg, "u6", StateDisconnected)
	if st.HasProfile || st.HasCode {
		t.Fatalf("disconnected session should hold neither profile nor artifact: %+v", st)
	}
}

func TestSendRequiresReadySession(t *testing.T) {
	reg, dialer := newTestRegistry(t)
	ctx := context.Background()

	if err := reg.Send(ctx, "u7", "+491700000004", "hi"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound without a session, got %v", err)
	}

	if _, err := reg.RequestPairing(ctx, "u7"); err != nil {
		t.Fatalf("request pairing: %v", err)
	}
	if err := reg.Send(ctx, "u7", "+491700000004", "hi"); !errors.Is(err, ErrSendFailed) {
		t.Fatalf("expected ErrSendFailed while pairing, got %v", err)
	}

	if err := dialer.Client("u7").CompletePairing(waclient.Profile{DisplayName: "Dan", Phone: "+491700000005", Platform: "web"}); err != nil {
		t.Fatalf("complete pairing: %v", err)
	}
	waitForState(t, reg, "u7", StateReady)

	if err := reg.Send(ctx, "u7", "+491700000004", "hi"); err != nil {
		t.Fatalf("send on ready session: %v", err)
	}
	sent := dialer.Client("u7").Sent()
	if len(sent) != 1 || sent[0].Body != "hi" {
		t.Fatalf("message not delivered to client: %+v", sent)
	}
}
