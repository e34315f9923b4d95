package account

import (
	"context"
	"errors"
	"testing"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	acc, err := svc.Register(ctx, Credentials{Email: "alice@example.com", Password: "hunter22"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if acc.ID == "" {
		t.Fatalf("expected generated account id")
	}

	authed, err := svc.Authenticate(ctx, Credentials{Email: "Alice@Example.com", Password: "hunter22"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if authed.ID != acc.ID {
		t.Fatalf("expected same account, got %s vs %s", authed.ID, acc.ID)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	if _, err := svc.Register(ctx, Credentials{Email: "dup@example.com", Password: "hunter22"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, Credentials{Email: "dup@example.com", Password: "other-pass"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestAuthenticateWrongPassword(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	if _, err := svc.Register(ctx, Credentials{Email: "bob@example.com", Password: "hunter22"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Authenticate(ctx, Credentials{Email: "bob@example.com", Password: "wrong"}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, Credentials{Email: "nobody@example.com", Password: "wrong"}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("unknown email must look like bad credentials, got %v", err)
	}
}

func TestRegisterRejectsWeakInput(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	if _, err := svc.Register(ctx, Credentials{Email: "not-an-email", Password: "hunter22"}); err == nil {
		t.Fatalf("expected invalid email to be rejected")
	}
	if _, err := svc.Register(ctx, Credentials{Email: "ok@example.com", Password: "shrt"}); err == nil {
		t.Fatalf("expected short password to be rejected")
	}
}
