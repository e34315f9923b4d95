package account

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestFileRepositoryPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.json")
	ctx := context.Background()

	repo, err := NewFileRepository(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	acc := Account{ID: "id-1", Email: "alice@example.com", SecretHash: []byte("hash"), CreatedAt: time.Now().UTC()}
	if err := repo.Create(ctx, acc); err != nil {
		t.Fatalf("create: %v", err)
	}

	reopened, err := NewFileRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reopened.FindByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("find after reopen: %v", err)
	}
	if got.ID != acc.ID || string(got.SecretHash) != "hash" {
		t.Fatalf("account lost in roundtrip: %+v", got)
	}
}

func TestFileRepositoryDuplicateEmail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.json")
	ctx := context.Background()

	repo, err := NewFileRepository(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := repo.Create(ctx, Account{ID: "id-1", Email: "a@example.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(ctx, Account{ID: "id-2", Email: "a@example.com"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestFileRepositoryUnknownLookups(t *testing.T) {
	repo, err := NewFileRepository(filepath.Join(t.TempDir(), "accounts.json"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()

	if _, err := repo.FindByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.FindByEmail(ctx, "missing@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
