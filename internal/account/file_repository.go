package account

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// fileRepository stores accounts in a single JSON file. It is the default
// backend: the gateway's account population is small (one per paired phone)
// and the file doubles as a human-inspectable record.
type fileRepository struct {
	mu   sync.RWMutex
	path string
	byID map[string]Account
}

type accountRecord struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	SecretHash []byte    `json:"secret_hash"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewFileRepository loads (or initializes) the account file at path.
func NewFileRepository(path string) (Repository, error) {
	repo := &fileRepository{path: path, byID: make(map[string]Account)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("create account dir: %w", err)
		}
		return repo, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read account file: %w", err)
	}

	var records []accountRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode account file %s: %w", path, err)
	}
	for _, rec := range records {
		repo.byID[rec.ID] = Account(rec)
	}
	return repo, nil
}

func (r *fileRepository) Create(_ context.Context, acc Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Email == acc.Email {
			return ErrConflict
		}
	}
	r.byID[acc.ID] = acc
	if err := r.flushLocked(); err != nil {
		delete(r.byID, acc.ID)
		return err
	}
	return nil
}

func (r *fileRepository) FindByEmail(_ context.Context, email string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, acc := range r.byID {
		if acc.Email == email {
			return acc, nil
		}
	}
	return Account{}, ErrNotFound
}

func (r *fileRepository) FindByID(_ context.Context, id string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.byID[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return acc, nil
}

// flushLocked rewrites the JSON file; callers hold the write lock. The write
// goes through a temp file so a crash never leaves a truncated account file.
func (r *fileRepository) flushLocked() error {
	records := make([]accountRecord, 0, len(r.byID))
	for _, acc := range r.byID {
		records = append(records, accountRecord(acc))
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode accounts: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write account file: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace account file: %w", err)
	}
	return nil
}
