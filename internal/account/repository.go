package account

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists accounts.
type Repository interface {
	Create(ctx context.Context, acc Account) error
	FindByEmail(ctx context.Context, email string) (Account, error)
	FindByID(ctx context.Context, id string) (Account, error)
}

// PostgresRepository implements Repository using PostgreSQL. It is the
// production backend when DATABASE_URL is configured; otherwise the JSON file
// repository is used.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed account repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new account.
func (r *PostgresRepository) Create(ctx context.Context, acc Account) error {
	accID, err := uuid.Parse(acc.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO accounts (id, email, secret_hash, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (email) DO NOTHING`, accID, acc.Email, acc.SecretHash, acc.CreatedAt.UTC())
	if err != nil {
		return err
	}
	// ON CONFLICT swallows the duplicate; re-read to detect it.
	existing, err := r.FindByEmail(ctx, acc.Email)
	if err != nil {
		return err
	}
	if existing.ID != acc.ID {
		return ErrConflict
	}
	return nil
}

// FindByEmail fetches an account by email address.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT id, email, secret_hash, created_at FROM accounts WHERE email = $1`, email)
	return scanAccount(row)
}

// FindByID fetches an account by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Account, error) {
	accID, err := uuid.Parse(id)
	if err != nil {
		return Account{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT id, email, secret_hash, created_at FROM accounts WHERE id = $1`, accID)
	return scanAccount(row)
}

func scanAccount(row pgx.Row) (Account, error) {
	var (
		id        uuid.UUID
		createdAt time.Time
		acc       Account
	)
	if err := row.Scan(&id, &acc.Email, &acc.SecretHash, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	acc.ID = id.String()
	acc.CreatedAt = createdAt.UTC()
	return acc, nil
}
