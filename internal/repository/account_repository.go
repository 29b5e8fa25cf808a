package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/giftcard-platform/internal/domain"
)

// ErrNotFound signals that no record exists for the requested key.
var ErrNotFound = errors.New("record not found")

// AccountRepository is the credential store: records keyed by account id.
// Implementations provide atomic per-key reads and writes; callers do no locking.
type AccountRepository interface {
	// Get returns ErrNotFound when the account is absent.
	Get(ctx context.Context, id string) (*domain.Account, error)
	// Create writes the record, replacing any existing one with the same id.
	Create(ctx context.Context, account *domain.Account) error
	// UpdateToken sets or, for a nil token, clears the current session token.
	// It returns ErrNotFound when the account is absent.
	UpdateToken(ctx context.Context, id string, token *string) error
}

// storeError wraps a backend failure so callers see ErrStoreUnavailable.
func storeError(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
}

type accountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository returns a Postgres-backed implementation.
func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{pool: pool}
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	const query = `
        INSERT INTO accounts (account_id, password_hash, role, current_token)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (account_id) DO UPDATE
        SET password_hash=EXCLUDED.password_hash, role=EXCLUDED.role,
            current_token=EXCLUDED.current_token, created_at=NOW(), updated_at=NOW()
        RETURNING created_at, updated_at`

	if err := r.pool.QueryRow(ctx, query,
		account.ID,
		account.PasswordHash,
		account.Role,
		account.CurrentToken,
	).Scan(&account.CreatedAt, &account.UpdatedAt); err != nil {
		return storeError(err)
	}
	return nil
}

func (r *accountRepository) UpdateToken(ctx context.Context, id string, token *string) error {
	const query = `
        UPDATE accounts SET current_token=$1, updated_at=NOW()
        WHERE account_id=$2`

	cmd, err := r.pool.Exec(ctx, query, token, id)
	if err != nil {
		return storeError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *accountRepository) Get(ctx context.Context, id string) (*domain.Account, error) {
	const query = `
        SELECT account_id, password_hash, role, current_token, created_at, updated_at
        FROM accounts WHERE account_id=$1`

	var account domain.Account
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&account.ID,
		&account.PasswordHash,
		&account.Role,
		&account.CurrentToken,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, storeError(err)
	}
	return &account, nil
}
