package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/spec-kit/giftcard-platform/internal/domain"
)

var accountKeyPrefix = []byte("account/")

type badgerAccount struct {
	PasswordHash string      `json:"password_hash"`
	Role         domain.Role `json:"role"`
	Token        *string     `json:"token,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

type badgerAccountRepository struct {
	db  *badger.DB
	now func() time.Time
}

// NewBadgerAccountRepository stores accounts as JSON values in an embedded Badger DB.
func NewBadgerAccountRepository(db *badger.DB) AccountRepository {
	return &badgerAccountRepository{db: db, now: time.Now}
}

func accountKey(id string) []byte {
	return append(append([]byte{}, accountKeyPrefix...), id...)
}

func (r *badgerAccountRepository) Get(_ context.Context, id string) (*domain.Account, error) {
	var rec badgerAccount
	err := r.db.View(func(txn *badger.Txn) error {
		return readAccount(txn, id, &rec)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeError(err)
	}
	return &domain.Account{
		ID:           id,
		PasswordHash: rec.PasswordHash,
		Role:         rec.Role,
		CurrentToken: rec.Token,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}, nil
}

func (r *badgerAccountRepository) Create(_ context.Context, account *domain.Account) error {
	now := r.now().UTC()
	rec := badgerAccount{
		PasswordHash: account.PasswordHash,
		Role:         account.Role,
		Token:        cloneString(account.CurrentToken),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(accountKey(account.ID), data)
	}); err != nil {
		return storeError(err)
	}
	account.CreatedAt = now
	account.UpdatedAt = now
	return nil
}

func (r *badgerAccountRepository) UpdateToken(_ context.Context, id string, token *string) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		var rec badgerAccount
		if err := readAccount(txn, id, &rec); err != nil {
			return err
		}
		rec.Token = cloneString(token)
		rec.UpdatedAt = r.now().UTC()
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return txn.Set(accountKey(id), data)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return storeError(err)
	}
	return nil
}

func readAccount(txn *badger.Txn, id string, rec *badgerAccount) error {
	item, err := txn.Get(accountKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, rec)
	})
}
