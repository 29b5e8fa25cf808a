package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/giftcard-platform/internal/domain"
)

// ErrStale is returned when a guarded update finds the record changed.
var ErrStale = errors.New("record changed concurrently")

// CardPrecondition is the state a card must still be in for an update to apply.
type CardPrecondition struct {
	Status  domain.GiftCardStatus
	OwnerID *string
}

// GiftCardRepository persists gift cards.
type GiftCardRepository interface {
	Create(ctx context.Context, card *domain.GiftCard) error
	GetByID(ctx context.Context, id string) (*domain.GiftCard, error)
	// Update writes owner and status when the stored card still matches expect,
	// and returns ErrStale otherwise.
	Update(ctx context.Context, card *domain.GiftCard, expect CardPrecondition) error
	ListByMerchant(ctx context.Context, merchantID string) ([]domain.GiftCard, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.GiftCard, error)
}

type giftCardRepository struct {
	pool *pgxpool.Pool
}

// NewGiftCardRepository returns a Postgres-backed implementation.
func NewGiftCardRepository(pool *pgxpool.Pool) GiftCardRepository {
	return &giftCardRepository{pool: pool}
}

const giftCardColumns = `id, merchant_id, owner_id, amount, currency, status, created_at, updated_at`

func (r *giftCardRepository) Create(ctx context.Context, card *domain.GiftCard) error {
	const query = `
        INSERT INTO gift_cards (id, merchant_id, owner_id, amount, currency, status)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING created_at, updated_at`

	if err := r.pool.QueryRow(ctx, query,
		card.ID,
		card.MerchantID,
		card.OwnerID,
		card.Amount,
		card.Currency,
		card.Status,
	).Scan(&card.CreatedAt, &card.UpdatedAt); err != nil {
		return storeError(err)
	}
	return nil
}

func (r *giftCardRepository) GetByID(ctx context.Context, id string) (*domain.GiftCard, error) {
	query := `SELECT ` + giftCardColumns + ` FROM gift_cards WHERE id=$1`
	card, err := scanGiftCard(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, storeError(err)
	}
	return card, nil
}

func (r *giftCardRepository) Update(ctx context.Context, card *domain.GiftCard, expect CardPrecondition) error {
	const query = `
        UPDATE gift_cards SET owner_id=$1, status=$2, updated_at=NOW()
        WHERE id=$3 AND status=$4 AND owner_id IS NOT DISTINCT FROM $5
        RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		card.OwnerID,
		card.Status,
		card.ID,
		expect.Status,
		expect.OwnerID,
	).Scan(&card.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrStale
		}
		return storeError(err)
	}
	return nil
}

func (r *giftCardRepository) ListByMerchant(ctx context.Context, merchantID string) ([]domain.GiftCard, error) {
	query := `SELECT ` + giftCardColumns + ` FROM gift_cards WHERE merchant_id=$1 ORDER BY created_at DESC`
	return r.list(ctx, query, merchantID)
}

func (r *giftCardRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.GiftCard, error) {
	query := `SELECT ` + giftCardColumns + ` FROM gift_cards WHERE owner_id=$1 ORDER BY created_at DESC`
	return r.list(ctx, query, ownerID)
}

func (r *giftCardRepository) list(ctx context.Context, query string, arg string) ([]domain.GiftCard, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, storeError(err)
	}
	defer rows.Close()

	var cards []domain.GiftCard
	for rows.Next() {
		card, err := scanGiftCard(rows)
		if err != nil {
			return nil, storeError(err)
		}
		cards = append(cards, *card)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err)
	}
	return cards, nil
}

func scanGiftCard(row pgx.Row) (*domain.GiftCard, error) {
	var card domain.GiftCard
	if err := row.Scan(
		&card.ID,
		&card.MerchantID,
		&card.OwnerID,
		&card.Amount,
		&card.Currency,
		&card.Status,
		&card.CreatedAt,
		&card.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &card, nil
}
