package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/giftcard-platform/internal/domain"
)

const (
	fieldPasswordHash = "password_hash"
	fieldRole         = "role"
	fieldToken        = "token"
	fieldCreatedAt    = "created_at"
	fieldUpdatedAt    = "updated_at"
)

// updateTokenScript keeps the existence check and the write in one atomic step.
// An empty token argument clears the field.
var updateTokenScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
if ARGV[1] == '' then
  redis.call('HDEL', KEYS[1], 'token')
else
  redis.call('HSET', KEYS[1], 'token', ARGV[1])
end
redis.call('HSET', KEYS[1], 'updated_at', ARGV[2])
return 1
`)

type redisAccountRepository struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisAccountRepository stores each account as a hash at <prefix>:account:<id>.
func NewRedisAccountRepository(client *redis.Client, prefix string) AccountRepository {
	return &redisAccountRepository{client: client, prefix: prefix, now: time.Now}
}

func (r *redisAccountRepository) key(id string) string {
	return r.prefix + ":account:" + id
}

func (r *redisAccountRepository) Get(ctx context.Context, id string) (*domain.Account, error) {
	fields, err := r.client.HGetAll(ctx, r.key(id)).Result()
	if err != nil {
		return nil, storeError(err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	account := &domain.Account{
		ID:           id,
		PasswordHash: fields[fieldPasswordHash],
		Role:         domain.Role(fields[fieldRole]),
		CreatedAt:    parseUnixNano(fields[fieldCreatedAt]),
		UpdatedAt:    parseUnixNano(fields[fieldUpdatedAt]),
	}
	if token, ok := fields[fieldToken]; ok && token != "" {
		account.CurrentToken = &token
	}
	return account, nil
}

func (r *redisAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	now := r.now()
	values := map[string]any{
		fieldPasswordHash: account.PasswordHash,
		fieldRole:         string(account.Role),
		fieldCreatedAt:    strconv.FormatInt(now.UnixNano(), 10),
		fieldUpdatedAt:    strconv.FormatInt(now.UnixNano(), 10),
	}
	if account.HasSession() {
		values[fieldToken] = *account.CurrentToken
	}
	key := r.key(account.ID)
	if _, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, values)
		return nil
	}); err != nil {
		return storeError(err)
	}
	account.CreatedAt = now
	account.UpdatedAt = now
	return nil
}

func (r *redisAccountRepository) UpdateToken(ctx context.Context, id string, token *string) error {
	value := ""
	if token != nil {
		value = *token
	}
	updated, err := updateTokenScript.Run(ctx, r.client,
		[]string{r.key(id)},
		value, strconv.FormatInt(r.now().UnixNano(), 10),
	).Int()
	if err != nil {
		return storeError(err)
	}
	if updated == 0 {
		return ErrNotFound
	}
	return nil
}

func parseUnixNano(raw string) time.Time {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, n)
}
