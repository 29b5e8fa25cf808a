package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dgraph-io/badger/v3"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/giftcard-platform/internal/domain"
)

type accountBackend struct {
	name  string
	setup func(t *testing.T) AccountRepository
}

// accountBackends lists every store that must honor the AccountRepository contract.
// Postgres is exercised only against a real database and is not listed here.
func accountBackends() []accountBackend {
	return []accountBackend{
		{
			name: "memory",
			setup: func(t *testing.T) AccountRepository {
				return NewMemoryAccountRepository()
			},
		},
		{
			name: "redis",
			setup: func(t *testing.T) AccountRepository {
				t.Helper()
				mr, err := miniredis.Run()
				if err != nil {
					t.Fatalf("miniredis: %v", err)
				}
				client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				t.Cleanup(func() { _ = client.Close(); mr.Close() })
				return NewRedisAccountRepository(client, "test")
			},
		},
		{
			name: "badger",
			setup: func(t *testing.T) AccountRepository {
				t.Helper()
				db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLogger(nil))
				if err != nil {
					t.Fatalf("badger: %v", err)
				}
				t.Cleanup(func() { _ = db.Close() })
				return NewBadgerAccountRepository(db)
			},
		},
	}
}

func strPtr(s string) *string { return &s }

func TestAccountRepositoryContract(t *testing.T) {
	for _, backend := range accountBackends() {
		t.Run(backend.name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("get missing", func(t *testing.T) {
				repo := backend.setup(t)
				if _, err := repo.Get(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
					t.Fatalf("err = %v, want ErrNotFound", err)
				}
			})

			t.Run("create and get", func(t *testing.T) {
				repo := backend.setup(t)
				account := &domain.Account{ID: "alice", PasswordHash: "h1", Role: domain.RoleMerchant, CurrentToken: strPtr("tok")}
				if err := repo.Create(ctx, account); err != nil {
					t.Fatalf("create: %v", err)
				}
				if account.CreatedAt.IsZero() {
					t.Fatal("created_at not set")
				}
				got, err := repo.Get(ctx, "alice")
				if err != nil {
					t.Fatalf("get: %v", err)
				}
				if got.PasswordHash != "h1" || got.Role != domain.RoleMerchant {
					t.Fatalf("got %+v", got)
				}
				if !got.HasSession() || *got.CurrentToken != "tok" {
					t.Fatalf("token = %v", got.CurrentToken)
				}
			})

			t.Run("create overwrites", func(t *testing.T) {
				repo := backend.setup(t)
				_ = repo.Create(ctx, &domain.Account{ID: "bob", PasswordHash: "old", Role: domain.RoleConsumer, CurrentToken: strPtr("tok")})
				if err := repo.Create(ctx, &domain.Account{ID: "bob", PasswordHash: "new", Role: domain.RoleMerchant}); err != nil {
					t.Fatalf("create: %v", err)
				}
				got, err := repo.Get(ctx, "bob")
				if err != nil {
					t.Fatalf("get: %v", err)
				}
				if got.PasswordHash != "new" || got.Role != domain.RoleMerchant {
					t.Fatalf("got %+v", got)
				}
				if got.HasSession() {
					t.Fatal("stale token survived overwrite")
				}
			})

			t.Run("update token", func(t *testing.T) {
				repo := backend.setup(t)
				_ = repo.Create(ctx, &domain.Account{ID: "carol", PasswordHash: "h", Role: domain.RoleConsumer})
				if err := repo.UpdateToken(ctx, "carol", strPtr("t2")); err != nil {
					t.Fatalf("update: %v", err)
				}
				got, _ := repo.Get(ctx, "carol")
				if !got.HasSession() || *got.CurrentToken != "t2" {
					t.Fatalf("token = %v", got.CurrentToken)
				}
				if err := repo.UpdateToken(ctx, "carol", nil); err != nil {
					t.Fatalf("clear: %v", err)
				}
				got, _ = repo.Get(ctx, "carol")
				if got.HasSession() {
					t.Fatal("token not cleared")
				}
				if got.PasswordHash != "h" {
					t.Fatal("clearing the token touched other fields")
				}
			})

			t.Run("update missing", func(t *testing.T) {
				repo := backend.setup(t)
				if err := repo.UpdateToken(ctx, "ghost", strPtr("t")); !errors.Is(err, ErrNotFound) {
					t.Fatalf("err = %v, want ErrNotFound", err)
				}
				if _, err := repo.Get(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
					t.Fatal("update created a record")
				}
			})
		})
	}
}

func TestRedisAccountRepositoryUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	repo := NewRedisAccountRepository(client, "test")
	mr.Close()

	if _, err := repo.Get(context.Background(), "alice"); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}
}
