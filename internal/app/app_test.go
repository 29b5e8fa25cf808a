package app

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spec-kit/giftcard-platform/internal/config"
	"github.com/spec-kit/giftcard-platform/internal/domain"
)

func TestAuthServiceMountsOnMemoryStore(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("AUTH_BCRYPT_COST", "4")

	rt, err := New(config.ServiceAuth)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer rt.Close()

	ctx := context.Background()
	if err := rt.OpenStore(ctx); err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := rt.mountAuth(ctx); err != nil {
		t.Fatalf("mount: %v", err)
	}

	req := httptest.NewRequest("POST", "/auth/register", strings.NewReader(`{"username":"alice","password":"secret","role":"CONSUMER"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := rt.App.Test(req, -1)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestBadgerStoreBacksAccounts(t *testing.T) {
	t.Setenv("STORE_DRIVER", "badger")
	t.Setenv("BADGER_DIR", t.TempDir())
	t.Setenv("LOG_LEVEL", "error")

	rt, err := New(config.ServiceAuth)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer rt.Close()

	ctx := context.Background()
	if err := rt.OpenStore(ctx); err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := rt.health["badger"].Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	repo := rt.AccountRepository()
	if err := repo.Create(ctx, &domain.Account{ID: "alice", PasswordHash: "h", Role: domain.RoleConsumer}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.Get(ctx, "alice"); err != nil {
		t.Fatalf("get: %v", err)
	}

	if _, err := rt.GiftCardRepository(); err == nil {
		t.Fatal("gift cards should require postgres or memory")
	}
}

func TestPostgresStoreRequiresDSN(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("LOG_LEVEL", "error")

	rt, err := New(config.ServiceLog)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer rt.Close()
	if err := rt.OpenStore(context.Background()); err == nil {
		t.Fatal("expected an error without POSTGRES_DSN")
	}
}
