package config

import (
	"testing"
	"time"
)

func TestLoadDefaultsPerService(t *testing.T) {
	tests := []struct {
		service Service
		port    string
		name    string
	}{
		{ServiceAuth, "3001", "auth-service"},
		{ServiceMerchant, "3002", "merchant-service"},
		{ServiceConsumer, "3003", "consumer-service"},
		{ServiceLog, "3004", "log-service"},
	}
	for _, tt := range tests {
		t.Run(string(tt.service), func(t *testing.T) {
			cfg, err := Load(tt.service)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if cfg.App.Port != tt.port {
				t.Fatalf("port = %q, want %q", cfg.App.Port, tt.port)
			}
			if cfg.App.Name != tt.name {
				t.Fatalf("name = %q, want %q", cfg.App.Name, tt.name)
			}
			if cfg.Store.Driver != StoreMemory {
				t.Fatalf("driver = %q, want memory", cfg.Store.Driver)
			}
			if cfg.Auth.AccessTokenTTL() != time.Hour {
				t.Fatalf("ttl = %v, want 1h", cfg.Auth.AccessTokenTTL())
			}
			if cfg.Auth.StrictRevocation {
				t.Fatal("strict revocation must default to off")
			}
		})
	}
}

func TestLoadUnknownService(t *testing.T) {
	if _, err := Load(Service("billing")); err == nil {
		t.Fatal("expected error for unknown service")
	}
}

func TestLoadVerifyKeys(t *testing.T) {
	t.Setenv("AUTH_JWT_VERIFY_KEYS", "old:s3cret, older:with:colon")
	cfg, err := Load(ServiceAuth)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := cfg.Auth.VerifyKeys["old"]; got != "s3cret" {
		t.Fatalf("old key = %q", got)
	}
	if got := cfg.Auth.VerifyKeys["older"]; got != "with:colon" {
		t.Fatalf("older key = %q", got)
	}
}

func TestLoadRejectsMalformedVerifyKeys(t *testing.T) {
	t.Setenv("AUTH_JWT_VERIFY_KEYS", "missing-secret")
	if _, err := Load(ServiceAuth); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoadRejectsUnknownStoreDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	if _, err := Load(ServiceAuth); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9999")
	t.Setenv("STORE_DRIVER", "Redis")
	t.Setenv("AUTH_STRICT_REVOCATION", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	cfg, err := Load(ServiceAuth)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.Addr() != "0.0.0.0:9999" {
		t.Fatalf("addr = %q", cfg.App.Addr())
	}
	if cfg.Store.Driver != StoreRedis {
		t.Fatalf("driver = %q", cfg.Store.Driver)
	}
	if !cfg.Auth.StrictRevocation {
		t.Fatal("expected strict revocation")
	}
	if len(cfg.CORS.AllowedOrigins) != 2 {
		t.Fatalf("origins = %v", cfg.CORS.AllowedOrigins)
	}
}
