package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/oklog/ulid/v2"

	"github.com/spec-kit/giftcard-platform/internal/domain"
	"github.com/spec-kit/giftcard-platform/internal/repository"
)

func TestLogCaptureAndList(t *testing.T) {
	ctx := context.Background()
	svc := NewLogService(repository.NewMemoryLogRepository())

	entry, err := svc.Capture(ctx, LogInput{Service: "auth-service", Message: "session_started", Meta: map[string]any{"account_id": "alice"}})
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if entry.Level != domain.LogLevelInfo {
		t.Fatalf("level = %q, want info", entry.Level)
	}
	if _, err := ulid.Parse(entry.ID); err != nil {
		t.Fatalf("id %q is not a ulid: %v", entry.ID, err)
	}
	_, _ = svc.Capture(ctx, LogInput{Service: "merchant-service", Level: "WARN", Message: "x"})

	all, err := svc.List(ctx, "", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].Service != "merchant-service" {
		t.Fatalf("entries = %+v", all)
	}
	auth, _ := svc.List(ctx, "auth-service", 10)
	if len(auth) != 1 {
		t.Fatalf("auth entries = %d", len(auth))
	}
}

func TestLogListLimits(t *testing.T) {
	ctx := context.Background()
	svc := NewLogService(repository.NewMemoryLogRepository())
	for i := 0; i < MaxLogLimit+20; i++ {
		_, _ = svc.Capture(ctx, LogInput{Service: "s", Message: fmt.Sprintf("m%d", i)})
	}

	def, _ := svc.List(ctx, "", 0)
	if len(def) != DefaultLogLimit {
		t.Fatalf("default = %d", len(def))
	}
	capped, _ := svc.List(ctx, "", 10000)
	if len(capped) != MaxLogLimit {
		t.Fatalf("capped = %d", len(capped))
	}
	if _, err := svc.List(ctx, "", -1); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("negative: err = %v", err)
	}
	empty, _ := svc.List(ctx, "unknown", 5)
	if empty == nil || len(empty) != 0 {
		t.Fatalf("empty = %#v", empty)
	}
}

func TestLogCaptureValidation(t *testing.T) {
	svc := NewLogService(repository.NewMemoryLogRepository())
	for _, in := range []LogInput{
		{Message: "no service"},
		{Service: "s"},
		{Service: "s", Message: "m", Level: "fatal"},
	} {
		if _, err := svc.Capture(context.Background(), in); !errors.Is(err, domain.ErrInvalidRequest) {
			t.Fatalf("%+v: err = %v", in, err)
		}
	}
}
