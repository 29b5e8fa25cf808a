package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/giftcard-platform/internal/domain"
)

func TestPasswordHashers(t *testing.T) {
	argon := DefaultArgon2Hasher()
	argon.Memory = 8 * 1024
	hashers := map[string]PasswordHasher{
		"bcrypt": BcryptHasher{Cost: bcrypt.MinCost},
		"argon2": argon,
	}
	for name, h := range hashers {
		t.Run(name, func(t *testing.T) {
			hashed, err := h.Hash("secret")
			if err != nil {
				t.Fatalf("hash: %v", err)
			}
			if hashed == "secret" {
				t.Fatal("hash must not equal the password")
			}
			if err := h.Compare(hashed, "secret"); err != nil {
				t.Fatalf("compare: %v", err)
			}
			if err := h.Compare(hashed, "wrong"); !errors.Is(err, ErrPasswordMismatch) {
				t.Fatalf("expected ErrPasswordMismatch, got %v", err)
			}
		})
	}
}

func TestBcryptRejectsLongPasswords(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}
	if _, err := h.Hash(strings.Repeat("x", MaxBcryptPasswordBytes)); err != nil {
		t.Fatalf("72 bytes: %v", err)
	}
	_, err := h.Hash(strings.Repeat("x", MaxBcryptPasswordBytes+1))
	if !errors.Is(err, ErrPasswordTooLong) || !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("err = %v, want invalid request", err)
	}

	hashed, _ := h.Hash("secret")
	if err := h.Compare(hashed, strings.Repeat("x", 100)); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("compare long password: %v", err)
	}
}

func TestComparePasswordAcceptsEitherScheme(t *testing.T) {
	bcryptHash, _ := BcryptHasher{Cost: bcrypt.MinCost}.Hash("secret")
	argon := DefaultArgon2Hasher()
	argon.Memory = 8 * 1024
	argonHash, _ := argon.Hash("secret")
	if !strings.HasPrefix(argonHash, "$argon2id$") {
		t.Fatalf("unexpected argon2 encoding %q", argonHash)
	}

	// an argon2 hasher must still verify accounts created under bcrypt
	if err := argon.Compare(bcryptHash, "secret"); err != nil {
		t.Fatalf("bcrypt hash via argon hasher: %v", err)
	}
	if err := (BcryptHasher{}).Compare(argonHash, "secret"); err != nil {
		t.Fatalf("argon hash via bcrypt hasher: %v", err)
	}
}

func TestNewPasswordHasher(t *testing.T) {
	if _, err := NewPasswordHasher("bcrypt", 4); err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	if _, err := NewPasswordHasher("argon2id", 0); err != nil {
		t.Fatalf("argon2id: %v", err)
	}
	if _, err := NewPasswordHasher("md5", 0); err == nil {
		t.Fatal("expected error for unknown hasher")
	}
}
