package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spec-kit/giftcard-platform/internal/auth"
	"github.com/spec-kit/giftcard-platform/internal/config"
	"github.com/spec-kit/giftcard-platform/internal/domain"
	"github.com/spec-kit/giftcard-platform/internal/events"
	"github.com/spec-kit/giftcard-platform/internal/observability"
	"github.com/spec-kit/giftcard-platform/internal/repository"
	apperrors "github.com/spec-kit/giftcard-platform/pkg/util"
)

// SessionService owns the session-token lifecycle: register, login with token
// reuse, logout and verification. It is the only writer of account records.
//
// It takes no locks. Two concurrent logins for the same account may both find
// the stored token unusable and both mint one; the last write wins and both
// tokens stay valid until they expire.
type SessionService struct {
	accounts   repository.AccountRepository
	tokens     *auth.TokenManager
	hasher     auth.PasswordHasher
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	strict     bool
}

// SessionDependencies bundles collaborators for the session service.
type SessionDependencies struct {
	Accounts   repository.AccountRepository
	Tokens     *auth.TokenManager
	Hasher     auth.PasswordHasher
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewSessionService builds the service.
func NewSessionService(cfg config.AuthConfig, deps SessionDependencies) *SessionService {
	hasher := deps.Hasher
	if hasher == nil {
		hasher = auth.BcryptHasher{Cost: cfg.BcryptCost}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		accounts:   deps.Accounts,
		tokens:     deps.Tokens,
		hasher:     hasher,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		strict:     cfg.StrictRevocation,
	}
}

// Register hashes the password, mints a token and writes the account,
// replacing any existing record with the same id.
func (s *SessionService) Register(ctx context.Context, accountID, password string, role domain.Role) (token domain.IssuedToken, err error) {
	defer func() { s.record("register", "issued", err) }()

	if strings.TrimSpace(accountID) == "" || password == "" {
		return domain.IssuedToken{}, fmt.Errorf("%w: username and password are required", domain.ErrInvalidRequest)
	}
	if !role.Valid() {
		return domain.IssuedToken{}, fmt.Errorf("%w: %q", domain.ErrInvalidRole, role)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return domain.IssuedToken{}, fmt.Errorf("hash password: %w", err)
	}
	token, err = s.tokens.Issue(accountID, role)
	if err != nil {
		return domain.IssuedToken{}, fmt.Errorf("issue token: %w", err)
	}

	account := &domain.Account{
		ID:           accountID,
		PasswordHash: hash,
		Role:         role,
		CurrentToken: &token.Value,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return domain.IssuedToken{}, err
	}

	s.logger.Info("account registered", zap.String("account_id", accountID), zap.String("role", string(role)))
	s.publish(ctx, events.New(events.EventAccountRegistered, accountID, events.SessionPayload{Role: role, TokenID: token.ID, ExpiresAt: token.ExpiresAt}))
	return token, nil
}

// Login checks the password and, when role is non-empty, the stored role.
// A stored token that still verifies for this account is returned unchanged
// without a write; otherwise a new token is minted and stored.
func (s *SessionService) Login(ctx context.Context, accountID, password string, role domain.Role) (token domain.IssuedToken, err error) {
	outcome := "issued"
	defer func() { s.record("login", outcome, err) }()

	if strings.TrimSpace(accountID) == "" || password == "" {
		return domain.IssuedToken{}, fmt.Errorf("%w: username and password are required", domain.ErrInvalidRequest)
	}

	account, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.loginFailed(ctx, accountID, "unknown account")
			return domain.IssuedToken{}, domain.ErrUserNotFound
		}
		return domain.IssuedToken{}, err
	}

	if err := s.hasher.Compare(account.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.loginFailed(ctx, accountID, "invalid credentials")
			return domain.IssuedToken{}, domain.ErrInvalidCredentials
		}
		return domain.IssuedToken{}, fmt.Errorf("verify password: %w", err)
	}

	if role != "" && role != account.Role {
		s.loginFailed(ctx, accountID, "role mismatch")
		return domain.IssuedToken{}, fmt.Errorf("%w: %q", domain.ErrRoleMismatch, role)
	}

	if reused, ok := s.reusableToken(account); ok {
		outcome = "reused"
		s.publish(ctx, events.New(events.EventSessionReused, accountID, events.SessionPayload{Role: account.Role, TokenID: reused.ID, ExpiresAt: reused.ExpiresAt}))
		return reused, nil
	}

	token, err = s.tokens.Issue(account.ID, account.Role)
	if err != nil {
		return domain.IssuedToken{}, fmt.Errorf("issue token: %w", err)
	}
	if err := s.accounts.UpdateToken(ctx, account.ID, &token.Value); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.IssuedToken{}, domain.ErrUserNotFound
		}
		return domain.IssuedToken{}, err
	}

	s.logger.Info("session started", zap.String("account_id", accountID))
	s.publish(ctx, events.New(events.EventSessionStarted, accountID, events.SessionPayload{Role: account.Role, TokenID: token.ID, ExpiresAt: token.ExpiresAt}))
	return token, nil
}

// reusableToken returns the stored token when it verifies and still names
// this account and its role.
func (s *SessionService) reusableToken(account *domain.Account) (domain.IssuedToken, bool) {
	if !account.HasSession() {
		return domain.IssuedToken{}, false
	}
	identity, err := s.tokens.Verify(*account.CurrentToken)
	if err != nil || identity.AccountID != account.ID || identity.Role != account.Role {
		return domain.IssuedToken{}, false
	}
	return domain.IssuedToken{Value: *account.CurrentToken, ID: identity.TokenID, ExpiresAt: identity.ExpiresAt}, true
}

// Logout clears the stored token. Tokens already handed out keep verifying
// until they expire unless strict revocation is enabled.
func (s *SessionService) Logout(ctx context.Context, accountID string) (err error) {
	defer func() { s.record("logout", "ok", err) }()

	if strings.TrimSpace(accountID) == "" {
		return fmt.Errorf("%w: username is required", domain.ErrInvalidRequest)
	}
	if err := s.accounts.UpdateToken(ctx, accountID, nil); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}

	s.logger.Info("session ended", zap.String("account_id", accountID))
	s.publish(ctx, events.New(events.EventSessionEnded, accountID, nil))
	return nil
}

// VerifyToken checks signature and expiry only; it never reads the store.
func (s *SessionService) VerifyToken(token string) (domain.Identity, error) {
	identity, err := s.tokens.Verify(token)
	s.record("verify", "ok", err)
	return identity, err
}

// Authenticate is the gate's verifier. With strict revocation on it also
// requires the token to be the one currently stored for the account.
func (s *SessionService) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	identity, err := s.VerifyToken(token)
	if err != nil || !s.strict {
		return identity, err
	}

	account, err := s.accounts.Get(ctx, identity.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Identity{}, fmt.Errorf("%w: account no longer exists", domain.ErrUnauthorized)
		}
		return domain.Identity{}, err
	}
	if !account.HasSession() || *account.CurrentToken != token {
		s.record("authenticate", "revoked", nil)
		return domain.Identity{}, fmt.Errorf("%w: token revoked", domain.ErrUnauthorized)
	}
	return identity, nil
}

// StrictRevocation reports whether Authenticate consults the store.
func (s *SessionService) StrictRevocation() bool {
	return s.strict
}

type seedFile struct {
	Accounts []struct {
		Username string      `yaml:"username"`
		Password string      `yaml:"password"`
		Role     domain.Role `yaml:"role"`
	} `yaml:"accounts"`
}

// SeedAccounts creates the accounts listed in a YAML file, skipping ids that
// already exist. Seeded accounts start without a session. It returns the
// number of accounts created.
//
//	accounts:
//	  - {username: alice, password: secret, role: CONSUMER}
func (s *SessionService) SeedAccounts(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var sf seedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return 0, fmt.Errorf("parse seed file %s: %w", path, err)
	}

	created := 0
	for _, entry := range sf.Accounts {
		if entry.Username == "" || entry.Password == "" {
			continue
		}
		if !entry.Role.Valid() {
			return created, fmt.Errorf("%w: %q for %s", domain.ErrInvalidRole, entry.Role, entry.Username)
		}
		if _, err := s.accounts.Get(ctx, entry.Username); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			return created, err
		}
		hash, err := s.hasher.Hash(entry.Password)
		if err != nil {
			return created, err
		}
		if err := s.accounts.Create(ctx, &domain.Account{ID: entry.Username, PasswordHash: hash, Role: entry.Role}); err != nil {
			return created, err
		}
		created++
	}
	s.logger.Info("accounts seeded", zap.String("file", path), zap.Int("created", created))
	return created, nil
}

func (s *SessionService) loginFailed(ctx context.Context, accountID, reason string) {
	s.logger.Info("login failed", zap.String("account_id", accountID), zap.String("reason", reason))
	s.publish(ctx, events.New(events.EventLoginFailed, accountID, events.LoginFailedPayload{Reason: reason}))
}

func (s *SessionService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func (s *SessionService) record(op, outcome string, err error) {
	if err != nil {
		outcome = strings.ToLower(apperrors.ToDomainError(err).Code)
	}
	s.metrics.RecordSessionOp(op, outcome)
}
