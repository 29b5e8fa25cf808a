package command

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/spec-kit/giftcard-platform/internal/auth"
	"github.com/spec-kit/giftcard-platform/internal/domain"
	apperrors "github.com/spec-kit/giftcard-platform/pkg/util"
)

// TokenCommand groups token issue and inspect.
func TokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "issue and inspect session tokens",
		Subcommands: []*cli.Command{
			{
				Name:  "issue",
				Usage: "sign a session token without touching the account store",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Required: true},
					&cli.StringFlag{Name: "role", Aliases: []string{"r"}, Required: true, Usage: "MERCHANT or CONSUMER"},
					&cli.DurationFlag{Name: "ttl", Usage: "override the configured lifetime"},
				},
				Action: issueToken,
			},
			{
				Name:      "inspect",
				Usage:     "verify a token and print its identity",
				ArgsUsage: "<token>",
				Action:    inspectToken,
			},
		},
	}
}

func tokenManager(c *cli.Context, ttl time.Duration) (*auth.TokenManager, error) {
	s, err := settingsFrom(c)
	if err != nil {
		return nil, err
	}
	keys, err := auth.KeyringFromConfig(s.AuthConfig())
	if err != nil {
		return nil, fmt.Errorf("load keyring: %w", err)
	}
	if ttl <= 0 {
		ttl = s.AuthConfig().AccessTokenTTL()
	}
	return auth.NewTokenManager(keys, ttl)
}

type issuedOutput struct {
	Token     string    `json:"token"`
	KeyID     string    `json:"kid"`
	ExpiresAt time.Time `json:"expires_at"`
}

func issueToken(c *cli.Context) error {
	role := domain.Role(strings.ToUpper(c.String("role")))
	if !role.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidRole, c.String("role"))
	}
	tm, err := tokenManager(c, c.Duration("ttl"))
	if err != nil {
		return err
	}
	issued, err := tm.Issue(c.String("user"), role)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, issuedOutput{
		Token:     issued.Value,
		KeyID:     tm.Keyring().ActiveID,
		ExpiresAt: issued.ExpiresAt.UTC(),
	})
}

func inspectToken(c *cli.Context) error {
	raw := strings.TrimSpace(c.Args().First())
	if raw == "" {
		return errors.New("token argument required")
	}
	tm, err := tokenManager(c, 0)
	if err != nil {
		return err
	}
	identity, err := tm.Verify(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", apperrors.ToDomainError(err).Code, err)
	}
	return printJSON(c.App.Writer, identity)
}
