package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/giftcard-platform/internal/auth"
	"github.com/spec-kit/giftcard-platform/internal/config"
	"github.com/spec-kit/giftcard-platform/internal/observability"
	"github.com/spec-kit/giftcard-platform/internal/persistence"
	"github.com/spec-kit/giftcard-platform/internal/repository"
	"github.com/spec-kit/giftcard-platform/internal/service"
)

// AccountCommand groups account store maintenance.
func AccountCommand() *cli.Command {
	return &cli.Command{
		Name:  "account",
		Usage: "manage stored accounts",
		Subcommands: []*cli.Command{
			{
				Name:  "seed",
				Usage: "create the accounts listed in a YAML file; existing ids are left alone",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true},
					&cli.StringFlag{Name: "log-level", Value: "warn"},
				},
				Action: seedAccounts,
			},
		},
	}
}

func seedAccounts(c *cli.Context) error {
	s, err := settingsFrom(c)
	if err != nil {
		return err
	}
	logger, err := observability.NewLogger(config.LoggerConfig{Level: c.String("log-level")}, "authctl")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	accounts, closeStore, err := openAccounts(c.Context, s.Store, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	hasher, err := auth.NewPasswordHasher(s.Auth.Hasher, s.Auth.Cost)
	if err != nil {
		return err
	}
	sessions := service.NewSessionService(s.AuthConfig(), service.SessionDependencies{
		Accounts: accounts,
		Hasher:   hasher,
		Logger:   logger,
	})
	created, err := sessions.SeedAccounts(c.Context, c.String("file"))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.App.Writer, "created %d account(s) in %s store\n", created, s.Store.Driver)
	return err
}

// openAccounts connects the account store named by the settings.
func openAccounts(ctx context.Context, s StoreSettings, logger *zap.Logger) (repository.AccountRepository, func(), error) {
	switch s.Driver {
	case config.StoreMemory:
		logger.Warn("memory store selected; seeded accounts are discarded on exit")
		return repository.NewMemoryAccountRepository(), func() {}, nil

	case config.StorePostgres:
		if s.DSN == "" {
			return nil, nil, errors.New("store.dsn is required for the postgres store")
		}
		pg, err := persistence.NewPostgres(ctx, config.PostgresConfig{DSN: s.DSN, MaxConns: 2}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return repository.NewAccountRepository(pg.PoolHandle()), pg.Close, nil

	case config.StoreRedis:
		rd := persistence.NewRedis(config.RedisConfig{Addr: s.Addr, Password: s.Password}, logger)
		return repository.NewRedisAccountRepository(rd.Client, s.Prefix), rd.Close, nil

	case config.StoreBadger:
		bg, err := persistence.NewBadger(config.BadgerConfig{Dir: s.Dir, SyncWrites: true}, logger)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewBadgerAccountRepository(bg.DB), bg.Close, nil
	}
	return nil, nil, fmt.Errorf("unsupported store driver %q", s.Driver)
}
