package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/giftcard-platform/internal/api/http"
	"github.com/spec-kit/giftcard-platform/internal/api/http/handlers"
	"github.com/spec-kit/giftcard-platform/internal/auth"
	"github.com/spec-kit/giftcard-platform/internal/config"
	"github.com/spec-kit/giftcard-platform/internal/service"
)

// Run builds and serves one service until ctx is cancelled.
func Run(ctx context.Context, svc config.Service) error {
	rt, err := New(svc)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.OpenStore(ctx); err != nil {
		return err
	}

	switch svc {
	case config.ServiceAuth:
		err = rt.mountAuth(ctx)
	case config.ServiceMerchant:
		err = rt.mountMerchant()
	case config.ServiceConsumer:
		err = rt.mountConsumer()
	case config.ServiceLog:
		err = rt.mountLog()
	}
	if err != nil {
		return err
	}
	return rt.Serve(ctx)
}

func (r *Runtime) mountAuth(ctx context.Context) error {
	tokens, err := r.TokenManager()
	if err != nil {
		return err
	}
	hasher, err := auth.NewPasswordHasher(r.Config.Auth.PasswordHasher, r.Config.Auth.BcryptCost)
	if err != nil {
		return err
	}

	sessions := service.NewSessionService(r.Config.Auth, service.SessionDependencies{
		Accounts:   r.AccountRepository(),
		Tokens:     tokens,
		Hasher:     hasher,
		Dispatcher: r.Dispatcher,
		Metrics:    r.Metrics,
		Logger:     r.Logger,
	})
	if sessions.StrictRevocation() {
		r.Logger.Warn("strict revocation enabled: tokens are checked against the credential store on every gated request")
	}
	if r.Config.Auth.SeedFile != "" {
		if _, err := sessions.SeedAccounts(ctx, r.Config.Auth.SeedFile); err != nil {
			return err
		}
	}

	limiter := httptransport.NewClientRateLimiter(r.Config.RateLimit.RPS, r.Config.RateLimit.Burst)
	r.Go(func(ctx context.Context) {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.Sweep(10 * time.Minute)
			}
		}
	})

	r.ForwardEvents()
	httptransport.RegisterAuthRoutes(r.App, httptransport.AuthRoutes{
		Auth:           handlers.NewAuthHandler(sessions),
		AuthMiddleware: auth.NewAuthMiddleware(sessions),
		RateLimiter:    limiter,
	})
	return nil
}

func (r *Runtime) mountMerchant() error {
	cards, tokens, err := r.giftCardDeps()
	if err != nil {
		return err
	}
	r.ForwardEvents()
	httptransport.RegisterMerchantRoutes(r.App, httptransport.MerchantRoutes{
		Merchant:       handlers.NewMerchantHandler(cards),
		AuthMiddleware: auth.NewAuthMiddleware(auth.CodecVerifier{Tokens: tokens}),
	})
	return nil
}

func (r *Runtime) mountConsumer() error {
	cards, tokens, err := r.giftCardDeps()
	if err != nil {
		return err
	}
	r.ForwardEvents()
	httptransport.RegisterConsumerRoutes(r.App, httptransport.ConsumerRoutes{
		Consumer:       handlers.NewConsumerHandler(cards),
		AuthMiddleware: auth.NewAuthMiddleware(auth.CodecVerifier{Tokens: tokens}),
	})
	return nil
}

func (r *Runtime) giftCardDeps() (*service.GiftCardService, *auth.TokenManager, error) {
	repo, err := r.GiftCardRepository()
	if err != nil {
		return nil, nil, err
	}
	tokens, err := r.TokenManager()
	if err != nil {
		return nil, nil, err
	}
	return service.NewGiftCardService(repo, r.Dispatcher, r.Logger), tokens, nil
}

// mountLog does not forward its own events, so it never posts to itself.
func (r *Runtime) mountLog() error {
	repo, err := r.LogRepository()
	if err != nil {
		return err
	}
	r.Logger.Info("log capture ready", zap.String("driver", r.Config.Store.Driver))
	httptransport.RegisterLogRoutes(r.App, httptransport.LogRoutes{
		Logs: handlers.NewLogsHandler(service.NewLogService(repo)),
	})
	return nil
}
