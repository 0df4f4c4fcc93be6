package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ridefuture-be/internal/auth"
	"ridefuture-be/internal/captcha"
	"ridefuture-be/internal/category"
	"ridefuture-be/internal/config"
	"ridefuture-be/internal/db"
	"ridefuture-be/internal/logger"
	"ridefuture-be/internal/mailer"
	"ridefuture-be/internal/metrics"
	"ridefuture-be/internal/middleware"
	"ridefuture-be/internal/newsletter"
	"ridefuture-be/internal/order"
	"ridefuture-be/internal/payment"
	"ridefuture-be/internal/payment/callback"
	"ridefuture-be/internal/product"
	"ridefuture-be/internal/rest"
	"ridefuture-be/internal/user"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var (
	initDBFunc      = db.InitDB
	startServerFunc = func(srv *http.Server) error { return srv.ListenAndServe() }
)

func main() {
	if err := run(context.Background()); err != nil {
		log.Fatal(err)
	}
}

type server struct {
	handler    http.Handler
	limiter    *middleware.RateLimiter
	dispatcher *newsletter.Dispatcher
}

// newServer wires repositories, services and the HTTP router.
func newServer(cfg *config.Config, database *sql.DB) (*server, error) {
	if cfg.JWTSecret == "" {
		return nil, auth.ErrMissingSecret
	}

	registry := metrics.NewRegistry()
	tokens := auth.NewManager(cfg.JWTSecret)

	var sender mailer.Sender = mailer.LogSender{}
	if cfg.SMTPUser != "" && cfg.SMTPPassword != "" {
		sender = mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom)
	} else {
		logger.L().Warn("SMTP credentials not set, outgoing mail is only logged")
	}
	notifier, err := mailer.NewNotifier(sender, mailer.NotifierConfig{
		AdminEmail: cfg.AdminEmail,
		SiteURL:    cfg.SiteURL,
		Currency:   cfg.PaymentCurrency,
	})
	if err != nil {
		return nil, err
	}

	categoryRepo := category.NewRepository(database)
	categorySvc := category.NewService(categoryRepo)

	media := product.NewLocalStore(cfg.MediaRoot, cfg.SiteURL)
	productRepo := product.NewRepository(database)
	productSvc := product.NewService(productRepo, categorySvc, media)

	userRepo := user.NewRepository(database)
	userSvc := user.NewService(userRepo, tokens, captcha.NewRecaptcha(cfg.RecaptchaSecret), notifier)

	if cfg.StripeSecretKey == "" {
		logger.L().Warn("STRIPE_SECRET_KEY not set, checkout will fail")
	}
	bridge := payment.NewBridge(
		payment.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeAPIBase, registry),
		payment.NewRepository(database),
		userRepo,
		productSvc,
		payment.BridgeConfig{
			SiteURL:         cfg.SiteURL,
			FrontendSiteURL: cfg.FrontendSiteURL,
			Currency:        cfg.PaymentCurrency,
			GuaranteeFee:    cfg.GuaranteeFee,
		},
		registry,
	)

	orderRepo := order.NewRepository(database, cfg.GuaranteeFee)
	orderSvc := order.NewService(orderRepo, userSvc, productSvc, bridge, notifier, registry)

	newsletterRepo := newsletter.NewRepository(database)
	newsletterSvc := newsletter.NewService(newsletterRepo)
	dispatcher := newsletter.NewDispatcher(newsletterRepo, notifier, cfg.NewsletterWorkers, cfg.NewsletterPollInterval, registry)

	limiter := middleware.NewRateLimiter(cfg.InternalSecretKey)

	handler := rest.NewRouter(rest.Deps{
		Products:           productSvc,
		Categories:         categorySvc,
		Orders:             orderSvc,
		Users:              userSvc,
		Newsletter:         newsletterSvc,
		Support:            notifier,
		Tokens:             tokens,
		Payments:           callback.NewHandler(orderSvc, cfg.FrontendSiteURL),
		Limiter:            limiter,
		Metrics:            registry,
		MediaRoot:          cfg.MediaRoot,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	return &server{handler: handler, limiter: limiter, dispatcher: dispatcher}, nil
}

func run(ctx context.Context) error {
	cfg := config.LoadConfig()

	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := initDBFunc(cfg)
	defer database.Close()

	s, err := newServer(cfg, database)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.limiter.Run(gctx)
		return nil
	})
	g.Go(func() error {
		s.dispatcher.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logger.L().Info("server running", zap.String("addr", srv.Addr))
		if err := startServerFunc(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.L().Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
