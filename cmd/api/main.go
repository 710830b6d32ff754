package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/immunopass-go/internal/application/otp"
	"github.com/immunopass-go/internal/application/voucher"
	"github.com/immunopass-go/internal/config"
	"github.com/immunopass-go/internal/infrastructure/dynamo"
	jwtinfra "github.com/immunopass-go/internal/infrastructure/jwt"
	"github.com/immunopass-go/internal/infrastructure/memory"
	natsinfra "github.com/immunopass-go/internal/infrastructure/nats"
	s3infra "github.com/immunopass-go/internal/infrastructure/s3"
	"github.com/immunopass-go/internal/infrastructure/smtp"
	"github.com/immunopass-go/internal/infrastructure/sns"
	"github.com/immunopass-go/internal/jobs"
	"github.com/immunopass-go/internal/pkg/clock"
	"github.com/immunopass-go/internal/pkg/keylock"
	transporthttp "github.com/immunopass-go/internal/transport/http"
	"github.com/joho/godotenv"
)

// stores is the persistence surface shared by both backends.
type stores struct {
	accounts otp.AccountStore
	otps     otp.OTPStore
	orgs     voucher.OrganizationStore
	orders   voucher.OrderStore
	vouchers voucher.VoucherStore
	blobs    voucher.BlobStore

	accountWriter accountWriter
	orgWriter     organizationWriter
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment")
	}

	cfg := config.Load()
	setupLogger(cfg.AppEnv)

	ctx := context.Background()

	st, err := buildStores(ctx, cfg)
	if err != nil {
		slog.Error("storage unavailable", "backend", cfg.StorageBackend, "err", err)
		os.Exit(1)
	}

	if cfg.SeedFile != "" {
		if err := seed(ctx, cfg.SeedFile, st.accountWriter, st.orgWriter); err != nil {
			slog.Error("seeding failed", "file", cfg.SeedFile, "err", err)
			os.Exit(1)
		}
	}

	// JWT provider (optional, authenticated routes answer 401 without it).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		slog.Warn("JWT provider not available", "err", err)
	}

	snsClient, err := sns.NewClient(ctx, cfg)
	if err != nil {
		slog.Error("sns client", "err", err)
		os.Exit(1)
	}
	sms := sns.NewGateway(snsClient, cfg.SMSCountryCode)
	mail := smtp.NewOTPMailer(smtp.NewMailer(cfg))

	var events voucher.EventPublisher
	if cfg.NATSURL != "" {
		pub, err := natsinfra.NewPublisher(cfg.NATSURL)
		if err != nil {
			slog.Warn("NATS publisher not available", "err", err)
		} else {
			events = pub
			defer pub.Close()
		}
	}

	clk := clock.System{}
	locks := keylock.New()

	otpDeps := otp.ServiceDeps{
		Accounts:    st.accounts,
		OTPs:        st.otps,
		SMS:         sms,
		Mail:        mail,
		Clock:       clk,
		Locks:       locks,
		SendTimeout: cfg.SMSTimeout,
	}
	if jwtProvider != nil {
		otpDeps.Tokens = jwtProvider
	}
	otpSvc := otp.NewService(otpDeps)

	voucherSvc := voucher.NewService(voucher.ServiceDeps{
		Organizations:       st.orgs,
		Orders:              st.orders,
		Vouchers:            st.vouchers,
		Blobs:               st.blobs,
		SMS:                 sms,
		Events:              events,
		Clock:               clk,
		Locks:               locks,
		SendTimeout:         cfg.SMSTimeout,
		MaxDeliveryAttempts: cfg.Scheduler.MaxDeliveryAttempts,
	})

	deps := &transporthttp.Deps{OTP: otpSvc, Vouchers: voucherSvc}
	if jwtProvider != nil {
		deps.Tokens = jwtProvider
	}
	router := transporthttp.NewRouter(cfg, deps)

	var sched *jobs.Scheduler
	if cfg.Scheduler.Enabled {
		sched = jobs.NewScheduler(voucherSvc, cfg.Scheduler.MaterializeInterval, cfg.Scheduler.DispatchInterval)
		sched.Start(ctx)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv, "backend", cfg.StorageBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	if sched != nil {
		sched.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "err", err)
	}
	slog.Info("server stopped")
}

func setupLogger(env string) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var h slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if env == "development" {
		opts.Level = slog.LevelDebug
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}

func buildStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.StorageBackend {
	case "memory":
		m := memory.NewStore()
		return &stores{
			accounts:      m.Accounts(),
			otps:          m.OTPs(),
			orgs:          m.Organizations(),
			orders:        m.Orders(),
			vouchers:      m.Vouchers(),
			blobs:         memory.NewBlobStore(),
			accountWriter: m.Accounts(),
			orgWriter:     m.Organizations(),
		}, nil
	case "dynamo":
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		// Creates the tables if they don't exist.
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
		repos := dynamo.NewRepos(client, cfg.DynamoTables)

		s3Client, err := s3infra.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &stores{
			accounts:      repos.Accounts,
			otps:          repos.OTPs,
			orgs:          repos.Organizations,
			orders:        repos.Orders,
			vouchers:      repos.Vouchers,
			blobs:         s3infra.NewStore(s3Client, cfg.S3BucketName),
			accountWriter: repos.Accounts,
			orgWriter:     repos.Organizations,
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
