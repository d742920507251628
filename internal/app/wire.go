package app

import (
	"context"
	"fmt"
	"log/slog"

	s3archive "github.com/sergerad/nolemma/internal/archive/s3"
	pgaudit "github.com/sergerad/nolemma/internal/audit/postgres"
	"github.com/sergerad/nolemma/internal/config"
	"github.com/sergerad/nolemma/internal/crypto"
	"github.com/sergerad/nolemma/internal/domain"
	"github.com/sergerad/nolemma/internal/encoding"
	"github.com/sergerad/nolemma/internal/notify"
	redisrl "github.com/sergerad/nolemma/internal/ratelimit/redis"
	"github.com/sergerad/nolemma/internal/sequencer"
	transporthttp "github.com/sergerad/nolemma/internal/transport/http"
	"github.com/sergerad/nolemma/internal/transport/ws"
)

// Dependencies bundles every component a mode handler might need. Optional
// components are nil when their config section is disabled.
type Dependencies struct {
	Engine *sequencer.Engine

	// Transport (nil when Server.Enabled is false)
	HTTPServer *transporthttp.Server
	WSHub      *ws.Hub

	// Optional components
	AuditStore  domain.AuditStore
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	Archiver    domain.Archiver
	Notifier    *notify.Notifier
}

// Wire constructs the sequencer engine and every optional supporting
// component named by cfg, returning a cleanup function that tears them down
// in reverse order of acquisition.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Wallet ---
	seedHex, err := crypto.LoadSeed(crypto.SeedConfig{
		RawSeedHex:        cfg.Wallet.SecretSeed,
		EncryptedSeedPath: cfg.Wallet.EncryptedSeedPath,
		SeedPassword:      cfg.Wallet.SeedPassword,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("wire: load seed: %w", err)
	}
	kp, err := crypto.KeypairFromHex(seedHex)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: derive keypair: %w", err)
	}

	// --- Optional: Redis rate limiter + lock manager ---
	var rateLimiter domain.RateLimiter
	if cfg.RateLim.Enabled {
		redisClient, err := redisrl.New(ctx, redisrl.ClientConfig{
			Addr:       cfg.RateLim.Addr,
			Password:   cfg.RateLim.Password,
			DB:         cfg.RateLim.DB,
			PoolSize:   cfg.RateLim.PoolSize,
			MaxRetries: cfg.RateLim.MaxRetries,
			TLSEnabled: cfg.RateLim.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		rateLimiter = redisrl.NewRateLimiter(redisClient)
		deps.RateLimiter = rateLimiter
		deps.LockManager = redisrl.NewLockManager(redisClient)
	}

	// --- Optional: PostgreSQL audit log ---
	if cfg.Audit.Enabled {
		pgClient, err := pgaudit.New(ctx, pgaudit.ClientConfig{
			DSN:      cfg.Audit.DSN,
			Host:     cfg.Audit.Host,
			Port:     cfg.Audit.Port,
			Database: cfg.Audit.Database,
			User:     cfg.Audit.User,
			Password: cfg.Audit.Password,
			SSLMode:  cfg.Audit.SSLMode,
			MaxConns: cfg.Audit.PoolMaxConns,
			MinConns: cfg.Audit.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Audit.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		deps.AuditStore = pgaudit.NewAuditStore(pgClient.Pool())
	}

	// --- Optional: S3-compatible block archival ---
	if cfg.Archive.Enabled {
		writer, err := s3archive.New(ctx, s3archive.ClientConfig{
			Endpoint:       cfg.Archive.Endpoint,
			Region:         cfg.Archive.Region,
			Bucket:         cfg.Archive.Bucket,
			AccessKey:      cfg.Archive.AccessKey,
			SecretKey:      cfg.Archive.SecretKey,
			UseSSL:         cfg.Archive.UseSSL,
			ForcePathStyle: cfg.Archive.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = s3archive.NewArchiver(writer, deps.AuditStore)
	}

	// --- Optional: notifications ---
	var senders []notify.Sender
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Sequencer engine ---
	var hooks []sequencer.SealedHook
	if deps.Archiver != nil {
		archiver := deps.Archiver
		hooks = append(hooks, func(ctx context.Context, block *domain.Block) {
			canonical, err := encoding.EncodeBlock(block)
			if err != nil {
				logger.ErrorContext(ctx, "archive: encode block failed", slog.String("error", err.Error()))
				return
			}
			if err := archiver.ArchiveBlock(ctx, block.Number(), canonical); err != nil {
				logger.ErrorContext(ctx, "archive: archive block failed", slog.String("error", err.Error()))
			}
		})
	}
	notifier := deps.Notifier
	hooks = append(hooks, func(ctx context.Context, block *domain.Block) {
		_ = notifier.Notify(ctx, "block.sealed", "block sealed",
			fmt.Sprintf("block %d sealed with %d transactions", block.Number(), len(block.Transactions)))
	})

	engine, err := sequencer.New(sequencer.Config{
		Keypair:         kp,
		WithdrawalDepth: uint8(cfg.Node.WithdrawalDepth),
		SealPeriod:      cfg.Node.SealPeriod.Duration,
		Logger:          logger,
		OnSealed:        hooks,
		LockManager:     deps.LockManager,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: sequencer: %w", err)
	}
	deps.Engine = engine

	// --- Optional: HTTP + WebSocket transport ---
	if cfg.Server.Enabled {
		wsHub := ws.NewHub(logger)
		deps.WSHub = wsHub
		engine.AddHook(func(ctx context.Context, block *domain.Block) {
			raw, err := encoding.EncodeBlock(block)
			if err != nil {
				return
			}
			wsHub.Broadcast(raw)
		})

		rl := transporthttp.RateLimit{
			Limiter: rateLimiter,
			Limit:   cfg.RateLim.Limit,
			Window:  cfg.RateLim.Window.Duration,
		}
		deps.HTTPServer = transporthttp.NewServer(transporthttp.Config{
			Port:        cfg.Server.Port,
			CORSOrigins: cfg.Server.CORSOrigins,
			APIKey:      cfg.Server.APIKey,
		}, engine, wsHub, rl, logger)
	}

	return deps, cleanup, nil
}
