package main

import (
	"context"
	"fmt"
	"log/slog"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"

	"certledger/internal/audit"
	"certledger/internal/certificate/models"
	"certledger/internal/content"
	contentstore "certledger/internal/content/store"
	"certledger/internal/index"
	indexstore "certledger/internal/index/store"
	"certledger/internal/issuance"
	"certledger/internal/ledger"
	"certledger/internal/ledger/evm"
	ledgerstore "certledger/internal/ledger/store"
	"certledger/internal/legacy"
	"certledger/internal/platform/badgerdb"
	"certledger/internal/platform/config"
	"certledger/internal/platform/kafka"
	"certledger/internal/platform/kafka/consumer"
	"certledger/internal/platform/postgres"
	"certledger/internal/platform/redis"
	"certledger/internal/reconcile"
	"certledger/internal/reconcile/queue"
	"certledger/internal/resolution"
	"certledger/pkg/platform/circuit"
)

// app holds every wired component. Close releases them in reverse order.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	reg    prometheus.Registerer

	ledger  ledger.Client
	content content.Store
	index   index.Store

	publisher reconcile.Publisher
	source    reconcile.Source

	recorder   *audit.Recorder
	issuance   *issuance.Service
	resolution *resolution.Service
	legacy     *legacy.Matcher
	worker     *reconcile.Worker

	badgers map[string]*badger.DB
	closers []func()
}

// wire builds the stores selected by cfg and the services on top of them.
// reg may be nil for one-shot commands.
func wire(ctx context.Context, cfg config.Config, logger *slog.Logger, reg prometheus.Registerer) (_ *app, err error) {
	a := &app{
		cfg:     cfg,
		logger:  logger,
		reg:     reg,
		badgers: map[string]*badger.DB{},
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if err := a.openLedger(ctx); err != nil {
		return nil, err
	}
	if err := a.openContent(ctx); err != nil {
		return nil, err
	}
	if err := a.openIndex(ctx); err != nil {
		return nil, err
	}
	if err := a.openQueue(ctx); err != nil {
		return nil, err
	}
	if err := a.buildServices(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) onClose(f func()) {
	a.closers = append(a.closers, f)
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// badger returns the database rooted at dir, opening it once.
func (a *app) badger(dir string) (*badger.DB, error) {
	if db, ok := a.badgers[dir]; ok {
		return db, nil
	}
	db, err := badgerdb.Open(dir, a.logger.With("component", "badger"))
	if err != nil {
		return nil, err
	}
	a.badgers[dir] = db
	a.onClose(func() {
		if err := db.Close(); err != nil {
			a.logger.Error("failed to close badger", "dir", dir, "error", err)
		}
	})
	return db, nil
}

func (a *app) openLedger(ctx context.Context) error {
	cfg := a.cfg.Ledger
	switch cfg.Backend {
	case config.BackendBadger:
		db, err := a.badger(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("open ledger: %w", err)
		}
		a.ledger = ledgerstore.NewBadger(db)
	case config.BackendEVM:
		client, err := evm.Dial(ctx, cfg.RPCURL, cfg.Contract, cfg.PrivateKey,
			evm.WithLogger(a.logger.With("component", "ledger")),
			evm.WithConfirmTimeout(cfg.ConfirmTimeout),
		)
		if err != nil {
			return fmt.Errorf("dial ledger: %w", err)
		}
		a.ledger = client
	default:
		a.ledger = ledgerstore.NewInMemory()
	}
	a.logger.Info("ledger ready", "backend", cfg.Backend)
	return nil
}

func (a *app) openContent(ctx context.Context) error {
	cfg := a.cfg.Content
	var store content.Store
	switch cfg.Backend {
	case config.BackendBadger:
		db, err := a.badger(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("open content store: %w", err)
		}
		store = contentstore.NewBadger(db, cfg.Gateway)
	case config.BackendGCS:
		gcs, err := contentstore.NewGCS(ctx, cfg.Bucket, cfg.CredentialsFile, cfg.Gateway,
			contentstore.WithObjectPrefix(cfg.ObjectPrefix),
			contentstore.WithGCSLogger(a.logger.With("component", "content")),
		)
		if err != nil {
			return fmt.Errorf("open content store: %w", err)
		}
		a.onClose(func() { _ = gcs.Close() })
		store = gcs
	default:
		store = contentstore.NewInMemory(cfg.Gateway)
	}

	rc, err := redis.New(ctx, a.cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect content cache: %w", err)
	}
	if rc != nil {
		a.onClose(func() { _ = rc.Close() })
		store = contentstore.NewCached(store, rc.Client,
			contentstore.WithCacheTTL(cfg.CacheTTL),
			contentstore.WithCacheLogger(a.logger.With("component", "content-cache")),
		)
	}
	a.content = store
	a.logger.Info("content store ready", "backend", cfg.Backend, "cached", rc != nil)
	return nil
}

func (a *app) openIndex(ctx context.Context) error {
	cfg := a.cfg.Index
	switch cfg.Backend {
	case config.BackendPostgres:
		pool, err := postgres.Open(ctx, cfg.DSN, cfg.MaxConns)
		if err != nil {
			return fmt.Errorf("open index: %w", err)
		}
		a.onClose(pool.Close)
		pg := indexstore.NewPostgres(pool)
		if err := pg.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate index: %w", err)
		}
		a.index = pg
	case config.BackendSQLite:
		lite, err := indexstore.NewSQLite(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("open index: %w", err)
		}
		a.onClose(func() { _ = lite.Close() })
		a.index = lite
	default:
		a.index = indexstore.NewInMemory()
	}
	a.logger.Info("index ready", "backend", cfg.Backend)
	return nil
}

func (a *app) openQueue(ctx context.Context) error {
	cfg := a.cfg.Reconcile
	if cfg.Backend != config.BackendKafka {
		q := queue.NewInMemory(cfg.QueueSize)
		a.onClose(q.Close)
		a.publisher, a.source = q, q
		return nil
	}

	if err := kafka.EnsureTopic(ctx, cfg.Brokers, cfg.Topic, cfg.Partitions, cfg.Replication); err != nil {
		return fmt.Errorf("ensure reconcile topic: %w", err)
	}
	producer, err := kafka.NewProducer(cfg.Brokers, a.logger.With("component", "reconcile-producer"))
	if err != nil {
		return err
	}
	a.onClose(producer.Close)
	c, err := consumer.New(cfg.Brokers, cfg.ConsumerGroup, []string{cfg.Topic},
		consumer.WithLogger(a.logger.With("component", "reconcile-consumer")),
	)
	if err != nil {
		return err
	}
	a.onClose(c.Close)
	a.publisher = queue.NewKafkaPublisher(producer, cfg.Topic)
	a.source = queue.NewKafkaSource(c, a.logger)
	return nil
}

func (a *app) buildServices() error {
	var err error
	breaker := circuit.New("verification-log",
		circuit.WithFailureThreshold(a.cfg.Audit.FailureThreshold),
		circuit.WithCooldown(a.cfg.Audit.Cooldown),
	)
	a.recorder, err = audit.NewRecorder(a.index,
		audit.WithLogger(a.logger.With("component", "audit")),
		audit.WithMetrics(audit.NewMetrics(a.reg)),
		audit.WithBreaker(breaker),
		audit.WithWriteTimeout(a.cfg.Audit.WriteTimeout),
		audit.WithQueueSize(a.cfg.Audit.QueueSize),
		audit.WithErrorHandler(func(entry models.VerificationLogEntry, err error) {
			a.logger.Warn("verification log entry lost",
				"source", entry.Source,
				"outcome", entry.Outcome,
				"error", err,
			)
		}),
	)
	if err != nil {
		return err
	}
	// closes before the stores so queued entries still reach the index
	a.onClose(a.recorder.Close)

	a.issuance, err = issuance.New(a.ledger, a.content, a.index, a.publisher,
		issuance.WithLogger(a.logger.With("component", "issuance")),
		issuance.WithMetrics(issuance.NewMetrics(a.reg)),
		issuance.WithUploadConcurrency(a.cfg.Issuance.UploadConcurrency),
		issuance.WithMaxBatchSize(a.cfg.Issuance.MaxBatchSize),
		issuance.WithLandedScanDepth(a.cfg.Issuance.LandedScanDepth),
	)
	if err != nil {
		return err
	}

	a.resolution, err = resolution.New(a.ledger, a.content, a.index, a.recorder,
		resolution.WithLogger(a.logger.With("component", "resolution")),
		resolution.WithMetrics(resolution.NewMetrics(a.reg)),
	)
	if err != nil {
		return err
	}

	var recognizer legacy.Recognizer = legacy.TextRecognizer{}
	if a.cfg.Legacy.OCREndpoint != "" {
		recognizer = legacy.NewHTTPRecognizer(a.cfg.Legacy.OCREndpoint, a.cfg.Legacy.OCRTimeout)
	}
	a.legacy, err = legacy.New(recognizer, a.index, a.recorder,
		legacy.WithLogger(a.logger.With("component", "legacy")),
		legacy.WithMetrics(legacy.NewMetrics(a.reg)),
		legacy.WithLogTimeout(a.cfg.Audit.WriteTimeout),
		legacy.WithStrictExtraction(a.cfg.Legacy.StrictExtraction),
	)
	if err != nil {
		return err
	}

	a.worker, err = reconcile.NewWorker(a.ledger, a.content, a.index,
		reconcile.WithLogger(a.logger.With("component", "reconcile")),
		reconcile.WithMetrics(reconcile.NewMetrics(a.reg)),
	)
	return err
}
