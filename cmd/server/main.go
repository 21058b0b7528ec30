// Command server runs the assembly service: registration claims, voting and
// the assembly lifecycle over one HTTP API. Postgres, Redis, Kafka and S3 are
// all optional; without them the process runs self-contained on in-memory
// adapters, which is the development profile.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	asmmetrics "asamblea/internal/assembly/metrics"
	asmservice "asamblea/internal/assembly/service"
	asmstore "asamblea/internal/assembly/store"
	"asamblea/internal/audit"
	"asamblea/internal/notify"
	"asamblea/internal/platform/config"
	"asamblea/internal/platform/httpserver"
	"asamblea/internal/platform/logger"
	"asamblea/internal/platform/redis"
	"asamblea/internal/proxyfile"
	regmetrics "asamblea/internal/registration/metrics"
	regservice "asamblea/internal/registration/service"
	userstore "asamblea/internal/registration/store"
	registrystore "asamblea/internal/registry/store"
	transport "asamblea/internal/transport/http"
	votingmetrics "asamblea/internal/voting/metrics"
	votingservice "asamblea/internal/voting/service"
	votingstore "asamblea/internal/voting/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.FromEnv()
	log := logger.New(slog.LevelInfo)

	if err := run(cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		registries  registrystore.Store
		assemblies  asmstore.Store
		questions   votingstore.Store
		users       userstore.Store
		claimTx     regservice.StoreTx
		memRegistry *registrystore.InMemory
		memUsers    *userstore.InMemory
	)
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		registries = registrystore.NewPostgres(db)
		assemblies = asmstore.NewPostgres(db)
		questions = votingstore.NewPostgres(db)
		users = userstore.NewPostgres(db)
		claimTx = newPostgresClaimTx(db)
		log.Info("using postgres stores")
	} else {
		memRegistry = registrystore.NewInMemory()
		memUsers = userstore.NewInMemory()
		registries = memRegistry
		assemblies = asmstore.NewInMemory()
		questions = votingstore.NewInMemory()
		users = memUsers
		claimTx = regservice.NewMemoryTx(memRegistry, memUsers)
		log.Warn("no postgres DSN configured, using in-memory stores")
	}

	var files proxyfile.Storage
	if cfg.ProxyFileBucket != "" {
		s3, err := proxyfile.NewS3Storage(ctx, cfg.ProxyFileBucket)
		if err != nil {
			return err
		}
		files = s3
	} else {
		files = proxyfile.NewInMemoryStorage()
		log.Warn("no proxy file bucket configured, keeping uploads in memory")
	}

	bus := notify.NewBus()

	publisher := audit.NewChannelPublisher(1024)
	var sink audit.Sink
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := audit.NewKafkaSink(cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			return err
		}
		defer kafka.Close()
		sink = kafka
	} else {
		sink = audit.NewInMemoryStore()
		log.Warn("no kafka brokers configured, keeping audit trail in memory")
	}
	worker := audit.NewWorker(publisher.Inbox(), sink, log)

	registration := regservice.NewService(
		assemblies, registries, users, claimTx, files,
		bus, publisher, regmetrics.New(), log,
	)
	voting := votingservice.NewService(
		questions, assemblies, registries, users,
		bus, publisher, votingmetrics.New(), log,
	)
	assembly := asmservice.NewService(
		assemblies, registries, questions, users, files,
		bus, publisher, asmmetrics.New(), log,
	)
	starter := asmservice.NewAutoStarter(assembly, cfg.AutoStartInterval)

	passHash := []byte(cfg.OperatorPassHash)
	if len(passHash) == 0 {
		generated, err := bcrypt.GenerateFromPassword([]byte("change-me"), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		passHash = generated
		log.Warn("no operator password hash configured, using the development default")
	}
	auth := transport.NewAuth([]byte(cfg.JWTSigningKey), cfg.OperatorUser, passHash)

	handler := transport.NewHandler(registration, voting, assembly, auth, log)
	server := httpserver.New(cfg.Addr, transport.NewRouter(handler))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Run(ctx) })
	g.Go(func() error { return starter.Run(ctx) })

	rdb, err := redis.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		bridge := notify.NewRedisBridge(bus, rdb.Client, log)
		bus.Tap(func(c notify.Change) { bridge.Broadcast(context.Background(), c) })
		g.Go(func() error { return bridge.Run(ctx) })
	}

	g.Go(func() error {
		log.Info("http server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
