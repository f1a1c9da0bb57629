package main

import (
	"context"
	"errors"
	"net"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/example/community-platform/internal/platform/auth"
	"github.com/example/community-platform/internal/platform/db"
	"github.com/example/community-platform/internal/platform/httpserver"
	"github.com/example/community-platform/internal/platform/logging"
	"github.com/example/community-platform/internal/platform/natsconn"
	"github.com/example/community-platform/internal/platform/run"
	"github.com/example/community-platform/services/threads/internal/cache"
	"github.com/example/community-platform/services/threads/internal/config"
	"github.com/example/community-platform/services/threads/internal/events"
	"github.com/example/community-platform/services/threads/internal/handlers"
	"github.com/example/community-platform/services/threads/internal/store"
	"github.com/example/community-platform/services/threads/internal/thread"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.ServiceName)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	st, pool := initStore(cfg, log)
	if pool != nil {
		defer pool.Close()
	}

	counts, err := cache.New(cfg.RedisURL, cfg.CountCacheTTL, cfg.CountCacheSize)
	if err != nil {
		log.Warn("count cache unavailable, totals are read from the store", zap.Error(err))
	}

	var nc *nats.Conn
	publisher := events.New(nil, log)
	if natsconn.Configured(natsconn.Options{URL: cfg.NATSURL}) {
		nc, publisher = initEvents(cfg, log)
		if nc != nil {
			defer nc.Close()
		}
	}

	opts := thread.Options{
		Store:        st,
		Logger:       log.Named("thread"),
		DefaultLimit: cfg.DefaultLimit,
		MaxLimit:     cfg.MaxLimit,
		Counts:       counts,
	}
	deps := handlers.Deps{
		Threads: thread.NewService(opts),
		Events:  publisher,
		Log:     log,
	}

	verifier := auth.JWTVerifier{Secret: []byte(cfg.JWTSecret), Issuer: cfg.JWTIssuer, Leeway: 30 * time.Second}
	if !verifier.Enabled() {
		log.Warn("JWT_SECRET not set, authenticated routes will reject every request")
	}

	r := chi.NewRouter()
	httpserver.SetupRouter(r, httpserver.RouterConfig{
		Logger:    log,
		ReadyFunc: readyFunc(pool),
	})

	// Reads are public; writes require a user, post deletion a moderator.
	r.Get("/v1/posts/{post_id}/replies", handlers.ListReplies(deps))
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(verifier))
		r.Post("/v1/posts/{post_id}/replies", handlers.CreateReply(deps))
		r.Patch("/v1/replies/{reply_id}", handlers.UpdateReply(deps))
		r.Delete("/v1/replies/{reply_id}", handlers.DeleteReply(deps))
		r.With(auth.RequireModerator).Delete("/v1/posts/{post_id}", handlers.DeletePost(deps))
	})

	srv := httpserver.New(httpserver.Options{
		Addr:         cfg.HTTP.Addr,
		ServiceName:  cfg.ServiceName,
		Logger:       log,
		Router:       r,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	})

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Error("grpc listen", zap.Error(err))
		run.Exit(1)
	}
	grpcSrv := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)
	reflection.Register(grpcSrv)
	healthSrv.SetServingStatus(cfg.ServiceName, healthpb.HealthCheckResponse_SERVING)
	go func() {
		log.Info("grpc server starting", zap.String("addr", cfg.GRPCAddr))
		if err := grpcSrv.Serve(lis); err != nil {
			log.Error("grpc serve", zap.Error(err))
		}
	}()

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		go func() {
			<-ctx.Done()
			healthSrv.Shutdown()
			stopped := make(chan struct{})
			go func() {
				grpcSrv.GracefulStop()
				close(stopped)
			}()
			select {
			case <-stopped:
			case <-time.After(10 * time.Second):
				grpcSrv.Stop()
			}
		}()
		return srv.Start(log)
	})
	runner.Graceful(srv.Shutdown)

	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}

// initStore selects the reply store backend.
// In production (APP_ENV=production) it requires a working Postgres
// connection and terminates the process otherwise.
func initStore(cfg config.Config, log *zap.Logger) (store.Store, *pgxpool.Pool) {
	isProd := cfg.IsProduction()

	if cfg.DatabaseURL == "" {
		if isProd {
			log.Error("DATABASE_URL is required in production")
			_ = log.Sync()
			os.Exit(1)
		}
		log.Warn("DATABASE_URL not set, using in-memory thread store (development only)")
		return store.NewMemoryStore(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := db.Open(ctx, db.Options{DSN: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns})
	if err != nil {
		if isProd {
			log.Error("postgres is required in production but unavailable", zap.Error(err))
			_ = log.Sync()
			os.Exit(1)
		}
		log.Warn("postgres unavailable, falling back to in-memory thread store", zap.Error(err))
		return store.NewMemoryStore(), nil
	}

	log.Info("thread store: postgres")
	return store.NewPostgresStore(pool), pool
}

// initEvents connects to NATS and prepares the event stream. Failures are
// non-fatal: the service keeps running with a no-op publisher.
func initEvents(cfg config.Config, log *zap.Logger) (*nats.Conn, *events.Publisher) {
	nc, err := natsconn.Connect(natsconn.Options{URL: cfg.NATSURL, Name: cfg.ServiceName, Logger: log})
	if err != nil {
		log.Error("nats connect", zap.Error(err))
		return nil, events.New(nil, log)
	}
	js, err := nc.JetStream()
	if err != nil {
		log.Error("nats jetstream", zap.Error(err))
		nc.Close()
		return nil, events.New(nil, log)
	}
	pub := events.New(js, log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pub.EnsureStream(ctx); err != nil {
		log.Warn("ensure events stream", zap.Error(err))
	}
	return nc, pub
}

func readyFunc(pool *pgxpool.Pool) func() error {
	if pool == nil {
		return nil
	}
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			return errors.New("database unreachable")
		}
		return nil
	}
}
