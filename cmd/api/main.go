package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nimasrn/cash-ledger/internal/auth"
	"github.com/nimasrn/cash-ledger/internal/config"
	"github.com/nimasrn/cash-ledger/internal/handlers"
	"github.com/nimasrn/cash-ledger/internal/queue"
	"github.com/nimasrn/cash-ledger/internal/repository"
	"github.com/nimasrn/cash-ledger/internal/services"
	xhttp "github.com/nimasrn/cash-ledger/pkg/http"
	"github.com/nimasrn/cash-ledger/pkg/logger"
	"github.com/nimasrn/cash-ledger/pkg/pg"
	"github.com/nimasrn/cash-ledger/pkg/prom"
	"github.com/nimasrn/cash-ledger/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	defer logger.Sync()

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	cfg := config.Get()
	logger.Info("starting api", "version", version, "commit", commit, "date", date, "env", cfg.AppEnv)

	db, err := pg.CreateReadWrite(cfg.PostgresRead(), cfg.PostgresWrite(), cfg.AppEnv == "dev")
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}
	defer db.Close()

	redisOpts := cfg.RedisOptions()
	redisOpts.ClientName = "default"
	redisAdap, err := redis.NewRedisAdapter("default", cfg.RedisUniversalKeyPrefix, redisOpts)
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	if err = prom.Create(hostname, cfg.AppEnv, cfg.PromNamespace); err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}
	if cfg.AppDebugMetricsAddr != "" {
		go prom.ListenAndServer(cfg.AppDebugMetricsAddr, cfg.AppDebugMetricsURI)
	}

	// ledger writes still succeed when the stream is unavailable
	var events services.EventPublisher = services.NopPublisher{}
	q, err := queue.NewQueue(redisAdap, queue.Config{
		Name:              cfg.QueueName,
		ConsumerGroup:     cfg.QueueConsumerGroup,
		ConsumerName:      cfg.QueueConsumerName,
		MaxRetries:        cfg.QueueMaxRetries,
		VisibilityTimeout: cfg.QueueVisibilityTimeout,
		PollInterval:      cfg.QueuePollInterval,
		BatchSize:         cfg.QueueBatchSize,
		MaxLen:            cfg.QueueMaxLen,
		EnableDLQ:         cfg.QueueEnableDLQ,
	})
	if err != nil {
		logger.Error("failed creating event queue, events disabled", "error", err)
	} else {
		events = queue.NewEventPublisher(q)
	}

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTokenTTL)
	if err != nil {
		logger.Error("failed creating token issuer", "error", err)
		return
	}
	sessions := auth.NewSessionStore(redisAdap)

	userRepo := repository.NewUserRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	// services
	authService := services.NewAuthService(
		userRepo,
		auth.NewPasswordHasher(cfg.BcryptCost),
		tokens,
		sessions,
		auth.NewLoginGuard(redisAdap, cfg.LoginMaxFailures, cfg.LoginLockWindow),
	)
	customerService := services.NewCustomerService(customerRepo, transactionRepo, events)
	transactionService := services.NewTransactionService(customerRepo, transactionRepo, events)
	activityService := services.NewActivityService(activityRepo)
	healthService := services.NewHealthService(db, redisAdap)

	// transport
	s := xhttp.NewServer(xhttp.ServerOption{
		ReadTimeout:     cfg.HttpServerReadTimeout,
		WriteTimeout:    cfg.HttpServerWriteTimeout,
		ReadBufferSize:  cfg.HttpServerReadBufferSize,
		WriteBufferSize: cfg.HttpServerWriteBufferSize,
	})
	limiter := xhttp.NewRateLimiter(cfg.HttpRateLimitPerSecond, cfg.HttpRateLimitBurst)
	if err := limiter.TrustProxies(cfg.HttpTrustedProxies); err != nil {
		logger.Error("invalid trusted proxies", "error", err)
		return
	}
	s.Use(xhttp.RequestIDMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.CORSMiddleware(cfg.HttpCorsOrigins))
	s.Use(limiter.Middleware)
	s.Use(xhttp.TimeoutMiddleware(cfg.HttpServerRequestTimeout))
	s.Use(xhttp.CompressMiddleware(6))

	requireAuth := handlers.RequireAuth(auth.NewAuthenticator(tokens, sessions))

	g := s.Router.Group("/api")
	handlers.RegisterAuthRoutes(g, handlers.NewAuthHandler(authService), requireAuth)
	handlers.RegisterCustomerRoutes(g, handlers.NewCustomerHandler(customerService), requireAuth)
	handlers.RegisterTransactionRoutes(g, handlers.NewTransactionHandler(transactionService), requireAuth)
	handlers.RegisterActivityRoutes(g, handlers.NewActivityHandler(activityService), requireAuth)
	handlers.RegisterHealthRoutes(g, handlers.NewHealthHandler(healthService))

	go func() {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for now := range t.C {
			if n := limiter.Prune(now); n > 0 {
				logger.Debug("pruned idle rate limit buckets", "count", n)
			}
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		var err error
		if cfg.HttpPrefork {
			err = s.PreforkListenAndServe(cfg.HttpListenAddr)
		} else {
			err = s.ListenAndServe(cfg.HttpListenAddr)
		}
		if err != nil {
			logger.Error("error in running http-server", "error", err)
			c <- syscall.SIGTERM
		}
	}()

	<-c
	s.Shutdown()
	if q != nil {
		if err := q.Stop(5 * time.Second); err != nil {
			logger.Warn("error stopping event queue", "error", err)
		}
	}
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
