package main

import (
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/osool/allowance-gateway/internal/audit"
	"github.com/osool/allowance-gateway/internal/config"
	"github.com/osool/allowance-gateway/internal/handlers"
	"github.com/osool/allowance-gateway/internal/repository"
	"github.com/osool/allowance-gateway/internal/services"
	xhttp "github.com/osool/allowance-gateway/pkg/http"
	"github.com/osool/allowance-gateway/pkg/logger"
	"github.com/osool/allowance-gateway/pkg/pg"
	"github.com/osool/allowance-gateway/pkg/prom"
	"github.com/osool/allowance-gateway/pkg/redis"
	"github.com/shopspring/decimal"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	// transport (tcp for now)
	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Server.ReadBufferSize = 1024 * 16
	s.Server.WriteBufferSize = 1024 * 16
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(time.Second * 5))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

	readConf := pg.Config{
		User:     config.Get().PostgresReadUser,
		Host:     config.Get().PostgresReadHost,
		Port:     config.Get().PostgresReadPort,
		Password: config.Get().PostgresReadPassword,
		Database: config.Get().PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}

	pgDebug := false
	if config.Get().AppEnv == "dev" {
		pgDebug = true
	}
	db, err := pg.CreateReadWrite(readConf, writeConf, pgDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", config.Get().RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{config.Get().RedisAddr},
		ClientName: "default",
		DB:         config.Get().RedisDatabase,
		Username:   config.Get().RedisUsername,
		Password:   config.Get().RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	if config.Get().AppDebugMetricsAddr != "" {
		if err := prom.Create(config.Get().AppDebugMetricsAddr, config.Get().AppEnv, config.Get().PromNamespace); err != nil {
			logger.Error("failed creating metrics registry", "error", err)
		} else {
			go prom.ListenAndServer(config.Get().AppDebugMetricsAddr, config.Get().AppDebugMetricsURI)
		}
	}

	defaultBase, err := decimal.NewFromString(config.Get().DefaultDailyAllowance)
	if err != nil {
		logger.Error("invalid DEFAULT_DAILY_ALLOWANCE", "error", err)
		return
	}

	auditPublisher := audit.NewPublisher(redisAdap, audit.PublisherConfig{
		Stream:     config.Get().AuditStreamName,
		MaxLen:     config.Get().AuditStreamMaxLen,
		BufferSize: config.Get().AuditBufferSize,
		Workers:    config.Get().AuditWorkers,
	})
	go func() {
		if err := auditPublisher.Start(); err != nil {
			logger.Info("audit publisher stopped", "reason", err)
		}
	}()

	holderRepo := repository.NewHolderRepository(db)
	directoryRepo := repository.NewDirectoryRepository(db)
	allowanceRepo := repository.NewAllowanceRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)

	// services
	tokenService := services.NewTokenService(redisAdap, services.TokenConfig{
		AttendanceTTL: config.Get().AttendanceTokenTTL,
		SpendTTL:      config.Get().SpendTokenTTL,
	})
	balanceCache := services.NewBalanceCacheService(redisAdap, config.Get().BalanceCacheTTL)
	ledgerService := services.NewLedgerService(allowanceRepo, transactionRepo, holderRepo, directoryRepo, balanceCache, auditPublisher, defaultBase)
	attendanceService := services.NewAttendanceService(attendanceRepo, holderRepo, directoryRepo, tokenService, auditPublisher)
	posService := services.NewPOSService(tokenService, ledgerService, balanceCache, holderRepo)
	healthService := services.NewHealthService(db, redisAdap)

	// v1 handlers
	tokenHandler := handlers.NewTokenHandler(attendanceService, posService)
	attendanceHandler := handlers.NewAttendanceHandler(attendanceService)
	ledgerHandler := handlers.NewLedgerHandler(ledgerService, posService)
	healthHandler := handlers.NewHealthHandler(healthService)

	g := s.Router.Group("/api/v1")
	handlers.RegisterTokenRoutes(g, tokenHandler)
	handlers.RegisterAttendanceRoutes(g, attendanceHandler)
	handlers.RegisterLedgerRoutes(g, ledgerHandler)
	handlers.RegisterHealthRoutes(g, healthHandler)

	// Create new server
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Kill)

	go func() {
		var err = s.ListenAndServe(config.Get().HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	select {
	case <-c:
		auditPublisher.Stop()
		s.Shutdown()
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
