package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/quantora/hedgingengine/internal/hedging/application"
	"github.com/quantora/hedgingengine/internal/hedging/domain"
	"github.com/quantora/hedgingengine/internal/hedging/infrastructure/client"
	"github.com/quantora/hedgingengine/internal/hedging/infrastructure/messaging"
	"github.com/quantora/hedgingengine/internal/hedging/infrastructure/persistence/mysql"
	redispersist "github.com/quantora/hedgingengine/internal/hedging/infrastructure/persistence/redis"
	httpiface "github.com/quantora/hedgingengine/internal/hedging/interfaces/http"
	"github.com/quantora/hedgingengine/pkg/cache"
	"github.com/quantora/hedgingengine/pkg/config"
	"github.com/quantora/hedgingengine/pkg/db"
	"github.com/quantora/hedgingengine/pkg/idgen"
	"github.com/quantora/hedgingengine/pkg/logger"
	"github.com/quantora/hedgingengine/pkg/metrics"
	"github.com/quantora/hedgingengine/pkg/mq"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "configs/hedging/config.toml", "path to config file")
	flag.Parse()

	// 1. Config
	cfg, err := config.Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("load config failed: %v", err))
	}

	// 2. Logger
	if err := logger.Init(cfg.Logger); err != nil {
		panic(fmt.Sprintf("init logger failed: %v", err))
	}
	log := logger.Get()

	// 3. Database
	gormDB, err := db.Init(db.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		panic(fmt.Sprintf("connect db failed: %v", err))
	}
	if err := gormDB.AutoMigrate(
		&mysql.PositionModel{},
		&mysql.AccountModel{},
		&mysql.CommitmentModel{},
		&messaging.OutboxMessage{},
	); err != nil {
		panic(fmt.Sprintf("migrate db failed: %v", err))
	}

	// 4. Redis & Kafka
	redisCache, err := cache.New(cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		panic(fmt.Sprintf("connect redis failed: %v", err))
	}
	defer redisCache.Close()

	producer := mq.NewProducer(mq.KafkaConfig{
		Brokers:    cfg.Kafka.Brokers,
		MaxRetries: cfg.Kafka.MaxRetries,
	})
	defer producer.Close()

	// 5. Infrastructure
	idGenerator, err := idgen.New(cfg.Engine.SnowflakeNode)
	if err != nil {
		panic(fmt.Sprintf("init id generator failed: %v", err))
	}

	oracle := client.NewHTTPPriceOracle(
		cfg.Oracle.Endpoint,
		time.Duration(cfg.Oracle.TimeoutMs)*time.Millisecond,
		redisCache,
		time.Duration(cfg.Oracle.CacheTTL)*time.Second,
	)
	vault := client.NewHTTPCollateralVault(
		cfg.Vault.Endpoint,
		time.Duration(cfg.Vault.TimeoutMs)*time.Millisecond,
	)
	blocks := client.NewIntervalBlockSource(
		time.Unix(0, 0),
		time.Duration(cfg.Engine.BlockIntervalMs)*time.Millisecond,
	)
	positionCache := redispersist.NewPositionCache(redisCache, 10*time.Minute)

	m := metrics.New(cfg.ServiceName)

	// 6. Application
	params, err := engineParams(cfg.Engine)
	if err != nil {
		panic(fmt.Sprintf("invalid engine params: %v", err))
	}
	treasuryFloat, err := decimal.NewFromString(cfg.Engine.TreasuryFloat)
	if err != nil {
		panic(fmt.Sprintf("invalid treasury float: %v", err))
	}

	service, err := application.NewHedgingService(params, application.Dependencies{
		Oracle:        oracle,
		Vault:         vault,
		Blocks:        blocks,
		IDGen:         idGenerator,
		Positions:     mysql.NewPositionRepository(gormDB),
		Accounts:      mysql.NewAccountRepository(gormDB),
		Commitments:   mysql.NewCommitmentRepository(gormDB),
		Publisher:     messaging.NewOutboxEventPublisher(gormDB),
		Cache:         positionCache,
		Metrics:       m,
		Logger:        log,
		TreasuryFloat: treasuryFloat,
	})
	if err != nil {
		panic(fmt.Sprintf("init hedging service failed: %v", err))
	}
	if err := service.LoadState(context.Background()); err != nil {
		panic(fmt.Sprintf("restore ledger state failed: %v", err))
	}

	// 7. Interfaces
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), httpiface.LoggingMiddleware(), httpiface.MetricsMiddleware(m))
	handler := httpiface.NewHedgingHandler(service, cfg.Engine.AdminAPIKey)
	handler.RegisterRoutes(r.Group(""))

	// 8. Start
	g, ctx := errgroup.WithContext(context.Background())

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}
	g.Go(func() error {
		log.Info("http server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		metricsSrv = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: mux,
		}
		g.Go(func() error {
			log.Info("metrics server starting", "addr", metricsSrv.Addr)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
	}

	relay := messaging.NewOutboxRelay(gormDB, producer, cfg.Kafka.OutboxTopic, log)
	g.Go(func() error {
		return relay.Start(ctx)
	})

	// 9. Graceful Shutdown
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-quit:
			log.Info("shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
			log.Info("context cancelled, shutting down")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// engineParams 将基点配置转换为引擎风控参数
func engineParams(cfg config.EngineConfig) (domain.EngineParams, error) {
	params := domain.DefaultEngineParams()
	if cfg.MaxLeverage > 0 {
		params.MaxLeverage = decimal.NewFromInt(cfg.MaxLeverage)
	}
	if cfg.MinMarginRatioBps > 0 {
		params.MinMarginRatio = bpsRatio(cfg.MinMarginRatioBps)
	}
	if cfg.MaxMarginRatioBps > 0 {
		params.MaxMarginRatio = bpsRatio(cfg.MaxMarginRatioBps)
	}
	if cfg.LiquidationThresholdBps > 0 {
		params.LiquidationThreshold = bpsRatio(cfg.LiquidationThresholdBps)
	}
	if cfg.EntryFeeBps > 0 {
		params.EntryFeeBps = cfg.EntryFeeBps
	}
	if cfg.ExitFeeBps > 0 {
		params.ExitFeeBps = cfg.ExitFeeBps
	}
	if cfg.LiquidationRewardBps > 0 {
		params.LiquidationRewardBps = cfg.LiquidationRewardBps
	}
	if cfg.MaxLiquidationRewardBps > 0 {
		params.MaxLiquidationRewardBps = cfg.MaxLiquidationRewardBps
	}
	if cfg.MaxPositionsPerHedger > 0 {
		params.MaxPositionsPerHedger = cfg.MaxPositionsPerHedger
	}
	if cfg.LiquidationCooldownSec > 0 {
		params.LiquidationCooldown = time.Duration(cfg.LiquidationCooldownSec) * time.Second
	}
	if cfg.CommitmentWindowSec > 0 {
		params.CommitmentWindow = time.Duration(cfg.CommitmentWindowSec) * time.Second
	}
	if cfg.EURInterestRateBps > 0 {
		params.EURInterestRateBps = cfg.EURInterestRateBps
	}
	if cfg.USDInterestRateBps > 0 {
		params.USDInterestRateBps = cfg.USDInterestRateBps
	}
	if cfg.MaxRewardPeriodBlocks > 0 {
		params.MaxRewardPeriodBlocks = cfg.MaxRewardPeriodBlocks
	}
	if cfg.BlocksPerYear > 0 {
		params.BlocksPerYear = cfg.BlocksPerYear
	}
	return params, params.Validate()
}

func bpsRatio(bps int64) decimal.Decimal {
	return decimal.NewFromInt(bps).Div(decimal.NewFromInt(domain.BpsDenominator))
}
