package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"healthrisk/config"
	"healthrisk/db"
	qhttp "healthrisk/http"
	"healthrisk/logging"
	"healthrisk/monitoring"
	"healthrisk/predict"
	"healthrisk/registry"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default $HEALTHRISK_CONFIG or ./config.yaml)")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("exiting with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. 加载模型，失败不退出，相关疾病返回 ModelUnavailable
	reg := registry.New(registry.Options{
		Sources:  cfg.Sources(),
		Isolated: cfg.Models.Isolated,
		Logger:   logger,
	})
	models, loadErr := reg.Load()
	if loadErr != nil {
		for _, e := range multierr.Errors(loadErr) {
			logger.Error("model load failed", zap.Error(e))
		}
	}
	logger.Info("model registry ready",
		zap.String("dir", cfg.Models.Dir),
		zap.Bool("isolated", cfg.Models.Isolated),
		zap.Int("loaded", len(models)))

	// 4. 模型加载审计日志
	var history qhttp.LoadHistory
	if cfg.Database.Path != "" {
		store, err := db.Open(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer store.Close()
		if err := store.SaveModelLoads(reg.Status()); err != nil {
			logger.Warn("failed to record model loads", zap.Error(err))
		}
		history = store
		logger.Info("database initialized", zap.String("path", cfg.Database.Path))
	}

	if cfg.Models.Watch {
		watcher, err := reg.Watch(ctx)
		if err != nil {
			logger.Warn("model watcher disabled", zap.Error(err))
		} else {
			defer func() {
				stop()
				watcher.Wait()
			}()
		}
	}

	// 5. 指标与预测分发
	collector := monitoring.NewMetricsCollector()
	collector.StartSystemMetrics(ctx, 15*time.Second)

	dispatcher, err := predict.NewDispatcher(reg, predict.Options{
		CacheSize: cfg.Cache.Size,
		Metrics:   monitoring.NewPredictionMetrics(collector),
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	// 6. 启动HTTP服务器
	api := qhttp.NewAPI(qhttp.APIOptions{
		Predictor:      dispatcher,
		Models:         reg,
		History:        history,
		Metrics:        collector,
		Logger:         logger,
		AllowedOrigins: cfg.Http.AllowedOrigins,
	})
	serverConfig := qhttp.DefaultServerConfig()
	serverConfig.Port = cfg.Http.Port
	serverConfig.Timeout = cfg.Http.Timeout
	serverConfig.AllowedOrigins = cfg.Http.AllowedOrigins
	server := qhttp.NewServer(serverConfig, api)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// 7. 优雅关闭
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	if err := server.Stop(); err != nil {
		logger.Warn("server forced to shutdown", zap.Error(err))
	}
	logger.Info("exiting")
	return nil
}
