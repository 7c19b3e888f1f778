// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"polygon-overlap/internal/api"
	"polygon-overlap/internal/config"
	"polygon-overlap/internal/jobs"
	"polygon-overlap/internal/logger"
	"polygon-overlap/internal/metrics"
	"polygon-overlap/internal/middleware"
	"polygon-overlap/internal/migrate"
	"polygon-overlap/internal/utils"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	// 日志初始化
	l := logger.Setup()
	l.Debug("log_init_ok")
	cfg := config.Load()
	if err := config.ValidateHausdorffMode(cfg.HausdorffMode); err != nil {
		l.Error("config_error", "err", err)
		os.Exit(1)
	}
	l.Debug("config_api_base", "base", cfg.APIBase)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, closeDeps, err := jobs.DepsFromEnv(ctx, cfg)
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer closeDeps()
	if deps.DB != nil {
		if err := migrate.EnsureSchema(deps.DB); err != nil {
			l.Error("schema_error", "err", err)
			closeDeps()
			os.Exit(1)
		}
	}

	rc := utils.OpenRedisFromEnv()
	if rc == nil {
		l.Info("redis_disabled")
	} else {
		if err := rc.Ping(ctx).Err(); err != nil {
			l.Error("redis_ping_error", "err", err)
		} else {
			l.Info("redis_ping_ok")
		}
		defer rc.Close()
	}

	jm := jobs.NewManager(jobs.RunnerFor(deps), rc, cfg.JobTTL)
	// 文档注释：构建路由（任务管理器与结果缓存）
	apiMux := api.BuildRoutes(api.Deps{
		Jobs:          jm,
		JobDefaults:   jobs.Spec{Old: cfg.Old, New: cfg.New, Output: cfg.Output},
		DataDir:       cfg.JobDataDir,
		Cache:         api.NewResultCache(rc, cfg.ResultCacheTTL),
		HausdorffMode: cfg.HausdorffMode,
		MaxBodyBytes:  cfg.MaxBodyBytes,
	})
	mux := http.NewServeMux()
	mux.Handle(cfg.APIBase+"/", http.StripPrefix(cfg.APIBase, apiMux))
	mux.Handle(cfg.APIBase+"/metrics", metrics.Handler())

	handler := logger.AccessMiddleware(l)(mux)
	handler = middleware.Wrap(handler, cfg.RateLimitEnabled, cfg.RateLimitQPS)
	s := &http.Server{Addr: cfg.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		l.Info("shutdown_begin")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.Shutdown(sctx)
		jm.Shutdown()
	}()

	l.Info("listening", "addr", cfg.Addr)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("listen_error", "err", err)
		closeDeps()
		os.Exit(1)
	}
	<-ctx.Done()
	jm.Shutdown()
	l.Info("shutdown_done")
}
