package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"polygon-overlap/internal/config"
	"polygon-overlap/internal/jobs"
	"polygon-overlap/internal/logger"
	"polygon-overlap/internal/progress"
	"polygon-overlap/internal/similarity"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// 文档注释：面积相似度（Jaccard）批处理
// 背景：按名称匹配新旧两版多边形，输出新版几何及其 Jaccard 指数；无匹配记为空值。
// 约束：输入输出由环境变量决定（见 internal/config）；Ctrl-C 协作式停止，已写结果保留并以 0 退出。
func main() {
	_ = godotenv.Load(".env")
	l := logger.Setup()
	cfg := config.Load()
	if err := config.ValidateHausdorffMode(cfg.HausdorffMode); err != nil {
		l.Error("config_error", "err", err)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, closeDeps, err := jobs.DepsFromEnv(ctx, cfg)
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer closeDeps()

	spec := jobs.Spec{Kind: similarity.VariantOverlap, Old: cfg.Old, New: cfg.New, Output: cfg.Output}
	runID := uuid.NewString()
	prog := progress.Logger(l, "area_similarity_progress", cfg.ProgressLogStep)
	sum, err := jobs.Execute(ctx, deps, runID, spec, prog)
	if err != nil {
		l.Error("area_similarity_error", "run_id", runID, "emitted", sum.Emitted, "err", err)
		closeDeps()
		os.Exit(1)
	}
	if sum.Canceled {
		l.Info("area_similarity_canceled", "run_id", runID, "emitted", sum.Emitted, "total", sum.Total)
		return
	}
	l.Info("area_similarity_done", "run_id", runID, "emitted", sum.Emitted, "matched", sum.Matched, "unmatched", sum.Unmatched)
}
