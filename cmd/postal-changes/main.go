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

// 文档注释：邮编/区划边界变化批处理
// 背景：两版均按名称去重后逐个比对，输出 Jaccard 指数、Hausdorff 距离及其归一化值（除以两几何最远点距）；不输出几何。
// 约束：无匹配时 Jaccard 记 0、两个距离为空值；HAUSDORFF_MODE 选择 symmetric（默认）或 directed（新→旧）。
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

	spec := jobs.Spec{Kind: similarity.VariantDivergence, Old: cfg.Old, New: cfg.New, Output: cfg.Output}
	runID := uuid.NewString()
	prog := progress.Logger(l, "postal_changes_progress", cfg.ProgressLogStep)
	sum, err := jobs.Execute(ctx, deps, runID, spec, prog)
	if err != nil {
		l.Error("postal_changes_error", "run_id", runID, "emitted", sum.Emitted, "err", err)
		closeDeps()
		os.Exit(1)
	}
	if sum.Canceled {
		l.Info("postal_changes_canceled", "run_id", runID, "emitted", sum.Emitted, "total", sum.Total)
		return
	}
	l.Info("postal_changes_done", "run_id", runID, "emitted", sum.Emitted, "matched", sum.Matched, "unmatched", sum.Unmatched)
}
