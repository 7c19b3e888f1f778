// 包 jobs：比对任务的执行与管理
// 背景：批处理工具与 HTTP 服务共用同一执行路径：打开来源与写出端 → 运行引擎 → 收尾；HTTP 侧通过 Manager 异步运行并查询进度。
// 约束：配置错误在任何输出产生之前返回；取消经 context 传入，引擎只看到取消轮询。
package jobs

import (
	"context"
	"database/sql"
	"fmt"

	"polygon-overlap/internal/config"
	"polygon-overlap/internal/geometry"
	"polygon-overlap/internal/logger"
	"polygon-overlap/internal/progress"
	"polygon-overlap/internal/similarity"
	"polygon-overlap/internal/sink"
	"polygon-overlap/internal/source"
)

// Spec：一次比对的完整描述
type Spec struct {
	Kind          string              `json:"kind"`
	Old           config.SourceConfig `json:"old"`
	New           config.SourceConfig `json:"new"`
	Output        config.OutputConfig `json:"output"`
	HausdorffMode string              `json:"hausdorff_mode,omitempty"`
}

// Deps：执行依赖；DB 为 nil 时仅支持文件来源与文件输出
type Deps struct {
	DB            *sql.DB
	HausdorffMode string
}

// Validate：只检查与运行环境无关的字段（变体与 Hausdorff 口径）
func (s Spec) Validate() error {
	if s.Kind != similarity.VariantOverlap && s.Kind != similarity.VariantDivergence {
		return fmt.Errorf("%w: unknown comparison kind %q", config.ErrConfig, s.Kind)
	}
	if s.HausdorffMode != "" {
		return config.ValidateHausdorffMode(s.HausdorffMode)
	}
	return nil
}

// Execute：同步运行一次比对
// 返回：取消时 Summary.Canceled=true 且 error 为 nil；写出端关闭失败在运行成功时作为错误返回
func Execute(ctx context.Context, deps Deps, runID string, spec Spec, prog progress.Sink) (similarity.Summary, error) {
	if err := spec.Validate(); err != nil {
		return similarity.Summary{Variant: spec.Kind}, err
	}
	mode := hausdorffMode(spec, deps)
	oldSrc, err := source.Open(ctx, deps.DB, "old", spec.Old)
	if err != nil {
		return similarity.Summary{Variant: spec.Kind}, err
	}
	newSrc, err := source.Open(ctx, deps.DB, "new", spec.New)
	if err != nil {
		return similarity.Summary{Variant: spec.Kind}, err
	}
	out, err := sink.Open(ctx, deps.DB, spec.Output, spec.Kind, runID)
	if err != nil {
		return similarity.Summary{Variant: spec.Kind}, err
	}

	l := logger.L().With("run_id", runID)
	e := similarity.New(geometry.NewPlanar(geometry.ParseMode(mode))).WithLogger(l)
	l.Info("run_begin", "kind", spec.Kind, "old", spec.Old.Kind, "new", spec.New.Kind, "output", spec.Output.Kind, "hausdorff", mode)
	canceled := progress.FromContext(ctx)
	var sum similarity.Summary
	if spec.Kind == similarity.VariantOverlap {
		sum, err = e.Overlap(oldSrc, newSrc, out, prog, canceled)
	} else {
		sum, err = e.Divergence(oldSrc, newSrc, out, prog, canceled)
	}
	if cerr := out.Close(); cerr != nil {
		l.Error("sink_close_error", "err", cerr)
		if err == nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
	}
	return sum, err
}

// hausdorffMode：任务指定优先，其次为服务配置，均未设置时为 symmetric
func hausdorffMode(spec Spec, deps Deps) string {
	switch {
	case spec.HausdorffMode != "":
		return spec.HausdorffMode
	case deps.HausdorffMode != "":
		return deps.HausdorffMode
	}
	return config.HausdorffSymmetric
}

// RunnerFor：以固定依赖包装 Execute，供 Manager 使用
func RunnerFor(deps Deps) Runner {
	return func(ctx context.Context, id string, spec Spec, prog progress.Sink) (similarity.Summary, error) {
		return Execute(ctx, deps, id, spec, prog)
	}
}
