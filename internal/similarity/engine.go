// 包 similarity：按名称匹配新旧两版区域集合并计算相似度
// 背景：两个变体共享同一索引与进度协议。
//   - Overlap（A）：流式遍历新版记录，输出 Jaccard 指数并携带新版几何；无匹配或旧版几何为空记为“不适用”
//   - Divergence（B）：两版均建索引，按新版去重名称输出 Jaccard、Hausdorff 及归一化 Hausdorff；无匹配 Jaccard 记 0
//
// 约束：单次运行单协程、同步执行；每条记录处理前先轮询取消再上报进度；取消返回 Canceled=true 而非错误；
// 几何运算失败中止运行，已写出的结果不回滚。
package similarity

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"polygon-overlap/internal/geometry"
	"polygon-overlap/internal/index"
	"polygon-overlap/internal/logger"
	"polygon-overlap/internal/metrics"
	"polygon-overlap/internal/progress"
	"polygon-overlap/internal/region"

	"github.com/peterstace/simplefeatures/geom"
)

type Engine struct {
	geo geometry.Provider
	log *slog.Logger
}

func New(p geometry.Provider) *Engine {
	return &Engine{geo: p, log: logger.L()}
}

// WithLogger 返回使用指定日志器的副本
func (e *Engine) WithLogger(l *slog.Logger) *Engine {
	if l == nil {
		return e
	}
	c := *e
	c.log = l
	return &c
}

// Jaccard：交集面积 / 并集面积；并集面积为 0 时记 0
func Jaccard(p geometry.Provider, a, b geom.Geometry) (float64, error) {
	inter, err := p.Intersection(a, b)
	if err != nil {
		return 0, fmt.Errorf("intersection: %w", err)
	}
	uni, err := p.Union(a, b)
	if err != nil {
		return 0, fmt.Errorf("union: %w", err)
	}
	ua := p.Area(uni)
	if ua <= 0 {
		return 0, nil
	}
	return math.Min(1, p.Area(inter)/ua), nil
}

// Overlap：变体 A
// 进度：旧版索引 0–50，匹配 50–100
func (e *Engine) Overlap(oldSrc, newSrc region.Source, sink OverlapSink, prog progress.Sink, canceled progress.Canceled) (Summary, error) {
	start := time.Now()
	sum := Summary{Variant: VariantOverlap}
	mon := progress.NewMonotonic(prog)

	e.log.Info("similarity_phase", "variant", sum.Variant, "phase", "loading")
	old, complete, err := index.Build(oldSrc, progress.NewStepper(mon, oldSrc.Count(), 0, 50), canceled)
	if err != nil {
		return e.finish(sum, start, fmt.Errorf("index old collection: %w", err))
	}
	if !complete {
		sum.Canceled = true
		return e.finish(sum, start, nil)
	}

	e.log.Info("similarity_phase", "variant", sum.Variant, "phase", "computing", "old_names", old.Len())
	sum.Total = newSrc.Count()
	it, err := newSrc.Open()
	if err != nil {
		return e.finish(sum, start, fmt.Errorf("open new collection: %w", err))
	}
	defer it.Close()
	st := progress.NewStepper(mon, sum.Total, 50, 100)
	for i := 0; ; i++ {
		if progress.Poll(canceled) {
			sum.Canceled = true
			return e.finish(sum, start, nil)
		}
		st.Step(i)
		if !it.Next() {
			break
		}
		r := it.Record()
		res := OverlapResult{Name: r.Name, JaccardIndex: NotApplicable, Geometry: r.Geometry}
		// 旧版几何缺失（null）与无匹配同样处理
		if og, ok := old.Get(r.Name); ok && !og.IsEmpty() {
			j, err := Jaccard(e.geo, r.Geometry, og)
			if err != nil {
				return e.finish(sum, start, &RecordError{Name: r.Name, Op: "jaccard", Err: err})
			}
			res.JaccardIndex = Value(j)
		}
		if err := sink.WriteOverlap(res); err != nil {
			return e.finish(sum, start, fmt.Errorf("write result %s: %w", r.Name, err))
		}
		e.count(&sum, res.JaccardIndex)
	}
	if err := it.Err(); err != nil {
		return e.finish(sum, start, fmt.Errorf("read new collection: %w", err))
	}
	st.Done()
	mon.SetProgress(100)
	return e.finish(sum, start, nil)
}

// Divergence：变体 B
// 进度：新版索引 0–25，旧版索引 25–50，匹配 50–100
func (e *Engine) Divergence(oldSrc, newSrc region.Source, sink DivergenceSink, prog progress.Sink, canceled progress.Canceled) (Summary, error) {
	start := time.Now()
	sum := Summary{Variant: VariantDivergence}
	mon := progress.NewMonotonic(prog)

	e.log.Info("similarity_phase", "variant", sum.Variant, "phase", "loading")
	cur, complete, err := index.Build(newSrc, progress.NewStepper(mon, newSrc.Count(), 0, 25), canceled)
	if err != nil {
		return e.finish(sum, start, fmt.Errorf("index new collection: %w", err))
	}
	if !complete {
		sum.Canceled = true
		return e.finish(sum, start, nil)
	}
	old, complete, err := index.Build(oldSrc, progress.NewStepper(mon, oldSrc.Count(), 25, 50), canceled)
	if err != nil {
		return e.finish(sum, start, fmt.Errorf("index old collection: %w", err))
	}
	if !complete {
		sum.Canceled = true
		return e.finish(sum, start, nil)
	}

	names := cur.Names()
	sum.Total = len(names)
	e.log.Info("similarity_phase", "variant", sum.Variant, "phase", "computing", "new_names", sum.Total, "old_names", old.Len())
	st := progress.NewStepper(mon, sum.Total, 50, 100)
	for i, n := range names {
		if progress.Poll(canceled) {
			sum.Canceled = true
			return e.finish(sum, start, nil)
		}
		st.Step(i)
		ng, _ := cur.Get(n)
		res, err := e.diverge(n, ng, old)
		if err != nil {
			return e.finish(sum, start, err)
		}
		if err := sink.WriteDivergence(res); err != nil {
			return e.finish(sum, start, fmt.Errorf("write result %s: %w", n, err))
		}
		if res.HausdorffDistance.Valid {
			e.count(&sum, Value(res.JaccardIndex))
		} else {
			e.count(&sum, NotApplicable)
		}
	}
	st.Done()
	mon.SetProgress(100)
	return e.finish(sum, start, nil)
}

func (e *Engine) diverge(n region.Name, ng geom.Geometry, old *index.Index) (DivergenceResult, error) {
	res := DivergenceResult{Name: n, HausdorffDistance: NotApplicable, HausdorffDistanceNormalized: NotApplicable}
	og, ok := old.Get(n)
	if !ok {
		return res, nil
	}
	j, err := Jaccard(e.geo, ng, og)
	if err != nil {
		return res, &RecordError{Name: n, Op: "jaccard", Err: err}
	}
	hd, err := e.geo.HausdorffDistance(ng, og)
	if err != nil {
		return res, &RecordError{Name: n, Op: "hausdorff_distance", Err: err}
	}
	md, err := e.geo.MaxDistance(ng, og)
	if err != nil {
		return res, &RecordError{Name: n, Op: "max_distance", Err: err}
	}
	res.JaccardIndex = j
	res.HausdorffDistance = Value(hd)
	if md > 0 {
		res.HausdorffDistanceNormalized = Value(hd / md)
	}
	return res, nil
}

// count：j 有效即视为匹配
func (e *Engine) count(sum *Summary, j Metric) {
	sum.Emitted++
	if j.Valid {
		sum.Matched++
		metrics.RecordsTotal.WithLabelValues(sum.Variant, "matched").Inc()
		metrics.JaccardIndex.WithLabelValues(sum.Variant).Observe(j.Value)
		return
	}
	sum.Unmatched++
	metrics.RecordsTotal.WithLabelValues(sum.Variant, "unmatched").Inc()
}

func (e *Engine) finish(sum Summary, start time.Time, err error) (Summary, error) {
	ms := float64(time.Since(start).Milliseconds())
	metrics.RunDurationMs.WithLabelValues(sum.Variant).Observe(ms)
	switch {
	case err != nil:
		metrics.RunsTotal.WithLabelValues(sum.Variant, "failed").Inc()
		e.log.Error("similarity_failed", "variant", sum.Variant, "emitted", sum.Emitted, "err", err)
	case sum.Canceled:
		metrics.RunsTotal.WithLabelValues(sum.Variant, "canceled").Inc()
		e.log.Info("similarity_canceled", "variant", sum.Variant, "emitted", sum.Emitted, "total", sum.Total)
	default:
		metrics.RunsTotal.WithLabelValues(sum.Variant, "done").Inc()
		e.log.Info("similarity_done", "variant", sum.Variant, "emitted", sum.Emitted, "matched", sum.Matched, "unmatched", sum.Unmatched, "ms", ms)
	}
	return sum, err
}
