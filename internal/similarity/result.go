package similarity

import (
	"fmt"

	"polygon-overlap/internal/region"

	"github.com/peterstace/simplefeatures/geom"
)

const (
	VariantOverlap    = "overlap"
	VariantDivergence = "divergence"
)

// OverlapResult：面积相似度输出（携带新版几何）
type OverlapResult struct {
	Name         region.Name   `json:"Name"`
	JaccardIndex Metric        `json:"Jaccard_index"`
	Geometry     geom.Geometry `json:"-"`
}

// DivergenceResult：边界差异输出（不携带几何）
type DivergenceResult struct {
	Name                        region.Name `json:"NAME"`
	JaccardIndex                float64     `json:"jaccard_index"`
	HausdorffDistance           Metric      `json:"hausdorff_distance"`
	HausdorffDistanceNormalized Metric      `json:"hausdorff_distance_normalized"`
}

type OverlapSink interface {
	WriteOverlap(OverlapResult) error
}

type DivergenceSink interface {
	WriteDivergence(DivergenceResult) error
}

// Summary：一次运行的计数
// Total 为匹配阶段待处理条数：A 为新版记录数，B 为新版去重后的名称数
type Summary struct {
	Variant   string `json:"variant"`
	Total     int    `json:"total"`
	Emitted   int    `json:"emitted"`
	Matched   int    `json:"matched"`
	Unmatched int    `json:"unmatched"`
	Canceled  bool   `json:"canceled"`
}

// RecordError：单条记录的几何运算失败
type RecordError struct {
	Name region.Name
	Op   string
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %s: %s: %v", e.Name, e.Op, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }
