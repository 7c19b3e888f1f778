// 包 geometry：几何能力提供者
// 背景：相似度引擎只依赖面积、交、并、Hausdorff 距离与最大点对距离五个操作；实现可替换。
// 约束：空几何不报错，按零面积处理；结构非法的几何由实现返回 error，调用方视为致命错误。
package geometry

import (
	"github.com/peterstace/simplefeatures/geom"
)

type Provider interface {
	Area(g geom.Geometry) float64
	Intersection(a, b geom.Geometry) (geom.Geometry, error)
	Union(a, b geom.Geometry) (geom.Geometry, error)
	// HausdorffDistance：边界之间的离散 Hausdorff 距离（方向性由实现配置决定）
	HausdorffDistance(a, b geom.Geometry) (float64, error)
	// MaxDistance：a 中任一点与 b 中任一点之间的最大距离
	MaxDistance(a, b geom.Geometry) (float64, error)
}

// Mode：Hausdorff 距离方向
type Mode int

const (
	// Symmetric 取 a→b 与 b→a 两个方向的较大值
	Symmetric Mode = iota
	// Directed 仅计算 a→b（a 为新版几何）
	Directed
)

func (m Mode) String() string {
	if m == Directed {
		return "directed"
	}
	return "symmetric"
}

// ParseMode：未知值回退 Symmetric
func ParseMode(s string) Mode {
	if s == "directed" {
		return Directed
	}
	return Symmetric
}
