package geometry

import (
	"math"

	"github.com/peterstace/simplefeatures/geom"
)

// Planar：基于 simplefeatures 的平面几何实现（笛卡尔坐标，不做投影）
// 约束：面积/距离单位与输入坐标一致；经纬度输入得到的是“度”量纲，需要米制结果时应先投影
type Planar struct {
	Mode Mode
}

func NewPlanar(m Mode) Planar { return Planar{Mode: m} }

func (Planar) Area(g geom.Geometry) float64 {
	if g.IsEmpty() {
		return 0
	}
	return g.Area()
}

// Intersection：任一操作数为空或为零面积面时直接返回空几何，叠置运算只处理有面积的输入
func (Planar) Intersection(a, b geom.Geometry) (geom.Geometry, error) {
	if vanishes(a) || vanishes(b) {
		return geom.Geometry{}, nil
	}
	return geom.Intersection(a, b)
}

func (Planar) Union(a, b geom.Geometry) (geom.Geometry, error) {
	if vanishes(a) {
		return b, nil
	}
	if vanishes(b) {
		return a, nil
	}
	return geom.Union(a, b)
}

// vanishes：空几何，或面积为 0 的面（退化环）
func vanishes(g geom.Geometry) bool {
	return g.IsEmpty() || (g.Dimension() == 2 && g.Area() == 0)
}

// HausdorffDistance：离散 Hausdorff（顶点到对方边界线的最近距离取最大），与 GEOS 的离散算法一致
// 约束：任一操作数为空返回 0
func (p Planar) HausdorffDistance(a, b geom.Geometry) (float64, error) {
	sa, sb := shapeOf(a), shapeOf(b)
	if sa.empty() || sb.empty() {
		return 0, nil
	}
	d := directedHausdorff(sa, sb)
	if p.Mode == Symmetric {
		d = math.Max(d, directedHausdorff(sb, sa))
	}
	return d, nil
}

// MaxDistance：两个凸包顶点之间的最大距离
// 背景：紧致集合间的最远点对必落在各自凸包的顶点上，因此只需枚举凸包顶点对
func (Planar) MaxDistance(a, b geom.Geometry) (float64, error) {
	if a.IsEmpty() || b.IsEmpty() {
		return 0, nil
	}
	ha := xys(a.ConvexHull().DumpCoordinates())
	hb := xys(b.ConvexHull().DumpCoordinates())
	best := 0.0
	for _, p := range ha {
		for _, q := range hb {
			if d := dist(p, q); d > best {
				best = d
			}
		}
	}
	return best, nil
}

func directedHausdorff(from, to shape) float64 {
	worst := 0.0
	for _, v := range from.vertices {
		if d := to.distanceTo(v); d > worst {
			worst = d
		}
	}
	return worst
}
