package geometry

import (
	"math"

	"github.com/peterstace/simplefeatures/geom"
)

// shape：几何的边界线段与顶点展开，用于距离计算
// 约束：面（含多面与集合中的面）展开为环线段；其他类型退化为孤立顶点
type shape struct {
	segs     [][2]geom.XY
	vertices []geom.XY
}

func (s shape) empty() bool { return len(s.vertices) == 0 }

func shapeOf(g geom.Geometry) shape {
	var s shape
	s.add(g)
	return s
}

func (s *shape) add(g geom.Geometry) {
	if g.IsEmpty() {
		return
	}
	switch g.Type() {
	case geom.TypePolygon:
		s.addPolygon(g.MustAsPolygon())
	case geom.TypeMultiPolygon:
		mp := g.MustAsMultiPolygon()
		for i := 0; i < mp.NumPolygons(); i++ {
			s.addPolygon(mp.PolygonN(i))
		}
	case geom.TypeGeometryCollection:
		gc := g.MustAsGeometryCollection()
		for i := 0; i < gc.NumGeometries(); i++ {
			s.add(gc.GeometryN(i))
		}
	default:
		for _, v := range xys(g.DumpCoordinates()) {
			s.vertices = append(s.vertices, v)
			s.segs = append(s.segs, [2]geom.XY{v, v})
		}
	}
}

func (s *shape) addPolygon(p geom.Polygon) {
	if p.IsEmpty() {
		return
	}
	s.addRing(p.ExteriorRing())
	for i := 0; i < p.NumInteriorRings(); i++ {
		s.addRing(p.InteriorRingN(i))
	}
}

func (s *shape) addRing(ls geom.LineString) {
	pts := xys(ls.Coordinates())
	for i, v := range pts {
		s.vertices = append(s.vertices, v)
		if i+1 < len(pts) {
			s.segs = append(s.segs, [2]geom.XY{v, pts[i+1]})
		}
	}
}

// distanceTo：点到边界线的最近距离
func (s shape) distanceTo(p geom.XY) float64 {
	best := math.Inf(1)
	for _, sg := range s.segs {
		if d := segmentDistance(p, sg[0], sg[1]); d < best {
			best = d
			if best == 0 {
				break
			}
		}
	}
	return best
}

func segmentDistance(p, a, b geom.XY) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return dist(p, a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return dist(p, geom.XY{X: a.X + t*dx, Y: a.Y + t*dy})
}

func dist(p, q geom.XY) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

func xys(seq geom.Sequence) []geom.XY {
	n := seq.Length()
	out := make([]geom.XY, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, seq.GetXY(i))
	}
	return out
}
