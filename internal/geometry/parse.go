package geometry

import (
	"bytes"
	"fmt"

	"github.com/peterstace/simplefeatures/geom"
)

// FromWKT：解析 WKT；空串视为空几何
// 约束：不做拓扑校验，退化环（面积为 0、自接触）照常读入，由 Planar 按空几何处理
func FromWKT(s string) (geom.Geometry, error) {
	if s == "" {
		return geom.Geometry{}, nil
	}
	g, err := geom.UnmarshalWKT(s, geom.NoValidate{})
	if err != nil {
		return geom.Geometry{}, fmt.Errorf("parse wkt: %w", err)
	}
	return g, nil
}

// FromGeoJSON：解析 GeoJSON geometry 对象；缺失或 null 视为空几何
func FromGeoJSON(b []byte) (geom.Geometry, error) {
	t := bytes.TrimSpace(b)
	if len(t) == 0 || bytes.Equal(t, []byte("null")) {
		return geom.Geometry{}, nil
	}
	g, err := geom.UnmarshalGeoJSON(t, geom.NoValidate{})
	if err != nil {
		return geom.Geometry{}, fmt.Errorf("parse geojson: %w", err)
	}
	return g, nil
}

// MustWKT 仅用于测试与常量构造
func MustWKT(s string) geom.Geometry {
	g, err := FromWKT(s)
	if err != nil {
		panic(err)
	}
	return g
}

// Square：轴对齐矩形 (x0,y0)-(x1,y1)
func Square(x0, y0, x1, y1 float64) geom.Geometry {
	return MustWKT(fmt.Sprintf("POLYGON((%g %g,%g %g,%g %g,%g %g,%g %g))",
		x0, y0, x1, y0, x1, y1, x0, y1, x0, y0))
}
