// 包 source：区域集合来源适配器（GeoJSON 文件/字节、PostgreSQL 表）
// 约束：所有来源在打开时即可报告总数；几何在迭代时逐条解码，解析失败作为读取错误返回
package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"polygon-overlap/internal/geometry"
	"polygon-overlap/internal/region"
)

// ErrFormat 标记来源内容不符合预期结构
var ErrFormat = errors.New("source format error")

type feature struct {
	Properties map[string]any  `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

// GeoJSON：FeatureCollection 来源
type GeoJSON struct {
	nameField string
	features  []feature
}

// ParseGeoJSON：解析 FeatureCollection 外层结构；几何保留原始字节，迭代时再解码
func ParseGeoJSON(b []byte, nameField string) (*GeoJSON, error) {
	var fc struct {
		Type     string    `json:"type"`
		Features []feature `json:"features"`
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&fc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("%w: expected FeatureCollection, got %q", ErrFormat, fc.Type)
	}
	return &GeoJSON{nameField: nameField, features: fc.Features}, nil
}

// OpenGeoJSONFile：整体读入文件后解析
func OpenGeoJSONFile(path, nameField string) (*GeoJSON, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	g, err := ParseGeoJSON(b, nameField)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

func (g *GeoJSON) Count() int { return len(g.features) }

func (g *GeoJSON) Open() (region.Iterator, error) {
	return &geojsonIter{src: g, pos: -1}, nil
}

type geojsonIter struct {
	src *GeoJSON
	pos int
	cur region.Record
	err error
}

func (it *geojsonIter) Next() bool {
	if it.err != nil || it.pos+1 >= len(it.src.features) {
		return false
	}
	it.pos++
	f := it.src.features[it.pos]
	g, err := geometry.FromGeoJSON(f.Geometry)
	if err != nil {
		it.err = fmt.Errorf("feature %d: %w", it.pos, err)
		return false
	}
	it.cur = region.Record{Name: region.NameOf(f.Properties[it.src.nameField]), Geometry: g}
	return true
}

func (it *geojsonIter) Record() region.Record { return it.cur }
func (it *geojsonIter) Err() error            { return it.err }
func (it *geojsonIter) Close() error          { return nil }
