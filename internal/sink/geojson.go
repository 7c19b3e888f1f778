// 包 sink：结果写出适配器
// 背景：引擎逐条推送结果，适配器按到达顺序落地；GeoJSON/CSV 流式写出，PostgreSQL 逐行自动提交，Memory 供 HTTP 与测试
// 约束：中途失败时已写出的记录保留；Close 负责收尾（补齐 JSON 结尾、刷新缓冲）
package sink

import (
	"bufio"
	"encoding/json"
	"io"

	"polygon-overlap/internal/similarity"

	"github.com/peterstace/simplefeatures/geom"
)

// Sink：同时接受两种变体结果的写出端
type Sink interface {
	similarity.OverlapSink
	similarity.DivergenceSink
	Close() error
}

// GeoJSON：流式写出 FeatureCollection
type GeoJSON struct {
	w      *bufio.Writer
	closer io.Closer
	n      int
	closed bool
}

// NewGeoJSON：closer 可为 nil（如标准输出）
func NewGeoJSON(w io.Writer, closer io.Closer) *GeoJSON {
	return &GeoJSON{w: bufio.NewWriter(w), closer: closer}
}

type featureOut struct {
	Type       string          `json:"type"`
	Properties any             `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

func (s *GeoJSON) WriteOverlap(r similarity.OverlapResult) error {
	g, err := geometryJSON(r.Geometry)
	if err != nil {
		return err
	}
	return s.write(featureOut{Type: "Feature", Properties: r, Geometry: g})
}

func (s *GeoJSON) WriteDivergence(r similarity.DivergenceResult) error {
	return s.write(featureOut{Type: "Feature", Properties: r, Geometry: json.RawMessage("null")})
}

func (s *GeoJSON) write(f featureOut) error {
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	sep := ",\n"
	if s.n == 0 {
		sep = `{"type":"FeatureCollection","features":[` + "\n"
	}
	if _, err := s.w.WriteString(sep); err != nil {
		return err
	}
	if _, err := s.w.Write(b); err != nil {
		return err
	}
	s.n++
	return nil
}

// Close：补齐结尾；无记录时写出空集合
func (s *GeoJSON) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	tail := "\n]}\n"
	if s.n == 0 {
		tail = `{"type":"FeatureCollection","features":[]}` + "\n"
	}
	_, err := s.w.WriteString(tail)
	if ferr := s.w.Flush(); err == nil {
		err = ferr
	}
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// geometryJSON：空几何写为 null
func geometryJSON(g geom.Geometry) (json.RawMessage, error) {
	if g.IsEmpty() {
		return json.RawMessage("null"), nil
	}
	b, err := g.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return b, nil
}
