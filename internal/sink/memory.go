package sink

import "polygon-overlap/internal/similarity"

// Memory：结果保存在内存切片中
type Memory struct {
	Overlap    []similarity.OverlapResult
	Divergence []similarity.DivergenceResult
}

func (m *Memory) WriteOverlap(r similarity.OverlapResult) error {
	m.Overlap = append(m.Overlap, r)
	return nil
}

func (m *Memory) WriteDivergence(r similarity.DivergenceResult) error {
	m.Divergence = append(m.Divergence, r)
	return nil
}

func (m *Memory) Close() error { return nil }
