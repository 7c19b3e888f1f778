package sink

import (
	"encoding/csv"
	"io"
	"strconv"

	"polygon-overlap/internal/region"
	"polygon-overlap/internal/similarity"
)

var (
	overlapHeader    = []string{"Name", "Jaccard_index", "geometry_wkt"}
	divergenceHeader = []string{"NAME", "jaccard_index", "hausdorff_distance", "hausdorff_distance_normalized"}
)

// CSV：首行表头按首条记录的变体写出；“不适用”与空名称写为空串
type CSV struct {
	w      *csv.Writer
	closer io.Closer
	header bool
}

func NewCSV(w io.Writer, closer io.Closer) *CSV {
	return &CSV{w: csv.NewWriter(w), closer: closer}
}

func (s *CSV) WriteOverlap(r similarity.OverlapResult) error {
	if err := s.ensureHeader(overlapHeader); err != nil {
		return err
	}
	wkt := ""
	if !r.Geometry.IsEmpty() {
		wkt = r.Geometry.AsText()
	}
	return s.row([]string{nameText(r.Name), r.JaccardIndex.String(), wkt})
}

func (s *CSV) WriteDivergence(r similarity.DivergenceResult) error {
	if err := s.ensureHeader(divergenceHeader); err != nil {
		return err
	}
	return s.row([]string{
		nameText(r.Name),
		strconv.FormatFloat(r.JaccardIndex, 'g', -1, 64),
		r.HausdorffDistance.String(),
		r.HausdorffDistanceNormalized.String(),
	})
}

func (s *CSV) ensureHeader(h []string) error {
	if s.header {
		return nil
	}
	s.header = true
	return s.w.Write(h)
}

// row：逐行刷新，保证中途中止时已写记录落盘
func (s *CSV) row(rec []string) error {
	if err := s.w.Write(rec); err != nil {
		return err
	}
	s.w.Flush()
	return s.w.Error()
}

func (s *CSV) Close() error {
	s.w.Flush()
	err := s.w.Error()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func nameText(n region.Name) string {
	if !n.Valid {
		return ""
	}
	return n.Text
}
