package sink

import (
	"context"
	"database/sql"
	"fmt"

	"polygon-overlap/internal/similarity"
	"polygon-overlap/internal/source"
)

// Postgres：逐行插入结果表，以 run_id + 序号区分不同运行
// 约束：不使用事务，每行自动提交；运行中止时已写入的行保留
type Postgres struct {
	ctx   context.Context
	db    *sql.DB
	runID string
	table string
	seq   int
}

func NewPostgres(ctx context.Context, db *sql.DB, table, runID string) *Postgres {
	return &Postgres{ctx: ctx, db: db, runID: runID, table: source.QuoteRelation(table)}
}

func (s *Postgres) WriteOverlap(r similarity.OverlapResult) error {
	var wkt sql.NullString
	if !r.Geometry.IsEmpty() {
		wkt = sql.NullString{String: r.Geometry.AsText(), Valid: true}
	}
	q := `INSERT INTO ` + s.table + `(run_id, seq, name, jaccard_index, geom_wkt) VALUES($1,$2,$3,$4,$5)`
	if _, err := s.db.ExecContext(s.ctx, q, s.runID, s.seq, r.Name, r.JaccardIndex.Null(), wkt); err != nil {
		return fmt.Errorf("insert %s: %w", s.table, err)
	}
	s.seq++
	return nil
}

func (s *Postgres) WriteDivergence(r similarity.DivergenceResult) error {
	q := `INSERT INTO ` + s.table + `(run_id, seq, name, jaccard_index, hausdorff_distance, hausdorff_distance_normalized) VALUES($1,$2,$3,$4,$5,$6)`
	if _, err := s.db.ExecContext(s.ctx, q, s.runID, s.seq, r.Name, r.JaccardIndex,
		r.HausdorffDistance.Null(), r.HausdorffDistanceNormalized.Null()); err != nil {
		return fmt.Errorf("insert %s: %w", s.table, err)
	}
	s.seq++
	return nil
}

// Close：连接池由调用方持有，此处无需释放
func (s *Postgres) Close() error { return nil }

// Rows：已写入行数
func (s *Postgres) Rows() int { return s.seq }
