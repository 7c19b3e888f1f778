package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"polygon-overlap/internal/geometry"
	"polygon-overlap/internal/logger"
	"polygon-overlap/internal/region"

	"github.com/lib/pq"
)

// Table：PostgreSQL 表来源
// 约束：geomExpr 需产出 WKT 文本（默认 ST_AsText(geom)）；名称列统一转为 text；总数在打开时以 COUNT(1) 取得
type Table struct {
	ctx      context.Context
	db       *sql.DB
	selectQ  string
	count    int
	relation string
}

// QuoteRelation：按点号拆分 schema.table 后逐段转义
func QuoteRelation(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

// OpenTable：统计行数并准备查询；ctx 同时用于后续迭代
func OpenTable(ctx context.Context, db *sql.DB, table, nameField, geomExpr string) (*Table, error) {
	if geomExpr == "" {
		geomExpr = "ST_AsText(geom)"
	}
	rel := QuoteRelation(table)
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(1) FROM `+rel).Scan(&n); err != nil {
		return nil, fmt.Errorf("count %s: %w", table, err)
	}
	q := fmt.Sprintf(`SELECT %s::text, %s FROM %s`, pq.QuoteIdentifier(nameField), geomExpr, rel)
	logger.L().Debug("source_table_open", "table", table, "rows", n)
	return &Table{ctx: ctx, db: db, selectQ: q, count: n, relation: rel}, nil
}

func (t *Table) Count() int { return t.count }

func (t *Table) Open() (region.Iterator, error) {
	rows, err := t.db.QueryContext(t.ctx, t.selectQ)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", t.relation, err)
	}
	return &tableIter{rows: rows}, nil
}

type tableIter struct {
	rows *sql.Rows
	cur  region.Record
	err  error
	n    int
}

func (it *tableIter) Next() bool {
	if it.err != nil || !it.rows.Next() {
		return false
	}
	var name, wkt sql.NullString
	if err := it.rows.Scan(&name, &wkt); err != nil {
		it.err = err
		return false
	}
	g, err := geometry.FromWKT(wkt.String)
	if err != nil {
		it.err = fmt.Errorf("row %d: %w", it.n, err)
		return false
	}
	it.n++
	it.cur = region.Record{Name: region.Name{Text: name.String, Valid: name.Valid}, Geometry: g}
	return true
}

func (it *tableIter) Record() region.Record { return it.cur }

func (it *tableIter) Err() error {
	if it.err != nil {
		return it.err
	}
	return it.rows.Err()
}

func (it *tableIter) Close() error { return it.rows.Close() }
