package migrate

import (
	"database/sql"
	"fmt"

	"polygon-overlap/internal/logger"
	"polygon-overlap/internal/source"
)

const (
	OverlapTable    = "_region_overlap"
	SimilarityTable = "_region_similarity"
)

// 背景：首次运行自动创建结果表与索引，保障后续写入
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；仅创建最小必需结构
func EnsureSchema(db *sql.DB) error {
	if err := EnsureOverlapTable(db, OverlapTable); err != nil {
		return err
	}
	if err := EnsureSimilarityTable(db, SimilarityTable); err != nil {
		return err
	}
	logger.L().Debug("schema_done")
	return nil
}

// EnsureOverlapTable：面积相似度结果表（含新版几何 WKT）
func EnsureOverlapTable(db *sql.DB, table string) error {
	rel := source.QuoteRelation(table)
	return exec(db, table,
		`CREATE TABLE IF NOT EXISTS `+rel+` (
            run_id TEXT NOT NULL,
            seq INT NOT NULL,
            name TEXT,
            jaccard_index DOUBLE PRECISION,
            geom_wkt TEXT,
            PRIMARY KEY (run_id, seq)
        )`,
	)
}

// EnsureSimilarityTable：边界差异结果表（无几何）
func EnsureSimilarityTable(db *sql.DB, table string) error {
	rel := source.QuoteRelation(table)
	return exec(db, table,
		`CREATE TABLE IF NOT EXISTS `+rel+` (
            run_id TEXT NOT NULL,
            seq INT NOT NULL,
            name TEXT,
            jaccard_index DOUBLE PRECISION NOT NULL,
            hausdorff_distance DOUBLE PRECISION,
            hausdorff_distance_normalized DOUBLE PRECISION,
            PRIMARY KEY (run_id, seq)
        )`,
	)
}

func exec(db *sql.DB, table string, stmts ...string) error {
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "table", table, "idx", i)
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("ensure %s: %w", table, err)
		}
	}
	return nil
}
