package sink

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"polygon-overlap/internal/config"
	"polygon-overlap/internal/migrate"
	"polygon-overlap/internal/similarity"
)

// Open：按配置创建写出端；variant 决定默认表名
// 约束：Path 为 "-" 时写 stdout 且不关闭；创建失败统一包装为 config.ErrConfig
func Open(ctx context.Context, db *sql.DB, out config.OutputConfig, variant, runID string) (Sink, error) {
	if err := config.ValidateOutput(out); err != nil {
		return nil, err
	}
	switch out.Kind {
	case config.OutputPostgres:
		if db == nil {
			return nil, fmt.Errorf("%w: pg output needs postgres (PG_HOST or PG_DSN)", config.ErrConfig)
		}
		table := out.Table
		ensure := migrate.EnsureOverlapTable
		if variant == similarity.VariantDivergence {
			ensure = migrate.EnsureSimilarityTable
			if table == "" {
				table = migrate.SimilarityTable
			}
		} else if table == "" {
			table = migrate.OverlapTable
		}
		if err := ensure(db, table); err != nil {
			return nil, fmt.Errorf("%w: %w", config.ErrConfig, err)
		}
		return NewPostgres(ctx, db, table, runID), nil
	default:
		w, closer, err := openFile(out.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: output: %w", config.ErrConfig, err)
		}
		if out.Kind == config.OutputCSV {
			return NewCSV(w, closer), nil
		}
		return NewGeoJSON(w, closer), nil
	}
}

func openFile(path string) (io.Writer, io.Closer, error) {
	if path == "-" {
		return os.Stdout, nil, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f, nil
}
