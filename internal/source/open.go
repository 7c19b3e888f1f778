package source

import (
	"context"
	"database/sql"
	"fmt"

	"polygon-overlap/internal/config"
	"polygon-overlap/internal/region"
)

// Open：按配置打开来源；配置问题与文件读取失败统一包装为 config.ErrConfig
func Open(ctx context.Context, db *sql.DB, role string, sc config.SourceConfig) (region.Source, error) {
	if err := config.ValidateSource(role, sc); err != nil {
		return nil, err
	}
	switch sc.Kind {
	case config.SourcePostgres:
		if db == nil {
			return nil, fmt.Errorf("%w: %s source needs postgres (PG_HOST or PG_DSN)", config.ErrConfig, role)
		}
		t, err := OpenTable(ctx, db, sc.Table, sc.NameField, sc.GeomExpr)
		if err != nil {
			return nil, fmt.Errorf("%w: %s source: %w", config.ErrConfig, role, err)
		}
		return t, nil
	default:
		g, err := OpenGeoJSONFile(sc.Path, sc.NameField)
		if err != nil {
			return nil, fmt.Errorf("%w: %s source: %w", config.ErrConfig, role, err)
		}
		return g, nil
	}
}
