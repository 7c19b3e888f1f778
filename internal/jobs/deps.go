package jobs

import (
	"context"
	"database/sql"
	"time"

	"polygon-overlap/internal/config"
	"polygon-overlap/internal/logger"
	"polygon-overlap/internal/utils"
)

// DepsFromEnv：按环境变量打开依赖；未配置 PG_HOST/PG_DSN 时不连接数据库
// 返回：关闭函数总是非 nil
func DepsFromEnv(ctx context.Context, cfg config.Config) (Deps, func(), error) {
	d := Deps{HausdorffMode: cfg.HausdorffMode}
	if !utils.PostgresConfigured() {
		logger.L().Debug("db_disabled")
		return d, func() {}, nil
	}
	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		return d, func() {}, err
	}
	if err := ping(ctx, db); err != nil {
		_ = db.Close()
		return d, func() {}, err
	}
	logger.L().Info("db_ping_ok")
	d.DB = db
	return d, func() { _ = db.Close() }, nil
}

func ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}
