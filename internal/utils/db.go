// 包 utils：PostgreSQL/Redis 连接工具，统一环境变量读取
package utils

import (
	"database/sql"
	"os"
	"strconv"

	_ "github.com/lib/pq"
)

// BuildPostgresDSNFromEnv：由 PG_* 环境变量拼接 DSN
// 约束：未设置时回退本地默认值；密码为空时不写入冒号段
func BuildPostgresDSNFromEnv() string {
	host := envOr("PG_HOST", "localhost")
	port := envOr("PG_PORT", "5432")
	user := envOr("PG_USER", "postgres")
	pass := os.Getenv("PG_PASSWORD")
	db := envOr("PG_DB", "polyoverlap")
	ssl := envOr("PG_SSLMODE", "disable")
	dsn := "postgres://" + user
	if pass != "" {
		dsn += ":" + pass
	}
	dsn += "@" + host + ":" + port + "/" + db + "?sslmode=" + ssl
	return dsn
}

// PostgresConfigured：是否显式配置了数据库（PG_HOST 或 PG_DSN）
// 背景：纯文件输入输出的批处理不应因本地无数据库而失败
func PostgresConfigured() bool {
	return os.Getenv("PG_HOST") != "" || os.Getenv("PG_DSN") != ""
}

// OpenPostgresFromEnv：打开连接池；PG_DSN 优先于 PG_* 拼接
// 约束：sql.Open 不建立连接，调用方需自行 Ping
func OpenPostgresFromEnv() (*sql.DB, error) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		dsn = BuildPostgresDSNFromEnv()
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	maxOpen := 10
	maxIdle := 5
	if v := os.Getenv("PG_MAX_OPEN_CONNS"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			maxOpen = n
		}
	}
	if v := os.Getenv("PG_MAX_IDLE_CONNS"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			maxIdle = n
		}
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	return db, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
