package middleware

import (
	"math"
	"net/http"

	"polygon-overlap/internal/logger"

	"golang.org/x/time/rate"
)

// 文档注释：令牌桶限流中间件（每秒）
// 背景：同步比对接口按请求计算几何叠置，峰值流量下容易占满 CPU；按配置开关与速率限速。
// 约束：不做排队，超限直接返回 429；桶容量取 qps 向上取整（至少 1），允许一秒内的突发。
func Wrap(next http.Handler, enabled bool, qps float64) http.Handler {
	if !enabled || qps <= 0 {
		return next
	}
	burst := int(math.Ceil(qps))
	if burst < 1 {
		burst = 1
	}
	lim := rate.NewLimiter(rate.Limit(qps), burst)
	logger.L().Debug("rate_limit_enabled", "qps", qps, "burst", burst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !lim.Allow() {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
