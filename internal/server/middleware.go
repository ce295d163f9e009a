package server

import (
	"net/http"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Middleware 包装指标端点的 http.Handler
type Middleware func(http.Handler) http.Handler

// Chain 按顺序包装中间件，第一个位于最外层
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// Recovery 捕获 handler panic（例如采集器在 Gather 中崩溃），返回 500 并记录日志，
// 指标服务器本身继续服务后续抓取。
func Recovery(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					logger.Error("panic recovered", zap.Any("error", v), zap.String("path", r.URL.Path))
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"error":"internal server error"}` + "\n"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// requestLevel 抓取端点每隔几秒就会被访问，只在 debug 级别记录；
// 其它路径按 info 记录，服务端错误按 warn。/healthz 的 503 是舰队离线的正常应答。
func requestLevel(path string, status int) zapcore.Level {
	scrape := path == "/metrics" || path == "/healthz"
	switch {
	case status >= 500 && !(path == "/healthz" && status == http.StatusServiceUnavailable):
		return zapcore.WarnLevel
	case scrape:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

// RequestLogger 记录每次请求的状态码、响应字节数与耗时
func RequestLogger(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)
			if ce := logger.Check(requestLevel(r.URL.Path, rw.status), "request"); ce != nil {
				ce.Write(
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", rw.status),
					zap.Int("bytes", rw.bytes),
					zap.Duration("duration", time.Since(start)),
					zap.String("remote_addr", r.RemoteAddr),
				)
			}
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}
