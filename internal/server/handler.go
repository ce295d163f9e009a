package server

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 健康状态
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusDown     = "down"
)

// Health /healthz 响应体
type Health struct {
	Status    string `json:"status"`
	Connected int    `json:"connected"`
	Total     int    `json:"total"`
}

// FleetStatus 返回在线 NPC 数与总数
type FleetStatus func() (connected, total int)

// NewHealth 按在线比例计算健康状态
func NewHealth(connected, total int) Health {
	h := Health{Status: StatusOK, Connected: connected, Total: total}
	switch {
	case total > 0 && connected == 0:
		h.Status = StatusDown
	case connected < total:
		h.Status = StatusDegraded
	}
	return h
}

// NewHandler 构造 /metrics 与 /healthz 路由
func NewHandler(gatherer prometheus.Gatherer, status FleetStatus) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		connected, total := 0, 0
		if status != nil {
			connected, total = status()
		}
		h := NewHealth(connected, total)
		w.Header().Set("Content-Type", "application/json")
		if h.Status == StatusDown {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(h)
	})
	return mux
}
