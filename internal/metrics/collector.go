// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器。实现 agent.Metrics 与 planner.Observer，
// 整个集群共享一个实例。
type Collector struct {
	// 快循环指标
	tickDuration *prometheus.HistogramVec
	rulesFired   *prometheus.CounterVec
	actionsTotal *prometheus.CounterVec
	eventsTotal  *prometheus.CounterVec

	// 连接指标
	connected      *prometheus.GaugeVec
	reconnects     *prometheus.CounterVec
	reducerResults *prometheus.CounterVec
	rowErrors      *prometheus.CounterVec

	// 规划指标
	plansInstalled  *prometheus.CounterVec
	plannerCalls    *prometheus.CounterVec
	plannerDuration *prometheus.HistogramVec
	breakerState    prometheus.Gauge

	logger *zap.Logger
}

// Option Collector 选项
type Option func(*options)

type options struct {
	registerer prometheus.Registerer
}

// WithRegisterer 指定注册表，默认使用 prometheus.DefaultRegisterer
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *options) { o.registerer = r }
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger, opts ...Option) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := options{registerer: prometheus.DefaultRegisterer}
	for _, opt := range opts {
		opt(&o)
	}
	factory := promauto.With(o.registerer)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// 快循环
	c.tickDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Fast loop tick duration in seconds",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
		},
		[]string{"npc"},
	)

	c.rulesFired = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rules_fired_total",
			Help:      "Cascade rules that claimed a tick",
		},
		[]string{"rule"},
	)

	c.actionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Reducer-issuing actions by outcome",
		},
		[]string{"action", "status"},
	)

	c.eventsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Game events raised for the planner",
		},
		[]string{"event"},
	)

	// 连接
	c.connected = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected",
			Help:      "1 when the NPC holds a live backend session",
		},
		[]string{"npc"},
	)

	c.reconnects = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnects_scheduled_total",
			Help:      "Reconnect attempts scheduled after a failure or session loss",
		},
		[]string{"npc"},
	)

	c.reducerResults = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reducer_results_total",
			Help:      "Reducer outcomes reported by the backend",
		},
		[]string{"reducer", "ok"},
	)

	c.rowErrors = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "row_decode_errors_total",
			Help:      "Subscription rows that failed to decode",
		},
		[]string{"table"},
	)

	// 规划
	c.plansInstalled = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_installed_total",
			Help:      "Plans accepted from the planner",
		},
		[]string{"npc"},
	)

	c.plannerCalls = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "planner_calls_total",
			Help:      "Planner calls by outcome",
		},
		[]string{"kind", "outcome"},
	)

	c.plannerDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "planner_call_duration_seconds",
			Help:      "Planner call duration in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"kind"},
	)

	c.breakerState = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "planner_breaker_state",
			Help:      "Planner circuit breaker state (0 closed, 1 open, 2 half-open)",
		},
	)

	c.logger.Debug("metrics collector registered", zap.String("namespace", namespace))
	return c
}

// =============================================================================
// 🎭 快循环指标记录
// =============================================================================

// ObserveTick 记录一次快循环耗时
func (c *Collector) ObserveTick(npc string, d time.Duration) {
	c.tickDuration.WithLabelValues(npc).Observe(d.Seconds())
}

// IncRule 记录规则触发
func (c *Collector) IncRule(rule string) {
	c.rulesFired.WithLabelValues(rule).Inc()
}

// IncAction 记录动作结果
func (c *Collector) IncAction(action, status string) {
	c.actionsTotal.WithLabelValues(action, status).Inc()
}

// IncEvent 记录事件
func (c *Collector) IncEvent(event string) {
	c.eventsTotal.WithLabelValues(event).Inc()
}

// =============================================================================
// 🔌 连接指标记录
// =============================================================================

// SetConnected 更新连接状态
func (c *Collector) SetConnected(npc string, connected bool) {
	v := 0.0
	if connected {
		v = 1
	}
	c.connected.WithLabelValues(npc).Set(v)
}

// IncReconnect 记录一次重连调度
func (c *Collector) IncReconnect(npc string) {
	c.reconnects.WithLabelValues(npc).Inc()
}

// RecordReducerResult 记录后端返回的 reducer 结果
func (c *Collector) RecordReducerResult(reducer string, ok bool) {
	c.reducerResults.WithLabelValues(reducer, strconv.FormatBool(ok)).Inc()
}

// RecordRowError 记录行解析失败
func (c *Collector) RecordRowError(table string) {
	c.rowErrors.WithLabelValues(table).Inc()
}

// =============================================================================
// 🧠 规划指标记录
// =============================================================================

// IncPlanInstalled 记录计划安装
func (c *Collector) IncPlanInstalled(npc string) {
	c.plansInstalled.WithLabelValues(npc).Inc()
}

// ObservePlannerCall 记录规划调用
func (c *Collector) ObservePlannerCall(kind, outcome string, d time.Duration) {
	c.plannerCalls.WithLabelValues(kind, outcome).Inc()
	c.plannerDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// SetBreakerState 更新熔断器状态
func (c *Collector) SetBreakerState(state int) {
	c.breakerState.Set(float64(state))
}
