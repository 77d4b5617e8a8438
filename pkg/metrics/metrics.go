// Package metrics 提供 Prometheus 指标模板，覆盖 HTTP 与对冲引擎业务指标
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 指标集合
type Metrics struct {
	registry *prometheus.Registry

	// HTTP 请求计数（按方法、路径、状态码）
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTP 请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// 开仓计数
	PositionsOpenedTotal prometheus.Counter
	// 平仓计数
	PositionsClosedTotal prometheus.Counter
	// 强平计数
	LiquidationsTotal prometheus.Counter
	// 累计领取奖励金额
	RewardsClaimedTotal prometheus.Counter
	// 协议级总保证金
	TotalMargin prometheus.Gauge
	// 协议级总敞口
	TotalExposure prometheus.Gauge
}

// New 创建指标实例，使用独立 registry 避免重复注册
func New(serviceName string) *Metrics {
	registry := prometheus.NewRegistry()
	labels := prometheus.Labels{"service": serviceName}

	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total HTTP requests",
			ConstLabels: labels,
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request latency",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "path"}),
		PositionsOpenedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "hedging_positions_opened_total",
			Help:        "Total hedge positions opened",
			ConstLabels: labels,
		}),
		PositionsClosedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "hedging_positions_closed_total",
			Help:        "Total hedge positions closed",
			ConstLabels: labels,
		}),
		LiquidationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "hedging_liquidations_total",
			Help:        "Total liquidations executed",
			ConstLabels: labels,
		}),
		RewardsClaimedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "hedging_rewards_claimed_total",
			Help:        "Cumulative interest differential rewards claimed",
			ConstLabels: labels,
		}),
		TotalMargin: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "hedging_total_margin",
			Help:        "Protocol-wide total margin",
			ConstLabels: labels,
		}),
		TotalExposure: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "hedging_total_exposure",
			Help:        "Protocol-wide total exposure",
			ConstLabels: labels,
		}),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.PositionsOpenedTotal,
		m.PositionsClosedTotal,
		m.LiquidationsTotal,
		m.RewardsClaimedTotal,
		m.TotalMargin,
		m.TotalExposure,
	)
	return m
}

// Handler 返回 /metrics 的 HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
