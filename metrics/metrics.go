// Package metrics Prometheus 指标：请求耗时、借出/维修计数、库存快照
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"tool_lending_admin/stats"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 拒绝原因（loan_rejections_total 的 reason 标签）
const (
	ReasonUnavailable  = "unavailable"
	ReasonInsufficient = "insufficient_stock"
	ReasonInvalid      = "invalid_quantity"
)

type Collector struct {
	registry *prometheus.Registry

	requestDuration    *prometheus.HistogramVec
	loansCreated       prometheus.Counter
	loanRejections     *prometheus.CounterVec
	maintenanceOpened  prometheus.Counter
	maintenanceFixed   prometheus.Counter
	inventory          *prometheus.GaugeVec
	utilizationPercent prometheus.Gauge
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lsb_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		loansCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lsb_loans_created_total",
			Help: "Loans accepted",
		}),
		loanRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lsb_loan_rejections_total",
				Help: "Loans refused by the inventory rule",
			},
			[]string{"reason"},
		),
		maintenanceOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lsb_maintenance_opened_total",
			Help: "Maintenance records opened",
		}),
		maintenanceFixed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lsb_maintenance_fixed_total",
			Help: "Maintenance records marked fixed",
		}),
		inventory: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lsb_inventory",
				Help: "Inventory figures from the last stats computation",
			},
			[]string{"kind"},
		),
		utilizationPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lsb_utilization_percent",
			Help: "Active loans over all loans",
		}),
	}
	c.registry.MustRegister(
		c.requestDuration,
		c.loansCreated,
		c.loanRejections,
		c.maintenanceOpened,
		c.maintenanceFixed,
		c.inventory,
		c.utilizationPercent,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) LoanCreated()               { c.loansCreated.Inc() }
func (c *Collector) LoanRejected(reason string) { c.loanRejections.WithLabelValues(reason).Inc() }
func (c *Collector) MaintenanceOpened()         { c.maintenanceOpened.Inc() }
func (c *Collector) MaintenanceFixed()          { c.maintenanceFixed.Inc() }

// ObserveStats 把最近一次统计结果写进 gauge
func (c *Collector) ObserveStats(s stats.Stats) {
	c.inventory.WithLabelValues("tools").Set(float64(s.TotalTools))
	c.inventory.WithLabelValues("low_stock_tools").Set(float64(s.LowStockTools))
	c.inventory.WithLabelValues("active_loans").Set(float64(s.ActiveLoans))
	c.inventory.WithLabelValues("damaged").Set(float64(s.Damaged))
	c.inventory.WithLabelValues("lost").Set(float64(s.Lost))
	c.inventory.WithLabelValues("value").Set(s.TotalValue.InexactFloat64())
	c.utilizationPercent.Set(s.UtilizationRate)
}

// Middleware 记录请求耗时；route 用注册时的路径模板，避免 id 撑爆标签
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		c.requestDuration.
			WithLabelValues(ctx.Request.Method, route, strconv.Itoa(ctx.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
