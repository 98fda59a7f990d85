package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// PricingQuotesTotal 报价次数（按结果）
	PricingQuotesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bazaar",
		Subsystem: "pricing",
		Name:      "quotes_total",
		Help:      "Pricing computations by result.",
	}, []string{"result"})

	// CouponReservationsTotal 券预占次数（按结果）
	CouponReservationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bazaar",
		Subsystem: "coupon",
		Name:      "reservations_total",
		Help:      "Coupon reservation attempts by outcome.",
	}, []string{"outcome"})

	// CouponCompensationFailuresTotal 补偿失败次数，需人工对账
	CouponCompensationFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bazaar",
		Subsystem: "coupon",
		Name:      "compensation_failures_total",
		Help:      "Coupon reservation compensations that failed and need manual reconciliation.",
	}, []string{"step"})

	// CouponUsageDriftTotal 对账发现的计数偏差
	CouponUsageDriftTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bazaar",
		Subsystem: "coupon",
		Name:      "usage_drift_total",
		Help:      "Coupon usage counters found out of sync with redemption events.",
	}, []string{"scope"})

	// HTTPRequestDuration 接口耗时
	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bazaar",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Collectors 全部指标
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		PricingQuotesTotal,
		CouponReservationsTotal,
		CouponCompensationFailuresTotal,
		CouponUsageDriftTotal,
		HTTPRequestDuration,
	}
}

// Register 注册到指定 Registerer，重复注册时忽略
func Register(registerer prometheus.Registerer) error {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	for _, collector := range Collectors() {
		if err := registerer.Register(collector); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}
