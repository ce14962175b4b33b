package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CartMergeTotal counts guest cart merges by outcome.
	CartMergeTotal *prometheus.CounterVec
	// CartItemsDropped counts malformed guest items dropped during merges.
	CartItemsDropped prometheus.Counter
	// CouponValidationTotal counts coupon validations by result
	// (ok, invalid, inactive, not_yet_valid, expired, limit_reached).
	CouponValidationTotal *prometheus.CounterVec
	// CaptureTotal counts payment capture attempts by result.
	CaptureTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CartMergeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_merge_total",
			Help:      "Count of guest cart merge operations by outcome.",
		}, []string{"result"})
		CartItemsDropped = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_items_dropped_total",
			Help:      "Number of malformed guest cart items dropped during merges.",
		})
		CouponValidationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_validation_total",
			Help:      "Count of coupon validation attempts by result.",
		}, []string{"result"})
		CaptureTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_capture_total",
			Help:      "Count of payment capture attempts by result.",
		}, []string{"result"})

		registerCollector(reg, CartMergeTotal, func(c prometheus.Collector) {
			if v, ok := c.(*prometheus.CounterVec); ok {
				CartMergeTotal = v
			}
		})
		registerCollector(reg, CartItemsDropped, func(c prometheus.Collector) {
			if v, ok := c.(prometheus.Counter); ok {
				CartItemsDropped = v
			}
		})
		registerCollector(reg, CouponValidationTotal, func(c prometheus.Collector) {
			if v, ok := c.(*prometheus.CounterVec); ok {
				CouponValidationTotal = v
			}
		})
		registerCollector(reg, CaptureTotal, func(c prometheus.Collector) {
			if v, ok := c.(*prometheus.CounterVec); ok {
				CaptureTotal = v
			}
		})
	})
}
