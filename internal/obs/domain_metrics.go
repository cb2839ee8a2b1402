package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// SessionsOpenedTotal counts checkout sessions opened at the till.
	SessionsOpenedTotal prometheus.Counter
	// SessionsLive gauges the number of sessions currently held in memory.
	SessionsLive prometheus.Gauge
	// SubmitTotal counts checkout submission outcomes.
	SubmitTotal *prometheus.CounterVec
	// TenderAmountTotal accumulates tendered đồng by method.
	TenderAmountTotal *prometheus.CounterVec
	// VoucherDiscountTotal accumulates discount đồng granted by voucher kind.
	VoucherDiscountTotal *prometheus.CounterVec
	// ReceiptDeliveriesTotal counts receipt delivery outcomes.
	ReceiptDeliveriesTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers the checkout-domain
// Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		SessionsOpenedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_sessions_opened_total",
			Help:      "Count of checkout sessions opened.",
		})
		SessionsLive = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "checkout_sessions_live",
			Help:      "Number of checkout sessions currently in memory.",
		})
		SubmitTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_submit_total",
			Help:      "Count of checkout submission outcomes.",
		}, []string{"result"})
		TenderAmountTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tender_amount_total",
			Help:      "Tendered amount in đồng by payment method.",
		}, []string{"method"})
		VoucherDiscountTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voucher_discount_total",
			Help:      "Discount amount in đồng granted, by voucher kind.",
		}, []string{"kind"})
		ReceiptDeliveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipt_deliveries_total",
			Help:      "Count of receipt delivery outcomes.",
		}, []string{"result"})

		mustRegisterCollector(reg, SessionsOpenedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				SessionsOpenedTotal = v
			}
		})
		mustRegisterCollector(reg, SessionsLive, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Gauge); ok {
				SessionsLive = v
			}
		})
		mustRegisterCollector(reg, SubmitTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SubmitTotal = v
			}
		})
		mustRegisterCollector(reg, TenderAmountTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				TenderAmountTotal = v
			}
		})
		mustRegisterCollector(reg, VoucherDiscountTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				VoucherDiscountTotal = v
			}
		})
		mustRegisterCollector(reg, ReceiptDeliveriesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ReceiptDeliveriesTotal = v
			}
		})
	})
}

// RecordSessionOpened increments the opened-session counter when registered.
func RecordSessionOpened() {
	if SessionsOpenedTotal != nil {
		SessionsOpenedTotal.Inc()
	}
}

// RecordSubmit records a submission outcome ("ok", "rejected", "failed").
func RecordSubmit(result string) {
	if SubmitTotal != nil {
		SubmitTotal.WithLabelValues(result).Inc()
	}
}

// RecordTender accumulates a tendered amount for the method.
func RecordTender(method string, amount int64) {
	if TenderAmountTotal != nil && amount > 0 {
		TenderAmountTotal.WithLabelValues(method).Add(float64(amount))
	}
}

// RecordVoucherDiscount accumulates a granted discount for the voucher kind.
func RecordVoucherDiscount(kind string, amount int64) {
	if VoucherDiscountTotal != nil && amount > 0 {
		VoucherDiscountTotal.WithLabelValues(kind).Add(float64(amount))
	}
}

// RecordReceiptDelivery records a delivery outcome ("ok", "error").
func RecordReceiptDelivery(result string) {
	if ReceiptDeliveriesTotal != nil {
		ReceiptDeliveriesTotal.WithLabelValues(result).Inc()
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
