package services

import "github.com/prometheus/client_golang/prometheus"

var (
	pipelineMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relate_pipeline_messages_total",
			Help: "Inbound messages fully processed by the pipeline, per channel.",
		},
		[]string{"channel"},
	)
	invoicesReconciled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relate_invoices_reconciled_total",
			Help: "Pending invoices matched to an incoming payment.",
		},
	)
	deliveryFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relate_outbound_delivery_failures_total",
			Help: "Outbound channel deliveries that did not succeed.",
		},
	)
)

func init() {
	prometheus.MustRegister(pipelineMessages, invoicesReconciled, deliveryFailures)
}

func messagesProcessed(channel string) {
	pipelineMessages.WithLabelValues(channel).Inc()
}

func invoiceReconciled() {
	invoicesReconciled.Inc()
}

func deliveryFailed() {
	deliveryFailures.Inc()
}
