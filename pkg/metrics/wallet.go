package metrics

import "github.com/prometheus/client_golang/prometheus"

// WalletMetrics counts ledger mutations by operation type.
type WalletMetrics struct {
	operations *prometheus.CounterVec
	failures   *prometheus.CounterVec
}

// NewWalletMetrics registers the wallet metrics on the provided registerer.
func NewWalletMetrics(reg prometheus.Registerer) *WalletMetrics {
	if reg == nil {
		return &WalletMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_operations_total",
		Help: "Completed wallet ledger operations.",
	}, []string{"operation"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_operation_failures_total",
		Help: "Failed wallet ledger operations.",
	}, []string{"operation"})
	reg.MustRegister(operations, failures)
	return &WalletMetrics{operations: operations, failures: failures}
}

// IncOperation increments the completed counter for the named operation.
func (w *WalletMetrics) IncOperation(operation string) {
	if w == nil || w.operations == nil {
		return
	}
	w.operations.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncFailure increments the failure counter for the named operation.
func (w *WalletMetrics) IncFailure(operation string) {
	if w == nil || w.failures == nil {
		return
	}
	w.failures.WithLabelValues(normalizeLabel(operation)).Inc()
}
