// Package observability provides a metrics extension for the payments
// engine that records transaction outcome counts via a MetricFactory.
package observability

import (
	"context"
	"sync"

	"github.com/xraph/payments/account"
	"github.com/xraph/payments/engine"
	"github.com/xraph/payments/plugin"
	"github.com/xraph/payments/transaction"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                = (*MetricsExtension)(nil)
	_ plugin.OnInit                = (*MetricsExtension)(nil)
	_ plugin.OnRecovered           = (*MetricsExtension)(nil)
	_ plugin.OnTransactionApplied  = (*MetricsExtension)(nil)
	_ plugin.OnTransactionRejected = (*MetricsExtension)(nil)
	_ plugin.OnAccountLocked       = (*MetricsExtension)(nil)
	_ plugin.OnDurabilityFailure   = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records engine-wide transaction metrics.
// Register it as a payments plugin to track outcomes automatically.
type MetricsExtension struct {
	factory MetricFactory

	mu      sync.Mutex
	reasons map[string]Counter

	// Lifecycle metrics
	EngineStarted   Counter
	ShardsRecovered Counter
	RecordsReplayed Histogram

	// Transaction metrics
	Applied     Counter
	Rejected    Counter
	Deposits    Counter
	Withdrawals Counter
	Amount      Histogram

	// Dispute metrics
	DisputesOpened   Counter
	DisputesResolved Counter
	Chargebacks      Counter
	AccountsLocked   Counter

	// Error metrics
	DurabilityFailures Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,
		reasons: make(map[string]Counter),

		// Lifecycle metrics
		EngineStarted:   factory.Counter("payments.engine.started"),
		ShardsRecovered: factory.Counter("payments.shards.recovered"),
		RecordsReplayed: factory.Histogram("payments.recovery.replayed"),

		// Transaction metrics
		Applied:     factory.Counter("payments.transactions.applied"),
		Rejected:    factory.Counter("payments.transactions.rejected"),
		Deposits:    factory.Counter("payments.deposits"),
		Withdrawals: factory.Counter("payments.withdrawals"),
		Amount:      factory.Histogram("payments.transactions.amount"),

		// Dispute metrics
		DisputesOpened:   factory.Counter("payments.disputes.opened"),
		DisputesResolved: factory.Counter("payments.disputes.resolved"),
		Chargebacks:      factory.Counter("payments.chargebacks"),
		AccountsLocked:   factory.Counter("payments.accounts.locked"),

		// Error metrics
		DurabilityFailures: factory.Counter("payments.durability.failures"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ plugin.EngineInfo) error {
	m.EngineStarted.Inc()
	return nil
}

// OnRecovered implements plugin.OnRecovered.
func (m *MetricsExtension) OnRecovered(_ context.Context, _, replayed int) error {
	m.ShardsRecovered.Inc()
	m.RecordsReplayed.Observe(float64(replayed))
	return nil
}

// ──────────────────────────────────────────────────
// Transaction hooks
// ──────────────────────────────────────────────────

// OnTransactionApplied implements plugin.OnTransactionApplied.
func (m *MetricsExtension) OnTransactionApplied(_ context.Context, tx transaction.Transaction, _ account.Account) error {
	m.Applied.Inc()

	switch tx.Type {
	case transaction.TypeDeposit:
		m.Deposits.Inc()
	case transaction.TypeWithdrawal:
		m.Withdrawals.Inc()
	case transaction.TypeDispute:
		m.DisputesOpened.Inc()
	case transaction.TypeResolve:
		m.DisputesResolved.Inc()
	case transaction.TypeChargeback:
		m.Chargebacks.Inc()
	}

	if tx.Amount != nil {
		m.Amount.Observe(tx.Amount.InexactFloat64())
	}
	return nil
}

// OnTransactionRejected implements plugin.OnTransactionRejected.
func (m *MetricsExtension) OnTransactionRejected(_ context.Context, _ transaction.Transaction, reason error) error {
	m.Rejected.Inc()
	m.RejectedBy(engine.RejectionCode(reason)).Inc()
	return nil
}

// RejectedBy returns the rejection counter for one reason code, creating it
// on first use.
func (m *MetricsExtension) RejectedBy(code string) Counter {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.reasons[code]
	if !ok {
		c = m.factory.Counter("payments.rejections." + code)
		m.reasons[code] = c
	}
	return c
}

// OnAccountLocked implements plugin.OnAccountLocked.
func (m *MetricsExtension) OnAccountLocked(_ context.Context, _ account.Account) error {
	m.AccountsLocked.Inc()
	return nil
}

// OnDurabilityFailure implements plugin.OnDurabilityFailure.
func (m *MetricsExtension) OnDurabilityFailure(_ context.Context, _ transaction.Transaction, _ error) error {
	m.DurabilityFailures.Inc()
	return nil
}
