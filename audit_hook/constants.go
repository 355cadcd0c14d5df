package audithook

// Action constants for audit events.
const (
	// Engine actions
	ActionEngineStarted  = "engine.started"
	ActionEngineStopped  = "engine.stopped"
	ActionShardRecovered = "shard.recovered"

	// Funds actions
	ActionDeposit    = "funds.deposited"
	ActionWithdrawal = "funds.withdrawn"

	// Dispute actions
	ActionDisputeOpened   = "dispute.opened"
	ActionDisputeResolved = "dispute.resolved"
	ActionChargeback      = "dispute.chargeback"

	// Account actions
	ActionAccountLocked = "account.locked"

	// Failure actions
	ActionTransactionRejected = "transaction.rejected"
	ActionDurabilityFailed    = "durability.failed"
)

// Resource constants for audit events.
const (
	ResourceEngine      = "engine"
	ResourceShard       = "shard"
	ResourceAccount     = "account"
	ResourceTransaction = "transaction"
)

// Category constants for audit events.
const (
	CategoryLifecycle = "lifecycle"
	CategoryFunds     = "funds"
	CategoryDispute   = "dispute"
	CategorySecurity  = "security"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
