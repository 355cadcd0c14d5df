package audithook_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/payments"
	audithook "github.com/xraph/payments/audit_hook"
	"github.com/xraph/payments/id"
)

type memRecorder struct {
	mu     sync.Mutex
	events []*audithook.AuditEvent
}

func (m *memRecorder) Record(_ context.Context, evt *audithook.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return nil
}

func (m *memRecorder) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.Action
	}
	return out
}

func (m *memRecorder) find(action string) *audithook.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.Action == action {
			return e
		}
	}
	return nil
}

func runEngine(t *testing.T, ext *audithook.Extension) {
	t.Helper()
	ctx := context.Background()

	eng, err := payments.New(payments.WithShards(1), payments.WithPlugin(ext))
	require.NoError(t, err)
	require.NoError(t, eng.Start(ctx))

	for _, tx := range []payments.Transaction{
		payments.Deposit(1, 1, payments.MustAmount("5")),
		payments.Withdrawal(1, 2, payments.MustAmount("1")),
		payments.Dispute(1, 1),
		payments.Chargeback(1, 1),
		payments.Deposit(1, 3, payments.MustAmount("1")),
	} {
		_, err := eng.Process(ctx, tx)
		require.NoError(t, err)
	}
	require.NoError(t, eng.Stop())
}

func TestAuditTrailOfEngineRun(t *testing.T) {
	rec := &memRecorder{}
	ext := audithook.New(rec)
	runEngine(t, ext)

	assert.Equal(t, []string{
		audithook.ActionShardRecovered,
		audithook.ActionEngineStarted,
		audithook.ActionDeposit,
		audithook.ActionWithdrawal,
		audithook.ActionDisputeOpened,
		audithook.ActionChargeback,
		audithook.ActionAccountLocked,
		audithook.ActionTransactionRejected,
		audithook.ActionEngineStopped,
	}, rec.actions())

	locked := rec.find(audithook.ActionAccountLocked)
	require.NotNil(t, locked)
	assert.Equal(t, audithook.SeverityCritical, locked.Severity)
	assert.Equal(t, "1", locked.ResourceID)

	rejected := rec.find(audithook.ActionTransactionRejected)
	require.NotNil(t, rejected)
	assert.Equal(t, audithook.OutcomeFailure, rejected.Outcome)
	assert.Equal(t, payments.ErrAccountLocked.Error(), rejected.Reason)
	assert.Equal(t, "3", rejected.ResourceID)
	assert.Equal(t, "1", rejected.Metadata["amount"])
	assert.Equal(t, "account_locked", rejected.Metadata["code"])

	started := rec.find(audithook.ActionEngineStarted)
	require.NotNil(t, started)
	assert.Equal(t, ext.EngineID(), started.ResourceID)
	assert.Equal(t, started.ResourceID, rec.find(audithook.ActionEngineStopped).ResourceID)

	_, err := id.ParseEventID(started.ID)
	assert.NoError(t, err)
	assert.False(t, started.Timestamp.IsZero())
}

func TestEnabledActionsFilter(t *testing.T) {
	rec := &memRecorder{}
	runEngine(t, audithook.New(rec, audithook.WithEnabledActions(audithook.ActionAccountLocked)))

	assert.Equal(t, []string{audithook.ActionAccountLocked}, rec.actions())
}

func TestDisabledActionsFilter(t *testing.T) {
	rec := &memRecorder{}
	runEngine(t, audithook.New(rec, audithook.WithDisabledActions(
		audithook.ActionShardRecovered,
		audithook.ActionEngineStarted,
		audithook.ActionEngineStopped,
		audithook.ActionDeposit,
		audithook.ActionWithdrawal,
	)))

	assert.Equal(t, []string{
		audithook.ActionDisputeOpened,
		audithook.ActionChargeback,
		audithook.ActionAccountLocked,
		audithook.ActionTransactionRejected,
	}, rec.actions())
}

func TestRecorderErrorsAreSwallowed(t *testing.T) {
	ext := audithook.New(audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		return errors.New("backend down")
	}))
	err := ext.OnShutdown(context.Background())
	assert.NoError(t, err)
}
