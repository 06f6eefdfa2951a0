// Package metrics exposes the Executor's counters and gauges through
// go-ethereum/metrics, a registry-backed metrics library.
package metrics

import (
	"github.com/ethereum/go-ethereum/metrics"
)

// Metrics bundles the counters and gauges an Executor reports over its
// lifetime. The entries live in go-ethereum's default (process-global)
// registry; the struct only groups the handles to them.
type Metrics struct {
	createExecutionSessionRequests metrics.Counter
	createExecutionSessionSuccess  metrics.Counter

	executeBlockRequests metrics.Counter
	executeBlockSuccess  metrics.Counter
	executeBlockTimer    metrics.Timer

	updateCommitmentStateRequests metrics.Counter
	updateCommitmentStateSuccess  metrics.Counter
	commitmentStateUpdateTimer    metrics.Timer

	softBlockNumber metrics.Gauge
	firmBlockNumber metrics.Gauge
}

// New returns the conductor metrics under the "astria/conductor/..."
// namespace, registering them on first use. Later calls return handles to
// the same already-registered entries.
func New() *Metrics {
	return &Metrics{
		createExecutionSessionRequests: metrics.GetOrRegisterCounter("astria/conductor/create_execution_session_requests", nil),
		createExecutionSessionSuccess:  metrics.GetOrRegisterCounter("astria/conductor/create_execution_session_success", nil),

		executeBlockRequests: metrics.GetOrRegisterCounter("astria/conductor/execute_block_requests", nil),
		executeBlockSuccess:  metrics.GetOrRegisterCounter("astria/conductor/execute_block_success", nil),
		executeBlockTimer:    metrics.GetOrRegisterTimer("astria/conductor/execute_block_time", nil),

		updateCommitmentStateRequests: metrics.GetOrRegisterCounter("astria/conductor/update_commitment_state_requests", nil),
		updateCommitmentStateSuccess:  metrics.GetOrRegisterCounter("astria/conductor/update_commitment_state_success", nil),
		commitmentStateUpdateTimer:    metrics.GetOrRegisterTimer("astria/conductor/commitment_state_update_time", nil),

		softBlockNumber: metrics.GetOrRegisterGauge("astria/conductor/soft_block_number", nil),
		firmBlockNumber: metrics.GetOrRegisterGauge("astria/conductor/firm_block_number", nil),
	}
}

func (m *Metrics) IncCreateExecutionSessionRequests() { m.createExecutionSessionRequests.Inc(1) }
func (m *Metrics) IncCreateExecutionSessionSuccess()  { m.createExecutionSessionSuccess.Inc(1) }

func (m *Metrics) IncExecuteBlockRequests() { m.executeBlockRequests.Inc(1) }
func (m *Metrics) IncExecuteBlockSuccess()  { m.executeBlockSuccess.Inc(1) }
func (m *Metrics) ExecuteBlockTimer() metrics.Timer { return m.executeBlockTimer }

func (m *Metrics) IncUpdateCommitmentStateRequests() { m.updateCommitmentStateRequests.Inc(1) }
func (m *Metrics) IncUpdateCommitmentStateSuccess()  { m.updateCommitmentStateSuccess.Inc(1) }
func (m *Metrics) CommitmentStateUpdateTimer() metrics.Timer { return m.commitmentStateUpdateTimer }

func (m *Metrics) SetSoftBlockNumber(n uint64) { m.softBlockNumber.Update(int64(n)) }
func (m *Metrics) SetFirmBlockNumber(n uint64) { m.firmBlockNumber.Update(int64(n)) }
