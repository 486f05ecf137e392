package reconcile

import (
	"context"
	"fmt"
	"sync"

	"github.com/dualstake/stake-vault/internal/probe"
	"github.com/dualstake/stake-vault/internal/types"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Ledger is the slice of the stake store a reconciliation pass needs:
// the unconfirmed working set and the idempotent confirm write.
type Ledger interface {
	ListUnconfirmed() ([]*types.StakeRecord, error)
	Confirm(id string) error
}

// Failure describes one record a pass could not settle this time. The
// record stays unconfirmed and is retried on the next invocation.
type Failure struct {
	ID     string `json:"id"`
	TxID   string `json:"txId"`
	Reason string `json:"reason"`
}

// Report summarizes one reconciliation pass.
type Report struct {
	RunID     string    `json:"runId"`
	Checked   int       `json:"checked"`
	Confirmed int       `json:"confirmed"`
	Skipped   int       `json:"skipped"`
	Failures  []Failure `json:"failures,omitempty"`
}

// Engine cross-references pending stakes against the chain explorers and
// promotes them to confirmed. It owns no timer; invocations are driven
// by an external trigger and each processes the unconfirmed set to
// completion.
type Engine struct {
	ledger   Ledger
	btcProbe probe.BtcProbe
	evmProbe probe.EvmProbe
}

func NewEngine(ledger Ledger, btcProbe probe.BtcProbe, evmProbe probe.EvmProbe) *Engine {
	return &Engine{ledger: ledger, btcProbe: btcProbe, evmProbe: evmProbe}
}

// ReconcileAll fetches every unconfirmed stake and checks each against
// the probe matching its asset, fanning the probe calls out per record.
// A probe failure for one record never aborts the others; the whole call
// fails only when the unconfirmed set itself cannot be fetched, in which
// case nothing is written. Confirm writes are idempotent, so overlapping
// passes racing the same record converge on the same state.
func (e *Engine) ReconcileAll(ctx context.Context) (*Report, error) {
	records, err := e.ledger.ListUnconfirmed()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unconfirmed stakes: %w", err)
	}

	report := &Report{RunID: uuid.New().String(), Checked: len(records)}
	log.Infof("Reconcile run %s started, %d unconfirmed stake(s)", report.RunID, len(records))

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, record := range records {
		wg.Add(1)
		go func(record *types.StakeRecord) {
			defer wg.Done()

			confirmed, reason := e.checkRecord(ctx, record)
			if reason == "" && confirmed {
				if err := e.ledger.Confirm(record.ID); err != nil {
					reason = fmt.Sprintf("confirm write failed: %v", err)
					confirmed = false
				}
			}

			mu.Lock()
			defer mu.Unlock()
			if reason != "" {
				report.Skipped++
				report.Failures = append(report.Failures, Failure{ID: record.ID, TxID: record.TxID, Reason: reason})
				return
			}
			if confirmed {
				report.Confirmed++
			}
		}(record)
	}
	wg.Wait()

	log.Infof("Reconcile run %s finished, confirmed %d, skipped %d of %d",
		report.RunID, report.Confirmed, report.Skipped, report.Checked)
	return report, nil
}

// checkRecord evaluates the confirmation predicate for one stake. A
// non-empty reason means the record was skipped this pass.
func (e *Engine) checkRecord(ctx context.Context, record *types.StakeRecord) (bool, string) {
	switch record.Asset {
	case types.AssetTBTC:
		fact, err := e.btcProbe.Probe(ctx, record.TxID)
		if err != nil {
			log.Warnf("Failed to probe btc tx %s for stake %s: %v", record.TxID, record.ID, err)
			return false, err.Error()
		}
		return fact != nil && fact.Confirmed, ""
	case types.AssetWBTC:
		fact, err := e.evmProbe.Probe(ctx, record.TxID)
		if err != nil {
			log.Warnf("Failed to probe evm tx %s for stake %s: %v", record.TxID, record.ID, err)
			return false, err.Error()
		}
		return fact != nil && fact.BlockNumber != "" && fact.IsError == probe.EvmNoError, ""
	default:
		// Never confirmable until the stored asset value is fixed.
		log.Warnf("Stake %s has unrecognized asset %q, skipping", record.ID, record.Asset)
		return false, fmt.Sprintf("unrecognized asset %q", record.Asset)
	}
}
