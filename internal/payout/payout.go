package payout

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/dualstake/stake-vault/internal/types"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	log "github.com/sirupsen/logrus"
)

// Kind discriminates the two payout paths.
type Kind string

const (
	// KindBuyBack is the wBTC path: a single settlement-contract call
	// keyed by the on-chain stake reference. The split is computed by
	// the contract, not here.
	KindBuyBack Kind = "buyback"
	// KindDisbursement is the tBTC path: an operator-executed principal
	// return plus, on early exit, a reference-currency dividend.
	KindDisbursement Kind = "disbursement"
)

// Plan is what an operator must disburse for one stake.
type Plan struct {
	Kind Kind `json:"kind"`

	// BuyBack fields.
	StakeID  uint64 `json:"stakeId,omitempty"`
	CallData string `json:"callData,omitempty"` // abi-encoded buyBack(stakeId), ready to sign

	// Disbursement fields.
	PrincipalReturn float64 `json:"principalReturn"`
	DividendAmount  float64 `json:"dividendAmount"`
	Matured         bool    `json:"matured"`
}

const settlementABI = `[{"inputs":[{"internalType":"uint256","name":"stakeId","type":"uint256"}],"name":"buyBack","outputs":[],"stateMutability":"nonpayable","type":"function"}]`

var buyBackABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(settlementABI))
	if err != nil {
		log.Fatalf("Failed to parse settlement abi: %v", err)
	}
	buyBackABI = parsed
}

// Compute derives the disbursement plan for a stake at the given time.
// It is pure and must be recomputed on every request: maturity depends
// on now, so a plan previewed earlier cannot be trusted at execution.
// Callers gate real disbursement on record.Status.Confirmed.
func Compute(record *types.StakeRecord, now time.Time) (*Plan, error) {
	switch record.Asset {
	case types.AssetWBTC:
		if record.Status.StakeID == nil {
			return nil, fmt.Errorf("%w: stake %s has no on-chain buy-back reference", types.ErrPrecondition, record.ID)
		}
		stakeID := *record.Status.StakeID
		callData, err := buyBackABI.Pack("buyBack", new(big.Int).SetUint64(stakeID))
		if err != nil {
			return nil, err
		}
		return &Plan{
			Kind:     KindBuyBack,
			StakeID:  stakeID,
			CallData: hexutil.Encode(callData),
			Matured:  record.Matured(now),
		}, nil
	case types.AssetTBTC:
		if record.Matured(now) {
			return &Plan{
				Kind:            KindDisbursement,
				PrincipalReturn: roundTo(record.Amount, 8),
				DividendAmount:  0,
				Matured:         true,
			}, nil
		}
		half := record.Amount / 2
		return &Plan{
			Kind:            KindDisbursement,
			PrincipalReturn: roundTo(half, 8),
			DividendAmount:  roundTo(half*record.BtcPriceAtTx, 2),
			Matured:         false,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown asset %q", types.ErrPrecondition, record.Asset)
	}
}

// roundTo rounds half away from zero at the given decimal precision.
func roundTo(value float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Round(value*factor) / factor
}
