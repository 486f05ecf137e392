package http

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/dualstake/stake-vault/internal/config"
	"github.com/dualstake/stake-vault/internal/types"
	"github.com/ethereum/go-ethereum/common"
)

// CreateTransactionRequest is the stake creation payload.
type CreateTransactionRequest struct {
	UserAddress      string      `json:"userAddress"`
	UserEvmAddress   string      `json:"userEvmAddress"`
	TxID             string      `json:"txId"`
	Amount           float64     `json:"amount"`
	Asset            types.Asset `json:"asset"`
	LockDurationDays float64     `json:"lockDurationDays"`
	StakeID          *uint64     `json:"stakeId,omitempty"` // wBTC settlement reference, if already known
}

func (req *CreateTransactionRequest) validate() error {
	if req.UserAddress == "" || req.UserEvmAddress == "" || req.TxID == "" || req.Asset == "" {
		return fmt.Errorf("%w: missing required transaction fields", types.ErrValidation)
	}
	if !req.Asset.Valid() {
		return fmt.Errorf("%w: unsupported asset %q", types.ErrValidation, req.Asset)
	}
	if req.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", types.ErrValidation)
	}
	if req.LockDurationDays <= 0 {
		return fmt.Errorf("%w: lock duration must be positive", types.ErrValidation)
	}

	network := types.GetBTCNetwork(config.AppConfig.BTCNetworkType)
	if _, err := btcutil.DecodeAddress(req.UserAddress, network); err != nil {
		return fmt.Errorf("%w: invalid btc address %q", types.ErrValidation, req.UserAddress)
	}
	if !common.IsHexAddress(req.UserEvmAddress) {
		return fmt.Errorf("%w: invalid evm address %q", types.ErrValidation, req.UserEvmAddress)
	}
	if req.StakeID != nil && req.Asset != types.AssetWBTC {
		return fmt.Errorf("%w: stakeId is only valid for wBTC", types.ErrValidation)
	}
	return nil
}
