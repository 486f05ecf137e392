package types

import "github.com/btcsuite/btcd/chaincfg"

// GetBTCNetwork maps the configured network type to chain parameters,
// defaulting to testnet3 since the vault runs against testnet explorers.
func GetBTCNetwork(networkType string) *chaincfg.Params {
	switch networkType {
	case "mainnet":
		return &chaincfg.MainNetParams
	case "regtest":
		return &chaincfg.RegressionNetParams
	case "signet":
		return &chaincfg.SigNetParams
	default:
		return &chaincfg.TestNet3Params
	}
}
