package probe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/dualstake/stake-vault/internal/config"
	"github.com/go-errors/errors"
)

const (
	// Etherscan's no-error sentinel for a successfully executed tx.
	EvmNoError = "0"
	EvmError   = "1"
)

// EvmTxFact is the normalized confirmation fact of an EVM transaction.
// BlockNumber is empty while the tx is still pending; IsError follows
// the Etherscan convention ("0" = executed without error). A nil fact
// means the explorer does not know the tx.
type EvmTxFact struct {
	BlockNumber string
	IsError     string
}

type EvmProbe interface {
	Probe(ctx context.Context, txHash string) (*EvmTxFact, error)
}

type EtherscanProbe struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewEtherscanProbe() *EtherscanProbe {
	return &EtherscanProbe{
		baseURL:    config.AppConfig.EtherscanAPIURL,
		apiKey:     config.AppConfig.EtherscanAPIKey,
		httpClient: &http.Client{Timeout: config.AppConfig.ExplorerTimeout},
	}
}

type proxyResp struct {
	Result json.RawMessage `json:"result"`
}

type evmTx struct {
	Hash        string  `json:"hash"`
	BlockNumber *string `json:"blockNumber"`
}

type evmReceipt struct {
	Status      string `json:"status"`
	BlockNumber string `json:"blockNumber"`
}

func (p *EtherscanProbe) Probe(ctx context.Context, txHash string) (*EvmTxFact, error) {
	var tx evmTx
	found, err := p.proxyCall(ctx, "eth_getTransactionByHash", txHash, &tx)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	fact := &EvmTxFact{IsError: EvmNoError}
	if tx.BlockNumber != nil {
		fact.BlockNumber = *tx.BlockNumber
	}
	if fact.BlockNumber == "" {
		// Still pending, no receipt to consult.
		return fact, nil
	}

	var receipt evmReceipt
	found, err = p.proxyCall(ctx, "eth_getTransactionReceipt", txHash, &receipt)
	if err != nil {
		return nil, err
	}
	if !found {
		// Mined per the tx lookup but the receipt is not visible yet.
		// The execution outcome is unknown, so report nothing rather
		// than a fact the caller could act on.
		return nil, nil
	}
	if receipt.Status == "0x0" {
		fact.IsError = EvmError
	}
	return fact, nil
}

// proxyCall issues one Etherscan proxy-module request. Returns false
// when the chain answered with a null result (unknown tx hash).
func (p *EtherscanProbe) proxyCall(ctx context.Context, action, txHash string, out interface{}) (bool, error) {
	params := url.Values{}
	params.Set("module", "proxy")
	params.Set("action", action)
	params.Set("txhash", txHash)
	params.Set("apikey", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return false, err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false, errors.Errorf("failed to query etherscan %s for %s: %v", action, txHash, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, errors.Errorf("etherscan %s for %s returned status %d", action, txHash, resp.StatusCode)
	}

	var proxy proxyResp
	if err := json.NewDecoder(resp.Body).Decode(&proxy); err != nil {
		return false, errors.Errorf("failed to decode etherscan %s for %s: %v", action, txHash, err)
	}
	if len(proxy.Result) == 0 || string(proxy.Result) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(proxy.Result, out); err != nil {
		return false, errors.Errorf("failed to decode etherscan %s result for %s: %v", action, txHash, err)
	}
	return true, nil
}
