package probe

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dualstake/stake-vault/internal/config"
	"github.com/go-errors/errors"
)

// BtcTxFact is the normalized confirmation fact of a UTXO-chain
// transaction. A nil fact means the explorer does not know the tx.
type BtcTxFact struct {
	Confirmed   bool
	BlockHeight uint64
	BlockTime   int64
}

type BtcProbe interface {
	Probe(ctx context.Context, txID string) (*BtcTxFact, error)
}

// MempoolTxResp mirrors the mempool.space /tx/{txid} response.
type MempoolTxResp struct {
	Txid   string `json:"txid"`
	Status struct {
		Confirmed   bool   `json:"confirmed"`
		BlockHeight uint64 `json:"block_height"`
		BlockTime   int64  `json:"block_time"`
	} `json:"status"`
}

type MempoolProbe struct {
	baseURL    string
	httpClient *http.Client
}

func NewMempoolProbe() *MempoolProbe {
	return &MempoolProbe{
		baseURL:    config.AppConfig.MempoolAPIURL,
		httpClient: &http.Client{Timeout: config.AppConfig.ExplorerTimeout},
	}
}

func (p *MempoolProbe) Probe(ctx context.Context, txID string) (*BtcTxFact, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/tx/"+txID, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, errors.Errorf("failed to query mempool tx %s: %v", txID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("mempool tx %s query returned status %d", txID, resp.StatusCode)
	}

	var txResp MempoolTxResp
	if err := json.NewDecoder(resp.Body).Decode(&txResp); err != nil {
		return nil, errors.Errorf("failed to decode mempool tx %s: %v", txID, err)
	}

	return &BtcTxFact{
		Confirmed:   txResp.Status.Confirmed,
		BlockHeight: txResp.Status.BlockHeight,
		BlockTime:   txResp.Status.BlockTime,
	}, nil
}
