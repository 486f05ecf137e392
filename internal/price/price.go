package price

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dualstake/stake-vault/internal/config"
	log "github.com/sirupsen/logrus"
)

// Oracle returns the current BTC price in the reference currency. A
// return of 0 means "unavailable"; callers stamp it as the not-yet-known
// sentinel and backfill later.
type Oracle interface {
	CurrentPrice(ctx context.Context) float64
}

type coinGeckoResp struct {
	Bitcoin struct {
		Usd float64 `json:"usd"`
	} `json:"bitcoin"`
}

type CoinGeckoOracle struct {
	baseURL    string
	httpClient *http.Client
}

func NewCoinGeckoOracle() *CoinGeckoOracle {
	return &CoinGeckoOracle{
		baseURL:    config.AppConfig.PriceAPIURL,
		httpClient: &http.Client{Timeout: config.AppConfig.ExplorerTimeout},
	}
}

func (o *CoinGeckoOracle) CurrentPrice(ctx context.Context) float64 {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"?ids=bitcoin&vs_currencies=usd", nil)
	if err != nil {
		log.Errorf("Failed to build price request: %v", err)
		return 0
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		log.Errorf("Failed to fetch BTC price: %v", err)
		return 0
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Errorf("Failed to fetch BTC price, status %d", resp.StatusCode)
		return 0
	}

	var priceResp coinGeckoResp
	if err := json.NewDecoder(resp.Body).Decode(&priceResp); err != nil {
		log.Errorf("Failed to decode BTC price response: %v", err)
		return 0
	}
	return priceResp.Bitcoin.Usd
}
