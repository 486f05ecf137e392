package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/dualstake/stake-vault/internal/config"
	"github.com/dualstake/stake-vault/internal/payout"
	"github.com/dualstake/stake-vault/internal/store"
	"github.com/dualstake/stake-vault/internal/types"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func (hs *HTTPServer) handleVaultAddresses(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"btc":                config.AppConfig.BTCVaultAddress,
		"evm":                config.AppConfig.EVMVaultAddress,
		"wbtcToken":          config.AppConfig.WBTCTokenAddress,
		"settlementContract": config.AppConfig.SettlementContract,
		"lockDurationsDays":  config.AppConfig.LockDurationsDays,
	})
}

func (hs *HTTPServer) handleListTransactions(c *gin.Context) {
	records, err := hs.store.ListAll()
	if err != nil {
		log.Errorf("Failed to fetch transactions: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to fetch transactions"})
		return
	}
	c.JSON(http.StatusOK, records)
}

func (hs *HTTPServer) handleCreateTransaction(c *gin.Context) {
	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "malformed request body"})
		return
	}
	if err := req.validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	// Stamp the creation price; 0 means unavailable and is backfilled
	// later via refresh-prices.
	btcPrice := hs.oracle.CurrentPrice(c.Request.Context())

	record, err := hs.store.Insert(store.InsertParams{
		UserAddress:      req.UserAddress,
		UserEvmAddress:   req.UserEvmAddress,
		TxID:             req.TxID,
		Amount:           req.Amount,
		Asset:            req.Asset,
		LockDurationDays: req.LockDurationDays,
		BtcPriceAtTx:     btcPrice,
		StakeID:          req.StakeID,
	})
	if err != nil {
		hs.writeError(c, err, "failed to create transaction")
		return
	}

	c.JSON(http.StatusCreated, record)
}

func (hs *HTTPServer) handleGetTransaction(c *gin.Context) {
	record, err := hs.store.GetByID(c.Param("id"))
	if err != nil {
		hs.writeError(c, err, "failed to fetch transaction")
		return
	}
	c.JSON(http.StatusOK, record)
}

// handlePayoutPreview computes the plan without gating or mutation. The
// plan is advisory: maturity is re-evaluated at claim time.
func (hs *HTTPServer) handlePayoutPreview(c *gin.Context) {
	record, err := hs.store.GetByID(c.Param("id"))
	if err != nil {
		hs.writeError(c, err, "failed to fetch transaction")
		return
	}
	plan, err := payout.Compute(record, time.Now())
	if err != nil {
		hs.writeError(c, err, "failed to compute payout")
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": record, "payout": plan})
}

// handleClaim executes the one-time payout of a confirmed stake. The
// plan is recomputed at execution time and the claimed flip is a
// conditional write, so neither a stale preview nor a concurrent claim
// can pay out twice.
func (hs *HTTPServer) handleClaim(c *gin.Context) {
	id := c.Param("id")
	record, err := hs.store.GetByID(id)
	if err != nil {
		hs.writeError(c, err, "failed to fetch transaction")
		return
	}
	if !record.Status.Confirmed {
		c.JSON(http.StatusConflict, gin.H{"message": "transaction is not confirmed yet"})
		return
	}

	plan, err := payout.Compute(record, time.Now())
	if err != nil {
		hs.writeError(c, err, "failed to compute payout")
		return
	}

	claimed, err := hs.store.Claim(id)
	if err != nil {
		hs.writeError(c, err, "failed to claim transaction")
		return
	}

	log.Infof("Stake %s claimed by %s, payout kind %s", id, c.GetString("adminAddress"), plan.Kind)
	c.JSON(http.StatusOK, gin.H{"transaction": claimed, "payout": plan})
}

func (hs *HTTPServer) handleReconcile(c *gin.Context) {
	report, err := hs.engine.ReconcileAll(c.Request.Context())
	if err != nil {
		log.Errorf("Reconcile run failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to update transaction statuses", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// handleRefreshPrices backfills the creation-price stamp of stakes
// recorded while the oracle was unavailable. A non-zero stamp is never
// overwritten.
func (hs *HTTPServer) handleRefreshPrices(c *gin.Context) {
	currentPrice := hs.oracle.CurrentPrice(c.Request.Context())
	if currentPrice == 0 {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to fetch current BTC price"})
		return
	}

	records, err := hs.store.ListAll()
	if err != nil {
		log.Errorf("Failed to fetch transactions for price refresh: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to fetch transactions"})
		return
	}

	updatedCount := 0
	for _, record := range records {
		if record.BtcPriceAtTx != 0 {
			continue
		}
		written, err := hs.store.BackfillPrice(record.ID, currentPrice)
		if err != nil {
			log.Errorf("Failed to backfill price for %s: %v", record.ID, err)
			continue
		}
		if written {
			updatedCount++
		}
	}

	c.JSON(http.StatusOK, gin.H{"updatedCount": updatedCount, "currentBtcPrice": currentPrice})
}

// writeError maps the error taxonomy to HTTP statuses. Privileged
// callers see the raw reason.
func (hs *HTTPServer) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, types.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	case errors.Is(err, types.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
	case errors.Is(err, types.ErrPrecondition):
		c.JSON(http.StatusConflict, gin.H{"message": err.Error()})
	case errors.Is(err, types.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"message": err.Error()})
	default:
		log.Errorf("%s: %v", fallback, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": fallback})
	}
}
