package http

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dualstake/stake-vault/internal/access"
	"github.com/dualstake/stake-vault/internal/config"
	"github.com/dualstake/stake-vault/internal/price"
	"github.com/dualstake/stake-vault/internal/reconcile"
	"github.com/dualstake/stake-vault/internal/store"
	"github.com/gin-gonic/gin"
)

type HTTPServer struct {
	store  *store.Store
	engine *reconcile.Engine
	oracle price.Oracle
	policy *access.Policy
}

func NewHTTPServer(store *store.Store, engine *reconcile.Engine, oracle price.Oracle, policy *access.Policy) *HTTPServer {
	return &HTTPServer{store: store, engine: engine, oracle: oracle, policy: policy}
}

func (hs *HTTPServer) Router() *gin.Engine {
	r := gin.Default()

	v1 := r.Group("/api/v1")
	v1.GET("/vault", hs.handleVaultAddresses)
	v1.GET("/transactions", hs.handleListTransactions)
	v1.POST("/transactions", hs.handleCreateTransaction)
	v1.GET("/transactions/:id", hs.handleGetTransaction)
	v1.GET("/transactions/:id/payout", hs.handlePayoutPreview)

	admin := v1.Group("", hs.adminAuth())
	admin.POST("/transactions/:id/claim", hs.handleClaim)
	admin.POST("/transactions/reconcile", hs.handleReconcile)
	admin.POST("/transactions/refresh-prices", hs.handleRefreshPrices)

	return r
}

func (hs *HTTPServer) Start(ctx context.Context) {
	r := hs.Router()

	// Use configuration port
	addr := ":" + config.AppConfig.HTTPPort
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("HTTP server shutdown error: %v", err)
		}
	}()

	log.Infof("HTTP server is running on port %s", config.AppConfig.HTTPPort)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start HTTP server: %v", err)
	}
}
