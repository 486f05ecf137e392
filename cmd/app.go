package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dualstake/stake-vault/internal/access"
	"github.com/dualstake/stake-vault/internal/config"
	"github.com/dualstake/stake-vault/internal/db"
	"github.com/dualstake/stake-vault/internal/http"
	"github.com/dualstake/stake-vault/internal/price"
	"github.com/dualstake/stake-vault/internal/probe"
	"github.com/dualstake/stake-vault/internal/reconcile"
	"github.com/dualstake/stake-vault/internal/store"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type Application struct {
	DatabaseManager *db.DatabaseManager
	Store           *store.Store
	Engine          *reconcile.Engine
	HTTPServer      *http.HTTPServer
}

func NewApplication() *Application {
	if err := godotenv.Load(); err != nil {
		log.Debugf("No .env file loaded: %v", err)
	}
	config.InitConfig()

	dbm := db.NewDatabaseManager()
	stakeStore := store.NewStore(dbm)
	engine := reconcile.NewEngine(stakeStore, probe.NewMempoolProbe(), probe.NewEtherscanProbe())
	oracle := price.NewCoinGeckoOracle()
	policy := access.NewPolicy(config.AppConfig.AdminAddresses)
	httpServer := http.NewHTTPServer(stakeStore, engine, oracle, policy)

	return &Application{
		DatabaseManager: dbm,
		Store:           stakeStore,
		Engine:          engine,
		HTTPServer:      httpServer,
	}
}

func (app *Application) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.HTTPServer.Start(ctx)
	}()

	// The engine owns no timer; this ticker stands in for an external
	// scheduler when RECONCILE_INTERVAL is set.
	if interval := config.AppConfig.ReconcileInterval; interval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.runReconcileLoop(ctx, interval)
		}()
	}

	<-stop
	log.Info("Receiving exit signal...")

	cancel()

	wg.Wait()
	log.Info("Server stopped")
}

func (app *Application) runReconcileLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := app.Engine.ReconcileAll(ctx); err != nil {
				log.Errorf("Scheduled reconcile failed: %v", err)
			}
		}
	}
}

func main() {
	app := NewApplication()
	app.Run()
}
