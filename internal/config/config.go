package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var AppConfig Config

func InitConfig() {
	viper.AutomaticEnv()

	// Default config
	viper.SetDefault("HTTP_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DB_DIR", "/app/db")
	viper.SetDefault("BTC_NETWORK_TYPE", "testnet3")
	viper.SetDefault("MEMPOOL_API_URL", "https://mempool.space/testnet/api")
	viper.SetDefault("ETHERSCAN_API_URL", "https://api-sepolia.etherscan.io/api")
	viper.SetDefault("ETHERSCAN_API_KEY", "")
	viper.SetDefault("PRICE_API_URL", "https://api.coingecko.com/api/v3/simple/price")
	viper.SetDefault("EXPLORER_TIMEOUT", "30s")
	viper.SetDefault("ADMIN_ADDRESSES", "")
	viper.SetDefault("ADMIN_JWT_SECRET", "")
	viper.SetDefault("BTC_VAULT_ADDRESS", "")
	viper.SetDefault("EVM_VAULT_ADDRESS", "")
	viper.SetDefault("WBTC_TOKEN_ADDRESS", "")
	viper.SetDefault("SETTLEMENT_CONTRACT", "")
	viper.SetDefault("RECONCILE_INTERVAL", "0s")
	viper.SetDefault("LOCK_DURATIONS_DAYS", "0.00347,30,90,365")

	logLevel, err := logrus.ParseLevel(strings.ToLower(viper.GetString("LOG_LEVEL")))
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}

	AppConfig = Config{
		HTTPPort:           viper.GetString("HTTP_PORT"),
		BTCNetworkType:     viper.GetString("BTC_NETWORK_TYPE"),
		MempoolAPIURL:      viper.GetString("MEMPOOL_API_URL"),
		EtherscanAPIURL:    viper.GetString("ETHERSCAN_API_URL"),
		EtherscanAPIKey:    viper.GetString("ETHERSCAN_API_KEY"),
		PriceAPIURL:        viper.GetString("PRICE_API_URL"),
		ExplorerTimeout:    viper.GetDuration("EXPLORER_TIMEOUT"),
		AdminAddresses:     splitList(viper.GetString("ADMIN_ADDRESSES")),
		AdminJwtSecret:     viper.GetString("ADMIN_JWT_SECRET"),
		BTCVaultAddress:    viper.GetString("BTC_VAULT_ADDRESS"),
		EVMVaultAddress:    viper.GetString("EVM_VAULT_ADDRESS"),
		WBTCTokenAddress:   viper.GetString("WBTC_TOKEN_ADDRESS"),
		SettlementContract: viper.GetString("SETTLEMENT_CONTRACT"),
		ReconcileInterval:  viper.GetDuration("RECONCILE_INTERVAL"),
		LockDurationsDays:  parseDurations(viper.GetString("LOCK_DURATIONS_DAYS")),
		DbDir:              viper.GetString("DB_DIR"),
		LogLevel:           logLevel,
	}

	logrus.Infof("Init config, ReconcileInterval %v, ExplorerTimeout %v, %d admin address(es)",
		AppConfig.ReconcileInterval, AppConfig.ExplorerTimeout, len(AppConfig.AdminAddresses))

	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(AppConfig.LogLevel)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseDurations(s string) []float64 {
	var out []float64
	for _, part := range splitList(s) {
		d, err := strconv.ParseFloat(part, 64)
		if err != nil || d <= 0 {
			logrus.Fatalf("Invalid lock duration %q: %v", part, err)
		}
		out = append(out, d)
	}
	return out
}

type Config struct {
	HTTPPort           string
	BTCNetworkType     string
	MempoolAPIURL      string
	EtherscanAPIURL    string
	EtherscanAPIKey    string
	PriceAPIURL        string
	ExplorerTimeout    time.Duration
	AdminAddresses     []string
	AdminJwtSecret     string
	BTCVaultAddress    string
	EVMVaultAddress    string
	WBTCTokenAddress   string
	SettlementContract string
	ReconcileInterval  time.Duration
	LockDurationsDays  []float64
	DbDir              string
	LogLevel           logrus.Level
}
