package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/fiberpay/ckb-custody-go/cmd"
	"github.com/fiberpay/ckb-custody-go/logconfig"
)

const (
	ENV_CONFIG_FILE_PATH = "WALLET_CONFIG"
)

func main() {
	logconfig.ConfigInfoLogger()

	// Tool to read environment variables
	viper.AutomaticEnv()

	// Accessing an environment variable of configuration file location.
	_config_file := viper.GetString(ENV_CONFIG_FILE_PATH)
	fmt.Printf("Wallet server configuration file = %s\n", _config_file)

	// See if file exists
	if !cmd.FileExists(_config_file) {
		fmt.Printf("Wallet server configuration file not found: %s\n", _config_file)
		return
	}

	// Read from config file.
	success := initializeViper(_config_file)
	if !success {
		return
	}

	// Make the configuration
	wsc := PrepareWalletServerConfig()
	if wsc == nil {
		fmt.Printf("Error loading wallet server configuration\n")
		return
	}

	fmt.Println("Starting wallet server... press Ctrl+C to kill the server")
	// Start server and block.
	cmd.StartWalletServerAndWait(wsc)
}

func initializeViper(filePath string) bool {
	viper.SetConfigFile(filePath)
	if err := viper.ReadInConfig(); err != nil {
		fmt.Printf("Error reading configuration file, %s", err)
		return false
	}
	return true
}

// PrepareWalletServerConfig reads configuration variables and returns a WalletServerConfig.
func PrepareWalletServerConfig() *cmd.WalletServerConfig {
	// Default the network to testnet unless told otherwise.
	network := viper.GetString("CKB_NETWORK")
	if network != "mainnet" {
		network = "testnet"
	}

	return &cmd.WalletServerConfig{
		// ledger side
		Network:         network,
		CkbNodeURL:      viper.GetString("CKB_NODE_URL"),
		CkbIndexerURL:   viper.GetString("CKB_INDEXER_URL"),
		CoreAccountPriv: viper.GetString("CORE_ACCOUNT_PRIV"),
		// counter store side
		RedisAddr:     viper.GetString("REDIS_ADDR"),
		RedisPassword: viper.GetString("REDIS_PASSWORD"),
		RedisDB:       viper.GetInt("REDIS_DB"),
		// payment-channel side
		FiberNodeURL: viper.GetString("FIBER_NODE_URL"),
		// Http side
		HttpIp:    viper.GetString("HTTP_IP"),
		HttpPort:  viper.GetString("HTTP_PORT"),
		AuthToken: viper.GetString("AUTH_TOKEN"),
		// optional token class
		TokenClass:     viper.GetString("TOKEN_CLASS"),
		TokenCodeHash:  viper.GetString("TOKEN_CODE_HASH"),
		TokenArgs:      viper.GetString("TOKEN_ARGS"),
		TokenDepTxHash: viper.GetString("TOKEN_DEP_TX_HASH"),
		TokenDepIndex:  viper.GetUint32("TOKEN_DEP_INDEX"),
		TokenDecimals:  viper.GetInt32("TOKEN_DECIMALS"),
	}
}
