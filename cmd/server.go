// Server = counter store + rate limiter + wallet + chain sync monitor +
// payment-channel client + http surface.
// All components are configured via a config file (strings!).

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/fiberpay/ckb-custody-go/chainsync"
	"github.com/fiberpay/ckb-custody-go/ckbman"
	"github.com/fiberpay/ckb-custody-go/ckbman/rpc"
	"github.com/fiberpay/ckb-custody-go/ckbman/wallet"
	"github.com/fiberpay/ckb-custody-go/counterstore"
	"github.com/fiberpay/ckb-custody-go/fiberman"
	"github.com/fiberpay/ckb-custody-go/httpapi"
	"github.com/fiberpay/ckb-custody-go/ratelimit"
	"github.com/fiberpay/ckb-custody-go/signers"
	"github.com/fiberpay/ckb-custody-go/transfer"
)

// Default params for the server. More often we don't recommend users to tweak
// those, so we list them here.
const (
	// chain sync monitor config
	frequencyToSyncChain = 3 * time.Second

	// invoice payment poll config
	paymentPollInterval = 2 * time.Second
	paymentMaxWait      = 2 * time.Minute
)

// Keep the configuration's fields as "text" as possible.
// Its easier to load it from env vars or a config file.
type WalletServerConfig struct {
	// ledger side
	Network         string // "mainnet" or "testnet"
	CkbNodeURL      string // json rpc url of the ledger node
	CkbIndexerURL   string // indexer url; empty means the node serves both
	CoreAccountPriv string // private key of the custody controlled account

	// counter store side
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// payment-channel side
	FiberNodeURL string

	// Http side
	HttpIp    string // eg. 0.0.0.0
	HttpPort  string // eg. 8080
	AuthToken string // Authorization header value for mutating routes

	// Optional single configured token class.
	TokenClass     string // externally visible key; empty disables tokens
	TokenCodeHash  string
	TokenArgs      string
	TokenDepTxHash string
	TokenDepIndex  uint32
	TokenDecimals  int32
}

// WalletServer holds the objects that consists of the wallet backend.
type WalletServer struct {
	MyStore   *counterstore.RedisStore
	MyLimiter *ratelimit.Limiter

	// ledger side: generated objects
	MyRpcClient *rpc.RpcClient
	MyWallet    *wallet.Wallet
	MyBuilder   *transfer.Builder

	// sync side
	MySyncStore *chainsync.SyncStore
	MyMonitor   *chainsync.Monitor

	// payment-channel side
	MyFiber *fiberman.Client

	MyHttpServer *httpapi.Server
}

// NewWalletServer creates a new wallet server.
// ctx is used for parental context to cancel the server's background loops.
// wg is used to wait for the goroutines inside the server to finish.
func NewWalletServer(wsc *WalletServerConfig, ctx context.Context, wg *sync.WaitGroup) (*WalletServer, error) {
	network := ckbman.Network(wsc.Network)

	// 0) counter store + rate limiter over it
	myStore := counterstore.NewRedisStore(&counterstore.RedisConfig{
		Addr:     wsc.RedisAddr,
		Password: wsc.RedisPassword,
		DB:       wsc.RedisDB,
	})
	if err := myStore.Ping(ctx); err != nil {
		logger.Fatalf("cannot reach counter store at %s: %v", wsc.RedisAddr, err)
		return nil, err
	}
	myLimiter := ratelimit.NewLimiter(myStore, ratelimit.DefaultConfig())

	// 1) ledger node rpc client
	myRpcClient, err := rpc.NewRpcClient(ctx, &rpc.RpcClientConfig{
		NodeURL:    wsc.CkbNodeURL,
		IndexerURL: wsc.CkbIndexerURL,
	})
	if err != nil {
		logger.Fatalf("cannot connect to ledger node %s: %v", wsc.CkbNodeURL, err)
		return nil, err
	}

	// 2) signer + wallet over the rpc client
	mySigner, err := signers.NewLocalSigner(wsc.CoreAccountPriv, network)
	if err != nil {
		logger.Fatalf("cannot create signer from private key: %v", err)
		return nil, err
	}
	logger.WithField("address", mySigner.Address()).Info("custody wallet address")
	myWallet := wallet.NewWallet(myRpcClient, mySigner, wallet.DefaultFeeRate)

	// 3) transfer builder = wallet + limiter + token table
	myBuilder := transfer.NewBuilder(myWallet, myLimiter, &transfer.Config{
		Network: network,
		Tokens:  prepareTokens(wsc),
	})

	// 4) chain sync monitor watching the custody lock
	mySyncStore := chainsync.NewSyncStore(myStore)
	myMonitor := chainsync.NewMonitor(
		&chainsync.MonitorConfig{
			Lock:     mySigner.LockScript(),
			Interval: frequencyToSyncChain,
		},
		chainsync.NewRpcSource(myRpcClient, network),
		mySyncStore,
	)

	// Important: turn on the sync loop!
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := myMonitor.Loop(ctx); err != nil && ctx.Err() == nil {
			logger.Fatalf("sync loop stopped: %v", err)
		}
	}()

	// 5) payment-channel node client
	myFiber, err := fiberman.NewClient(ctx, &fiberman.ClientConfig{NodeURL: wsc.FiberNodeURL})
	if err != nil {
		logger.Fatalf("cannot connect to payment node %s: %v", wsc.FiberNodeURL, err)
		return nil, err
	}

	// *** Setup the http server ***
	httpServer := httpapi.NewServer(
		&httpapi.ServerConfig{
			ServerIP:            wsc.HttpIp,
			ServerPort:          wsc.HttpPort,
			AuthToken:           wsc.AuthToken,
			PaymentPollInterval: paymentPollInterval,
			PaymentMaxWait:      paymentMaxWait,
		},
		myBuilder,
		myWallet,
		myFiber,
	)
	// Turn on the http server
	go func() {
		if err := httpServer.Run(); err != nil {
			logger.Fatalf("http server stopped: %v", err)
		}
	}()

	// Give it some time to start the http server
	time.Sleep(1 * time.Second)
	// *** End the setup of http server ***

	return &WalletServer{
		MyStore:      myStore,
		MyLimiter:    myLimiter,
		MyRpcClient:  myRpcClient,
		MyWallet:     myWallet,
		MyBuilder:    myBuilder,
		MySyncStore:  mySyncStore,
		MyMonitor:    myMonitor,
		MyFiber:      myFiber,
		MyHttpServer: httpServer,
	}, nil
}

// prepareTokens builds the token table from the flat config fields.
func prepareTokens(wsc *WalletServerConfig) map[string]transfer.TokenConfig {
	tokens := make(map[string]transfer.TokenConfig)
	if wsc.TokenClass == "" {
		return tokens
	}
	tokens[wsc.TokenClass] = transfer.TokenConfig{
		TypeScript: ckbman.Script{
			CodeHash: wsc.TokenCodeHash,
			HashType: ckbman.HashTypeType,
			Args:     wsc.TokenArgs,
		},
		CellDep: ckbman.CellDep{
			OutPoint: ckbman.OutPoint{TxHash: wsc.TokenDepTxHash, Index: wsc.TokenDepIndex},
			DepType:  ckbman.DepTypeCode,
		},
		Decimals: wsc.TokenDecimals,
	}
	return tokens
}

// Create, then start the wallet server and wait.
// Press Ctrl-C to kill the server.
func StartWalletServerAndWait(wsc *WalletServerConfig) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up a signal channel to listen for Ctrl-C (SIGINT) or SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Launch a new goroutine to handle the signal
	go func() {
		sig := <-sigCh
		fmt.Printf("Received signal: %v, cancelling context...\n", sig)
		cancel()
	}()

	var wg sync.WaitGroup

	server, err := NewWalletServer(wsc, ctx, &wg)
	if err != nil {
		logger.Fatalf("failed to create wallet server: %v", err)
		return
	}
	defer server.MyRpcClient.Close()
	defer server.MyFiber.Close()

	// wait for all routines to finish (which is forever)
	wg.Wait()
}
