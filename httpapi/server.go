// HTTP surface of the backend. Routes are a direct mapping onto the transfer
// builder, the wallet and the payment-channel node client; the server itself
// holds no state.

package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fiberpay/ckb-custody-go/ckbman/wallet"
	"github.com/fiberpay/ckb-custody-go/errs"
	"github.com/fiberpay/ckb-custody-go/fiberman"
	"github.com/fiberpay/ckb-custody-go/transfer"
)

const (
	ROUTE_HEALTH         = "/health"
	ROUTE_ADDRESS        = "/address"
	ROUTE_BALANCE        = "/balance"
	ROUTE_TRANSFER       = "/transfer"
	ROUTE_TRANSFER_TOKEN = "/transfer/token"
	ROUTE_PEER_CONNECT   = "/peer/connect"
	ROUTE_CHANNEL_OPEN   = "/channel/open"
	ROUTE_CHANNEL_LIST   = "/channel/list"
	ROUTE_CHANNEL_CLOSE  = "/channel/close"
	ROUTE_INVOICE_PAY    = "/invoice/pay"
	ROUTE_INVOICE_PARSE  = "/invoice/parse"
)

// ChannelClient is the payment-channel node surface the server consumes.
// *fiberman.Client satisfies it.
type ChannelClient interface {
	Ping(ctx context.Context) error
	ConnectPeer(ctx context.Context, params *fiberman.ConnectPeerParams) error
	OpenChannel(ctx context.Context, params *fiberman.OpenChannelParams) (*fiberman.OpenChannelResult, error)
	ListChannels(ctx context.Context) ([]fiberman.Channel, error)
	ShutdownChannel(ctx context.Context, params *fiberman.ShutdownChannelParams) error
	ParseInvoice(ctx context.Context, encoded string) (*fiberman.Invoice, error)
	SendPayment(ctx context.Context, params *fiberman.SendPaymentParams) (*fiberman.Payment, error)
	GetPayment(ctx context.Context, paymentHash string) (*fiberman.Payment, error)
}

type ServerConfig struct {
	ServerIP   string // listen ip
	ServerPort string // listen port

	// AuthToken gates mutating routes; empty disables the gate.
	AuthToken string

	PaymentPollInterval time.Duration
	PaymentMaxWait      time.Duration
}

type Server struct {
	cfg *ServerConfig

	// upstream components
	builder *transfer.Builder
	wallet  *wallet.Wallet
	fiber   ChannelClient
}

func NewServer(cfg *ServerConfig, builder *transfer.Builder, w *wallet.Wallet, fiber ChannelClient) *Server {
	return &Server{
		cfg:     cfg,
		builder: builder,
		wallet:  w,
		fiber:   fiber,
	}
}

// Hook up routes & handlers
func (s *Server) SetupRouter() *gin.Engine {
	router := gin.Default()

	router.GET(ROUTE_HEALTH, s.Health)
	router.GET(ROUTE_ADDRESS, s.Address)
	router.GET(ROUTE_BALANCE, s.Balance)
	router.GET(ROUTE_CHANNEL_LIST, s.ChannelList)
	router.POST(ROUTE_INVOICE_PARSE, s.InvoiceParse)

	// mutating routes sit behind the auth gate
	gated := router.Group("/", s.requireAuth)
	gated.POST(ROUTE_TRANSFER, s.Transfer)
	gated.POST(ROUTE_TRANSFER_TOKEN, s.TransferToken)
	gated.POST(ROUTE_PEER_CONNECT, s.PeerConnect)
	gated.POST(ROUTE_CHANNEL_OPEN, s.ChannelOpen)
	gated.POST(ROUTE_CHANNEL_CLOSE, s.ChannelClose)
	gated.POST(ROUTE_INVOICE_PAY, s.InvoicePay)

	return router
}

// Hook up router & ip:port
func (s *Server) Run() error {
	router := s.SetupRouter()
	address := s.cfg.ServerIP + ":" + s.cfg.ServerPort
	return router.Run(address)
}

// requireAuth compares the Authorization header against the configured token.
func (s *Server) requireAuth(c *gin.Context) {
	if s.cfg.AuthToken == "" {
		c.Next()
		return
	}
	if c.GetHeader("Authorization") != s.cfg.AuthToken {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}

// writeError maps the error taxonomy onto status codes: client-side failures
// are 400, everything else 500. The message goes out verbatim.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errs.IsClientError(err) {
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
