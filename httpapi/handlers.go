package httpapi

import (
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"github.com/fiberpay/ckb-custody-go/common"
	"github.com/fiberpay/ckb-custody-go/errs"
	"github.com/fiberpay/ckb-custody-go/fiberman"
)

// Health pings the payment-channel node and reports the round trip. The check
// fails when the node is unreachable.
func (s *Server) Health(c *gin.Context) {
	start := time.Now()
	if err := s.fiber.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"latency_ms": time.Since(start).Milliseconds(),
	})
}

// Address reports the managed wallet address.
func (s *Server) Address(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"address": s.wallet.Address()})
}

// Balance reports the native capacity balance, or the balance of the token
// class named by the `token` query parameter.
func (s *Server) Balance(c *gin.Context) {
	tokenClass := c.Query("token")
	if tokenClass == "" {
		shannons, err := s.wallet.CapacityBalance(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"balance":  common.BaseUnitToDisplay(shannons, common.CKBDecimals),
			"shannons": shannons,
		})
		return
	}

	token, ok := s.builder.Tokens[tokenClass]
	if !ok {
		writeError(c, errors.Wrapf(errs.ErrValidation, "unknown token class %q", tokenClass))
		return
	}
	total, err := s.wallet.TokenBalance(c.Request.Context(), token.TypeScript)
	if err != nil {
		writeError(c, err)
		return
	}
	base, err := decimal.NewFromString(total.String())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      tokenClass,
		"balance":    base.Shift(-token.Decimals).String(),
		"base_units": total.String(),
	})
}

type transferRequest struct {
	Destination string `json:"destination"`
	Amount      string `json:"amount"`
	IgnoreLimit bool   `json:"ignore_limit"`
}

func (s *Server) Transfer(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.Wrapf(errs.ErrValidation, "%v", err))
		return
	}
	if req.Destination == "" || req.Amount == "" {
		writeError(c, errors.Wrap(errs.ErrValidation, "destination and amount are required"))
		return
	}
	txHash, err := s.builder.TransferNative(c.Request.Context(), req.Destination, req.Amount, req.IgnoreLimit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tx_hash": txHash})
}

type tokenTransferRequest struct {
	Token       string `json:"token"`
	Destination string `json:"destination"`
	Amount      string `json:"amount"`
	IgnoreLimit bool   `json:"ignore_limit"`
}

func (s *Server) TransferToken(c *gin.Context) {
	var req tokenTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.Wrapf(errs.ErrValidation, "%v", err))
		return
	}
	if req.Token == "" || req.Destination == "" || req.Amount == "" {
		writeError(c, errors.Wrap(errs.ErrValidation, "token, destination and amount are required"))
		return
	}
	txHash, err := s.builder.TransferToken(c.Request.Context(), req.Token, req.Destination, req.Amount, req.IgnoreLimit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tx_hash": txHash})
}

type peerConnectRequest struct {
	Address string `json:"address"`
}

func (s *Server) PeerConnect(c *gin.Context) {
	var req peerConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Address == "" {
		writeError(c, errors.Wrap(errs.ErrValidation, "peer address is required"))
		return
	}
	if err := s.fiber.ConnectPeer(c.Request.Context(), &fiberman.ConnectPeerParams{Address: req.Address}); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "connected"})
}

type channelOpenRequest struct {
	PeerID        string `json:"peer_id"`
	FundingAmount string `json:"funding_amount"` // display units
	Public        bool   `json:"public"`
}

func (s *Server) ChannelOpen(c *gin.Context) {
	var req channelOpenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.Wrapf(errs.ErrValidation, "%v", err))
		return
	}
	if req.PeerID == "" || req.FundingAmount == "" {
		writeError(c, errors.Wrap(errs.ErrValidation, "peer_id and funding_amount are required"))
		return
	}
	shannons, err := common.DisplayToBaseUnit(req.FundingAmount, common.CKBDecimals)
	if err != nil {
		writeError(c, errors.Wrapf(errs.ErrValidation, "%v", err))
		return
	}
	result, err := s.fiber.OpenChannel(c.Request.Context(), &fiberman.OpenChannelParams{
		PeerID:        req.PeerID,
		FundingAmount: common.Uint64ToHex(shannons),
		Public:        req.Public,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"temporary_channel_id": result.TemporaryChannelID})
}

func (s *Server) ChannelList(c *gin.Context) {
	channels, err := s.fiber.ListChannels(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channels": channels})
}

type channelCloseRequest struct {
	ChannelID string `json:"channel_id"`
	FeeRate   string `json:"fee_rate"`
}

func (s *Server) ChannelClose(c *gin.Context) {
	var req channelCloseRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ChannelID == "" {
		writeError(c, errors.Wrap(errs.ErrValidation, "channel_id is required"))
		return
	}
	err := s.fiber.ShutdownChannel(c.Request.Context(), &fiberman.ShutdownChannelParams{
		ChannelID: req.ChannelID,
		FeeRate:   req.FeeRate,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "closing"})
}

type invoiceParseRequest struct {
	Invoice string `json:"invoice"`
}

func (s *Server) InvoiceParse(c *gin.Context) {
	var req invoiceParseRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Invoice == "" {
		writeError(c, errors.Wrap(errs.ErrValidation, "invoice is required"))
		return
	}
	invoice, err := s.fiber.ParseInvoice(c.Request.Context(), req.Invoice)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := gin.H{
		"payment_hash": invoice.PaymentHash,
		"description":  invoice.Description,
	}
	if shannons, err := common.HexToUint64(invoice.Amount); err == nil {
		resp["amount"] = common.BaseUnitToDisplay(shannons, common.CKBDecimals)
	}
	if ts, err := common.HexMsToTime(invoice.Timestamp); err == nil {
		resp["timestamp"] = ts.UTC().Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}

type invoicePayRequest struct {
	Invoice string `json:"invoice"`
	Amount  string `json:"amount"` // optional cross-check, display units
}

// InvoicePay parses the invoice, verifies the expected amount when the caller
// supplies one, sends the payment and waits for a terminal state.
func (s *Server) InvoicePay(c *gin.Context) {
	var req invoicePayRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Invoice == "" {
		writeError(c, errors.Wrap(errs.ErrValidation, "invoice is required"))
		return
	}

	invoice, err := s.fiber.ParseInvoice(c.Request.Context(), req.Invoice)
	if err != nil {
		writeError(c, err)
		return
	}
	if req.Amount != "" {
		expected, err := common.DisplayToBaseUnit(req.Amount, common.CKBDecimals)
		if err != nil {
			writeError(c, errors.Wrapf(errs.ErrValidation, "%v", err))
			return
		}
		invoiced, err := common.HexToUint64(invoice.Amount)
		if err != nil {
			writeError(c, errors.Wrapf(errs.ErrValidation, "invoice carries malformed amount %q", invoice.Amount))
			return
		}
		if expected != invoiced {
			writeError(c, errors.Wrapf(errs.ErrTransfer,
				"invoice amount mismatch: invoice is for %s, request says %s",
				common.BaseUnitToDisplay(invoiced, common.CKBDecimals), req.Amount))
			return
		}
	}

	payment, err := s.fiber.SendPayment(c.Request.Context(), &fiberman.SendPaymentParams{Invoice: req.Invoice})
	if err != nil {
		writeError(c, err)
		return
	}

	final, err := fiberman.WaitForPayment(c.Request.Context(), s.fiber, payment.PaymentHash,
		s.cfg.PaymentPollInterval, s.cfg.PaymentMaxWait)
	if err != nil {
		writeError(c, err)
		return
	}
	if final.Status == fiberman.PaymentStatusFailed {
		writeError(c, errors.Wrapf(errs.ErrTransfer, "payment failed: %s", final.FailedError))
		return
	}

	logger.WithFields(logger.Fields{
		"paymentHash": final.PaymentHash,
		"status":      final.Status,
	}).Info("invoice paid")
	c.JSON(http.StatusOK, gin.H{
		"payment_hash": final.PaymentHash,
		"status":       final.Status,
	})
}
