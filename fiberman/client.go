package fiberman

import (
	"context"

	"github.com/cockroachdb/errors"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// Client talks to a single payment-channel node.
type Client struct {
	rpc *gethrpc.Client
}

type ClientConfig struct {
	NodeURL string // payment-channel node JSON-RPC endpoint
}

func NewClient(ctx context.Context, cfg *ClientConfig) (*Client, error) {
	rpcClient, err := gethrpc.DialContext(ctx, cfg.NodeURL)
	if err != nil {
		return nil, errors.Newf("failed to dial payment node %s: %v", cfg.NodeURL, err)
	}
	return &Client{rpc: rpcClient}, nil
}

func (c *Client) Close() {
	c.rpc.Close()
}

// Ping checks node reachability with a cheap read-only call.
func (c *Client) Ping(ctx context.Context) error {
	var result listChannelsResult
	if err := c.rpc.CallContext(ctx, &result, "list_channels", struct{}{}); err != nil {
		return errors.Newf("payment node unreachable: %v", err)
	}
	return nil
}

func (c *Client) ConnectPeer(ctx context.Context, params *ConnectPeerParams) error {
	if err := c.rpc.CallContext(ctx, nil, "connect_peer", params); err != nil {
		return errors.Newf("connect_peer: %v", err)
	}
	return nil
}

func (c *Client) DisconnectPeer(ctx context.Context, params *DisconnectPeerParams) error {
	if err := c.rpc.CallContext(ctx, nil, "disconnect_peer", params); err != nil {
		return errors.Newf("disconnect_peer: %v", err)
	}
	return nil
}

func (c *Client) OpenChannel(ctx context.Context, params *OpenChannelParams) (*OpenChannelResult, error) {
	var result OpenChannelResult
	if err := c.rpc.CallContext(ctx, &result, "open_channel", params); err != nil {
		return nil, errors.Newf("open_channel: %v", err)
	}
	return &result, nil
}

func (c *Client) ListChannels(ctx context.Context) ([]Channel, error) {
	var result listChannelsResult
	if err := c.rpc.CallContext(ctx, &result, "list_channels", struct{}{}); err != nil {
		return nil, errors.Newf("list_channels: %v", err)
	}
	return result.Channels, nil
}

func (c *Client) ShutdownChannel(ctx context.Context, params *ShutdownChannelParams) error {
	if err := c.rpc.CallContext(ctx, nil, "shutdown_channel", params); err != nil {
		return errors.Newf("shutdown_channel: %v", err)
	}
	return nil
}

func (c *Client) AddTlc(ctx context.Context, params *AddTlcParams) (*AddTlcResult, error) {
	var result AddTlcResult
	if err := c.rpc.CallContext(ctx, &result, "add_tlc", params); err != nil {
		return nil, errors.Newf("add_tlc: %v", err)
	}
	return &result, nil
}

func (c *Client) RemoveTlc(ctx context.Context, params *RemoveTlcParams) error {
	if err := c.rpc.CallContext(ctx, nil, "remove_tlc", params); err != nil {
		return errors.Newf("remove_tlc: %v", err)
	}
	return nil
}

func (c *Client) NewInvoice(ctx context.Context, params *NewInvoiceParams) (*Invoice, error) {
	var result struct {
		InvoiceAddress string  `json:"invoice_address"`
		Invoice        Invoice `json:"invoice"`
	}
	if err := c.rpc.CallContext(ctx, &result, "new_invoice", params); err != nil {
		return nil, errors.Newf("new_invoice: %v", err)
	}
	invoice := result.Invoice
	if invoice.Address == "" {
		invoice.Address = result.InvoiceAddress
	}
	return &invoice, nil
}

func (c *Client) ParseInvoice(ctx context.Context, encoded string) (*Invoice, error) {
	var result struct {
		Invoice Invoice `json:"invoice"`
	}
	if err := c.rpc.CallContext(ctx, &result, "parse_invoice", &ParseInvoiceParams{Invoice: encoded}); err != nil {
		return nil, errors.Newf("parse_invoice: %v", err)
	}
	invoice := result.Invoice
	if invoice.Address == "" {
		invoice.Address = encoded
	}
	return &invoice, nil
}

func (c *Client) SendPayment(ctx context.Context, params *SendPaymentParams) (*Payment, error) {
	var result Payment
	if err := c.rpc.CallContext(ctx, &result, "send_payment", params); err != nil {
		return nil, errors.Newf("send_payment: %v", err)
	}
	return &result, nil
}

func (c *Client) GetPayment(ctx context.Context, paymentHash string) (*Payment, error) {
	var result Payment
	if err := c.rpc.CallContext(ctx, &result, "get_payment", &getPaymentParams{PaymentHash: paymentHash}); err != nil {
		return nil, errors.Newf("get_payment: %v", err)
	}
	return &result, nil
}
