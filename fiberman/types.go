/*
Package fiberman is a thin client for the payment-channel node. The node is
an opaque JSON-RPC service: amounts travel as hex strings in the chain's
smallest unit and timestamps as hex milliseconds-since-epoch; this package
only decodes, it never interprets channel state.
*/
package fiberman

// Peer RPC parameters.

type ConnectPeerParams struct {
	Address string `json:"address"` // multiaddr of the peer
}

type DisconnectPeerParams struct {
	PeerID string `json:"peer_id"`
}

// Channel RPC parameters and results.

type OpenChannelParams struct {
	PeerID        string `json:"peer_id"`
	FundingAmount string `json:"funding_amount"` // hex quantity
	Public        bool   `json:"public"`
}

type OpenChannelResult struct {
	TemporaryChannelID string `json:"temporary_channel_id"`
}

type ShutdownChannelParams struct {
	ChannelID          string `json:"channel_id"`
	CloseScriptAddress string `json:"close_script_address,omitempty"`
	FeeRate            string `json:"fee_rate,omitempty"` // hex quantity
}

// Channel is one entry of list_channels. Amount fields stay hex-encoded.
type Channel struct {
	ChannelID     string       `json:"channel_id"`
	PeerID        string       `json:"peer_id"`
	State         ChannelState `json:"state"`
	LocalBalance  string       `json:"local_balance"`
	RemoteBalance string       `json:"remote_balance"`
	CreatedAt     string       `json:"created_at"` // hex ms since epoch
}

type ChannelState struct {
	StateName string `json:"state_name"`
}

type listChannelsResult struct {
	Channels []Channel `json:"channels"`
}

// TLC (hashed time-locked commitment) RPC parameters.

type AddTlcParams struct {
	ChannelID   string `json:"channel_id"`
	Amount      string `json:"amount"` // hex quantity
	PaymentHash string `json:"payment_hash"`
	Expiry      string `json:"expiry"` // hex ms since epoch
}

type AddTlcResult struct {
	TlcID string `json:"tlc_id"`
}

type RemoveTlcParams struct {
	ChannelID string `json:"channel_id"`
	TlcID     string `json:"tlc_id"`
	Payment   string `json:"payment_preimage,omitempty"`
}

// Invoice RPC parameters and results.

type NewInvoiceParams struct {
	Amount      string `json:"amount"` // hex quantity
	Description string `json:"description,omitempty"`
	ExpirySecs  string `json:"expiry,omitempty"` // hex seconds
}

type Invoice struct {
	Address     string `json:"address"` // the encoded invoice string
	Amount      string `json:"amount"`  // hex quantity
	PaymentHash string `json:"payment_hash"`
	Timestamp   string `json:"timestamp"` // hex ms since epoch
	Description string `json:"description"`
}

type ParseInvoiceParams struct {
	Invoice string `json:"invoice"`
}

// Payment RPC parameters and results.

type SendPaymentParams struct {
	Invoice string `json:"invoice,omitempty"`
	Amount  string `json:"amount,omitempty"` // hex quantity override
}

// Payment status values reported by get_payment.
const (
	PaymentStatusCreated  = "Created"
	PaymentStatusInflight = "Inflight"
	PaymentStatusSuccess  = "Success"
	PaymentStatusFailed   = "Failed"
)

type Payment struct {
	PaymentHash   string `json:"payment_hash"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`      // hex ms since epoch
	LastUpdatedAt string `json:"last_updated_at"` // hex ms since epoch
	FailedError   string `json:"failed_error,omitempty"`
}

type getPaymentParams struct {
	PaymentHash string `json:"payment_hash"`
}

// Terminal reports whether the payment reached a final state.
func (p *Payment) Terminal() bool {
	return p.Status == PaymentStatusSuccess || p.Status == PaymentStatusFailed
}
