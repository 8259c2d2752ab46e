package fiberman

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	logger "github.com/sirupsen/logrus"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultMaxWait      = 2 * time.Minute
)

// PaymentQuerier is the lookup side of the client, split out so the poll can
// be driven against a stub.
type PaymentQuerier interface {
	GetPayment(ctx context.Context, paymentHash string) (*Payment, error)
}

// ErrPaymentTimeout is returned when the payment did not reach a terminal
// state within the wait window.
var ErrPaymentTimeout = errors.New("timed out waiting for payment")

// WaitForPayment polls get_payment until the payment reaches a terminal
// state, the wait window elapses or ctx is canceled. The last observed state
// is returned alongside ErrPaymentTimeout so callers can report progress.
func WaitForPayment(ctx context.Context, querier PaymentQuerier, paymentHash string, interval, maxWait time.Duration) (*Payment, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	deadline := time.Now().Add(maxWait)

	var last *Payment
	for {
		payment, err := querier.GetPayment(ctx, paymentHash)
		if err != nil {
			return last, err
		}
		if payment.Terminal() {
			return payment, nil
		}
		last = payment

		if time.Now().After(deadline) {
			logger.WithFields(logger.Fields{
				"paymentHash": paymentHash,
				"status":      payment.Status,
			}).Warn("payment still pending at wait deadline")
			return last, ErrPaymentTimeout
		}
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-time.After(interval):
		}
	}
}
