// Package errs holds the error taxonomy shared by the transfer, sync and HTTP
// layers. Sentinel errors are matched with errors.Is after any amount of
// wrapping.
package errs

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrValidation covers missing or malformed request fields. Mapped to 400.
	ErrValidation = errors.New("validation error")

	// ErrInsufficientFunds is reported when the wallet cannot gather enough
	// capacity or token balance for a transfer. Mapped to 400.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrHourlyLimitExceeded and ErrDestinationLimitExceeded are the two
	// rate-limiter rejection reasons. Mapped to 400.
	ErrHourlyLimitExceeded      = errors.New("hourly transfer limit exceeded")
	ErrDestinationLimitExceeded = errors.New("destination transfer limit exceeded")

	// ErrTransfer covers other domain violations (e.g. invoice amount
	// mismatch). Mapped to 400.
	ErrTransfer = errors.New("transfer error")

	// ErrLedgerUnavailable wraps any node RPC failure. Mapped to 500 and never
	// retried automatically.
	ErrLedgerUnavailable = errors.New("ledger node unavailable")
)

// IsClientError reports whether err should surface as a 400 instead of a 500.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrHourlyLimitExceeded) ||
		errors.Is(err, ErrDestinationLimitExceeded) ||
		errors.Is(err, ErrTransfer)
}
