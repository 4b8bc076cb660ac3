// Package wallet defines the black-box value-transfer collaborator the
// relay depends on. Per spec, it is an external mock service exposing
// balance/send/tx_status; the relay never implements ledger semantics
// itself, only this narrow interface and the fee math around it.
package wallet

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrInsufficientFunds is returned by Send when the sender's balance
// cannot cover the requested amount.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Wallet is the interface handlers depend on. Implementations are free
// to be a mock in-memory ledger (Mock, below) or a real adapter to an
// external value-transfer service.
type Wallet interface {
	// Balance returns the current balance for pubkey, formatted with
	// 8 fraction digits.
	Balance(pubkey string) (string, error)
	// Send debits amount from `from` and credits it to `to`, as a
	// single atomic transfer. Returns a transaction id.
	Send(from, to string, amount string) (txID string, err error)
	// Credit adds amount to pubkey's balance without debiting anyone
	// (used for starting balances and the faucet command).
	Credit(pubkey string, amount string) error
	// TxStatus reports a transaction's confirmation lifecycle.
	TxStatus(txID string) (status string, confirmations int, err error)
}

// FormatAmount renders a float64 amount with the wire's fixed 8-fraction-
// digit formatting.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 8, 64)
}

// ParseAmount parses a wire decimal-string amount.
func ParseAmount(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return v, nil
}

// FeeConfig mirrors proto.FeeConfig to avoid an import cycle; callers
// convert at the boundary.
type FeeConfig struct {
	Mode  string // "bps" | "percent"
	Value int64
}

// ComputeFee applies the configured dev fee to amount, formatted with
// 8 fraction digits.
func ComputeFee(amount float64, cfg FeeConfig) string {
	var fee float64
	switch cfg.Mode {
	case "bps":
		fee = amount * float64(cfg.Value) / 10000
	case "percent":
		fee = amount * float64(cfg.Value) / 100
	}
	return FormatAmount(fee)
}
