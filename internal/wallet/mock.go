package wallet

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Mock is an in-memory stand-in for the real value-transfer back-end.
// It implements balance, send and tx_status plus Credit for starting
// balances and the faucet: no history, no fees beyond what the caller
// debits explicitly, no persistence across restarts.
type Mock struct {
	mu       sync.Mutex
	balances map[string]float64
	txs      map[string]string // tx id -> status
	nextTx   int64
}

// NewMock returns an empty mock wallet.
func NewMock() *Mock {
	return &Mock{
		balances: make(map[string]float64),
		txs:      make(map[string]string),
	}
}

func (m *Mock) Balance(pubkey string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return FormatAmount(m.balances[pubkey]), nil
}

func (m *Mock) Send(from, to, amount string) (string, error) {
	amt, err := ParseAmount(amount)
	if err != nil {
		return "", err
	}
	if amt < 0 {
		return "", fmt.Errorf("wallet: negative amount")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[from] < amt {
		return "", ErrInsufficientFunds
	}
	m.balances[from] -= amt
	m.balances[to] += amt
	id := fmt.Sprintf("tx-%d", atomic.AddInt64(&m.nextTx, 1))
	m.txs[id] = "confirmed"
	return id, nil
}

func (m *Mock) Credit(pubkey, amount string) error {
	amt, err := ParseAmount(amount)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[pubkey] += amt
	return nil
}

func (m *Mock) TxStatus(txID string) (string, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	status, ok := m.txs[txID]
	if !ok {
		return "", 0, fmt.Errorf("wallet: unknown tx %q", txID)
	}
	return status, 8, nil
}
