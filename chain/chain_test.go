package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type mapLedger map[string]int64

func (ml mapLedger) GetBalance(address string) int64 {
	return ml[address]
}

func (ml mapLedger) SubBalance(address string, amount int64) {
	ml[address] -= amount
}

func (ml mapLedger) AddBalance(address string, amount int64) {
	ml[address] += amount
}

func TestCanTransfer(t *testing.T) {
	ledger := mapLedger{"alice": 100}

	assert.True(t, CanTransfer(ledger, "alice", 100))
	assert.False(t, CanTransfer(ledger, "alice", 101))
	assert.False(t, CanTransfer(ledger, "nobody", 1))
}

func TestTransfer(t *testing.T) {
	ledger := mapLedger{"alice": 100, "bob": 5}

	Transfer(ledger, "alice", "bob", 60)

	assert.Equal(t, int64(40), ledger["alice"])
	assert.Equal(t, int64(65), ledger["bob"])
}
