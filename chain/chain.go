package chain

// Ledger is the minimal account surface the automated-transaction runtime
// mutates when applying payments.
type Ledger interface {
	GetBalance(address string) int64
	SubBalance(address string, amount int64)
	AddBalance(address string, amount int64)
}

// CanTransfer checks whether there are enough funds in the address' account to make a transfer.
// This does not take the necessary per-step fee in to account to make the transfer valid.
func CanTransfer(db Ledger, addr string, amount int64) bool {
	return db.GetBalance(addr) >= amount
}

// Transfer subtracts amount from sender and adds amount to recipient using the given Ledger
func Transfer(db Ledger, sender, recipient string, amount int64) {
	db.SubBalance(sender, amount)
	db.AddBalance(recipient, amount)
}
