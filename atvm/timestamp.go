package atvm

// Timestamp is a packed 64-bit value: the high 32 bits hold a block height,
// the low 32 bits a transaction sequence within that block.
type Timestamp struct {
	BlockHeight         int32
	TransactionSequence int32
}

// NewTimestamp unpacks a 64-bit timestamp value.
func NewTimestamp(value int64) Timestamp {
	return Timestamp{
		BlockHeight:         int32(value >> 32),
		TransactionSequence: int32(value),
	}
}

// TimestampToLong packs a block height and transaction sequence into a
// 64-bit timestamp value.
func TimestampToLong(blockHeight, transactionSequence int32) int64 {
	return int64(blockHeight)<<32 | int64(uint32(transactionSequence))
}

// LongValue returns the packed 64-bit form.
func (ts Timestamp) LongValue() int64 {
	return TimestampToLong(ts.BlockHeight, ts.TransactionSequence)
}
