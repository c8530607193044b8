package runtime

import (
	"encoding/binary"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/entropyio/go-atvm/atvm"
	"github.com/entropyio/go-atvm/chain"
	"github.com/entropyio/go-atvm/config"
)

// BlockPeriod is the average period between blocks, in seconds. It maps
// minute-based timing math onto block heights.
const BlockPeriod = 60

const (
	// DefaultInitialBalance for simple scenarios.
	DefaultInitialBalance = 10_0000_0000
	// DefaultInitialBlockHeight for simple scenarios.
	DefaultInitialBlockHeight = 10
	// DefaultCreationBlockHeight for simple scenarios.
	DefaultCreationBlockHeight = 8

	// ATAddress is the machine's own account.
	ATAddress = "AT"
	// CreatorAddress receives the refund on final settlement.
	CreatorAddress = "AT Creator"
)

// TransactionType distinguishes the ledger actions a machine can observe
// and emit.
type TransactionType int64

const (
	PaymentTransaction TransactionType = iota
	MessageTransaction
)

// Account is one ledger account.
type Account struct {
	Address  string
	Balance  int64
	Messages [][]byte
}

// Transaction is one ledger transaction. Its timestamp is assigned when the
// containing block joins the chain.
type Transaction struct {
	Timestamp int64 // packed block height and sequence
	TxHash    [32]byte
	TxType    TransactionType
	Sender    string
	Recipient string
	Amount    int64
	Message   [32]byte
}

// Block is one block: a hash plus ordered transactions.
type Block struct {
	Hash         [32]byte
	Transactions []*Transaction
}

// MemChain is an in-memory chain, ledger and transaction feed implementing
// atvm.API. Everything it produces is derived from consensus-visible data:
// block hashes are keccak256 over a fixed prefix and the height, transaction
// hashes keccak256 over the sender, the recipient and an emission counter.
type MemChain struct {
	fees *config.FeeConfig

	blockchain   []*Block
	accounts     map[string]*Account
	transactions map[[32]byte]*Transaction

	currentBlock  *Block
	currentHeight int32

	creationHeight int32
	txCounter      uint64
}

// NewMemChain builds a chain filled with empty blocks up to the initial
// height, with funded AT and creator accounts.
func NewMemChain(fees *config.FeeConfig, initialBalance int64, initialHeight, creationHeight int32) *MemChain {
	mc := &MemChain{
		fees:           fees,
		accounts:       make(map[string]*Account),
		transactions:   make(map[[32]byte]*Transaction),
		currentHeight:  initialHeight,
		creationHeight: creationHeight,
	}

	for h := int32(1); h <= initialHeight; h++ {
		mc.blockchain = append(mc.blockchain, &Block{Hash: blockHash(h)})
	}
	mc.currentBlock = &Block{Hash: blockHash(initialHeight + 1)}

	mc.AddAccount(CreatorAddress, initialBalance)
	mc.AddAccount(ATAddress, initialBalance)

	return mc
}

func blockHash(height int32) [32]byte {
	var heightBytes [8]byte
	binary.BigEndian.PutUint64(heightBytes[:], uint64(height))

	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte("block"))
	hasher.Write(heightBytes[:])

	var hash [32]byte
	hasher.Sum(hash[:0])
	return hash
}

func (mc *MemChain) nextTxHash(sender, recipient string) [32]byte {
	mc.txCounter++
	var counterBytes [8]byte
	binary.BigEndian.PutUint64(counterBytes[:], mc.txCounter)

	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte(sender))
	hasher.Write([]byte(recipient))
	hasher.Write(counterBytes[:])

	var hash [32]byte
	hasher.Sum(hash[:0])
	return hash
}

// EncodeAddress packs a literal address into 32 bytes.
func EncodeAddress(address string) [32]byte {
	var encoded [32]byte
	copy(encoded[:], address)
	return encoded
}

// DecodeAddress returns the literal address held in the given bytes,
// dropping trailing zeros.
func DecodeAddress(encoded []byte) string {
	return strings.TrimRight(string(encoded), "\x00")
}

// AddAccount creates a funded account.
func (mc *MemChain) AddAccount(address string, balance int64) *Account {
	account := &Account{Address: address, Balance: balance}
	mc.accounts[address] = account
	return account
}

// Account returns the account for an address, or nil.
func (mc *MemChain) Account(address string) *Account {
	return mc.accounts[address]
}

// chain.Ledger implementation, used by payment application.

func (mc *MemChain) GetBalance(address string) int64 {
	if account := mc.accounts[address]; account != nil {
		return account.Balance
	}
	return 0
}

func (mc *MemChain) SubBalance(address string, amount int64) {
	if account := mc.accounts[address]; account != nil {
		account.Balance -= amount
	}
}

func (mc *MemChain) AddBalance(address string, amount int64) {
	account := mc.accounts[address]
	if account == nil {
		account = mc.AddAccount(address, 0)
	}
	account.Balance += amount
}

// NewPaymentTransaction builds an unconfirmed payment.
func (mc *MemChain) NewPaymentTransaction(sender, recipient string, amount int64) *Transaction {
	return &Transaction{
		TxHash:    mc.nextTxHash(sender, recipient),
		TxType:    PaymentTransaction,
		Sender:    sender,
		Recipient: recipient,
		Amount:    amount,
	}
}

// NewMessageTransaction builds an unconfirmed 32-byte message.
func (mc *MemChain) NewMessageTransaction(sender, recipient string, message []byte) *Transaction {
	tx := &Transaction{
		TxHash:    mc.nextTxHash(sender, recipient),
		TxType:    MessageTransaction,
		Sender:    sender,
		Recipient: recipient,
	}
	copy(tx.Message[:], message)
	return tx
}

// AddTransactionToCurrentBlock queues a transaction for the block being
// built.
func (mc *MemChain) AddTransactionToCurrentBlock(tx *Transaction) {
	mc.currentBlock.Transactions = append(mc.currentBlock.Transactions, tx)
}

// BumpCurrentBlockHeight advances the chain tip without adding a block.
// Intended for scenarios that fabricate sleep targets.
func (mc *MemChain) BumpCurrentBlockHeight() {
	mc.currentHeight++
}

// AddCurrentBlockToChain confirms the block being built: transactions get
// their timestamps, payments are applied to the ledger, and a fresh block
// starts. The machine's own outgoing payments are not debited here because
// its tracked balance already fell during execution.
func (mc *MemChain) AddCurrentBlockToChain() (*Block, error) {
	block := mc.currentBlock
	mc.blockchain = append(mc.blockchain, block)
	blockHeight := int32(len(mc.blockchain))

	for seq, tx := range block.Transactions {
		tx.Timestamp = atvm.TimestampToLong(blockHeight, int32(seq))
		mc.transactions[tx.TxHash] = tx

		switch tx.TxType {
		case PaymentTransaction:
			if tx.Sender == ATAddress {
				mc.AddBalance(tx.Recipient, tx.Amount)
				continue
			}
			if !chain.CanTransfer(mc, tx.Sender, tx.Amount) {
				return nil, fmt.Errorf("can't send %d from %s: insufficient funds", tx.Amount, tx.Sender)
			}
			chain.Transfer(mc, tx.Sender, tx.Recipient, tx.Amount)

		case MessageTransaction:
			recipient := mc.accounts[tx.Recipient]
			if recipient == nil {
				recipient = mc.AddAccount(tx.Recipient, 0)
			}
			message := make([]byte, len(tx.Message))
			copy(message, tx.Message[:])
			recipient.Messages = append(recipient.Messages, message)
		}
	}

	mc.currentHeight = blockHeight
	mc.currentBlock = &Block{Hash: blockHash(blockHeight + 1)}

	return block, nil
}

// atvm.API implementation.

func (mc *MemChain) GetMaxStepsPerRound() int {
	return mc.fees.MaxStepsPerRound
}

func (mc *MemChain) GetOpCodeSteps(op atvm.OpCode) int {
	if op.IsExtFunOpCode() {
		return mc.fees.StepsPerFunctionCall
	}
	return 1
}

func (mc *MemChain) GetFeePerStep() int64 {
	return mc.fees.FeePerStep
}

func (mc *MemChain) GetCurrentBlockHeight() int32 {
	return mc.currentHeight
}

func (mc *MemChain) GetATCreationBlockHeight(state *atvm.MachineState) int32 {
	return mc.creationHeight
}

func (mc *MemChain) PutPreviousBlockHashIntoA(state *atvm.MachineState) {
	previousBlockHeight := mc.currentHeight - 1
	hash := mc.blockchain[previousBlockHeight-1].Hash
	state.SetABytes(hash[:])
}

func (mc *MemChain) PutTransactionAfterTimestampIntoA(timestamp atvm.Timestamp, state *atvm.MachineState) {
	blockHeight := timestamp.BlockHeight
	transactionSequence := int(timestamp.TransactionSequence) + 1

	for blockHeight <= mc.currentHeight {
		if blockHeight < 1 {
			blockHeight = 1
			transactionSequence = 0
			continue
		}

		block := mc.blockchain[blockHeight-1]
		if transactionSequence >= len(block.Transactions) {
			// No more transactions at this height
			blockHeight++
			transactionSequence = 0
			continue
		}

		tx := block.Transactions[transactionSequence]
		if tx.Recipient == ATAddress {
			log.Debugf("found transaction at height %d, sequence %d from %s", blockHeight, transactionSequence, tx.Sender)
			state.SetABytes(tx.TxHash[:])
			return
		}

		transactionSequence++
	}

	log.Debugf("no more transactions found at height %d", mc.currentHeight)
	state.SetABytes(make([]byte, 32))
}

func (mc *MemChain) transactionFromA(state *atvm.MachineState) (*Transaction, error) {
	var hash [32]byte
	copy(hash[:], state.GetABytes())

	tx := mc.transactions[hash]
	if tx == nil {
		return nil, fmt.Errorf("A does not name a known transaction")
	}
	return tx, nil
}

func (mc *MemChain) GetTypeFromTransactionInA(state *atvm.MachineState) (int64, error) {
	tx, err := mc.transactionFromA(state)
	if err != nil {
		return 0, err
	}
	return int64(tx.TxType), nil
}

func (mc *MemChain) GetAmountFromTransactionInA(state *atvm.MachineState) (int64, error) {
	tx, err := mc.transactionFromA(state)
	if err != nil {
		return 0, err
	}
	if tx.TxType != PaymentTransaction {
		return 0, nil
	}
	return tx.Amount, nil
}

func (mc *MemChain) GetTimestampFromTransactionInA(state *atvm.MachineState) (int64, error) {
	tx, err := mc.transactionFromA(state)
	if err != nil {
		return 0, err
	}
	return tx.Timestamp, nil
}

// GenerateRandomUsingTransactionInA is two-phase: the first call sleeps the
// machine for one block, the second derives a value from A and the fresh
// block's hash.
func (mc *MemChain) GenerateRandomUsingTransactionInA(state *atvm.MachineState) int64 {
	if !state.IsFirstOpCodeAfterSleeping() {
		log.Debugf("generate random: first call - sleeping")
		state.SetIsSleeping(true)
		return 0 // not used
	}

	log.Debugf("generate random: second call - returning random")
	latestHash := mc.blockchain[len(mc.blockchain)-1].Hash

	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(state.GetABytes())
	hasher.Write(latestHash[:])

	return int64(binary.BigEndian.Uint64(hasher.Sum(nil)))
}

func (mc *MemChain) PutMessageFromTransactionInAIntoB(state *atvm.MachineState) error {
	tx, err := mc.transactionFromA(state)
	if err != nil {
		return err
	}
	if tx.TxType != MessageTransaction {
		return nil
	}
	return state.SetBBytes(tx.Message[:])
}

func (mc *MemChain) PutAddressFromTransactionInAIntoB(state *atvm.MachineState) error {
	tx, err := mc.transactionFromA(state)
	if err != nil {
		return err
	}
	encoded := EncodeAddress(tx.Sender)
	return state.SetBBytes(encoded[:])
}

func (mc *MemChain) PutCreatorAddressIntoB(state *atvm.MachineState) {
	encoded := EncodeAddress(CreatorAddress)
	state.SetBBytes(encoded[:])
}

func (mc *MemChain) GetCurrentBalance(state *atvm.MachineState) int64 {
	return mc.GetBalance(ATAddress)
}

func (mc *MemChain) PayAmountToB(amount int64, state *atvm.MachineState) error {
	address := DecodeAddress(state.GetBBytes())

	recipient := mc.accounts[address]
	if recipient == nil {
		return fmt.Errorf("refusing to pay to unknown account: %s", address)
	}

	log.Infof("creating payment of %d to %s", amount, recipient.Address)
	mc.AddTransactionToCurrentBlock(mc.NewPaymentTransaction(ATAddress, recipient.Address, amount))
	return nil
}

func (mc *MemChain) MessageAToB(state *atvm.MachineState) error {
	address := DecodeAddress(state.GetBBytes())

	recipient := mc.accounts[address]
	if recipient == nil {
		return fmt.Errorf("refusing to send message to unknown account: %s", address)
	}

	message := state.GetABytes()
	mc.AddTransactionToCurrentBlock(mc.NewMessageTransaction(ATAddress, recipient.Address, message))
	return nil
}

func (mc *MemChain) AddMinutesToTimestamp(timestamp atvm.Timestamp, minutes int64, state *atvm.MachineState) int64 {
	timestamp.BlockHeight += int32(minutes * 60 / BlockPeriod)
	return timestamp.LongValue()
}

func (mc *MemChain) OnFinished(amount int64, state *atvm.MachineState) {
	log.Infof("finished - refunding %d to creator", amount)
	if amount <= 0 {
		return
	}
	mc.AddTransactionToCurrentBlock(mc.NewPaymentTransaction(ATAddress, CreatorAddress, amount))
}

func (mc *MemChain) OnFatalError(state *atvm.MachineState, err error) {
	log.Warningf("fatal error: %v", err)
}

func (mc *MemChain) PlatformSpecificPreExecuteCheck(paramCount int, returnValueExpected bool, state *atvm.MachineState, rawFunctionCode uint16) error {
	var requiredParamCount int
	var returnsValue bool

	switch rawFunctionCode {
	case 0x0501:
		// one arg, no return value
		requiredParamCount = 1
		returnsValue = false
	case 0x0502:
		// no args, returns a value
		requiredParamCount = 0
		returnsValue = true
	default:
		return fmt.Errorf("unrecognised platform-specific function code 0x%04x", rawFunctionCode)
	}

	if paramCount != requiredParamCount {
		return fmt.Errorf("passed paramCount (%d) does not match platform-specific function code 0x%04x required paramCount (%d)",
			paramCount, rawFunctionCode, requiredParamCount)
	}
	if returnValueExpected != returnsValue {
		return fmt.Errorf("passed returnValueExpected (%v) does not match platform-specific function code 0x%04x return signature (%v)",
			returnValueExpected, rawFunctionCode, returnsValue)
	}

	return nil
}

func (mc *MemChain) PlatformSpecificPostCheckExecute(functionData *atvm.FunctionData, state *atvm.MachineState, rawFunctionCode uint16) error {
	switch rawFunctionCode {
	case 0x0501:
		log.Debugf("platform-specific function 0x0501 called with 0x%016x", uint64(functionData.Value1))
		return nil
	case 0x0502:
		log.Debugf("platform-specific function 0x0502 called")
		functionData.SetReturnValue(0x0502)
		return nil
	default:
		return fmt.Errorf("unrecognised platform-specific function code 0x%04x", rawFunctionCode)
	}
}

// SyncATBalance writes the machine's tracked balance back to the ledger
// after a round.
func (mc *MemChain) SyncATBalance(state *atvm.MachineState) {
	mc.accounts[ATAddress].Balance = state.GetCurrentBalance()
}
