package atvm

// API is the callback surface the embedding environment must implement. It
// is the only path between a machine and the surrounding ledger: the machine
// owns its segments, registers and flags; the host owns blocks, transactions
// and accounts.
//
// Transaction-feed calls operate on "the transaction in A": the host
// resolves the A register to one of its own transactions. Calls that can
// fail (for example when A names no known transaction) return an error,
// which the executor treats like any other runtime fault.
type API interface {
	// GetMaxStepsPerRound returns the number of steps before auto-sleep.
	GetMaxStepsPerRound() int
	// GetOpCodeSteps returns the step cost for one opcode.
	GetOpCodeSteps(op OpCode) int
	// GetFeePerStep returns the fee debited per step.
	GetFeePerStep() int64

	// GetCurrentBlockHeight returns the height of the block being processed.
	GetCurrentBlockHeight() int32
	// GetATCreationBlockHeight returns the height the machine was created at.
	GetATCreationBlockHeight(state *MachineState) int32
	// PutPreviousBlockHashIntoA sets A to the previous block's hash.
	PutPreviousBlockHashIntoA(state *MachineState)

	// PutTransactionAfterTimestampIntoA sets A to the 32-byte identifier of
	// the first transaction addressed to this machine strictly after the
	// given timestamp, or to zero bytes if there is none.
	PutTransactionAfterTimestampIntoA(timestamp Timestamp, state *MachineState)
	GetTypeFromTransactionInA(state *MachineState) (int64, error)
	GetAmountFromTransactionInA(state *MachineState) (int64, error)
	GetTimestampFromTransactionInA(state *MachineState) (int64, error)
	// GenerateRandomUsingTransactionInA is two-phase: the first call puts
	// the machine to sleep for one block; on resumption it returns a value
	// derived from A and the new block's hash. The host distinguishes the
	// phases via state.IsFirstOpCodeAfterSleeping.
	GenerateRandomUsingTransactionInA(state *MachineState) int64
	PutMessageFromTransactionInAIntoB(state *MachineState) error
	PutAddressFromTransactionInAIntoB(state *MachineState) error
	// PutCreatorAddressIntoB sets B to the machine creator's address.
	PutCreatorAddressIntoB(state *MachineState)

	// GetCurrentBalance returns the machine account's ledger balance.
	GetCurrentBalance(state *MachineState) int64
	// PayAmountToB emits a payment of amount to the address in B.
	PayAmountToB(amount int64, state *MachineState) error
	// MessageAToB emits the message in A to the address in B.
	MessageAToB(state *MachineState) error

	// AddMinutesToTimestamp returns the timestamp advanced by the number of
	// blocks the host maps the given minutes to.
	AddMinutesToTimestamp(timestamp Timestamp, minutes int64, state *MachineState) int64

	// OnFinished settles the machine: the remaining balance is refunded to
	// the creator.
	OnFinished(amount int64, state *MachineState)
	// OnFatalError is told about an unhandled fault before settlement.
	OnFatalError(state *MachineState, err error)

	// PlatformSpecificPreExecuteCheck validates the arity and return shape
	// of a function code outside the core range.
	PlatformSpecificPreExecuteCheck(paramCount int, returnValueExpected bool, state *MachineState, rawFunctionCode uint16) error
	// PlatformSpecificPostCheckExecute runs a function code outside the
	// core range.
	PlatformSpecificPostCheckExecute(functionData *FunctionData, state *MachineState, rawFunctionCode uint16) error
}
