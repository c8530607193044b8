package config

import "fmt"

const (
	// ValueSize is the width in bytes of one data segment cell. Every data
	// address in the code stream is a cell index; byte offset = index * ValueSize.
	ValueSize = 8

	// AddressSize is the width in bytes of a code address.
	AddressSize = 4

	// ABRegisterSize is the width in bytes of the A and B registers.
	ABRegisterSize = 32

	// HeaderVersion tags program images and machine snapshots.
	HeaderVersion = 2
)

// FeeConfig is the core metering config which determines how machine
// execution is charged and bounded per round.
//
// FeeConfig is consensus-critical: any network running automated
// transactions must agree on a single set of values, because step budgets
// and fee debits are part of the machine state transition.
type FeeConfig struct {
	// MaxStepsPerRound is the number of steps before auto-sleep.
	MaxStepsPerRound int

	// StepsPerFunctionCall is the op-code step multiplier for the
	// EXT_FUN opcode family.
	StepsPerFunctionCall int

	// FeePerStep is the fee debited from the machine balance per step.
	FeePerStep int64
}

// DefaultFeeConfig is the fee schedule used when the embedding environment
// does not supply one.
var DefaultFeeConfig = &FeeConfig{
	MaxStepsPerRound:     500,
	StepsPerFunctionCall: 10,
	FeePerStep:           1,
}

// FrozenBalanceThreshold returns the balance below which a machine freezes:
// the minimum fee for a single step.
func (fc *FeeConfig) FrozenBalanceThreshold() int64 {
	return fc.FeePerStep
}

// String implements the fmt.Stringer interface.
func (fc *FeeConfig) String() string {
	var banner string

	banner += fmt.Sprintf("Max steps per round:    %d\n", fc.MaxStepsPerRound)
	banner += fmt.Sprintf("Steps per function call: %d\n", fc.StepsPerFunctionCall)
	banner += fmt.Sprintf("Fee per step:           %d\n", fc.FeePerStep)

	return banner
}
