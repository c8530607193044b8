package atvm

import (
	"github.com/entropyio/go-atvm/logger"
)

var log = logger.NewLogger("[atvm]")

// Execute runs one round: opcodes are decoded, metered and dispatched until
// the machine sleeps, stops, finishes, or exhausts its step budget. The
// state is fully quiescent afterwards and can be snapshotted.
//
// Running a finished machine is a no-op, as is running a frozen machine
// whose balance is still below the minimum step fee or a sleeping machine
// before its wake-up height.
func (ms *MachineState) Execute() {
	if ms.finished {
		log.Debugf("not executing: machine has finished")
		return
	}

	ms.currentBlockHeight = ms.api.GetCurrentBlockHeight()

	balance := ms.api.GetCurrentBalance(ms)
	if balance < ms.api.GetFeePerStep() {
		ms.currentBalance = balance
		if !ms.frozen {
			ms.frozen = true
			ms.frozenBalance = balance
			log.Debugf("freezing: balance %d below minimum step fee", balance)
		}
		return
	}
	ms.frozen = false

	if ms.sleeping {
		if ms.sleepUntilSet && ms.currentBlockHeight < ms.sleepUntilHeight {
			return
		}
		ms.sleeping = false
		ms.sleepUntilSet = false
		ms.isFirstOpCodeAfterSleeping = true
	}

	ms.stopped = false
	ms.steps = 0
	ms.previousBalance = ms.currentBalance
	ms.currentBalance = balance

	maxSteps := ms.api.GetMaxStepsPerRound()

	for !ms.sleeping && !ms.stopped && !ms.finished && !ms.frozen {
		err := ms.step(maxSteps)

		// The two-phase flag only covers the first opcode after wake-up.
		ms.isFirstOpCodeAfterSleeping = false

		if err == nil {
			continue
		}

		execErr := asExecutionError(err)
		if execErr.Redirectable() && ms.onErrorAddress != onErrorUnset {
			log.Debugf("redirecting fault to on-error address %04x: %v", ms.onErrorAddress, execErr)
			ms.codePos = int(ms.onErrorAddress)
			ms.hadFatalError = false
			continue
		}

		ms.hadFatalError = true
		ms.finished = true
		ms.api.OnFatalError(ms, execErr)
		break
	}

	// Settle fees for this round, then final settlement when finished.
	ms.currentBalance -= int64(ms.steps) * ms.api.GetFeePerStep()
	if ms.currentBalance < 0 {
		ms.currentBalance = 0
	}

	if ms.finished {
		ms.running = false
		ms.api.OnFinished(ms.currentBalance, ms)
		ms.currentBalance = 0
	}
}

// step decodes and executes a single opcode, charging its step cost first.
// When the cost would exceed the round budget nothing is consumed: the
// machine auto-yields by sleeping until the next block.
func (ms *MachineState) step(maxSteps int) error {
	ms.pc = ms.codePos

	opByte, err := ms.fetchCodeByte()
	if err != nil {
		return err
	}

	operation := instructionSet[opByte]
	if operation == nil {
		return unknownOpCodeError(opByte, ms.pc)
	}
	op := OpCode(opByte)

	cost := ms.api.GetOpCodeSteps(op)
	if ms.steps+cost > maxSteps {
		log.Debugf("auto-yield at %04x: %d + %d steps would exceed round budget %d", ms.pc, ms.steps, cost, maxSteps)
		ms.SetSleepUntilHeight(ms.currentBlockHeight + 1)
		ms.sleeping = true
		ms.codePos = ms.pc
		return nil
	}
	ms.steps += cost

	args := make([]int64, len(operation.params))
	for i, param := range operation.params {
		if args[i], err = param.fetch(ms); err != nil {
			return err
		}
	}

	if err := operation.execute(ms, args); err != nil {
		return err
	}

	// A function call that put the machine to sleep re-executes on wake-up
	// so its second phase runs with the fresh block. Sleep opcodes resume
	// after themselves instead.
	if ms.sleeping && op.IsExtFunOpCode() {
		ms.codePos = ms.pc
	}

	return nil
}
