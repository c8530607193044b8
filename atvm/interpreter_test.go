package atvm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entropyio/go-atvm/atvm"
	"github.com/entropyio/go-atvm/config"
	"github.com/entropyio/go-atvm/runtime"
)

func TestStepBudgetAutoYield(t *testing.T) {
	fees := &config.FeeConfig{
		MaxStepsPerRound:     10,
		StepsPerFunctionCall: 10,
		FeePerStep:           1,
	}

	cb := newCode(t)
	for i := 0; i < 25; i++ {
		cb.emit(atvm.NOP)
	}
	cb.emit(atvm.FIN_IMD)

	env := newTestEnvWithFees(t, cb.bytes(), nil, fees)

	// Round 1: budget exhausted after 10 steps, machine auto-yields.
	env.executeRound()
	assert.True(t, env.ms.IsSleeping())
	assert.False(t, env.ms.IsFinished())
	assert.Equal(t, 10, env.ms.GetSteps())

	// Round 2: same again.
	env.executeRound()
	assert.True(t, env.ms.IsSleeping())
	assert.Equal(t, 10, env.ms.GetSteps())

	// Round 3: remaining 5 NOPs plus FIN_IMD fit the budget.
	env.executeRound()
	assert.True(t, env.ms.IsFinished())
	assert.False(t, env.ms.HadFatalError())
	assert.Equal(t, 6, env.ms.GetSteps())
}

func TestExtFunBudgetAutoYield(t *testing.T) {
	fees := &config.FeeConfig{
		MaxStepsPerRound:     15,
		StepsPerFunctionCall: 10,
		FeePerStep:           1,
	}

	// 6 NOPs + a function call: the call's cost of 10 would exceed 15, so
	// the round yields at step 6 and the call runs next round.
	cb := newCode(t)
	for i := 0; i < 6; i++ {
		cb.emit(atvm.NOP)
	}
	cb.emit(atvm.EXT_FUN, atvm.SWAP_A_AND_B)
	cb.emit(atvm.FIN_IMD)

	env := newTestEnvWithFees(t, cb.bytes(), nil, fees)

	env.executeRound()
	assert.True(t, env.ms.IsSleeping())
	assert.Equal(t, 6, env.ms.GetSteps())

	env.executeRound()
	assert.True(t, env.ms.IsFinished())
	assert.Equal(t, 11, env.ms.GetSteps())
}

func TestSleepUntilHeight(t *testing.T) {
	wakeHeight := int64(runtime.DefaultInitialBlockHeight + 3)

	data := newData().
		long(wakeHeight). // @0
		bytes()

	code := newCode(t).
		emit(atvm.SLP_DAT, 0).
		emit(atvm.FIN_IMD).
		bytes()

	env := newTestEnv(t, code, data)

	// Round at height 10: machine goes to sleep until height 13.
	env.executeRound()
	require.True(t, env.ms.IsSleeping())
	assert.Equal(t, int32(wakeHeight), env.ms.GetSleepUntilHeight())

	// Rounds at heights 11 and 12: no opcodes execute.
	env.executeRound()
	require.True(t, env.ms.IsSleeping())
	require.False(t, env.ms.IsFinished())
	env.executeRound()
	require.True(t, env.ms.IsSleeping())
	require.False(t, env.ms.IsFinished())

	// Round at height 13: awake, runs to FIN_IMD.
	env.executeRound()
	assert.True(t, env.ms.IsFinished())
	assert.False(t, env.ms.HadFatalError())
}

func TestSleepForValueBlocks(t *testing.T) {
	code := newCode(t).
		emit(atvm.SLP_VAL, int64(2)).
		emit(atvm.FIN_IMD).
		bytes()

	env := newTestEnv(t, code, nil)

	env.executeRound()
	require.True(t, env.ms.IsSleeping())
	assert.Equal(t, int32(runtime.DefaultInitialBlockHeight+2), env.ms.GetSleepUntilHeight())

	env.executeRound()
	require.False(t, env.ms.IsFinished())

	env.executeRound()
	assert.True(t, env.ms.IsFinished())
}

func TestStopAndResume(t *testing.T) {
	// SET_PCS records the stop address; STZ_DAT stops while @0 is zero.
	code := newCode(t).
		emit(atvm.SET_PCS).
		emit(atvm.STZ_DAT, 0).
		emit(atvm.SET_VAL, 1, int64(5)).
		emit(atvm.FIN_IMD).
		bytes()

	env := newTestEnv(t, code, nil)

	env.executeRound()
	require.True(t, env.ms.IsStopped())
	require.False(t, env.ms.IsFinished())
	assert.Equal(t, int32(1), env.ms.GetOnStopAddress())

	// Still zero: stops again.
	env.executeRound()
	require.True(t, env.ms.IsStopped())

	// Flip the guard; the machine resumes from the stop address and finishes.
	require.NoError(t, env.ms.PutDataLong(0, 1))
	env.executeRound()
	assert.True(t, env.ms.IsFinished())
	assert.False(t, env.ms.HadFatalError())
	assert.Equal(t, int64(5), env.dataLong(1))
}

func TestOnErrorRedirect(t *testing.T) {
	// ERR_ADR (5 bytes) + DIV_DAT (9 bytes): handler starts at 14.
	cb := newCode(t)
	cb.emit(atvm.ERR_ADR, 14)
	cb.emit(atvm.DIV_DAT, 0, 1) // @1 is zero: IllegalOperation
	require.Equal(t, 14, cb.len())
	cb.emit(atvm.SET_VAL, 2, int64(99))
	cb.emit(atvm.FIN_IMD)

	env := newTestEnv(t, cb.bytes(), nil)
	env.executeRound()

	assert.True(t, env.ms.IsFinished())
	assert.False(t, env.ms.HadFatalError())
	assert.Equal(t, int64(99), env.dataLong(2))
}

func TestFinishedMachineIsNoOp(t *testing.T) {
	code := newCode(t).
		emit(atvm.FIN_IMD).
		bytes()

	env := newTestEnv(t, code, nil)
	env.executeRound()
	require.True(t, env.ms.IsFinished())

	before := env.ms.Serialize()
	env.executeRound()
	assert.Equal(t, before, env.ms.Serialize(), "running a finished machine must not change state")
}

func TestFreezeAndThaw(t *testing.T) {
	code := newCode(t).
		emit(atvm.SET_VAL, 0, int64(7)).
		emit(atvm.FIN_IMD).
		bytes()

	env := newTestEnv(t, code, nil)

	// Drain the machine account below the minimum step fee.
	env.mc.Account(runtime.ATAddress).Balance = 0

	env.executeRound()
	assert.True(t, env.ms.IsFrozen())
	assert.False(t, env.ms.IsFinished())
	assert.Equal(t, int64(0), env.dataLong(0), "frozen machine must not execute")

	// Refund the account; the machine thaws and runs.
	env.mc.Account(runtime.ATAddress).Balance = 1000
	env.executeRound()
	assert.False(t, env.ms.IsFrozen())
	assert.True(t, env.ms.IsFinished())
	assert.Equal(t, int64(7), env.dataLong(0))
}

func TestFeesDebitedPerStep(t *testing.T) {
	code := newCode(t).
		emit(atvm.NOP).
		emit(atvm.NOP).
		emit(atvm.FIN_IMD).
		bytes()

	env := newTestEnv(t, code, nil)
	env.executeRound()

	require.True(t, env.ms.IsFinished())
	assert.Equal(t, 3, env.ms.GetSteps())

	// Remaining balance went to the creator on finish; the machine keeps
	// nothing and the creator's refund is the balance minus three steps.
	assert.Equal(t, int64(0), env.ms.GetCurrentBalance())
	creator := env.mc.Account(runtime.CreatorAddress)
	assert.Equal(t, int64(2*runtime.DefaultInitialBalance-3), creator.Balance)
}

func TestFizDatOnlyFinishesOnZero(t *testing.T) {
	data := newData().
		long(1). // @0 non-zero
		bytes()

	code := newCode(t).
		emit(atvm.FIZ_DAT, 0).
		emit(atvm.SET_VAL, 1, int64(4)).
		emit(atvm.FIZ_DAT, 2). // @2 is zero
		emit(atvm.SET_VAL, 1, int64(8)).
		bytes()

	env := newTestEnv(t, code, data)
	env.executeRound()

	assert.True(t, env.ms.IsFinished())
	assert.False(t, env.ms.HadFatalError())
	assert.Equal(t, int64(4), env.dataLong(1))
}
