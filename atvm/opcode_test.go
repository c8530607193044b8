package atvm_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entropyio/go-atvm/atvm"
)

func TestDataArithmetic(t *testing.T) {
	data := newData().
		long(100). // @0
		long(7).   // @1
		bytes()

	code := newCode(t).
		emit(atvm.SET_DAT, 2, 0).        // @2 = 100
		emit(atvm.ADD_DAT, 2, 1).        // @2 = 107
		emit(atvm.MUL_DAT, 2, 1).        // @2 = 749
		emit(atvm.SUB_DAT, 2, 1).        // @2 = 742
		emit(atvm.DIV_DAT, 2, 1).        // @2 = 106
		emit(atvm.MOD_DAT, 2, 1).        // @2 = 1
		emit(atvm.ADD_VAL, 2, int64(9)). // @2 = 10
		emit(atvm.DIV_VAL, 2, int64(3)). // @2 = 3
		emit(atvm.FIN_IMD).
		bytes()

	env := newTestEnv(t, code, data)
	env.executeUntilFinished()

	assert.False(t, env.ms.HadFatalError())
	assert.Equal(t, int64(3), env.dataLong(2))
}

func TestSignedDivision(t *testing.T) {
	data := newData().
		long(-7). // @0
		long(2).  // @1
		bytes()

	code := newCode(t).
		emit(atvm.DIV_DAT, 0, 1).
		emit(atvm.FIN_IMD).
		bytes()

	env := newTestEnv(t, code, data)
	env.executeUntilFinished()

	// Two's-complement signed division truncates toward zero.
	assert.Equal(t, int64(-3), env.dataLong(0))
}

func TestDivideByZeroIsFatalWithoutHandler(t *testing.T) {
	code := newCode(t).
		emit(atvm.DIV_DAT, 0, 1). // @1 is zero
		emit(atvm.FIN_IMD).
		bytes()

	env := newTestEnv(t, code, nil)
	env.executeRound()

	assert.True(t, env.ms.IsFinished())
	assert.True(t, env.ms.HadFatalError())
}

func TestOverflowWraps(t *testing.T) {
	code := newCode(t).
		emit(atvm.SET_VAL, 0, int64(math.MaxInt64)).
		emit(atvm.INC_DAT, 0).
		emit(atvm.SET_VAL, 1, int64(math.MinInt64)).
		emit(atvm.DEC_DAT, 1).
		emit(atvm.SET_VAL, 2, int64(math.MaxInt64)).
		emit(atvm.MUL_VAL, 2, int64(2)).
		emit(atvm.FIN_IMD).
		bytes()

	env := newTestEnv(t, code, nil)
	env.executeUntilFinished()

	assert.False(t, env.ms.HadFatalError())
	assert.Equal(t, int64(math.MinInt64), env.dataLong(0))
	assert.Equal(t, int64(math.MaxInt64), env.dataLong(1))
	assert.Equal(t, int64(-2), env.dataLong(2))
}

func TestShifts(t *testing.T) {
	code := newCode(t).
		emit(atvm.SET_VAL, 0, int64(1)).
		emit(atvm.SHL_VAL, 0, int64(63)). // @0 = MinInt64
		emit(atvm.SET_VAL, 1, int64(-1)).
		emit(atvm.SHR_VAL, 1, int64(1)). // logical: @1 = MaxInt64
		emit(atvm.SET_VAL, 2, int64(12345)).
		emit(atvm.SHL_VAL, 2, int64(64)). // @2 = 0
		emit(atvm.SET_VAL, 3, int64(12345)).
		emit(atvm.SHR_VAL, 3, int64(200)). // @3 = 0
		emit(atvm.FIN_IMD).
		bytes()

	env := newTestEnv(t, code, nil)
	env.executeUntilFinished()

	assert.False(t, env.ms.HadFatalError())
	assert.Equal(t, int64(math.MinInt64), env.dataLong(0))
	assert.Equal(t, int64(math.MaxInt64), env.dataLong(1))
	assert.Equal(t, int64(0), env.dataLong(2))
	assert.Equal(t, int64(0), env.dataLong(3))
}

func TestBitwise(t *testing.T) {
	data := newData().
		long(0x0ff0). // @0
		long(0x00ff). // @1
		bytes()

	code := newCode(t).
		emit(atvm.SET_DAT, 2, 0).
		emit(atvm.AND_DAT, 2, 1). // @2 = 0x00f0
		emit(atvm.SET_DAT, 3, 0).
		emit(atvm.BOR_DAT, 3, 1). // @3 = 0x0fff
		emit(atvm.SET_DAT, 4, 0).
		emit(atvm.XOR_DAT, 4, 1). // @4 = 0x0f0f
		emit(atvm.SET_VAL, 5, int64(0)).
		emit(atvm.NOT_DAT, 5). // @5 = -1
		emit(atvm.FIN_IMD).
		bytes()

	env := newTestEnv(t, code, data)
	env.executeUntilFinished()

	assert.False(t, env.ms.HadFatalError())
	assert.Equal(t, int64(0x00f0), env.dataLong(2))
	assert.Equal(t, int64(0x0fff), env.dataLong(3))
	assert.Equal(t, int64(0x0f0f), env.dataLong(4))
	assert.Equal(t, int64(-1), env.dataLong(5))
}

func TestBranchTakenAndNotTaken(t *testing.T) {
	data := newData().
		long(5).  // @0
		long(10). // @1
		bytes()

	// BLT taken skips the first SET_VAL; BGT not taken lets the second run.
	cb := newCode(t)
	cb.emit(atvm.BLT_DAT, 0, 1, 10+13) // branch over SET_VAL (13 bytes) from this opcode (10 bytes)
	cb.emit(atvm.SET_VAL, 2, int64(111))
	cb.emit(atvm.BGT_DAT, 0, 1, 10+13)
	cb.emit(atvm.SET_VAL, 3, int64(222))
	cb.emit(atvm.FIN_IMD)

	env := newTestEnv(t, cb.bytes(), data)
	env.executeUntilFinished()

	assert.False(t, env.ms.HadFatalError())
	assert.Equal(t, int64(0), env.dataLong(2), "taken branch executed skipped instruction")
	assert.Equal(t, int64(222), env.dataLong(3), "untaken branch skipped instruction")
}

func TestBranchZeroAndNotZero(t *testing.T) {
	data := newData().
		long(0). // @0
		bytes()

	cb := newCode(t)
	cb.emit(atvm.BZR_DAT, 0, 6+13) // over SET_VAL
	cb.emit(atvm.SET_VAL, 1, int64(111))
	cb.emit(atvm.BNZ_DAT, 0, 6+13)
	cb.emit(atvm.SET_VAL, 2, int64(222))
	cb.emit(atvm.FIN_IMD)

	env := newTestEnv(t, cb.bytes(), data)
	env.executeUntilFinished()

	assert.False(t, env.ms.HadFatalError())
	assert.Equal(t, int64(0), env.dataLong(1))
	assert.Equal(t, int64(222), env.dataLong(2))
}

func TestBranchTargetOutOfBounds(t *testing.T) {
	code := newCode(t).
		emit(atvm.BZR_DAT, 0, -100).
		emit(atvm.FIN_IMD).
		bytes()

	env := newTestEnv(t, code, nil)
	env.executeRound()

	assert.True(t, env.ms.IsFinished())
	assert.True(t, env.ms.HadFatalError())
}

func TestIndirectCopy(t *testing.T) {
	data := newData().
		long(7).     // @0: target index
		long(12345). // @1: value
		bytes()

	code := newCode(t).
		emit(atvm.IND_DAT, 0, 1). // @($0) = $1, so @7 = 12345
		emit(atvm.SET_IND, 2, 0). // @2 = $($0), so @2 = 12345
		emit(atvm.FIN_IMD).
		bytes()

	env := newTestEnv(t, code, data)
	env.executeUntilFinished()

	assert.False(t, env.ms.HadFatalError())
	assert.Equal(t, int64(12345), env.dataLong(7))
	assert.Equal(t, int64(12345), env.dataLong(2))
}

func TestIndirectIndexedCopy(t *testing.T) {
	data := newData().
		long(7).     // @0: base index
		long(2).     // @1: offset
		long(12345). // @2: value
		bytes()

	code := newCode(t).
		emit(atvm.IDX_DAT, 0, 1, 2). // @($0 + $1) = $2, so @9 = 12345
		emit(atvm.SET_IDX, 3, 0, 1). // @3 = $($0 + $1)
		emit(atvm.FIN_IMD).
		bytes()

	env := newTestEnv(t, code, data)
	env.executeUntilFinished()

	assert.False(t, env.ms.HadFatalError())
	assert.Equal(t, int64(12345), env.dataLong(9))
	assert.Equal(t, int64(12345), env.dataLong(3))
}

func TestIndirectBounds(t *testing.T) {
	lastCell := int64(testDataSize/8 - 1)

	tests := []struct {
		name   string
		target int64
	}{
		{"negative", -1},
		{"beyond segment", 1000},
		// The indirect bounds check is strict: the final cell is not
		// addressable indirectly.
		{"last cell", lastCell},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := newData().
				long(tt.target). // @0
				long(12345).     // @1
				bytes()

			code := newCode(t).
				emit(atvm.IND_DAT, 0, 1).
				emit(atvm.FIN_IMD).
				bytes()

			env := newTestEnv(t, code, data)
			env.executeRound()

			assert.True(t, env.ms.IsFinished())
			assert.True(t, env.ms.HadFatalError())
		})
	}
}

func TestDirectAddressOutOfBounds(t *testing.T) {
	code := newCode(t).
		emit(atvm.SET_VAL, int32(testDataSize/8), int64(1)). // one past the last cell
		emit(atvm.FIN_IMD).
		bytes()

	env := newTestEnv(t, code, nil)
	env.executeRound()

	assert.True(t, env.ms.IsFinished())
	assert.True(t, env.ms.HadFatalError())
}

func TestUserStackPushPop(t *testing.T) {
	data := newData().
		long(123). // @0
		long(456). // @1
		bytes()

	code := newCode(t).
		emit(atvm.PSH_DAT, 0).
		emit(atvm.PSH_DAT, 1).
		emit(atvm.POP_DAT, 2). // LIFO: @2 = 456
		emit(atvm.POP_DAT, 3). // @3 = 123
		emit(atvm.FIN_IMD).
		bytes()

	env := newTestEnv(t, code, data)
	env.executeUntilFinished()

	assert.False(t, env.ms.HadFatalError())
	assert.Equal(t, int64(456), env.dataLong(2))
	assert.Equal(t, int64(123), env.dataLong(3))
}

func TestUserStackOverflow(t *testing.T) {
	cb := newCode(t)
	for i := 0; i < testUserStackSize/8+1; i++ {
		cb.emit(atvm.PSH_DAT, 0)
	}
	cb.emit(atvm.FIN_IMD)

	env := newTestEnv(t, cb.bytes(), nil)
	env.executeRound()

	assert.True(t, env.ms.IsFinished())
	assert.True(t, env.ms.HadFatalError())
}

func TestUserStackUnderflow(t *testing.T) {
	code := newCode(t).
		emit(atvm.POP_DAT, 0).
		emit(atvm.FIN_IMD).
		bytes()

	env := newTestEnv(t, code, nil)
	env.executeRound()

	assert.True(t, env.ms.IsFinished())
	assert.True(t, env.ms.HadFatalError())
}

func TestSubroutineCallAndReturn(t *testing.T) {
	cb := newCode(t)
	cb.emit(atvm.JMP_SUB, 6) // subroutine starts after JMP_SUB (5 bytes) + FIN_IMD (1 byte)
	cb.emit(atvm.FIN_IMD)
	require.Equal(t, 6, cb.len())
	cb.emit(atvm.SET_VAL, 0, int64(7))
	cb.emit(atvm.RET_SUB)

	env := newTestEnv(t, cb.bytes(), nil)
	env.executeUntilFinished()

	assert.False(t, env.ms.HadFatalError())
	assert.Equal(t, int64(7), env.dataLong(0))
}

func TestCallStackUnderflow(t *testing.T) {
	code := newCode(t).
		emit(atvm.RET_SUB).
		emit(atvm.FIN_IMD).
		bytes()

	env := newTestEnv(t, code, nil)
	env.executeRound()

	assert.True(t, env.ms.IsFinished())
	assert.True(t, env.ms.HadFatalError())
}

func TestJumpOutOfBounds(t *testing.T) {
	code := newCode(t).
		emit(atvm.JMP_ADR, 10000).
		emit(atvm.FIN_IMD).
		bytes()

	env := newTestEnv(t, code, nil)
	env.executeRound()

	assert.True(t, env.ms.IsFinished())
	assert.True(t, env.ms.HadFatalError())
}

func TestUnknownOpCodeIsFatal(t *testing.T) {
	code := newCode(t).
		rawByte(0x99).
		emit(atvm.FIN_IMD).
		bytes()

	env := newTestEnv(t, code, nil)
	env.executeRound()

	assert.True(t, env.ms.IsFinished())
	assert.True(t, env.ms.HadFatalError())
}

// TestCompiledWidths checks that every opcode encodes to exactly one tag
// byte plus the sum of its parameter widths.
func TestCompiledWidths(t *testing.T) {
	opcodes := []atvm.OpCode{
		atvm.NOP, atvm.SET_VAL, atvm.SET_DAT, atvm.CLR_DAT, atvm.INC_DAT, atvm.DEC_DAT,
		atvm.ADD_DAT, atvm.SUB_DAT, atvm.MUL_DAT, atvm.DIV_DAT, atvm.BOR_DAT, atvm.AND_DAT,
		atvm.XOR_DAT, atvm.NOT_DAT, atvm.SET_IND, atvm.SET_IDX, atvm.PSH_DAT, atvm.POP_DAT,
		atvm.JMP_SUB, atvm.RET_SUB, atvm.IND_DAT, atvm.IDX_DAT, atvm.MOD_DAT, atvm.SHL_DAT,
		atvm.SHR_DAT, atvm.JMP_ADR, atvm.BZR_DAT, atvm.BNZ_DAT, atvm.BGT_DAT, atvm.BLT_DAT,
		atvm.BGE_DAT, atvm.BLE_DAT, atvm.BEQ_DAT, atvm.BNE_DAT, atvm.SLP_DAT, atvm.FIZ_DAT,
		atvm.STZ_DAT, atvm.FIN_IMD, atvm.STP_IMD, atvm.SLP_IMD, atvm.ERR_ADR, atvm.SLP_VAL,
		atvm.SET_PCS, atvm.EXT_FUN, atvm.EXT_FUN_DAT, atvm.EXT_FUN_DAT_2, atvm.EXT_FUN_RET,
		atvm.EXT_FUN_RET_DAT, atvm.EXT_FUN_RET_DAT_2, atvm.EXT_FUN_VAL, atvm.ADD_VAL,
		atvm.SUB_VAL, atvm.MUL_VAL, atvm.DIV_VAL, atvm.SHL_VAL, atvm.SHR_VAL,
	}

	for _, op := range opcodes {
		expected := 1
		args := make([]interface{}, 0, 4)
		for _, param := range op.Params() {
			expected += param.Width()
			if param == atvm.ParamFunc {
				args = append(args, uint16(0x0501))
			} else {
				args = append(args, 0)
			}
		}

		encoded, err := op.Compile(args...)
		require.NoError(t, err, "compiling %v", op)
		assert.Len(t, encoded, expected, "width mismatch for %v", op)
	}
}
