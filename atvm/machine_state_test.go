package atvm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entropyio/go-atvm/atvm"
)

func TestSnapshotRoundTrip(t *testing.T) {
	// Stop mid-program with live stack entries and register contents so the
	// snapshot carries non-trivial state.
	code := newCode(t).
		emit(atvm.SET_VAL, 0, int64(123)).
		emit(atvm.PSH_DAT, 0).
		emit(atvm.EXT_FUN_VAL, atvm.SET_A1, int64(0x55)).
		emit(atvm.STP_IMD).
		emit(atvm.POP_DAT, 1).
		emit(atvm.FIN_IMD).
		bytes()

	env := newTestEnv(t, code, nil)
	env.executeRound()
	require.True(t, env.ms.IsStopped())

	snapshot := env.ms.Serialize()

	restored, err := atvm.Deserialize(env.mc, code, snapshot)
	require.NoError(t, err)

	assert.Equal(t, snapshot, restored.Serialize(), "deserialize(serialize) must be bit-for-bit identical")
	assert.Equal(t, int64(0x55), restored.GetA1())

	// The restored machine continues exactly where the original stopped.
	restored.Execute()
	assert.True(t, restored.IsFinished())
	assert.False(t, restored.HadFatalError())

	popped, err := restored.GetDataLong(1)
	require.NoError(t, err)
	assert.Equal(t, int64(123), popped)
}

func TestSnapshotRoundTripEveryRound(t *testing.T) {
	cb := newCode(t)
	cb.emit(atvm.SLP_VAL, int64(1))
	cb.emit(atvm.INC_DAT, 0)
	cb.emit(atvm.SLP_VAL, int64(1))
	cb.emit(atvm.INC_DAT, 0)
	cb.emit(atvm.FIN_IMD)
	code := cb.bytes()

	env := newTestEnv(t, code, nil)

	for round := 0; round < 10 && !env.ms.IsFinished(); round++ {
		env.executeRound()

		snapshot := env.ms.Serialize()
		restored, err := atvm.Deserialize(env.mc, code, snapshot)
		require.NoError(t, err)
		require.Equal(t, snapshot, restored.Serialize(), "round %d", round)
	}

	require.True(t, env.ms.IsFinished())
	assert.Equal(t, int64(2), env.dataLong(0))
}

func TestDeserializeRejectsBadInput(t *testing.T) {
	code := newCode(t).
		emit(atvm.FIN_IMD).
		bytes()

	env := newTestEnv(t, code, nil)
	snapshot := env.ms.Serialize()

	_, err := atvm.Deserialize(env.mc, code, snapshot[:10])
	assert.Error(t, err, "truncated snapshot")

	_, err = atvm.Deserialize(env.mc, append(code, 0, 0, 0, 0, 0, 0, 0, 0), snapshot)
	assert.Error(t, err, "code size mismatch")

	mangled := make([]byte, len(snapshot))
	copy(mangled, snapshot)
	mangled[0] = 0xff // version
	_, err = atvm.Deserialize(env.mc, code, mangled)
	assert.Error(t, err, "unknown version")
}

func TestSegmentSizesMustBeCellMultiples(t *testing.T) {
	code := newCode(t).emit(atvm.FIN_IMD).bytes()

	env := newTestEnv(t, code, nil)
	_, err := atvm.NewMachineState(env.mc, 8, code, 100, 64, 64)
	assert.Error(t, err)
}

func TestRegisterByteAccess(t *testing.T) {
	code := newCode(t).emit(atvm.FIN_IMD).bytes()
	env := newTestEnv(t, code, nil)

	require.Error(t, env.ms.SetABytes([]byte{1, 2, 3}))

	value := make([]byte, 32)
	for i := range value {
		value[i] = byte(i)
	}
	require.NoError(t, env.ms.SetABytes(value))
	assert.Equal(t, value, env.ms.GetABytes())

	// Cell 1 is the register's first eight bytes.
	assert.Equal(t, int64(0x0001020304050607), env.ms.GetA1())
}

func TestTimestampPacking(t *testing.T) {
	ts := atvm.NewTimestamp(atvm.TimestampToLong(1000, 7))
	assert.Equal(t, int32(1000), ts.BlockHeight)
	assert.Equal(t, int32(7), ts.TransactionSequence)
	assert.Equal(t, int64(1000)<<32|7, ts.LongValue())
}
