package atvm_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/entropyio/go-atvm/atvm"
	"github.com/entropyio/go-atvm/config"
	"github.com/entropyio/go-atvm/runtime"
)

const (
	testDataSize      = 32 * config.ValueSize
	testCallStackSize = 8 * config.ValueSize
	testUserStackSize = 8 * config.ValueSize
)

// testEnv holds a machine wired to an in-memory reference chain.
type testEnv struct {
	t  *testing.T
	mc *runtime.MemChain
	ms *atvm.MachineState
}

func newTestEnv(t *testing.T, code, data []byte) *testEnv {
	return newTestEnvWithFees(t, code, data, config.DefaultFeeConfig)
}

func newTestEnvWithFees(t *testing.T, code, data []byte, fees *config.FeeConfig) *testEnv {
	mc := runtime.NewMemChain(fees, runtime.DefaultInitialBalance, runtime.DefaultInitialBlockHeight, runtime.DefaultCreationBlockHeight)

	ms, err := atvm.NewMachineState(mc, runtime.DefaultCreationBlockHeight, code, testDataSize, testCallStackSize, testUserStackSize)
	require.NoError(t, err)

	if len(data) > 0 {
		require.NoError(t, ms.PutDataBytes(0, data))
	}

	return &testEnv{t: t, mc: mc, ms: ms}
}

// executeRound runs one round and confirms the block under construction,
// advancing the chain tip by one.
func (env *testEnv) executeRound() {
	env.ms.Execute()
	env.mc.SyncATBalance(env.ms)
	_, err := env.mc.AddCurrentBlockToChain()
	require.NoError(env.t, err)
}

// executeUntilFinished drives rounds until the machine finishes.
func (env *testEnv) executeUntilFinished() {
	for round := 0; round < 100 && !env.ms.IsFinished(); round++ {
		env.executeRound()
	}
	require.True(env.t, env.ms.IsFinished(), "machine did not finish within round bound")
}

func (env *testEnv) dataLong(index int32) int64 {
	value, err := env.ms.GetDataLong(index)
	require.NoError(env.t, err)
	return value
}

func (env *testEnv) dataBytes(index int32, length int) []byte {
	out, err := env.ms.GetDataBytes(index, length)
	require.NoError(env.t, err)
	return out
}

// codeBuilder assembles test programs, padding to the cell size required of
// segment images.
type codeBuilder struct {
	t   *testing.T
	buf bytes.Buffer
}

func newCode(t *testing.T) *codeBuilder {
	return &codeBuilder{t: t}
}

func (cb *codeBuilder) emit(op atvm.OpCode, args ...interface{}) *codeBuilder {
	encoded, err := op.Compile(args...)
	require.NoError(cb.t, err)
	cb.buf.Write(encoded)
	return cb
}

// Raw emitters bypass the encoder for deliberately malformed programs.

func (cb *codeBuilder) rawByte(b byte) *codeBuilder {
	cb.buf.WriteByte(b)
	return cb
}

func (cb *codeBuilder) rawUint16(v uint16) *codeBuilder {
	var out [2]byte
	binary.BigEndian.PutUint16(out[:], v)
	cb.buf.Write(out[:])
	return cb
}

func (cb *codeBuilder) rawUint32(v uint32) *codeBuilder {
	var out [4]byte
	binary.BigEndian.PutUint32(out[:], v)
	cb.buf.Write(out[:])
	return cb
}

func (cb *codeBuilder) rawUint64(v uint64) *codeBuilder {
	var out [8]byte
	binary.BigEndian.PutUint64(out[:], v)
	cb.buf.Write(out[:])
	return cb
}

// len returns the unpadded program length, for hand-computing jump targets.
func (cb *codeBuilder) len() int {
	return cb.buf.Len()
}

func (cb *codeBuilder) bytes() []byte {
	out := cb.buf.Bytes()
	if pad := len(out) % config.ValueSize; pad != 0 {
		out = append(out, make([]byte, config.ValueSize-pad)...)
	}
	return out
}

// dataBuilder lays out initial data segment contents cell by cell.
type dataBuilder struct {
	buf bytes.Buffer
}

func newData() *dataBuilder {
	return &dataBuilder{}
}

func (db *dataBuilder) long(v int64) *dataBuilder {
	var out [8]byte
	binary.BigEndian.PutUint64(out[:], uint64(v))
	db.buf.Write(out[:])
	return db
}

func (db *dataBuilder) raw(b []byte) *dataBuilder {
	db.buf.Write(b)
	return db
}

func (db *dataBuilder) bytes() []byte {
	return db.buf.Bytes()
}
