package atvm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entropyio/go-atvm/atvm"
)

func TestDisassembleInstruction(t *testing.T) {
	tests := []struct {
		name     string
		op       atvm.OpCode
		args     []interface{}
		expected string
	}{
		{"set value", atvm.SET_VAL, []interface{}{3, int64(12345)}, "SET_VAL @00000003 #0000000000003039"},
		{"set data", atvm.SET_DAT, []interface{}{2, 3}, "SET_DAT @00000002 $00000003"},
		{"indirect set", atvm.SET_IND, []interface{}{3, 4}, "SET_IND @00000003 $($00000004)"},
		{"indexed set", atvm.SET_IDX, []interface{}{3, 4, 5}, "SET_IDX @00000003 $($00000004 + $00000005)"},
		{"indirect store", atvm.IND_DAT, []interface{}{3, 4}, "IND_DAT @($00000003) $00000004"},
		{"branch", atvm.BZR_DAT, []interface{}{4, 10}, "BZR_DAT $00000004 PC+0a=[000a]"},
		{"jump", atvm.JMP_ADR, []interface{}{0x123}, "JMP_ADR [0123]"},
		{"sleep until", atvm.SLP_DAT, []interface{}{3}, "SLP_DAT height $00000003"},
		{"function", atvm.EXT_FUN, []interface{}{atvm.SWAP_A_AND_B}, "EXT_FUN \"SWAP_A_AND_B\"{0045}"},
		{"platform function", atvm.EXT_FUN_DAT, []interface{}{uint16(0x0501), 0}, "EXT_FUN_DAT API-FN(0501) $00000000"},
		{"unknown function", atvm.EXT_FUN, []interface{}{uint16(0x00ff)}, "EXT_FUN FN(00ff)"},
		{"no params", atvm.FIN_IMD, nil, "FIN_IMD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := tt.op.Compile(tt.args...)
			require.NoError(t, err)

			text, next, err := atvm.DisassembleInstruction(encoded, 0, testDataSize)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, text)
			assert.Equal(t, len(encoded), next, "disassembly must consume the whole instruction")

			// Re-encoding the same opcode and args yields the same bytes.
			again, err := tt.op.Compile(tt.args...)
			require.NoError(t, err)
			assert.Equal(t, encoded, again)
		})
	}
}

func TestDisassembleProgram(t *testing.T) {
	code := newCode(t).
		emit(atvm.SET_VAL, 0, int64(2)).
		emit(atvm.EXT_FUN, atvm.SWAP_A_AND_B).
		emit(atvm.FIN_IMD).
		bytes()

	// The cell-size padding appended to the image is not decodable, so
	// disassemble just the instruction bytes.
	text, err := atvm.Disassemble(code[:13+3+1], testDataSize)
	require.NoError(t, err)

	assert.Equal(t, "[0000] SET_VAL @00000000 #0000000000000002\n[000d] EXT_FUN \"SWAP_A_AND_B\"{0045}\n[0010] FIN_IMD\n", text)
}

func TestDisassembleRejectsBadAddress(t *testing.T) {
	encoded, err := atvm.SET_VAL.Compile(int32(testDataSize/8), int64(1))
	require.NoError(t, err)

	_, _, err = atvm.DisassembleInstruction(encoded, 0, testDataSize)
	assert.Error(t, err)
}

func TestCalcOffset(t *testing.T) {
	offset, err := atvm.CalcOffset(0x10, 0x20)
	require.NoError(t, err)
	assert.Equal(t, int8(0x10), offset)

	_, err = atvm.CalcOffset(0, 1000)
	require.Error(t, err)
	_, isCompilationError := err.(*atvm.CompilationError)
	assert.True(t, isCompilationError)
}

func TestCompileRejectsWideOffset(t *testing.T) {
	_, err := atvm.BZR_DAT.Compile(0, 200)
	require.Error(t, err)
	_, isCompilationError := err.(*atvm.CompilationError)
	assert.True(t, isCompilationError)
}

func TestCompileRejectsWrongArgCount(t *testing.T) {
	_, err := atvm.SET_VAL.Compile(1)
	assert.Error(t, err)
}
