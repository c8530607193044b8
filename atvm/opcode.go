package atvm

import (
	"encoding/binary"
	"fmt"

	"github.com/entropyio/go-atvm/config"
)

// OpCode is a single-byte machine operation, possibly followed by fixed-width
// arguments such as data addresses, a branch offset or an immediate value.
//
// In per-opcode documentation:
//
//	@addr      means "store at addr"
//	$addr      means "fetch from addr"
//	@($addr)   means "store at address fetched from addr", i.e. indirect
type OpCode byte

const (
	// SET_VAL: @addr = value
	SET_VAL OpCode = 0x01
	// SET_DAT: @addr1 = $addr2
	SET_DAT OpCode = 0x02
	// CLR_DAT: @addr = 0
	CLR_DAT OpCode = 0x03
	// INC_DAT: @addr += 1
	INC_DAT OpCode = 0x04
	// DEC_DAT: @addr -= 1
	DEC_DAT OpCode = 0x05
	// ADD_DAT: @addr1 += $addr2
	ADD_DAT OpCode = 0x06
	// SUB_DAT: @addr1 -= $addr2
	SUB_DAT OpCode = 0x07
	// MUL_DAT: @addr1 *= $addr2
	MUL_DAT OpCode = 0x08
	// DIV_DAT: @addr1 /= $addr2, IllegalOperation on divide-by-zero
	DIV_DAT OpCode = 0x09
	// BOR_DAT: @addr1 |= $addr2
	BOR_DAT OpCode = 0x0a
	// AND_DAT: @addr1 &= $addr2
	AND_DAT OpCode = 0x0b
	// XOR_DAT: @addr1 ^= $addr2
	XOR_DAT OpCode = 0x0c
	// NOT_DAT: @addr = ~$addr
	NOT_DAT OpCode = 0x0d
	// SET_IND: @addr1 = $($addr2)
	SET_IND OpCode = 0x0e
	// SET_IDX: @addr1 = $($addr2 + $addr3)
	SET_IDX OpCode = 0x0f
	// PSH_DAT: @--user_stack = $addr
	PSH_DAT OpCode = 0x10
	// POP_DAT: @addr = $user_stack++
	POP_DAT OpCode = 0x11
	// JMP_SUB: @--call_stack = PC after opcode and args, PC = addr
	JMP_SUB OpCode = 0x12
	// RET_SUB: PC = $call_stack++
	RET_SUB OpCode = 0x13
	// IND_DAT: @($addr1) = $addr2
	IND_DAT OpCode = 0x14
	// IDX_DAT: @($addr1 + $addr2) = $addr3
	IDX_DAT OpCode = 0x15
	// MOD_DAT: @addr1 %= $addr2, IllegalOperation on divide-by-zero
	MOD_DAT OpCode = 0x16
	// SHL_DAT: @addr1 <<= $addr2
	SHL_DAT OpCode = 0x17
	// SHR_DAT: @addr1 >>= $addr2, new MSB is zero
	SHR_DAT OpCode = 0x18
	// JMP_ADR: PC = addr
	JMP_ADR OpCode = 0x1a
	// BZR_DAT: if $addr == 0, PC += offset
	BZR_DAT OpCode = 0x1b
	// BNZ_DAT: if $addr != 0, PC += offset
	BNZ_DAT OpCode = 0x1e
	// BGT_DAT: if $addr1 > $addr2, PC += offset
	BGT_DAT OpCode = 0x1f
	// BLT_DAT: if $addr1 < $addr2, PC += offset
	BLT_DAT OpCode = 0x20
	// BGE_DAT: if $addr1 >= $addr2, PC += offset
	BGE_DAT OpCode = 0x21
	// BLE_DAT: if $addr1 <= $addr2, PC += offset
	BLE_DAT OpCode = 0x22
	// BEQ_DAT: if $addr1 == $addr2, PC += offset
	BEQ_DAT OpCode = 0x23
	// BNE_DAT: if $addr1 != $addr2, PC += offset
	BNE_DAT OpCode = 0x24
	// SLP_DAT: sleep until the block height held at $addr
	SLP_DAT OpCode = 0x25
	// FIZ_DAT: if $addr == 0, permanently stop
	FIZ_DAT OpCode = 0x26
	// STZ_DAT: if $addr == 0, PC = on-stop address and stop
	STZ_DAT OpCode = 0x27
	// FIN_IMD: permanently stop
	FIN_IMD OpCode = 0x28
	// STP_IMD: stop
	STP_IMD OpCode = 0x29
	// SLP_IMD: sleep until next block
	SLP_IMD OpCode = 0x2a
	// ERR_ADR: on-error address = addr, or cleared for the -1 sentinel
	ERR_ADR OpCode = 0x2b
	// SLP_VAL: sleep for value blocks
	SLP_VAL OpCode = 0x2c
	// SET_PCS: on-stop address = PC immediately after this opcode
	SET_PCS OpCode = 0x30
	// EXT_FUN: func()
	EXT_FUN OpCode = 0x32
	// EXT_FUN_DAT: func($addr)
	EXT_FUN_DAT OpCode = 0x33
	// EXT_FUN_DAT_2: func($addr1, $addr2)
	EXT_FUN_DAT_2 OpCode = 0x34
	// EXT_FUN_RET: @addr = func()
	EXT_FUN_RET OpCode = 0x35
	// EXT_FUN_RET_DAT: @addr1 = func($addr2)
	EXT_FUN_RET_DAT OpCode = 0x36
	// EXT_FUN_RET_DAT_2: @addr1 = func($addr2, $addr3)
	EXT_FUN_RET_DAT_2 OpCode = 0x37
	// EXT_FUN_VAL: func(value)
	EXT_FUN_VAL OpCode = 0x38
	// ADD_VAL: @addr += value
	ADD_VAL OpCode = 0x46
	// SUB_VAL: @addr -= value
	SUB_VAL OpCode = 0x47
	// MUL_VAL: @addr *= value
	MUL_VAL OpCode = 0x48
	// DIV_VAL: @addr /= value, IllegalOperation on divide-by-zero
	DIV_VAL OpCode = 0x49
	// SHL_VAL: @addr <<= value
	SHL_VAL OpCode = 0x4a
	// SHR_VAL: @addr >>= value, new MSB is zero
	SHR_VAL OpCode = 0x4b
	// NOP does nothing
	NOP OpCode = 0x7f
)

// OpCodeParam describes one fixed-width instruction argument: how it is
// encoded in the code stream, how it is fetched and validated, and how it
// disassembles.
type OpCodeParam int

const (
	// ParamValue is a literal 64-bit value from the code segment.
	ParamValue OpCodeParam = iota
	// ParamDestAddr is a destination cell index in the data segment.
	ParamDestAddr
	// ParamIndirectDestAddr is a cell whose value is the destination cell index.
	ParamIndirectDestAddr
	// ParamIndirectDestAddrWithIndex is as ParamIndirectDestAddr, offset by an index cell.
	ParamIndirectDestAddrWithIndex
	// ParamSrcAddr is a source cell index in the data segment.
	ParamSrcAddr
	// ParamIndirectSrcAddr is a cell whose value is the source cell index.
	ParamIndirectSrcAddr
	// ParamIndirectSrcAddrWithIndex is as ParamIndirectSrcAddr, offset by an index cell.
	ParamIndirectSrcAddrWithIndex
	// ParamIndex is the offset cell for the indirect-indexed modes.
	ParamIndex
	// ParamCodeAddr is a literal byte address in the code segment.
	ParamCodeAddr
	// ParamOffset is a signed byte offset from the pre-opcode PC.
	ParamOffset
	// ParamFunc is a literal 16-bit function code.
	ParamFunc
	// ParamBlockHeight is a cell index holding a block height.
	ParamBlockHeight
)

// Width returns the parameter's encoded width in bytes.
func (param OpCodeParam) Width() int {
	switch param {
	case ParamValue:
		return config.ValueSize
	case ParamOffset:
		return 1
	case ParamFunc:
		return 2
	default:
		return config.AddressSize
	}
}

// fetch decodes this parameter from the machine's code cursor, widening the
// result to int64. Data addresses come back as validated byte offsets.
func (param OpCodeParam) fetch(ms *MachineState) (int64, error) {
	switch param {
	case ParamValue:
		return ms.fetchCodeValue()
	case ParamCodeAddr:
		address, err := ms.fetchCodeAddress()
		return int64(address), err
	case ParamOffset:
		offset, err := ms.fetchCodeOffset()
		return int64(offset), err
	case ParamFunc:
		raw, err := ms.fetchFunctionCode()
		return int64(raw), err
	default:
		address, err := ms.fetchDataAddress()
		return int64(address), err
	}
}

// operation ties an opcode to its handler and parameter schema.
type operation struct {
	execute executionFunc
	params  []OpCodeParam
	name    string
}

type executionFunc func(ms *MachineState, args []int64) error

// OpCodeByValue returns the OpCode for a raw byte, if defined.
func OpCodeByValue(value byte) (OpCode, bool) {
	if instructionSet[value] == nil {
		return 0, false
	}
	return OpCode(value), true
}

// IsExtFunOpCode reports whether the opcode belongs to the external-function
// family, which is metered at the function-call rate.
func (op OpCode) IsExtFunOpCode() bool {
	return op >= EXT_FUN && op <= EXT_FUN_VAL
}

// Params returns the opcode's parameter schema.
func (op OpCode) Params() []OpCodeParam {
	operation := instructionSet[op]
	if operation == nil {
		return nil
	}
	return operation.params
}

func (op OpCode) String() string {
	operation := instructionSet[op]
	if operation == nil {
		return fmt.Sprintf("opcode 0x%02x not defined", byte(op))
	}
	return operation.name
}

// extFunShape returns the (arity, returns-value) shape implied by an
// EXT_FUN-family opcode.
func (op OpCode) extFunShape() (paramCount int, returnsValue bool) {
	switch op {
	case EXT_FUN:
		return 0, false
	case EXT_FUN_DAT, EXT_FUN_VAL:
		return 1, false
	case EXT_FUN_DAT_2:
		return 2, false
	case EXT_FUN_RET:
		return 0, true
	case EXT_FUN_RET_DAT:
		return 1, true
	case EXT_FUN_RET_DAT_2:
		return 2, true
	}
	return 0, false
}

// CalcOffset converts a branch target into the signed byte offset encoded in
// the code stream, relative to the byte position of the opcode itself.
func CalcOffset(opcodeAddress, branchTarget int) (int8, error) {
	offset := branchTarget - opcodeAddress
	if offset < -128 || offset > 127 {
		return 0, compilationError("branch offset %02x (from PC %04x) is wider than a byte", offset, opcodeAddress)
	}
	return int8(offset), nil
}

// Compile encodes the opcode and its arguments into code bytes. Arguments
// are supplied as int/int64 values (cell indices for data addresses, byte
// addresses for code addresses) or as a FunctionCode for ParamFunc, in which
// case the function's declared shape is validated against the opcode.
func (op OpCode) Compile(args ...interface{}) ([]byte, error) {
	operation := instructionSet[op]
	if operation == nil {
		return nil, compilationError("opcode 0x%02x not defined", byte(op))
	}
	if len(args) != len(operation.params) {
		return nil, compilationError("%s requires %d args, but %d passed", operation.name, len(operation.params), len(args))
	}

	out := []byte{byte(op)}

	for i, param := range operation.params {
		encoded, err := param.compile(op, args[i])
		if err != nil {
			return nil, err
		}
		out = append(out, encoded...)
	}

	return out, nil
}

func (param OpCodeParam) compile(op OpCode, arg interface{}) ([]byte, error) {
	switch param {
	case ParamValue:
		value, err := coerceInt64(arg)
		if err != nil {
			return nil, compilationError("%s value arg: %v", op, err)
		}
		out := make([]byte, config.ValueSize)
		binary.BigEndian.PutUint64(out, uint64(value))
		return out, nil

	case ParamOffset:
		value, err := coerceInt64(arg)
		if err != nil {
			return nil, compilationError("%s offset arg: %v", op, err)
		}
		if value < -128 || value > 127 {
			return nil, compilationError("%s offset %d is wider than a byte", op, value)
		}
		return []byte{byte(int8(value))}, nil

	case ParamFunc:
		if fc, ok := arg.(FunctionCode); ok {
			paramCount, returnsValue := op.extFunShape()
			entry := functionTable[fc]
			if entry == nil {
				return nil, compilationError("%s: function code 0x%04x not defined", op, uint16(fc))
			}
			if entry.paramCount != paramCount || entry.returnsValue != returnsValue {
				return nil, compilationError("wrong opcode %s for function %s", op, entry.name)
			}
			out := make([]byte, 2)
			binary.BigEndian.PutUint16(out, uint16(fc))
			return out, nil
		}
		// Raw 16-bit codes pass through unvalidated so callers can reach
		// the platform-specific range.
		value, err := coerceInt64(arg)
		if err != nil {
			return nil, compilationError("%s func arg: %v", op, err)
		}
		out := make([]byte, 2)
		binary.BigEndian.PutUint16(out, uint16(value))
		return out, nil

	default:
		value, err := coerceInt64(arg)
		if err != nil {
			return nil, compilationError("%s address arg: %v", op, err)
		}
		out := make([]byte, config.AddressSize)
		binary.BigEndian.PutUint32(out, uint32(value))
		return out, nil
	}
}

func coerceInt64(arg interface{}) (int64, error) {
	switch v := arg.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint16:
		return int64(v), nil
	case FunctionCode:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("cannot coerce %T to integer", arg)
	}
}
