package atvm

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/entropyio/go-atvm/config"
)

// DisassembleInstruction decodes one instruction starting at pos and returns
// its mnemonic-and-args text together with the position of the next
// instruction. Data addresses are validated against the given data segment
// size, as they would be during execution.
func DisassembleInstruction(code []byte, pos int, dataSize int) (string, int, error) {
	if pos >= len(code) {
		return "", pos, codeUnderflowError("ran out of code bytes at %04x", pos)
	}

	opByte := code[pos]
	operation := instructionSet[opByte]
	if operation == nil {
		return "", pos, unknownOpCodeError(opByte, pos)
	}

	// PC is considered to be immediately before the opcode byte.
	preOpcodePC := pos
	pos++

	var output strings.Builder
	output.WriteString(operation.name)

	for _, param := range operation.params {
		if pos+param.Width() > len(code) {
			return "", pos, codeUnderflowError("ran out of code bytes at %04x disassembling %s", pos, operation.name)
		}

		output.WriteString(" ")

		switch param {
		case ParamValue:
			value := binary.BigEndian.Uint64(code[pos:])
			output.WriteString(fmt.Sprintf("#%016x", value))

		case ParamOffset:
			offset := int8(code[pos])
			output.WriteString(fmt.Sprintf("PC+%02x=[%04x]", offset, preOpcodePC+int(offset)))

		case ParamFunc:
			raw := binary.BigEndian.Uint16(code[pos:])
			if name, ok := FunctionCodeName(raw); ok {
				output.WriteString(fmt.Sprintf("\"%s\"{%04x}", name, raw))
			} else if IsPlatformSpecific(raw) {
				output.WriteString(fmt.Sprintf("API-FN(%04x)", raw))
			} else {
				output.WriteString(fmt.Sprintf("FN(%04x)", raw))
			}

		case ParamCodeAddr:
			address := int32(binary.BigEndian.Uint32(code[pos:]))
			output.WriteString(fmt.Sprintf("[%04x]", address))

		default:
			index := int32(binary.BigEndian.Uint32(code[pos:]))
			if index < 0 || int64(index)*config.ValueSize+config.ValueSize > int64(dataSize) {
				return "", pos, invalidAddressError("data address %08x out of bounds", index)
			}
			output.WriteString(formatDataAddress(param, index))
		}

		pos += param.Width()
	}

	return output.String(), pos, nil
}

func formatDataAddress(param OpCodeParam, index int32) string {
	switch param {
	case ParamDestAddr:
		return fmt.Sprintf("@%08x", index)
	case ParamIndirectDestAddr:
		return fmt.Sprintf("@($%08x)", index)
	case ParamIndirectDestAddrWithIndex:
		return fmt.Sprintf("@($%08x", index)
	case ParamSrcAddr:
		return fmt.Sprintf("$%08x", index)
	case ParamIndirectSrcAddr:
		return fmt.Sprintf("$($%08x)", index)
	case ParamIndirectSrcAddrWithIndex:
		return fmt.Sprintf("$($%08x", index)
	case ParamIndex:
		return fmt.Sprintf("+ $%08x)", index)
	case ParamBlockHeight:
		return fmt.Sprintf("height $%08x", index)
	default:
		return fmt.Sprintf("$%08x", index)
	}
}

// Disassemble renders every instruction in the given code bytes, one per
// line.
func Disassemble(code []byte, dataSize int) (string, error) {
	var output strings.Builder

	pos := 0
	for pos < len(code) {
		text, next, err := DisassembleInstruction(code, pos, dataSize)
		if err != nil {
			return output.String(), err
		}
		output.WriteString(fmt.Sprintf("[%04x] %s\n", pos, text))
		pos = next
	}

	return output.String(), nil
}
