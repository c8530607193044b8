package atvm

import (
	"encoding/binary"

	"github.com/entropyio/go-atvm/config"
)

// Fetch helpers over the code segment. All multi-byte integers in the code
// stream are big-endian two's complement: 16-bit function codes, 32-bit
// addresses, 64-bit immediate values, signed 8-bit branch offsets. Fetches
// advance the machine's code cursor and raise CodeUnderflow when the stream
// is exhausted mid-instruction.

func (ms *MachineState) fetchCodeByte() (byte, error) {
	if ms.codePos >= len(ms.code) {
		return 0, codeUnderflowError("ran out of code bytes at %04x", ms.codePos)
	}
	b := ms.code[ms.codePos]
	ms.codePos++
	return b, nil
}

// fetchCodeValue reads a 64-bit immediate from the code stream.
func (ms *MachineState) fetchCodeValue() (int64, error) {
	if ms.codePos+config.ValueSize > len(ms.code) {
		return 0, codeUnderflowError("ran out of code bytes fetching value at %04x", ms.codePos)
	}
	value := int64(binary.BigEndian.Uint64(ms.code[ms.codePos:]))
	ms.codePos += config.ValueSize
	return value, nil
}

// fetchCodeAddress reads a 32-bit code address. Callers that jump validate
// the target themselves, which also leaves room for the on-error clear
// sentinel.
func (ms *MachineState) fetchCodeAddress() (int32, error) {
	if ms.codePos+config.AddressSize > len(ms.code) {
		return 0, codeUnderflowError("ran out of code bytes fetching code address at %04x", ms.codePos)
	}
	address := int32(binary.BigEndian.Uint32(ms.code[ms.codePos:]))
	ms.codePos += config.AddressSize
	return address, nil
}

// fetchCodeOffset reads a signed 8-bit branch offset.
func (ms *MachineState) fetchCodeOffset() (int8, error) {
	b, err := ms.fetchCodeByte()
	if err != nil {
		return 0, codeUnderflowError("ran out of code bytes fetching offset at %04x", ms.codePos)
	}
	return int8(b), nil
}

// fetchDataAddress reads a 32-bit cell index from the code stream and
// returns the validated byte offset into the data segment.
func (ms *MachineState) fetchDataAddress() (int32, error) {
	if ms.codePos+config.AddressSize > len(ms.code) {
		return 0, codeUnderflowError("ran out of code bytes fetching data address at %04x", ms.codePos)
	}
	index := int32(binary.BigEndian.Uint32(ms.code[ms.codePos:]))
	ms.codePos += config.AddressSize

	offset := int64(index) * config.ValueSize
	if index < 0 || offset+config.ValueSize > int64(len(ms.data)) {
		return 0, invalidAddressError("data address %08x out of bounds: 0x0000 to 0x%04x", index, len(ms.data)/config.ValueSize-1)
	}

	return int32(offset), nil
}

// fetchFunctionCode reads a raw 16-bit function code.
func (ms *MachineState) fetchFunctionCode() (uint16, error) {
	if ms.codePos+2 > len(ms.code) {
		return 0, codeUnderflowError("ran out of code bytes fetching function code at %04x", ms.codePos)
	}
	raw := binary.BigEndian.Uint16(ms.code[ms.codePos:])
	ms.codePos += 2
	return raw, nil
}

// checkIndirectByteOffset validates a computed (indirect) byte offset into
// the data segment. The comparison is strict: the offset plus one cell must
// lie strictly within the segment.
func (ms *MachineState) checkIndirectByteOffset(offset int64) error {
	if offset < 0 || offset+config.ValueSize >= int64(len(ms.data)) {
		return invalidAddressError("indirect data address %04x out of bounds", offset)
	}
	return nil
}

func putLong(b []byte, value int64) {
	binary.BigEndian.PutUint64(b, uint64(value))
}

func getLong(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}

func putInt(b []byte, value int32) {
	binary.BigEndian.PutUint32(b, uint32(value))
}

func getInt(b []byte) int32 {
	return int32(binary.BigEndian.Uint32(b))
}

func (ms *MachineState) dataGet(byteOffset int32) int64 {
	return int64(binary.BigEndian.Uint64(ms.data[byteOffset:]))
}

func (ms *MachineState) dataPut(byteOffset int32, value int64) {
	binary.BigEndian.PutUint64(ms.data[byteOffset:], uint64(value))
}
