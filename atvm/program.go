package atvm

import (
	"encoding/binary"
	"fmt"

	"github.com/entropyio/go-atvm/config"
)

// A program image is the concatenation header || code || data || call stack
// || user stack. The header carries a version tag and the four segment
// sizes as 32-bit big-endian integers; each size must be a multiple of the
// cell size. Stack bytes are all zero at creation but are part of the image
// so its length always matches its declared sizes.
const programHeaderSize = 2 + 4*4

// PackProgram builds a program image from a code segment and initial data
// segment contents. The data segment is padded out to dataSize.
func PackProgram(code, data []byte, dataSize, callStackSize, userStackSize int) ([]byte, error) {
	if len(data) > dataSize {
		return nil, fmt.Errorf("initial data (%d bytes) exceeds data segment size %d", len(data), dataSize)
	}
	for _, size := range []int{len(code), dataSize, callStackSize, userStackSize} {
		if size < 0 || size%config.ValueSize != 0 {
			return nil, fmt.Errorf("segment size %d is not a multiple of %d", size, config.ValueSize)
		}
	}

	out := make([]byte, programHeaderSize+len(code)+dataSize+callStackSize+userStackSize)

	binary.BigEndian.PutUint16(out[0:], config.HeaderVersion)
	binary.BigEndian.PutUint32(out[2:], uint32(len(code)))
	binary.BigEndian.PutUint32(out[6:], uint32(dataSize))
	binary.BigEndian.PutUint32(out[10:], uint32(callStackSize))
	binary.BigEndian.PutUint32(out[14:], uint32(userStackSize))

	pos := programHeaderSize
	pos += copy(out[pos:], code)
	copy(out[pos:], data)

	return out, nil
}

// NewMachineStateFromImage creates a machine from a program image.
func NewMachineStateFromImage(api API, creationBlockHeight int32, image []byte) (*MachineState, error) {
	if len(image) < programHeaderSize {
		return nil, fmt.Errorf("program image too short: %d bytes", len(image))
	}

	version := binary.BigEndian.Uint16(image[0:])
	if version != config.HeaderVersion {
		return nil, fmt.Errorf("unsupported program version %d", version)
	}

	codeSize := int(binary.BigEndian.Uint32(image[2:]))
	dataSize := int(binary.BigEndian.Uint32(image[6:]))
	callStackSize := int(binary.BigEndian.Uint32(image[10:]))
	userStackSize := int(binary.BigEndian.Uint32(image[14:]))

	if len(image) != programHeaderSize+codeSize+dataSize+callStackSize+userStackSize {
		return nil, fmt.Errorf("program image size %d does not match declared segment sizes", len(image))
	}

	code := make([]byte, codeSize)
	copy(code, image[programHeaderSize:])

	ms, err := NewMachineState(api, creationBlockHeight, code, dataSize, callStackSize, userStackSize)
	if err != nil {
		return nil, err
	}
	copy(ms.data, image[programHeaderSize+codeSize:])

	return ms, nil
}
