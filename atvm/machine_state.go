package atvm

import (
	"encoding/binary"
	"fmt"

	"github.com/entropyio/go-atvm/config"
)

// Flag bit positions within the snapshot flags bitfield.
const (
	flagRunning = 1 << iota
	flagSleeping
	flagStopped
	flagFinished
	flagFrozen
	flagHadFatalError
	flagFirstOpCodeAfterSleeping
	flagSleepUntilSet
)

const snapshotHeaderSize = 2 + 2 + // version, flags
	4*4 + // segment sizes
	4 + 4 + 4 + 4 + // pc, onStop, onError, sleepUntil
	4 + 4 + 4 + // current height, creation height, steps
	8 + 8 + 8 + // balances
	4 + 4 + // stack positions
	config.ABRegisterSize*2

// onErrorUnset is the on-error-address sentinel: no handler installed.
const onErrorUnset = int32(-1)

// MachineState holds the entire observable state of one automated
// transaction: the four segments, program counter, A/B registers, flags,
// checkpoints and counters. All mutation goes through checked accessors or
// opcode handlers; the host reaches it only via the API callback surface.
type MachineState struct {
	api API

	code      []byte // read-only during execution
	data      []byte
	callStack []byte // grows downward, 4-byte entries
	userStack []byte // grows downward, 8-byte entries

	// pc is the byte position immediately before the opcode currently being
	// decoded; codePos is the live fetch cursor.
	pc      int
	codePos int

	callStackPos int
	userStackPos int

	a [config.ABRegisterSize]byte
	b [config.ABRegisterSize]byte

	running                    bool
	sleeping                   bool
	stopped                    bool
	finished                   bool
	frozen                     bool
	hadFatalError              bool
	isFirstOpCodeAfterSleeping bool

	onStopAddress    int32
	onErrorAddress   int32
	sleepUntilHeight int32
	sleepUntilSet    bool

	currentBlockHeight  int32
	creationBlockHeight int32
	steps               int

	currentBalance  int64
	previousBalance int64
	frozenBalance   int64
}

// NewMachineState creates a machine around the given code image with zeroed
// data and empty stacks. Segment sizes must be multiples of the cell size.
func NewMachineState(api API, creationBlockHeight int32, code []byte, dataSize, callStackSize, userStackSize int) (*MachineState, error) {
	for _, size := range []int{len(code), dataSize, callStackSize, userStackSize} {
		if size < 0 || size%config.ValueSize != 0 {
			return nil, fmt.Errorf("segment size %d is not a multiple of %d", size, config.ValueSize)
		}
	}

	ms := &MachineState{
		api:                 api,
		code:                code,
		data:                make([]byte, dataSize),
		callStack:           make([]byte, callStackSize),
		userStack:           make([]byte, userStackSize),
		callStackPos:        callStackSize,
		userStackPos:        userStackSize,
		onErrorAddress:      onErrorUnset,
		creationBlockHeight: creationBlockHeight,
		currentBlockHeight:  api.GetCurrentBlockHeight(),
		running:             true,
	}
	ms.currentBalance = api.GetCurrentBalance(ms)
	ms.previousBalance = ms.currentBalance

	return ms, nil
}

// CodeSize returns the code segment size in bytes.
func (ms *MachineState) CodeSize() int { return len(ms.code) }

// DataSize returns the data segment size in bytes.
func (ms *MachineState) DataSize() int { return len(ms.data) }

// IsRunning reports whether the machine has not yet reached final settlement.
func (ms *MachineState) IsRunning() bool { return ms.running }

// IsSleeping reports whether the machine is waiting for a block height.
func (ms *MachineState) IsSleeping() bool { return ms.sleeping }

// IsStopped reports whether the machine stopped voluntarily this round.
func (ms *MachineState) IsStopped() bool { return ms.stopped }

// IsFinished reports whether the machine has permanently stopped.
func (ms *MachineState) IsFinished() bool { return ms.finished }

// IsFrozen reports whether the machine's balance fell below the minimum
// step fee.
func (ms *MachineState) IsFrozen() bool { return ms.frozen }

// HadFatalError reports whether the machine terminated on an unhandled fault.
func (ms *MachineState) HadFatalError() bool { return ms.hadFatalError }

// IsFirstOpCodeAfterSleeping reports whether the opcode currently executing
// is the first one since the machine woke up. Function codes consult this to
// implement two-phase operations that need a fresh block's entropy.
func (ms *MachineState) IsFirstOpCodeAfterSleeping() bool {
	return ms.isFirstOpCodeAfterSleeping
}

// GetProgramCounter returns the byte position immediately before the opcode
// currently being decoded.
func (ms *MachineState) GetProgramCounter() int { return ms.pc }

// GetOnStopAddress returns the PC resume point used by STZ_DAT.
func (ms *MachineState) GetOnStopAddress() int32 { return ms.onStopAddress }

// SetOnStopAddress installs the PC resume point used by STZ_DAT.
func (ms *MachineState) SetOnStopAddress(address int32) { ms.onStopAddress = address }

// GetOnErrorAddress returns the fault handler address, or -1 when unset.
func (ms *MachineState) GetOnErrorAddress() int32 { return ms.onErrorAddress }

// SetOnErrorAddress installs the fault handler address. Pass -1 to clear.
func (ms *MachineState) SetOnErrorAddress(address int32) { ms.onErrorAddress = address }

// GetSleepUntilHeight returns the block height at which sleeping clears.
func (ms *MachineState) GetSleepUntilHeight() int32 { return ms.sleepUntilHeight }

// SetSleepUntilHeight sets the block height at which sleeping clears.
func (ms *MachineState) SetSleepUntilHeight(height int32) {
	ms.sleepUntilHeight = height
	ms.sleepUntilSet = true
}

// SetIsSleeping marks the machine as sleeping. Hosts use this from two-phase
// function codes.
func (ms *MachineState) SetIsSleeping(sleeping bool) { ms.sleeping = sleeping }

// SetIsStopped marks the machine as stopped for this round.
func (ms *MachineState) SetIsStopped(stopped bool) { ms.stopped = stopped }

// SetIsFinished marks the machine as permanently stopped.
func (ms *MachineState) SetIsFinished(finished bool) { ms.finished = finished }

// SetIsFrozen marks the machine as frozen.
func (ms *MachineState) SetIsFrozen(frozen bool) { ms.frozen = frozen }

// GetFrozenBalance returns the balance recorded when the machine froze.
func (ms *MachineState) GetFrozenBalance() int64 { return ms.frozenBalance }

// GetCurrentBlockHeight returns the block height of the round in progress.
func (ms *MachineState) GetCurrentBlockHeight() int32 { return ms.currentBlockHeight }

// GetCreationBlockHeight returns the height the machine was created at.
func (ms *MachineState) GetCreationBlockHeight() int32 { return ms.creationBlockHeight }

// GetSteps returns the steps consumed so far this round.
func (ms *MachineState) GetSteps() int { return ms.steps }

// GetCurrentBalance returns the balance as tracked during execution,
// reduced by payments the machine has already emitted this round.
func (ms *MachineState) GetCurrentBalance() int64 { return ms.currentBalance }

// SetCurrentBalance overrides the tracked balance. Intended for hosts
// seeding test scenarios.
func (ms *MachineState) SetCurrentBalance(balance int64) { ms.currentBalance = balance }

// GetPreviousBalance returns the balance recorded at the start of the round.
func (ms *MachineState) GetPreviousBalance() int64 { return ms.previousBalance }

// Register cell accessors. Cell 1 holds the register's first eight bytes and
// is the most significant limb in 256-bit comparisons.

func (ms *MachineState) GetA1() int64 { return int64(binary.BigEndian.Uint64(ms.a[0:])) }
func (ms *MachineState) GetA2() int64 { return int64(binary.BigEndian.Uint64(ms.a[8:])) }
func (ms *MachineState) GetA3() int64 { return int64(binary.BigEndian.Uint64(ms.a[16:])) }
func (ms *MachineState) GetA4() int64 { return int64(binary.BigEndian.Uint64(ms.a[24:])) }

func (ms *MachineState) GetB1() int64 { return int64(binary.BigEndian.Uint64(ms.b[0:])) }
func (ms *MachineState) GetB2() int64 { return int64(binary.BigEndian.Uint64(ms.b[8:])) }
func (ms *MachineState) GetB3() int64 { return int64(binary.BigEndian.Uint64(ms.b[16:])) }
func (ms *MachineState) GetB4() int64 { return int64(binary.BigEndian.Uint64(ms.b[24:])) }

func (ms *MachineState) SetA1(v int64) { binary.BigEndian.PutUint64(ms.a[0:], uint64(v)) }
func (ms *MachineState) SetA2(v int64) { binary.BigEndian.PutUint64(ms.a[8:], uint64(v)) }
func (ms *MachineState) SetA3(v int64) { binary.BigEndian.PutUint64(ms.a[16:], uint64(v)) }
func (ms *MachineState) SetA4(v int64) { binary.BigEndian.PutUint64(ms.a[24:], uint64(v)) }

func (ms *MachineState) SetB1(v int64) { binary.BigEndian.PutUint64(ms.b[0:], uint64(v)) }
func (ms *MachineState) SetB2(v int64) { binary.BigEndian.PutUint64(ms.b[8:], uint64(v)) }
func (ms *MachineState) SetB3(v int64) { binary.BigEndian.PutUint64(ms.b[16:], uint64(v)) }
func (ms *MachineState) SetB4(v int64) { binary.BigEndian.PutUint64(ms.b[24:], uint64(v)) }

// GetABytes returns a copy of the A register.
func (ms *MachineState) GetABytes() []byte {
	out := make([]byte, config.ABRegisterSize)
	copy(out, ms.a[:])
	return out
}

// GetBBytes returns a copy of the B register.
func (ms *MachineState) GetBBytes() []byte {
	out := make([]byte, config.ABRegisterSize)
	copy(out, ms.b[:])
	return out
}

// SetABytes loads the A register from a 32-byte slice.
func (ms *MachineState) SetABytes(value []byte) error {
	if len(value) != config.ABRegisterSize {
		return fmt.Errorf("A register requires %d bytes, got %d", config.ABRegisterSize, len(value))
	}
	copy(ms.a[:], value)
	return nil
}

// SetBBytes loads the B register from a 32-byte slice.
func (ms *MachineState) SetBBytes(value []byte) error {
	if len(value) != config.ABRegisterSize {
		return fmt.Errorf("B register requires %d bytes, got %d", config.ABRegisterSize, len(value))
	}
	copy(ms.b[:], value)
	return nil
}

// GetDataLong returns the 64-bit value at the given cell index.
func (ms *MachineState) GetDataLong(index int32) (int64, error) {
	offset, err := ms.cellByteOffset(index, config.ValueSize)
	if err != nil {
		return 0, err
	}
	return ms.dataGet(offset), nil
}

// PutDataLong stores a 64-bit value at the given cell index.
func (ms *MachineState) PutDataLong(index int32, value int64) error {
	offset, err := ms.cellByteOffset(index, config.ValueSize)
	if err != nil {
		return err
	}
	ms.dataPut(offset, value)
	return nil
}

// GetDataBytes returns a copy of length bytes starting at the given cell
// index.
func (ms *MachineState) GetDataBytes(index int32, length int) ([]byte, error) {
	offset, err := ms.cellByteOffset(index, length)
	if err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, ms.data[offset:])
	return out, nil
}

// PutDataBytes stores bytes starting at the given cell index.
func (ms *MachineState) PutDataBytes(index int32, value []byte) error {
	offset, err := ms.cellByteOffset(index, len(value))
	if err != nil {
		return err
	}
	copy(ms.data[offset:], value)
	return nil
}

func (ms *MachineState) cellByteOffset(index int32, length int) (int32, error) {
	offset := int64(index) * config.ValueSize
	if index < 0 || offset+int64(length) > int64(len(ms.data)) {
		return 0, invalidAddressError("data address %08x (+%d bytes) out of bounds", index, length)
	}
	return int32(offset), nil
}

// Serialize produces the canonical snapshot of the machine state: a fixed
// header followed by the data segment, user stack and call stack bytes. The
// code segment is stored once at creation and is not part of snapshots.
func (ms *MachineState) Serialize() []byte {
	out := make([]byte, snapshotHeaderSize+len(ms.data)+len(ms.userStack)+len(ms.callStack))

	var flags uint16
	setFlag := func(on bool, bit uint16) {
		if on {
			flags |= bit
		}
	}
	setFlag(ms.running, flagRunning)
	setFlag(ms.sleeping, flagSleeping)
	setFlag(ms.stopped, flagStopped)
	setFlag(ms.finished, flagFinished)
	setFlag(ms.frozen, flagFrozen)
	setFlag(ms.hadFatalError, flagHadFatalError)
	setFlag(ms.isFirstOpCodeAfterSleeping, flagFirstOpCodeAfterSleeping)
	setFlag(ms.sleepUntilSet, flagSleepUntilSet)

	pos := 0
	putU16 := func(v uint16) {
		binary.BigEndian.PutUint16(out[pos:], v)
		pos += 2
	}
	putU32 := func(v uint32) {
		binary.BigEndian.PutUint32(out[pos:], v)
		pos += 4
	}
	putU64 := func(v uint64) {
		binary.BigEndian.PutUint64(out[pos:], v)
		pos += 8
	}

	putU16(config.HeaderVersion)
	putU16(flags)
	putU32(uint32(len(ms.code)))
	putU32(uint32(len(ms.data)))
	putU32(uint32(len(ms.callStack)))
	putU32(uint32(len(ms.userStack)))
	putU32(uint32(ms.codePos))
	putU32(uint32(ms.onStopAddress))
	putU32(uint32(ms.onErrorAddress))
	putU32(uint32(ms.sleepUntilHeight))
	putU32(uint32(ms.currentBlockHeight))
	putU32(uint32(ms.creationBlockHeight))
	putU32(uint32(ms.steps))
	putU64(uint64(ms.currentBalance))
	putU64(uint64(ms.previousBalance))
	putU64(uint64(ms.frozenBalance))
	putU32(uint32(ms.callStackPos))
	putU32(uint32(ms.userStackPos))
	pos += copy(out[pos:], ms.a[:])
	pos += copy(out[pos:], ms.b[:])

	pos += copy(out[pos:], ms.data)
	pos += copy(out[pos:], ms.userStack)
	copy(out[pos:], ms.callStack)

	return out
}

// Deserialize reconstructs a machine from a snapshot produced by Serialize
// and the code image stored at creation.
func Deserialize(api API, code []byte, snapshot []byte) (*MachineState, error) {
	if len(snapshot) < snapshotHeaderSize {
		return nil, fmt.Errorf("snapshot too short: %d bytes", len(snapshot))
	}

	pos := 0
	getU16 := func() uint16 {
		v := binary.BigEndian.Uint16(snapshot[pos:])
		pos += 2
		return v
	}
	getU32 := func() uint32 {
		v := binary.BigEndian.Uint32(snapshot[pos:])
		pos += 4
		return v
	}
	getU64 := func() uint64 {
		v := binary.BigEndian.Uint64(snapshot[pos:])
		pos += 8
		return v
	}

	version := getU16()
	if version != config.HeaderVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", version)
	}
	flags := getU16()

	codeSize := int(getU32())
	dataSize := int(getU32())
	callStackSize := int(getU32())
	userStackSize := int(getU32())

	if codeSize != len(code) {
		return nil, fmt.Errorf("snapshot code size %d does not match code image size %d", codeSize, len(code))
	}
	if len(snapshot) != snapshotHeaderSize+dataSize+userStackSize+callStackSize {
		return nil, fmt.Errorf("snapshot size %d does not match declared segment sizes", len(snapshot))
	}

	ms := &MachineState{
		api:       api,
		code:      code,
		data:      make([]byte, dataSize),
		callStack: make([]byte, callStackSize),
		userStack: make([]byte, userStackSize),
	}

	ms.codePos = int(getU32())
	ms.onStopAddress = int32(getU32())
	ms.onErrorAddress = int32(getU32())
	ms.sleepUntilHeight = int32(getU32())
	ms.currentBlockHeight = int32(getU32())
	ms.creationBlockHeight = int32(getU32())
	ms.steps = int(getU32())
	ms.currentBalance = int64(getU64())
	ms.previousBalance = int64(getU64())
	ms.frozenBalance = int64(getU64())
	ms.callStackPos = int(getU32())
	ms.userStackPos = int(getU32())
	pos += copy(ms.a[:], snapshot[pos:])
	pos += copy(ms.b[:], snapshot[pos:])

	pos += copy(ms.data, snapshot[pos:])
	pos += copy(ms.userStack, snapshot[pos:])
	copy(ms.callStack, snapshot[pos:])

	ms.running = flags&flagRunning != 0
	ms.sleeping = flags&flagSleeping != 0
	ms.stopped = flags&flagStopped != 0
	ms.finished = flags&flagFinished != 0
	ms.frozen = flags&flagFrozen != 0
	ms.hadFatalError = flags&flagHadFatalError != 0
	ms.isFirstOpCodeAfterSleeping = flags&flagFirstOpCodeAfterSleeping != 0
	ms.sleepUntilSet = flags&flagSleepUntilSet != 0

	if ms.callStackPos < 0 || ms.callStackPos > callStackSize || ms.callStackPos%config.AddressSize != 0 {
		return nil, fmt.Errorf("snapshot call stack position %d out of range", ms.callStackPos)
	}
	if ms.userStackPos < 0 || ms.userStackPos > userStackSize || ms.userStackPos%config.ValueSize != 0 {
		return nil, fmt.Errorf("snapshot user stack position %d out of range", ms.userStackPos)
	}

	return ms, nil
}
