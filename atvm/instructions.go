package atvm

import "github.com/entropyio/go-atvm/config"

const maxShift = config.ValueSize * 8

func opNop(ms *MachineState, args []int64) error {
	return nil
}

func opSetVal(ms *MachineState, args []int64) error {
	ms.dataPut(int32(args[0]), args[1])
	return nil
}

func opSetDat(ms *MachineState, args []int64) error {
	ms.dataPut(int32(args[0]), ms.dataGet(int32(args[1])))
	return nil
}

func opClrDat(ms *MachineState, args []int64) error {
	ms.dataPut(int32(args[0]), 0)
	return nil
}

func opIncDat(ms *MachineState, args []int64) error {
	address := int32(args[0])
	ms.dataPut(address, ms.dataGet(address)+1)
	return nil
}

func opDecDat(ms *MachineState, args []int64) error {
	address := int32(args[0])
	ms.dataPut(address, ms.dataGet(address)-1)
	return nil
}

// executeDataOperation is the common code for the @a = @a ⊙ $b family.
// Overflow wraps silently in two's complement.
func executeDataOperation(ms *MachineState, operator func(a, b int64) int64, args []int64) {
	address1 := int32(args[0])
	address2 := int32(args[1])
	ms.dataPut(address1, operator(ms.dataGet(address1), ms.dataGet(address2)))
}

// executeValueOperation is the common code for the @a = @a ⊙ value family.
func executeValueOperation(ms *MachineState, operator func(a, b int64) int64, args []int64) {
	address := int32(args[0])
	ms.dataPut(address, operator(ms.dataGet(address), args[1]))
}

func opAddDat(ms *MachineState, args []int64) error {
	executeDataOperation(ms, func(a, b int64) int64 { return a + b }, args)
	return nil
}

func opSubDat(ms *MachineState, args []int64) error {
	executeDataOperation(ms, func(a, b int64) int64 { return a - b }, args)
	return nil
}

func opMulDat(ms *MachineState, args []int64) error {
	executeDataOperation(ms, func(a, b int64) int64 { return a * b }, args)
	return nil
}

func opDivDat(ms *MachineState, args []int64) error {
	if ms.dataGet(int32(args[1])) == 0 {
		return illegalOperationError("divide by zero")
	}
	executeDataOperation(ms, func(a, b int64) int64 { return a / b }, args)
	return nil
}

func opModDat(ms *MachineState, args []int64) error {
	if ms.dataGet(int32(args[1])) == 0 {
		return illegalOperationError("divide by zero")
	}
	executeDataOperation(ms, func(a, b int64) int64 { return a % b }, args)
	return nil
}

func opBorDat(ms *MachineState, args []int64) error {
	executeDataOperation(ms, func(a, b int64) int64 { return a | b }, args)
	return nil
}

func opAndDat(ms *MachineState, args []int64) error {
	executeDataOperation(ms, func(a, b int64) int64 { return a & b }, args)
	return nil
}

func opXorDat(ms *MachineState, args []int64) error {
	executeDataOperation(ms, func(a, b int64) int64 { return a ^ b }, args)
	return nil
}

func opNotDat(ms *MachineState, args []int64) error {
	address := int32(args[0])
	ms.dataPut(address, ^ms.dataGet(address))
	return nil
}

// Shift amounts of 64 bits or more yield 0, simulating every bit being
// shifted out of existence. Right shifts are logical.

func opShlDat(ms *MachineState, args []int64) error {
	executeDataOperation(ms, shiftLeft, args)
	return nil
}

func opShrDat(ms *MachineState, args []int64) error {
	executeDataOperation(ms, shiftRight, args)
	return nil
}

func opShlVal(ms *MachineState, args []int64) error {
	executeValueOperation(ms, shiftLeft, args)
	return nil
}

func opShrVal(ms *MachineState, args []int64) error {
	executeValueOperation(ms, shiftRight, args)
	return nil
}

func shiftLeft(a, b int64) int64 {
	if uint64(b) >= maxShift {
		return 0
	}
	return a << uint64(b)
}

func shiftRight(a, b int64) int64 {
	if uint64(b) >= maxShift {
		return 0
	}
	return int64(uint64(a) >> uint64(b))
}

func opAddVal(ms *MachineState, args []int64) error {
	executeValueOperation(ms, func(a, b int64) int64 { return a + b }, args)
	return nil
}

func opSubVal(ms *MachineState, args []int64) error {
	executeValueOperation(ms, func(a, b int64) int64 { return a - b }, args)
	return nil
}

func opMulVal(ms *MachineState, args []int64) error {
	executeValueOperation(ms, func(a, b int64) int64 { return a * b }, args)
	return nil
}

func opDivVal(ms *MachineState, args []int64) error {
	if args[1] == 0 {
		return illegalOperationError("divide by zero")
	}
	executeValueOperation(ms, func(a, b int64) int64 { return a / b }, args)
	return nil
}

func opSetInd(ms *MachineState, args []int64) error {
	address1 := int32(args[0])
	address2 := int32(args[1])

	address3 := ms.dataGet(address2) * config.ValueSize
	if err := ms.checkIndirectByteOffset(address3); err != nil {
		return err
	}

	ms.dataPut(address1, ms.dataGet(int32(address3)))
	return nil
}

func opSetIdx(ms *MachineState, args []int64) error {
	address1 := int32(args[0])
	address2 := int32(args[1])
	address3 := int32(args[2])

	baseAddress := ms.dataGet(address2) * config.ValueSize
	offset := ms.dataGet(address3) * config.ValueSize

	newAddress := baseAddress + offset
	if err := ms.checkIndirectByteOffset(newAddress); err != nil {
		return err
	}

	ms.dataPut(address1, ms.dataGet(int32(newAddress)))
	return nil
}

func opIndDat(ms *MachineState, args []int64) error {
	address1 := int32(args[0])
	address2 := int32(args[1])

	address3 := ms.dataGet(address1) * config.ValueSize
	if err := ms.checkIndirectByteOffset(address3); err != nil {
		return err
	}

	ms.dataPut(int32(address3), ms.dataGet(address2))
	return nil
}

func opIdxDat(ms *MachineState, args []int64) error {
	address1 := int32(args[0])
	address2 := int32(args[1])
	address3 := int32(args[2])

	baseAddress := ms.dataGet(address1) * config.ValueSize
	offset := ms.dataGet(address2) * config.ValueSize

	newAddress := baseAddress + offset
	if err := ms.checkIndirectByteOffset(newAddress); err != nil {
		return err
	}

	ms.dataPut(int32(newAddress), ms.dataGet(address3))
	return nil
}

func opPshDat(ms *MachineState, args []int64) error {
	value := ms.dataGet(int32(args[0]))

	newPosition := ms.userStackPos - config.ValueSize
	if newPosition < 0 {
		return stackBoundsError("no room on user stack to push data")
	}
	ms.userStackPos = newPosition
	putLong(ms.userStack[newPosition:], value)
	return nil
}

func opPopDat(ms *MachineState, args []int64) error {
	if ms.userStackPos+config.ValueSize > len(ms.userStack) {
		return stackBoundsError("empty user stack from which to pop data")
	}
	value := getLong(ms.userStack[ms.userStackPos:])
	// Clear old stack entry
	putLong(ms.userStack[ms.userStackPos:], 0)
	ms.userStackPos += config.ValueSize

	ms.dataPut(int32(args[0]), value)
	return nil
}

func opJmpSub(ms *MachineState, args []int64) error {
	address := int32(args[0])
	if err := ms.checkCodeAddress(address); err != nil {
		return err
	}

	newPosition := ms.callStackPos - config.AddressSize
	if newPosition < 0 {
		return stackBoundsError("no room on call stack to call subroutine")
	}
	ms.callStackPos = newPosition
	putInt(ms.callStack[newPosition:], int32(ms.codePos))

	ms.codePos = int(address)
	return nil
}

func opRetSub(ms *MachineState, args []int64) error {
	if ms.callStackPos+config.AddressSize > len(ms.callStack) {
		return stackBoundsError("empty call stack missing return address from subroutine")
	}
	returnAddress := getInt(ms.callStack[ms.callStackPos:])
	// Clear old stack entry
	putInt(ms.callStack[ms.callStackPos:], 0)
	ms.callStackPos += config.AddressSize

	ms.codePos = int(returnAddress)
	return nil
}

func opJmpAdr(ms *MachineState, args []int64) error {
	address := int32(args[0])
	if err := ms.checkCodeAddress(address); err != nil {
		return err
	}
	ms.codePos = int(address)
	return nil
}

// calculateBranchTarget resolves a signed byte offset against the pre-opcode
// PC, faulting on out-of-bounds targets whether or not the branch is taken.
func (ms *MachineState) calculateBranchTarget(offset int64) (int, error) {
	branchTarget := ms.pc + int(offset)
	if branchTarget < 0 || branchTarget >= len(ms.code) {
		return 0, invalidAddressError("code target PC(%04x) %+02x = %04x out of bounds: 0x0000 to 0x%04x",
			ms.pc, offset, branchTarget, len(ms.code)-1)
	}
	return branchTarget, nil
}

// executeBranchConditional is the common code for the two-operand branches.
func executeBranchConditional(ms *MachineState, comparator func(a, b int64) bool, args []int64) error {
	branchTarget, err := ms.calculateBranchTarget(args[2])
	if err != nil {
		return err
	}

	value1 := ms.dataGet(int32(args[0]))
	value2 := ms.dataGet(int32(args[1]))

	if comparator(value1, value2) {
		ms.codePos = branchTarget
	}
	return nil
}

func opBzrDat(ms *MachineState, args []int64) error {
	branchTarget, err := ms.calculateBranchTarget(args[1])
	if err != nil {
		return err
	}
	if ms.dataGet(int32(args[0])) == 0 {
		ms.codePos = branchTarget
	}
	return nil
}

func opBnzDat(ms *MachineState, args []int64) error {
	branchTarget, err := ms.calculateBranchTarget(args[1])
	if err != nil {
		return err
	}
	if ms.dataGet(int32(args[0])) != 0 {
		ms.codePos = branchTarget
	}
	return nil
}

func opBgtDat(ms *MachineState, args []int64) error {
	return executeBranchConditional(ms, func(a, b int64) bool { return a > b }, args)
}

func opBltDat(ms *MachineState, args []int64) error {
	return executeBranchConditional(ms, func(a, b int64) bool { return a < b }, args)
}

func opBgeDat(ms *MachineState, args []int64) error {
	return executeBranchConditional(ms, func(a, b int64) bool { return a >= b }, args)
}

func opBleDat(ms *MachineState, args []int64) error {
	return executeBranchConditional(ms, func(a, b int64) bool { return a <= b }, args)
}

func opBeqDat(ms *MachineState, args []int64) error {
	return executeBranchConditional(ms, func(a, b int64) bool { return a == b }, args)
}

func opBneDat(ms *MachineState, args []int64) error {
	return executeBranchConditional(ms, func(a, b int64) bool { return a != b }, args)
}

func opSlpDat(ms *MachineState, args []int64) error {
	ms.SetSleepUntilHeight(int32(ms.dataGet(int32(args[0]))))
	ms.sleeping = true
	return nil
}

func opSlpVal(ms *MachineState, args []int64) error {
	ms.SetSleepUntilHeight(ms.currentBlockHeight + int32(args[0]))
	ms.sleeping = true
	return nil
}

func opSlpImd(ms *MachineState, args []int64) error {
	ms.SetSleepUntilHeight(ms.currentBlockHeight + 1)
	ms.sleeping = true
	return nil
}

func opFizDat(ms *MachineState, args []int64) error {
	if ms.dataGet(int32(args[0])) == 0 {
		ms.finished = true
	}
	return nil
}

func opStzDat(ms *MachineState, args []int64) error {
	if ms.dataGet(int32(args[0])) == 0 {
		ms.codePos = int(ms.onStopAddress)
		ms.stopped = true
	}
	return nil
}

func opFinImd(ms *MachineState, args []int64) error {
	ms.finished = true
	return nil
}

func opStpImd(ms *MachineState, args []int64) error {
	ms.stopped = true
	return nil
}

func opErrAdr(ms *MachineState, args []int64) error {
	address := int32(args[0])
	if address == onErrorUnset {
		ms.onErrorAddress = onErrorUnset
		return nil
	}
	if err := ms.checkCodeAddress(address); err != nil {
		return err
	}
	ms.onErrorAddress = address
	return nil
}

func opSetPcs(ms *MachineState, args []int64) error {
	ms.onStopAddress = int32(ms.codePos)
	return nil
}

func (ms *MachineState) checkCodeAddress(address int32) error {
	if address < 0 || int(address) >= len(ms.code) {
		return invalidAddressError("code address %04x out of bounds: 0x0000 to 0x%04x", address, len(ms.code)-1)
	}
	return nil
}

func opExtFun(ms *MachineState, args []int64) error {
	raw := uint16(args[0])
	fd := &FunctionData{}
	return ms.callFunction(raw, fd, 0)
}

func opExtFunDat(ms *MachineState, args []int64) error {
	raw := uint16(args[0])
	fd := &FunctionData{Value1: ms.dataGet(int32(args[1]))}
	return ms.callFunction(raw, fd, 1)
}

func opExtFunDat2(ms *MachineState, args []int64) error {
	raw := uint16(args[0])
	fd := &FunctionData{Value1: ms.dataGet(int32(args[1])), Value2: ms.dataGet(int32(args[2]))}
	return ms.callFunction(raw, fd, 2)
}

func opExtFunVal(ms *MachineState, args []int64) error {
	raw := uint16(args[0])
	fd := &FunctionData{Value1: args[1]}
	return ms.callFunction(raw, fd, 1)
}

func opExtFunRet(ms *MachineState, args []int64) error {
	raw := uint16(args[0])
	fd := &FunctionData{ReturnValueExpected: true}
	if err := ms.callFunction(raw, fd, 0); err != nil {
		return err
	}
	return ms.storeReturnValue(raw, fd, int32(args[1]))
}

func opExtFunRetDat(ms *MachineState, args []int64) error {
	raw := uint16(args[0])
	fd := &FunctionData{ReturnValueExpected: true, Value1: ms.dataGet(int32(args[2]))}
	if err := ms.callFunction(raw, fd, 1); err != nil {
		return err
	}
	return ms.storeReturnValue(raw, fd, int32(args[1]))
}

func opExtFunRetDat2(ms *MachineState, args []int64) error {
	raw := uint16(args[0])
	fd := &FunctionData{ReturnValueExpected: true, Value1: ms.dataGet(int32(args[2])), Value2: ms.dataGet(int32(args[3]))}
	if err := ms.callFunction(raw, fd, 2); err != nil {
		return err
	}
	return ms.storeReturnValue(raw, fd, int32(args[1]))
}

func (ms *MachineState) storeReturnValue(raw uint16, fd *FunctionData, destAddress int32) error {
	if fd.ReturnValue == nil {
		return illegalFunctionCodeError("function 0x%04x failed to return a value as expected", raw)
	}
	ms.dataPut(destAddress, *fd.ReturnValue)
	return nil
}
