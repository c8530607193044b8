package atvm

// FunctionCode is the 16-bit syscall selector used by the EXT_FUN opcode
// family. Codes below 0x0100 are pure register/compare/hash operations,
// 0x01xx query the surrounding chain, 0x02xx act on balances, and
// 0x0500-0x05ff is delegated to the host's platform-specific hooks.
type FunctionCode uint16

const (
	// ECHO logs its argument.
	ECHO FunctionCode = 0x0001

	GET_A1 FunctionCode = 0x0010
	GET_A2 FunctionCode = 0x0011
	GET_A3 FunctionCode = 0x0012
	GET_A4 FunctionCode = 0x0013
	GET_B1 FunctionCode = 0x0014
	GET_B2 FunctionCode = 0x0015
	GET_B3 FunctionCode = 0x0016
	GET_B4 FunctionCode = 0x0017

	SET_A1 FunctionCode = 0x0020
	SET_A2 FunctionCode = 0x0021
	SET_A3 FunctionCode = 0x0022
	SET_A4 FunctionCode = 0x0023
	SET_B1 FunctionCode = 0x0024
	SET_B2 FunctionCode = 0x0025
	SET_B3 FunctionCode = 0x0026
	SET_B4 FunctionCode = 0x0027

	// SET_A_DAT loads A from the 32 bytes starting at the given cell index.
	SET_A_DAT FunctionCode = 0x0030
	SET_B_DAT FunctionCode = 0x0031
	// GET_A_DAT stores A into the 32 bytes starting at the given cell index.
	GET_A_DAT FunctionCode = 0x0032
	GET_B_DAT FunctionCode = 0x0033
	// SET_A_IND is SET_A_DAT for use with EXT_FUN_DAT: the fetched cell
	// value names the target cell index.
	SET_A_IND FunctionCode = 0x0034
	SET_B_IND FunctionCode = 0x0035
	GET_A_IND FunctionCode = 0x0036
	GET_B_IND FunctionCode = 0x0037

	CLEAR_A       FunctionCode = 0x0040
	CLEAR_B       FunctionCode = 0x0041
	CLEAR_A_AND_B FunctionCode = 0x0042
	COPY_A_FROM_B FunctionCode = 0x0043
	COPY_B_FROM_A FunctionCode = 0x0044
	SWAP_A_AND_B  FunctionCode = 0x0045

	CHECK_A_IS_ZERO  FunctionCode = 0x0046
	CHECK_B_IS_ZERO  FunctionCode = 0x0047
	CHECK_A_EQUALS_B FunctionCode = 0x0048

	// UNSIGNED_COMPARE_A_WITH_B compares A and B as 256-bit integers with
	// cell 1 as the most significant limb, returning -1, 0 or +1.
	UNSIGNED_COMPARE_A_WITH_B FunctionCode = 0x0049
	// SIGNED_COMPARE_A_WITH_B is as above with cell 1's top bit as sign.
	SIGNED_COMPARE_A_WITH_B FunctionCode = 0x004a

	OR_A_WITH_B  FunctionCode = 0x0050
	OR_B_WITH_A  FunctionCode = 0x0051
	AND_A_WITH_B FunctionCode = 0x0052
	AND_B_WITH_A FunctionCode = 0x0053
	XOR_A_WITH_B FunctionCode = 0x0054
	XOR_B_WITH_A FunctionCode = 0x0055
	// ADD_A_TO_B adds A into B as 256-bit integers, wrapping.
	ADD_A_TO_B FunctionCode = 0x0056
	ADD_B_TO_A FunctionCode = 0x0057

	// MD5_A_TO_B writes the MD5 digest of A into B's first 16 bytes.
	MD5_A_TO_B            FunctionCode = 0x0060
	CHECK_MD5_A_WITH_B    FunctionCode = 0x0061
	RMD160_A_TO_B         FunctionCode = 0x0062
	CHECK_RMD160_A_WITH_B FunctionCode = 0x0063
	SHA256_A_TO_B         FunctionCode = 0x0064
	CHECK_SHA256_A_WITH_B FunctionCode = 0x0065

	GET_BLOCK_TIMESTAMP             FunctionCode = 0x0100
	GET_CREATION_TIMESTAMP          FunctionCode = 0x0101
	GET_PREVIOUS_BLOCK_TIMESTAMP    FunctionCode = 0x0102
	PUT_PREVIOUS_BLOCK_HASH_INTO_A  FunctionCode = 0x0103
	PUT_TX_AFTER_TIMESTAMP_INTO_A   FunctionCode = 0x0104
	GET_TYPE_FROM_TX_IN_A           FunctionCode = 0x0105
	GET_AMOUNT_FROM_TX_IN_A         FunctionCode = 0x0106
	GET_TIMESTAMP_FROM_TX_IN_A      FunctionCode = 0x0107
	GENERATE_RANDOM_USING_TX_IN_A   FunctionCode = 0x0108
	PUT_MESSAGE_FROM_TX_IN_A_INTO_B FunctionCode = 0x0109
	PUT_ADDRESS_FROM_TX_IN_A_INTO_B FunctionCode = 0x010a
	PUT_CREATOR_INTO_B              FunctionCode = 0x010b
	ADD_MINUTES_TO_TIMESTAMP        FunctionCode = 0x010c

	GET_CURRENT_BALANCE       FunctionCode = 0x0200
	GET_PREVIOUS_BALANCE      FunctionCode = 0x0201
	PAY_TO_ADDRESS_IN_B       FunctionCode = 0x0202
	PAY_ALL_TO_ADDRESS_IN_B   FunctionCode = 0x0203
	MESSAGE_A_TO_ADDRESS_IN_B FunctionCode = 0x0204
)

// Platform-specific function codes are delegated to the host.
const (
	PlatformFunctionCodeFirst = 0x0500
	PlatformFunctionCodeLast  = 0x05ff
)

// FunctionData carries a function call's decoded arguments and, for calls
// declared to return a value, the slot the implementation must fill.
type FunctionData struct {
	Value1              int64
	Value2              int64
	ReturnValueExpected bool
	ReturnValue         *int64
}

// SetReturnValue records the call's result.
func (fd *FunctionData) SetReturnValue(value int64) {
	fd.ReturnValue = &value
}

type functionEntry struct {
	name         string
	paramCount   int
	returnsValue bool
	execute      func(fd *FunctionData, ms *MachineState) error
}

// IsPlatformSpecific reports whether a raw function code falls in the range
// delegated to the host's platform hooks.
func IsPlatformSpecific(raw uint16) bool {
	return raw >= PlatformFunctionCodeFirst && raw <= PlatformFunctionCodeLast
}

// FunctionCodeName returns the mnemonic for a defined function code.
func FunctionCodeName(raw uint16) (string, bool) {
	entry := functionTable[FunctionCode(raw)]
	if entry == nil {
		return "", false
	}
	return entry.name, true
}

// callFunction validates the opcode-implied shape against the function's
// declaration and dispatches. Platform-specific codes are checked and
// executed by the host; anything else unknown is an IllegalFunctionCode.
func (ms *MachineState) callFunction(raw uint16, fd *FunctionData, paramCount int) error {
	if entry := functionTable[FunctionCode(raw)]; entry != nil {
		if entry.paramCount != paramCount || entry.returnsValue != fd.ReturnValueExpected {
			return illegalFunctionCodeError("passed shape (%d args, returns %v) does not match function %s (%d args, returns %v)",
				paramCount, fd.ReturnValueExpected, entry.name, entry.paramCount, entry.returnsValue)
		}
		if err := entry.execute(fd, ms); err != nil {
			return asExecutionError(err)
		}
		return nil
	}

	if IsPlatformSpecific(raw) {
		if err := ms.api.PlatformSpecificPreExecuteCheck(paramCount, fd.ReturnValueExpected, ms, raw); err != nil {
			if execErr, ok := err.(*ExecutionError); ok {
				return execErr
			}
			return illegalFunctionCodeError("%v", err)
		}
		if err := ms.api.PlatformSpecificPostCheckExecute(fd, ms, raw); err != nil {
			return asExecutionError(err)
		}
		return nil
	}

	return illegalFunctionCodeError("unknown function code 0x%04x", raw)
}
