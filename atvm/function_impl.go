package atvm

import (
	"bytes"
	"crypto/md5"
	"crypto/sha256"

	"github.com/holiman/uint256"
	"golang.org/x/crypto/ripemd160"

	"github.com/entropyio/go-atvm/config"
)

// functionTable declares every core function code: mnemonic, arity, return
// signature and implementation. The EXT_FUN-family opcode shape is verified
// against this declaration before dispatch.
var functionTable = map[FunctionCode]*functionEntry{
	ECHO: {"ECHO", 1, false, fnEcho},

	GET_A1: {"GET_A1", 0, true, registerGetter((*MachineState).GetA1)},
	GET_A2: {"GET_A2", 0, true, registerGetter((*MachineState).GetA2)},
	GET_A3: {"GET_A3", 0, true, registerGetter((*MachineState).GetA3)},
	GET_A4: {"GET_A4", 0, true, registerGetter((*MachineState).GetA4)},
	GET_B1: {"GET_B1", 0, true, registerGetter((*MachineState).GetB1)},
	GET_B2: {"GET_B2", 0, true, registerGetter((*MachineState).GetB2)},
	GET_B3: {"GET_B3", 0, true, registerGetter((*MachineState).GetB3)},
	GET_B4: {"GET_B4", 0, true, registerGetter((*MachineState).GetB4)},

	SET_A1: {"SET_A1", 1, false, registerSetter((*MachineState).SetA1)},
	SET_A2: {"SET_A2", 1, false, registerSetter((*MachineState).SetA2)},
	SET_A3: {"SET_A3", 1, false, registerSetter((*MachineState).SetA3)},
	SET_A4: {"SET_A4", 1, false, registerSetter((*MachineState).SetA4)},
	SET_B1: {"SET_B1", 1, false, registerSetter((*MachineState).SetB1)},
	SET_B2: {"SET_B2", 1, false, registerSetter((*MachineState).SetB2)},
	SET_B3: {"SET_B3", 1, false, registerSetter((*MachineState).SetB3)},
	SET_B4: {"SET_B4", 1, false, registerSetter((*MachineState).SetB4)},

	SET_A_DAT: {"SET_A_DAT", 1, false, fnSetAFromData},
	SET_B_DAT: {"SET_B_DAT", 1, false, fnSetBFromData},
	GET_A_DAT: {"GET_A_DAT", 1, false, fnGetAIntoData},
	GET_B_DAT: {"GET_B_DAT", 1, false, fnGetBIntoData},
	SET_A_IND: {"SET_A_IND", 1, false, fnSetAFromData},
	SET_B_IND: {"SET_B_IND", 1, false, fnSetBFromData},
	GET_A_IND: {"GET_A_IND", 1, false, fnGetAIntoData},
	GET_B_IND: {"GET_B_IND", 1, false, fnGetBIntoData},

	CLEAR_A:       {"CLEAR_A", 0, false, fnClearA},
	CLEAR_B:       {"CLEAR_B", 0, false, fnClearB},
	CLEAR_A_AND_B: {"CLEAR_A_AND_B", 0, false, fnClearAAndB},
	COPY_A_FROM_B: {"COPY_A_FROM_B", 0, false, fnCopyAFromB},
	COPY_B_FROM_A: {"COPY_B_FROM_A", 0, false, fnCopyBFromA},
	SWAP_A_AND_B:  {"SWAP_A_AND_B", 0, false, fnSwapAAndB},

	CHECK_A_IS_ZERO:  {"CHECK_A_IS_ZERO", 0, true, fnCheckAIsZero},
	CHECK_B_IS_ZERO:  {"CHECK_B_IS_ZERO", 0, true, fnCheckBIsZero},
	CHECK_A_EQUALS_B: {"CHECK_A_EQUALS_B", 0, true, fnCheckAEqualsB},

	UNSIGNED_COMPARE_A_WITH_B: {"UNSIGNED_COMPARE_A_WITH_B", 0, true, fnUnsignedCompareAWithB},
	SIGNED_COMPARE_A_WITH_B:   {"SIGNED_COMPARE_A_WITH_B", 0, true, fnSignedCompareAWithB},

	OR_A_WITH_B:  {"OR_A_WITH_B", 0, false, registerCombiner(func(a, b byte) byte { return a | b }, false)},
	OR_B_WITH_A:  {"OR_B_WITH_A", 0, false, registerCombiner(func(a, b byte) byte { return a | b }, true)},
	AND_A_WITH_B: {"AND_A_WITH_B", 0, false, registerCombiner(func(a, b byte) byte { return a & b }, false)},
	AND_B_WITH_A: {"AND_B_WITH_A", 0, false, registerCombiner(func(a, b byte) byte { return a & b }, true)},
	XOR_A_WITH_B: {"XOR_A_WITH_B", 0, false, registerCombiner(func(a, b byte) byte { return a ^ b }, false)},
	XOR_B_WITH_A: {"XOR_B_WITH_A", 0, false, registerCombiner(func(a, b byte) byte { return a ^ b }, true)},
	ADD_A_TO_B:   {"ADD_A_TO_B", 0, false, fnAddAToB},
	ADD_B_TO_A:   {"ADD_B_TO_A", 0, false, fnAddBToA},

	MD5_A_TO_B:            {"MD5_A_TO_B", 0, false, fnMD5AToB},
	CHECK_MD5_A_WITH_B:    {"CHECK_MD5_A_WITH_B", 0, true, fnCheckMD5AWithB},
	RMD160_A_TO_B:         {"RMD160_A_TO_B", 0, false, fnRMD160AToB},
	CHECK_RMD160_A_WITH_B: {"CHECK_RMD160_A_WITH_B", 0, true, fnCheckRMD160AWithB},
	SHA256_A_TO_B:         {"SHA256_A_TO_B", 0, false, fnSHA256AToB},
	CHECK_SHA256_A_WITH_B: {"CHECK_SHA256_A_WITH_B", 0, true, fnCheckSHA256AWithB},

	GET_BLOCK_TIMESTAMP:             {"GET_BLOCK_TIMESTAMP", 0, true, fnGetBlockTimestamp},
	GET_CREATION_TIMESTAMP:          {"GET_CREATION_TIMESTAMP", 0, true, fnGetCreationTimestamp},
	GET_PREVIOUS_BLOCK_TIMESTAMP:    {"GET_PREVIOUS_BLOCK_TIMESTAMP", 0, true, fnGetPreviousBlockTimestamp},
	PUT_PREVIOUS_BLOCK_HASH_INTO_A:  {"PUT_PREVIOUS_BLOCK_HASH_INTO_A", 0, false, fnPutPreviousBlockHashIntoA},
	PUT_TX_AFTER_TIMESTAMP_INTO_A:   {"PUT_TX_AFTER_TIMESTAMP_INTO_A", 1, false, fnPutTxAfterTimestampIntoA},
	GET_TYPE_FROM_TX_IN_A:           {"GET_TYPE_FROM_TX_IN_A", 0, true, fnGetTypeFromTxInA},
	GET_AMOUNT_FROM_TX_IN_A:         {"GET_AMOUNT_FROM_TX_IN_A", 0, true, fnGetAmountFromTxInA},
	GET_TIMESTAMP_FROM_TX_IN_A:      {"GET_TIMESTAMP_FROM_TX_IN_A", 0, true, fnGetTimestampFromTxInA},
	GENERATE_RANDOM_USING_TX_IN_A:   {"GENERATE_RANDOM_USING_TX_IN_A", 0, true, fnGenerateRandomUsingTxInA},
	PUT_MESSAGE_FROM_TX_IN_A_INTO_B: {"PUT_MESSAGE_FROM_TX_IN_A_INTO_B", 0, false, fnPutMessageFromTxInAIntoB},
	PUT_ADDRESS_FROM_TX_IN_A_INTO_B: {"PUT_ADDRESS_FROM_TX_IN_A_INTO_B", 0, false, fnPutAddressFromTxInAIntoB},
	PUT_CREATOR_INTO_B:              {"PUT_CREATOR_INTO_B", 0, false, fnPutCreatorIntoB},
	ADD_MINUTES_TO_TIMESTAMP:        {"ADD_MINUTES_TO_TIMESTAMP", 2, true, fnAddMinutesToTimestamp},

	GET_CURRENT_BALANCE:       {"GET_CURRENT_BALANCE", 0, true, fnGetCurrentBalance},
	GET_PREVIOUS_BALANCE:      {"GET_PREVIOUS_BALANCE", 0, true, fnGetPreviousBalance},
	PAY_TO_ADDRESS_IN_B:       {"PAY_TO_ADDRESS_IN_B", 1, false, fnPayToAddressInB},
	PAY_ALL_TO_ADDRESS_IN_B:   {"PAY_ALL_TO_ADDRESS_IN_B", 0, false, fnPayAllToAddressInB},
	MESSAGE_A_TO_ADDRESS_IN_B: {"MESSAGE_A_TO_ADDRESS_IN_B", 0, false, fnMessageAToAddressInB},
}

func fnEcho(fd *FunctionData, ms *MachineState) error {
	log.Infof("echo: %016x", uint64(fd.Value1))
	return nil
}

func registerGetter(get func(*MachineState) int64) func(*FunctionData, *MachineState) error {
	return func(fd *FunctionData, ms *MachineState) error {
		fd.SetReturnValue(get(ms))
		return nil
	}
}

func registerSetter(set func(*MachineState, int64)) func(*FunctionData, *MachineState) error {
	return func(fd *FunctionData, ms *MachineState) error {
		set(ms, fd.Value1)
		return nil
	}
}

// registerBlockOffset validates a register-sized window starting at the
// given cell index.
func (ms *MachineState) registerBlockOffset(index int64) (int32, error) {
	maxIndex := int64(len(ms.data)-config.ABRegisterSize) / config.ValueSize
	if index < 0 || index > maxIndex {
		return 0, invalidAddressError("data address %08x (+%d bytes) out of bounds", index, config.ABRegisterSize)
	}
	return int32(index * config.ValueSize), nil
}

func fnSetAFromData(fd *FunctionData, ms *MachineState) error {
	offset, err := ms.registerBlockOffset(fd.Value1)
	if err != nil {
		return err
	}
	copy(ms.a[:], ms.data[offset:])
	return nil
}

func fnSetBFromData(fd *FunctionData, ms *MachineState) error {
	offset, err := ms.registerBlockOffset(fd.Value1)
	if err != nil {
		return err
	}
	copy(ms.b[:], ms.data[offset:])
	return nil
}

func fnGetAIntoData(fd *FunctionData, ms *MachineState) error {
	offset, err := ms.registerBlockOffset(fd.Value1)
	if err != nil {
		return err
	}
	copy(ms.data[offset:], ms.a[:])
	return nil
}

func fnGetBIntoData(fd *FunctionData, ms *MachineState) error {
	offset, err := ms.registerBlockOffset(fd.Value1)
	if err != nil {
		return err
	}
	copy(ms.data[offset:], ms.b[:])
	return nil
}

func fnClearA(fd *FunctionData, ms *MachineState) error {
	ms.a = [config.ABRegisterSize]byte{}
	return nil
}

func fnClearB(fd *FunctionData, ms *MachineState) error {
	ms.b = [config.ABRegisterSize]byte{}
	return nil
}

func fnClearAAndB(fd *FunctionData, ms *MachineState) error {
	ms.a = [config.ABRegisterSize]byte{}
	ms.b = [config.ABRegisterSize]byte{}
	return nil
}

func fnCopyAFromB(fd *FunctionData, ms *MachineState) error {
	ms.a = ms.b
	return nil
}

func fnCopyBFromA(fd *FunctionData, ms *MachineState) error {
	ms.b = ms.a
	return nil
}

func fnSwapAAndB(fd *FunctionData, ms *MachineState) error {
	ms.a, ms.b = ms.b, ms.a
	return nil
}

func fnCheckAIsZero(fd *FunctionData, ms *MachineState) error {
	fd.SetReturnValue(boolToLong(ms.a == [config.ABRegisterSize]byte{}))
	return nil
}

func fnCheckBIsZero(fd *FunctionData, ms *MachineState) error {
	fd.SetReturnValue(boolToLong(ms.b == [config.ABRegisterSize]byte{}))
	return nil
}

func fnCheckAEqualsB(fd *FunctionData, ms *MachineState) error {
	fd.SetReturnValue(boolToLong(ms.a == ms.b))
	return nil
}

// The 32 register bytes, read in order, form one big-endian 256-bit
// integer: cell 1 is the most significant limb.

func fnUnsignedCompareAWithB(fd *FunctionData, ms *MachineState) error {
	a := new(uint256.Int).SetBytes(ms.a[:])
	b := new(uint256.Int).SetBytes(ms.b[:])
	fd.SetReturnValue(int64(a.Cmp(b)))
	return nil
}

func fnSignedCompareAWithB(fd *FunctionData, ms *MachineState) error {
	a := new(uint256.Int).SetBytes(ms.a[:])
	b := new(uint256.Int).SetBytes(ms.b[:])
	switch {
	case a.Eq(b):
		fd.SetReturnValue(0)
	case a.Slt(b):
		fd.SetReturnValue(-1)
	default:
		fd.SetReturnValue(+1)
	}
	return nil
}

func registerCombiner(combine func(a, b byte) byte, intoA bool) func(*FunctionData, *MachineState) error {
	return func(fd *FunctionData, ms *MachineState) error {
		if intoA {
			for i := range ms.a {
				ms.a[i] = combine(ms.a[i], ms.b[i])
			}
		} else {
			for i := range ms.b {
				ms.b[i] = combine(ms.b[i], ms.a[i])
			}
		}
		return nil
	}
}

func fnAddAToB(fd *FunctionData, ms *MachineState) error {
	a := new(uint256.Int).SetBytes(ms.a[:])
	b := new(uint256.Int).SetBytes(ms.b[:])
	sum := new(uint256.Int).Add(a, b)
	out := sum.Bytes32()
	copy(ms.b[:], out[:])
	return nil
}

func fnAddBToA(fd *FunctionData, ms *MachineState) error {
	a := new(uint256.Int).SetBytes(ms.a[:])
	b := new(uint256.Int).SetBytes(ms.b[:])
	sum := new(uint256.Int).Add(a, b)
	out := sum.Bytes32()
	copy(ms.a[:], out[:])
	return nil
}

func fnMD5AToB(fd *FunctionData, ms *MachineState) error {
	digest := md5.Sum(ms.a[:])
	copy(ms.b[:md5.Size], digest[:])
	return nil
}

func fnCheckMD5AWithB(fd *FunctionData, ms *MachineState) error {
	digest := md5.Sum(ms.a[:])
	fd.SetReturnValue(boolToLong(bytes.Equal(digest[:], ms.b[:md5.Size])))
	return nil
}

func fnRMD160AToB(fd *FunctionData, ms *MachineState) error {
	hasher := ripemd160.New()
	hasher.Write(ms.a[:])
	copy(ms.b[:ripemd160.Size], hasher.Sum(nil))
	return nil
}

func fnCheckRMD160AWithB(fd *FunctionData, ms *MachineState) error {
	hasher := ripemd160.New()
	hasher.Write(ms.a[:])
	fd.SetReturnValue(boolToLong(bytes.Equal(hasher.Sum(nil), ms.b[:ripemd160.Size])))
	return nil
}

func fnSHA256AToB(fd *FunctionData, ms *MachineState) error {
	digest := sha256.Sum256(ms.a[:])
	copy(ms.b[:], digest[:])
	return nil
}

func fnCheckSHA256AWithB(fd *FunctionData, ms *MachineState) error {
	digest := sha256.Sum256(ms.a[:])
	fd.SetReturnValue(boolToLong(bytes.Equal(digest[:], ms.b[:])))
	return nil
}

func fnGetBlockTimestamp(fd *FunctionData, ms *MachineState) error {
	fd.SetReturnValue(TimestampToLong(ms.currentBlockHeight, 0))
	return nil
}

func fnGetCreationTimestamp(fd *FunctionData, ms *MachineState) error {
	fd.SetReturnValue(TimestampToLong(ms.api.GetATCreationBlockHeight(ms), 0))
	return nil
}

func fnGetPreviousBlockTimestamp(fd *FunctionData, ms *MachineState) error {
	fd.SetReturnValue(TimestampToLong(ms.currentBlockHeight-1, 0))
	return nil
}

func fnPutPreviousBlockHashIntoA(fd *FunctionData, ms *MachineState) error {
	ms.api.PutPreviousBlockHashIntoA(ms)
	return nil
}

func fnPutTxAfterTimestampIntoA(fd *FunctionData, ms *MachineState) error {
	ms.api.PutTransactionAfterTimestampIntoA(NewTimestamp(fd.Value1), ms)
	return nil
}

func fnGetTypeFromTxInA(fd *FunctionData, ms *MachineState) error {
	value, err := ms.api.GetTypeFromTransactionInA(ms)
	if err != nil {
		return err
	}
	fd.SetReturnValue(value)
	return nil
}

func fnGetAmountFromTxInA(fd *FunctionData, ms *MachineState) error {
	value, err := ms.api.GetAmountFromTransactionInA(ms)
	if err != nil {
		return err
	}
	fd.SetReturnValue(value)
	return nil
}

func fnGetTimestampFromTxInA(fd *FunctionData, ms *MachineState) error {
	value, err := ms.api.GetTimestampFromTransactionInA(ms)
	if err != nil {
		return err
	}
	fd.SetReturnValue(value)
	return nil
}

func fnGenerateRandomUsingTxInA(fd *FunctionData, ms *MachineState) error {
	fd.SetReturnValue(ms.api.GenerateRandomUsingTransactionInA(ms))
	return nil
}

func fnPutMessageFromTxInAIntoB(fd *FunctionData, ms *MachineState) error {
	return ms.api.PutMessageFromTransactionInAIntoB(ms)
}

func fnPutAddressFromTxInAIntoB(fd *FunctionData, ms *MachineState) error {
	return ms.api.PutAddressFromTransactionInAIntoB(ms)
}

func fnPutCreatorIntoB(fd *FunctionData, ms *MachineState) error {
	ms.api.PutCreatorAddressIntoB(ms)
	return nil
}

func fnAddMinutesToTimestamp(fd *FunctionData, ms *MachineState) error {
	fd.SetReturnValue(ms.api.AddMinutesToTimestamp(NewTimestamp(fd.Value1), fd.Value2, ms))
	return nil
}

func fnGetCurrentBalance(fd *FunctionData, ms *MachineState) error {
	fd.SetReturnValue(ms.currentBalance)
	return nil
}

func fnGetPreviousBalance(fd *FunctionData, ms *MachineState) error {
	fd.SetReturnValue(ms.previousBalance)
	return nil
}

// payToB clamps the amount to the tracked balance, emits the payment through
// the host and debits the machine's balance. Zero and negative amounts pay
// nothing.
func (ms *MachineState) payToB(amount int64) error {
	if amount > ms.currentBalance {
		amount = ms.currentBalance
	}
	if amount <= 0 {
		return nil
	}
	if err := ms.api.PayAmountToB(amount, ms); err != nil {
		return err
	}
	ms.currentBalance -= amount
	return nil
}

func fnPayToAddressInB(fd *FunctionData, ms *MachineState) error {
	return ms.payToB(fd.Value1)
}

func fnPayAllToAddressInB(fd *FunctionData, ms *MachineState) error {
	return ms.payToB(ms.currentBalance)
}

func fnMessageAToAddressInB(fd *FunctionData, ms *MachineState) error {
	return ms.api.MessageAToB(ms)
}

func boolToLong(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
