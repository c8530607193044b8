package atvm

// instructionSet maps each opcode byte to its operation. The table is static:
// the on-wire bytecode format does not version opcodes.
var instructionSet = newInstructionSet()

func newInstructionSet() [256]*operation {
	var tbl [256]*operation

	tbl[NOP] = &operation{name: "NOP", execute: opNop}
	tbl[SET_VAL] = &operation{name: "SET_VAL", execute: opSetVal, params: []OpCodeParam{ParamDestAddr, ParamValue}}
	tbl[SET_DAT] = &operation{name: "SET_DAT", execute: opSetDat, params: []OpCodeParam{ParamDestAddr, ParamSrcAddr}}
	tbl[CLR_DAT] = &operation{name: "CLR_DAT", execute: opClrDat, params: []OpCodeParam{ParamDestAddr}}
	tbl[INC_DAT] = &operation{name: "INC_DAT", execute: opIncDat, params: []OpCodeParam{ParamDestAddr}}
	tbl[DEC_DAT] = &operation{name: "DEC_DAT", execute: opDecDat, params: []OpCodeParam{ParamDestAddr}}
	tbl[ADD_DAT] = &operation{name: "ADD_DAT", execute: opAddDat, params: []OpCodeParam{ParamDestAddr, ParamSrcAddr}}
	tbl[SUB_DAT] = &operation{name: "SUB_DAT", execute: opSubDat, params: []OpCodeParam{ParamDestAddr, ParamSrcAddr}}
	tbl[MUL_DAT] = &operation{name: "MUL_DAT", execute: opMulDat, params: []OpCodeParam{ParamDestAddr, ParamSrcAddr}}
	tbl[DIV_DAT] = &operation{name: "DIV_DAT", execute: opDivDat, params: []OpCodeParam{ParamDestAddr, ParamSrcAddr}}
	tbl[BOR_DAT] = &operation{name: "BOR_DAT", execute: opBorDat, params: []OpCodeParam{ParamDestAddr, ParamSrcAddr}}
	tbl[AND_DAT] = &operation{name: "AND_DAT", execute: opAndDat, params: []OpCodeParam{ParamDestAddr, ParamSrcAddr}}
	tbl[XOR_DAT] = &operation{name: "XOR_DAT", execute: opXorDat, params: []OpCodeParam{ParamDestAddr, ParamSrcAddr}}
	tbl[NOT_DAT] = &operation{name: "NOT_DAT", execute: opNotDat, params: []OpCodeParam{ParamDestAddr}}
	tbl[SET_IND] = &operation{name: "SET_IND", execute: opSetInd, params: []OpCodeParam{ParamDestAddr, ParamIndirectSrcAddr}}
	tbl[SET_IDX] = &operation{name: "SET_IDX", execute: opSetIdx, params: []OpCodeParam{ParamDestAddr, ParamIndirectSrcAddrWithIndex, ParamIndex}}
	tbl[PSH_DAT] = &operation{name: "PSH_DAT", execute: opPshDat, params: []OpCodeParam{ParamSrcAddr}}
	tbl[POP_DAT] = &operation{name: "POP_DAT", execute: opPopDat, params: []OpCodeParam{ParamDestAddr}}
	tbl[JMP_SUB] = &operation{name: "JMP_SUB", execute: opJmpSub, params: []OpCodeParam{ParamCodeAddr}}
	tbl[RET_SUB] = &operation{name: "RET_SUB", execute: opRetSub}
	tbl[IND_DAT] = &operation{name: "IND_DAT", execute: opIndDat, params: []OpCodeParam{ParamIndirectDestAddr, ParamSrcAddr}}
	tbl[IDX_DAT] = &operation{name: "IDX_DAT", execute: opIdxDat, params: []OpCodeParam{ParamIndirectDestAddrWithIndex, ParamIndex, ParamSrcAddr}}
	tbl[MOD_DAT] = &operation{name: "MOD_DAT", execute: opModDat, params: []OpCodeParam{ParamDestAddr, ParamSrcAddr}}
	tbl[SHL_DAT] = &operation{name: "SHL_DAT", execute: opShlDat, params: []OpCodeParam{ParamDestAddr, ParamSrcAddr}}
	tbl[SHR_DAT] = &operation{name: "SHR_DAT", execute: opShrDat, params: []OpCodeParam{ParamDestAddr, ParamSrcAddr}}
	tbl[JMP_ADR] = &operation{name: "JMP_ADR", execute: opJmpAdr, params: []OpCodeParam{ParamCodeAddr}}
	tbl[BZR_DAT] = &operation{name: "BZR_DAT", execute: opBzrDat, params: []OpCodeParam{ParamSrcAddr, ParamOffset}}
	tbl[BNZ_DAT] = &operation{name: "BNZ_DAT", execute: opBnzDat, params: []OpCodeParam{ParamSrcAddr, ParamOffset}}
	tbl[BGT_DAT] = &operation{name: "BGT_DAT", execute: opBgtDat, params: []OpCodeParam{ParamSrcAddr, ParamSrcAddr, ParamOffset}}
	tbl[BLT_DAT] = &operation{name: "BLT_DAT", execute: opBltDat, params: []OpCodeParam{ParamSrcAddr, ParamSrcAddr, ParamOffset}}
	tbl[BGE_DAT] = &operation{name: "BGE_DAT", execute: opBgeDat, params: []OpCodeParam{ParamSrcAddr, ParamSrcAddr, ParamOffset}}
	tbl[BLE_DAT] = &operation{name: "BLE_DAT", execute: opBleDat, params: []OpCodeParam{ParamSrcAddr, ParamSrcAddr, ParamOffset}}
	tbl[BEQ_DAT] = &operation{name: "BEQ_DAT", execute: opBeqDat, params: []OpCodeParam{ParamSrcAddr, ParamSrcAddr, ParamOffset}}
	tbl[BNE_DAT] = &operation{name: "BNE_DAT", execute: opBneDat, params: []OpCodeParam{ParamSrcAddr, ParamSrcAddr, ParamOffset}}
	tbl[SLP_DAT] = &operation{name: "SLP_DAT", execute: opSlpDat, params: []OpCodeParam{ParamBlockHeight}}
	tbl[FIZ_DAT] = &operation{name: "FIZ_DAT", execute: opFizDat, params: []OpCodeParam{ParamSrcAddr}}
	tbl[STZ_DAT] = &operation{name: "STZ_DAT", execute: opStzDat, params: []OpCodeParam{ParamSrcAddr}}
	tbl[FIN_IMD] = &operation{name: "FIN_IMD", execute: opFinImd}
	tbl[STP_IMD] = &operation{name: "STP_IMD", execute: opStpImd}
	tbl[SLP_IMD] = &operation{name: "SLP_IMD", execute: opSlpImd}
	tbl[ERR_ADR] = &operation{name: "ERR_ADR", execute: opErrAdr, params: []OpCodeParam{ParamCodeAddr}}
	tbl[SLP_VAL] = &operation{name: "SLP_VAL", execute: opSlpVal, params: []OpCodeParam{ParamValue}}
	tbl[SET_PCS] = &operation{name: "SET_PCS", execute: opSetPcs}
	tbl[EXT_FUN] = &operation{name: "EXT_FUN", execute: opExtFun, params: []OpCodeParam{ParamFunc}}
	tbl[EXT_FUN_DAT] = &operation{name: "EXT_FUN_DAT", execute: opExtFunDat, params: []OpCodeParam{ParamFunc, ParamSrcAddr}}
	tbl[EXT_FUN_DAT_2] = &operation{name: "EXT_FUN_DAT_2", execute: opExtFunDat2, params: []OpCodeParam{ParamFunc, ParamSrcAddr, ParamSrcAddr}}
	tbl[EXT_FUN_RET] = &operation{name: "EXT_FUN_RET", execute: opExtFunRet, params: []OpCodeParam{ParamFunc, ParamDestAddr}}
	tbl[EXT_FUN_RET_DAT] = &operation{name: "EXT_FUN_RET_DAT", execute: opExtFunRetDat, params: []OpCodeParam{ParamFunc, ParamDestAddr, ParamSrcAddr}}
	tbl[EXT_FUN_RET_DAT_2] = &operation{name: "EXT_FUN_RET_DAT_2", execute: opExtFunRetDat2, params: []OpCodeParam{ParamFunc, ParamDestAddr, ParamSrcAddr, ParamSrcAddr}}
	tbl[EXT_FUN_VAL] = &operation{name: "EXT_FUN_VAL", execute: opExtFunVal, params: []OpCodeParam{ParamFunc, ParamValue}}
	tbl[ADD_VAL] = &operation{name: "ADD_VAL", execute: opAddVal, params: []OpCodeParam{ParamDestAddr, ParamValue}}
	tbl[SUB_VAL] = &operation{name: "SUB_VAL", execute: opSubVal, params: []OpCodeParam{ParamDestAddr, ParamValue}}
	tbl[MUL_VAL] = &operation{name: "MUL_VAL", execute: opMulVal, params: []OpCodeParam{ParamDestAddr, ParamValue}}
	tbl[DIV_VAL] = &operation{name: "DIV_VAL", execute: opDivVal, params: []OpCodeParam{ParamDestAddr, ParamValue}}
	tbl[SHL_VAL] = &operation{name: "SHL_VAL", execute: opShlVal, params: []OpCodeParam{ParamDestAddr, ParamValue}}
	tbl[SHR_VAL] = &operation{name: "SHR_VAL", execute: opShrVal, params: []OpCodeParam{ParamDestAddr, ParamValue}}

	return tbl
}
