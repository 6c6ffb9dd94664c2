package classfile

// Opcode is one stack machine instruction. Operands live in Instruction.A
// and Instruction.B; their meaning is listed per opcode.
type Opcode uint8

const (
	OpNop Opcode = iota
	// OpConst pushes pool constant A.
	OpConst
	// OpNone pushes None.
	OpNone
	// OpLoad pushes local slot A. A positive B is one plus the pool string
	// naming the local; loading a named slot that is unbound is an error.
	OpLoad
	// OpStore pops into local slot A.
	OpStore
	OpPop
	OpDup
	OpSwap
	// OpGoto jumps to pc A.
	OpGoto
	// OpIfTrue and OpIfFalse pop a bool and jump to A.
	OpIfTrue
	OpIfFalse
	// OpIfICmpEQ and OpIfICmpNE pop two values and jump to A.
	OpIfICmpEQ
	OpIfICmpNE
	// OpInvokeStatic calls the runtime entry named by pool string A with
	// descriptor pool string B.
	OpInvokeStatic
	// OpInvokeDyn pops owner, args array and kwargs map and invokes the
	// member named by pool string A on owner.
	OpInvokeDyn
	// OpLoadClass pushes the class named by pool class constant A.
	OpLoadClass
	// OpCheckCast checks the top of stack against pool class constant A.
	OpCheckCast
	// OpBuildArray, OpBuildList and OpBuildTuple pop A values.
	OpBuildArray
	OpBuildList
	OpBuildTuple
	// OpBuildKwargs and OpBuildDict pop A key/value pairs.
	OpBuildKwargs
	OpBuildDict
	OpReturn
	OpReturnValue
	// OpUnbind unbinds local slot A, named as in OpLoad.
	OpUnbind
)

var opNames = [...]string{
	OpNop:          "nop",
	OpConst:        "const",
	OpNone:         "aconst_none",
	OpLoad:         "load",
	OpStore:        "store",
	OpPop:          "pop",
	OpDup:          "dup",
	OpSwap:         "swap",
	OpGoto:         "goto",
	OpIfTrue:       "iftrue",
	OpIfFalse:      "iffalse",
	OpIfICmpEQ:     "if_icmpeq",
	OpIfICmpNE:     "if_icmpne",
	OpInvokeStatic: "invokestatic",
	OpInvokeDyn:    "invokedyn",
	OpLoadClass:    "ldclass",
	OpCheckCast:    "checkcast",
	OpBuildArray:   "buildarray",
	OpBuildList:    "buildlist",
	OpBuildTuple:   "buildtuple",
	OpBuildKwargs:  "buildkwargs",
	OpBuildDict:    "builddict",
	OpReturn:       "return",
	OpReturnValue:  "returnvalue",
	OpUnbind:       "unbind",
}

func (o Opcode) String() string {
	if int(o) < len(opNames) && opNames[o] != "" {
		return opNames[o]
	}
	return "op?"
}

// Valid reports whether o is a known opcode.
func (o Opcode) Valid() bool {
	return int(o) < len(opNames)
}

// IsJump reports whether A is a branch target.
func (o Opcode) IsJump() bool {
	switch o {
	case OpGoto, OpIfTrue, OpIfFalse, OpIfICmpEQ, OpIfICmpNE:
		return true
	}
	return false
}

// Instruction is one encoded instruction.
type Instruction struct {
	Op Opcode
	A  int32
	B  int32
}
