// Package bytecode defines the fixed-width instruction encoding shared by
// the generator and the virtual machine, plus the Program container the
// generator emits and the loader appends.
//
// Instruction word layout (MSB -> LSB), a single 32-bit unsigned integer:
//
//	bits 31-26  opcode           (0-63)
//	bits 25-22  destination / flag register (0-15)
//	bits 21-18  source register 1 (0-15)
//	bits 17-0   source register 2, OR a 16-bit immediate/address
//
// Multi-word instructions (LoadInt32/LoadFloat32: +1 payload word;
// LoadInt64/LoadFloat64: +2 payload words, high word first) follow the
// header word directly; the payload words carry no opcode of their own and
// the dispatch loop and the module loader both know to skip over them.
package bytecode

// Op is a 6-bit opcode (0-63), the contract between the generator and the
// virtual machine.
type Op uint8

const (
	NoInstruction Op = iota
	Halt
	Move
	LoadK
	LoadNil
	LoadBool
	LoadInt32
	LoadInt64
	LoadFloat32
	LoadFloat64
	Add
	Sub
	Mul
	Div
	Pow
	Mod
	Neg
	Not
	Less
	LessEqual
	Equal
	JumpFalse
	Jump
	DefineGlobalIndirect
	StoreGlobalIndirect
	LoadGlobalIndirect
	LoadGlobal
	AllocateLocal
	DeallocateLocal
	StoreLocal
	LoadLocal
	Invoke
	LoadReturn
	ReturnNone
	ReturnVal
	Print

	// Reserved but unreachable from the generator: the VM must treat these
	// as "unsupported opcode" runtime errors rather than silently ignoring
	// them.
	This
	And
	Or
	Len
	While
	Loop
	Break
	NewFrame
	ClearReturn
)

var opNames = map[Op]string{
	NoInstruction:         "NoInstruction",
	Halt:                  "Halt",
	Move:                  "Move",
	LoadK:                 "LoadK",
	LoadNil:               "LoadNil",
	LoadBool:              "LoadBool",
	LoadInt32:             "LoadInt32",
	LoadInt64:             "LoadInt64",
	LoadFloat32:           "LoadFloat32",
	LoadFloat64:           "LoadFloat64",
	Add:                   "Add",
	Sub:                   "Sub",
	Mul:                   "Mul",
	Div:                   "Div",
	Pow:                   "Pow",
	Mod:                   "Mod",
	Neg:                   "Neg",
	Not:                   "Not",
	Less:                  "Less",
	LessEqual:             "LessEqual",
	Equal:                 "Equal",
	JumpFalse:             "JumpFalse",
	Jump:                  "Jump",
	DefineGlobalIndirect:  "DefineGlobalIndirect",
	StoreGlobalIndirect:   "StoreGlobalIndirect",
	LoadGlobalIndirect:    "LoadGlobalIndirect",
	LoadGlobal:            "LoadGlobal",
	AllocateLocal:         "AllocateLocal",
	DeallocateLocal:       "DeallocateLocal",
	StoreLocal:            "StoreLocal",
	LoadLocal:             "LoadLocal",
	Invoke:                "Invoke",
	LoadReturn:            "LoadReturn",
	ReturnNone:            "ReturnNone",
	ReturnVal:             "ReturnVal",
	Print:                 "Print",
	This:                  "This",
	And:                   "And",
	Or:                    "Or",
	Len:                   "Len",
	While:                 "While",
	Loop:                  "Loop",
	Break:                 "Break",
	NewFrame:              "NewFrame",
	ClearReturn:           "ClearReturn",
}

func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return "?unknown?"
}

// Reachable reports whether the generator can ever emit this opcode. The
// remainder exist in the namespace for historical reasons and must be
// rejected by the dispatch loop at runtime.
func (op Op) Reachable() bool {
	switch op {
	case This, And, Or, Len, While, Loop, Break, NewFrame, ClearReturn:
		return false
	default:
		return true
	}
}

// PayloadWords reports how many raw 32-bit words follow this opcode's
// header word.
func (op Op) PayloadWords() int {
	switch op {
	case LoadInt32, LoadFloat32:
		return 1
	case LoadInt64, LoadFloat64:
		return 2
	default:
		return 0
	}
}

// EmbedsImmutableIndex reports whether the low 16 bits of this opcode's
// header word index into a Program's immutables vector. The module loader
// uses this to know which instructions need their immediate rewritten on
// append.
func (op Op) EmbedsImmutableIndex() bool {
	switch op {
	case LoadK, DefineGlobalIndirect, LoadGlobalIndirect, StoreGlobalIndirect:
		return true
	default:
		return false
	}
}
