package machine

import "novalang/internal/object"

// numRegisters is the size of a frame's general-purpose register file,
// matching the 4-bit dst/src1/src2 fields of the instruction word (0-15).
// RLO, RRTN and RMax live outside this array: no opcode ever addresses them
// through an operand field, so they need no slot in the 4-bit address space.
const numRegisters = 16

// Frame is a saved register file plus the bookkeeping needed to resume the
// caller on return: where to resume (ReturnAddress), where its locals window
// began (RLO), how many locals to drain (RMax), and whether returning from it
// halts the machine (IsMain).
type Frame struct {
	Regs [numRegisters]object.Register

	RLO  uint32
	RRTN object.Register
	RMax uint16

	ReturnAddress uint32
	IsMain        bool
}

func newFrame() Frame {
	return Frame{}
}

func (f *Frame) clearRegisters() {
	for i := range f.Regs {
		f.Regs[i] = object.None
	}
}
