package bytecode

import "novalang/internal/object"

// LineDefinition records the source position of the last instruction
// compiled for a given line, used to reconstruct error backtraces. Keyed
// sparsely by "last instruction index at this source line".
type LineDefinition struct {
	LastInstruction uint32
	Line            int
	File            string
}

// Program is what the generator emits and the loader appends to a live VM:
// an instruction stream, an immutables table, and enough source-position
// bookkeeping to print a backtrace.
type Program struct {
	Instructions    []uint32
	Immutables      []object.Object
	LineDefinitions []LineDefinition
}

// InternString returns the immutables index of s, reusing an existing entry
// if one is already interned.
func (p *Program) InternString(s string) uint32 {
	for i, obj := range p.Immutables {
		if obj.Kind == object.ObjString && obj.Str == s {
			return uint32(i)
		}
	}
	p.Immutables = append(p.Immutables, object.NewString(s))
	return uint32(len(p.Immutables) - 1)
}

// InternFunction always appends a new function descriptor (descriptors are
// never deduplicated: two declarations with the same name are two distinct
// functions at two distinct addresses).
func (p *Program) InternFunction(fn *object.Function) uint32 {
	p.Immutables = append(p.Immutables, object.NewFunction(fn))
	return uint32(len(p.Immutables) - 1)
}

// MarkLine records that the most recently emitted instruction concludes
// source line (line, file); used by the generator after every statement.
func (p *Program) MarkLine(line int, file string) {
	p.LineDefinitions = append(p.LineDefinitions, LineDefinition{
		LastInstruction: uint32(len(p.Instructions)) - 1,
		Line:            line,
		File:            file,
	})
}

// LineFor finds the LineDefinition whose span covers pc: the entry with the
// smallest LastInstruction that is still >= pc. This is the lookup error
// backtraces use to name the source line of a saved program counter.
func (p *Program) LineFor(pc uint32) (LineDefinition, bool) {
	var best LineDefinition
	found := false
	for _, ld := range p.LineDefinitions {
		if ld.LastInstruction >= pc {
			if !found || ld.LastInstruction < best.LastInstruction {
				best = ld
				found = true
			}
		}
	}
	return best, found
}
