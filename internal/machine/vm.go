// Package machine implements the fetch-decode-dispatch loop, the register
// file and call-frame discipline, the global/local storage, and the module
// loader that appends a compiled bytecode.Program to a live machine.
package machine

import (
	"novalang/internal/bytecode"
	"novalang/internal/object"
)

// VM owns every piece of mutable state a running program touches.
// Instructions and Immutables are the concatenation of every program ever
// loaded into this machine; Locals and Globals persist across LoadProgram
// calls, which is what makes a REPL turn-by-turn session possible.
type VM struct {
	Instructions []uint32
	Immutables   []object.Object

	Current Frame
	Frames  []Frame

	Locals      []object.Register
	Globals     []object.Register
	Identifiers map[string]uint32

	Memory []object.Object

	MemCache *MemCache

	RERR object.Register
	RPC  uint32

	Running bool

	Stdout Writer

	lineDefinitions []bytecode.LineDefinition
}

// Writer is the minimal sink Print opcodes write to; satisfied by
// *bufio.Writer or any io.Writer wrapped to match.
type Writer interface {
	WriteString(s string) (int, error)
}

func New(stdout Writer) *VM {
	return &VM{
		Identifiers: make(map[string]uint32),
		MemCache:    NewMemCache(),
		Stdout:      stdout,
		Current:     newFrame(),
	}
}

func (vm *VM) storeInMemory(o object.Object) uint32 {
	vm.Memory = append(vm.Memory, o)
	return uint32(len(vm.Memory) - 1)
}

// LoadProgram appends p to the live VM. It rewrites
// every embedded immutable-table index so that instructions compiled against
// p's own 0-based immutables vector keep indexing correctly once appended
// after whatever this VM already holds, registers every callable immutable
// as a global, and returns the instruction index the caller should start
// execution at (the first instruction of the appended program).
func (vm *VM) LoadProgram(p *bytecode.Program) uint32 {
	immOffset := uint32(len(vm.Immutables))
	insOffset := uint32(len(vm.Instructions))

	for i := 0; i < len(p.Instructions); {
		word := p.Instructions[i]
		op, _, _, _, imm16 := bytecode.Decode(word)
		if op.EmbedsImmutableIndex() {
			word = bytecode.RewriteImmediate(word, imm16+immOffset)
		}
		vm.Instructions = append(vm.Instructions, word)
		i++
		for payload := op.PayloadWords(); payload > 0; payload-- {
			vm.Instructions = append(vm.Instructions, p.Instructions[i])
			i++
		}
	}

	for _, obj := range p.Immutables {
		// A function's entry address is relative to its own program's
		// 0-based instruction array; shift it by insOffset the same way the
		// embedded immutable indices and line definitions are shifted, so
		// the descriptor stays valid in the concatenated array. Copy first:
		// p is the caller's value.
		if obj.Kind == object.ObjFunction {
			shifted := *obj.Fn
			shifted.Address += insOffset
			obj = object.NewFunction(&shifted)
		}
		if obj.IsCallable() {
			vm.registerGlobalCallable(obj, p.Immutables)
		}
		vm.Immutables = append(vm.Immutables, obj)
	}

	for _, ld := range p.LineDefinitions {
		vm.lineDefinitions = append(vm.lineDefinitions, bytecode.LineDefinition{
			LastInstruction: ld.LastInstruction + insOffset,
			Line:            ld.Line,
			File:            ld.File,
		})
	}

	return insOffset
}

// registerGlobalCallable binds a function immutable's name to a fresh global
// slot, preferring an inline NovaFunctionID register when the descriptor fits
// the packed-bit budget (it always does, per object.FitsInlineFunctionID).
func (vm *VM) registerGlobalCallable(obj object.Object, sourceImmutables []object.Object) {
	if obj.Kind == object.ObjNative {
		slot := vm.defineGlobal(obj.Native.Name)
		vm.Globals[slot] = object.MemAddress(vm.storeInMemory(obj))
		return
	}

	fn := obj.Fn
	name := fn.Name
	if name == "" {
		name = sourceImmutables[fn.NameAddr].Str
	}
	slot := vm.defineGlobal(name)

	if object.FitsInlineFunctionID(fn.Address, fn.NumberOfLocals, fn.Arity) {
		vm.Globals[slot] = object.PackFunctionID(fn.Address, fn.NumberOfLocals, fn.Arity, fn.IsMethod)
		return
	}
	addr := vm.storeInMemory(obj)
	vm.Globals[slot] = object.MemAddress(addr)
}

func (vm *VM) defineGlobal(name string) uint32 {
	if slot, ok := vm.Identifiers[name]; ok {
		return slot
	}
	vm.Globals = append(vm.Globals, object.None)
	slot := uint32(len(vm.Globals) - 1)
	vm.Identifiers[name] = slot
	return slot
}

// RegisterNative installs a host-supplied native function as a global,
// exactly as a user function immutable would be registered by LoadProgram.
func (vm *VM) RegisterNative(n *object.Native) {
	slot := vm.defineGlobal(n.Name)
	addr := vm.storeInMemory(object.NewNative(n))
	vm.Globals[slot] = object.MemAddress(addr)
}

// Start runs the dispatch loop beginning at instruction index entry until
// Halt, a runtime error, or the main frame returns. It returns the process
// exit code the CLI should use: 0 for a normal halt, 1 if a runtime error was
// raised. Start leaves RERR set; the caller prints the error and backtrace
// with ReportError, which also clears RERR so the VM can run again.
func (vm *VM) Start(entry uint32) int {
	vm.RPC = entry
	vm.Running = true
	if len(vm.Frames) == 0 {
		vm.Frames = append(vm.Frames, Frame{IsMain: true})
	}

	for vm.Running {
		vm.step()
		if vm.RERR.Kind != object.KindNone {
			return 1
		}
	}
	return 0
}

// LineFor reports the nearest LineDefinition covering instruction pc, used
// for backtrace reporting.
func (vm *VM) LineFor(pc uint32) (bytecode.LineDefinition, bool) {
	var best bytecode.LineDefinition
	found := false
	for _, ld := range vm.lineDefinitions {
		if ld.LastInstruction >= pc {
			if !found || ld.LastInstruction < best.LastInstruction {
				best = ld
				found = true
			}
		}
	}
	return best, found
}
