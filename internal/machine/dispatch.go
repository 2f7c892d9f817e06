package machine

import (
	"math"

	"novalang/internal/bytecode"
	"novalang/internal/object"
)

// fetch reads the instruction word at RPC and advances RPC by one, mirroring
// the VM's post-increment fetch: every operand word, including a JumpFalse's
// paired Jump word, is consumed this same way.
func (vm *VM) fetch() uint32 {
	w := vm.Instructions[vm.RPC]
	vm.RPC++
	return w
}

// step executes exactly one instruction (which may itself consume extra
// payload/paired words, e.g. LoadInt64 or JumpFalse).
func (vm *VM) step() {
	word := vm.fetch()
	op, dst, src1, src2, imm16 := bytecode.Decode(word)

	if !op.Reachable() {
		vm.raiseError("unsupported opcode %s", op)
		return
	}

	switch op {
	case bytecode.NoInstruction:
		// no-op

	case bytecode.Halt:
		vm.Running = false

	case bytecode.Move:
		vm.Current.Regs[dst] = vm.Current.Regs[src1]

	case bytecode.LoadK:
		obj := vm.Immutables[imm16]
		if obj.Kind == object.ObjString {
			vm.Current.Regs[dst] = object.StrImm(imm16)
		} else {
			vm.Current.Regs[dst] = object.ImmAddress(imm16)
		}

	case bytecode.LoadNil:
		vm.Current.Regs[dst] = object.None

	case bytecode.LoadBool:
		vm.Current.Regs[dst] = object.Bool(imm16 != 0)

	case bytecode.LoadInt32:
		payload := vm.fetch()
		vm.Current.Regs[dst] = object.Int64(int64(int32(payload)))

	case bytecode.LoadInt64:
		hi := vm.fetch()
		lo := vm.fetch()
		vm.Current.Regs[dst] = object.Int64(int64(bytecode.MergeU32(hi, lo)))

	case bytecode.LoadFloat32:
		payload := vm.fetch()
		vm.Current.Regs[dst] = object.Float64(float64(math.Float32frombits(payload)))

	case bytecode.LoadFloat64:
		hi := vm.fetch()
		lo := vm.fetch()
		vm.Current.Regs[dst] = object.Float64(math.Float64frombits(bytecode.MergeU32(hi, lo)))

	case bytecode.Add:
		vm.add(dst, src1, src2)
	case bytecode.Sub:
		vm.sub(dst, src1, src2)
	case bytecode.Mul:
		vm.mul(dst, src1, src2)
	case bytecode.Div:
		vm.div(dst, src1, src2)
	case bytecode.Pow:
		vm.pow(dst, src1, src2)
	case bytecode.Mod:
		vm.mod(dst, src1, src2)
	case bytecode.Neg:
		vm.neg(src1)
	case bytecode.Not:
		vm.not(src1)
	case bytecode.Less:
		vm.less(dst, src1, src2)
	case bytecode.LessEqual:
		vm.lessEqual(dst, src1, src2)
	case bytecode.Equal:
		vm.equal(dst, src1, src2)

	case bytecode.JumpFalse:
		cond := vm.Current.Regs[src1].Truthy()
		jumpWord := vm.fetch()
		if !cond {
			vm.applyJump(jumpWord)
		}

	case bytecode.Jump:
		vm.applyJump(word)

	case bytecode.DefineGlobalIndirect:
		name := vm.Immutables[imm16].Str
		vm.defineGlobal(name)

	case bytecode.StoreGlobalIndirect:
		if slot, ok := vm.globalSlot(imm16); ok {
			vm.Globals[slot] = vm.Current.Regs[src1]
			vm.Current.Regs[src1] = object.None
		}

	case bytecode.LoadGlobalIndirect:
		if slot, ok := vm.globalSlot(imm16); ok {
			vm.Current.Regs[dst] = vm.Globals[slot]
		}

	case bytecode.LoadGlobal:
		vm.Current.Regs[dst] = vm.Globals[imm16]

	case bytecode.AllocateLocal:
		for i := uint32(0); i < imm16; i++ {
			vm.Locals = append(vm.Locals, object.None)
		}

	case bytecode.DeallocateLocal:
		n := int(imm16)
		if n > 0 {
			vm.Locals = vm.Locals[:len(vm.Locals)-n]
		}

	case bytecode.StoreLocal:
		vm.Locals[vm.Current.RLO+imm16] = vm.Current.Regs[src1]
		vm.Current.Regs[src1] = object.None

	case bytecode.LoadLocal:
		vm.Current.Regs[dst] = vm.Locals[vm.Current.RLO+imm16]

	case bytecode.Invoke:
		vm.invoke(dst, src1, src2)

	case bytecode.LoadReturn:
		vm.loadReturn(dst)

	case bytecode.ReturnNone:
		vm.returnNone()

	case bytecode.ReturnVal:
		vm.returnVal(src1)

	case bytecode.Print:
		s := vm.stringOf(vm.Current.Regs[src1])
		if dst != 0 {
			s += "\n"
		}
		vm.Stdout.WriteString(s)

	default:
		vm.raiseError("unsupported opcode %s", op)
	}
}

// applyJump implements Jump's dir/imm16 arithmetic. dir lives in the word's
// destination field, imm16 in the low 16 bits. The ∓1 compensates for the
// fetch() that already advanced RPC past this word.
func (vm *VM) applyJump(word uint32) {
	_, dir, _, _, imm16 := bytecode.Decode(word)
	if dir == 0 {
		vm.RPC -= imm16 + 1
	} else {
		vm.RPC += imm16 - 1
	}
}

// globalSlot resolves an immutable-name index to a global slot, consulting
// MemCache before falling back to the identifiers map. On an unknown name it
// raises the runtime error and reports ok=false.
func (vm *VM) globalSlot(nameImmIdx uint32) (uint32, bool) {
	if slot, ok := vm.MemCache.Get(nameImmIdx); ok {
		return slot, true
	}
	name := vm.Immutables[nameImmIdx].Str
	slot, ok := vm.Identifiers[name]
	if !ok {
		vm.raiseError("undefined global %q", name)
		return 0, false
	}
	vm.MemCache.Put(nameImmIdx, slot)
	return slot, true
}
