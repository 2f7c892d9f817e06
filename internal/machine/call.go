package machine

import "novalang/internal/object"

// invoke dispatches Invoke(argStart, argCount, invokeReg) to the user or
// native call path, branching on the callee register's kind.
func (vm *VM) invoke(argStart, argCount, invokeReg uint32) {
	callee := vm.Current.Regs[invokeReg]

	switch callee.Kind {
	case object.KindNovaFunctionID:
		entry, locals, arity, _ := object.UnpackFunctionID(callee)
		vm.invokeUser(entry, locals, arity, argStart, argCount)

	case object.KindMemAddress:
		obj := vm.Memory[callee.AsIndex()]
		switch obj.Kind {
		case object.ObjFunction:
			fn := obj.Fn
			vm.invokeUser(fn.Address, fn.NumberOfLocals, fn.Arity, argStart, argCount)
		case object.ObjNative:
			vm.invokeNative(obj.Native, argStart, argCount)
		default:
			vm.raiseError("called a None value")
		}

	default:
		vm.raiseError("called a None value")
	}
}

func (vm *VM) invokeUser(entry uint32, numLocals uint16, arity uint8, argStart, argCount uint32) {
	if argCount != uint32(arity) {
		vm.raiseError("arity mismatch: %d required, %d provided", arity, argCount)
		return
	}

	caller := vm.Current
	vm.Frames = append(vm.Frames, Frame{
		Regs:          caller.Regs,
		RLO:           caller.RLO,
		RRTN:          caller.RRTN,
		RMax:          caller.RMax,
		ReturnAddress: vm.RPC,
		IsMain:        false,
	})

	vm.Current = newFrame()
	vm.Current.RLO = uint32(len(vm.Locals))
	for i := uint16(0); i < numLocals; i++ {
		vm.Locals = append(vm.Locals, object.None)
	}
	vm.Current.RMax = numLocals

	for i := uint32(0); i < argCount; i++ {
		vm.Current.Regs[i] = caller.Regs[argStart+i]
	}

	vm.RPC = entry
}

func (vm *VM) invokeNative(n *object.Native, argStart, argCount uint32) {
	args := make([]object.Object, argCount)
	for i := uint32(0); i < argCount; i++ {
		args[i] = vm.packageRegister(vm.Current.Regs[argStart+i])
	}

	result, err := n.Fn(args)
	if err != nil {
		vm.raiseError("%s", err.Error())
		return
	}

	vm.Current.RRTN = vm.encodeResult(result)
}

// packageRegister turns a register into the NovaObject a native function
// receives, dereferencing heap/immutable addresses as needed.
func (vm *VM) packageRegister(r object.Register) object.Object {
	switch r.Kind {
	case object.KindInt64:
		return object.NewNumber(float64(r.AsInt64()))
	case object.KindFloat64:
		return object.NewNumber(r.AsFloat64())
	case object.KindBool:
		return object.NewNumber(boolToFloat(r.AsBool()))
	case object.KindStrImm, object.KindImmAddress:
		return vm.Immutables[r.AsIndex()]
	case object.KindStrMem, object.KindMemAddress:
		return vm.Memory[r.AsIndex()]
	default:
		return object.Object{}
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// encodeResult packages a native function's return value back into a
// register, storing composite results (strings) in memory.
func (vm *VM) encodeResult(o object.Object) object.Register {
	switch o.Kind {
	case object.ObjNumber:
		return object.Float64(o.Num)
	case object.ObjString:
		addr := vm.storeInMemory(o)
		return object.StrMem(addr)
	default:
		return object.None
	}
}

func (vm *VM) returnNone() {
	vm.Current.RRTN = object.None
	vm.dropFrame()
}

func (vm *VM) returnVal(src uint32) {
	vm.Current.RRTN = vm.Current.Regs[src]
	vm.dropFrame()
}

func (vm *VM) dropFrame() {
	returnValue := vm.Current.RRTN
	numLocals := int(vm.Current.RMax)
	if numLocals > 0 {
		vm.Locals = vm.Locals[:len(vm.Locals)-numLocals]
	}

	if len(vm.Frames) == 0 {
		vm.Running = false
		return
	}
	top := vm.Frames[len(vm.Frames)-1]
	vm.Frames = vm.Frames[:len(vm.Frames)-1]

	if top.IsMain {
		vm.Running = false
		return
	}

	vm.RPC = top.ReturnAddress
	vm.Current = top
	vm.Current.RRTN = returnValue
}

func (vm *VM) loadReturn(dst uint32) {
	vm.Current.Regs[dst] = vm.Current.RRTN
}
