package machine

import "novalang/internal/object"

// MarkLiveMemory walks the current register file, the shared locals stack,
// and the globals vector, returning the set of memory indices reachable from
// them. It never sweeps: the baseline machine never reclaims memory, so this
// exists only as the hook a future collector would build a sweep phase on
// top of.
func (vm *VM) MarkLiveMemory() map[uint32]bool {
	live := make(map[uint32]bool)

	markRegister := func(r object.Register) {
		if r.Kind == object.KindMemAddress || r.Kind == object.KindStrMem {
			live[r.AsIndex()] = true
		}
	}

	for _, r := range vm.Current.Regs {
		markRegister(r)
	}
	markRegister(vm.Current.RRTN)
	markRegister(vm.RERR)
	for _, frame := range vm.Frames {
		for _, r := range frame.Regs {
			markRegister(r)
		}
		markRegister(frame.RRTN)
	}
	for _, r := range vm.Locals {
		markRegister(r)
	}
	for _, r := range vm.Globals {
		markRegister(r)
	}

	return live
}
