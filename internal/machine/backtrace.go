package machine

import (
	"fmt"
	"io"

	"novalang/internal/object"
)

// ReportError prints "Error: <msg>" followed by the current line and a
// "Called from" entry per saved frame, then clears RERR so the VM can be
// reused for another REPL turn.
func (vm *VM) ReportError(w io.Writer) {
	msg := vm.stringOf(vm.RERR)
	fmt.Fprintf(w, "Error: %s\n", msg)

	if ld, ok := vm.LineFor(vm.RPC); ok {
		fmt.Fprintf(w, "On line %d in file %s\n", ld.Line, ld.File)
	}
	for i := len(vm.Frames) - 1; i >= 0; i-- {
		frame := vm.Frames[i]
		if frame.IsMain {
			continue
		}
		if ld, ok := vm.LineFor(frame.ReturnAddress); ok {
			fmt.Fprintf(w, "Called from line %d in file %s\n", ld.Line, ld.File)
		}
	}

	// Reset the run state so a REPL can keep using this VM: drop frames the
	// failed run never returned from along with their locals.
	vm.RERR = object.None
	vm.Frames = vm.Frames[:0]
	vm.Current = newFrame()
	vm.Locals = vm.Locals[:0]
}
