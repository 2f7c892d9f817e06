package machine

import (
	"errors"
	"fmt"

	"novalang/internal/object"
)

// Sentinel errors surfaced by the bytecode file reader. Runtime
// errors never use Go's error type: they are reported by setting
// RERR to a MemAddress pointing at a freshly allocated string, observed by the
// dispatch loop.
var (
	ErrVersionMismatch  = errors.New("machine: bytecode file version is newer than this reader supports")
	ErrUnknownImmutable = errors.New("machine: unknown immutable kind in bytecode file")
	ErrBadUTF8          = errors.New("machine: immutable string is not valid UTF-8")
	ErrTruncatedFile    = errors.New("machine: bytecode file is truncated")
)

// raiseError is the runtime-error entry point: it allocates the message in
// the heap, points RERR at it, and returns. The dispatch loop checks RERR
// immediately after every instruction and stops the run if it is set.
func (vm *VM) raiseError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	addr := vm.storeInMemory(object.NewString(msg))
	vm.RERR = object.MemAddress(addr)
}
