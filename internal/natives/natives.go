// Package natives supplies the host functions every fresh VM is seeded
// with: print, println, and time. Each is plain Go wired into the object
// model's NativeFunc signature; argument validation is the native's own
// responsibility, per the call interface.
package natives

import (
	"fmt"
	"strings"
	"time"

	"novalang/internal/object"
)

// Common returns the native bindings a host installs into a fresh VM via
// machine.VM.RegisterNative, one per entry.
func Common(stdout Writer) []*object.Native {
	return []*object.Native{
		{Name: "print", Fn: printNative(stdout, false)},
		{Name: "println", Fn: printNative(stdout, true)},
		{Name: "time", Fn: timeNative},
	}
}

// Writer is the minimal sink print/println write to.
type Writer interface {
	WriteString(s string) (int, error)
}

func printNative(w Writer, newline bool) object.NativeFunc {
	return func(args []object.Object) (object.Object, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = a.String()
		}
		s := strings.Join(parts, " ")
		if newline {
			s += "\n"
		}
		w.WriteString(s)
		return object.Object{}, nil
	}
}

// timeNative implements time("milli"|"micro"|"sec"|"nano"), returning the
// current time since the Unix epoch in the requested unit.
func timeNative(args []object.Object) (object.Object, error) {
	unit := "milli"
	if len(args) > 0 {
		unit = args[0].Str
	}

	now := time.Now()
	var value float64
	switch unit {
	case "sec":
		value = float64(now.Unix())
	case "milli":
		value = float64(now.UnixMilli())
	case "micro":
		value = float64(now.UnixMicro())
	case "nano":
		value = float64(now.UnixNano())
	default:
		return object.Object{}, fmt.Errorf("time: unknown unit %q", unit)
	}

	return object.NewNumber(value), nil
}
