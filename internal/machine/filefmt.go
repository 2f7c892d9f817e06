package machine

import (
	"bufio"
	"encoding/binary"
	"io"
	"unicode/utf8"

	"novalang/internal/bytecode"
	"novalang/internal/object"
)

// File format version this build writes and the newest version it accepts
// reading. Files with a newer major version are rejected.
const (
	FileVersionMajor = 1
	FileVersionMinor = 0
)

const (
	immKindString byte = iota
	immKindFunction
)

// WriteProgramFile serializes p in the little-endian, length-prefixed format
// described for packagers: a header, the raw instruction words, then each
// immutable tagged by kind.
func WriteProgramFile(w io.Writer, p *bytecode.Program) error {
	bw := bufio.NewWriter(w)

	if err := writeU32(bw, FileVersionMajor); err != nil {
		return err
	}
	if err := writeU32(bw, FileVersionMinor); err != nil {
		return err
	}
	if err := writeU32(bw, uint32(len(p.Instructions))); err != nil {
		return err
	}
	if err := writeU32(bw, uint32(len(p.Immutables))); err != nil {
		return err
	}
	for _, word := range p.Instructions {
		if err := writeU32(bw, word); err != nil {
			return err
		}
	}
	for _, obj := range p.Immutables {
		if err := writeImmutable(bw, obj, p.Immutables); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func writeImmutable(w *bufio.Writer, obj object.Object, immutables []object.Object) error {
	switch obj.Kind {
	case object.ObjString:
		if err := w.WriteByte(immKindString); err != nil {
			return err
		}
		return writeString(w, obj.Str)

	case object.ObjFunction:
		if err := w.WriteByte(immKindFunction); err != nil {
			return err
		}
		if err := writeU32(w, obj.Fn.Address); err != nil {
			return err
		}
		if err := w.WriteByte(obj.Fn.Arity); err != nil {
			return err
		}
		isMethod := byte(0)
		if obj.Fn.IsMethod {
			isMethod = 1
		}
		if err := w.WriteByte(isMethod); err != nil {
			return err
		}
		name := ""
		if int(obj.Fn.NameAddr) < len(immutables) {
			name = immutables[obj.Fn.NameAddr].Str
		}
		return writeString(w, name)

	default:
		return writeString(w, "")
	}
}

func writeString(w *bufio.Writer, s string) error {
	if err := writeU64(w, uint64(len(s))); err != nil {
		return err
	}
	_, err := w.WriteString(s)
	return err
}

func writeU32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeU64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

// ReadProgramFile deserializes a program written by WriteProgramFile.
func ReadProgramFile(r io.Reader) (*bytecode.Program, error) {
	br := bufio.NewReader(r)

	major, err := readU32(br)
	if err != nil {
		return nil, err
	}
	_, err = readU32(br) // minor, not currently gated on
	if err != nil {
		return nil, err
	}
	if major > FileVersionMajor {
		return nil, ErrVersionMismatch
	}

	instrCount, err := readU32(br)
	if err != nil {
		return nil, err
	}
	immCount, err := readU32(br)
	if err != nil {
		return nil, err
	}

	p := &bytecode.Program{
		Instructions: make([]uint32, instrCount),
	}
	for i := range p.Instructions {
		p.Instructions[i], err = readU32(br)
		if err != nil {
			return nil, ErrTruncatedFile
		}
	}

	p.Immutables = make([]object.Object, 0, immCount)
	for i := uint32(0); i < immCount; i++ {
		obj, err := readImmutable(br)
		if err != nil {
			return nil, err
		}
		p.Immutables = append(p.Immutables, obj)
	}

	return p, nil
}

func readImmutable(r *bufio.Reader) (object.Object, error) {
	kind, err := r.ReadByte()
	if err != nil {
		return object.Object{}, ErrTruncatedFile
	}

	switch kind {
	case immKindString:
		s, err := readString(r)
		if err != nil {
			return object.Object{}, err
		}
		return object.NewString(s), nil

	case immKindFunction:
		address, err := readU32(r)
		if err != nil {
			return object.Object{}, ErrTruncatedFile
		}
		arity, err := r.ReadByte()
		if err != nil {
			return object.Object{}, ErrTruncatedFile
		}
		isMethodByte, err := r.ReadByte()
		if err != nil {
			return object.Object{}, ErrTruncatedFile
		}
		name, err := readString(r)
		if err != nil {
			return object.Object{}, err
		}
		return object.NewFunction(&object.Function{
			Name:     name,
			Address:  address,
			Arity:    arity,
			IsMethod: isMethodByte != 0,
		}), nil

	default:
		return object.Object{}, ErrUnknownImmutable
	}
}

func readString(r *bufio.Reader) (string, error) {
	n, err := readU64(r)
	if err != nil {
		return "", ErrTruncatedFile
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", ErrTruncatedFile
	}
	if !utf8.Valid(buf) {
		return "", ErrBadUTF8
	}
	return string(buf), nil
}

func readU32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, ErrTruncatedFile
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func readU64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, ErrTruncatedFile
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}
