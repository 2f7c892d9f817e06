package bytecode

import "testing"

func TestCodecRoundTrip(t *testing.T) {
	for op := Op(0); op < 64; op++ {
		for d := uint32(0); d < 16; d++ {
			for s1 := uint32(0); s1 < 16; s1++ {
				for s2 := uint32(0); s2 < 16; s2++ {
					word := Encode(op, d, s1, s2)
					gotOp, gotD, gotS1, gotS2, _ := Decode(word)
					if gotOp != op || gotD != d || gotS1 != s1 || gotS2 != s2 {
						t.Fatalf("round trip mismatch for (%v,%d,%d,%d): got (%v,%d,%d,%d)",
							op, d, s1, s2, gotOp, gotD, gotS1, gotS2)
					}
				}
			}
		}
	}
}

func TestCodecImm16RoundTrip(t *testing.T) {
	for imm := uint32(0); imm <= 0xFFFF; imm += 137 {
		word := Encode(LoadK, 3, 0, imm)
		_, _, _, _, gotImm := Decode(word)
		if gotImm != imm {
			t.Fatalf("imm16 round trip mismatch for %d: got %d", imm, gotImm)
		}
	}
	// Exact boundary.
	word := Encode(LoadK, 0, 0, 0xFFFF)
	_, _, _, _, gotImm := Decode(word)
	if gotImm != 0xFFFF {
		t.Fatalf("expected 0xFFFF, got %d", gotImm)
	}
}

func TestRewriteImmediatePreservesHighBits(t *testing.T) {
	word := Encode(LoadGlobalIndirect, 5, 2, 10)
	rewritten := RewriteImmediate(word, 42)

	op, dst, src1, _, imm := Decode(rewritten)
	if op != LoadGlobalIndirect || dst != 5 || src1 != 2 || imm != 42 {
		t.Fatalf("rewrite corrupted header fields: op=%v dst=%d src1=%d imm=%d", op, dst, src1, imm)
	}
}

func TestSplitMergeU64(t *testing.T) {
	values := []uint64{0, 1, 0xFFFFFFFF, 0x100000000, ^uint64(0), 100000000000}
	for _, v := range values {
		hi, lo := SplitU64(v)
		if got := MergeU32(hi, lo); got != v {
			t.Fatalf("split/merge mismatch for %d: got %d", v, got)
		}
	}
}

func TestReachableOpcodesAreExhaustive(t *testing.T) {
	unreachable := map[Op]bool{This: true, And: true, Or: true, Len: true, While: true, Loop: true, Break: true, NewFrame: true, ClearReturn: true}
	for op, name := range opNames {
		want := !unreachable[op]
		if op.Reachable() != want {
			t.Fatalf("opcode %s (%v) Reachable() mismatch", name, op)
		}
	}
}
