package ppc64

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/go-delve/ppc64dec/pkg/il"
)

// recorder is an Emitter that logs every call it receives.
type recorder struct {
	calls []string
	f     *il.Function
}

func newRecorder() *recorder {
	return &recorder{f: il.NewFunction()}
}

func (r *recorder) Op(m string)          { r.calls = append(r.calls, "op "+m) }
func (r *recorder) Reg(x Reg)            { r.calls = append(r.calls, fmt.Sprintf("reg %d", x)) }
func (r *recorder) Imm(v uint64)         { r.calls = append(r.calls, fmt.Sprintf("imm %#x", v)) }
func (r *recorder) Disp(b Reg, d uint64) { r.calls = append(r.calls, fmt.Sprintf("disp %#x(%d)", d, b)) }
func (r *recorder) Undefined()           { r.calls = append(r.calls, "undefined") }

func (r *recorder) Lift(fn func(*il.Function)) {
	r.calls = append(r.calls, "lift")
	fn(r.f)
}

func word(op uint32, rest uint32) Word {
	return Word(op<<26 | rest&0x3ffffff)
}

func TestReservedPrimaryOpcodes(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, op := range []uint32{0, 1, 4, 5, 6, 56, 57, 59, 60, 61, 63} {
		for i := 0; i < 1000; i++ {
			w := word(op, rng.Uint32())
			r := newRecorder()
			if Decode(w, 0x1000, r) {
				t.Fatalf("expected %#08x to be reserved", uint32(w))
			}
			if len(r.calls) != 0 || r.f.Len() != 0 {
				t.Fatalf("reserved word %#08x emitted %v", uint32(w), r.calls)
			}
		}
	}
}

func TestValidityDependsOnNamedFields(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	// Primary opcodes without any validity rule decode for every operand
	// combination.
	always := []uint32{2, 3, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23,
		24, 25, 26, 27, 28, 29, 31, 32, 34, 36, 38, 40, 42, 44, 46, 47, 48, 49, 50, 51, 52, 53, 54, 55}
	for _, op := range always {
		for i := 0; i < 1000; i++ {
			w := word(op, rng.Uint32())
			r := newRecorder()
			if !Decode(w, 0x1000, r) {
				t.Fatalf("expected %#08x (primary %d) to decode", uint32(w), op)
			}
			if len(r.calls) == 0 {
				t.Fatalf("%#08x decoded without output", uint32(w))
			}
		}
	}

	// Update loads depend on RA and RT only, update stores on RA only.
	for _, op := range []uint32{33, 35, 37, 39, 41, 43, 45} {
		store := op == 37 || op == 39 || op == 45
		for i := 0; i < 1000; i++ {
			w := word(op, rng.Uint32())
			d := DForm(w)
			valid := d.RA() != 0 && (store || d.RA() != d.RT())
			if got := Decode(w, 0, newRecorder()); got != valid {
				t.Fatalf("%#08x: expected valid=%v, got %v", uint32(w), valid, got)
			}
		}
	}
}

func TestSignExtend(t *testing.T) {
	for _, tc := range []struct {
		width uint
		in    uint64
		out   uint64
	}{
		{16, 0xffff, 0xffffffffffffffff},
		{16, 0x0001, 1},
		{16, 0x8000, 0xffffffffffff8000},
		{16, 0x7fff, 0x7fff},
		{26, 0x3fffffc, 0xfffffffffffffffc},
		{26, 0x1000000, 0x1000000},
		{32, 0x80000000, 0xffffffff80000000},
		{32, 0x7fff0000, 0x7fff0000},
	} {
		if got := SignExtend(tc.width, tc.in); got != tc.out {
			t.Errorf("SignExtend(%d, %#x): expected %#x, got %#x", tc.width, tc.in, tc.out, got)
		}
	}
	if got := SignExtend(16, 0xffff) >> 16; got != 0xffffffffffff {
		t.Errorf("expected the top 48 bits set, got %#x", got)
	}

	if got := SignExtend32(16, 0xfffe); got != 0xfffffffe {
		t.Errorf("SignExtend32(16, 0xfffe): expected 0xfffffffe, got %#x", got)
	}
	if got := SignExtend32(26, 0x2000000); got != 0xfe000000 {
		t.Errorf("SignExtend32(26, 0x2000000): expected 0xfe000000, got %#x", got)
	}
	if got := SignExtend32(16, 1); got != 1 {
		t.Errorf("SignExtend32(16, 1): expected 1, got %#x", got)
	}
}

func TestRotateMask64(t *testing.T) {
	for _, tc := range []struct {
		mb, me uint
		mask   uint64
	}{
		{60, 3, 0xf00000000000000f},
		{0, 63, 0xffffffffffffffff},
		{32, 63, 0x00000000ffffffff},
		{0, 7, 0xff00000000000000},
		{5, 5, 0x0400000000000000},
		{63, 0, 0x8000000000000001},
	} {
		if got := RotateMask64(tc.mb, tc.me); got != tc.mask {
			t.Errorf("RotateMask64(%d, %d): expected %#016x, got %#016x", tc.mb, tc.me, tc.mask, got)
		}
	}
}

func TestFieldExtractors(t *testing.T) {
	// rldicl r3, r4, 56, 8
	md := MDForm(0x7883c202)
	if md.RA() != 3 || md.RS() != 4 || md.SH() != 56 || md.MB() != 8 {
		t.Fatalf("unexpected MD fields ra=%d rs=%d sh=%d mb=%d", md.RA(), md.RS(), md.SH(), md.MB())
	}
	// mflr r0
	if spr := XFXForm(0x7c0802a6).SPR(); spr != 8 {
		t.Fatalf("expected spr 8, got %d", spr)
	}
	// stdu r1, -48(r1)
	ds := DSForm(0xf821ffd1)
	if ds.DS() != 0xffd0 || ds.XO() != 1 {
		t.Fatalf("expected ds 0xffd0 xo 1, got %#x %d", ds.DS(), ds.XO())
	}
	// rlwinm r3, r4, 2, 10, 29 with non overlapping mb and me
	m := MForm(21<<26 | 4<<21 | 3<<16 | 2<<11 | 10<<6 | 29<<1)
	if m.MB() != 10 || m.ME() != 29 || m.SH() != 2 {
		t.Fatalf("unexpected M fields mb=%d me=%d sh=%d", m.MB(), m.ME(), m.SH())
	}

	fields := Extract(0x7c642e14, FormXO)
	want := []Field{{"OPCD", 31}, {"RT", 3}, {"RA", 4}, {"RB", 5}, {"OE", 1}, {"XO", 266}, {"Rc", 0}}
	if fmt.Sprint(fields) != fmt.Sprint(want) {
		t.Fatalf("expected %v, got %v", want, fields)
	}
	if FormOf(0x7c642e14) != FormXO {
		t.Fatalf("expected XO form, got %v", FormOf(0x7c642e14))
	}
}

// The six bit mb/me field of the MD form keeps its low five bits in
// positions 6-10 and its high bit in position 5.
func TestMDFormSixBitMaskField(t *testing.T) {
	for _, tc := range []struct {
		w      Word
		me, sh uint64
	}{
		{0x788307c4, 31, 0}, // rldicr r3, r4, 0, 31
		{0x788345e4, 55, 8}, // rldicr r3, r4, 8, 55
		{0x788307e4, 63, 0}, // rldicr r3, r4, 0, 63
	} {
		md := MDForm(tc.w)
		if md.ME() != tc.me || md.MB() != tc.me || md.SH() != tc.sh {
			t.Errorf("%#08x: expected me %d sh %d, got me %d mb %d sh %d", uint32(tc.w), tc.me, tc.sh, md.ME(), md.MB(), md.SH())
		}
	}
}

// The M form mb and me fields are five bits wide and adjacent.
func TestMFormMaskFieldsDoNotOverlap(t *testing.T) {
	m := MForm(21<<26 | 4<<21 | 3<<16 | 31<<6 | 0<<1) // rlwinm r3, r4, 0, 31, 0
	if m.MB() != 31 || m.ME() != 0 {
		t.Fatalf("expected mb 31 me 0, got mb %d me %d", m.MB(), m.ME())
	}
	m = MForm(21<<26 | 4<<21 | 3<<16 | 0<<6 | 31<<1 | 1) // rlwinm. r3, r4, 0, 0, 31
	if m.MB() != 0 || m.ME() != 31 || m.Rc() != 1 {
		t.Fatalf("expected mb 0 me 31 rc 1, got mb %d me %d rc %d", m.MB(), m.ME(), m.Rc())
	}
}

// or is printed as mr only when both of its sources are the same register.
// A destination equal to the second source is an ordinary or.
func TestOrMoveAlias(t *testing.T) {
	for _, tc := range []struct {
		w     Word
		calls []string
	}{
		{0x7c3f0b78, []string{"op mr", "reg 31", "reg 1", "lift"}},         // or r31, r1, r1
		{0x7c3f0b79, []string{"op mr.", "reg 31", "reg 1", "lift"}},        // or. r31, r1, r1
		{0x7c642378, []string{"op or", "reg 4", "reg 3", "reg 4", "lift"}}, // or r4, r3, r4
	} {
		r := newRecorder()
		if !Decode(tc.w, 0, r) {
			t.Fatalf("%#08x did not decode", uint32(tc.w))
		}
		if fmt.Sprint(r.calls) != fmt.Sprint(tc.calls) {
			t.Errorf("%#08x: expected %v, got %v", uint32(tc.w), tc.calls, r.calls)
		}
	}
}

func TestExtractorsAreTotal(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 10000; i++ {
		w := Word(rng.Uint32())
		for form := FormD; form <= FormXO; form++ {
			for _, f := range Extract(w, form) {
				if f.Value > 0x3ffffff {
					t.Fatalf("%v field %s of %#08x out of range: %#x", form, f.Name, uint32(w), f.Value)
				}
			}
		}
	}
}

func TestReadWord(t *testing.T) {
	w, err := ReadWord([]byte{0x60, 0x00, 0x00, 0x00, 0xff})
	if err != nil {
		t.Fatal(err)
	}
	if w != 0x60000000 {
		t.Fatalf("expected 0x60000000, got %#x", uint32(w))
	}
	if _, err := ReadWord([]byte{0x60, 0}); err == nil {
		t.Fatal("expected an error for a short buffer")
	}
}

func TestOriNop(t *testing.T) {
	r := newRecorder()
	if !Decode(0x60000000, 0, r) {
		t.Fatal("nop did not decode")
	}
	if r.calls[0] != "op nop" || len(r.f.Instrs) != 1 || r.f.Instrs[0].Op != il.OpNop {
		t.Fatalf("expected a nop, got %v %v", r.calls, r.f)
	}

	r = newRecorder()
	Decode(0x60830005, 0, r) // ori r3, r4, 5
	if r.calls[0] != "op ori" || r.f.Instrs[0].Op != il.OpSetReg {
		t.Fatalf("expected ori, got %v %v", r.calls, r.f)
	}
}

func TestUnimplementedPassthrough(t *testing.T) {
	for _, w := range []Word{
		0x4c000000, // group 19, mcrf
		0x7c000002, // group 31, extended opcode 1
	} {
		r := newRecorder()
		if !Decode(w, 0, r) {
			t.Fatalf("%#08x should decode", uint32(w))
		}
		if len(r.calls) != 1 || r.calls[0] != "undefined" {
			t.Fatalf("%#08x: expected undefined, got %v", uint32(w), r.calls)
		}
	}

	r := newRecorder()
	if !Decode(0xc0210008, 0, r) { // lfs
		t.Fatal("lfs should decode")
	}
	if r.f.Len() != 1 || r.f.Instrs[0].Op != il.OpUnimplemented {
		t.Fatalf("expected an unimplemented marker, got %v", r.f)
	}

	// Reserved secondary opcodes fail.
	for _, w := range []Word{
		30<<26 | 10<<1, // group 30 extended opcode 10
		58<<26 | 3,     // group 58 extended opcode 3
		62<<26 | 2,
		62<<26 | 3,
	} {
		if Decode(w, 0, newRecorder()) {
			t.Fatalf("%#08x should be reserved", uint32(w))
		}
	}
}

func TestInfo(t *testing.T) {
	const addr = 0x1000
	for _, tc := range []struct {
		name string
		w    Word
		want []Branch
	}{
		{"b", 0x48000100, []Branch{{UnconditionalBranch, 0x1100}}},
		{"b back", 0x4bfffffc, []Branch{{UnconditionalBranch, 0xffc}}},
		{"bl", 0x48000101, []Branch{{CallDestination, 0x1100}}},
		{"ba", 0x48000102, []Branch{{UnconditionalBranch, 0x100}}},
		{"bc always", 0x42800008, []Branch{{UnconditionalBranch, 0x1008}}},
		{"bne", 0x40820010, []Branch{{TrueBranch, 0x1010}, {FalseBranch, 0x1004}}},
		{"bcl", 0x41800021, []Branch{{CallDestination, 0x1020}}},
		{"blr", 0x4e800020, []Branch{{FunctionReturn, 0}}},
		{"beqlr", 0x4d820020, []Branch{{FunctionReturn, 0}, {FalseBranch, 0x1004}}},
		{"bctr", 0x4e800420, []Branch{{IndirectBranch, 0}}},
		{"bctrl", 0x4e800421, nil},
		{"nop", 0x60000000, nil},
	} {
		info := Info(tc.w, addr)
		if info.Length != 4 {
			t.Fatalf("%#08x: expected length 4, got %d", uint32(tc.w), info.Length)
		}
		if fmt.Sprint(info.Branches) != fmt.Sprint(tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, info.Branches)
		}
	}
}

func TestInfoAgreesWithIR(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	for i := 0; i < 2000; i++ {
		op := uint32(16)
		if i%2 == 0 {
			op = 18
		}
		// always taken, so the IR is a single jump or call
		w := word(op, rng.Uint32()|0x14<<21)
		addr := uint64(rng.Uint32()) &^ 3
		r := newRecorder()
		if !Decode(w, addr, r) {
			t.Fatalf("%#08x did not decode", uint32(w))
		}
		in := r.f.Instrs[len(r.f.Instrs)-1]
		info := Info(w, addr)
		if len(info.Branches) != 1 {
			t.Fatalf("%#08x: expected one edge, got %v", uint32(w), info.Branches)
		}
		if got := in.Args[0].Value; got != info.Branches[0].Target {
			t.Fatalf("%#08x at %#x: IR target %#x, edge target %#x", uint32(w), addr, got, info.Branches[0].Target)
		}
		if (in.Op == il.OpCall) != (info.Branches[0].Kind == CallDestination) {
			t.Fatalf("%#08x: IR %v disagrees with edge %v", uint32(w), in.Op, info.Branches[0].Kind)
		}
	}
}
