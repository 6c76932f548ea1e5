package lift

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-delve/ppc64dec/pkg/archinfo"
	"github.com/go-delve/ppc64dec/pkg/il"
	"github.com/go-delve/ppc64dec/pkg/ppc64"
)

// lines returns the statements of f as text.
func lines(f *il.Function) []string {
	r := make([]string, len(f.Instrs))
	for i := range f.Instrs {
		r[i] = f.Instrs[i].Format(f, archinfo.Names{})
	}
	return r
}

func liftOne(t *testing.T, w ppc64.Word, addr uint64) []string {
	t.Helper()
	f := il.NewFunction()
	require.True(t, Instruction(f, w, addr), "%#08x did not lift", uint32(w))
	return lines(f)
}

func TestInstruction(t *testing.T) {
	for _, tc := range []struct {
		name string
		w    ppc64.Word
		want []string
	}{
		{"nop", 0x60000000, []string{"nop"}},
		{"li", 0x3860ffff, []string{"r3 = 0xffffffffffffffff"}},
		{"addi", 0x38610010, []string{"r3 = 0x10 + r1"}},
		{"lis", 0x3c608000, []string{"r3 = 0xffffffff80000000"}},
		{"ori", 0x60830005, []string{"r3 = r4 | 0x5"}},
		{"andi.", 0x70830005, []string{"r3 = r4 & 0x5 {cr0}"}},
		{"addic.", 0x3464ffff, []string{"r3 = 0xffffffffffffffff + r4 {cr0,ca}"}},
		{"lwz r0 base", 0x80600010, []string{"r3 = zx.q([0x10].d)"}},
		{"lha", 0xa8610010, []string{"r3 = sx.q([r1 + 0x10].w)"}},
		{"lwzu", 0x84c50010, []string{"r6 = zx.q([r5 + 0x10].d)", "r5 = r5 + 0x10"}},
		{"ld", 0xe8010010, []string{"r0 = [r1 + 0x10].q"}},
		{"lwa", 0xe8610012, []string{"r3 = sx.q([r1 + 0x10].d)"}},
		{"std", 0xfbe1fff8, []string{"[r1 + 0xfffffffffffffff8].q = r31"}},
		{"stdu", 0xf821ffd1, []string{"[r1 + 0xffffffffffffffd0].q = r1", "r1 = r1 + 0xffffffffffffffd0"}},
		{"stw r0 base", 0x90600010, []string{"[0x10].d = r3"}},
		{"mr", 0x7c3f0b78, []string{"r31 = r1"}},
		{"mr.", 0x7c3f0b79, []string{"r31 = r1 {cr0}"}},
		{"add", 0x7c642a14, []string{"r3 = r4 + r5"}},
		{"subf", 0x7c642850, []string{"r3 = r5 - r4"}},
		{"mtctr", 0x7d8903a6, []string{"ctr = r12"}},
		{"mfctr", 0x7d8902a6, []string{"r12 = ctr"}},
		{"mflr", 0x7c0802a6, []string{"r0 = mfspr(0x8)"}},
		{"mtlr", 0x7c0803a6, []string{"mtspr(0x8, r0)"}},
		{"sync", 0x7c0004ac, []string{"sync()"}},
		{"tlbie", 0x7c202264, []string{"tlbie(r4, 0x1)"}},
		{"sc", 0x44000002, []string{"syscall"}},
		{"srdi", 0x7883c202, []string{"r3 = r4 u>> 0x8"}},
		{"clrldi", 0x78830020, []string{"r3 = (r4 rol 0x0) & 0xffffffff"}},
		{"cmpwi", 0x2c03ffff, []string{
			"cr0.lt = sx.q(r3.d) s< 0xffffffffffffffff",
			"cr0.gt = sx.q(r3.d) s> 0xffffffffffffffff",
			"cr0.eq = sx.q(r3.d) == 0xffffffffffffffff",
			"cr0.so = xer.so",
		}},
		{"cmplwi", 0x28830010, []string{
			"cr1.lt = zx.q(r3.d) u< 0x10",
			"cr1.gt = zx.q(r3.d) u> 0x10",
			"cr1.eq = zx.q(r3.d) == 0x10",
			"cr1.so = xer.so",
		}},
		{"b", 0x48000100, []string{"jump(0x1100)"}},
		{"bl", 0x48000101, []string{"call(0x1100)"}},
		{"bc always", 0x42800008, []string{"jump(0x1008)"}},
		{"bctr", 0x4e800420, []string{"jump(ctr)"}},
		{"bctrl", 0x4e800421, []string{"call(ctr)"}},
		{"blr", 0x4e800020, []string{"unimplemented"}},
		{"mcrf", 0x4c000000, []string{"unimplemented"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, liftOne(t, tc.w, 0x1000))
		})
	}
}

// rldcr rotates by the low six bits of RB. The MD form SH field overlaps RB
// in this encoding and must not be used as the rotate amount.
func TestRotateDoublewordRightUsesRB(t *testing.T) {
	got := liftOne(t, 0x788329d2, 0) // rldcr r3, r4, r5, 7
	require.Equal(t, []string{"r3 = (r4 rol (r5.b & 0x3f)) & 0xff00000000000000"}, got)
}

// rldicr keeps bits 0 through me of the rotated value.
func TestRotateDoublewordRightImmediateMask(t *testing.T) {
	for _, tc := range []struct {
		w    ppc64.Word
		want string
	}{
		{0x788345e4, "r3 = (r4 rol 0x8) & 0xffffffffffffff00"}, // rldicr r3, r4, 8, 55
		{0x788307c4, "r3 = (r4 rol 0x0) & 0xffffffff00000000"}, // rldicr r3, r4, 0, 31
		{0x788307e4, "r3 = (r4 rol 0x0) & 0xffffffffffffffff"}, // rldicr r3, r4, 0, 63
	} {
		require.Equal(t, []string{tc.want}, liftOne(t, tc.w, 0))
	}
}

// or with a destination equal to its second source is not a move.
func TestOrIsMoveOnlyForEqualSources(t *testing.T) {
	require.Equal(t, []string{"r4 = r3 | r4"}, liftOne(t, 0x7c642378, 0))   // or r4, r3, r4
	require.Equal(t, []string{"r31 = r1 {cr0}"}, liftOne(t, 0x7c3f0b79, 0)) // mr. r31, r1
}

// andi. records CR0 from a logical result. Its summary overflow keeps the
// previous value because a logical operation cannot overflow.
func TestAndImmediateRecordFlags(t *testing.T) {
	f := il.NewFunction()
	require.True(t, Instruction(f, 0x70630001, 0)) // andi. r3, r3, 1
	require.Len(t, f.Instrs, 1)

	var got []string
	for _, w := range archinfo.FlagWrites(&f.Instrs[0]) {
		got = append(got, w.Format(f, archinfo.Names{}))
	}
	require.Equal(t, []string{
		"cr0.lt = (r3 & 0x1) s< 0x0",
		"cr0.gt = (r3 & 0x1) s> 0x0",
		"cr0.eq = (r3 & 0x1) == 0x0",
		"cr0.so = cr0.so | 0x0",
	}, got)
}

func TestInvalidLeavesFunction(t *testing.T) {
	f := il.NewFunction()
	require.True(t, Instruction(f, 0x60000000, 0))
	for _, w := range []ppc64.Word{
		0x00000000,
		0x84050010, // lwzu r0, 0x10(r5) is fine, r0 is the target
		0x84a50010, // lwzu r5, 0x10(r5)
		0x84c00010, // lwzu r6, 0x10(0)
		0xe8a50011, // ldu r5, 0x10(r5)
		0xf8200011, // stdu r1, 0x10(0)
	} {
		before := f.Len()
		ok := Instruction(f, w, 4)
		if w == 0x84050010 {
			require.True(t, ok)
			f.Truncate(before)
			continue
		}
		require.False(t, ok, "%#08x", uint32(w))
		require.Equal(t, before, f.Len())
	}
	require.Equal(t, []string{"nop"}, lines(f))
}

func TestConditionalBranchNeedsLabels(t *testing.T) {
	// bne cr0, +0x10
	f := il.NewFunction()
	require.True(t, Instruction(f, 0x40820010, 0x1000))
	require.Equal(t, 0, f.Len())

	f = il.NewFunction()
	taken := f.AddressLabel(0x1010)
	next := f.AddressLabel(0x1004)
	require.True(t, Instruction(f, 0x40820010, 0x1000))
	require.Len(t, f.Instrs, 1)
	in := f.Instrs[0]
	require.Equal(t, il.OpIf, in.Op)
	require.Equal(t, "cr0.eq == 0x0", in.Args[0].Format(archinfo.Names{}))
	require.Equal(t, taken, in.True)
	require.Equal(t, next, in.False)
	require.Equal(t, uint64(0x1000), in.Address)
}

func TestDecrementAndBranch(t *testing.T) {
	// bdnz -8
	f := il.NewFunction()
	loop := f.AddressLabel(0x1000)
	f.AddressLabel(0x100c)
	require.True(t, Instruction(f, 0x4200fff8, 0x1008))
	require.Len(t, f.Instrs, 2)
	require.Equal(t, "ctr = ctr - 0x1", f.Instrs[0].Format(f, archinfo.Names{}))
	require.Equal(t, "ctr != 0x0", f.Instrs[1].Args[0].Format(archinfo.Names{}))
	require.Equal(t, loop, f.Instrs[1].True)
}

func TestConditionalCall(t *testing.T) {
	// bcl 12, 0, +0x20 only records the return address when taken.
	f := il.NewFunction()
	f.AddressLabel(0x1004)
	require.True(t, Instruction(f, 0x41800021, 0x1000))
	require.Len(t, f.Instrs, 2)
	require.Equal(t, il.OpIf, f.Instrs[0].Op)
	require.Equal(t, "call(0x1020)", f.Instrs[1].Format(f, archinfo.Names{}))
	pos, ok := f.LabelPosition(f.Instrs[0].True)
	require.True(t, ok)
	require.Equal(t, 1, pos)

	// Without a fall through label nothing is emitted.
	f = il.NewFunction()
	require.True(t, Instruction(f, 0x41800021, 0x1000))
	require.Equal(t, 0, f.Len())
}

func TestBytes(t *testing.T) {
	f := il.NewFunction()
	ok, err := Bytes(f, []byte{0x60, 0, 0, 0}, 0)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = Bytes(f, []byte{0x60}, 0)
	require.ErrorIs(t, err, ppc64.ErrShortBuffer)
}
