package asmtext

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-delve/ppc64dec/pkg/ppc64"
)

func TestText(t *testing.T) {
	const addr = 0x10000
	for _, tc := range []struct {
		w    ppc64.Word
		text string
	}{
		{0x60000000, "nop"},
		{0x60830005, "ori r3, r4, 0x5"},
		{0x3860ffff, "li r3, 0xffff"},
		{0x38610010, "addi r3, r1, 0x10"},
		{0x3c608000, "lis r3, 0x8000"},
		{0x2c03ffff, "cmpi 0x0, 0x0, r3, 0xffff"},
		{0x80610010, "lwz r3, 0x10(r1)"},
		{0x80600010, "lwz r3, 0x10(0)"},
		{0x84c50010, "lwzu r6, 0x10(r5)"},
		{0xe8010010, "ld r0, 0x10(r1)"},
		{0xfbe1fff8, "std r31, 0xfff8(r1)"},
		{0xf821ffd1, "stdu r1, 0xffd0(r1)"},
		{0x48000100, "b 0x100"},
		{0x48000101, "bl 0x100"},
		{0x4bfffffc, "b 0x3fffffc"},
		{0x42800008, "bc 0x14, 0x0, 0x8"},
		{0x4e800020, "bclr 0x14, 0x0, 0x0"},
		{0x4e800420, "bcctr 0x14, 0x0, 0x0"},
		{0x4e800421, "bcctrl 0x14, 0x0, 0x0"},
		{0x44000002, "sc"},
		{0x7c0802a6, "mflr r0"},
		{0x7d8903a6, "mtctr r12"},
		{0x7c3f0b78, "mr r31, r1"},
		{0x7c642a15, "add. r3, r4, r5"},
		{0x7c642e14, "addo r3, r4, r5"},
		{0x7c202264, "tlbie r4, 0x1"},
		{0x7883c202, "rldicl r3, r4, 0x38, 0x8"},
		{0x4c00012c, "isync"},
		{0x7c0004ac, "sync"},
		{0x4c000000, UndefinedMnemonic},
		{0x7c000002, UndefinedMnemonic},
		{0x00000000, "?"},
		{0x84a50010, "?"}, // lwzu r5, 0x10(r5)
	} {
		if got := Text(tc.w, addr); got != tc.text {
			t.Errorf("%#08x: expected %q, got %q", uint32(tc.w), tc.text, got)
		}
	}
}

func TestTokenKinds(t *testing.T) {
	tokens, ok := Decode(0x80610010, 0) // lwz r3, 0x10(r1)
	require.True(t, ok)
	want := []Token{
		{InstructionToken, "lwz", 0},
		{TextToken, " ", 0},
		{RegisterToken, "r3", 3},
		{TextToken, ", ", 0},
		{IntegerToken, "0x10", 0x10},
		{BeginMemoryOperandToken, "(", 0},
		{RegisterToken, "r1", 1},
		{EndMemoryOperandToken, ")", 0},
	}
	require.Equal(t, want, tokens)
}

func TestSeparators(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 5000; i++ {
		w := ppc64.Word(rng.Uint32())
		tokens, ok := Decode(w, 0)
		if !ok {
			continue
		}
		require.Equal(t, InstructionToken, tokens[0].Kind, "%#08x", uint32(w))
		operand := 0
		for j := 1; j < len(tokens); j++ {
			if tokens[j].Kind != TextToken {
				continue
			}
			want := ", "
			if operand == 0 {
				want = " "
			}
			require.Equal(t, want, tokens[j].Text, "%#08x: %q", uint32(w), String(tokens))
			require.Less(t, j+1, len(tokens), "%#08x ends with a separator", uint32(w))
			operand++
		}
	}
}

func TestImmediateDisplay(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for _, op := range []uint32{2, 3, 7, 12, 14, 15, 24, 25, 26, 27, 28, 29} {
		for i := 0; i < 500; i++ {
			w := ppc64.Word(op<<26 | rng.Uint32()&0x3ffffff)
			if op == 24 && w&0x3ffffff == 0 {
				continue // nop
			}
			tokens, ok := Decode(w, 0)
			require.True(t, ok)
			last := tokens[len(tokens)-1]
			ui := ppc64.DForm(w).UI()
			require.Equal(t, IntegerToken, last.Kind)
			require.Equal(t, ui, last.Value)
			require.Equal(t, fmt.Sprintf("0x%x", ui), last.Text)
		}
	}
}

func TestAppendFailureLeavesTokens(t *testing.T) {
	prev, ok := Decode(0x60000000, 0)
	require.True(t, ok)
	n := len(prev)

	for _, w := range []ppc64.Word{0x00000000, 0xe8a50011, 0x78000014} {
		out, ok := Append(prev, w, 4)
		require.False(t, ok, "%#08x", uint32(w))
		require.Len(t, out, n)
	}

	out, ok := Append(prev, 0x60830005, 4)
	require.True(t, ok)
	require.Equal(t, "nopori r3, r4, 0x5", String(out))
}
