package starbind

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"

	"github.com/go-delve/ppc64dec/pkg/disasm"
)

type echoBuffer struct {
	bytes.Buffer
}

func (b *echoBuffer) Echo(string) {}
func (b *echoBuffer) Flush()      {}

type fakeContext struct {
	img  *disasm.Image
	cmds map[string]func(string) error
	log  []string
}

func (ctx *fakeContext) Memory() disasm.MemoryReader { return ctx.img }
func (ctx *fakeContext) Cache() *disasm.Cache         { return nil }
func (ctx *fakeContext) Address() uint64              { return ctx.img.Base }
func (ctx *fakeContext) MaxLiftInstructions() int     { return 16 }

func (ctx *fakeContext) RegisterCommand(name, helpMsg string, fn func(args string) error) {
	ctx.cmds[name] = fn
}

func (ctx *fakeContext) CallCommand(cmdstr string) error {
	ctx.log = append(ctx.log, cmdstr)
	return nil
}

func newTestEnv(words ...uint32) (*Env, *fakeContext, *echoBuffer) {
	data := make([]byte, 4*len(words))
	for i, w := range words {
		binary.BigEndian.PutUint32(data[4*i:], w)
	}
	ctx := &fakeContext{
		img:  &disasm.Image{Base: 0x1000, Data: data},
		cmds: make(map[string]func(string) error),
	}
	out := new(echoBuffer)
	return New(ctx, out), ctx, out
}

func TestBuiltins(t *testing.T) {
	env, _, _ := newTestEnv(0x7c0802a6, 0x48000101, 0x60000000)

	script := `
def main():
    inst = decode(0x48000101, 0x2000)
    d = disassemble(End=0x100c)
    return [inst.Text, inst.Kind, inst.Dest, len(d), d[0].Text, d[1].Dest]
`
	v, err := env.Execute("test.star", script, "main")
	require.NoError(t, err)
	list, ok := v.(*starlark.List)
	require.True(t, ok, "%T", v)
	require.Equal(t, `["bl 0x100", "call", 8448, 3, "mflr r0", 4356]`, list.String())
}

func TestLiftBuiltin(t *testing.T) {
	env, _, _ := newTestEnv(0x7c0802a6, 0x60000000)

	v, err := env.Execute("test.star", "def main():\n    return lift(End=0x1004).Statements[0]\n", "main")
	require.NoError(t, err)
	require.Equal(t, starlark.String("r0 = mfspr(0x8)"), v)
}

func TestFieldsBuiltin(t *testing.T) {
	env, _, _ := newTestEnv(0x60000000)

	v, err := env.Execute("test.star", "def main():\n    r = fields(0x48000101)\n    return [r.Form, r.Fields[0].Name]\n", "main")
	require.NoError(t, err)
	require.Equal(t, `["I", "OPCD"]`, v.String())

	_, err = env.Execute("test.star", "def main():\n    fields(0x48000101, Form=\"Q\")\n", "main")
	require.Error(t, err)

	_, err = env.Execute("test.star", "def main():\n    fields(Bogus=1)\n", "main")
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "unknown argument"), err.Error())
}

func TestCommands(t *testing.T) {
	env, ctx, out := newTestEnv(0x60000000)

	script := `
def command_twice(args):
    ppc64dec_command("goto " + args)
    ppc64dec_command("goto " + args)

def command_show(addr):
    print(str(addr + cur_address()))
`
	_, err := env.Execute("test.star", script, "main")
	require.NoError(t, err)
	require.Contains(t, ctx.cmds, "twice")
	require.Contains(t, ctx.cmds, "show")

	require.NoError(t, ctx.cmds["twice"]("0x1000"))
	require.Equal(t, []string{"goto 0x1000", "goto 0x1000"}, ctx.log)

	require.NoError(t, ctx.cmds["show"]("4"))
	require.Equal(t, "4100\n", out.String())
}

func TestHelpBuiltin(t *testing.T) {
	env, _, out := newTestEnv(0x60000000)

	_, err := env.Execute("test.star", "def main():\n    help(decode)\n    help()\n", "main")
	require.NoError(t, err)
	for _, s := range []string{"decode(Word, Addr)\n\ndecode decodes", "Available builtins:", "\tlift\n", "\tppc64dec_command\n"} {
		if !strings.Contains(out.String(), s) {
			t.Errorf("expected %q in help output:\n%s", s, out.String())
		}
	}
}

func TestFileBuiltins(t *testing.T) {
	env, _, _ := newTestEnv(0x60000000)
	path := filepath.Join(t.TempDir(), "listing.txt")

	script := fmt.Sprintf(`
def main():
    write_file(%q, disassemble(End=0x1004)[0].Text)
    return read_file(%q)
`, path, path)
	v, err := env.Execute("test.star", script, "main")
	require.NoError(t, err)
	require.Equal(t, starlark.String("nop"), v)

	_, err = env.Execute("test.star", "def main():\n    read_file()\n", "main")
	require.Error(t, err)
}
