package terminal

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-delve/ppc64dec/pkg/config"
	"github.com/go-delve/ppc64dec/pkg/disasm"
)

const testBase = 0x1000

type FakeTerminal struct {
	*Term
	out *bytes.Buffer
	t   testing.TB
}

func newFakeTerminal(t testing.TB, words ...uint32) *FakeTerminal {
	data := make([]byte, 4*len(words))
	for i, w := range words {
		binary.BigEndian.PutUint32(data[4*i:], w)
	}
	img := &disasm.Image{Base: testBase, Data: data}
	buf := new(bytes.Buffer)
	term := newTerm(img, &config.Config{}, DecodeCommands(), buf, true)
	return &FakeTerminal{Term: term, out: buf, t: t}
}

// Exec runs cmdstr and returns its output, failing the test on error.
func (ft *FakeTerminal) Exec(cmdstr string) string {
	ft.t.Helper()
	out, err := ft.ExecErr(cmdstr)
	if err != nil {
		ft.t.Fatalf("%q: %v", cmdstr, err)
	}
	return out
}

func (ft *FakeTerminal) ExecErr(cmdstr string) (string, error) {
	ft.out.Reset()
	err := ft.cmds.Call(cmdstr, ft.Term)
	return ft.out.String(), err
}

func TestCommandDefault(t *testing.T) {
	var (
		cmds = Commands{}
		cmd  = cmds.Find("non-existent-command")
	)

	err := cmd(nil, "")
	if err == nil {
		t.Fatal("cmd() did not default")
	}

	if err.Error() != "command not available" {
		t.Fatal("wrong command output")
	}
}

func TestCommandLookup(t *testing.T) {
	cmds := DecodeCommands()

	for _, tc := range []struct {
		in, want string
	}{
		{"disassemble", "disassemble"},
		{"d", "disassemble"},
		{"disasm", "disassemble"},
		{"disa", "disassemble"},
		{"ed", "edges"},
		{"q", "exit"},
		{"x", "xcheck"},
	} {
		cmd, err := cmds.lookup(tc.in)
		if err != nil {
			t.Errorf("%q: %v", tc.in, err)
			continue
		}
		if cmd.aliases[0] != tc.want {
			t.Errorf("%q: expected %q got %q", tc.in, tc.want, cmd.aliases[0])
		}
	}

	_, err := cmds.lookup("e")
	if err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Fatalf("expected ambiguous command error, got %v", err)
	}

	_, err = cmds.lookup("zzz")
	if err != errNoCmd {
		t.Fatalf("expected %v got %v", errNoCmd, err)
	}
}

func TestComplete(t *testing.T) {
	cmds := DecodeCommands()
	require.Equal(t, []string{"edges", "exit"}, cmds.complete("e"))
	require.Nil(t, cmds.complete("disassemble 0x10"))
}

func TestDisassembleCommand(t *testing.T) {
	ft := newFakeTerminal(t, 0x7c0802a6, 0x60000000, 0x48000101, 0x60000000)

	out := ft.Exec("disassemble . 3")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[0], "0x1000:"), lines[0])
	require.Contains(t, lines[0], "mflr r0")
	require.Contains(t, lines[1], "nop")
	require.Contains(t, lines[2], "bl 0x100")
	require.Contains(t, lines[2], "# 0x1108")
	require.Equal(t, uint64(0x100c), ft.pc)

	// Without arguments the listing continues and is clipped to the image.
	out = ft.Exec("disassemble")
	require.Equal(t, 1, strings.Count(out, "\n"))
	require.Contains(t, out, "0x100c:")
	require.Equal(t, uint64(0x1010), ft.pc)

	out = ft.Exec("disassemble -a 0x1000 0x1008")
	require.Equal(t, 2, strings.Count(out, "\n"))

	_, err := ft.ExecErr("disassemble -a 0x1000")
	require.Equal(t, disasmUsageError, err)

	_, err = ft.ExecErr("disassemble 0x2000")
	require.Error(t, err)

	// Explicit ranges are clipped to the image like counted ones.
	out = ft.Exec("disassemble -a 0x1000 0xfffffffffffffff0")
	require.Equal(t, 4, strings.Count(out, "\n"))
	require.Equal(t, uint64(0x1010), ft.pc)

	_, err = ft.ExecErr("disassemble -a 0xfffffffffffffff0 0xfffffffffffffff8")
	require.Error(t, err)
	_, err = ft.ExecErr("disassemble -a 0x1008 0x1000")
	require.Error(t, err)
}

func TestGotoCommand(t *testing.T) {
	ft := newFakeTerminal(t, 0x60000000, 0x60000000, 0x60000000)

	require.Equal(t, "0x1004\n", ft.Exec("goto +4"))
	require.Equal(t, "0x1008\n", ft.Exec("g 0x1008"))
	require.Equal(t, "0x1000\n", ft.Exec("goto -8"))

	_, err := ft.ExecErr("goto 0x1002")
	if !errors.Is(err, disasm.ErrUnaligned) {
		t.Fatalf("expected %v got %v", disasm.ErrUnaligned, err)
	}
	_, err = ft.ExecErr("goto 0x100c")
	require.Error(t, err)
	_, err = ft.ExecErr("goto")
	require.Error(t, err)
	require.Equal(t, uint64(testBase), ft.pc)
}

func TestLiftCommand(t *testing.T) {
	ft := newFakeTerminal(t, 0x7c0802a6, 0x60000000)

	out := ft.Exec("lift 0x1000 1")
	require.Contains(t, out, "r0 = mfspr(0x8)")
	require.Equal(t, uint64(testBase), ft.pc)

	out = ft.Exec("lift -tree 0x1000 1")
	require.Contains(t, out, "mfspr")
}

func TestFieldsCommand(t *testing.T) {
	ft := newFakeTerminal(t, 0x60000000)

	out := ft.Exec("fields 0x7c0802a6")
	require.True(t, strings.HasPrefix(out, "0x7c0802a6 "), out)
	require.Contains(t, out, "-form\n")

	_, err := ft.ExecErr("fields zz")
	require.Error(t, err)
	_, err = ft.ExecErr("fields")
	require.Error(t, err)
	_, err = ft.ExecErr("fields 0x7c0802a6 Q")
	require.Error(t, err)
}

func TestXCheckCommand(t *testing.T) {
	ft := newFakeTerminal(t, 0x7c0802a6, 0x60000000)

	out := ft.Exec("xcheck -all")
	require.True(t, strings.HasSuffix(out, "2 instructions, 0 disagreements\n"), out)
}

func TestConfigCommand(t *testing.T) {
	ft := newFakeTerminal(t, 0x60000000)

	ft.Exec("config show-bytes true")
	require.True(t, ft.conf.ShowBytes)
	require.Equal(t, "show-bytes\ttrue\n", ft.Exec("config show-bytes"))

	ft.Exec("config max-lift-instructions 8")
	require.Equal(t, 8, ft.conf.GetMaxLiftInstructions())

	_, err := ft.ExecErr("config no-such-parameter 1")
	require.Error(t, err)

	ft.Exec("config alias disassemble dd")
	cmd, err := ft.cmds.lookup("dd")
	require.NoError(t, err)
	require.Equal(t, "disassemble", cmd.aliases[0])
	require.Equal(t, []string{"dd"}, ft.conf.Aliases["disassemble"])

	ft.Exec("config alias dd")
	_, err = ft.cmds.lookup("dd")
	require.Equal(t, errNoCmd, err)
	cmd, err = ft.cmds.lookup("d")
	require.NoError(t, err)
	require.Equal(t, "disassemble", cmd.aliases[0])
}

func TestHelp(t *testing.T) {
	ft := newFakeTerminal(t, 0x60000000)

	out := ft.Exec("help")
	for _, s := range []string{
		"Decoding instructions:",
		"Moving around the image:",
		"Other commands:",
		"disassemble (alias: disasm | d)",
	} {
		if !strings.Contains(out, s) {
			t.Errorf("expected %q in help output:\n%s", s, out)
		}
	}

	out = ft.Exec("help fields")
	require.True(t, strings.HasPrefix(out, "Splits an instruction word"), out)
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	DecodeCommands().WriteMarkdown(&buf)
	out := buf.String()
	require.Contains(t, out, "## disassemble\n")
	require.Contains(t, out, "[xcheck](#xcheck)")
}

func TestSourceCommands(t *testing.T) {
	ft := newFakeTerminal(t, 0x60000000, 0x60000000)

	path := filepath.Join(t.TempDir(), "cmds")
	err := os.WriteFile(path, []byte("# comment\ngoto 0x1004\nnosuchcommand\n"), 0600)
	require.NoError(t, err)

	out := ft.Exec("source " + path)
	require.Contains(t, out, "0x1004\n")
	require.Contains(t, out, ":3: command not available")
	require.Equal(t, uint64(0x1004), ft.pc)
}

func TestSourceStarlark(t *testing.T) {
	ft := newFakeTerminal(t, 0x7c0802a6, 0x60000000)

	script := `
def command_hello(args):
    "Says hello."
    print("hello " + args)

def main():
    inst = decode(0x7c0802a6)
    if inst.Text != "mflr r0":
        fail("unexpected text " + inst.Text)
    print(disassemble(0x1000, 0x1008)[1].Text)
`
	path := filepath.Join(t.TempDir(), "script.star")
	require.NoError(t, os.WriteFile(path, []byte(script), 0600))

	out := ft.Exec("source " + path)
	require.Equal(t, "nop\n", out)

	require.Equal(t, "hello world\n", ft.Exec("hello world"))
	require.Equal(t, "Says hello.\n", ft.Exec("help hello"))
}

func TestTranscript(t *testing.T) {
	ft := newFakeTerminal(t, 0x60000000)
	path := filepath.Join(t.TempDir(), "transcript")

	ft.Exec("transcript -x " + path)
	require.Equal(t, "", ft.Exec("goto 0x1000"))
	ft.Exec("transcript -off")

	buf, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "0x1000\n", string(buf))
}
