package cmds

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddrValue(t *testing.T) {
	var a addrValue
	for _, tc := range []struct {
		in  string
		out uint64
	}{
		{"0x1000", 0x1000},
		{"4096", 0x1000},
		{"0o20", 16},
	} {
		require.NoError(t, a.Set(tc.in))
		if uint64(a) != tc.out {
			t.Errorf("%s: expected %#x got %#x", tc.in, tc.out, uint64(a))
		}
	}
	require.Equal(t, "0x10", a.String())
	require.Equal(t, "address", a.Type())
	require.Error(t, a.Set("main"))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := New(true)
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	if !strings.HasPrefix(out, "ppc64dec\nVersion: ") {
		t.Errorf("unexpected version output %q", out)
	}
}

func TestCommandsMarkdown(t *testing.T) {
	out, err := execute(t, "commands")
	require.NoError(t, err)
	for _, s := range []string{"disassemble", "lift", "xcheck"} {
		if !strings.Contains(out, s) {
			t.Errorf("expected %q in the command list", s)
		}
	}
}

func TestLoadImageErrors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.bin")
	require.NoError(t, os.WriteFile(empty, nil, 0600))
	_, err := execute(t, "disasm", empty)
	require.ErrorIs(t, err, errEmptyImage)

	img := filepath.Join(dir, "image.bin")
	data := make([]byte, 4)
	binary.BigEndian.PutUint32(data, 0x60000000)
	require.NoError(t, os.WriteFile(img, data, 0600))
	_, err = execute(t, "disasm", "--base", "0x1002", img)
	require.Error(t, err)

	_, err = execute(t, "disasm", filepath.Join(dir, "missing.bin"))
	require.Error(t, err)
}
