package starbind

import (
	"testing"

	"go.starlark.net/starlark"
)

func TestConv(t *testing.T) {
	globals, err := starlark.ExecFile(&starlark.Thread{}, "test.star", `
x = [1, 2]
big = 0x100000000
r = {"Start": 0x1000, "End": 0x1010}
bad = {"Middle": 1}
`, nil)
	if err != nil {
		t.Fatal(err)
	}

	var x []int
	if err := fromStarlark(globals["x"], &x, "x"); err != nil {
		t.Fatal(err)
	}
	if len(x) != 2 || x[0] != 1 || x[1] != 2 {
		t.Fatalf("expected [1 2], got: %v", x)
	}

	var w uint32
	if err := fromStarlark(globals["big"], &w, "big"); err == nil {
		t.Fatalf("expected overflow error, got %#x", w)
	}

	var r RangeIn
	if err := fromStarlark(globals["r"], &r, "r"); err != nil {
		t.Fatal(err)
	}
	if r.Start != 0x1000 || r.End != 0x1010 {
		t.Fatalf("expected {0x1000 0x1010}, got %#v", r)
	}
	if err := fromStarlark(globals["bad"], &r, "bad"); err == nil {
		t.Fatal("expected an error for an unknown field")
	}

	var s string
	if err := fromStarlark(globals["x"], &s, "s"); err == nil {
		t.Fatal("expected an error converting a list to a string")
	}
}

func TestToStarlark(t *testing.T) {
	for _, tc := range []struct {
		in   interface{}
		want string
	}{
		{uint32(0x10), "16"},
		{-3, "-3"},
		{"mflr r0", `"mflr r0"`},
		{true, "True"},
		{nil, "None"},
		{(*RangeIn)(nil), "None"},
	} {
		if got := toStarlark(tc.in).String(); got != tc.want {
			t.Errorf("%#v: expected %s got %s", tc.in, tc.want, got)
		}
	}

	v := toStarlark(&RangeIn{Start: 4, End: 8})
	sv, ok := v.(starlark.HasAttrs)
	if !ok {
		t.Fatalf("expected attributes on %T", v)
	}
	end, err := sv.Attr("End")
	if err != nil || end.String() != "8" {
		t.Fatalf("expected End=8, got %v (%v)", end, err)
	}
	if _, err := sv.Attr("start"); err == nil {
		t.Fatal("expected an error for a missing field")
	}
}
