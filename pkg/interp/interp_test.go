package interp

import (
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sample = `/*
 * Code generated by bignumgen.
 */

#if BIGNUM_INT_BITS == 16

static void bigval_add(bigval *r, const bigval *a, const bigval *b)
{
    BignumInt v0, v1, v2, v3, v4, v5;
    BignumCarry carry;

    v0 = a->w[0];
    v1 = a->w[1];
    v2 = b->w[0];
    v3 = b->w[1];
    BignumADC(v4, carry, v0, v2, 0);
    v5 = v1 + v3 + carry;
    r->w[0] = v4;
    r->w[1] = v5;
}

#elif BIGNUM_INT_BITS == 64

static void bigval_mix(bigval *r, const bigval *a)
{
    BignumInt v0, v1, v2, v3, v4;

    v0 = a->w[0];
    v1 = a->w[1];
    v2 = ((v0) >> 60) | ((v1) << 4);
    BignumMULADD(v3, v4, v2, 25, v0);
    (void)v3;
    r->w[0] = (v4) & ((((BignumInt)1) << 7)-1);
    r->w[1] = 0;
}

#else
#error Add another bit count to bignumgen and rerun it
#endif
`

func parse(t *testing.T, src string) *File {
	t.Helper()
	f, err := ParseFile(src)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	return f
}

func TestParseFile(t *testing.T) {
	f := parse(t, sample)
	if !f.HasErrorFallback {
		t.Error("missing #error fallback")
	}
	var widths []int
	for _, b := range f.Branches {
		widths = append(widths, b.Bits)
	}
	if diff := cmp.Diff([]int{16, 64}, widths); diff != "" {
		t.Errorf("branches (-want +got):\n%s", diff)
	}
	fn := f.Branch(16).Func("bigval_add")
	if fn == nil {
		t.Fatal("bigval_add not found")
	}
	wantParams := []Param{{Name: "r"}, {Name: "a", Const: true}, {Name: "b", Const: true}}
	if diff := cmp.Diff(wantParams, fn.Params); diff != "" {
		t.Errorf("params (-want +got):\n%s", diff)
	}
	if len(fn.Body) != 10 {
		t.Errorf("body has %d statements, want 10", len(fn.Body))
	}
	if f.Branch(32) != nil || f.Branch(16).Func("bigval_mix") != nil {
		t.Error("lookup found something that is not there")
	}
}

func TestRunAdd(t *testing.T) {
	fn := parse(t, sample).Branch(16).Func("bigval_add")
	out, err := fn.Run(16, 2, map[string][]uint64{
		"r": {0, 0},
		"a": {0xffff, 0x1234},
		"b": {0x0001, 0x0001},
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string][]uint64{"r": {0x0000, 0x1236}}, out); diff != "" {
		t.Errorf("result (-want +got):\n%s", diff)
	}
}

func TestRunMix(t *testing.T) {
	fn := parse(t, sample).Branch(64).Func("bigval_mix")
	a0, a1 := uint64(0xf000000000000003), uint64(0x5)
	out, err := fn.Run(64, 2, map[string][]uint64{"r": {9, 9}, "a": {a0, a1}})
	if err != nil {
		t.Fatal(err)
	}
	v2 := a0>>60 | a1<<4
	want := (v2*25 + a0) & 0x7f
	if diff := cmp.Diff([]uint64{want, 0}, out["r"]); diff != "" {
		t.Errorf("result (-want +got):\n%s", diff)
	}
}

func TestMacros(t *testing.T) {
	tests := []struct {
		bits           int
		macro          string
		args           []uint64
		wantHi, wantLo uint64
	}{
		{16, "BignumADC", []uint64{0xffff, 0xffff, 1}, 1, 0xffff},
		{64, "BignumADC", []uint64{^uint64(0), 1, 0}, 1, 0},
		{32, "BignumMUL", []uint64{0xffffffff, 0xffffffff}, 0xfffffffe, 1},
		{32, "BignumMULADD2", []uint64{0xffffffff, 0xffffffff, 0xffffffff, 0xffffffff}, 0xffffffff, 0xffffffff},
		{64, "BignumMULADD", []uint64{1 << 63, 4, 5}, 2, 5},
		{64, "BignumMULADD2", []uint64{^uint64(0), ^uint64(0), ^uint64(0), ^uint64(0)}, ^uint64(0), ^uint64(0)},
	}
	for _, tt := range tests {
		m := &machine{bits: tt.bits, mask: ^uint64(0) >> (64 - tt.bits)}
		hi, lo, err := m.call(tt.macro, tt.args)
		if err != nil {
			t.Errorf("%s: %v", tt.macro, err)
			continue
		}
		if hi != tt.wantHi || lo != tt.wantLo {
			t.Errorf("%d-bit %s%v = (%#x, %#x), want (%#x, %#x)", tt.bits, tt.macro, tt.args, hi, lo, tt.wantHi, tt.wantLo)
		}
	}
}

func body(stmts ...string) string {
	return "#if BIGNUM_INT_BITS == 32\n\nstatic void f(bigval *r, const bigval *a)\n{\n    " +
		strings.Join(stmts, ";\n    ") + ";\n}\n\n#else\n#error none\n#endif\n"
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name  string
		stmts []string
		want  string
	}{
		{"undeclared", []string{"r->w[0] = v0"}, "v0 undeclared"},
		{"unassigned", []string{"BignumInt v0", "r->w[0] = v0"}, "read before assignment"},
		{"twice", []string{"BignumInt v0", "v0 = a->w[0]", "v0 = a->w[0]", "r->w[0] = v0"}, "assigned twice"},
		{"unused", []string{"BignumInt v0, v1", "v0 = a->w[0]", "v1 = a->w[0]", "r->w[0] = v0"}, "v1 declared but never used"},
		{"unwritten", []string{"BignumInt v0", "v0 = a->w[0]", "(void)v0"}, "r->w[0] never written"},
		{"const store", []string{"a->w[0] = 1"}, "store through const"},
		{"wide shift", []string{"BignumInt v0", "v0 = a->w[0]", "r->w[0] = (v0) >> 32"}, "shift by 32"},
		{"bad carry in", []string{"BignumInt v0", "BignumCarry carry", "BignumADC(v0, carry, 1, 1, 2)", "(void)carry", "r->w[0] = v0"}, "carry in of 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := parse(t, body(tt.stmts...)).Branch(32).Func("f")
			_, err := fn.Run(32, 1, map[string][]uint64{"r": {0}, "a": {7}})
			if !errors.Is(err, ErrRuntime) || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Run error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name, src string
	}{
		{"no endif", "#if BIGNUM_INT_BITS == 32\n"},
		{"elif first", "#elif BIGNUM_INT_BITS == 32\n#endif\n"},
		{"duplicate width", "#if BIGNUM_INT_BITS == 32\n#elif BIGNUM_INT_BITS == 32\n#endif\n"},
		{"no semicolon", "#if BIGNUM_INT_BITS == 32\nstatic void f(bigval *r)\n{\n    r->w[0] = 0\n}\n#endif\n"},
		{"text after endif", body("r->w[0] = 0") + "x"},
		{"unknown macro", body("BignumSUB(v0, v1, 2, 3)")},
		{"missing brace", "#if BIGNUM_INT_BITS == 32\nstatic void f(bigval *r)\n    r->w[0] = 0;\n}\n#endif\n"},
		{"bad token", body("r->w[0] = 3 / 4")},
		{"trailing text", body("r->w[0] = 3 4")},
		{"unterminated comment", "/*\n * x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseFile(tt.src); !errors.Is(err, ErrSyntax) {
				t.Errorf("ParseFile error = %v, want ErrSyntax", err)
			}
		})
	}
}

func TestPrecedence(t *testing.T) {
	tests := []struct {
		src  string
		want uint64
	}{
		{"r->w[0] = 1 + 2 * 3", 7},
		{"r->w[0] = 1 << 2 + 1", 8},
		{"r->w[0] = 6 & 3 | 8", 10},
		{"r->w[0] = (1 + 2) * 3", 9},
		{"r->w[0] = 0 - 1", 0xffffffff},
		{"r->w[0] = 10 - 3 - 2", 5},
	}
	for _, tt := range tests {
		fn := parse(t, body(tt.src)).Branch(32).Func("f")
		out, err := fn.Run(32, 1, map[string][]uint64{"r": {0}, "a": {0}})
		if err != nil {
			t.Errorf("%s: %v", tt.src, err)
			continue
		}
		if out["r"][0] != tt.want {
			t.Errorf("%s gave %d, want %d", tt.src, out["r"][0], tt.want)
		}
	}
}

func TestWords(t *testing.T) {
	x, _ := new(big.Int).SetString("123456789abcdef0123456789", 16)
	ws := ToWords(x, 16, 9)
	want := []uint64{0x6789, 0x2345, 0xef01, 0xabcd, 0x6789, 0x2345, 0x1, 0, 0}
	if diff := cmp.Diff(want, ws); diff != "" {
		t.Errorf("ToWords (-want +got):\n%s", diff)
	}
	if got := FromWords(ws, 16); got.Cmp(x) != 0 {
		t.Errorf("FromWords(ToWords(x)) = %x, want %x", got, x)
	}
	if got := ToWords(x, 64, 1); got[0] != 0xabcdef0123456789 {
		t.Errorf("ToWords truncated to one word = %#x", got[0])
	}
}
