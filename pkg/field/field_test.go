package field

import (
	"bytes"
	"math/big"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/larryli/PuTTY-sub000/pkg/config"
	"github.com/larryli/PuTTY-sub000/pkg/interp"
)

func generate(t *testing.T, cfg *config.Config) string {
	t.Helper()
	var buf bytes.Buffer
	if err := Generate(&buf, cfg); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return buf.String()
}

func allWidths(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig()
	if err := cfg.SetWidths([]string{"8,16,32,64"}); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestGenerateLayout(t *testing.T) {
	out := generate(t, config.NewConfig())

	if !strings.HasPrefix(out, Header+"#if BIGNUM_INT_BITS == 16\n\nstatic void bigval_add(") {
		t.Errorf("unexpected start of output:\n%.200s", out)
	}
	if !strings.HasSuffix(out, "}\n\n"+Footer) {
		t.Errorf("unexpected end of output:\n%s", out[len(out)-200:])
	}

	var order []string
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.HasPrefix(line, "#"):
			order = append(order, line)
		case strings.HasPrefix(line, "static void "):
			order = append(order, line[len("static void "):strings.Index(line, "(")])
		}
	}
	want := []string{
		"#if BIGNUM_INT_BITS == 16", "bigval_add", "bigval_mul_mod_p", "bigval_final_reduce",
		"#elif BIGNUM_INT_BITS == 32", "bigval_add", "bigval_mul_mod_p", "bigval_final_reduce",
		"#elif BIGNUM_INT_BITS == 64", "bigval_add", "bigval_mul_mod_p", "bigval_final_reduce",
		"#else", "#error Add another bit count to bignumgen and rerun it", "#endif",
	}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("structure (-want +got):\n%s", diff)
	}
}

func TestAdd64(t *testing.T) {
	r, _ := Lookup("add")
	got, err := Function(r, 64, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := `static void bigval_add(bigval *r, const bigval *a, const bigval *b)
{
    BignumInt v0, v1, v2, v3, v4, v5, v6, v7, v8;
    BignumCarry carry;

    v0 = a->w[0];
    v1 = a->w[1];
    v2 = a->w[2];
    v3 = b->w[0];
    v4 = b->w[1];
    v5 = b->w[2];
    BignumADC(v6, carry, v0, v3, 0);
    BignumADC(v7, carry, v1, v4, carry);
    v8 = v2 + v5 + carry;
    r->w[0] = v6;
    r->w[1] = v7;
    r->w[2] = v8;
}

`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("bigval_add (-want +got):\n%s", diff)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	cfg := allWidths(t)
	if diff := cmp.Diff(generate(t, cfg), generate(t, cfg)); diff != "" {
		t.Errorf("two runs differ:\n%s", diff)
	}
}

func TestDeclarationLinesFit(t *testing.T) {
	for _, line := range strings.Split(generate(t, allWidths(t)), "\n") {
		if strings.HasPrefix(line, "    BignumInt ") && len(line)+1 >= 79 {
			t.Errorf("declaration of %d characters: %q", len(line), line)
		}
	}
}

func TestVerifyAllWidths(t *testing.T) {
	cfg := allWidths(t)
	if err := Verify(generate(t, cfg), cfg, 200, 42); err != nil {
		t.Fatal(err)
	}
}

func run(t *testing.T, src string, bits int, fn string, args map[string]*big.Int) map[string]*big.Int {
	t.Helper()
	file, err := interp.ParseFile(src)
	if err != nil {
		t.Fatal(err)
	}
	f := file.Branch(bits).Func(fn)
	words := (130 + bits - 1) / bits
	in := map[string][]uint64{}
	for _, p := range f.Params {
		in[p.Name] = interp.ToWords(args[p.Name], bits, words)
	}
	out, err := f.Run(bits, words, in)
	if err != nil {
		t.Fatal(err)
	}
	res := map[string]*big.Int{}
	for name, ws := range out {
		res[name] = interp.FromWords(ws, bits)
	}
	return res
}

func TestFinalReduceBoundaries(t *testing.T) {
	cfg := allWidths(t)
	src := generate(t, cfg)
	one := big.NewInt(1)
	pMinus1 := new(big.Int).Sub(P, one)
	twoP := new(big.Int).Lsh(P, 1)
	top := new(big.Int).Sub(new(big.Int).Lsh(one, InputBits), one)

	tests := []struct {
		n, want *big.Int
	}{
		{big.NewInt(0), big.NewInt(0)},
		{P, big.NewInt(0)},
		{pMinus1, pMinus1},
		{new(big.Int).Add(P, one), one},
		{twoP, big.NewInt(0)},
		{top, new(big.Int).Mod(top, P)},
	}
	for _, bits := range cfg.Widths {
		for _, tt := range tests {
			got := run(t, src, bits, "bigval_final_reduce", map[string]*big.Int{"n": tt.n})["n"]
			if got.Cmp(tt.want) != 0 {
				t.Errorf("%d-bit final_reduce(%v) = %v, want %v", bits, tt.n, got, tt.want)
			}
		}
	}
}

func TestMulModPSmall(t *testing.T) {
	src := generate(t, config.NewConfig())
	for _, bits := range []int{16, 32, 64} {
		got := run(t, src, bits, "bigval_mul_mod_p", map[string]*big.Int{
			"r": new(big.Int),
			"a": big.NewInt(6),
			"b": big.NewInt(7),
		})["r"]
		if got.Cmp(big.NewInt(42)) != 0 {
			t.Errorf("%d-bit 6*7 = %v, want 42", bits, got)
		}
	}
}

func TestSelectedRoutines(t *testing.T) {
	cfg := config.NewConfig()
	if err := cfg.SetRoutines([]string{"final_reduce"}); err != nil {
		t.Fatal(err)
	}
	out := generate(t, cfg)
	if strings.Contains(out, "bigval_add") || strings.Count(out, "bigval_final_reduce") != 3 {
		t.Errorf("routine selection ignored:\n%s", out)
	}

	cfg.Routines = []string{"sub"}
	if err := Generate(&bytes.Buffer{}, cfg); err == nil {
		t.Error("Generate accepted an unknown routine")
	}
}

func TestDumpIR(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Widths = []int{32}
	var buf bytes.Buffer
	if err := DumpIR(&buf, cfg); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"; bigval_add, 32-bit words\n", "; bigval_final_reduce, 32-bit words\n", " root "} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("dump lacks %q", want)
		}
	}
}
