package field

import (
	"errors"
	"fmt"
	"math/big"
	"math/rand/v2"

	"github.com/larryli/PuTTY-sub000/pkg/codegen"
	"github.com/larryli/PuTTY-sub000/pkg/config"
	"github.com/larryli/PuTTY-sub000/pkg/interp"
	"github.com/larryli/PuTTY-sub000/pkg/util"
)

var ErrMismatch = errors.New("result mismatch")

// FuncName is the C identifier of the routine.
func (r Routine) FuncName() string { return "bigval_" + r.Name }

// inputLimit is the exclusive bound 2^InputBits on every input.
var inputLimit = new(big.Int).Lsh(big.NewInt(1), InputBits)

// edgeValues are inputs every check includes besides the random ones.
func edgeValues() []*big.Int {
	one := big.NewInt(1)
	pow130 := new(big.Int).Lsh(one, codegen.FieldBits)
	return []*big.Int{
		new(big.Int),
		one,
		new(big.Int).Sub(P, one),
		new(big.Int).Set(P),
		new(big.Int).Add(P, one),
		pow130,
		new(big.Int).Sub(new(big.Int).Lsh(P, 1), one),
		new(big.Int).Sub(inputLimit, one),
	}
}

// check compares one routine output with big integer arithmetic.
type check func(args []*big.Int, got *big.Int) error

var checks = map[string]check{
	"add": func(args []*big.Int, got *big.Int) error {
		want := new(big.Int).Add(args[0], args[1])
		if got.Cmp(want) != 0 {
			return fmt.Errorf("%w: %v + %v = %v, got %v", ErrMismatch, args[0], args[1], want, got)
		}
		return nil
	},
	"mul_mod_p": func(args []*big.Int, got *big.Int) error {
		want := new(big.Int).Mul(args[0], args[1])
		want.Mod(want, P)
		if got.Cmp(inputLimit) >= 0 {
			return fmt.Errorf("%w: %v * %v gave %v, not below 2^%d", ErrMismatch, args[0], args[1], got, InputBits)
		}
		if r := new(big.Int).Mod(got, P); r.Cmp(want) != 0 {
			return fmt.Errorf("%w: %v * %v = %v mod p, got %v", ErrMismatch, args[0], args[1], want, got)
		}
		return nil
	},
	"final_reduce": func(args []*big.Int, got *big.Int) error {
		want := new(big.Int).Mod(args[0], P)
		if got.Cmp(want) != 0 {
			return fmt.Errorf("%w: %v mod p = %v, got %v", ErrMismatch, args[0], want, got)
		}
		return nil
	},
}

// Verify parses a generated file and runs every configured routine for
// every active width on the edge values and on samples random inputs,
// comparing each result with the reference arithmetic.
func Verify(src string, cfg *config.Config, samples int, seed uint64) error {
	file, err := interp.ParseFile(src)
	if err != nil {
		return err
	}
	if !file.HasErrorFallback {
		return fmt.Errorf("%w: missing #error fallback", interp.ErrSyntax)
	}
	routines, err := selected(cfg)
	if err != nil {
		return err
	}

	for _, bits := range cfg.ActiveWidths() {
		branch := file.Branch(bits)
		if branch == nil {
			return fmt.Errorf("no branch for BIGNUM_INT_BITS == %d", bits)
		}
		words := (codegen.FieldBits + bits - 1) / bits
		rng := rand.New(rand.NewPCG(seed, uint64(bits)))
		for _, r := range routines {
			fn := branch.Func(r.FuncName())
			if fn == nil {
				return fmt.Errorf("%d-bit branch lacks %s", bits, r.FuncName())
			}
			cases := inputCases(rng, len(r.Params), samples)
			for _, args := range cases {
				if err := runCase(r, fn, bits, words, args); err != nil {
					return fmt.Errorf("%d-bit %s: %w", bits, r.FuncName(), err)
				}
			}
			util.Info(cfg, "%d-bit %s: %d cases passed", bits, r.FuncName(), len(cases))
		}
	}
	return nil
}

func runCase(r Routine, fn *interp.Func, bits, words int, args []*big.Int) error {
	in := map[string][]uint64{}
	for _, p := range fn.Params {
		in[p.Name] = make([]uint64, words)
	}
	for i, name := range r.Params {
		in[name] = interp.ToWords(args[i], bits, words)
	}
	out, err := fn.Run(bits, words, in)
	if err != nil {
		return err
	}
	result := fn.Params[0].Name
	return checks[r.Name](args, interp.FromWords(out[result], bits))
}

// inputCases pairs every edge value with every other for each parameter
// position, then adds samples random tuples.
func inputCases(rng *rand.Rand, arity, samples int) [][]*big.Int {
	edges := edgeValues()
	cases := [][]*big.Int{{}}
	for range arity {
		var next [][]*big.Int
		for _, c := range cases {
			for _, e := range edges {
				next = append(next, append(append([]*big.Int(nil), c...), e))
			}
		}
		cases = next
	}
	for range samples {
		args := make([]*big.Int, arity)
		for i := range args {
			args[i] = randomInput(rng)
		}
		cases = append(cases, args)
	}
	return cases
}

// randomInput draws a value below 2^InputBits whose bit length is itself
// random, so that short operands are exercised as often as long ones.
func randomInput(rng *rand.Rand) *big.Int {
	n := rng.IntN(InputBits + 1)
	x := new(big.Int)
	for i := 0; i < n; i += 64 {
		x.Lsh(x, 64)
		x.Or(x, new(big.Int).SetUint64(rng.Uint64()))
	}
	mask := new(big.Int).Lsh(big.NewInt(1), uint(n))
	return x.And(x, mask.Sub(mask, big.NewInt(1)))
}
