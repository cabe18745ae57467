// Package field describes the arithmetic routines for the field of
// integers mod p = 2^130 - 5 in terms of bounded multiprecision values.
package field

import (
	"fmt"
	"math/big"

	"github.com/larryli/PuTTY-sub000/pkg/codegen"
)

// InputBits bounds every bigval input. Values may exceed the 130-bit
// field by a few bits because reduction elsewhere is lazy: a full 130-bit
// value plus 5 times another plus a carry stays below 8 * 2^130.
const InputBits = 133

// P is the field modulus 2^130 - 5.
var P = func() *big.Int {
	p := new(big.Int).Lsh(big.NewInt(1), codegen.FieldBits)
	return p.Sub(p, big.NewInt(5))
}()

// Routine is one generated C function.
type Routine struct {
	Name      string
	Signature string
	Params    []string
	Build     func(t *codegen.Target) error
}

var Routines = []Routine{
	{
		Name:      "add",
		Signature: "static void bigval_add(bigval *r, const bigval *a, const bigval *b)",
		Params:    []string{"a", "b"},
		Build:     GenAdd,
	},
	{
		Name:      "mul_mod_p",
		Signature: "static void bigval_mul_mod_p(bigval *r, const bigval *a, const bigval *b)",
		Params:    []string{"a", "b"},
		Build:     GenMulModP,
	},
	{
		Name:      "final_reduce",
		Signature: "static void bigval_final_reduce(bigval *n)",
		Params:    []string{"n"},
		Build:     GenFinalReduce,
	},
}

// Lookup finds a routine by name.
func Lookup(name string) (Routine, bool) {
	for _, r := range Routines {
		if r.Name == name {
			return r, true
		}
	}
	return Routine{}, false
}

// GenAdd adds without reducing mod p, so that the same routine serves
// polynomial accumulation and the final mod 2^128 addition of the
// encrypted nonce.
func GenAdd(t *codegen.Target) error {
	a := t.Input("a", InputBits)
	b := t.Input("b", InputBits)
	t.Output("r", a.Add(b))
	return nil
}

// GenMulModP multiplies and partially reduces. The double width product
// is split as ab0 + 2^130 ab1 + 2^260 ab2, and since 2^130 = 5 (mod p)
// it is congruent to ab0 + 5 ab1 + 25 ab2.
func GenMulModP(t *codegen.Target) error {
	a := t.Input("a", InputBits)
	b := t.Input("b", InputBits)
	ab := a.Mul(b)
	ab0 := ab.ExtractBits(0, codegen.FieldBits)
	ab1 := ab.ExtractBits(codegen.FieldBits, codegen.FieldBits)
	ab2 := ab.ShiftRight(2 * codegen.FieldBits)

	five, err := t.Const(5)
	if err != nil {
		return fmt.Errorf("mul_mod_p: %w", err)
	}
	twentyFive, err := t.Const(25)
	if err != nil {
		return fmt.Errorf("mul_mod_p: %w", err)
	}
	t.Output("r", ab0.Add(five.Mul(ab1)).Add(twentyFive.Mul(ab2)))
	return nil
}

// GenFinalReduce reduces n fully mod p. First the bits above 2^130 are
// folded back in as 5 per unit, leaving n' < 2^130 + 35. Then n' >= p
// exactly when n' + 5 reaches bit 130, and that bit q is 0 or 1, so
// adding 5q and keeping the low 130 bits subtracts p precisely when
// needed.
func GenFinalReduce(t *codegen.Target) error {
	n := t.Input("n", InputBits)
	five, err := t.Const(5)
	if err != nil {
		return fmt.Errorf("final_reduce: %w", err)
	}

	folded := n.ExtractBits(0, codegen.FieldBits).Add(five.Mul(n.ShiftRight(codegen.FieldBits)))
	q := folded.Add(five).ExtractBits(codegen.FieldBits, 1)
	t.Output("n", folded.Add(five.Mul(q)).ExtractBits(0, codegen.FieldBits))
	return nil
}
