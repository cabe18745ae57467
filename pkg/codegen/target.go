package codegen

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/larryli/PuTTY-sub000/pkg/config"
	"github.com/larryli/PuTTY-sub000/pkg/ir"
)

// FieldBits is the canonical width of the field the bigval type holds.
const FieldBits = 130

var (
	ErrUnsupportedWidth    = errors.New("unsupported word width")
	ErrUnsupportedConstant = errors.New("unsupported constant")
)

// Target is a symbolic machine for one word width. Operations on
// Multiprecision values append statements to its log; Text runs the
// liveness analysis and renders the needed statements as C.
type Target struct {
	bits     int
	bvWords  int
	cfg      *config.Config
	stmts    []ir.Statement
	needed   []bool
	varGen   []ir.StmtID // by VarID
	carryGen []ir.StmtID // by CarryID
}

// NewTarget returns an empty target for the given word width. cfg may be
// nil, in which case no diagnostics are printed.
func NewTarget(bits int, cfg *config.Config) (*Target, error) {
	if !config.SupportedWidth(bits) {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedWidth, bits)
	}
	return &Target{
		bits:    bits,
		bvWords: (FieldBits + bits - 1) / bits,
		cfg:     cfg,
	}, nil
}

func (t *Target) Bits() int { return t.bits }

// BigvalWords is the fixed number of words in a bigval at this width.
func (t *Target) BigvalWords() int { return t.bvWords }

// Statements returns the statement log in creation order.
func (t *Target) Statements() []ir.Statement { return t.stmts }

// nwords is the number of words needed to hold maxval losslessly.
func (t *Target) nwords(maxval *big.Int) int {
	return (maxval.BitLen() + t.bits - 1) / t.bits
}

func internalError(format string, args ...interface{}) {
	panic("codegen: internal error: " + fmt.Sprintf(format, args...))
}

// define mints nvars fresh variables (and a fresh carry when withCarry is
// set), lets build describe the statement that writes them, and records
// that statement as their generator. It is the only place variables come
// into existence.
func (t *Target) define(nvars int, withCarry bool, reads []ir.Value, build func(v []ir.Var, c ir.Carry) ([]ir.Value, [1 << ir.MaxWrites]string)) ([]ir.Var, ir.Carry) {
	id := ir.StmtID(len(t.stmts))
	vars := make([]ir.Var, nvars)
	for i := range vars {
		vars[i] = ir.Var{ID: ir.VarID(len(t.varGen))}
		t.varGen = append(t.varGen, id)
	}
	var carry ir.Carry
	if withCarry {
		carry = ir.Carry{ID: ir.CarryID(len(t.carryGen))}
		t.carryGen = append(t.carryGen, id)
	}
	writes, forms := build(vars, carry)
	if len(writes) != nvars+btoi(withCarry) {
		internalError("statement writes %d values, minted %d", len(writes), nvars+btoi(withCarry))
	}
	t.record(ir.Statement{Reads: reads, Writes: writes, Forms: forms}, false)
	return vars, carry
}

// record appends s to the log. Every value s reads must already have a
// generator earlier in the log.
func (t *Target) record(s ir.Statement, needed bool) ir.StmtID {
	if len(s.Writes) > ir.MaxWrites {
		internalError("statement with %d writes", len(s.Writes))
	}
	for _, r := range s.Reads {
		if gen := t.generator(r); gen == ir.NoStmt && !isLiteral(r) {
			internalError("%s read before it is written", r)
		}
	}
	id := ir.StmtID(len(t.stmts))
	t.stmts = append(t.stmts, s)
	t.needed = append(t.needed, needed)
	return id
}

// generator returns the statement writing v, or NoStmt for literals.
func (t *Target) generator(v ir.Value) ir.StmtID {
	switch v := v.(type) {
	case ir.Var:
		if int(v.ID) < len(t.varGen) {
			return t.varGen[v.ID]
		}
	case ir.Carry:
		if int(v.ID) < len(t.carryGen) {
			return t.carryGen[v.ID]
		}
	}
	return ir.NoStmt
}

func isLiteral(v ir.Value) bool {
	_, ok := v.(ir.Literal)
	return ok
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}

// newValue records a single-output statement "vN = <expr>" where expr is
// produced from the minted variable's operands.
func (t *Target) newValue(expr string, deps ...ir.WordExpr) ir.Var {
	reads := make([]ir.Value, len(deps))
	for i, d := range deps {
		reads[i] = d
	}
	vars, _ := t.define(1, false, reads, func(v []ir.Var, _ ir.Carry) ([]ir.Value, [1 << ir.MaxWrites]string) {
		return []ir.Value{v[0]}, [1 << ir.MaxWrites]string{1: v[0].String() + " = " + expr}
	})
	return vars[0]
}

// Input binds the words of the bigval parameter name as a value of the
// given bit width.
func (t *Target) Input(name string, bits int) Multiprecision {
	words := (bits + t.bits - 1) / t.bits
	if words != t.bvWords {
		internalError("input %s of %d bits needs %d words, bigval has %d", name, bits, words, t.bvWords)
	}
	ws := make([]ir.WordExpr, words)
	for i := range ws {
		ws[i] = t.newValue(name + "->w[" + strconv.Itoa(i) + "]")
	}
	maxval := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	maxval.Sub(maxval, big.NewInt(1))
	return t.newMultiprecision(new(big.Int), maxval, ws)
}

// Const injects a literal. Only values that fit in one word at every
// width of interest and need no literal suffix are supported.
func (t *Target) Const(value uint64) (Multiprecision, error) {
	if value >= 1<<16 || (t.bits < 64 && value >= 1<<uint(t.bits)) {
		return Multiprecision{}, fmt.Errorf("%w: %d does not fit a plain %d-bit literal", ErrUnsupportedConstant, value, t.bits)
	}
	v := new(big.Int).SetUint64(value)
	var words []ir.WordExpr
	if value != 0 {
		words = []ir.WordExpr{ir.Literal{Value: value}}
	}
	return t.newMultiprecision(v, new(big.Int).Set(v), words), nil
}

// Output stores every word of v into the bigval parameter name. These
// stores are the roots of the liveness analysis.
func (t *Target) Output(name string, v Multiprecision) {
	if len(v.words) > t.bvWords {
		internalError("%d-word value does not fit %s with %d words", len(v.words), name, t.bvWords)
	}
	for i := 0; i < t.bvWords; i++ {
		word := v.Word(i)
		t.record(ir.Statement{
			Reads: []ir.Value{word},
			Forms: [1 << ir.MaxWrites]string{name + "->w[" + strconv.Itoa(i) + "] = " + word.String()},
		}, true)
	}
}

// add starts a carry chain: ret = a1 + a2, carry out.
func (t *Target) add(a1, a2 ir.WordExpr) (ir.Var, ir.Carry) {
	vars, carry := t.define(1, true, []ir.Value{a1, a2}, func(v []ir.Var, c ir.Carry) ([]ir.Value, [1 << ir.MaxWrites]string) {
		ret := v[0].String()
		adc := fmt.Sprintf("BignumADC(%s, %s, %s, %s, 0)", ret, ir.CarryName, a1, a2)
		plain := fmt.Sprintf("%s = %s + %s", ret, a1, a2)
		return []ir.Value{c, v[0]}, [1 << ir.MaxWrites]string{"", plain, adc, adc}
	})
	return vars[0], carry
}

// adc continues a carry chain: ret = a1 + a2 + carry in, carry out.
func (t *Target) adc(a1, a2 ir.WordExpr, carryIn ir.Carry) (ir.Var, ir.Carry) {
	vars, carry := t.define(1, true, []ir.Value{a1, a2, carryIn}, func(v []ir.Var, c ir.Carry) ([]ir.Value, [1 << ir.MaxWrites]string) {
		ret := v[0].String()
		adc := fmt.Sprintf("BignumADC(%s, %s, %s, %s, %s)", ret, ir.CarryName, a1, a2, ir.CarryName)
		plain := fmt.Sprintf("%s = %s + %s + %s", ret, a1, a2, ir.CarryName)
		return []ir.Value{c, v[0]}, [1 << ir.MaxWrites]string{"", plain, adc, adc}
	})
	return vars[0], carry
}

var mulMacros = [...]string{"BignumMUL", "BignumMULADD", "BignumMULADD2"}

// muladd computes m1*m2 plus up to two addends as a (high, low) word pair.
func (t *Target) muladd(m1, m2 ir.WordExpr, addends ...ir.WordExpr) (hi, lo ir.Var) {
	if len(addends) >= len(mulMacros) {
		internalError("muladd with %d addends", len(addends))
	}
	reads := []ir.Value{m1, m2}
	for _, a := range addends {
		reads = append(reads, a)
	}
	vars, _ := t.define(2, false, reads, func(v []ir.Var, _ ir.Carry) ([]ir.Value, [1 << ir.MaxWrites]string) {
		rlo, rhi := v[0], v[1]
		args := []string{rhi.String(), rlo.String(), m1.String(), m2.String()}
		narrow := fmt.Sprintf("%s = %s * %s", rlo, m1, m2)
		for _, a := range addends {
			args = append(args, a.String())
			narrow += " + " + a.String()
		}
		wide := mulMacros[len(addends)] + "(" + strings.Join(args, ", ") + ")"
		return []ir.Value{rhi, rlo}, [1 << ir.MaxWrites]string{"", narrow, wide, wide}
	})
	return vars[1], vars[0]
}
