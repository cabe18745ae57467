package codegen

import (
	"fmt"
	"math/big"

	"github.com/larryli/PuTTY-sub000/pkg/config"
	"github.com/larryli/PuTTY-sub000/pkg/ir"
	"github.com/larryli/PuTTY-sub000/pkg/util"
)

// Multiprecision is a symbolic integer whose true value is known to lie in
// [min, max]. Words are least significant first and there are exactly as
// many as max needs; words past the end read as literal zero.
type Multiprecision struct {
	t     *Target
	min   *big.Int
	max   *big.Int
	words []ir.WordExpr
}

func (t *Target) newMultiprecision(minval, maxval *big.Int, words []ir.WordExpr) Multiprecision {
	if minval.Sign() < 0 || minval.Cmp(maxval) > 0 {
		internalError("bad range [%s, %s]", minval, maxval)
	}
	if n := t.nwords(maxval); n != len(words) {
		internalError("range max %s needs %d words, value has %d", maxval, n, len(words))
	}
	return Multiprecision{t: t, min: minval, max: maxval, words: words}
}

func (m Multiprecision) Min() *big.Int { return new(big.Int).Set(m.min) }
func (m Multiprecision) Max() *big.Int { return new(big.Int).Set(m.max) }

func (m Multiprecision) Words() []ir.WordExpr { return append([]ir.WordExpr(nil), m.words...) }

// Word returns word n, zero-extending past the top.
func (m Multiprecision) Word(n int) ir.WordExpr {
	if n < len(m.words) {
		return m.words[n]
	}
	return ir.Literal{Value: 0}
}

func (m Multiprecision) String() string {
	return fmt.Sprintf("[%s, %s]%v", m.min, m.max, m.words)
}

func (m Multiprecision) sameTarget(rhs Multiprecision) {
	if m.t != rhs.t {
		internalError("values from different targets combined")
	}
}

// Add returns m + rhs as a ripple carry chain.
func (m Multiprecision) Add(rhs Multiprecision) Multiprecision {
	m.sameTarget(rhs)
	t := m.t
	newmin := new(big.Int).Add(m.min, rhs.min)
	newmax := new(big.Int).Add(m.max, rhs.max)
	words := make([]ir.WordExpr, t.nwords(newmax))

	var carry ir.Carry
	for i := range words {
		var v ir.Var
		if i == 0 {
			v, carry = t.add(m.Word(i), rhs.Word(i))
		} else {
			v, carry = t.adc(m.Word(i), rhs.Word(i), carry)
		}
		words[i] = v
	}
	return t.newMultiprecision(newmin, newmax, words)
}

// Mul returns m * rhs by schoolbook multiplication, row by row over the
// words of m. Top words that the range of the product proves to be zero
// are dropped.
func (m Multiprecision) Mul(rhs Multiprecision) Multiprecision {
	m.sameTarget(rhs)
	t := m.t
	newmin := new(big.Int).Mul(m.min, rhs.min)
	newmax := new(big.Int).Mul(m.max, rhs.max)
	if len(m.words) == 0 || len(rhs.words) == 0 {
		return t.newMultiprecision(newmin, newmax, nil)
	}

	var prev []ir.WordExpr
	for i, sword := range m.words {
		row := append([]ir.WordExpr(nil), prev[:i]...)
		var rprev ir.WordExpr
		for j, rword := range rhs.words {
			var addends []ir.WordExpr
			if i+j < len(prev) {
				addends = append(addends, prev[i+j])
			}
			if rprev != nil {
				addends = append(addends, rprev)
			}
			hi, lo := t.muladd(sword, rword, addends...)
			row = append(row, lo)
			rprev = hi
		}
		prev = append(row, rprev)
	}

	// Every product is at most newmax < 2^(bits*n), so words n and up are
	// zero whenever the operands respect their ranges.
	n := t.nwords(newmax)
	if n > len(prev) {
		internalError("product needs %d words, schoolbook produced %d", n, len(prev))
	}
	if n < len(prev) {
		util.Warn(t.cfg, config.WarnTruncate, "%d-bit product: dropping %d top word(s) proven zero", t.bits, len(prev)-n)
	}
	return t.newMultiprecision(newmin, newmax, prev[:n])
}

// ExtractBits returns (m >> start) & (2^bits - 1).
func (m Multiprecision) ExtractBits(start, bits int) Multiprecision {
	if start < 0 || bits < 0 {
		internalError("extract of %d bits at %d", bits, start)
	}
	return m.extract(start, bits)
}

// ShiftRight returns m >> start with no mask.
func (m Multiprecision) ShiftRight(start int) Multiprecision {
	if start < 0 {
		internalError("shift by %d", start)
	}
	return m.extract(start, new(big.Int).Rsh(m.max, uint(start)).BitLen())
}

func (m Multiprecision) extract(start, bits int) Multiprecision {
	t := m.t
	lo := new(big.Int).Rsh(m.min, uint(start))
	hi := new(big.Int).Rsh(m.max, uint(start))
	mask := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	mask.Sub(mask, big.NewInt(1))

	// If min and max agree above the window, no value in between wraps
	// round the window and the range maps across exactly.
	var newmin, newmax *big.Int
	if new(big.Int).Rsh(lo, uint(bits)).Cmp(new(big.Int).Rsh(hi, uint(bits))) == 0 {
		newmin = lo.And(lo, mask)
		newmax = hi.And(hi, mask)
	} else {
		newmin = new(big.Int)
		newmax = mask
	}

	srcTop := m.max.BitLen()
	words := make([]ir.WordExpr, t.nwords(newmax))
	for i := range words {
		srcpos := i*t.bits + start
		maxbits := min(t.bits, start+bits-srcpos)
		index, offset := srcpos/t.bits, srcpos%t.bits

		var word ir.WordExpr
		avail := t.bits
		switch {
		case offset == 0:
			word = m.Word(index)
		case index+1 >= len(m.words) || offset+maxbits <= t.bits:
			word = t.newValue(fmt.Sprintf("(%s) >> %d", m.Word(index), offset), m.Word(index))
			avail = t.bits - offset
		default:
			word = t.newValue(fmt.Sprintf("((%s) >> %d) | ((%s) << %d)",
				m.Word(index), offset, m.Word(index+1), t.bits-offset), m.Word(index), m.Word(index+1))
		}
		// Mask only when the word may carry set bits above the window.
		if maxbits < avail && srcpos+maxbits < srcTop {
			word = t.newValue(fmt.Sprintf("(%s) & ((((BignumInt)1) << %d)-1)", word, maxbits), word)
		}
		words[i] = word
	}
	return t.newMultiprecision(newmin, newmax, words)
}
