package ir

import (
	"fmt"
	"strconv"
)

// VarID names an ordinary word variable. IDs are dense and allocated in
// strictly increasing order by one codegen target.
type VarID int

// CarryID names one state of the single carry flag.
type CarryID int

// StmtID is the index of a statement in its target's log.
type StmtID int

// NoStmt marks a variable or carry whose generator has not been recorded.
const NoStmt StmtID = -1

// CarryName is the only carry variable the emitted code ever declares.
const CarryName = "carry"

type Value interface {
	isValue()
	String() string
}

// WordExpr is the content of one word of a multiprecision value: either a
// Literal or a Var.
type WordExpr interface {
	Value
	isWord()
}

type Literal struct{ Value uint64 }
type Var struct{ ID VarID }
type Carry struct{ ID CarryID }

func (Literal) isValue() {}
func (Var) isValue()     {}
func (Carry) isValue()   {}

func (Literal) isWord() {}
func (Var) isWord()     {}

func (l Literal) String() string { return strconv.FormatUint(l.Value, 10) }
func (v Var) String() string     { return "v" + strconv.Itoa(int(v.ID)) }

// String gives the carry's identity for listings. The C text always
// refers to CarryName.
func (c Carry) String() string { return CarryName + strconv.Itoa(int(c.ID)) }

// MaxWrites bounds the number of outputs one statement may have.
const MaxWrites = 2

// Mask selects a subset of a statement's writes. Writes[k] corresponds to
// bit len(Writes)-1-k, so the last (least significant) write is bit 0.
type Mask uint8

func (m Mask) Has(bit int) bool { return m&(1<<uint(bit)) != 0 }

// Statement is one primitive operation. Forms[m] is the C text computing
// at least the writes selected by m; an empty form is not available.
type Statement struct {
	Reads  []Value
	Writes []Value
	Forms  [1 << MaxWrites]string
}

// Size is the number of meaningful entries in Forms.
func (s *Statement) Size() int { return 1 << uint(len(s.Writes)) }

// WriteAt returns the write selected by mask bit number bit.
func (s *Statement) WriteAt(bit int) Value {
	if bit < 0 || bit >= len(s.Writes) {
		panic(fmt.Sprintf("ir: write bit %d outside statement with %d writes", bit, len(s.Writes)))
	}
	return s.Writes[len(s.Writes)-1-bit]
}

// MaskOf builds the mask of writes for which used reports true.
func (s *Statement) MaskOf(used func(Value) bool) Mask {
	var m Mask
	for _, w := range s.Writes {
		m <<= 1
		if used(w) {
			m |= 1
		}
	}
	return m
}

// Form returns the rendering for m. It panics if m is outside the table
// or names no available rendering.
func (s *Statement) Form(m Mask) string {
	if int(m) >= s.Size() {
		panic(fmt.Sprintf("ir: mask %d outside form table of size %d", m, s.Size()))
	}
	if s.Forms[m] == "" {
		panic(fmt.Sprintf("ir: no form for mask %d of %s", m, s.Forms))
	}
	return s.Forms[m]
}

// Widest returns the highest mask whose form is textually identical to
// the form for m. Bits in Widest(m) &^ m are outputs the chosen form
// computes whether or not anyone reads them.
func (s *Statement) Widest(m Mask) Mask {
	form := s.Form(m)
	widest := m
	for i := int(m) + 1; i < s.Size(); i++ {
		if s.Forms[i] == form {
			widest = Mask(i)
		}
	}
	return widest
}
