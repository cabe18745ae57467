// Package interp reads back generated bigval routines and executes them
// on concrete words, so that generated text can be checked against
// reference arithmetic without a C compiler.
package interp

import (
	"errors"
	"fmt"
	"math/big"
	"math/bits"
	"strings"
)

var (
	ErrSyntax  = errors.New("syntax error")
	ErrRuntime = errors.New("runtime error")
)

// File is a parsed generated file.
type File struct {
	Branches         []*Branch
	HasErrorFallback bool
}

// Branch holds the functions compiled for one BIGNUM_INT_BITS value.
type Branch struct {
	Bits  int
	Funcs []*Func
}

// Branch finds the branch for a word width.
func (f *File) Branch(bits int) *Branch {
	for _, b := range f.Branches {
		if b.Bits == bits {
			return b
		}
	}
	return nil
}

func (b *Branch) Func(name string) *Func {
	for _, fn := range b.Funcs {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

type Param struct {
	Name  string
	Const bool
}

type Func struct {
	Name   string
	Params []Param
	Body   []string
	stmts  []stmt
}

func syntaxErr(line int, format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrSyntax, line, fmt.Sprintf(format, args...))
}

// ParseFile parses the whole generated file: a leading comment, one
// conditional branch per width, and the #error fallback.
func ParseFile(src string) (*File, error) {
	lines := strings.Split(src, "\n")
	f := &File{}
	var cur *Branch
	var fn *Func
	inComment, ended, brace := false, false, false

	for i, line := range lines {
		lineno := i + 1
		switch {
		case brace:
			if line != "{" {
				return nil, syntaxErr(lineno, "expected '{' after %s", fn.Name)
			}
			brace = false
		case inComment:
			if strings.HasSuffix(strings.TrimSpace(line), "*/") {
				inComment = false
			}
		case fn != nil:
			if line == "}" {
				cur.Funcs = append(cur.Funcs, fn)
				fn = nil
				continue
			}
			body := strings.TrimSpace(line)
			if body == "" {
				continue
			}
			text, ok := strings.CutSuffix(body, ";")
			if !ok {
				return nil, syntaxErr(lineno, "missing ';' in %q", body)
			}
			s, err := parseStmt(text)
			if err != nil {
				return nil, syntaxErr(lineno, "%v", err)
			}
			fn.Body = append(fn.Body, text)
			fn.stmts = append(fn.stmts, s)
		case strings.TrimSpace(line) == "":
		case ended:
			return nil, syntaxErr(lineno, "text after #endif")
		case strings.HasPrefix(line, "/*"):
			inComment = !strings.HasSuffix(line, "*/") || line == "/*"
		case strings.HasPrefix(line, "#if ") || strings.HasPrefix(line, "#elif "):
			keyword := "#if"
			if strings.HasPrefix(line, "#elif ") {
				keyword = "#elif"
			}
			if (keyword == "#if") != (len(f.Branches) == 0) || f.HasErrorFallback {
				return nil, syntaxErr(lineno, "misplaced %s", keyword)
			}
			w, err := parseWidth(line, keyword)
			if err != nil {
				return nil, syntaxErr(lineno, "%v", err)
			}
			if f.Branch(w) != nil {
				return nil, syntaxErr(lineno, "duplicate branch for %d bits", w)
			}
			cur = &Branch{Bits: w}
			f.Branches = append(f.Branches, cur)
		case line == "#else":
			if cur == nil || f.HasErrorFallback {
				return nil, syntaxErr(lineno, "misplaced #else")
			}
			f.HasErrorFallback = true
			cur = nil
		case strings.HasPrefix(line, "#error"):
			if !f.HasErrorFallback {
				return nil, syntaxErr(lineno, "#error outside #else")
			}
		case line == "#endif":
			if len(f.Branches) == 0 {
				return nil, syntaxErr(lineno, "#endif without #if")
			}
			ended = true
			cur = nil
		default:
			if cur == nil {
				return nil, syntaxErr(lineno, "function outside a width branch")
			}
			name, params, err := parseSignature(line)
			if err != nil {
				return nil, syntaxErr(lineno, "%v", err)
			}
			if cur.Func(name) != nil {
				return nil, syntaxErr(lineno, "%s defined twice", name)
			}
			fn = &Func{Name: name, Params: params}
			brace = true
		}
	}
	switch {
	case inComment:
		return nil, syntaxErr(len(lines), "unterminated comment")
	case fn != nil:
		return nil, syntaxErr(len(lines), "unterminated function %s", fn.Name)
	case !ended:
		return nil, syntaxErr(len(lines), "missing #endif")
	}
	return f, nil
}

type varKind int

const (
	kindWord varKind = iota + 1
	kindCarry
)

type machine struct {
	bits    int
	mask    uint64
	words   int
	kinds   map[string]varKind
	values  map[string]uint64
	set     map[string]bool
	read    map[string]bool
	params  map[string]Param
	mem     map[string][]uint64
	written map[string][]bool
}

func (m *machine) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRuntime, fmt.Sprintf(format, args...))
}

// Run executes the function with bits-wide words on bigvals of the
// given number of words. in supplies every parameter; the result holds
// the final contents of the non-const parameters. Reading an undeclared
// or unassigned variable, assigning a BignumInt twice, leaving a declared
// variable unused, or leaving an output word unwritten are all errors.
func (f *Func) Run(bits, words int, in map[string][]uint64) (map[string][]uint64, error) {
	if bits <= 0 || bits > 64 {
		return nil, fmt.Errorf("%w: word width %d", ErrRuntime, bits)
	}
	m := &machine{
		bits:    bits,
		mask:    ^uint64(0) >> (64 - bits),
		words:   words,
		kinds:   map[string]varKind{},
		values:  map[string]uint64{},
		set:     map[string]bool{},
		read:    map[string]bool{},
		params:  map[string]Param{},
		mem:     map[string][]uint64{},
		written: map[string][]bool{},
	}
	for _, p := range f.Params {
		ws, ok := in[p.Name]
		if !ok {
			return nil, m.errorf("%s: missing parameter %s", f.Name, p.Name)
		}
		if len(ws) != words {
			return nil, m.errorf("%s: parameter %s has %d words, want %d", f.Name, p.Name, len(ws), words)
		}
		m.params[p.Name] = p
		m.mem[p.Name] = append([]uint64(nil), ws...)
		m.written[p.Name] = make([]bool, words)
	}

	for i, s := range f.stmts {
		if err := m.exec(s); err != nil {
			return nil, fmt.Errorf("%s: %q: %w", f.Name, f.Body[i], err)
		}
	}

	for name, kind := range m.kinds {
		if !m.read[name] {
			what := "variable"
			if kind == kindCarry {
				what = "carry"
			}
			return nil, m.errorf("%s: %s %s declared but never used", f.Name, what, name)
		}
	}
	out := map[string][]uint64{}
	for _, p := range f.Params {
		if p.Const {
			continue
		}
		for i, ok := range m.written[p.Name] {
			if !ok {
				return nil, m.errorf("%s: %s->w[%d] never written", f.Name, p.Name, i)
			}
		}
		out[p.Name] = m.mem[p.Name]
	}
	return out, nil
}

func (m *machine) exec(s stmt) error {
	switch s := s.(type) {
	case declStmt:
		kind := kindWord
		if s.carry {
			kind = kindCarry
		}
		for _, name := range s.names {
			if _, ok := m.kinds[name]; ok {
				return m.errorf("%s redeclared", name)
			}
			if _, ok := m.params[name]; ok {
				return m.errorf("%s shadows a parameter", name)
			}
			m.kinds[name] = kind
		}
	case discardStmt:
		_, err := m.load(s.name)
		return err
	case assignStmt:
		v, err := m.eval(s.rhs)
		if err != nil {
			return err
		}
		switch lhs := s.lhs.(type) {
		case identExpr:
			return m.store(lhs.name, v)
		case memberExpr:
			p, ok := m.params[lhs.ptr]
			if !ok {
				return m.errorf("unknown bigval %s", lhs.ptr)
			}
			if p.Const {
				return m.errorf("store through const %s", lhs.ptr)
			}
			if lhs.index >= m.words {
				return m.errorf("%s->w[%d] out of range", lhs.ptr, lhs.index)
			}
			m.mem[lhs.ptr][lhs.index] = v
			m.written[lhs.ptr][lhs.index] = true
		}
	case callStmt:
		args := make([]uint64, len(s.args))
		for i, a := range s.args {
			v, err := m.eval(a)
			if err != nil {
				return err
			}
			args[i] = v
		}
		hi, lo, err := m.call(s.macro, args)
		if err != nil {
			return err
		}
		// BignumADC names (sum, carry), the multiplies (high, low).
		if s.macro == "BignumADC" {
			hi, lo = lo, hi
		}
		if err := m.store(s.outs[0], hi); err != nil {
			return err
		}
		return m.store(s.outs[1], lo)
	}
	return nil
}

func (m *machine) load(name string) (uint64, error) {
	if _, ok := m.kinds[name]; !ok {
		return 0, m.errorf("%s undeclared", name)
	}
	if !m.set[name] {
		return 0, m.errorf("%s read before assignment", name)
	}
	m.read[name] = true
	return m.values[name], nil
}

func (m *machine) store(name string, v uint64) error {
	kind, ok := m.kinds[name]
	switch {
	case !ok:
		return m.errorf("%s undeclared", name)
	case kind == kindWord && m.set[name]:
		return m.errorf("%s assigned twice", name)
	case kind == kindCarry && v > 1:
		return m.errorf("carry set to %d", v)
	}
	m.values[name] = v
	m.set[name] = true
	return nil
}

// call implements the word macros. The first result is the high word
// or carry, the second the low word.
func (m *machine) call(macro string, args []uint64) (hi, lo uint64, err error) {
	switch macro {
	case "BignumADC":
		if args[2] > 1 {
			return 0, 0, m.errorf("carry in of %d", args[2])
		}
		if m.bits == 64 {
			lo, hi = bits.Add64(args[0], args[1], args[2])
			return hi, lo, nil
		}
		sum := args[0] + args[1] + args[2]
		return sum >> m.bits, sum & m.mask, nil
	case "BignumMUL", "BignumMULADD", "BignumMULADD2":
		if m.bits == 64 {
			hi, lo = bits.Mul64(args[0], args[1])
			for _, a := range args[2:] {
				var c uint64
				lo, c = bits.Add64(lo, a, 0)
				hi += c
			}
			return hi, lo, nil
		}
		// (2^W-1)^2 + 2(2^W-1) = 2^2W - 1, so the sum fits for W <= 32.
		p := args[0] * args[1]
		for _, a := range args[2:] {
			p += a
		}
		return p >> m.bits, p & m.mask, nil
	}
	return 0, 0, m.errorf("unknown macro %s", macro)
}

func (m *machine) eval(e expr) (uint64, error) {
	switch e := e.(type) {
	case numberExpr:
		if e.value > m.mask {
			return 0, m.errorf("literal %d wider than %d bits", e.value, m.bits)
		}
		return e.value, nil
	case identExpr:
		return m.load(e.name)
	case memberExpr:
		if _, ok := m.params[e.ptr]; !ok {
			return 0, m.errorf("unknown bigval %s", e.ptr)
		}
		if e.index >= m.words {
			return 0, m.errorf("%s->w[%d] out of range", e.ptr, e.index)
		}
		return m.mem[e.ptr][e.index], nil
	case castExpr:
		v, err := m.eval(e.x)
		return v & m.mask, err
	case binaryExpr:
		x, err := m.eval(e.x)
		if err != nil {
			return 0, err
		}
		y, err := m.eval(e.y)
		if err != nil {
			return 0, err
		}
		var r uint64
		switch e.op {
		case "+":
			r = x + y
		case "-":
			r = x - y
		case "*":
			r = x * y
		case "&":
			r = x & y
		case "|":
			r = x | y
		case "<<", ">>":
			if y >= uint64(m.bits) {
				return 0, m.errorf("shift by %d of a %d-bit word", y, m.bits)
			}
			if e.op == "<<" {
				r = x << y
			} else {
				r = x >> y
			}
		}
		return r & m.mask, nil
	}
	return 0, m.errorf("bad expression")
}

// ToWords splits a non-negative x into n little-endian words of the
// given width. Bits above n words are dropped.
func ToWords(x *big.Int, width, n int) []uint64 {
	ws := make([]uint64, n)
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(width)), big.NewInt(1))
	v, w := new(big.Int).Set(x), new(big.Int)
	for i := range ws {
		ws[i] = w.And(v, mask).Uint64()
		v.Rsh(v, uint(width))
	}
	return ws
}

// FromWords reassembles little-endian words of the given width.
func FromWords(ws []uint64, width int) *big.Int {
	x := new(big.Int)
	for i := len(ws) - 1; i >= 0; i-- {
		x.Lsh(x, uint(width))
		x.Or(x, new(big.Int).SetUint64(ws[i]))
	}
	return x
}
