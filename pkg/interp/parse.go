package interp

import (
	"fmt"
	"strconv"
	"strings"
)

type expr interface{ isExpr() }

type identExpr struct{ name string }
type numberExpr struct{ value uint64 }
type memberExpr struct {
	ptr   string
	index int
}
type binaryExpr struct {
	op   string
	x, y expr
}
type castExpr struct{ x expr }

func (identExpr) isExpr()  {}
func (numberExpr) isExpr() {}
func (memberExpr) isExpr() {}
func (binaryExpr) isExpr() {}
func (castExpr) isExpr()   {}

type stmt interface{ isStmt() }

type declStmt struct {
	carry bool
	names []string
}
type discardStmt struct{ name string }
type assignStmt struct {
	lhs expr // identExpr or memberExpr
	rhs expr
}
type callStmt struct {
	macro string
	outs  []string
	args  []expr
}

func (declStmt) isStmt()    {}
func (discardStmt) isStmt() {}
func (assignStmt) isStmt()  {}
func (callStmt) isStmt()    {}

// macroOuts maps each understood macro to (outputs, total arguments).
var macroOuts = map[string][2]int{
	"BignumADC":     {2, 5},
	"BignumMUL":     {2, 4},
	"BignumMULADD":  {2, 5},
	"BignumMULADD2": {2, 6},
}

var precedence = map[string]int{"|": 1, "&": 2, "<<": 3, ">>": 3, "+": 4, "-": 4, "*": 5}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) is(text string) bool {
	t := p.peek()
	return t.kind == tokPunct && t.text == text
}

func (p *parser) expect(text string) error {
	if t := p.next(); t.kind != tokPunct || t.text != text {
		return fmt.Errorf("expected '%s' at column %d, found %s", text, t.pos+1, t)
	}
	return nil
}

func (p *parser) ident() (string, error) {
	t := p.next()
	if t.kind != tokIdent {
		return "", fmt.Errorf("expected identifier at column %d, found %s", t.pos+1, t)
	}
	return t.text, nil
}

func (p *parser) end() error {
	if t := p.peek(); t.kind != tokEOF {
		return fmt.Errorf("unexpected %s at column %d", t, t.pos+1)
	}
	return nil
}

// parseStmt parses one body statement with its semicolon removed.
func parseStmt(src string) (stmt, error) {
	switch {
	case strings.HasPrefix(src, "BignumInt "):
		return parseDecl(strings.TrimPrefix(src, "BignumInt "), false)
	case strings.HasPrefix(src, "BignumCarry "):
		return parseDecl(strings.TrimPrefix(src, "BignumCarry "), true)
	case strings.HasPrefix(src, "(void)"):
		name := strings.TrimSpace(strings.TrimPrefix(src, "(void)"))
		if !validIdent(name) {
			return nil, fmt.Errorf("bad discard %q", src)
		}
		return discardStmt{name: name}, nil
	}

	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	if first := p.peek(); first.kind == tokIdent && len(p.toks) > 1 && p.toks[1].kind == tokPunct && p.toks[1].text == "(" {
		return p.call()
	}
	lhs, err := p.primary()
	if err != nil {
		return nil, err
	}
	switch lhs.(type) {
	case identExpr, memberExpr:
	default:
		return nil, fmt.Errorf("cannot assign to expression")
	}
	if err := p.expect("="); err != nil {
		return nil, err
	}
	rhs, err := p.expr(1)
	if err != nil {
		return nil, err
	}
	if err := p.end(); err != nil {
		return nil, err
	}
	return assignStmt{lhs: lhs, rhs: rhs}, nil
}

func parseDecl(list string, carry bool) (stmt, error) {
	var names []string
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if !validIdent(name) {
			return nil, fmt.Errorf("bad declaration of %q", name)
		}
		names = append(names, name)
	}
	return declStmt{carry: carry, names: names}, nil
}

func validIdent(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentStart(s[i]) && !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func (p *parser) call() (stmt, error) {
	macro, _ := p.ident()
	shape, ok := macroOuts[macro]
	if !ok {
		return nil, fmt.Errorf("unknown macro %s", macro)
	}
	if err := p.expect("("); err != nil {
		return nil, err
	}
	c := callStmt{macro: macro}
	for i := 0; i < shape[1]; i++ {
		if i > 0 {
			if err := p.expect(","); err != nil {
				return nil, err
			}
		}
		if i < shape[0] {
			name, err := p.ident()
			if err != nil {
				return nil, err
			}
			c.outs = append(c.outs, name)
			continue
		}
		arg, err := p.expr(1)
		if err != nil {
			return nil, err
		}
		c.args = append(c.args, arg)
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	return c, p.end()
}

// expr parses a binary expression whose operators bind at least as
// tightly as minPrec. All operators are left associative.
func (p *parser) expr(minPrec int) (expr, error) {
	x, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		prec, ok := precedence[t.text]
		if t.kind != tokPunct || !ok || prec < minPrec {
			return x, nil
		}
		p.next()
		y, err := p.expr(prec + 1)
		if err != nil {
			return nil, err
		}
		x = binaryExpr{op: t.text, x: x, y: y}
	}
}

func (p *parser) unary() (expr, error) {
	if p.is("(") && p.toks[p.pos+1].kind == tokIdent && p.toks[p.pos+1].text == "BignumInt" {
		p.next()
		p.next()
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return castExpr{x: x}, nil
	}
	return p.primary()
}

func (p *parser) primary() (expr, error) {
	t := p.next()
	switch {
	case t.kind == tokNumber:
		return numberExpr{value: t.num}, nil
	case t.kind == tokIdent:
		if !p.is("->") {
			return identExpr{name: t.text}, nil
		}
		p.next()
		if field, err := p.ident(); err != nil || field != "w" {
			return nil, fmt.Errorf("expected ->w[] at column %d", t.pos+1)
		}
		if err := p.expect("["); err != nil {
			return nil, err
		}
		idx := p.next()
		if idx.kind != tokNumber {
			return nil, fmt.Errorf("expected word index at column %d, found %s", idx.pos+1, idx)
		}
		if err := p.expect("]"); err != nil {
			return nil, err
		}
		return memberExpr{ptr: t.text, index: int(idx.num)}, nil
	case t.kind == tokPunct && t.text == "(":
		x, err := p.expr(1)
		if err != nil {
			return nil, err
		}
		return x, p.expect(")")
	}
	return nil, fmt.Errorf("unexpected %s at column %d", t, t.pos+1)
}

// parseSignature reads "static void NAME(bigval *x, const bigval *y)".
func parseSignature(line string) (name string, params []Param, err error) {
	rest, ok := strings.CutPrefix(line, "static void ")
	if !ok {
		return "", nil, fmt.Errorf("expected function definition, found %q", line)
	}
	open, close := strings.Index(rest, "("), strings.LastIndex(rest, ")")
	if open < 0 || close < open {
		return "", nil, fmt.Errorf("bad parameter list in %q", line)
	}
	name = rest[:open]
	for _, part := range strings.Split(rest[open+1:close], ",") {
		part = strings.TrimSpace(part)
		const_ := strings.HasPrefix(part, "const ")
		part = strings.TrimPrefix(part, "const ")
		pname, ok := strings.CutPrefix(part, "bigval *")
		if !ok || !validIdent(pname) {
			return "", nil, fmt.Errorf("bad parameter %q in %q", part, line)
		}
		params = append(params, Param{Name: pname, Const: const_})
	}
	return name, params, nil
}

func parseWidth(line, keyword string) (int, error) {
	rest, ok := strings.CutPrefix(line, keyword+" BIGNUM_INT_BITS == ")
	if !ok {
		return 0, fmt.Errorf("expected '%s BIGNUM_INT_BITS == N', found %q", keyword, line)
	}
	return strconv.Atoi(strings.TrimSpace(rest))
}
