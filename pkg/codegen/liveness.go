package codegen

import (
	"strings"

	"github.com/larryli/PuTTY-sub000/pkg/config"
	"github.com/larryli/PuTTY-sub000/pkg/ir"
	"github.com/larryli/PuTTY-sub000/pkg/util"
)

// declWidth caps the length of one declaration line, newline included.
const declWidth = 79

// Emission is the outcome of the liveness analysis: what to declare and
// which statement texts to emit, in order. Lines carry neither the
// indentation nor the terminating semicolon.
type Emission struct {
	Vars   []ir.VarID
	Carry  bool
	Lines  []string
	Needed []bool
	Masks  []ir.Mask // selected form per statement, zero when dead
}

// usedSet tracks which variables and carries some needed statement reads
// or is forced to compute.
type usedSet struct {
	vars    []bool
	carries []bool
}

func (u *usedSet) has(v ir.Value) bool {
	switch v := v.(type) {
	case ir.Var:
		return u.vars[v.ID]
	case ir.Carry:
		return u.carries[v.ID]
	}
	return false
}

func (u *usedSet) add(v ir.Value) {
	switch v := v.(type) {
	case ir.Var:
		u.vars[v.ID] = true
	case ir.Carry:
		u.carries[v.ID] = true
	}
}

// Compute marks every statement reachable backwards from the output
// stores, picks the cheapest form of each that still produces everything
// read downstream, and adds (void) discards for outputs a chosen form
// cannot avoid producing. The target itself is not modified.
func (t *Target) Compute() *Emission {
	needed := append([]bool(nil), t.needed...)
	used := &usedSet{
		vars:    make([]bool, len(t.varGen)),
		carries: make([]bool, len(t.carryGen)),
	}

	var queue []ir.StmtID
	for i, n := range needed {
		if n {
			queue = append(queue, ir.StmtID(i))
		}
	}
	for len(queue) > 0 {
		s := &t.stmts[queue[0]]
		queue = queue[1:]
		for _, r := range s.Reads {
			if isLiteral(r) {
				continue
			}
			used.add(r)
			gen := t.generator(r)
			if gen == ir.NoStmt {
				internalError("%s has no generator", r)
			}
			if !needed[gen] {
				needed[gen] = true
				queue = append(queue, gen)
			}
		}
	}

	em := &Emission{Needed: needed, Masks: make([]ir.Mask, len(t.stmts))}
	for i := range t.stmts {
		if !needed[i] {
			continue
		}
		s := &t.stmts[i]
		mask := s.MaskOf(used.has)
		if mask == 0 && len(s.Writes) > 0 {
			internalError("statement %d is needed but none of its writes are used", i)
		}
		em.Masks[i] = mask
		em.Lines = append(em.Lines, s.Form(mask))

		extra := s.Widest(mask) &^ mask
		for bit := 0; extra != 0; bit++ {
			if !extra.Has(bit) {
				continue
			}
			extra &^= 1 << uint(bit)
			w := s.WriteAt(bit)
			used.add(w)
			name := w.String()
			if _, ok := w.(ir.Carry); ok {
				name = ir.CarryName
			}
			util.Warn(t.cfg, config.WarnDiscard, "%d-bit words: statement %d also computes unused %s", t.bits, i, w)
			em.Lines = append(em.Lines, "(void)"+name)
		}
	}

	for id, u := range used.vars {
		if u {
			em.Vars = append(em.Vars, ir.VarID(id))
		}
	}
	for _, u := range used.carries {
		em.Carry = em.Carry || u
	}
	return em
}

// Text renders the function body: declarations, a blank line, then one
// statement per line.
func (t *Target) Text() string {
	em := t.Compute()

	var sb strings.Builder
	names := make([]string, len(em.Vars))
	for i, id := range em.Vars {
		names[i] = ir.Var{ID: id}.String()
	}
	const prefix, sep, suffix = "    BignumInt ", ", ", ";\n"
	for len(names) > 0 {
		line := names[0]
		names = names[1:]
		for len(names) > 0 && len(prefix+line+sep+names[0]+suffix) < declWidth {
			line += sep + names[0]
			names = names[1:]
		}
		sb.WriteString(prefix + line + suffix)
	}
	if em.Carry {
		sb.WriteString("    BignumCarry " + ir.CarryName + ";\n")
	}
	if len(em.Lines) > 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		for _, line := range em.Lines {
			sb.WriteString("    " + line + ";\n")
		}
	}
	return sb.String()
}
