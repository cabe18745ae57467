package codegen

import (
	"fmt"
	"io"
	"strings"

	"github.com/larryli/PuTTY-sub000/pkg/ir"
)

// DumpIR writes the whole statement log, dead statements included, with
// each statement's liveness and the form the emitter would choose.
func (t *Target) DumpIR(w io.Writer) error {
	em := t.Compute()

	for i := range t.stmts {
		s := &t.stmts[i]
		state := "dead"
		switch {
		case t.needed[i]:
			state = "root"
		case em.Needed[i]:
			state = "live"
		}
		if _, err := fmt.Fprintf(w, "s%-4d %-4s reads=[%s] writes=[%s]\n", i, state, joinValues(s.Reads), joinValues(s.Writes)); err != nil {
			return err
		}
		for m := 0; m < s.Size(); m++ {
			if s.Forms[m] == "" {
				continue
			}
			mark := " "
			if em.Needed[i] && s.Forms[m] == s.Forms[em.Masks[i]] {
				mark = "*"
			}
			if _, err := fmt.Fprintf(w, "    %s %0*b  %s\n", mark, max(len(s.Writes), 1), m, s.Forms[m]); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintf(w, "; %d statements, %d live, %d variables declared, carry=%v\n",
		len(t.stmts), countTrue(em.Needed), len(em.Vars), em.Carry)
	return err
}

func joinValues(vs []ir.Value) string {
	names := make([]string, len(vs))
	for i, v := range vs {
		names[i] = v.String()
	}
	return strings.Join(names, " ")
}

func countTrue(bs []bool) int {
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n
}
