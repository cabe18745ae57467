package field

import (
	"fmt"
	"io"
	"strings"

	"github.com/larryli/PuTTY-sub000/pkg/codegen"
	"github.com/larryli/PuTTY-sub000/pkg/config"
	"github.com/larryli/PuTTY-sub000/pkg/util"
)

// Header opens every generated file.
const Header = "/*\n * Code generated by bignumgen.\n */\n\n"

// Footer closes the width conditional.
const Footer = "#else\n#error Add another bit count to bignumgen and rerun it\n#endif\n"

// Build runs one routine's builder against a fresh target.
func Build(r Routine, bits int, cfg *config.Config) (*codegen.Target, error) {
	t, err := codegen.NewTarget(bits, cfg)
	if err != nil {
		return nil, err
	}
	if err := r.Build(t); err != nil {
		return nil, fmt.Errorf("%d-bit %s: %w", bits, r.Name, err)
	}
	return t, nil
}

// Function renders the C definition of routine r for one width.
func Function(r Routine, bits int, cfg *config.Config) (string, error) {
	t, err := Build(r, bits, cfg)
	if err != nil {
		return "", err
	}
	return r.Signature + "\n{\n" + t.Text() + "}\n\n", nil
}

// selected returns the configured routines in emission order.
func selected(cfg *config.Config) ([]Routine, error) {
	var rs []Routine
	for _, name := range cfg.Routines {
		r, ok := Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown routine '%s'", name)
		}
		rs = append(rs, r)
	}
	return rs, nil
}

// Generate writes the complete generated file: one #if/#elif branch per
// active width, each holding the configured routines.
func Generate(w io.Writer, cfg *config.Config) error {
	routines, err := selected(cfg)
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString(Header)
	keyword := "#if"
	for _, bits := range cfg.ActiveWidths() {
		util.Info(cfg, "generating %d-bit routines", bits)
		fmt.Fprintf(&sb, "%s BIGNUM_INT_BITS == %d\n\n", keyword, bits)
		for _, r := range routines {
			text, err := Function(r, bits, cfg)
			if err != nil {
				return err
			}
			sb.WriteString(text)
		}
		keyword = "#elif"
	}
	sb.WriteString(Footer)

	_, err = io.WriteString(w, sb.String())
	return err
}

// DumpIR writes the statement log of every configured routine and width.
func DumpIR(w io.Writer, cfg *config.Config) error {
	routines, err := selected(cfg)
	if err != nil {
		return err
	}
	for _, bits := range cfg.ActiveWidths() {
		for _, r := range routines {
			t, err := Build(r, bits, cfg)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "; bigval_%s, %d-bit words\n", r.Name, bits); err != nil {
				return err
			}
			if err := t.DumpIR(w); err != nil {
				return err
			}
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
	}
	return nil
}
