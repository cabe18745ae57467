package util

import (
	"fmt"
	"io"
	"os"

	"github.com/larryli/PuTTY-sub000/pkg/config"
	"github.com/xyproto/env/v2"
)

// Prog prefixes every diagnostic.
const Prog = "bignumgen"

// Stderr receives all diagnostics. Tests may redirect it.
var Stderr io.Writer = os.Stderr

// exit is replaced in tests so that Error can be observed.
var exit = os.Exit

func colored(code, text string) string {
	if env.Str("NO_COLOR") != "" {
		return text
	}
	return "\033[" + code + "m" + text + "\033[0m"
}

// Error prints a formatted error message and exits the program.
func Error(format string, args ...interface{}) {
	fmt.Fprintf(Stderr, "%s: %s ", Prog, colored("31", "error:"))
	fmt.Fprintf(Stderr, format, args...)
	fmt.Fprintln(Stderr)
	exit(1)
}

// Warn prints a warning if wt is enabled in cfg. A nil cfg prints nothing.
func Warn(cfg *config.Config, wt config.Warning, format string, args ...interface{}) {
	if !cfg.IsWarningEnabled(wt) {
		return
	}
	fmt.Fprintf(Stderr, "%s: %s ", Prog, colored("33", "warning:"))
	fmt.Fprintf(Stderr, format, args...)
	fmt.Fprintf(Stderr, " [-W%s]\n", cfg.Warnings[wt].Name)
}

// Info prints a progress line when cfg asks for verbose output.
func Info(cfg *config.Config, format string, args ...interface{}) {
	if cfg == nil || !cfg.Verbose {
		return
	}
	fmt.Fprintf(Stderr, "%s: %s ", Prog, colored("36", "info:"))
	fmt.Fprintf(Stderr, format, args...)
	fmt.Fprintln(Stderr)
}
