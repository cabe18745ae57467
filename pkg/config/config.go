package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/larryli/PuTTY-sub000/pkg/cli"
	"modernc.org/libqbe"
)

type Warning int

const (
	WarnHostWidth Warning = iota
	WarnDiscard
	WarnTruncate
	WarnExtra
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

// DefaultWidths are the BIGNUM_INT_BITS values a full run covers.
var DefaultWidths = []int{16, 32, 64}

// RoutineNames lists the field routines in emission order.
var RoutineNames = []string{"add", "mul_mod_p", "final_reduce"}

type Config struct {
	Warnings   map[Warning]Info
	WarningMap map[string]Warning
	Widths     []int
	Routines   []string
	QbeTarget  string
	HostBits   int
	HostOnly   bool
	Verbose    bool
}

func NewConfig() *Config {
	cfg := &Config{
		WarningMap: make(map[string]Warning),
		Widths:     append([]int(nil), DefaultWidths...),
		Routines:   append([]string(nil), RoutineNames...),
	}

	cfg.Warnings = map[Warning]Info{
		WarnHostWidth: {"host-width", true, "Warn when the host word size is not among the generated widths."},
		WarnDiscard:   {"discard", false, "Report each output that needs a (void) discard."},
		WarnTruncate:  {"truncate", false, "Report multiplications whose top words are dropped by range analysis."},
		WarnExtra:     {"extra", true, "Enable extra miscellaneous warnings."},
	}
	for wt, info := range cfg.Warnings {
		cfg.WarningMap[info.Name] = wt
	}
	return cfg
}

// SupportedWidth reports whether bits is a word width the generator and
// the consuming macros support.
func SupportedWidth(bits int) bool {
	switch bits {
	case 8, 16, 32, 64:
		return true
	}
	return false
}

// SetWidths replaces the width list. Entries may be comma separated; the
// result is sorted ascending without duplicates.
func (c *Config) SetWidths(lists []string) error {
	seen := make(map[int]bool)
	var widths []int
	for _, list := range lists {
		for _, field := range strings.Split(list, ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			bits, err := strconv.Atoi(field)
			if err != nil {
				return fmt.Errorf("invalid width '%s': %w", field, err)
			}
			if !SupportedWidth(bits) {
				return fmt.Errorf("unsupported width %d. Supported: 8, 16, 32, 64", bits)
			}
			if !seen[bits] {
				seen[bits] = true
				widths = append(widths, bits)
			}
		}
	}
	if len(widths) == 0 {
		return fmt.Errorf("no widths given")
	}
	sort.Ints(widths)
	c.Widths = widths
	return nil
}

// SetRoutines restricts generation to the named routines, keeping the
// fixed emission order.
func (c *Config) SetRoutines(names []string) error {
	want := make(map[string]bool)
	for _, list := range names {
		for _, name := range strings.Split(list, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			known := false
			for _, r := range RoutineNames {
				if r == name {
					known = true
				}
			}
			if !known {
				return fmt.Errorf("unknown routine '%s'. Known: %s", name, strings.Join(RoutineNames, ", "))
			}
			want[name] = true
		}
	}
	if len(want) == 0 {
		return fmt.Errorf("no routines given")
	}
	c.Routines = c.Routines[:0]
	for _, r := range RoutineNames {
		if want[r] {
			c.Routines = append(c.Routines, r)
		}
	}
	return nil
}

// SetTarget records the host QBE target, asking libqbe for the default
// when none is given, and derives the host word size from it.
func (c *Config) SetTarget(goos, goarch, qbeTarget string) {
	if qbeTarget == "" {
		c.QbeTarget = libqbe.DefaultTarget(goos, goarch)
	} else {
		c.QbeTarget = qbeTarget
	}

	switch c.QbeTarget {
	case "amd64_sysv", "amd64_apple", "arm64", "arm64_apple", "rv64":
		c.HostBits = 64
	case "arm", "rv32":
		c.HostBits = 32
	default:
		if c.IsWarningEnabled(WarnExtra) {
			fmt.Fprintf(os.Stderr, "bignumgen: warning: unrecognized QBE target '%s', assuming 64-bit words.\n", c.QbeTarget)
		}
		c.HostBits = 64
	}
}

// HasWidth reports whether bits is in the width list.
func (c *Config) HasWidth(bits int) bool {
	for _, w := range c.Widths {
		if w == bits {
			return true
		}
	}
	return false
}

// ActiveWidths is the width list after applying HostOnly.
func (c *Config) ActiveWidths() []int {
	if !c.HostOnly {
		return c.Widths
	}
	return []int{c.HostBits}
}

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

// IsWarningEnabled is safe to call on a nil config, which has every
// warning disabled.
func (c *Config) IsWarningEnabled(wt Warning) bool {
	if c == nil {
		return false
	}
	return c.Warnings[wt].Enabled
}

// SetupFlagGroups registers -W<name> and -Wno-<name> for every warning.
// The returned entries are indexed by Warning.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) []cli.FlagGroupEntry {
	entries := make([]cli.FlagGroupEntry, WarnCount)
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		enabled, disabled := new(bool), new(bool)
		*enabled = info.Enabled
		entries[i] = cli.FlagGroupEntry{
			Name:     info.Name,
			Prefix:   "W",
			Usage:    info.Description,
			Enabled:  enabled,
			Disabled: disabled,
		}
	}
	fs.AddFlagGroup("Warnings", "Diagnostics printed on stderr", "warning", "Available Warnings:", entries)
	return entries
}

// ApplyFlagGroups copies the parsed -W/-Wno- switches into the warning table.
func (c *Config) ApplyFlagGroups(entries []cli.FlagGroupEntry) {
	for i, entry := range entries {
		if entry.Enabled != nil {
			c.SetWarning(Warning(i), *entry.Enabled)
		}
		if entry.Disabled != nil && *entry.Disabled {
			c.SetWarning(Warning(i), false)
		}
	}
}
