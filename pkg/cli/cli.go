package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/term"
)

const indentUnit = "    "

type Value interface {
	String() string
	Set(string) error
	Get() any
}

type stringValue struct{ p *string }

func (v *stringValue) Set(s string) error { *v.p = s; return nil }
func (v *stringValue) String() string     { return *v.p }
func (v *stringValue) Get() any           { return *v.p }

type boolValue struct{ p *bool }

func (v *boolValue) Set(s string) error {
	if s == "" {
		*v.p = true
		return nil
	}
	val, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("invalid boolean value '%s': %w", s, err)
	}
	*v.p = val
	return nil
}
func (v *boolValue) String() string { return strconv.FormatBool(*v.p) }
func (v *boolValue) Get() any       { return *v.p }

type listValue struct {
	p       *[]string
	touched bool
}

// Set appends s. The first explicit Set replaces the default contents.
func (v *listValue) Set(s string) error {
	if !v.touched {
		*v.p = nil
		v.touched = true
	}
	*v.p = append(*v.p, s)
	return nil
}
func (v *listValue) String() string { return strings.Join(*v.p, ",") }
func (v *listValue) Get() any       { return *v.p }

type Flag struct {
	Name         string
	Shorthand    string
	Usage        string
	Value        Value
	DefValue     string
	ExpectedType string
	Changed      bool
}

type FlagGroupEntry struct {
	Name     string
	Prefix   string
	Usage    string
	Enabled  *bool
	Disabled *bool
}

type FlagGroup struct {
	Name                 string
	Description          string
	Flags                []FlagGroupEntry
	GroupType            string
	AvailableFlagsHeader string
}

type FlagSet struct {
	name       string
	flags      map[string]*Flag
	shorthands map[string]*Flag
	args       []string
	flagGroups []FlagGroup
}

func NewFlagSet(name string) *FlagSet {
	return &FlagSet{
		name:       name,
		flags:      make(map[string]*Flag),
		shorthands: make(map[string]*Flag),
	}
}

func (f *FlagSet) Args() []string { return f.args }

func (f *FlagSet) Lookup(name string) *Flag { return f.flags[name] }

func (f *FlagSet) String(p *string, name, shorthand, value, usage, expectedType string) {
	*p = value
	f.Var(&stringValue{p}, name, shorthand, usage, value, expectedType)
}

func (f *FlagSet) Bool(p *bool, name, shorthand string, value bool, usage string) {
	*p = value
	f.Var(&boolValue{p}, name, shorthand, usage, strconv.FormatBool(value), "")
}

func (f *FlagSet) List(p *[]string, name, shorthand string, value []string, usage, expectedType string) {
	*p = append([]string(nil), value...)
	f.Var(&listValue{p: p}, name, shorthand, usage, strings.Join(value, ","), expectedType)
}

func (f *FlagSet) Var(value Value, name, shorthand, usage, defValue, expectedType string) {
	if name == "" {
		panic("flag name cannot be empty")
	}
	if _, ok := f.flags[name]; ok {
		panic(fmt.Sprintf("flag redefined: %s", name))
	}
	flag := &Flag{Name: name, Shorthand: shorthand, Usage: usage, Value: value, DefValue: defValue, ExpectedType: expectedType}
	f.flags[name] = flag
	if shorthand != "" {
		if _, ok := f.shorthands[shorthand]; ok {
			panic(fmt.Sprintf("shorthand flag redefined: %s", shorthand))
		}
		f.shorthands[shorthand] = flag
	}
}

// AddFlagGroup defines an enable and a disable switch for every entry,
// e.g. -Wdiscard and -Wno-discard.
func (f *FlagSet) AddFlagGroup(name, description, groupType, availableFlagsHeader string, entries []FlagGroupEntry) {
	for i := range entries {
		e := &entries[i]
		if e.Enabled != nil {
			f.Bool(e.Enabled, e.Prefix+e.Name, "", *e.Enabled, e.Usage)
		}
		if e.Disabled != nil {
			f.Bool(e.Disabled, e.Prefix+"no-"+e.Name, "", *e.Disabled, "Disable '"+e.Name+"'")
		}
	}
	f.flagGroups = append(f.flagGroups, FlagGroup{
		Name:                 name,
		Description:          description,
		Flags:                entries,
		GroupType:            groupType,
		AvailableFlagsHeader: availableFlagsHeader,
	})
}

func (f *FlagSet) Parse(arguments []string) error {
	f.args = []string{}
	for i := 0; i < len(arguments); i++ {
		arg := arguments[i]
		switch {
		case arg == "--":
			f.args = append(f.args, arguments[i+1:]...)
			return nil
		case len(arg) < 2 || arg[0] != '-':
			f.args = append(f.args, arg)
		case strings.HasPrefix(arg, "--"):
			if err := f.parseNamed(arg[2:], "--", arguments, &i); err != nil {
				return err
			}
		default:
			// Single dash: a whole name such as -Wdiscard wins over a shorthand.
			name := strings.SplitN(arg[1:], "=", 2)[0]
			if _, ok := f.flags[name]; ok {
				if err := f.parseNamed(arg[1:], "-", arguments, &i); err != nil {
					return err
				}
				continue
			}
			if err := f.parseShort(arg, arguments, &i); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *FlagSet) parseNamed(body, dash string, arguments []string, i *int) error {
	parts := strings.SplitN(body, "=", 2)
	if parts[0] == "" {
		return fmt.Errorf("empty flag name")
	}
	flag, ok := f.flags[parts[0]]
	if !ok {
		return fmt.Errorf("unknown flag: %s%s", dash, parts[0])
	}
	flag.Changed = true
	if len(parts) == 2 {
		return flag.Value.Set(parts[1])
	}
	if _, isBool := flag.Value.(*boolValue); isBool {
		return flag.Value.Set("")
	}
	if *i+1 >= len(arguments) {
		return fmt.Errorf("flag needs an argument: %s%s", dash, parts[0])
	}
	*i++
	return flag.Value.Set(arguments[*i])
}

func (f *FlagSet) parseShort(arg string, arguments []string, i *int) error {
	shorthand := arg[1:2]
	flag, ok := f.shorthands[shorthand]
	if !ok {
		return fmt.Errorf("unknown shorthand flag: -%s", shorthand)
	}
	flag.Changed = true
	if _, isBool := flag.Value.(*boolValue); isBool {
		return flag.Value.Set("")
	}
	value := arg[2:]
	if value == "" {
		if *i+1 >= len(arguments) {
			return fmt.Errorf("flag needs an argument: -%s", shorthand)
		}
		*i++
		value = arguments[*i]
	}
	return flag.Value.Set(value)
}

type App struct {
	Name        string
	Synopsis    string
	Description string
	Authors     []string
	Repository  string
	FlagSet     *FlagSet
	Action      func(args []string) error
	Stdout      io.Writer
	Stderr      io.Writer
}

func NewApp(name string) *App {
	return &App{
		Name:    name,
		FlagSet: NewFlagSet(name),
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

func (a *App) Run(arguments []string) error {
	help := false
	a.FlagSet.Bool(&help, "help", "h", false, "Display this information")

	if err := a.FlagSet.Parse(arguments); err != nil {
		fmt.Fprintln(a.Stderr, err)
		fmt.Fprintf(a.Stderr, "Run '%s --help' for all available options.\n", a.Name)
		return err
	}
	if help {
		fmt.Fprint(a.Stdout, a.HelpPage(getTerminalWidth()))
		return nil
	}
	if a.Action != nil {
		return a.Action(a.FlagSet.Args())
	}
	return nil
}

// HelpPage renders the --help text wrapped to width columns.
func (a *App) HelpPage(width int) string {
	var sb strings.Builder

	if len(a.Authors) > 0 {
		fmt.Fprintf(&sb, "\n%s%s, by %s\n", indentUnit, a.Name, strings.Join(a.Authors, ", "))
	}
	if a.Repository != "" {
		fmt.Fprintf(&sb, "%sFor more details refer to %s\n", indentUnit, a.Repository)
	}
	if a.Synopsis != "" {
		fmt.Fprintf(&sb, "\n%sSynopsis\n%s%s %s\n", indentUnit, indentUnit+indentUnit, a.Name, a.Synopsis)
	}
	if a.Description != "" {
		fmt.Fprintf(&sb, "\n%sDescription\n", indentUnit)
		for _, line := range wrapText(a.Description, width-2*len(indentUnit)) {
			fmt.Fprintf(&sb, "%s%s\n", indentUnit+indentUnit, line)
		}
	}

	options := a.optionFlags()
	left := 0
	for _, flag := range options {
		left = max(left, len(formatFlag(flag)))
	}
	for _, group := range a.FlagSet.flagGroups {
		for _, e := range group.Flags {
			left = max(left, len(e.Name), len("-"+e.Prefix+"no-<"+group.GroupType+">"))
		}
	}

	if len(options) > 0 {
		fmt.Fprintf(&sb, "\n%sOptions\n", indentUnit)
		for _, flag := range options {
			right := ""
			if _, isBool := flag.Value.(*boolValue); !isBool && flag.DefValue != "" {
				right = "|" + flag.DefValue + "|"
			}
			formatEntry(&sb, width, left, formatFlag(flag), flag.Usage, right)
		}
	}

	groups := append([]FlagGroup(nil), a.FlagSet.flagGroups...)
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	for _, group := range groups {
		fmt.Fprintf(&sb, "\n%s%s\n", indentUnit, group.Name)
		prefix := group.Flags[0].Prefix
		formatEntry(&sb, width, left, "-"+prefix+"<"+group.GroupType+">", "Enable a specific "+group.GroupType, "")
		formatEntry(&sb, width, left, "-"+prefix+"no-<"+group.GroupType+">", "Disable a specific "+group.GroupType, "")
		if group.AvailableFlagsHeader != "" {
			fmt.Fprintf(&sb, "%s%s\n", indentUnit, group.AvailableFlagsHeader)
		}
		entries := append([]FlagGroupEntry(nil), group.Flags...)
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
		for _, e := range entries {
			state := "|-|"
			if e.Enabled != nil && *e.Enabled && (e.Disabled == nil || !*e.Disabled) {
				state = "|x|"
			}
			formatEntry(&sb, width, left, e.Name, e.Usage, state)
		}
	}
	return sb.String()
}

func (a *App) optionFlags() []*Flag {
	grouped := make(map[string]bool)
	for _, group := range a.FlagSet.flagGroups {
		for _, e := range group.Flags {
			grouped[e.Prefix+e.Name] = true
			grouped[e.Prefix+"no-"+e.Name] = true
		}
	}
	var flags []*Flag
	for _, flag := range a.FlagSet.flags {
		if !grouped[flag.Name] {
			flags = append(flags, flag)
		}
	}
	sort.Slice(flags, func(i, j int) bool { return flags[i].Name < flags[j].Name })
	return flags
}

func formatFlag(flag *Flag) string {
	_, isBool := flag.Value.(*boolValue)
	var sb strings.Builder
	if flag.Shorthand != "" {
		fmt.Fprintf(&sb, "-%s, ", flag.Shorthand)
	}
	fmt.Fprintf(&sb, "--%s", flag.Name)
	if !isBool && flag.ExpectedType != "" {
		fmt.Fprintf(&sb, " <%s>", flag.ExpectedType)
	}
	return sb.String()
}

func formatEntry(sb *strings.Builder, width, left int, name, usage, right string) {
	indent := indentUnit + indentUnit
	avail := width - len(indent) - left - 1 - len(right) - 2
	if avail < 10 {
		avail = 10
	}
	lines := wrapText(usage, avail)
	if len(lines) == 0 {
		lines = []string{""}
	}
	if right != "" {
		fmt.Fprintf(sb, "%s%-*s %-*s  %s\n", indent, left, name, avail, lines[0], right)
	} else {
		fmt.Fprintf(sb, "%s%-*s %s\n", indent, left, name, lines[0])
	}
	for _, line := range lines[1:] {
		fmt.Fprintf(sb, "%s%s %s\n", indent, strings.Repeat(" ", left), line)
	}
}

func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	if width < 20 {
		return 20
	}
	return width
}

func wrapText(text string, maxWidth int) []string {
	words := strings.Fields(text)
	if maxWidth <= 0 || len(words) == 0 {
		return words
	}
	var lines []string
	line := words[0]
	for _, word := range words[1:] {
		if len(line)+1+len(word) > maxWidth {
			lines = append(lines, line)
			line = word
			continue
		}
		line += " " + word
	}
	return append(lines, line)
}
