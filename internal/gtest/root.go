// Package gtest is the golden-file and differential test harness for the
// generated bigval routines.
package gtest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"

	"github.com/larryli/PuTTY-sub000/pkg/config"
	"github.com/larryli/PuTTY-sub000/pkg/field"
)

const appName = "gtest"

const (
	cRed   = "\x1b[91m"
	cGreen = "\x1b[92m"
	cBold  = "\x1b[1m"
	cNone  = "\x1b[0m"
)

var ErrGoldenMismatch = errors.New("output differs from golden file")

// Golden is the on-disk record of one generator run.
type Golden struct {
	Widths   []int    `json:"widths"`
	Routines []string `json:"routines"`
	Hash     string   `json:"hash"`
	Text     string   `json:"text"`
}

func hashText(text string) string {
	return fmt.Sprintf("%x", xxhash.Sum64String(text))
}

type options struct {
	widths   []string
	routines []string
	verbose  bool
}

func (o *options) config() (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = o.verbose
	if len(o.widths) > 0 {
		if err := cfg.SetWidths(o.widths); err != nil {
			return nil, err
		}
	}
	if len(o.routines) > 0 {
		if err := cfg.SetRoutines(o.routines); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func generate(cfg *config.Config) (string, error) {
	var buf bytes.Buffer
	if err := field.Generate(&buf, cfg); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// NewRootCmd builds the gtest command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Golden and differential tests for bignumgen output",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().StringSliceVarP(&opts.widths, "width", "w", nil, "word widths to generate (default 16,32,64)")
	cmd.PersistentFlags().StringSliceVarP(&opts.routines, "routine", "r", nil, "routines to generate (default all)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")

	cmd.AddCommand(newGoldenCmd(opts), newCheckCmd(opts), newVerifyCmd(opts))
	return cmd
}

func newGoldenCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "golden <file.json>",
		Short: "Record the current generator output as a golden file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			text, err := generate(cfg)
			if err != nil {
				return err
			}
			g := Golden{Widths: cfg.Widths, Routines: cfg.Routines, Hash: hashText(text), Text: text}
			data, err := json.MarshalIndent(g, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal golden data: %w", err)
			}
			if err := os.WriteFile(args[0], append(data, '\n'), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s[SUCCESS]%s Golden file created at %s\n", cGreen, cNone, args[0])
			return nil
		},
	}
}

// LoadGolden reads a golden file written by the golden command.
func LoadGolden(path string) (*Golden, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var g Golden
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &g, nil
}

// Check regenerates the output recorded in g and compares it. The hash
// is compared first; a line diff is only computed on a mismatch.
func Check(g *Golden, verbose bool) (diff string, err error) {
	cfg := config.NewConfig()
	cfg.Verbose = verbose
	widths := make([]string, len(g.Widths))
	for i, w := range g.Widths {
		widths[i] = strconv.Itoa(w)
	}
	if err := cfg.SetWidths(widths); err != nil {
		return "", err
	}
	if err := cfg.SetRoutines(g.Routines); err != nil {
		return "", err
	}
	text, err := generate(cfg)
	if err != nil {
		return "", err
	}
	if hashText(text) == g.Hash && text == g.Text {
		return "", nil
	}
	return cmp.Diff(strings.Split(g.Text, "\n"), strings.Split(text, "\n")), ErrGoldenMismatch
}

func newCheckCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check <file.json>...",
		Short: "Compare the current generator output with golden files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				g, err := LoadGolden(path)
				if err != nil {
					return err
				}
				diff, err := Check(g, opts.verbose)
				switch {
				case errors.Is(err, ErrGoldenMismatch):
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "%s[FAIL]%s %s (-golden +current):\n%s", cRed, cNone, path, diff)
				case err != nil:
					return fmt.Errorf("%s: %w", path, err)
				default:
					fmt.Fprintf(cmd.OutOrStdout(), "%s[PASS]%s %s\n", cGreen, cNone, path)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d golden files differ", failed, len(args))
			}
			return nil
		},
	}
}

func newVerifyCmd(opts *options) *cobra.Command {
	samples, jobs := 1000, 4
	seed := uint64(1)
	cmd := &cobra.Command{
		Use:   "verify [file.c]",
		Short: "Execute generated routines against big integer arithmetic",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			var src string
			if len(args) == 1 {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				src = string(data)
			} else if src, err = generate(cfg); err != nil {
				return err
			}
			return verifyWidths(cmd.OutOrStdout(), src, cfg, samples, seed, jobs)
		},
	}
	cmd.Flags().IntVarP(&samples, "samples", "n", samples, "random inputs per routine and width")
	cmd.Flags().Uint64Var(&seed, "seed", seed, "seed for the random inputs")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", jobs, "number of widths verified in parallel")
	return cmd
}

// verifyWidths runs field.Verify once per width, at most jobs at a time.
func verifyWidths(w io.Writer, src string, cfg *config.Config, samples int, seed uint64, jobs int) error {
	if jobs < 1 {
		jobs = 1
	}
	widths := cfg.ActiveWidths()
	errs := make([]error, len(widths))
	sem := make(chan struct{}, jobs)
	var wg sync.WaitGroup
	for i, bits := range widths {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			one := *cfg
			one.Widths = []int{bits}
			one.HostOnly = false
			errs[i] = field.Verify(src, &one, samples, seed)
		}()
	}
	wg.Wait()

	for i, bits := range widths {
		if errs[i] != nil {
			fmt.Fprintf(w, "%s[FAIL]%s %d-bit: %v\n", cRed, cNone, bits, errs[i])
		} else {
			fmt.Fprintf(w, "%s[PASS]%s %d-bit\n", cGreen, cNone, bits)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	log.Printf("%sverified %d width(s), %d samples each%s\n", cBold, len(widths), samples, cNone)
	return nil
}
