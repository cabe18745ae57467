package main

import (
	"bytes"
	"fmt"
	"os"
	"runtime"

	"github.com/larryli/PuTTY-sub000/pkg/cli"
	"github.com/larryli/PuTTY-sub000/pkg/config"
	"github.com/larryli/PuTTY-sub000/pkg/field"
	"github.com/larryli/PuTTY-sub000/pkg/util"
)

func main() {
	app := cli.NewApp("bignumgen")
	app.Synopsis = "[options]"
	app.Description = "Generate the multiprecision arithmetic routines for integers mod 2^130-5, one #if branch per BignumInt width."
	app.Authors = []string{"larryli"}
	app.Repository = "<https://github.com/larryli/PuTTY>"

	var (
		outFile  string
		target   string
		widths   []string
		routines []string
		host     bool
		dumpIR   bool
	)

	cfg := config.NewConfig()
	defaultWidths := make([]string, len(cfg.Widths))
	for i, w := range cfg.Widths {
		defaultWidths[i] = fmt.Sprint(w)
	}

	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "", "Write the generated C to <file> instead of stdout.", "file")
	fs.List(&widths, "width", "w", defaultWidths, "Generate a branch for BignumInt of <bits> bits.", "bits")
	fs.List(&routines, "routine", "r", config.RoutineNames, "Generate only the named routine.", "name")
	fs.Bool(&host, "host", "", false, "Generate only the branch for the host's native word width.")
	fs.String(&target, "target", "t", "", "Determine the host word width from a QBE target instead of the running system.", "target")
	fs.Bool(&dumpIR, "dump-ir", "d", false, "Dump the statement log with liveness instead of C.")
	fs.Bool(&cfg.Verbose, "verbose", "v", false, "Report progress on stderr.")
	warningFlags := cfg.SetupFlagGroups(fs)

	app.Action = func(args []string) error {
		if len(args) > 0 {
			util.Error("unexpected argument '%s'", args[0])
		}
		cfg.ApplyFlagGroups(warningFlags)

		if err := cfg.SetWidths(widths); err != nil {
			util.Error("%v", err)
		}
		if err := cfg.SetRoutines(routines); err != nil {
			util.Error("%v", err)
		}
		cfg.SetTarget(runtime.GOOS, runtime.GOARCH, target)
		cfg.HostOnly = host
		if !cfg.HasWidth(cfg.HostBits) {
			util.Warn(cfg, config.WarnHostWidth, "no branch for the %d-bit host word width", cfg.HostBits)
		}
		util.Info(cfg, "QBE target %s, %d-bit host words", cfg.QbeTarget, cfg.HostBits)

		var out bytes.Buffer
		if dumpIR {
			if err := field.DumpIR(&out, cfg); err != nil {
				util.Error("%v", err)
			}
		} else if err := field.Generate(&out, cfg); err != nil {
			util.Error("%v", err)
		}

		if outFile == "" {
			_, err := os.Stdout.Write(out.Bytes())
			return err
		}
		if err := os.WriteFile(outFile, out.Bytes(), 0o644); err != nil {
			util.Error("could not write '%s': %v", outFile, err)
		}
		util.Info(cfg, "wrote %s", outFile)
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
