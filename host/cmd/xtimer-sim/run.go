package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"xtimer/config"
	"xtimer/host/serial"
	"xtimer/sim"
	"xtimer/trace"
)

var (
	runOpts = struct {
		db     string
		json   string
		device string
		baud   int
		dump   bool
	}{}

	runCmd = &cobra.Command{
		Use:   "run [scenario.yaml]",
		Short: "Run a scenario",
		Long:  "Run a YAML scenario on the simulated counter and report every expiry. Without a file the built-in scenario runs.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := config.DefaultScenario()
			if len(args) == 1 {
				var err error
				if s, err = config.LoadFile(args[0]); err != nil {
					return err
				}
			}
			return runScenario(s, cmd.OutOrStdout())
		},
	}
)

func init() {
	runCmd.Flags().StringVar(&runOpts.db, "db", "", "store the run in this SQLite database")
	runCmd.Flags().StringVar(&runOpts.json, "json", "", "write the run as JSON to this file (- for stdout)")
	runCmd.Flags().StringVar(&runOpts.device, "serial", "", "send the timing ring dump to this serial device")
	runCmd.Flags().IntVar(&runOpts.baud, "baud", 115200, "serial baud rate")
	runCmd.Flags().BoolVar(&runOpts.dump, "dump", false, "print the timing ring after the run")
}

func runScenario(s *config.Scenario, out io.Writer) error {
	r, run, err := sim.Run(s)
	if err != nil {
		return err
	}

	printRun(out, run)

	if runOpts.dump {
		r.Mux().DumpTimingRing(func(msg string) { fmt.Fprintln(out, msg) })
	}

	if runOpts.db != "" {
		store, err := trace.Open(runOpts.db)
		if err != nil {
			return err
		}
		defer store.Close()
		id, err := store.SaveRun(run)
		if err != nil {
			return err
		}
		log.Printf("stored run %d in %s", id, runOpts.db)
	}

	if runOpts.json != "" {
		if err := writeJSON(runOpts.json, out, run); err != nil {
			return err
		}
	}

	if runOpts.device != "" {
		cfg := serial.DefaultConfig(runOpts.device)
		cfg.Baud = runOpts.baud
		if err := serial.DumpTo(cfg, r.Mux()); err != nil {
			return errors.Wrap(err, "serial dump")
		}
	}
	return nil
}

func writeJSON(path string, stdout io.Writer, run *trace.Run) error {
	if path == "-" {
		return trace.WriteJSON(stdout, run)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	if err := trace.WriteJSON(f, run); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printRun(w io.Writer, run *trace.Run) {
	fmt.Fprintf(w, "%s: %d ticks, %d fires\n", run.Name, run.Elapsed, len(run.Fires))
	for _, f := range run.Fires {
		fmt.Fprintf(w, "  %-12s deadline %-12d fired %-12d late %d\n", f.Name, f.Deadline, f.FiredAt, f.Lateness)
	}
	printSummary(w, run.Summary)
	st := run.Stats
	fmt.Fprintf(w, "stats: fired=%d periods=%d reprograms=%d retries=%d spin_limit=%d set_errors=%d\n",
		st.Fired, st.Periods, st.Reprograms, st.Retries, st.SpinLimit, st.SetErrors)
}

func printSummary(w io.Writer, s trace.Summary) {
	if s.Count == 0 {
		fmt.Fprintln(w, "lateness: no fires")
		return
	}
	fmt.Fprintf(w, "lateness: mean=%.1f stddev=%.1f min=%.0f median=%.0f p99=%.0f max=%.0f early=%d\n",
		s.MeanLate, s.StdDevLate, s.MinLate, s.MedianLate, s.Percent99th, s.MaxLate, s.Early)
}
