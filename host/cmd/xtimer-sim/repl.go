package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/google/shlex"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"xtimer/config"
	"xtimer/sim"
	"xtimer/trace"
)

var (
	replOpts = struct {
		width    uint
		readCost uint32
	}{}

	replCmd = &cobra.Command{
		Use:   "repl [scenario.yaml]",
		Short: "Interactive console",
		Long:  "Set, remove and advance timers interactively. A scenario file preloads configuration and timers.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := &config.Scenario{Mux: config.MuxConfig{Width: replOpts.width}, Sim: config.SimConfig{ReadCost: replOpts.readCost}}
			if len(args) == 1 {
				var err error
				if s, err = config.LoadFile(args[0]); err != nil {
					return err
				}
			} else if err := s.Normalize(); err != nil {
				return err
			}

			r, err := sim.New(s.Mux.Core(), s.Sim.ReadCost, s.Sim.Line)
			if err != nil {
				return err
			}
			for _, t := range s.Timers {
				if t.At != 0 {
					r.SetAt(t.Name, t.At, t.Period, t.Work)
				} else {
					r.Set(t.Name, t.Offset, t.Period, t.Work)
				}
			}
			return repl(r, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
)

func init() {
	replCmd.Flags().UintVar(&replOpts.width, "width", 16, "counter width in bits")
	replCmd.Flags().Uint32Var(&replOpts.readCost, "read-cost", 1, "ticks consumed by each counter read")
}

const replHelp = `commands:
  set <name> <offset> [period] [work]   schedule relative to now
  at <name> <time> [period] [work]      schedule at an absolute time
  remove <name>                         cancel a timer
  advance <ticks>                       let time pass
  now                                   print the virtual clock
  pending                               list queued timers
  fires                                 list expiries so far
  stats                                 print counters and lateness
  dump                                  print the timing ring
  help                                  this text
  quit                                  leave`

func repl(r *sim.Runner, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	r.OnFire = func(f trace.Fire) {
		fmt.Fprintf(out, "fire %s deadline=%d at=%d late=%d\n", f.Name, f.Deadline, f.FiredAt, f.Lateness)
	}

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		args, err := shlex.Split(scanner.Text())
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}

		quit, err := execute(r, args, out)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

func execute(r *sim.Runner, args []string, out io.Writer) (bool, error) {
	switch args[0] {
	case "quit", "exit", "q":
		return true, nil

	case "help", "?":
		fmt.Fprintln(out, replHelp)

	case "set", "at":
		if len(args) < 3 || len(args) > 5 {
			return false, errors.Errorf("usage: %s <name> <ticks> [period] [work]", args[0])
		}
		vals, err := parseUints(args[2:])
		if err != nil {
			return false, err
		}
		for len(vals) < 3 {
			vals = append(vals, 0)
		}
		if vals[1] > 1<<32-1 {
			return false, errors.Errorf("period %d exceeds 32 bits", vals[1])
		}
		if args[0] == "set" {
			r.Set(args[1], vals[0], uint32(vals[1]), vals[2])
		} else {
			r.SetAt(args[1], vals[0], uint32(vals[1]), vals[2])
		}

	case "remove", "rm":
		if len(args) != 2 {
			return false, errors.New("usage: remove <name>")
		}
		if !r.Remove(args[1]) {
			return false, errors.Errorf("unknown timer %q", args[1])
		}

	case "advance", "adv":
		if len(args) != 2 {
			return false, errors.New("usage: advance <ticks>")
		}
		vals, err := parseUints(args[1:])
		if err != nil {
			return false, err
		}
		r.Advance(vals[0])
		fmt.Fprintf(out, "now %d\n", r.Mux().Now64())

	case "now":
		fmt.Fprintf(out, "now %d (low %d)\n", r.Mux().Now64(), r.Mux().Now())

	case "pending":
		for _, p := range r.Pending() {
			fmt.Fprintf(out, "  %-12s %d\n", p.Name, p.Deadline)
		}

	case "fires":
		for _, f := range r.Fires() {
			fmt.Fprintf(out, "  %-12s deadline %-12d fired %-12d late %d\n", f.Name, f.Deadline, f.FiredAt, f.Lateness)
		}

	case "stats":
		run := r.Result("repl")
		st := run.Stats
		fmt.Fprintf(out, "stats: fired=%d periods=%d reprograms=%d retries=%d spin_limit=%d set_errors=%d\n",
			st.Fired, st.Periods, st.Reprograms, st.Retries, st.SpinLimit, st.SetErrors)
		printSummary(out, run.Summary)

	case "dump":
		r.Mux().DumpTimingRing(func(msg string) { fmt.Fprintln(out, msg) })

	default:
		return false, errors.Errorf("unknown command %q (try help)", args[0])
	}
	return false, nil
}

func parseUints(args []string) ([]uint64, error) {
	vals := make([]uint64, len(args))
	for i, a := range args {
		v, err := strconv.ParseUint(a, 0, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "bad number %q", a)
		}
		vals[i] = v
	}
	return vals, nil
}
