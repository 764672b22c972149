package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"xtimer/core"
	"xtimer/periph"
	"xtimer/trace"
)

var (
	liveOpts = struct {
		duration time.Duration
		width    uint
		timers   int
		period   uint32
		verbose  bool
	}{}

	liveCmd = &cobra.Command{
		Use:   "live",
		Short: "Drive periodic timers from the host clock",
		Long:  "Run periodic timers on a counter derived from the host monotonic clock and report their lateness.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := live(liveOpts.duration, liveOpts.width, liveOpts.timers, liveOpts.period, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), run.Summary)
			st := run.Stats
			fmt.Fprintf(cmd.OutOrStdout(), "stats: fired=%d periods=%d reprograms=%d retries=%d\n",
				st.Fired, st.Periods, st.Reprograms, st.Retries)
			return nil
		},
	}
)

func init() {
	liveCmd.Flags().DurationVar(&liveOpts.duration, "duration", 2*time.Second, "how long to run")
	liveCmd.Flags().UintVar(&liveOpts.width, "width", 16, "counter width in bits")
	liveCmd.Flags().IntVar(&liveOpts.timers, "timers", 4, "number of periodic timers")
	liveCmd.Flags().Uint32Var(&liveOpts.period, "period", 10000, "base period in microseconds")
	liveCmd.Flags().BoolVarP(&liveOpts.verbose, "verbose", "v", false, "print every expiry")
}

// live runs n periodic timers at 1MHz for d. Timer i uses period*(i+1).
func live(d time.Duration, width uint, n int, period uint32, out io.Writer) (*trace.Run, error) {
	if n <= 0 {
		return nil, errors.Errorf("need at least one timer, got %d", n)
	}

	cfg := core.DefaultConfig()
	cfg.Mask = core.MaskForWidth(width)

	cpu := periph.NewCPU()
	hw := periph.NewSysTimer(cpu, 0, width)
	mux, err := core.New(cfg, hw, cpu)
	if err != nil {
		return nil, err
	}
	if err := mux.Init(); err != nil {
		return nil, err
	}

	var fires []trace.Fire
	timers := make([]core.Timer, n)
	for i := range timers {
		name := "t" + strconv.Itoa(i)
		t := &timers[i]
		t.Callback = func(any) {
			f := trace.NewFire(len(fires), name, t.Fired(), hw.Elapsed())
			fires = append(fires, f)
			if liveOpts.verbose {
				fmt.Fprintf(out, "fire %s deadline=%d late=%d\n", f.Name, f.Deadline, f.Lateness)
			}
		}
		mux.SetPeriodic(t, period*uint32(i+1))
	}

	end := cfg.TicksFromUS(uint64(d / time.Microsecond))
	for {
		now := hw.Elapsed()
		if now >= end {
			break
		}
		hw.Poll()
		// Sleep until shortly before the next match.
		if due := hw.NextDue(); due > now+200 {
			time.Sleep(time.Duration(cfg.TicksToUS(due-now-100)) * time.Microsecond)
		}
	}

	for i := range timers {
		mux.Remove(&timers[i])
	}

	return &trace.Run{
		Name:    "live",
		Elapsed: hw.Elapsed(),
		Stats:   mux.Stats(),
		Fires:   fires,
		Summary: trace.Summarize(fires),
	}, nil
}
