// Package sim drives a multiplexer on a simulated counter and records every
// expiry.
package sim

import (
	"sort"

	"github.com/pkg/errors"

	"xtimer/config"
	"xtimer/core"
	"xtimer/periph"
	"xtimer/trace"
)

type entry struct {
	name  string
	work  uint64
	timer core.Timer
}

// Runner owns a simulated CPU, counter and multiplexer.
type Runner struct {
	cpu *periph.CPU
	hw  *periph.SimTimer
	mux *core.Mux

	timers map[string]*entry
	fires  []trace.Fire

	// OnFire is called after each expiry is recorded.
	OnFire func(trace.Fire)
}

// New creates and initializes a runner.
func New(cfg core.Config, readCost uint32, line int) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cpu := periph.NewCPU()
	hw := periph.NewSimTimer(cpu, line, cfg.Width(), readCost)
	mux, err := core.New(cfg, hw, cpu)
	if err != nil {
		return nil, err
	}
	if err := mux.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to init multiplexer")
	}
	return &Runner{
		cpu:    cpu,
		hw:     hw,
		mux:    mux,
		timers: make(map[string]*entry),
	}, nil
}

// Mux returns the multiplexer under test.
func (r *Runner) Mux() *core.Mux { return r.mux }

// Hardware returns the simulated counter.
func (r *Runner) Hardware() *periph.SimTimer { return r.hw }

// Now returns the elapsed simulated ticks.
func (r *Runner) Now() uint64 { return r.hw.Elapsed() }

func (r *Runner) entry(name string, work uint64) *entry {
	e, ok := r.timers[name]
	if !ok {
		e = &entry{name: name}
		e.timer.Callback = func(any) { r.fire(e) }
		r.timers[name] = e
	} else {
		r.mux.Remove(&e.timer)
	}
	e.work = work
	return e
}

// Set schedules the named timer offset ticks from now. A non-zero period
// makes it repeat. work is the number of ticks its callback keeps the CPU
// busy. Setting an existing name reschedules it.
func (r *Runner) Set(name string, offset uint64, period uint32, work uint64) {
	e := r.entry(name, work)
	if period != 0 {
		r.mux.SetPeriodicAt(&e.timer, r.mux.Now64()+offset, period)
		return
	}
	r.mux.Set64(&e.timer, offset)
}

// SetAt schedules the named timer at an absolute virtual time.
func (r *Runner) SetAt(name string, at uint64, period uint32, work uint64) {
	e := r.entry(name, work)
	if period != 0 {
		r.mux.SetPeriodicAt(&e.timer, at, period)
		return
	}
	r.mux.SetAbsolute64(&e.timer, at)
}

// Remove cancels the named timer. It reports whether the name is known.
func (r *Runner) Remove(name string) bool {
	e, ok := r.timers[name]
	if !ok {
		return false
	}
	r.mux.Remove(&e.timer)
	return true
}

// Pending returns the names of queued timers with their deadlines, earliest
// first.
func (r *Runner) Pending() []Pending {
	var out []Pending
	for _, e := range r.timers {
		if r.mux.IsSet(&e.timer) {
			out = append(out, Pending{Name: e.name, Deadline: e.timer.Deadline()})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Deadline != out[j].Deadline {
			return out[i].Deadline < out[j].Deadline
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Pending is a queued timer.
type Pending struct {
	Name     string
	Deadline uint64
}

// Advance lets ticks of simulated time pass.
func (r *Runner) Advance(ticks uint64) {
	r.hw.Advance(ticks)
}

// AdvanceTo lets simulated time pass until the elapsed count reaches t.
func (r *Runner) AdvanceTo(t uint64) {
	r.hw.AdvanceTo(t)
}

// Fires returns the expiries recorded so far.
func (r *Runner) Fires() []trace.Fire {
	return r.fires
}

func (r *Runner) fire(e *entry) {
	f := trace.NewFire(len(r.fires), e.name, e.timer.Fired(), r.hw.Elapsed())
	r.fires = append(r.fires, f)
	if r.OnFire != nil {
		r.OnFire(f)
	}
	if e.work > 0 {
		r.hw.Advance(e.work)
	}
}

// Result builds the trace of everything run so far.
func (r *Runner) Result(name string) *trace.Run {
	return &trace.Run{
		Name:    name,
		Elapsed: r.hw.Elapsed(),
		Stats:   r.mux.Stats(),
		Fires:   append([]trace.Fire(nil), r.fires...),
		Summary: trace.Summarize(r.fires),
		Events:  trace.Events(r.mux.TimingEvents()),
	}
}

type cancel struct {
	at   uint64
	name string
}

// Run plays a scenario to completion.
func Run(s *config.Scenario) (*Runner, *trace.Run, error) {
	r, err := New(s.Mux.Core(), s.Sim.ReadCost, s.Sim.Line)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "scenario %s", s.Name)
	}

	var cancels []cancel
	for _, t := range s.Timers {
		if t.At != 0 {
			r.SetAt(t.Name, t.At, t.Period, t.Work)
		} else {
			r.Set(t.Name, t.Offset, t.Period, t.Work)
		}
		if t.Cancel != 0 {
			cancels = append(cancels, cancel{at: t.Cancel, name: t.Name})
		}
	}
	sort.SliceStable(cancels, func(i, j int) bool { return cancels[i].at < cancels[j].at })

	for _, c := range cancels {
		if c.at >= s.Run {
			break
		}
		if c.at > r.Now() {
			r.AdvanceTo(c.at)
		}
		r.Remove(c.name)
	}
	if s.Run > r.Now() {
		r.AdvanceTo(s.Run)
	}
	return r, r.Result(s.Name), nil
}
