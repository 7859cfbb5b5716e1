// Package scenario loads declarative simulation programs from HCL files and
// applies them to a loop. A scenario describes the initial schedule: tasks,
// microtasks, promise chains, intervals, and render callbacks; running the
// loop to idle then yields a deterministic trace for the scenario.
package scenario

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/joeycumines/go-simloop"
	"github.com/zclconf/go-cty/cty"
)

// Scenario is a parsed simulation program.
type Scenario struct {
	Name       string       `hcl:"name,optional"`
	Tasks      []*Task      `hcl:"task,block"`
	Microtasks []*Microtask `hcl:"microtask,block"`
	Promises   []*Promise   `hcl:"promise,block"`
	Intervals  []*Interval  `hcl:"interval,block"`
	Renders    []*Render    `hcl:"render,block"`
}

// Task schedules one or more copies of a macrotask.
type Task struct {
	Label  string `hcl:"label,label"`
	Delay  int64  `hcl:"delay,optional"`
	Repeat int    `hcl:"repeat,optional"`
	// Cancel schedules the task and immediately cancels it, so the
	// scenario can assert zero executions.
	Cancel bool `hcl:"cancel,optional"`
}

// Microtask schedules a microtask; each execution requeues itself Requeue
// further times.
type Microtask struct {
	Label   string `hcl:"label,label"`
	Requeue int    `hcl:"requeue,optional"`
}

// Promise creates a promise settled by a task, with Chain then-links
// appended. When Unhandled is set no reaction is attached, so running the
// scenario produces an unhandled rejection report.
type Promise struct {
	Label     string `hcl:"label,label"`
	Value     string `hcl:"value,optional"`
	Delay     int64  `hcl:"delay,optional"`
	Chain     int    `hcl:"chain,optional"`
	Reject    bool   `hcl:"reject,optional"`
	Unhandled bool   `hcl:"unhandled,optional"`
}

// Interval schedules a recurring task that stops itself after Count ticks.
type Interval struct {
	Label string `hcl:"label,label"`
	Delay int64  `hcl:"delay,optional"`
	Count int    `hcl:"count"`
}

// Render registers a one-shot render callback.
type Render struct {
	Label string `hcl:"label,label"`
}

// evalContext exposes scenario-level constants to HCL expressions, so files
// can write e.g. `delay = sim.default_delay`.
func evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"sim": cty.ObjectVal(map[string]cty.Value{
				"default_delay":   cty.NumberIntVal(0),
				"max_drain_depth": cty.NumberIntVal(simloop.DefaultMaxDrainDepth),
			}),
		},
	}
}

// Load parses a scenario from an HCL file.
func Load(path string) (*Scenario, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("scenario: failed to parse %s: %w", path, diags)
	}
	return decode(file.Body, path)
}

// LoadBytes parses a scenario from in-memory HCL source. The filename is
// used only for diagnostics.
func LoadBytes(src []byte, filename string) (*Scenario, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("scenario: failed to parse %s: %w", filename, diags)
	}
	return decode(file.Body, filename)
}

func decode(body hcl.Body, name string) (*Scenario, error) {
	var s Scenario
	if diags := gohcl.DecodeBody(body, evalContext(), &s); diags.HasErrors() {
		return nil, fmt.Errorf("scenario: failed to decode %s: %w", name, diags)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Scenario) validate() error {
	for _, t := range s.Tasks {
		if t.Delay < 0 {
			return fmt.Errorf("scenario: task %q: negative delay", t.Label)
		}
		if t.Repeat < 0 {
			return fmt.Errorf("scenario: task %q: negative repeat", t.Label)
		}
	}
	for _, m := range s.Microtasks {
		if m.Requeue < 0 {
			return fmt.Errorf("scenario: microtask %q: negative requeue", m.Label)
		}
	}
	for _, iv := range s.Intervals {
		if iv.Count < 1 {
			return fmt.Errorf("scenario: interval %q: count must be positive", iv.Label)
		}
	}
	return nil
}

// Apply schedules the scenario's program onto the loop. The loop is not
// run; drive it with RunUntilIdle (or turn by turn) afterwards.
func (s *Scenario) Apply(l *simloop.Loop) error {
	for _, t := range s.Tasks {
		n := t.Repeat
		if n < 1 {
			n = 1
		}
		for i := 0; i < n; i++ {
			h, err := l.ScheduleTask(t.Label, t.Delay, func() {})
			if err != nil {
				return fmt.Errorf("scenario: task %q: %w", t.Label, err)
			}
			if t.Cancel {
				h.Cancel()
			}
		}
	}

	for _, m := range s.Microtasks {
		remaining := m.Requeue
		var fn func()
		fn = func() {
			if remaining > 0 {
				remaining--
				_ = l.ScheduleMicrotask(m.Label, fn)
			}
		}
		if err := l.ScheduleMicrotask(m.Label, fn); err != nil {
			return fmt.Errorf("scenario: microtask %q: %w", m.Label, err)
		}
	}

	for _, p := range s.Promises {
		if err := s.applyPromise(l, p); err != nil {
			return err
		}
	}

	for _, iv := range s.Intervals {
		remaining := iv.Count
		if _, err := l.ScheduleInterval(iv.Label, iv.Delay, func(interval *simloop.Interval) {
			remaining--
			if remaining <= 0 {
				interval.Stop()
			}
		}); err != nil {
			return fmt.Errorf("scenario: interval %q: %w", iv.Label, err)
		}
	}

	for _, r := range s.Renders {
		if err := l.RegisterRenderCallback(r.Label, func() {}); err != nil {
			return fmt.Errorf("scenario: render %q: %w", r.Label, err)
		}
	}

	return nil
}

func (s *Scenario) applyPromise(l *simloop.Loop, p *Promise) error {
	var promise *simloop.Promise
	if p.Reject {
		promise = l.Promisify(p.Label, p.Delay, func() (simloop.Result, error) {
			return nil, fmt.Errorf("scenario: promise %q rejected", p.Label)
		})
	} else {
		promise = l.Promisify(p.Label, p.Delay, func() (simloop.Result, error) {
			return p.Value, nil
		})
	}

	if p.Unhandled {
		return nil
	}

	chained := promise
	for i := 0; i < p.Chain; i++ {
		chained = chained.Then(func(v simloop.Result) simloop.Result {
			return v
		}, nil)
	}
	chained.Catch(func(simloop.Result) simloop.Result { return nil })
	return nil
}
