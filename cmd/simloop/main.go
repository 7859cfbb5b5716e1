// Command simloop runs a scenario file against a deterministic event loop
// and prints the resulting execution trace, along with runtime metrics when
// requested. Because the loop is deterministic, running the same scenario
// twice produces byte-identical traces.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/go-simloop"
	"github.com/joeycumines/go-simloop/internal/scenario"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := flag.NewFlagSet(`simloop`, flag.ContinueOnError)
	var (
		debug    = flags.Bool(`debug`, false, `enable debug logging`)
		metrics  = flags.Bool(`metrics`, false, `print runtime metrics after the run`)
		maxDrain = flags.Int(`max-drain`, simloop.DefaultMaxDrainDepth, `microtask drain iteration bound`)
		turns    = flags.Int(`turns`, 0, `run at most this many turns (0 runs to idle)`)
	)
	flags.Usage = func() {
		fmt.Fprintf(flags.Output(), "Usage: simloop [flags] <scenario.hcl>\n\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		flags.Usage()
		return fmt.Errorf(`simloop: expected exactly one scenario file`)
	}

	level := logiface.LevelInformational
	if *debug {
		level = logiface.LevelDebug
	}
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(os.Stderr)),
		stumpy.L.WithLevel(level),
	).Logger()

	s, err := scenario.Load(flags.Arg(0))
	if err != nil {
		return err
	}

	loop, err := simloop.New(
		simloop.WithLogger(logger),
		simloop.WithMetrics(*metrics),
		simloop.WithMaxDrainDepth(*maxDrain),
		simloop.WithErrorSink(func(err error) {
			logger.Err().
				Err(err).
				Log(`loop error`)
		}),
		simloop.WithReportLimiter(catrate.NewLimiter(map[time.Duration]int{
			time.Second: 10,
		})),
	)
	if err != nil {
		return err
	}

	if err := s.Apply(loop); err != nil {
		return err
	}

	if err := runLoop(loop, *turns); err != nil {
		return err
	}

	for _, e := range loop.Trace() {
		fmt.Printf("turn=%d kind=%s label=%q\n", e.Turn, e.Kind, e.Label)
	}

	if *metrics {
		printMetrics(loop)
	}

	return loop.Dispose()
}

func runLoop(loop *simloop.Loop, turns int) error {
	if turns <= 0 {
		return loop.RunUntilIdle()
	}
	for i := 0; i < turns; i++ {
		worked, err := loop.RunOneTurn()
		if err != nil {
			return err
		}
		if !worked {
			break
		}
	}
	return nil
}

func printMetrics(loop *simloop.Loop) {
	m, ok := loop.Metrics()
	if !ok {
		return
	}
	fmt.Printf("turns=%d tasks=%d cancelled=%d microtasks=%d render=%d panics=%d unhandled=%d starvations=%d\n",
		m.Turns, m.TasksExecuted, m.TasksCancelled, m.MicrotasksExecuted,
		m.RenderExecuted, m.PanicsRecovered, m.UnhandledRejections, m.Starvations)
	if m.DrainCount > 0 {
		fmt.Printf("drains=%d depth_mean=%.2f p50=%.1f p95=%.1f p99=%.1f max=%.0f\n",
			m.DrainCount, m.DrainDepthMean, m.DrainDepthP50, m.DrainDepthP95,
			m.DrainDepthP99, m.DrainDepthMax)
	}
}
