// Package playground holds the demo widgets rxplay mounts: a counter fed by
// an interval whose period comes from its parent, plus a click handler
// backed by a slow mock request.
package playground

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-drift/rxdrift/pkg/binding"
	"github.com/go-drift/rxdrift/pkg/core"
	"github.com/go-drift/rxdrift/pkg/metrics"
	"github.com/go-drift/rxdrift/pkg/stream"
)

// Settings configures the demo.
type Settings struct {
	Interval time.Duration
	Latency  time.Duration
	Amount   int

	// Logger and Metrics are handed to every binding. Both may be nil.
	Logger  *slog.Logger
	Metrics *metrics.Registry
}

func (s Settings) options(name string, opts ...binding.Option) []binding.Option {
	return append(opts,
		binding.WithName(name),
		binding.WithLogger(s.Logger),
		binding.WithMetrics(s.Metrics))
}

// Controls exposes the demo's emitters to whatever drives it. Every method
// must run on the UI thread; from other goroutines, wrap calls in the
// runner's Dispatch.
type Controls struct {
	click  *binding.Emitter[binding.NoEvent]
	period *binding.Emitter[time.Duration]
}

// Click sends a click to the counter. It is ignored before the first frame.
func (c *Controls) Click() {
	if c.click != nil {
		c.click.Emit(binding.NoEvent{})
	}
}

// SetInterval changes the counter's tick period.
func (c *Controls) SetInterval(d time.Duration) {
	if c.period != nil {
		c.period.Emit(d)
	}
}

// MockBackendRequest answers each click after latency with amount and sums
// the answers. Clicks arriving while a request is in flight are ignored.
func MockBackendRequest(latency time.Duration, amount int) binding.EventFunc[binding.NoEvent, int] {
	return func(events stream.Observable[binding.NoEvent], _ stream.Observable[int]) stream.Observable[int] {
		answers := stream.ExhaustMap(events, func(binding.NoEvent) stream.Observable[int] {
			return stream.MapTo(stream.Timer(latency), amount)
		})
		return stream.Scan(answers, 0, func(acc, cur int) int { return acc + cur })
	}
}

// CountTicks counts ticks of an interval whose period is the first input.
// A new period restarts the interval without resetting the count.
func CountTicks(_ stream.Observable[int], inputs stream.Observable[binding.Inputs]) stream.Observable[int] {
	ticks := stream.SwitchMap(inputs, func(in binding.Inputs) stream.Observable[int] {
		return stream.Interval(in[0].(time.Duration))
	})
	return stream.Scan(ticks, 0, func(acc, _ int) int { return acc + 1 })
}

// IntervalValue shows the sum of answered clicks and interval ticks.
func IntervalValue(period time.Duration, settings Settings, controls *Controls) core.Widget {
	return core.Stateful(func(s *core.StateBase, ctx core.BuildContext) core.Widget {
		click, value := core.UseEventCallback(s,
			binding.OnEvent(MockBackendRequest(settings.Latency, settings.Amount)),
			settings.options("backend", binding.WithInitial(0))...)
		ticks := core.UseObservableState(s,
			binding.ProjectWithInputs(CountTicks),
			settings.options("interval", binding.WithInitial(0), binding.WithInputs(period))...)
		controls.click = click

		return core.Column{Children: []core.Widget{
			core.Text{Content: "value: " + strconv.Itoa(value.Value+ticks.Value)},
			core.Text{Content: "interval: " + period.String()},
		}}
	})
}

// App holds the selected period and renders IntervalValue under an error
// boundary.
func App(settings Settings, controls *Controls) core.Widget {
	return core.Stateful(func(s *core.StateBase, ctx core.BuildContext) core.Widget {
		setPeriod, period := core.UseEventCallback(s,
			binding.OnEvent(func(events stream.Observable[time.Duration], _ stream.Observable[time.Duration]) stream.Observable[time.Duration] {
				return events
			}),
			settings.options("period", binding.WithInitial(settings.Interval))...)
		controls.period = setPeriod

		return core.ErrorBoundary{
			FallbackBuilder: func(err error) core.Widget {
				return core.Text{Content: fmt.Sprintf("error: %v", err)}
			},
			Child: IntervalValue(period.Value, settings, controls),
		}
	})
}
