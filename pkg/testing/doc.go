// Package testing provides a widget testing framework for rxdrift.
//
// # Quick Start
//
// Create a tester, pump a widget, and make assertions:
//
//	func TestCounter(t *testing.T) {
//	    tester := drifttest.NewWidgetTesterWithT(t)
//	    tester.PumpWidget(Counter{})
//	    tester.Pump() // connect subscriptions made during the first build
//
//	    if !tester.Find(drifttest.ByText("0")).Exists() {
//	        t.Error("expected '0'")
//	    }
//	}
//
// # Time
//
// The tester installs a FakeClock as the stream scheduler, so Delay, Timer,
// and Interval only fire when the test advances time:
//
//	tester.Advance(200 * time.Millisecond) // fire due timers, then Pump
//
// FakeClock can also be used on its own with stream.SetScheduler.
//
// # Import Alias
//
// Since this package has the same name as the standard library testing
// package, import it with an alias:
//
//	import drifttest "github.com/go-drift/rxdrift/pkg/testing"
package testing
