// Package stream provides the small push-stream toolkit that rxdrift bindings
// are built on.
//
// An [Observable] is a lazy push source: nothing runs until Subscribe is
// called, and every subscription gets its own producer run. Producers
// created with [New] receive a [Sink] and may return a teardown function,
// which runs exactly once when the subscription ends (unsubscribe, error,
// or completion).
//
// # Channels
//
// [Subject] is a multicast event channel with no replay: subscribers only
// see values pushed after they subscribed. [BehaviorSubject] holds a current
// value and replays it synchronously to each new subscriber. Both accept
// no further values once completed, and Complete is idempotent.
//
//	clicks := stream.NewSubject[int]()
//	sum := stream.Scan(clicks, 0, func(acc, n int) int { return acc + n })
//	sub := sum.Subscribe(stream.Observer[int]{
//	    Next: func(v int) { fmt.Println(v) },
//	})
//	clicks.Next(2) // prints 2
//	sub.Unsubscribe()
//
// # Threading
//
// Delivery is synchronous on the calling goroutine. Time-based operators
// ([Delay], [Timer], [Interval]) run through the active [Scheduler]. The
// default scheduler uses Go timers and hands each callback to the dispatcher
// registered with [RegisterDispatch] (the engine registers its UI-thread
// queue), so values still arrive on the UI thread. Tests replace the
// scheduler with a fake clock via [SetScheduler].
package stream
