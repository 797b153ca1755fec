// Package engine runs a widget tree headlessly.
//
// A Runner owns the tree and pumps frames: callbacks queued with Dispatch
// run first, then the build pass, then post-build callbacks, where bindings
// connect their pipelines. Run registers the runner as the stream package's
// dispatcher so timer callbacks re-enter the frame loop instead of touching
// the tree from timer goroutines.
package engine
