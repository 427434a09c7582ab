// Package retire implements the deferred-free lists that hold retired
// objects until a reclaimer scan proves no reader can still reach them.
//
// Each participant owns one List and is the only appender; a reclaimer
// takes eligible entries out through TakeBefore. That hand-off is the one
// place two goroutines touch the same list, so it is guarded by a mutex
// rather than shared mutation.
package retire
