// Package host runs a reactor runtime on a single goroutine.
//
// A Runtime is not safe for concurrent use. Loop owns one and is the only
// goroutine that touches it: other goroutines submit work with Do or
// Dispatch, and the loop drains pending reactions on every tick and after
// every Do. Drain results are published as TickEvents to subscribers such as
// the inspect server's WebSocket stream.
//
//	loop := host.New(rt, host.WithInterval(16*time.Millisecond))
//	go loop.Run(ctx)
//
//	err := loop.Do(ctx, func(rt *reactor.Runtime) error {
//	    return count.Set(5)
//	})
package host
