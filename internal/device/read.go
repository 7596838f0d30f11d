package device

import (
	"context"
	"fmt"
	"time"
)

// defaultReadTimeout bounds synchronous sensor reads. It is deliberately
// longer than the short read stall (5s) and shorter than the long one
// (30s): transient latency rides through, a genuinely wedged read gets cut.
const defaultReadTimeout = 6 * time.Second

// readWithTimeout runs s.ReadData in a helper goroutine and races it
// against the timeout and the caller's context.
//
// On timeout the helper goroutine is abandoned: it finishes its stall,
// delivers into a buffered channel nobody reads, and gets collected. The
// sensor itself is unaffected.
func readWithTimeout(ctx context.Context, s *Sensor, timeout time.Duration) (Reading, error) {
	result := make(chan Reading, 1)
	go func() {
		result <- s.ReadData()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-result:
		return r, nil
	case <-ctx.Done():
		return Reading{}, fmt.Errorf("reading sensor %q: %w", s.Name(), ctx.Err())
	case <-timer.C:
		return Reading{}, fmt.Errorf("%w: sensor %q exceeded %s", ErrReadTimeout, s.Name(), timeout)
	}
}
