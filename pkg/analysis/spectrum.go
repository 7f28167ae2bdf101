package analysis

import (
	"context"
	"fmt"
	"sync"

	"github.com/edp1096/toy-eis/internal/ctxlog"
	"github.com/edp1096/toy-eis/pkg/circuit"
)

// Spectrum evaluates ckt at every frequency. With workers > 1 the points
// are shared among that many goroutines, each writing its own indices, so
// the output order matches freqs either way.
func Spectrum(ctx context.Context, ckt *circuit.Circuit, params, freqs []float64, workers int) ([]complex128, error) {
	if workers <= 1 || len(freqs) < 2 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return ckt.Spectrum(params, freqs)
	}
	if _, err := ckt.Bind(params); err != nil {
		return nil, err
	}
	workers = min(workers, len(freqs))

	logger := ctxlog.FromContext(ctx)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make([]complex128, len(freqs))
	indices := make(chan int, len(freqs))
	for i := range freqs {
		indices <- i
	}
	close(indices)

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	logger.Debug("starting spectrum workers", "workers", workers, "points", len(freqs))
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range indices {
				if err := runCtx.Err(); err != nil {
					fail(err)
					return
				}
				z, err := ckt.Evaluate(params, freqs[i])
				if err != nil {
					fail(fmt.Errorf("f=%g: %w", freqs[i], err))
					return
				}
				out[i] = z
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}
