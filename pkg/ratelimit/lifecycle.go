package ratelimit

import (
	"context"
	"fmt"
	"time"

	gfcontext "github.com/arjuncodes/ratelimitd/pkg/common/context"
)

// lifecycleWatcher polls store health on an interval and fans out
// ready/error transitions. On the first ready, and every time the store
// recovers from an error, it re-runs onReady, which is the Atomic Script
// Runner's preload hook (spec §4.2): scripts are re-cached whenever the
// store connection has reason to distrust its prior state.
type lifecycleWatcher struct {
	ping     func(ctx context.Context) error
	onReady  func(ctx context.Context)
	onError  func(err error)
	interval time.Duration

	stop chan struct{}
	done chan struct{}
}

func newLifecycleWatcher(ping func(ctx context.Context) error, onReady func(ctx context.Context), onError func(err error), interval time.Duration) *lifecycleWatcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &lifecycleWatcher{
		ping:     ping,
		onReady:  onReady,
		onError:  onError,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// start begins the health-probe loop. It runs until Stop is called or ctx
// is cancelled. The first probe, and the preload it triggers, run
// synchronously before start returns so a freshly constructed Engine has
// a warm script cache before serving its first decision.
func (w *lifecycleWatcher) start(ctx context.Context) {
	wasReady := w.probe(ctx)
	if wasReady {
		w.onReady(ctx)
	}

	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		ready := wasReady
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stop:
				return
			case <-ticker.C:
				nowReady := w.probe(ctx)
				if nowReady && !ready {
					w.onReady(ctx)
				}
				ready = nowReady
			}
		}
	}()
}

// probe bounds each health check to half the polling interval, so a store
// connection that hangs rather than erroring can't stall the watcher loop
// past its next scheduled tick.
func (w *lifecycleWatcher) probe(ctx context.Context) bool {
	probeCtx, cancel := gfcontext.WithTimeoutOrCancel(ctx, w.interval/2)
	defer cancel()

	err := w.ping(probeCtx)
	if err != nil {
		if gfcontext.IsTimedOut(probeCtx) {
			err = fmt.Errorf("health probe timed out after %s: %w", w.interval/2, err)
		}
		if w.onError != nil {
			w.onError(err)
		}
		return false
	}
	return true
}

func (w *lifecycleWatcher) Stop() {
	close(w.stop)
	<-w.done
}
