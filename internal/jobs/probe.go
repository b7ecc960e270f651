package jobs

import (
	"context"
	"log"
	"sync/atomic"
	"time"
)

// Prober checks that the upstream API is reachable.
type Prober interface {
	Ping(ctx context.Context) error
}

// Status holds the last observed upstream health. It starts healthy so
// that readiness does not flap while the first probe is in flight.
type Status struct {
	healthy atomic.Bool
}

func NewStatus() *Status {
	s := &Status{}
	s.healthy.Store(true)
	return s
}

func (s *Status) Healthy() bool {
	return s.healthy.Load()
}

func (s *Status) set(ok bool) {
	s.healthy.Store(ok)
}

// StartUpstreamProbe pings the upstream on a fixed interval and records
// the result in the returned Status. A non-positive interval disables
// the probe and the status stays healthy.
func StartUpstreamProbe(ctx context.Context, interval, timeout time.Duration, upstream Prober) *Status {
	status := NewStatus()
	if interval <= 0 {
		return status
	}
	if upstream == nil {
		log.Printf("upstream probe disabled: client not configured")
		return status
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	probe := func() {
		tickCtx, cancel := context.WithTimeout(ctx, timeout)
		err := upstream.Ping(tickCtx)
		cancel()
		if err != nil {
			if status.Healthy() {
				log.Printf("upstream probe failed: %v", err)
			}
			status.set(false)
			return
		}
		if !status.Healthy() {
			log.Printf("upstream probe recovered")
		}
		status.set(true)
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		probe()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probe()
			}
		}
	}()
	return status
}
