package trigger

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Interval fires the handler on a jittered period, giving every
// invocation a bounded time budget. It stands in for the platform's
// periodic background-execution callback, which may fire rarely or not
// at all; the jitter keeps a fleet of devices from syncing in unison.
type Interval struct {
	handler Handler
	period  time.Duration
	budget  time.Duration
	log     zerolog.Logger

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewInterval builds the timer trigger. Non-positive period or budget
// fall back to 15 minutes and 1 minute respectively.
func NewInterval(handler Handler, period, budget time.Duration, log zerolog.Logger) *Interval {
	if period <= 0 {
		period = 15 * time.Minute
	}
	if budget <= 0 {
		budget = time.Minute
	}
	return &Interval{
		handler: handler,
		period:  period,
		budget:  budget,
		log:     log.With().Str("component", "trigger.interval").Logger(),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the timer loop.
func (i *Interval) Start() {
	go i.run()
}

// Stop ends the loop and waits for a running invocation to return.
func (i *Interval) Stop() {
	i.stopOnce.Do(func() { close(i.stop) })
	<-i.done
}

func (i *Interval) run() {
	defer close(i.done)

	timer := time.NewTimer(i.next())
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			i.fire()
			timer.Reset(i.next())
		case <-i.stop:
			return
		}
	}
}

func (i *Interval) next() time.Duration {
	return time.Duration(float64(i.period) * (0.8 + 0.4*rand.Float64()))
}

func (i *Interval) fire() {
	ctx, cancel := context.WithTimeout(context.Background(), i.budget)
	defer cancel()

	if err := i.handler(ctx); err != nil {
		i.log.Warn().Err(err).Msg("scheduled sync failed")
		return
	}
	i.log.Debug().Msg("scheduled sync completed")
}
