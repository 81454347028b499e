// Package connectivity tracks whether the remote store is reachable and
// exposes a de-duplicated stream of online/offline transitions.
package connectivity

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Jsunwilke/employeeapp-sub003/internal/client/events"
	"github.com/Jsunwilke/employeeapp-sub003/internal/logging"
)

// Pinger is the reachability probe, usually the remote store itself.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Gate is the single connectivity question every dual-mode component asks.
// Both the lock manager and the sync repository consult the same Gate, so
// their offline semantics cannot diverge.
type Gate interface {
	Online() bool
}

const probeTimeout = 3 * time.Second

// Monitor polls a Pinger on a fixed interval and emits only on state change.
// Construction assumes connected; the first failed probe flips to offline.
type Monitor struct {
	pinger   Pinger
	bus      *events.Bus
	logger   logging.Logger
	interval time.Duration

	online atomic.Bool

	mu   sync.Mutex
	subs []chan bool

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewMonitor(pinger Pinger, bus *events.Bus, logger logging.Logger, interval time.Duration) *Monitor {
	m := &Monitor{
		pinger:   pinger,
		bus:      bus,
		logger:   logger,
		interval: interval,
		done:     make(chan struct{}),
	}
	m.online.Store(true)
	return m
}

// Online reports the last observed reachability state.
func (m *Monitor) Online() bool {
	return m.online.Load()
}

// Subscribe returns a channel receiving distinct transitions only: no
// duplicate emissions for repeated identical states. The channel is never
// closed; callers select on it together with their own done signal.
func (m *Monitor) Subscribe() <-chan bool {
	ch := make(chan bool, 16)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, ch)
	return ch
}

// Start launches the polling loop. It probes once immediately so the state
// settles without waiting a full interval.
func (m *Monitor) Start(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		m.probe(ctx)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.probe(ctx)
			case <-ctx.Done():
				return
			case <-m.done:
				return
			}
		}
	}()
}

// Stop terminates the polling loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.done) })
	m.wg.Wait()
}

func (m *Monitor) probe(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, probeTimeout)
	err := m.pinger.Ping(pctx)
	cancel()
	m.setOnline(err == nil)
}

func (m *Monitor) setOnline(v bool) {
	if m.online.Swap(v) == v {
		return
	}

	if m.logger != nil {
		m.logger.Info(context.Background(), "connectivity changed", "online", v)
	}
	if m.bus != nil {
		m.bus.Publish(events.NetworkChanged{Online: v})
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- v:
		default:
		}
	}
}
