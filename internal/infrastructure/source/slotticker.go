package source

import (
	"sync"
	"time"

	"solarb/internal/application/port"
)

// SlotTicker is an in-process stand-in for an external chain tick
// signal: a monotonically increasing counter on a fixed cadence. The
// orchestrator uses it to opportunistically refresh stale pairs.
type SlotTicker struct {
	interval time.Duration

	mu   sync.Mutex
	fn   func(uint64)
	stop chan struct{}
	once sync.Once
}

func NewSlotTicker(interval time.Duration) *SlotTicker {
	if interval <= 0 {
		interval = 400 * time.Millisecond
	}
	t := &SlotTicker{interval: interval, stop: make(chan struct{})}
	go t.run()
	return t
}

func (t *SlotTicker) run() {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	var slot uint64
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			slot++
			t.mu.Lock()
			fn := t.fn
			t.mu.Unlock()
			if fn != nil {
				fn(slot)
			}
		}
	}
}

func (t *SlotTicker) Subscribe(fn func(uint64)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fn = fn
	return nil
}

func (t *SlotTicker) Unsubscribe() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fn = nil
}

func (t *SlotTicker) Close() error {
	t.once.Do(func() { close(t.stop) })
	return nil
}

var _ port.TickSource = (*SlotTicker)(nil)
