package connectivity

import (
	"sync"

	"github.com/rs/zerolog"
)

// Snapshot is an immutable view of reachability. Version increases by one
// on every change, so readers can tell a stale snapshot from a fresh one.
type Snapshot struct {
	Reachable bool
	Version   uint64
}

// Monitor owns the current Snapshot. Only Update writes it.
type Monitor struct {
	mu        sync.Mutex
	snapshot  Snapshot
	listeners map[uint64]func(Snapshot)
	nextID    uint64
	logger    zerolog.Logger
}

// NewMonitor creates a monitor starting at the given reachability.
func NewMonitor(reachable bool, logger zerolog.Logger) *Monitor {
	return &Monitor{
		snapshot:  Snapshot{Reachable: reachable},
		listeners: make(map[uint64]func(Snapshot)),
		logger:    logger,
	}
}

// Current returns the latest snapshot.
func (m *Monitor) Current() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

// OnChange registers listener for reachability flips and returns a function
// that removes it again.
func (m *Monitor) OnChange(listener func(Snapshot)) (unsubscribe func()) {
	if listener == nil {
		return func() {}
	}

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = listener
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}

// Update records an environment reachability signal. Updates that do not
// change the boolean are dropped. It reports whether the snapshot changed.
func (m *Monitor) Update(reachable bool) bool {
	m.mu.Lock()
	if m.snapshot.Reachable == reachable {
		m.mu.Unlock()
		return false
	}
	m.snapshot = Snapshot{Reachable: reachable, Version: m.snapshot.Version + 1}
	snap := m.snapshot
	listeners := make([]func(Snapshot), 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.Unlock()

	m.logger.Info().
		Bool("reachable", snap.Reachable).
		Uint64("version", snap.Version).
		Msg("connectivity changed")

	for _, l := range listeners {
		m.notify(l, snap)
	}
	return true
}

func (m *Monitor) notify(listener func(Snapshot), snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().Interface("panic", r).Msg("connectivity listener panicked")
		}
	}()
	listener(snap)
}
