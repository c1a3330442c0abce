package connectivity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestMonitorUpdateDebounces(t *testing.T) {
	m := NewMonitor(true, zerolog.Nop())

	var events []Snapshot
	m.OnChange(func(s Snapshot) {
		events = append(events, s)
	})

	if m.Update(true) {
		t.Error("Expected no-op update to report no change")
	}
	if len(events) != 0 {
		t.Fatalf("Expected no events for no-op update, got %d", len(events))
	}

	if !m.Update(false) {
		t.Error("Expected flip to report change")
	}
	m.Update(false)
	m.Update(true)

	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if events[0].Reachable || events[0].Version != 1 {
		t.Errorf("Unexpected first event: %+v", events[0])
	}
	if !events[1].Reachable || events[1].Version != 2 {
		t.Errorf("Unexpected second event: %+v", events[1])
	}
	if got := m.Current(); got != events[1] {
		t.Errorf("Current() = %+v, want %+v", got, events[1])
	}
}

func TestMonitorUnsubscribe(t *testing.T) {
	m := NewMonitor(false, zerolog.Nop())

	calls := 0
	unsubscribe := m.OnChange(func(Snapshot) { calls++ })
	m.Update(true)
	unsubscribe()
	unsubscribe()
	m.Update(false)

	if calls != 1 {
		t.Errorf("Expected 1 call before unsubscribe, got %d", calls)
	}
}

func TestMonitorListenerPanicIsContained(t *testing.T) {
	m := NewMonitor(true, zerolog.Nop())

	reached := false
	m.OnChange(func(Snapshot) { panic("boom") })
	m.OnChange(func(Snapshot) { reached = true })

	m.Update(false)

	if !reached {
		t.Error("Expected second listener to run despite panic in first")
	}
	if m.Current().Reachable {
		t.Error("Expected snapshot to be updated")
	}
}

func TestMonitorConcurrentUpdates(t *testing.T) {
	m := NewMonitor(false, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.Update(i%2 == 0)
			_ = m.Current()
		}(i)
	}
	wg.Wait()

	if m.Current().Version == 0 {
		t.Error("Expected at least one accepted change")
	}
}

func TestProberCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("Expected HEAD, got %s", r.Method)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	p := &Prober{URL: server.URL, Timeout: time.Second}
	if reachable, err := p.Check(context.Background()); !reachable || err != nil {
		t.Errorf("Expected reachable while server is up, got %v, %v", reachable, err)
	}

	server.Close()
	if reachable, err := p.Check(context.Background()); reachable || err != nil {
		t.Errorf("Expected unreachable after server closed, got %v, %v", reachable, err)
	}
}

func TestProberCheckCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reachable, err := (&Prober{URL: server.URL, Timeout: time.Second}).Check(ctx)
	if reachable || !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v, %v", reachable, err)
	}
}

func TestProberRunFeedsMonitor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	m := NewMonitor(false, zerolog.Nop())
	changed := make(chan Snapshot, 1)
	m.OnChange(func(s Snapshot) { changed <- s })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		(&Prober{URL: server.URL, Interval: time.Hour}).Run(ctx, m)
		close(done)
	}()

	select {
	case s := <-changed:
		if !s.Reachable {
			t.Error("Expected reachable snapshot")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for probe result")
	}

	cancel()
	<-done
}

func TestProberRunStopKeepsState(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case started <- struct{}{}:
		default:
		}
		select {
		case <-release:
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()
	defer close(release)

	m := NewMonitor(true, zerolog.Nop())
	var (
		mu     sync.Mutex
		events []Snapshot
	)
	m.OnChange(func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, s)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		(&Prober{URL: server.URL, Interval: time.Hour, Timeout: 5 * time.Second}).Run(ctx, m)
		close(done)
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for the probe request")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if snap := m.Current(); !snap.Reachable || snap.Version != 0 {
		t.Errorf("Expected state untouched by shutdown, got %+v", snap)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(events) != 0 {
		t.Errorf("Expected no notifications on shutdown, got %v", events)
	}
}
