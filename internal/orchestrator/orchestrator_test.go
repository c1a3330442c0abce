package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"codeberg.org/snonux/parlo/internal/connectivity"
	"codeberg.org/snonux/parlo/internal/offline"
	"codeberg.org/snonux/parlo/internal/online"
	"codeberg.org/snonux/parlo/internal/testutil"
	"codeberg.org/snonux/parlo/internal/translation"
)

type fixture struct {
	backend *testutil.MockBackend
	engine  *testutil.MockEngine
	monitor *connectivity.Monitor
	manager *offline.Manager
	orch    *Orchestrator

	mu          sync.Mutex
	loadErr     error
	loadStates  []translation.EngineState
	transitions []Transition
}

func newFixture(t *testing.T, reachable, preferOnline bool) *fixture {
	t.Helper()

	f := &fixture{
		backend: &testutil.MockBackend{Translations: map[string]string{"Good morning": "Buenos días"}},
		engine:  &testutil.MockEngine{Translations: map[string]string{"Good morning": "Buenos días"}},
		monitor: connectivity.NewMonitor(reachable, zerolog.Nop()),
	}

	loader := offline.LoaderFunc(func(ctx context.Context, opts offline.LoadOptions) (offline.Engine, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.loadStates = append(f.loadStates, f.manager.State())
		if f.loadErr != nil {
			return nil, f.loadErr
		}
		return f.engine, nil
	})
	f.manager = offline.NewManager(loader, "test-model", zerolog.Nop())

	orch, err := New(Options{
		Online:       online.NewClient(f.backend, f.monitor, online.DefaultConfig(), zerolog.Nop()),
		Offline:      f.manager,
		Connectivity: f.monitor,
		PreferOnline: preferOnline,
		Detector:     func(string) string { return "en" },
		Logger:       zerolog.Nop(),
		OnTransition: func(tr Transition) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.transitions = append(f.transitions, tr)
		},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	f.orch = orch
	return f
}

func (f *fixture) stages() []Stage {
	f.mu.Lock()
	defer f.mu.Unlock()

	stages := []Stage{StageIdle}
	for _, tr := range f.transitions {
		stages = append(stages, tr.To)
	}
	return stages
}

func request(text string, mode translation.Mode) translation.Request {
	return translation.Request{Text: text, SourceLanguage: "en", TargetLanguage: "es", RequestedMode: mode}
}

func TestNewRequiresCollaborators(t *testing.T) {
	manager := offline.NewManager(nil, "m", zerolog.Nop())

	if _, err := New(Options{Connectivity: testutil.StaticReachability{}}); err == nil {
		t.Error("Expected error without offline path")
	}
	if _, err := New(Options{Offline: manager}); err == nil {
		t.Error("Expected error without connectivity source")
	}
}

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		name         string
		mode         translation.Mode
		preferOnline bool
		reachable    bool
		wantPath     translation.Path
		wantNoConn   bool
	}{
		{"auto prefers online and reachable", translation.ModeAuto, true, true, translation.PathOnline, false},
		{"auto prefers online but unreachable", translation.ModeAuto, true, false, translation.PathOffline, false},
		{"auto prefers offline", translation.ModeAuto, false, true, translation.PathOffline, false},
		{"explicit offline while reachable", translation.ModeOffline, true, true, translation.PathOffline, false},
		{"explicit offline while unreachable", translation.ModeOffline, true, false, translation.PathOffline, false},
		{"explicit online while reachable", translation.ModeOnline, true, true, translation.PathOnline, false},
		{"explicit online with offline preference", translation.ModeOnline, false, true, translation.PathOffline, false},
		{"explicit online while unreachable", translation.ModeOnline, true, false, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.reachable, tt.preferOnline)

			result, err := f.orch.Translate(context.Background(), request("Good morning", tt.mode))

			if tt.wantNoConn {
				var noConn *translation.NoConnectivityError
				if !errors.As(err, &noConn) {
					t.Fatalf("Expected NoConnectivityError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Translate failed: %v", err)
			}
			if result.PathUsed != tt.wantPath {
				t.Errorf("Expected path %s, got %s", tt.wantPath, result.PathUsed)
			}
			if result.TranslatedText != "Buenos días" {
				t.Errorf("Expected 'Buenos días', got %q", result.TranslatedText)
			}

			onlineCalls := f.backend.CallCount()
			offlineCalls := f.engine.CallCount()
			if tt.wantPath == translation.PathOnline && (onlineCalls != 1 || offlineCalls != 0) {
				t.Errorf("Expected online only, got online=%d offline=%d", onlineCalls, offlineCalls)
			}
			if tt.wantPath == translation.PathOffline && (onlineCalls != 0 || offlineCalls != 1) {
				t.Errorf("Expected offline only, got online=%d offline=%d", onlineCalls, offlineCalls)
			}
		})
	}
}

func TestOfflineRequestInitializesEngine(t *testing.T) {
	f := newFixture(t, true, true)

	if f.orch.CurrentEngineState() != translation.EngineUninitialized {
		t.Fatalf("Expected uninitialized engine, got %s", f.orch.CurrentEngineState())
	}

	result, err := f.orch.Translate(context.Background(), request("Good morning", translation.ModeOffline))
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	if result.PathUsed != translation.PathOffline {
		t.Errorf("Expected offline path, got %s", result.PathUsed)
	}
	if result.ConfidenceOr(0) != offline.DefaultConfidence {
		t.Errorf("Expected default confidence, got %v", result.ConfidenceOr(0))
	}
	if len(f.loadStates) != 1 || f.loadStates[0] != translation.EngineInitializing {
		t.Errorf("Expected one load while initializing, got %v", f.loadStates)
	}
	if f.orch.CurrentEngineState() != translation.EngineReady {
		t.Errorf("Expected ready engine, got %s", f.orch.CurrentEngineState())
	}
}

func TestEmptyTextRejected(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t"} {
		f := newFixture(t, true, true)

		_, err := f.orch.Translate(context.Background(), request(text, translation.ModeAuto))

		var invalid *translation.InvalidRequestError
		if !errors.As(err, &invalid) {
			t.Fatalf("Expected InvalidRequestError for %q, got %v", text, err)
		}
		if f.backend.CallCount() != 0 || len(f.loadStates) != 0 {
			t.Errorf("Expected no engine to be touched for %q", text)
		}
		if f.orch.CurrentEngineState() != translation.EngineUninitialized {
			t.Errorf("Expected engine state unchanged, got %s", f.orch.CurrentEngineState())
		}
	}
}

func TestInvalidLanguages(t *testing.T) {
	tests := []struct {
		name   string
		source string
		target string
	}{
		{"empty target", "en", ""},
		{"auto target", "en", "auto"},
		{"empty source", "", "es"},
		{"garbage source", "e1", "es"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, true, true)

			_, err := f.orch.Translate(context.Background(), translation.Request{
				Text:           "Hello",
				SourceLanguage: tt.source,
				TargetLanguage: tt.target,
			})

			var invalid *translation.InvalidRequestError
			if !errors.As(err, &invalid) {
				t.Errorf("Expected InvalidRequestError, got %v", err)
			}
		})
	}
}

func TestRegionalTagsAccepted(t *testing.T) {
	tests := []struct {
		source string
		target string
		want   string
	}{
		{"en", "es-419", "Translate: Good morning (en->es)"},
		{"en-GB", "zh-Hant-TW", "Translate: Good morning (en->zh)"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			f := newFixture(t, true, true)

			_, err := f.orch.Translate(context.Background(), translation.Request{
				Text:           "Good morning",
				SourceLanguage: tt.source,
				TargetLanguage: tt.target,
				RequestedMode:  translation.ModeOffline,
			})
			if err != nil {
				t.Fatalf("Translate failed: %v", err)
			}

			if len(f.engine.Calls) != 1 || f.engine.Calls[0] != tt.want {
				t.Errorf("Expected %q, got %v", tt.want, f.engine.Calls)
			}
		})
	}
}

func TestExplicitOnlineWhileUnreachableTouchesNothing(t *testing.T) {
	f := newFixture(t, false, true)

	_, err := f.orch.Translate(context.Background(), request("Good morning", translation.ModeOnline))

	var noConn *translation.NoConnectivityError
	if !errors.As(err, &noConn) {
		t.Fatalf("Expected NoConnectivityError, got %v", err)
	}
	if f.backend.CallCount() != 0 || len(f.loadStates) != 0 {
		t.Error("Expected no engine to be invoked")
	}
}

func TestOnlineFailureFallsBackToOffline(t *testing.T) {
	f := newFixture(t, true, true)
	f.backend.Err = errors.New("502 bad gateway")

	result, err := f.orch.Translate(context.Background(), request("Good morning", translation.ModeAuto))
	if err != nil {
		t.Fatalf("Expected fallback to succeed, got %v", err)
	}

	if result.PathUsed != translation.PathOffline {
		t.Errorf("Expected offline path after fallback, got %s", result.PathUsed)
	}
	if f.backend.CallCount() != 1 || f.engine.CallCount() != 1 {
		t.Errorf("Expected one call per path, got online=%d offline=%d", f.backend.CallCount(), f.engine.CallCount())
	}

	want := []Stage{StageIdle, StageDispatching, StageFallingBack, StageSucceeded}
	if got := f.stages(); !equalStages(got, want) {
		t.Errorf("Expected stages %v, got %v", want, got)
	}
}

func TestBothPathsFail(t *testing.T) {
	f := newFixture(t, true, true)
	f.backend.Err = errors.New("timeout")
	f.loadErr = errors.New("model file missing")

	result, err := f.orch.Translate(context.Background(), request("Good morning", translation.ModeAuto))

	var unavailable *translation.TranslationUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("Expected TranslationUnavailableError, got %v", err)
	}
	if result != (translation.Result{}) {
		t.Errorf("Expected no result, got %+v", result)
	}

	var netErr *translation.NetworkTranslationError
	if !errors.As(unavailable.Online, &netErr) {
		t.Errorf("Expected online cause to be NetworkTranslationError, got %v", unavailable.Online)
	}
	var engineErr *translation.EngineUnavailableError
	if !errors.As(err, &engineErr) {
		t.Errorf("Expected offline cause to be EngineUnavailableError, got %v", unavailable.Offline)
	}
	if f.backend.CallCount() != 1 {
		t.Errorf("Expected no online retry, got %d calls", f.backend.CallCount())
	}

	want := []Stage{StageIdle, StageDispatching, StageFallingBack, StageFailed}
	if got := f.stages(); !equalStages(got, want) {
		t.Errorf("Expected stages %v, got %v", want, got)
	}
}

func TestOfflineFailureHasNoFallback(t *testing.T) {
	f := newFixture(t, true, true)
	f.loadErr = errors.New("no accelerator")

	_, err := f.orch.Translate(context.Background(), request("Good morning", translation.ModeOffline))

	var engineErr *translation.EngineUnavailableError
	if !errors.As(err, &engineErr) {
		t.Fatalf("Expected EngineUnavailableError, got %v", err)
	}
	var unavailable *translation.TranslationUnavailableError
	if errors.As(err, &unavailable) {
		t.Error("Offline-only failure must not be reported as TranslationUnavailableError")
	}
	if f.backend.CallCount() != 0 {
		t.Error("Expected online path not to be used")
	}
	if len(f.loadStates) != 2 {
		t.Errorf("Expected accelerator and baseline attempts, got %d", len(f.loadStates))
	}
}

func TestModeDecidedAtDispatch(t *testing.T) {
	f := newFixture(t, true, true)

	flipping := &flipBackend{MockBackend: f.backend, monitor: f.monitor}
	f.orch.online = online.NewClient(flipping, f.monitor, online.DefaultConfig(), zerolog.Nop())

	result, err := f.orch.Translate(context.Background(), request("Good morning", translation.ModeAuto))
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if result.PathUsed != translation.PathOnline {
		t.Errorf("Expected online path decided at dispatch, got %s", result.PathUsed)
	}
	if f.orch.CurrentConnectivity() {
		t.Error("Expected connectivity to have flipped during the request")
	}

	// The next request observes the new snapshot.
	result, err = f.orch.Translate(context.Background(), request("Good morning", translation.ModeAuto))
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if result.PathUsed != translation.PathOffline {
		t.Errorf("Expected offline path after disconnect, got %s", result.PathUsed)
	}
}

// flipBackend drops connectivity while the remote call is in flight
type flipBackend struct {
	*testutil.MockBackend
	monitor *connectivity.Monitor
}

func (b *flipBackend) Translate(ctx context.Context, text, source, target string) (translation.Output, error) {
	b.monitor.Update(false)
	return b.MockBackend.Translate(ctx, text, source, target)
}

func TestSetModePreference(t *testing.T) {
	f := newFixture(t, true, true)

	f.orch.SetModePreference(false)
	if f.orch.ModePreference() {
		t.Fatal("Expected preference to be offline")
	}

	result, err := f.orch.Translate(context.Background(), request("Good morning", translation.ModeAuto))
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if result.PathUsed != translation.PathOffline {
		t.Errorf("Expected offline path, got %s", result.PathUsed)
	}
}

func TestUnsupportedPairRejected(t *testing.T) {
	f := newFixture(t, true, false)
	f.engine.Pairs = map[[2]string]bool{{"en", "es"}: true}

	if err := f.orch.Warmup(context.Background()); err != nil {
		t.Fatalf("Warmup failed: %v", err)
	}

	_, err := f.orch.Translate(context.Background(), translation.Request{
		Text:           "Good morning",
		SourceLanguage: "en",
		TargetLanguage: "ja",
	})

	var invalid *translation.InvalidRequestError
	if !errors.As(err, &invalid) {
		t.Fatalf("Expected InvalidRequestError, got %v", err)
	}
	if f.engine.CallCount() != 0 {
		t.Error("Expected engine not to be invoked")
	}
}

func TestAutoSourceDetection(t *testing.T) {
	f := newFixture(t, true, false)

	_, err := f.orch.Translate(context.Background(), translation.Request{
		Text:           "Good morning",
		SourceLanguage: "auto",
		TargetLanguage: "ES",
	})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if len(f.engine.Calls) != 1 || !strings.HasSuffix(f.engine.Calls[0], "(en->es)") {
		t.Errorf("Expected detected source and normalized target, got %v", f.engine.Calls)
	}

	f.orch.detector = func(string) string { return "" }
	_, err = f.orch.Translate(context.Background(), translation.Request{
		Text:           "Good morning",
		SourceLanguage: "auto",
		TargetLanguage: "es",
	})
	var invalid *translation.InvalidRequestError
	if !errors.As(err, &invalid) {
		t.Errorf("Expected InvalidRequestError for undetectable source, got %v", err)
	}
}

func TestCancelledAfterOnlineFailureDoesNotFallBack(t *testing.T) {
	f := newFixture(t, true, true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.orch.online = cancellingOnline{cancel: cancel}

	_, err := f.orch.Translate(ctx, request("Good morning", translation.ModeAuto))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if len(f.loadStates) != 0 {
		t.Error("Expected no offline fallback after cancellation")
	}
}

type cancellingOnline struct {
	cancel context.CancelFunc
}

func (c cancellingOnline) Translate(ctx context.Context, text, source, target string) (translation.Result, error) {
	c.cancel()
	return translation.Result{}, &translation.NetworkTranslationError{Backend: "test", Cause: ctx.Err()}
}

func TestWithoutOnlineBackendFallsBack(t *testing.T) {
	f := newFixture(t, true, true)
	f.orch.online = nil

	result, err := f.orch.Translate(context.Background(), request("Good morning", translation.ModeAuto))
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if result.PathUsed != translation.PathOffline {
		t.Errorf("Expected offline path, got %s", result.PathUsed)
	}
}

func TestConcurrentRequestsLoadEngineOnce(t *testing.T) {
	f := newFixture(t, false, true)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := f.orch.Translate(context.Background(), request("Good morning", translation.ModeAuto))
			if err == nil && result.PathUsed != translation.PathOffline {
				err = errors.New("unexpected path " + string(result.PathUsed))
			}
			if err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Translate failed: %v", err)
	}
	if f.manager.Loads() != 1 {
		t.Errorf("Expected one initialization sequence, got %d", f.manager.Loads())
	}
	if f.engine.CallCount() != 20 {
		t.Errorf("Expected 20 inference calls, got %d", f.engine.CallCount())
	}
}

func TestRetryAfterFailedInitialization(t *testing.T) {
	f := newFixture(t, false, true)
	f.loadErr = errors.New("out of memory")

	if err := f.orch.Warmup(context.Background()); err == nil {
		t.Fatal("Expected warmup to fail")
	}
	if f.orch.CurrentEngineState() != translation.EngineUnavailable {
		t.Fatalf("Expected unavailable engine, got %s", f.orch.CurrentEngineState())
	}

	f.mu.Lock()
	f.loadErr = nil
	f.mu.Unlock()

	if err := f.orch.Retry(context.Background()); err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if f.orch.CurrentEngineState() != translation.EngineReady {
		t.Errorf("Expected ready engine after retry, got %s", f.orch.CurrentEngineState())
	}
}

func equalStages(a, b []Stage) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
