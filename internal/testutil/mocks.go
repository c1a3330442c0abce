package testutil

import (
	"context"
	"fmt"
	"sync"

	"codeberg.org/snonux/parlo/internal/connectivity"
	"codeberg.org/snonux/parlo/internal/translation"
)

// MockBackend mocks a remote translation backend
type MockBackend struct {
	BackendName  string
	Translations map[string]string
	Errors       map[string]error
	Err          error
	Score        *float64

	mu    sync.Mutex
	Calls []string
}

// Name returns the backend name
func (m *MockBackend) Name() string {
	if m.BackendName == "" {
		return "mock"
	}
	return m.BackendName
}

// Translate mocks a remote translation
func (m *MockBackend) Translate(ctx context.Context, text, source, target string) (translation.Output, error) {
	m.record(fmt.Sprintf("Translate: %s (%s->%s)", text, source, target))
	return lookup(m.Translations, m.Errors, m.Err, m.Score, text)
}

// CallCount returns the number of Translate calls
func (m *MockBackend) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

func (m *MockBackend) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

// MockEngine mocks a loaded offline engine
type MockEngine struct {
	Translations map[string]string
	Errors       map[string]error
	Err          error
	Score        *float64
	// Pairs restricts SupportsPair when non-nil
	Pairs map[[2]string]bool

	mu    sync.Mutex
	Calls []string
}

// Translate mocks a local inference call
func (m *MockEngine) Translate(ctx context.Context, text, source, target string) (translation.Output, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, fmt.Sprintf("Translate: %s (%s->%s)", text, source, target))
	m.mu.Unlock()
	return lookup(m.Translations, m.Errors, m.Err, m.Score, text)
}

// SupportsPair reports whether the pair is in Pairs
func (m *MockEngine) SupportsPair(source, target string) bool {
	if m.Pairs == nil {
		return true
	}
	return m.Pairs[[2]string{source, target}]
}

// CallCount returns the number of Translate calls
func (m *MockEngine) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

func lookup(translations map[string]string, errs map[string]error, err error, score *float64, text string) (translation.Output, error) {
	if err != nil {
		return translation.Output{}, err
	}
	if e, ok := errs[text]; ok {
		return translation.Output{}, e
	}
	if translated, ok := translations[text]; ok {
		return translation.Output{Text: translated, Score: score}, nil
	}

	// Default mock translation
	return translation.Output{Text: fmt.Sprintf("mock translation of %s", text), Score: score}, nil
}

// StaticReachability reports a fixed connectivity snapshot
type StaticReachability struct {
	Snapshot connectivity.Snapshot
}

// Current returns the configured snapshot
func (s StaticReachability) Current() connectivity.Snapshot {
	return s.Snapshot
}

// MockTranslator mocks the orchestrator as seen by session controllers
type MockTranslator struct {
	Results map[string]translation.Result
	Errors  map[string]error
	State   translation.EngineState
	Online  bool

	mu           sync.Mutex
	PreferOnline bool
	Requests     []translation.Request
	Warmups      int
	Retries      int
	WarmupErr    error
	RetryErr     error
}

// Translate returns the scripted result for req.Text
func (m *MockTranslator) Translate(ctx context.Context, req translation.Request) (translation.Result, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()

	if err, ok := m.Errors[req.Text]; ok {
		return translation.Result{}, err
	}
	if result, ok := m.Results[req.Text]; ok {
		return result, nil
	}
	return translation.Result{
		TranslatedText: fmt.Sprintf("mock translation of %s", req.Text),
		PathUsed:       translation.PathOffline,
	}, nil
}

// CurrentEngineState returns the scripted engine state
func (m *MockTranslator) CurrentEngineState() translation.EngineState {
	return m.State
}

// CurrentConnectivity returns the scripted reachability
func (m *MockTranslator) CurrentConnectivity() bool {
	return m.Online
}

// SetModePreference records the preference
func (m *MockTranslator) SetModePreference(preferOnline bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PreferOnline = preferOnline
}

// ModePreference returns the recorded preference
func (m *MockTranslator) ModePreference() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PreferOnline
}

// Warmup counts warm-up calls
func (m *MockTranslator) Warmup(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Warmups++
	return m.WarmupErr
}

// Retry counts retry calls
func (m *MockTranslator) Retry(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Retries++
	return m.RetryErr
}

// RequestCount returns the number of Translate calls
func (m *MockTranslator) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// MockSpeaker records speech playback requests
type MockSpeaker struct {
	Err error

	mu     sync.Mutex
	Spoken []string
}

// Speak records text and locale
func (m *MockSpeaker) Speak(ctx context.Context, text, locale string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Spoken = append(m.Spoken, fmt.Sprintf("%s [%s]", text, locale))
	return m.Err
}

// SpokenCopy returns a copy of the recorded playback requests
func (m *MockSpeaker) SpokenCopy() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Spoken...)
}
