package offline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"codeberg.org/snonux/parlo/internal/translation"
)

// DefaultConfidence is reported when the engine supplies no score.
const DefaultConfidence = 0.8

const initKey = "init"

// placements lists the placements tried by one initialization, in order.
var placements = []translation.Placement{
	translation.PlacementAccelerator,
	translation.PlacementBaseline,
}

// Manager owns the lifecycle of the offline engine.
type Manager struct {
	loader Loader
	model  string
	logger zerolog.Logger

	group singleflight.Group

	mu        sync.RWMutex
	state     translation.EngineState
	engine    Engine
	placement translation.Placement
	initErr   error
	loads     int
}

// NewManager creates a manager in the Uninitialized state. Nothing is loaded
// until the first EnsureReady or Translate.
func NewManager(loader Loader, model string, logger zerolog.Logger) *Manager {
	return &Manager{
		loader: loader,
		model:  model,
		logger: logger.With().Str("component", "offline").Str("model", model).Logger(),
		state:  translation.EngineUninitialized,
	}
}

// State is a synchronous readout for display purposes.
func (m *Manager) State() translation.EngineState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Placement returns the placement of the ready engine, or "" when not ready.
func (m *Manager) Placement() translation.Placement {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.placement
}

// Model returns the configured model identifier.
func (m *Manager) Model() string {
	return m.model
}

// Loads returns how many initialization sequences have been started.
func (m *Manager) Loads() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loads
}

// EnsureReady makes the engine ready. Concurrent callers attach to the same
// in-flight initialization. An Unavailable engine is not reloaded; use Retry.
//
// The initialization runs detached from ctx: if ctx ends first, EnsureReady
// returns ctx.Err() and the load still completes in the background.
func (m *Manager) EnsureReady(ctx context.Context) error {
	m.mu.RLock()
	state, initErr := m.state, m.initErr
	m.mu.RUnlock()

	switch state {
	case translation.EngineReady:
		return nil
	case translation.EngineUnavailable:
		return initErr
	}

	detached := context.WithoutCancel(ctx)
	ch := m.group.DoChan(initKey, func() (interface{}, error) {
		return nil, m.initialize(detached)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Retry re-triggers initialization after a failure.
func (m *Manager) Retry(ctx context.Context) error {
	m.mu.Lock()
	if m.state == translation.EngineUnavailable {
		m.state = translation.EngineUninitialized
		m.initErr = nil
		m.logger.Info().Msg("retrying offline translator initialization")
	}
	m.mu.Unlock()

	return m.EnsureReady(ctx)
}

func (m *Manager) initialize(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case translation.EngineReady:
		m.mu.Unlock()
		return nil
	case translation.EngineUnavailable:
		err := m.initErr
		m.mu.Unlock()
		return err
	}
	m.state = translation.EngineInitializing
	m.loads++
	m.mu.Unlock()

	m.logger.Info().Msg("initializing offline translator")

	attempts := make(map[translation.Placement]error, len(placements))
	var lastErr error
	for _, placement := range placements {
		engine, err := m.load(ctx, placement)
		if err == nil {
			m.mu.Lock()
			m.engine = engine
			m.placement = placement
			m.state = translation.EngineReady
			m.mu.Unlock()

			m.logger.Info().Str("placement", string(placement)).Msg("offline translator ready")
			return nil
		}

		attempts[placement] = err
		lastErr = err
		m.logger.Warn().Err(err).Str("placement", string(placement)).Msg("failed to initialize offline translator")
	}

	initErr := &translation.EngineInitializationError{
		Model:    m.model,
		Attempts: attempts,
		Cause:    lastErr,
	}

	m.mu.Lock()
	m.state = translation.EngineUnavailable
	m.initErr = initErr
	m.mu.Unlock()

	m.logger.Error().Err(lastErr).Msg("offline translator unavailable")
	return initErr
}

func (m *Manager) load(ctx context.Context, placement translation.Placement) (engine Engine, err error) {
	if m.loader == nil {
		return nil, errors.New("no offline loader configured")
	}

	defer func() {
		if r := recover(); r != nil {
			engine = nil
			err = fmt.Errorf("loader panicked: %v", r)
		}
	}()

	engine, err = m.loader.Load(ctx, LoadOptions{
		Task:      TaskTranslation,
		Model:     m.model,
		Placement: placement,
	})
	if err == nil && engine == nil {
		err = errors.New("loader returned no engine")
	}
	return engine, err
}

// Translate runs the offline engine, initializing it first when needed.
func (m *Manager) Translate(ctx context.Context, text, source, target string) (translation.Result, error) {
	if err := m.EnsureReady(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return translation.Result{}, err
		}
		return translation.Result{}, &translation.EngineUnavailableError{Cause: err}
	}

	m.mu.RLock()
	engine := m.engine
	m.mu.RUnlock()

	out, err := engine.Translate(ctx, text, source, target)
	if err != nil {
		return translation.Result{}, fmt.Errorf("offline translation: %w", err)
	}
	if out.Text == "" {
		return translation.Result{}, errors.New("offline translation: engine returned empty text")
	}

	confidence := out.Score
	if confidence == nil {
		confidence = translation.Float(DefaultConfidence)
	}

	return translation.Result{
		TranslatedText: out.Text,
		Confidence:     confidence,
		PathUsed:       translation.PathOffline,
	}, nil
}

// SupportsPair consults the ready engine, then the loader. Without either
// knowing its languages every pair is accepted.
func (m *Manager) SupportsPair(source, target string) bool {
	m.mu.RLock()
	engine := m.engine
	m.mu.RUnlock()

	if pc, ok := engine.(translation.PairChecker); ok {
		return pc.SupportsPair(source, target)
	}
	if pc, ok := m.loader.(translation.PairChecker); ok {
		return pc.SupportsPair(source, target)
	}
	return true
}

// Close releases the engine if it holds resources. The manager must not be
// used afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	engine := m.engine
	m.mu.Unlock()

	if closer, ok := engine.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
