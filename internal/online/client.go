package online

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"codeberg.org/snonux/parlo/internal/connectivity"
	"codeberg.org/snonux/parlo/internal/translation"
)

// Backend is a remote translation service.
type Backend interface {
	Name() string
	Translate(ctx context.Context, text, source, target string) (translation.Output, error)
}

// Reachability reports the current connectivity snapshot.
type Reachability interface {
	Current() connectivity.Snapshot
}

// Config holds client tuning.
type Config struct {
	// BreakerFailures is the number of consecutive failures that opens the breaker.
	BreakerFailures uint32
	// BreakerTimeout is how long the breaker stays open before probing again.
	BreakerTimeout time.Duration
	// Timeout bounds a single backend call; zero leaves it to the caller.
	Timeout time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		BreakerFailures: 3,
		BreakerTimeout:  30 * time.Second,
		Timeout:         20 * time.Second,
	}
}

// Client translates through a Backend.
type Client struct {
	backend      Backend
	reachability Reachability
	breaker      *gobreaker.CircuitBreaker
	timeout      time.Duration
	logger       zerolog.Logger
}

// NewClient creates a client. reachability may be nil when no monitor exists.
func NewClient(backend Backend, reachability Reachability, config Config, logger zerolog.Logger) *Client {
	logger = logger.With().Str("component", "online").Str("backend", backend.Name()).Logger()

	failures := config.BreakerFailures
	if failures == 0 {
		failures = DefaultConfig().BreakerFailures
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        backend.Name(),
		MaxRequests: 1,
		Timeout:     config.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})

	return &Client{
		backend:      backend,
		reachability: reachability,
		breaker:      breaker,
		timeout:      config.Timeout,
		logger:       logger,
	}
}

// Name returns the backend name.
func (c *Client) Name() string {
	return c.backend.Name()
}

// BreakerState returns the circuit breaker state ("closed", "open", "half-open").
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// Translate performs one remote translation.
func (c *Client) Translate(ctx context.Context, text, source, target string) (translation.Result, error) {
	if c.reachability != nil && !c.reachability.Current().Reachable {
		return translation.Result{}, c.fail(translation.ErrUnreachable)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	started := time.Now()
	value, err := c.breaker.Execute(func() (interface{}, error) {
		return c.backend.Translate(ctx, text, source, target)
	})
	if err != nil {
		return translation.Result{}, c.fail(err)
	}

	out := value.(translation.Output)
	translated := strings.TrimSpace(out.Text)
	if translated == "" {
		return translation.Result{}, c.fail(fmt.Errorf("empty translation returned"))
	}

	c.logger.Debug().Dur("latency", time.Since(started)).Msg("online translation complete")

	return translation.Result{
		TranslatedText: translated,
		Confidence:     out.Score,
		PathUsed:       translation.PathOnline,
	}, nil
}

// SupportsPair delegates to the backend when it knows its languages.
func (c *Client) SupportsPair(source, target string) bool {
	if pc, ok := c.backend.(translation.PairChecker); ok {
		return pc.SupportsPair(source, target)
	}
	return true
}

func (c *Client) fail(cause error) error {
	return &translation.NetworkTranslationError{Backend: c.backend.Name(), Cause: cause}
}
