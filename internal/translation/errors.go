package translation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnreachable is the cause recorded when the network is known to be down.
var ErrUnreachable = errors.New("network is unreachable")

// InvalidRequestError rejects a request before any engine is touched.
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return "invalid translation request: " + e.Reason
}

// EngineInitializationError reports that the offline engine could not be
// constructed with any placement.
type EngineInitializationError struct {
	Model string
	// Attempts holds the error of every placement that was tried, in order.
	Attempts map[Placement]error
	// Cause is the error of the last attempt.
	Cause error
}

func (e *EngineInitializationError) Error() string {
	if len(e.Attempts) > 1 {
		parts := make([]string, 0, len(e.Attempts))
		for _, p := range []Placement{PlacementAccelerator, PlacementBaseline} {
			if err, ok := e.Attempts[p]; ok {
				parts = append(parts, fmt.Sprintf("%s: %v", p, err))
			}
		}
		return fmt.Sprintf("failed to initialize offline model %q (%s)", e.Model, strings.Join(parts, "; "))
	}
	return fmt.Sprintf("failed to initialize offline model %q: %v", e.Model, e.Cause)
}

func (e *EngineInitializationError) Unwrap() error {
	return e.Cause
}

// EngineUnavailableError is returned by offline translation when the engine
// cannot be made ready.
type EngineUnavailableError struct {
	Cause error
}

func (e *EngineUnavailableError) Error() string {
	if e.Cause == nil {
		return "offline translator not available"
	}
	return fmt.Sprintf("offline translator not available: %v", e.Cause)
}

func (e *EngineUnavailableError) Unwrap() error {
	return e.Cause
}

// NetworkTranslationError reports a failed online translation.
type NetworkTranslationError struct {
	Backend string
	Cause   error
}

func (e *NetworkTranslationError) Error() string {
	return fmt.Sprintf("online translation via %s failed: %v", e.Backend, e.Cause)
}

func (e *NetworkTranslationError) Unwrap() error {
	return e.Cause
}

// NoConnectivityError rejects an explicit online request while the network
// is unreachable.
type NoConnectivityError struct{}

func (e *NoConnectivityError) Error() string {
	return "online translation requested but the network is unreachable"
}

// TranslationUnavailableError is terminal: the online path and its offline
// fallback both failed.
type TranslationUnavailableError struct {
	Online  error
	Offline error
}

func (e *TranslationUnavailableError) Error() string {
	return fmt.Sprintf("translation unavailable: online: %v; offline fallback: %v", e.Online, e.Offline)
}

func (e *TranslationUnavailableError) Unwrap() []error {
	return []error{e.Online, e.Offline}
}

// IsTerminal reports whether err should be shown to the user as
// "translation unavailable" rather than as a request problem.
func IsTerminal(err error) bool {
	var invalid *InvalidRequestError
	var noConn *NoConnectivityError
	return err != nil && !errors.As(err, &invalid) && !errors.As(err, &noConn)
}
