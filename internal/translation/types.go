package translation

import (
	"context"
	"fmt"
	"strings"
)

// Mode is the translation path requested by the caller.
type Mode string

const (
	// ModeAuto follows the mode preference and live connectivity.
	ModeAuto Mode = ""
	// ModeOnline explicitly requests the network path.
	ModeOnline Mode = "online"
	// ModeOffline explicitly requests the local model.
	ModeOffline Mode = "offline"
)

// ParseMode converts user input ("auto", "online", "offline") into a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, nil
	case "online":
		return ModeOnline, nil
	case "offline":
		return ModeOffline, nil
	default:
		return ModeAuto, fmt.Errorf("unknown translation mode: %s", s)
	}
}

func (m Mode) String() string {
	if m == ModeAuto {
		return "auto"
	}
	return string(m)
}

// Path identifies the engine that actually produced a result.
type Path string

const (
	PathOnline  Path = "online"
	PathOffline Path = "offline"
)

// Request is one translation request. It is passed by value and never
// modified after it has been issued.
type Request struct {
	Text           string
	SourceLanguage string
	TargetLanguage string
	RequestedMode  Mode
}

// Result is the outcome of one successful translation.
type Result struct {
	TranslatedText string
	// Confidence is nil when the producing engine reports none.
	Confidence *float64
	PathUsed   Path
}

// ConfidenceOr returns the confidence, or def when none was reported.
func (r Result) ConfidenceOr(def float64) float64 {
	if r.Confidence == nil {
		return def
	}
	return *r.Confidence
}

// Output is the raw answer of an engine or backend before it becomes a Result.
type Output struct {
	Text  string
	Score *float64
}

// EngineState is the readiness of the offline engine.
type EngineState int

const (
	EngineUninitialized EngineState = iota
	EngineInitializing
	EngineReady
	EngineUnavailable
)

func (s EngineState) String() string {
	switch s {
	case EngineUninitialized:
		return "uninitialized"
	case EngineInitializing:
		return "initializing"
	case EngineReady:
		return "ready"
	case EngineUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("EngineState(%d)", int(s))
	}
}

// Placement is the compute placement hint passed to the offline capability.
type Placement string

const (
	// PlacementAccelerator prefers a GPU or similar accelerator.
	PlacementAccelerator Placement = "accelerator"
	// PlacementBaseline runs without an accelerator.
	PlacementBaseline Placement = "baseline"
)

// PairChecker is implemented by engines that know which language pairs
// they can translate.
type PairChecker interface {
	SupportsPair(source, target string) bool
}

// Translator is the common shape of the online client and the offline manager.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (Result, error)
}

// Float returns a pointer to f. It is used for optional confidence values.
func Float(f float64) *float64 {
	return &f
}
