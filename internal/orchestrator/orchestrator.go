package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"codeberg.org/snonux/parlo/internal/connectivity"
	"codeberg.org/snonux/parlo/internal/langdetect"
	"codeberg.org/snonux/parlo/internal/language"
	"codeberg.org/snonux/parlo/internal/translation"
)

// OnlinePath is the network translation client.
type OnlinePath interface {
	translation.Translator
}

// OfflinePath is the offline engine manager.
type OfflinePath interface {
	translation.Translator
	State() translation.EngineState
}

// Connectivity is the reachability source read at dispatch time.
type Connectivity interface {
	Current() connectivity.Snapshot
}

// Options configures an Orchestrator.
type Options struct {
	// Online may be nil; the online path then always fails and falls back.
	Online       OnlinePath
	Offline      OfflinePath
	Connectivity Connectivity
	PreferOnline bool
	// Detector resolves source language "auto". Defaults to lingua detection.
	Detector     func(text string) string
	Logger       zerolog.Logger
	OnTransition func(Transition)
}

// Orchestrator coordinates the online and offline translation paths.
type Orchestrator struct {
	online       OnlinePath
	offline      OfflinePath
	connectivity Connectivity
	detector     func(string) string
	logger       zerolog.Logger
	onTransition func(Transition)

	preferOnline atomic.Bool
}

// New creates an orchestrator. Offline and Connectivity are required.
func New(opts Options) (*Orchestrator, error) {
	if opts.Offline == nil {
		return nil, errors.New("orchestrator requires an offline path")
	}
	if opts.Connectivity == nil {
		return nil, errors.New("orchestrator requires a connectivity source")
	}

	detector := opts.Detector
	if detector == nil {
		detector = langdetect.DetectISO6391
	}

	o := &Orchestrator{
		online:       opts.Online,
		offline:      opts.Offline,
		connectivity: opts.Connectivity,
		detector:     detector,
		logger:       opts.Logger.With().Str("component", "orchestrator").Logger(),
		onTransition: opts.OnTransition,
	}
	o.preferOnline.Store(opts.PreferOnline)
	return o, nil
}

// CurrentEngineState returns the offline engine state.
func (o *Orchestrator) CurrentEngineState() translation.EngineState {
	return o.offline.State()
}

// SetModePreference changes the preference used by requests dispatched from
// now on. In-flight requests keep their decision.
func (o *Orchestrator) SetModePreference(preferOnline bool) {
	if o.preferOnline.Swap(preferOnline) != preferOnline {
		o.logger.Info().Bool("prefer_online", preferOnline).Msg("mode preference changed")
	}
}

// ModePreference returns whether online translation is preferred.
func (o *Orchestrator) ModePreference() bool {
	return o.preferOnline.Load()
}

// CurrentConnectivity reports whether the network is reachable.
func (o *Orchestrator) CurrentConnectivity() bool {
	return o.connectivity.Current().Reachable
}

// Translate runs one request to completion.
func (o *Orchestrator) Translate(ctx context.Context, req translation.Request) (translation.Result, error) {
	id := uuid.NewString()
	logger := o.logger.With().Str("request_id", id).Logger()

	req, err := o.prepare(req)
	if err != nil {
		o.transition(logger, Transition{RequestID: id, From: StageIdle, To: StageFailed, Err: err})
		return translation.Result{}, err
	}

	snap := o.connectivity.Current()
	path, err := o.effectivePath(req.RequestedMode, snap.Reachable)
	if err != nil {
		o.transition(logger, Transition{RequestID: id, From: StageIdle, To: StageFailed, Err: err})
		return translation.Result{}, err
	}

	if err := o.checkPair(path, req.SourceLanguage, req.TargetLanguage); err != nil {
		o.transition(logger, Transition{RequestID: id, From: StageIdle, To: StageFailed, Path: path, Err: err})
		return translation.Result{}, err
	}

	logger = logger.With().
		Str("source", req.SourceLanguage).
		Str("target", req.TargetLanguage).
		Uint64("connectivity_version", snap.Version).
		Logger()

	started := time.Now()
	o.transition(logger, Transition{RequestID: id, From: StageIdle, To: StageDispatching, Path: path})

	if path == translation.PathOffline {
		result, err := o.offline.Translate(ctx, req.Text, req.SourceLanguage, req.TargetLanguage)
		return o.finish(logger, id, StageDispatching, started, result, err)
	}

	result, onlineErr := o.translateOnline(ctx, req)
	if onlineErr == nil {
		return o.finish(logger, id, StageDispatching, started, result, nil)
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return o.finish(logger, id, StageDispatching, started, translation.Result{}, fmt.Errorf("online translation abandoned: %w", ctxErr))
	}

	o.transition(logger, Transition{
		RequestID: id,
		From:      StageDispatching,
		To:        StageFallingBack,
		Path:      translation.PathOffline,
		Err:       onlineErr,
	})

	result, offlineErr := o.offline.Translate(ctx, req.Text, req.SourceLanguage, req.TargetLanguage)
	if offlineErr != nil {
		offlineErr = &translation.TranslationUnavailableError{Online: onlineErr, Offline: offlineErr}
	}
	return o.finish(logger, id, StageFallingBack, started, result, offlineErr)
}

// Warmup initializes the offline engine if the path supports it.
func (o *Orchestrator) Warmup(ctx context.Context) error {
	warmer, ok := o.offline.(interface{ EnsureReady(context.Context) error })
	if !ok {
		return nil
	}
	return warmer.EnsureReady(ctx)
}

// Retry re-triggers a failed offline initialization.
func (o *Orchestrator) Retry(ctx context.Context) error {
	retrier, ok := o.offline.(interface{ Retry(context.Context) error })
	if !ok {
		return o.Warmup(ctx)
	}
	return retrier.Retry(ctx)
}

func (o *Orchestrator) translateOnline(ctx context.Context, req translation.Request) (translation.Result, error) {
	if o.online == nil {
		return translation.Result{}, &translation.NetworkTranslationError{
			Backend: "none",
			Cause:   errors.New("no online backend configured"),
		}
	}
	return o.online.Translate(ctx, req.Text, req.SourceLanguage, req.TargetLanguage)
}

// prepare validates req and resolves its language codes.
func (o *Orchestrator) prepare(req translation.Request) (translation.Request, error) {
	if strings.TrimSpace(req.Text) == "" {
		return req, &translation.InvalidRequestError{Reason: "text must not be empty"}
	}

	switch req.RequestedMode {
	case translation.ModeAuto, translation.ModeOnline, translation.ModeOffline:
	default:
		return req, &translation.InvalidRequestError{Reason: fmt.Sprintf("unknown mode %q", req.RequestedMode)}
	}

	target := language.NormalizeCode(req.TargetLanguage)
	if target == "" || target == language.Auto {
		return req, &translation.InvalidRequestError{Reason: fmt.Sprintf("invalid target language %q", req.TargetLanguage)}
	}

	source := language.NormalizeCode(req.SourceLanguage)
	if source == "" {
		return req, &translation.InvalidRequestError{Reason: fmt.Sprintf("invalid source language %q", req.SourceLanguage)}
	}
	if source == language.Auto {
		source = o.detector(req.Text)
		if source == "" {
			return req, &translation.InvalidRequestError{Reason: "could not detect the source language"}
		}
	}

	req.SourceLanguage = source
	req.TargetLanguage = target
	return req, nil
}

func (o *Orchestrator) effectivePath(mode translation.Mode, reachable bool) (translation.Path, error) {
	switch {
	case mode == translation.ModeOffline:
		return translation.PathOffline, nil
	case mode == translation.ModeOnline && !reachable:
		return "", &translation.NoConnectivityError{}
	case o.preferOnline.Load() && reachable:
		return translation.PathOnline, nil
	default:
		return translation.PathOffline, nil
	}
}

// checkPair rejects an unsupported pair when the engine on path can tell.
func (o *Orchestrator) checkPair(path translation.Path, source, target string) error {
	var engine any = o.offline
	if path == translation.PathOnline {
		engine = o.online
	}

	checker, ok := engine.(translation.PairChecker)
	if !ok || checker.SupportsPair(source, target) {
		return nil
	}
	return &translation.InvalidRequestError{
		Reason: fmt.Sprintf("unsupported language pair %s->%s for %s translation", source, target, path),
	}
}

func (o *Orchestrator) finish(logger zerolog.Logger, id string, from Stage, started time.Time, result translation.Result, err error) (translation.Result, error) {
	if err != nil {
		o.transition(logger, Transition{RequestID: id, From: from, To: StageFailed, Err: err})
		return translation.Result{}, err
	}

	logger.Debug().Dur("latency", time.Since(started)).Msg("translation complete")
	o.transition(logger, Transition{RequestID: id, From: from, To: StageSucceeded, Path: result.PathUsed})
	return result, nil
}

func (o *Orchestrator) transition(logger zerolog.Logger, t Transition) {
	event := logger.Debug()
	switch t.To {
	case StageFallingBack:
		event = logger.Warn()
	case StageFailed:
		event = logger.Warn()
	}
	event.Str("from", string(t.From)).Str("to", string(t.To))
	if t.Path != "" {
		event.Str("path", string(t.Path))
	}
	if t.Err != nil {
		event.Err(t.Err)
	}
	event.Msg("request stage changed")

	if o.onTransition != nil {
		o.onTransition(t)
	}
}
