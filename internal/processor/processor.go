package processor

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"codeberg.org/snonux/parlo/internal/audio"
	"codeberg.org/snonux/parlo/internal/batch"
	"codeberg.org/snonux/parlo/internal/cli"
	"codeberg.org/snonux/parlo/internal/connectivity"
	"codeberg.org/snonux/parlo/internal/httpapi"
	"codeberg.org/snonux/parlo/internal/language"
	"codeberg.org/snonux/parlo/internal/offline"
	"codeberg.org/snonux/parlo/internal/online"
	"codeberg.org/snonux/parlo/internal/orchestrator"
	"codeberg.org/snonux/parlo/internal/session"
	"codeberg.org/snonux/parlo/internal/translation"
)

// Processor holds the translation stack built from one set of settings
type Processor struct {
	settings cli.Settings
	logger   zerolog.Logger
	out      io.Writer

	monitor      *connectivity.Monitor
	prober       *connectivity.Prober
	online       *online.Client
	offline      *offline.Manager
	orchestrator *orchestrator.Orchestrator
	speaker      *audio.Speaker

	monitorOnce sync.Once
}

// NewProcessor builds the translation stack. Nothing is loaded and no
// network call is made until the processor is used.
func NewProcessor(settings cli.Settings, logger zerolog.Logger, out io.Writer) (*Processor, error) {
	if out == nil {
		out = os.Stdout
	}

	p := &Processor{
		settings: settings,
		logger:   logger,
		out:      out,
		monitor:  connectivity.NewMonitor(false, logger),
		prober: &connectivity.Prober{
			URL:      settings.ProbeURL,
			Interval: settings.ProbeInterval,
			Timeout:  settings.ProbeTimeout,
			Logger:   logger.With().Str("component", "prober").Logger(),
		},
	}

	p.offline = offline.NewManager(newLoader(settings), offlineModel(settings), logger)

	onlineClient, err := newOnlineClient(settings, p.monitor, logger)
	if err != nil {
		return nil, err
	}
	p.online = onlineClient

	opts := orchestrator.Options{
		Offline:      p.offline,
		Connectivity: p.monitor,
		PreferOnline: settings.PreferOnline,
		Logger:       logger,
	}
	// A typed nil would hide the missing backend from the orchestrator.
	if onlineClient != nil {
		opts.Online = onlineClient
	}
	p.orchestrator, err = orchestrator.New(opts)
	if err != nil {
		return nil, err
	}

	if settings.SpeechEnabled {
		p.speaker = newSpeaker(settings, logger)
	}
	return p, nil
}

// Orchestrator returns the orchestrator driven by this processor
func (p *Processor) Orchestrator() *orchestrator.Orchestrator {
	return p.orchestrator
}

// Monitor returns the connectivity monitor
func (p *Processor) Monitor() *connectivity.Monitor {
	return p.monitor
}

// StartMonitoring probes connectivity once and keeps probing in the
// background until ctx is done.
func (p *Processor) StartMonitoring(ctx context.Context) {
	p.monitorOnce.Do(func() {
		if reachable, err := p.prober.Check(ctx); err == nil {
			p.monitor.Update(reachable)
		}
		go p.prober.Run(ctx, p.monitor)
	})
}

// TranslateOne translates a single phrase and prints the result
func (p *Processor) TranslateOne(ctx context.Context, text, mode string) error {
	req, err := p.settings.RequestTemplate(mode)
	if err != nil {
		return err
	}
	req.Text = text

	p.StartMonitoring(ctx)

	result, err := p.orchestrator.Translate(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintln(p.out, session.FormatResult(result))

	if p.speaker != nil {
		if err := p.speaker.Speak(ctx, result.TranslatedText, language.SpeechLocale(req.TargetLanguage)); err != nil {
			p.logger.Warn().Err(err).Msg("speech playback failed")
		}
	}
	return nil
}

// ProcessBatch translates every phrase of a phrase file
func (p *Processor) ProcessBatch(ctx context.Context, file, mode string, workers int) error {
	entries, err := batch.ReadPhraseFile(file)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no phrases found in %s", file)
	}

	template, err := p.settings.RequestTemplate(mode)
	if err != nil {
		return err
	}

	p.StartMonitoring(ctx)

	failed := 0
	for _, outcome := range batch.TranslateAll(ctx, p.orchestrator, entries, template, workers) {
		if outcome.Err != nil {
			failed++
			p.logger.Error().Err(outcome.Err).Int("line", outcome.Entry.Line).Str("text", outcome.Entry.Text).Msg("translation failed")
			continue
		}
		fmt.Fprintf(p.out, "%s = %s\n", outcome.Entry.Text, session.FormatResult(outcome.Result))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d phrases failed", failed, len(entries))
	}
	return nil
}

// RunSession runs an interactive session reading from in
func (p *Processor) RunSession(ctx context.Context, in io.Reader) error {
	p.StartMonitoring(ctx)

	opts := session.Options{
		Translator:     p.orchestrator,
		Notifier:       p.monitor,
		SourceLanguage: p.settings.Source,
		TargetLanguage: p.settings.Target,
		Out:            p.out,
		Logger:         p.logger,
	}
	if p.speaker != nil {
		opts.Speaker = p.speaker
	}

	controller := session.NewController(opts)
	controller.Start(ctx, p.settings.Warmup)
	defer controller.Stop()

	return controller.RunInteractive(ctx, in)
}

// Serve runs the HTTP API until ctx is done
func (p *Processor) Serve(ctx context.Context, listen string) error {
	p.StartMonitoring(ctx)

	if listen == "" {
		listen = p.settings.Listen
	}

	if p.settings.Warmup {
		go func() {
			if err := p.orchestrator.Warmup(ctx); err != nil {
				p.logger.Warn().Err(err).Str("model", p.offline.Model()).Msg("offline warm-up failed")
				return
			}
			p.logger.Info().
				Str("model", p.offline.Model()).
				Str("placement", string(p.offline.Placement())).
				Int("loads", p.offline.Loads()).
				Msg("offline engine ready")
		}()
	}

	server := httpapi.NewServer(p.orchestrator, p.logger, httpapi.Options{
		Listen:        listen,
		DefaultSource: p.settings.Source,
		DefaultTarget: p.settings.Target,
	})
	return server.Start(ctx)
}

// Close releases the offline engine
func (p *Processor) Close() error {
	return p.offline.Close()
}

func offlineModel(settings cli.Settings) string {
	if settings.OfflineEngine == "phrasebook" {
		return settings.Phrasebook
	}
	return settings.OfflineModel
}

func newLoader(settings cli.Settings) offline.Loader {
	if settings.OfflineEngine == "phrasebook" {
		return &offline.PhrasebookLoader{MaxPreload: settings.MaxPreload, Path: settings.Phrasebook}
	}
	return &offline.LocalModelLoader{
		Endpoints: map[translation.Placement]string{
			translation.PlacementAccelerator: settings.AcceleratorEndpoint,
			translation.PlacementBaseline:    settings.BaselineEndpoint,
		},
		Languages: settings.OfflineLanguages,
	}
}

// newOnlineClient returns nil when the configured provider has no API key
// and no custom endpoint.
func newOnlineClient(settings cli.Settings, monitor *connectivity.Monitor, logger zerolog.Logger) (*online.Client, error) {
	switch settings.OnlineProvider {
	case "gemini":
		if settings.GeminiKey == "" {
			logger.Warn().Msg("no Gemini API key configured, online translation disabled")
			return nil, nil
		}
	default:
		if settings.OpenAIKey == "" && settings.OpenAIURL == "" {
			logger.Warn().Msg("no OpenAI API key configured, online translation disabled")
			return nil, nil
		}
	}

	backend, err := online.NewBackend(online.BackendConfig{
		Provider:    settings.OnlineProvider,
		OpenAIKey:   settings.OpenAIKey,
		OpenAIModel: settings.OpenAIModel,
		OpenAIURL:   settings.OpenAIURL,
		GeminiKey:   settings.GeminiKey,
		GeminiModel: settings.GeminiModel,
	})
	if err != nil {
		return nil, err
	}

	config := online.DefaultConfig()
	if settings.BreakerFailures > 0 {
		config.BreakerFailures = settings.BreakerFailures
	}
	if settings.BreakerTimeout > 0 {
		config.BreakerTimeout = settings.BreakerTimeout
	}
	if settings.OnlineTimeout > 0 {
		config.Timeout = settings.OnlineTimeout
	}
	return online.NewClient(backend, monitor, config, logger), nil
}

// newSpeaker returns nil when no speech provider or no player can be set
// up. Speech is optional, so problems are only logged.
func newSpeaker(settings cli.Settings, logger zerolog.Logger) *audio.Speaker {
	player, err := audio.NewCommandPlayer(settings.SpeechPlayer)
	if err != nil {
		logger.Warn().Err(err).Msg("speech disabled")
		return nil
	}

	var providers []audio.Provider
	if settings.SpeechProvider == "openai" {
		config := audio.DefaultProviderConfig()
		config.OpenAIKey = settings.OpenAIKey
		config.OpenAIURL = settings.OpenAIURL
		if settings.SpeechOpenAIModel != "" {
			config.OpenAIModel = settings.SpeechOpenAIModel
		}
		if settings.SpeechOpenAIVoice != "" {
			config.OpenAIVoice = settings.SpeechOpenAIVoice
		}
		if settings.SpeechOpenAISpeed > 0 {
			config.OpenAISpeed = settings.SpeechOpenAISpeed
		}
		config.EnableCache = settings.SpeechCache
		config.CacheDir = cli.DefaultSpeechCacheDir()

		if provider, err := audio.NewProvider(config); err != nil {
			logger.Warn().Err(err).Msg("OpenAI speech unavailable")
		} else {
			providers = append(providers, provider)
		}
	}

	// espeak-ng is the local fallback for every configuration
	if espeak, err := audio.NewESpeakProvider(nil); err != nil {
		logger.Debug().Err(err).Msg("espeak-ng unavailable")
	} else {
		providers = append(providers, espeak)
	}

	chain := audio.NewChain(logger, providers...)
	if err := chain.IsAvailable(); err != nil {
		logger.Warn().Err(err).Msg("speech disabled")
		return nil
	}
	return audio.NewSpeaker(chain, player, "mp3", logger)
}
