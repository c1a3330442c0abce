// Package session drives an interactive translation session: it feeds
// dictated phrases to the orchestrator, renders results, speaks them and
// tells the user when the network comes and goes.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"codeberg.org/snonux/parlo/internal/connectivity"
	"codeberg.org/snonux/parlo/internal/language"
	"codeberg.org/snonux/parlo/internal/translation"
)

const (
	noticeDisconnected = "Network disconnected, switched to offline translation"
	noticeRestored     = "Network restored"
	noticeUnavailable  = "Translation unavailable"

	noticeOnlineWithoutNetwork = "No network connection, translating offline until it returns"
)

// Translator is the orchestration core as seen by a session.
type Translator interface {
	Translate(ctx context.Context, req translation.Request) (translation.Result, error)
	CurrentEngineState() translation.EngineState
	SetModePreference(preferOnline bool)
	ModePreference() bool
	CurrentConnectivity() bool
	Warmup(ctx context.Context) error
	Retry(ctx context.Context) error
}

// Speaker plays a translation aloud.
type Speaker interface {
	Speak(ctx context.Context, text, locale string) error
}

// ChangeNotifier delivers connectivity changes.
type ChangeNotifier interface {
	OnChange(listener func(connectivity.Snapshot)) (unsubscribe func())
}

// Options configures a Controller.
type Options struct {
	Translator Translator
	// Speaker is optional; without it nothing is spoken.
	Speaker Speaker
	// Notifier is optional; without it no connectivity notices are shown.
	Notifier       ChangeNotifier
	SourceLanguage string
	TargetLanguage string
	Out            io.Writer
	HistorySize    int
	Logger         zerolog.Logger
}

// Controller is one user session.
type Controller struct {
	translator Translator
	speaker    Speaker
	notifier   ChangeNotifier
	history    *History
	logger     zerolog.Logger

	outMu sync.Mutex
	out   io.Writer

	mu     sync.Mutex
	source string
	target string
	mode   translation.Mode

	unsubscribe func()
	warmup      sync.WaitGroup
}

// NewController creates a session controller.
func NewController(opts Options) *Controller {
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	source := opts.SourceLanguage
	if source == "" {
		source = language.Auto
	}

	return &Controller{
		translator: opts.Translator,
		speaker:    opts.Speaker,
		notifier:   opts.Notifier,
		history:    NewHistory(opts.HistorySize),
		logger:     opts.Logger.With().Str("component", "session").Logger(),
		out:        out,
		source:     source,
		target:     opts.TargetLanguage,
	}
}

// Start subscribes to connectivity changes and, when warmup is set, begins
// offline initialization in the background.
func (c *Controller) Start(ctx context.Context, warmup bool) {
	if c.notifier != nil && c.unsubscribe == nil {
		c.unsubscribe = c.notifier.OnChange(c.onConnectivityChange)
	}

	if warmup {
		c.warmup.Add(1)
		go func() {
			defer c.warmup.Done()
			if err := c.translator.Warmup(ctx); err != nil {
				c.logger.Warn().Err(err).Msg("offline warm-up failed")
				return
			}
			c.logger.Debug().Msg("offline warm-up finished")
		}()
	}
}

// Stop unsubscribes from connectivity changes and waits for the warm-up.
func (c *Controller) Stop() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	c.warmup.Wait()
}

// History returns the results of this session.
func (c *Controller) History() []Entry {
	return c.history.Entries()
}

// SetLanguages changes the language pair for following phrases.
func (c *Controller) SetLanguages(source, target string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.source = source
	c.target = target
}

// SetMode changes the requested mode for following phrases.
func (c *Controller) SetMode(mode translation.Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = mode
}

// Handle translates one dictated phrase, prints the outcome and speaks it.
func (c *Controller) Handle(ctx context.Context, text string) (translation.Result, error) {
	c.mu.Lock()
	req := translation.Request{
		Text:           text,
		SourceLanguage: c.source,
		TargetLanguage: c.target,
		RequestedMode:  c.mode,
	}
	c.mu.Unlock()

	result, err := c.translator.Translate(ctx, req)
	if err != nil {
		c.logger.Debug().Err(err).Msg("translation failed")
		c.printf("%s\n", describeError(err))
		return result, err
	}

	c.history.Add(Entry{Time: time.Now(), Request: req, Result: result})
	c.printf("%s\n", FormatResult(result))

	if c.speaker != nil {
		locale := language.SpeechLocale(req.TargetLanguage)
		if err := c.speaker.Speak(ctx, result.TranslatedText, locale); err != nil {
			c.logger.Warn().Err(err).Str("locale", locale).Msg("speech playback failed")
		}
	}

	return result, nil
}

// FormatResult renders a result as "text [path confidence]".
func FormatResult(result translation.Result) string {
	if result.Confidence == nil {
		return fmt.Sprintf("%s [%s]", result.TranslatedText, result.PathUsed)
	}
	return fmt.Sprintf("%s [%s %.2f]", result.TranslatedText, result.PathUsed, *result.Confidence)
}

func describeError(err error) string {
	if errors.Is(err, context.Canceled) {
		return "Cancelled"
	}
	if translation.IsTerminal(err) {
		return noticeUnavailable
	}

	var invalid *translation.InvalidRequestError
	if errors.As(err, &invalid) {
		return "Invalid request: " + invalid.Reason
	}
	return "No network connection for online translation"
}

func (c *Controller) onConnectivityChange(snap connectivity.Snapshot) {
	if snap.Reachable {
		c.printf("%s\n", noticeRestored)
		return
	}
	if c.translator.ModePreference() {
		c.printf("%s\n", noticeDisconnected)
	}
}

func (c *Controller) printf(format string, args ...any) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}
