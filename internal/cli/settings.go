package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"codeberg.org/snonux/parlo/internal/translation"
)

// Settings is the resolved configuration of one parlo run
type Settings struct {
	PreferOnline bool
	Source       string
	Target       string

	OnlineProvider  string
	OpenAIKey       string
	OpenAIModel     string
	OpenAIURL       string
	GeminiKey       string
	GeminiModel     string
	BreakerFailures uint32
	BreakerTimeout  time.Duration
	OnlineTimeout   time.Duration

	OfflineEngine       string
	OfflineModel        string
	AcceleratorEndpoint string
	BaselineEndpoint    string
	OfflineLanguages    []string
	Phrasebook          string
	MaxPreload          int
	Warmup              bool

	ProbeURL      string
	ProbeInterval time.Duration
	ProbeTimeout  time.Duration

	SpeechEnabled     bool
	SpeechProvider    string
	SpeechPlayer      string
	SpeechOpenAIModel string
	SpeechOpenAIVoice string
	SpeechOpenAISpeed float64
	SpeechCache       bool

	LogLevel  string
	LogFormat string

	Listen string
}

// LoadSettings reads the settings from viper and validates them
func LoadSettings() (Settings, error) {
	s := Settings{
		PreferOnline: viper.GetBool("mode.prefer_online"),
		Source:       viper.GetString("lang.source"),
		Target:       viper.GetString("lang.target"),

		OnlineProvider:  strings.ToLower(viper.GetString("online.provider")),
		OpenAIKey:       GetOpenAIKey(),
		OpenAIModel:     viper.GetString("online.openai_model"),
		OpenAIURL:       viper.GetString("online.openai_url"),
		GeminiKey:       GetGeminiKey(),
		GeminiModel:     viper.GetString("online.gemini_model"),
		BreakerFailures: viper.GetUint32("online.breaker_failures"),
		BreakerTimeout:  viper.GetDuration("online.breaker_timeout"),
		OnlineTimeout:   viper.GetDuration("online.timeout"),

		OfflineEngine:       strings.ToLower(viper.GetString("offline.engine")),
		OfflineModel:        viper.GetString("offline.model"),
		AcceleratorEndpoint: viper.GetString("offline.accelerator_endpoint"),
		BaselineEndpoint:    viper.GetString("offline.baseline_endpoint"),
		OfflineLanguages:    viper.GetStringSlice("offline.languages"),
		Phrasebook:          viper.GetString("offline.phrasebook"),
		MaxPreload:          viper.GetInt("offline.max_preload"),
		Warmup:              viper.GetBool("offline.warmup"),

		ProbeURL:      viper.GetString("connectivity.probe_url"),
		ProbeInterval: viper.GetDuration("connectivity.interval"),
		ProbeTimeout:  viper.GetDuration("connectivity.timeout"),

		SpeechEnabled:     viper.GetBool("speech.enabled"),
		SpeechProvider:    strings.ToLower(viper.GetString("speech.provider")),
		SpeechPlayer:      viper.GetString("speech.player"),
		SpeechOpenAIModel: viper.GetString("speech.openai_model"),
		SpeechOpenAIVoice: viper.GetString("speech.openai_voice"),
		SpeechOpenAISpeed: viper.GetFloat64("speech.openai_speed"),
		SpeechCache:       viper.GetBool("speech.cache"),

		LogLevel:  viper.GetString("log.level"),
		LogFormat: viper.GetString("log.format"),

		Listen: viper.GetString("http.listen"),
	}

	return s, s.Validate()
}

// Validate checks the settings for values parlo cannot run with
func (s Settings) Validate() error {
	switch s.OnlineProvider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unknown online.provider: %s", s.OnlineProvider)
	}

	switch s.OfflineEngine {
	case "localmodel":
		if s.OfflineModel == "" {
			return fmt.Errorf("offline.model is required for the localmodel engine")
		}
		if s.AcceleratorEndpoint == "" && s.BaselineEndpoint == "" {
			return fmt.Errorf("offline.accelerator_endpoint or offline.baseline_endpoint is required")
		}
	case "phrasebook":
		if s.Phrasebook == "" {
			return fmt.Errorf("offline.phrasebook is required for the phrasebook engine")
		}
	default:
		return fmt.Errorf("unknown offline.engine: %s", s.OfflineEngine)
	}

	switch s.SpeechProvider {
	case "openai", "espeak":
	default:
		return fmt.Errorf("unknown speech.provider: %s", s.SpeechProvider)
	}

	if s.Target == "" {
		return fmt.Errorf("lang.target is required")
	}
	return nil
}

// RequestTemplate returns a request carrying the configured languages and
// the given mode
func (s Settings) RequestTemplate(mode string) (translation.Request, error) {
	parsed, err := translation.ParseMode(mode)
	if err != nil {
		return translation.Request{}, err
	}
	return translation.Request{
		SourceLanguage: s.Source,
		TargetLanguage: s.Target,
		RequestedMode:  parsed,
	}, nil
}
