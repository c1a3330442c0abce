package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"codeberg.org/snonux/parlo/internal/connectivity"
	"codeberg.org/snonux/parlo/internal/offline"
)

// InitConfig loads .env and initializes viper configuration
func InitConfig(cfgFile string) {
	// .env is optional
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			return
		}

		// Search config in home directory with name ".parlo" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".parlo")
	}

	// Environment variables, e.g. PARLO_ONLINE_PROVIDER for online.provider
	viper.SetEnvPrefix("PARLO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	SetDefaults()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// SetDefaults registers the default configuration values
func SetDefaults() {
	viper.SetDefault("mode.prefer_online", true)
	viper.SetDefault("lang.source", "en")
	viper.SetDefault("lang.target", "es")

	viper.SetDefault("online.provider", "openai")
	viper.SetDefault("online.openai_model", "gpt-4o-mini")
	viper.SetDefault("online.gemini_model", "gemini-2.0-flash")
	viper.SetDefault("online.breaker_failures", 3)
	viper.SetDefault("online.breaker_timeout", "30s")
	viper.SetDefault("online.timeout", "20s")

	viper.SetDefault("offline.engine", "localmodel")
	viper.SetDefault("offline.model", "opus-mt-en-es")
	viper.SetDefault("offline.baseline_endpoint", offline.DefaultLocalEndpoint)
	viper.SetDefault("offline.phrasebook", DefaultPhrasebookPath())
	viper.SetDefault("offline.max_preload", offline.DefaultMaxPreload)
	viper.SetDefault("offline.warmup", true)

	viper.SetDefault("connectivity.probe_url", connectivity.DefaultProbeURL)
	viper.SetDefault("connectivity.interval", connectivity.DefaultProbeInterval.String())
	viper.SetDefault("connectivity.timeout", connectivity.DefaultProbeTimeout.String())

	viper.SetDefault("speech.enabled", false)
	viper.SetDefault("speech.provider", "openai")
	viper.SetDefault("speech.player", "auto")
	viper.SetDefault("speech.openai_model", "gpt-4o-mini-tts")
	viper.SetDefault("speech.openai_voice", "alloy")
	viper.SetDefault("speech.openai_speed", 1.0)
	viper.SetDefault("speech.cache", true)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")

	viper.SetDefault("http.listen", "127.0.0.1:8088")
}

// DefaultPhrasebookPath returns the default phrasebook location
func DefaultPhrasebookPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "phrasebook.db"
	}
	return filepath.Join(home, ".local", "share", "parlo", "phrasebook.db")
}

// DefaultSpeechCacheDir returns the directory for cached speech files
func DefaultSpeechCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "parlo-speech-cache")
	}
	return filepath.Join(home, ".cache", "parlo", "speech")
}

// GetOpenAIKey retrieves the OpenAI API key from environment or config
func GetOpenAIKey() string {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key
	}
	return viper.GetString("online.openai_key")
}

// GetGeminiKey retrieves the Gemini API key from environment or config
func GetGeminiKey() string {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return key
	}
	return viper.GetString("online.gemini_key")
}
