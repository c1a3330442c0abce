package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"codeberg.org/snonux/parlo/internal/translation"
)

func TestInitConfig(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	cfgPath := filepath.Join(t.TempDir(), "test-config.yaml")
	content := `online:
  provider: gemini
  gemini_key: test-key
  timeout: 5s
offline:
  engine: phrasebook
  phrasebook: /tmp/test.db
lang:
  target: ja`
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test config: %v", err)
	}

	t.Setenv("PARLO_LOG_LEVEL", "debug")
	t.Setenv("GEMINI_API_KEY", "")

	InitConfig(cfgPath)

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}

	if settings.OnlineProvider != "gemini" || settings.GeminiKey != "test-key" {
		t.Errorf("Expected gemini provider with key from config, got %+v", settings)
	}
	if settings.OnlineTimeout != 5*time.Second {
		t.Errorf("Expected online timeout 5s, got %v", settings.OnlineTimeout)
	}
	if settings.OfflineEngine != "phrasebook" || settings.Phrasebook != "/tmp/test.db" {
		t.Errorf("Unexpected offline settings: %+v", settings)
	}
	if settings.Target != "ja" || settings.Source != "en" {
		t.Errorf("Expected en -> ja, got %s -> %s", settings.Source, settings.Target)
	}
	if settings.LogLevel != "debug" {
		t.Errorf("Expected log level from PARLO_LOG_LEVEL, got %s", settings.LogLevel)
	}
	if settings.BreakerFailures != 3 || settings.BreakerTimeout != 30*time.Second {
		t.Errorf("Expected breaker defaults, got %d/%v", settings.BreakerFailures, settings.BreakerTimeout)
	}
	if !settings.PreferOnline || !settings.Warmup {
		t.Error("Expected prefer_online and warmup defaults to be true")
	}
}

func TestGetOpenAIKey(t *testing.T) {
	tests := []struct {
		name      string
		envKey    string
		configKey string
		expected  string
	}{
		{"from environment", "env-test-key", "config-test-key", "env-test-key"},
		{"from config when no env", "", "config-test-key", "config-test-key"},
		{"empty when neither set", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			defer viper.Reset()

			t.Setenv("OPENAI_API_KEY", tt.envKey)
			if tt.configKey != "" {
				viper.Set("online.openai_key", tt.configKey)
			}

			if got := GetOpenAIKey(); got != tt.expected {
				t.Errorf("GetOpenAIKey() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetGeminiKey(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	t.Setenv("GEMINI_API_KEY", "")
	viper.Set("online.gemini_key", "config-key")
	if got := GetGeminiKey(); got != "config-key" {
		t.Errorf("GetGeminiKey() = %v, want config-key", got)
	}

	t.Setenv("GEMINI_API_KEY", "env-key")
	if got := GetGeminiKey(); got != "env-key" {
		t.Errorf("GetGeminiKey() = %v, want env-key", got)
	}
}

func validSettings() Settings {
	return Settings{
		Target:           "es",
		OnlineProvider:   "openai",
		OfflineEngine:    "localmodel",
		OfflineModel:     "opus-mt-en-es",
		BaselineEndpoint: "http://127.0.0.1:8845/v1",
		SpeechProvider:   "openai",
	}
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Settings)
		wantErr string
	}{
		{"valid", func(s *Settings) {}, ""},
		{"unknown provider", func(s *Settings) { s.OnlineProvider = "deepl" }, "online.provider"},
		{"unknown engine", func(s *Settings) { s.OfflineEngine = "onnx" }, "offline.engine"},
		{"local model without model", func(s *Settings) { s.OfflineModel = "" }, "offline.model"},
		{"local model without endpoints", func(s *Settings) { s.BaselineEndpoint = "" }, "endpoint"},
		{"phrasebook without path", func(s *Settings) { s.OfflineEngine = "phrasebook" }, "offline.phrasebook"},
		{"unknown speech provider", func(s *Settings) { s.SpeechProvider = "say" }, "speech.provider"},
		{"missing target", func(s *Settings) { s.Target = "" }, "lang.target"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.modify(&s)

			err := s.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestRequestTemplate(t *testing.T) {
	s := validSettings()
	s.Source = "auto"

	req, err := s.RequestTemplate("offline")
	if err != nil {
		t.Fatalf("RequestTemplate() error = %v", err)
	}
	if req.SourceLanguage != "auto" || req.TargetLanguage != "es" || req.RequestedMode != translation.ModeOffline {
		t.Errorf("Unexpected template: %+v", req)
	}

	if _, err := s.RequestTemplate("sideways"); err == nil {
		t.Error("Expected error for unknown mode")
	}
}
