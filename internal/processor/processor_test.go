package processor

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"codeberg.org/snonux/parlo/internal/cli"
	"codeberg.org/snonux/parlo/internal/offline"
	"codeberg.org/snonux/parlo/internal/testutil"
	"codeberg.org/snonux/parlo/internal/translation"
)

// unreachableURL returns the URL of a server that is already shut down
func unreachableURL() string {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()
	return url
}

func testSettings(t *testing.T) cli.Settings {
	t.Helper()

	path := filepath.Join(t.TempDir(), "phrasebook.db")
	if err := SeedPhrasebook(context.Background(), path, &bytes.Buffer{}); err != nil {
		t.Fatalf("SeedPhrasebook() error = %v", err)
	}

	return cli.Settings{
		PreferOnline:   true,
		Source:         "en",
		Target:         "es",
		OnlineProvider: "openai",
		OfflineEngine:  "phrasebook",
		Phrasebook:     path,
		ProbeURL:       unreachableURL(),
		ProbeInterval:  time.Hour,
		ProbeTimeout:   time.Second,
		SpeechProvider: "openai",
	}
}

func newTestProcessor(t *testing.T, settings cli.Settings) (*Processor, *bytes.Buffer) {
	t.Helper()

	var out bytes.Buffer
	p, err := NewProcessor(settings, zerolog.Nop(), &out)
	if err != nil {
		t.Fatalf("NewProcessor() error = %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p, &out
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

func TestNewProcessor(t *testing.T) {
	p, _ := newTestProcessor(t, testSettings(t))

	if p.orchestrator == nil {
		t.Fatal("Orchestrator not initialized")
	}
	if p.online != nil {
		t.Error("Online client should be disabled without an API key")
	}
	if p.speaker != nil {
		t.Error("Speaker should be disabled unless speech is enabled")
	}
	if state := p.Orchestrator().CurrentEngineState(); state != translation.EngineUninitialized {
		t.Errorf("Expected uninitialized engine, got %s", state)
	}
}

func TestNewProcessorWithOnlineKey(t *testing.T) {
	settings := testSettings(t)
	settings.OpenAIKey = "test-key"

	p, _ := newTestProcessor(t, settings)
	if p.online == nil {
		t.Fatal("Online client should be configured with an API key")
	}
	if p.online.Name() != "openai" {
		t.Errorf("Expected openai backend, got %s", p.online.Name())
	}
}

func TestNewLoader(t *testing.T) {
	settings := testSettings(t)

	if _, ok := newLoader(settings).(*offline.PhrasebookLoader); !ok {
		t.Error("Expected a phrasebook loader")
	}
	if got := offlineModel(settings); got != settings.Phrasebook {
		t.Errorf("Expected the phrasebook path as model, got %s", got)
	}

	settings.OfflineEngine = "localmodel"
	settings.OfflineModel = "opus-mt-en-es"
	settings.BaselineEndpoint = offline.DefaultLocalEndpoint
	loader, ok := newLoader(settings).(*offline.LocalModelLoader)
	if !ok {
		t.Fatal("Expected a local model loader")
	}
	if loader.Endpoints[translation.PlacementBaseline] != offline.DefaultLocalEndpoint {
		t.Errorf("Unexpected endpoints: %v", loader.Endpoints)
	}
	if got := offlineModel(settings); got != "opus-mt-en-es" {
		t.Errorf("Expected opus-mt-en-es as model, got %s", got)
	}
}

func TestTranslateOneFromPhrasebook(t *testing.T) {
	p, out := newTestProcessor(t, testSettings(t))
	ctx := testContext(t)

	if err := p.TranslateOne(ctx, "Good morning", "auto"); err != nil {
		t.Fatalf("TranslateOne() error = %v", err)
	}
	testutil.AssertContains(t, out.String(), "Buenos días", "[offline")

	if p.Monitor().Current().Reachable {
		t.Error("Expected the monitor to report the probe URL as unreachable")
	}
}

func TestTranslateOneExplicitOnlineWhileUnreachable(t *testing.T) {
	p, _ := newTestProcessor(t, testSettings(t))

	err := p.TranslateOne(testContext(t), "Good morning", "online")
	var noConn *translation.NoConnectivityError
	if !errors.As(err, &noConn) {
		t.Errorf("Expected NoConnectivityError, got %v", err)
	}
}

func TestTranslateOneInvalidMode(t *testing.T) {
	p, _ := newTestProcessor(t, testSettings(t))

	if err := p.TranslateOne(testContext(t), "Good morning", "sideways"); err == nil {
		t.Error("Expected error for unknown mode")
	}
}

func TestProcessBatch(t *testing.T) {
	p, out := newTestProcessor(t, testSettings(t))

	file := testutil.CreatePhraseFile(t,
		"# travel phrases",
		"Good morning",
		"Thank you very much",
		"",
		"The quick brown fox",
	)

	err := p.ProcessBatch(testContext(t), file, "offline", 2)
	if err == nil || !strings.Contains(err.Error(), "1 of 3 phrases failed") {
		t.Errorf("Expected one failed phrase, got %v", err)
	}
	testutil.AssertContains(t, out.String(),
		"Good morning = Buenos días",
		"Thank you very much = Muchas gracias",
	)
}

func TestProcessBatchEmptyFile(t *testing.T) {
	p, _ := newTestProcessor(t, testSettings(t))

	file := testutil.CreatePhraseFile(t, "# nothing here")
	if err := p.ProcessBatch(testContext(t), file, "", 0); err == nil {
		t.Error("Expected error for a file without phrases")
	}
}

func TestRunSession(t *testing.T) {
	settings := testSettings(t)
	settings.Warmup = true
	p, out := newTestProcessor(t, settings)

	in := strings.NewReader("Good morning\n:status\n:quit\n")
	if err := p.RunSession(testContext(t), in); err != nil {
		t.Fatalf("RunSession() error = %v", err)
	}
	testutil.AssertContains(t, out.String(), "Buenos días", "en -> es")
}

func TestSpeechDisabledWithoutPlayer(t *testing.T) {
	settings := testSettings(t)
	settings.SpeechEnabled = true
	settings.SpeechPlayer = "parlo-test-no-such-player"

	p, _ := newTestProcessor(t, settings)
	if p.speaker != nil {
		t.Error("Speaker should be disabled when the player is missing")
	}
}
