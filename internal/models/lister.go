package models

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Catalog groups model ids by use
type Catalog struct {
	Translation []string
	Speech      []string
	Other       []string
}

// Lister lists models served by OpenAI or an OpenAI-compatible endpoint
type Lister struct {
	apiKey  string
	baseURL string
	client  *openai.Client
}

// NewLister creates a lister for the OpenAI API
func NewLister(apiKey string) *Lister {
	return &Lister{
		apiKey: apiKey,
		client: openai.NewClient(apiKey),
	}
}

// NewLocalLister creates a lister for a local OpenAI-compatible server
func NewLocalLister(baseURL, apiKey string) *Lister {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL
	return &Lister{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  openai.NewClientWithConfig(config),
	}
}

// Catalog fetches and categorizes the available models
func (l *Lister) Catalog(ctx context.Context) (Catalog, error) {
	if l.baseURL == "" && l.apiKey == "" {
		return Catalog{}, fmt.Errorf("OpenAI API key not found. Set OPENAI_API_KEY environment variable or configure in .parlo.yaml")
	}

	models, err := l.client.ListModels(ctx)
	if err != nil {
		return Catalog{}, fmt.Errorf("failed to list models: %w", err)
	}

	ids := make([]string, 0, len(models.Models))
	for _, model := range models.Models {
		ids = append(ids, model.ID)
	}
	return Categorize(ids, l.baseURL != ""), nil
}

// Categorize sorts model ids into a Catalog. Every model of a local server
// that is not a speech model counts as a translation model.
func Categorize(ids []string, local bool) Catalog {
	var catalog Catalog
	for _, id := range ids {
		switch {
		case strings.Contains(id, "tts") || strings.Contains(id, "audio"):
			catalog.Speech = append(catalog.Speech, id)
		case local || strings.Contains(id, "gpt") || strings.Contains(id, "chat"):
			catalog.Translation = append(catalog.Translation, id)
		default:
			catalog.Other = append(catalog.Other, id)
		}
	}

	sort.Strings(catalog.Translation)
	sort.Strings(catalog.Speech)
	sort.Strings(catalog.Other)
	return catalog
}

// ListAvailableModels writes the available models to w
func (l *Lister) ListAvailableModels(ctx context.Context, w io.Writer) error {
	catalog, err := l.Catalog(ctx)
	if err != nil {
		return err
	}

	if l.baseURL != "" {
		fmt.Fprintf(w, "Models at %s:\n", l.baseURL)
	} else {
		fmt.Fprintln(w, "Available OpenAI Models:")
	}

	printSection(w, "Translation Models", catalog.Translation)
	if l.baseURL == "" || len(catalog.Speech) > 0 {
		printSection(w, "Text-to-Speech (TTS) Models", catalog.Speech)
	}
	return nil
}

func printSection(w io.Writer, title string, ids []string) {
	fmt.Fprintf(w, "\n%s:\n", title)
	if len(ids) == 0 {
		fmt.Fprintln(w, "  none found")
		return
	}
	for _, id := range ids {
		fmt.Fprintf(w, "  %s\n", id)
	}
}
