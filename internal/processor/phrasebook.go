package processor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/multierr"

	"codeberg.org/snonux/parlo/internal/archive"
	"codeberg.org/snonux/parlo/internal/batch"
	"codeberg.org/snonux/parlo/internal/cli"
	"codeberg.org/snonux/parlo/internal/models"
	"codeberg.org/snonux/parlo/internal/offline"
)

func openPhrasebook(path string) (*offline.Phrasebook, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create phrasebook directory: %w", err)
		}
	}
	return offline.OpenPhrasebook(path)
}

// SeedPhrasebook stores the built-in phrases in the phrasebook at path
func SeedPhrasebook(ctx context.Context, path string, w io.Writer) error {
	book, err := openPhrasebook(path)
	if err != nil {
		return err
	}
	defer book.Close()

	n, err := book.Seed(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Seeded %d phrases into %s\n", n, path)
	return nil
}

// ImportPhrasebook reads a phrase file and stores its translated entries.
// Lines without a translation are skipped.
func ImportPhrasebook(ctx context.Context, path, file, source, target string, w io.Writer) error {
	entries, err := batch.ReadPhraseFile(file)
	if err != nil {
		return err
	}

	phrases := batch.ToPhrases(entries, source, target)
	if len(phrases) == 0 {
		return fmt.Errorf("no translated phrases found in %s", file)
	}

	book, err := openPhrasebook(path)
	if err != nil {
		return err
	}
	defer book.Close()

	n, err := book.Import(ctx, phrases)
	if n == 0 && err != nil {
		return err
	}
	fmt.Fprintf(w, "Imported %d of %d phrases into %s\n", n, len(phrases), path)
	for _, skipped := range multierr.Errors(err) {
		fmt.Fprintf(w, "Skipped: %v\n", skipped)
	}
	return nil
}

// ListPhrasebook prints every phrase of the phrasebook at path
func ListPhrasebook(ctx context.Context, path string, w io.Writer) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("phrasebook %s: %w", path, err)
	}

	book, err := offline.OpenPhrasebook(path)
	if err != nil {
		return err
	}
	defer book.Close()

	phrases, err := book.List(ctx)
	if err != nil {
		return err
	}
	for _, phrase := range phrases {
		fmt.Fprintf(w, "%s -> %s  %s = %s\n", phrase.SourceLang, phrase.TargetLang, phrase.SourceText, phrase.TargetText)
	}
	fmt.Fprintf(w, "%d phrases\n", len(phrases))
	return nil
}

// ListModels prints the models of the online account, or of the local
// inference server when local is set
func ListModels(ctx context.Context, settings cli.Settings, local bool, w io.Writer) error {
	var lister *models.Lister
	if local {
		endpoint := settings.BaselineEndpoint
		if settings.AcceleratorEndpoint != "" {
			endpoint = settings.AcceleratorEndpoint
		}
		lister = models.NewLocalLister(endpoint, "")
	} else {
		lister = models.NewLister(settings.OpenAIKey)
	}
	return lister.ListAvailableModels(ctx, w)
}

// ArchivePhrasebook moves the phrasebook at path into the archive directory
func ArchivePhrasebook(path string, w io.Writer) error {
	archived, err := archive.Archive(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Phrasebook archived to: %s\n", archived)
	return nil
}
