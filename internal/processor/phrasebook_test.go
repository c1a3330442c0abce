package processor

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"codeberg.org/snonux/parlo/internal/cli"
	"codeberg.org/snonux/parlo/internal/offline"
	"codeberg.org/snonux/parlo/internal/testutil"
)

func TestSeedAndListPhrasebook(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "phrasebook.db")

	var out bytes.Buffer
	if err := SeedPhrasebook(ctx, path, &out); err != nil {
		t.Fatalf("SeedPhrasebook() error = %v", err)
	}
	testutil.AssertFileExists(t, path)

	out.Reset()
	if err := ListPhrasebook(ctx, path, &out); err != nil {
		t.Fatalf("ListPhrasebook() error = %v", err)
	}
	testutil.AssertContains(t, out.String(), "en -> es", "Good morning = Buenos días")
}

func TestListPhrasebookMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")

	if err := ListPhrasebook(context.Background(), path, &bytes.Buffer{}); err == nil {
		t.Error("Expected error for a missing phrasebook")
	}
	testutil.AssertFileNotExists(t, path)
}

func TestImportPhrasebook(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "phrasebook.db")
	file := testutil.CreatePhraseFile(t,
		"Guten Morgen = Good morning",
		"Danke = Thank you",
		"Nur Quelle",
	)

	var out bytes.Buffer
	if err := ImportPhrasebook(ctx, path, file, "de", "en", &out); err != nil {
		t.Fatalf("ImportPhrasebook() error = %v", err)
	}
	testutil.AssertContains(t, out.String(), "Imported 2 of 2 phrases")

	book, err := offline.OpenPhrasebook(path)
	if err != nil {
		t.Fatalf("OpenPhrasebook() error = %v", err)
	}
	defer book.Close()

	phrase, err := book.Lookup(ctx, "de", "en", "Danke")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if phrase.TargetText != "Thank you" {
		t.Errorf("Expected 'Thank you', got %q", phrase.TargetText)
	}
}

func TestImportPhrasebookWithoutTranslations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phrasebook.db")
	file := testutil.CreatePhraseFile(t, "Only source text")

	if err := ImportPhrasebook(context.Background(), path, file, "en", "es", &bytes.Buffer{}); err == nil {
		t.Error("Expected error for a file without translations")
	}
}

func TestListModelsRequiresKey(t *testing.T) {
	err := ListModels(context.Background(), cli.Settings{}, false, &bytes.Buffer{})
	if err == nil {
		t.Error("Expected error without an API key")
	}
}

func TestArchivePhrasebook(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "phrasebook.db")
	if err := SeedPhrasebook(ctx, path, &bytes.Buffer{}); err != nil {
		t.Fatalf("SeedPhrasebook() error = %v", err)
	}

	var out bytes.Buffer
	if err := ArchivePhrasebook(path, &out); err != nil {
		t.Fatalf("ArchivePhrasebook() error = %v", err)
	}
	testutil.AssertFileNotExists(t, path)
	testutil.AssertContains(t, out.String(), "Phrasebook archived to:", filepath.Join(filepath.Dir(path), "archive"))
}
