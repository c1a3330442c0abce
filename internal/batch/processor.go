// Package batch reads phrase files and translates their entries.
package batch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"codeberg.org/snonux/parlo/internal/offline"
	"codeberg.org/snonux/parlo/internal/translation"
)

// DefaultWorkers bounds concurrent translations in TranslateAll.
const DefaultWorkers = 4

// Entry is one phrase of a phrase file
type Entry struct {
	Text string
	// Translation is set for "text = translation" lines
	Translation string
	Line        int
}

// ReadPhraseFile reads phrases from a file.
// Supports formats:
// - Phrase only: "Good morning" (will be translated)
// - With translation: "Good morning = Buenos días" (phrasebook import)
// Blank lines and lines starting with '#' are skipped.
func ReadPhraseFile(filename string) ([]Entry, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read phrase file: %w", err)
	}
	defer file.Close()

	return ParsePhrases(file)
}

// ParsePhrases parses phrase lines from r
func ParsePhrases(r io.Reader) ([]Entry, error) {
	var entries []Entry

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		text, translated, found := strings.Cut(line, "=")
		if !found {
			entries = append(entries, Entry{Text: line, Line: lineNo})
			continue
		}

		text = strings.TrimSpace(text)
		translated = strings.TrimSpace(translated)
		if text == "" {
			// Ignore lines without a source phrase
			continue
		}
		entries = append(entries, Entry{Text: text, Translation: translated, Line: lineNo})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read phrases: %w", err)
	}

	return entries, nil
}

// ToPhrases converts entries with a translation into phrasebook rows
func ToPhrases(entries []Entry, source, target string) []offline.Phrase {
	var phrases []offline.Phrase
	for _, entry := range entries {
		if entry.Translation == "" {
			continue
		}
		phrases = append(phrases, offline.Phrase{
			SourceLang: source,
			TargetLang: target,
			SourceText: entry.Text,
			TargetText: entry.Translation,
		})
	}
	return phrases
}

// Translator translates a single request
type Translator interface {
	Translate(ctx context.Context, req translation.Request) (translation.Result, error)
}

// Outcome is the result of translating one entry
type Outcome struct {
	Entry  Entry
	Result translation.Result
	Err    error
}

// TranslateAll translates every entry with template's languages and mode.
// Outcomes keep the order of entries; a failed entry does not stop the rest.
func TranslateAll(ctx context.Context, translator Translator, entries []Entry, template translation.Request, workers int) []Outcome {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	outcomes := make([]Outcome, len(entries))

	var group errgroup.Group
	group.SetLimit(workers)

	for i, entry := range entries {
		group.Go(func() error {
			req := template
			req.Text = entry.Text

			result, err := translator.Translate(ctx, req)
			outcomes[i] = Outcome{Entry: entry, Result: result, Err: err}
			return nil
		})
	}
	_ = group.Wait()

	return outcomes
}
