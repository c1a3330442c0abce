package offline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/multierr"

	"codeberg.org/snonux/parlo/internal/language"
	"codeberg.org/snonux/parlo/internal/translation"
)

// DefaultMaxPreload bounds how many phrases the accelerated placement keeps
// in memory.
const DefaultMaxPreload = 100000

// ErrPhraseNotFound is returned when the phrasebook has no entry for a text.
var ErrPhraseNotFound = errors.New("phrase not found in phrasebook")

// Phrase is one phrasebook entry.
type Phrase struct {
	SourceLang string
	TargetLang string
	SourceText string
	TargetText string
	Score      *float64
}

// DefaultPhrases seeds a new phrasebook with common travel phrases.
var DefaultPhrases = []Phrase{
	{SourceLang: "en", TargetLang: "es", SourceText: "Hello, how are you today?", TargetText: "Hola, ¿cómo estás hoy?"},
	{SourceLang: "en", TargetLang: "es", SourceText: "Good morning", TargetText: "Buenos días"},
	{SourceLang: "en", TargetLang: "es", SourceText: "Thank you very much", TargetText: "Muchas gracias"},
	{SourceLang: "en", TargetLang: "es", SourceText: "Where is the bathroom?", TargetText: "¿Dónde está el baño?"},
	{SourceLang: "en", TargetLang: "es", SourceText: "I need help", TargetText: "Necesito ayuda"},
	{SourceLang: "en", TargetLang: "es", SourceText: "How much does this cost?", TargetText: "¿Cuánto cuesta esto?"},
	{SourceLang: "en", TargetLang: "es", SourceText: "What time is it?", TargetText: "¿Qué hora es?"},
	{SourceLang: "en", TargetLang: "es", SourceText: "Nice to meet you", TargetText: "Mucho gusto en conocerte"},
}

const phrasebookSchema = `
CREATE TABLE IF NOT EXISTS phrases (
	source_lang TEXT NOT NULL,
	target_lang TEXT NOT NULL,
	source_key  TEXT NOT NULL,
	source_text TEXT NOT NULL,
	target_text TEXT NOT NULL,
	score       REAL,
	PRIMARY KEY (source_lang, target_lang, source_key)
)`

// Phrasebook is a SQLite translation memory.
type Phrasebook struct {
	db   *sql.DB
	path string
}

// OpenPhrasebook opens or creates the phrasebook at path.
func OpenPhrasebook(path string) (*Phrasebook, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create phrasebook directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open phrasebook: %w", err)
	}
	if _, err := db.Exec(phrasebookSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create phrasebook schema: %w", err)
	}

	return &Phrasebook{db: db, path: path}, nil
}

// Path returns the database file.
func (p *Phrasebook) Path() string {
	return p.path
}

// Close closes the database.
func (p *Phrasebook) Close() error {
	return p.db.Close()
}

// Add inserts or replaces one phrase.
func (p *Phrasebook) Add(ctx context.Context, phrase Phrase) error {
	_, err := p.Import(ctx, []Phrase{phrase})
	return err
}

// Import upserts phrases in one transaction. Invalid phrases are skipped and
// reported together in the returned error; valid ones are still stored.
func (p *Phrasebook) Import(ctx context.Context, phrases []Phrase) (int, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO phrases (source_lang, target_lang, source_key, source_text, target_text, score)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (source_lang, target_lang, source_key) DO UPDATE SET
	source_text = excluded.source_text,
	target_text = excluded.target_text,
	score = excluded.score`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare import: %w", err)
	}
	defer stmt.Close()

	var invalid error
	imported := 0
	for i, phrase := range phrases {
		normalized, err := normalizePhrase(phrase)
		if err != nil {
			invalid = multierr.Append(invalid, fmt.Errorf("phrase %d: %w", i+1, err))
			continue
		}

		var score sql.NullFloat64
		if normalized.Score != nil {
			score = sql.NullFloat64{Float64: *normalized.Score, Valid: true}
		}

		if _, err := stmt.ExecContext(ctx,
			normalized.SourceLang,
			normalized.TargetLang,
			phraseKey(normalized.SourceText),
			normalized.SourceText,
			normalized.TargetText,
			score,
		); err != nil {
			return 0, fmt.Errorf("failed to store phrase %q: %w", normalized.SourceText, err)
		}
		imported++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit import: %w", err)
	}
	return imported, invalid
}

// Seed stores DefaultPhrases.
func (p *Phrasebook) Seed(ctx context.Context) (int, error) {
	return p.Import(ctx, DefaultPhrases)
}

// Lookup finds the translation of text for a language pair.
func (p *Phrasebook) Lookup(ctx context.Context, source, target, text string) (Phrase, error) {
	row := p.db.QueryRowContext(ctx, `
SELECT source_lang, target_lang, source_text, target_text, score
FROM phrases
WHERE source_lang = ? AND target_lang = ? AND source_key = ?`,
		language.NormalizeCode(source), language.NormalizeCode(target), phraseKey(text))

	phrase, err := scanPhrase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Phrase{}, ErrPhraseNotFound
	}
	if err != nil {
		return Phrase{}, fmt.Errorf("failed to look up phrase: %w", err)
	}
	return phrase, nil
}

// List returns all phrases ordered by language pair and text.
func (p *Phrasebook) List(ctx context.Context) ([]Phrase, error) {
	rows, err := p.db.QueryContext(ctx, `
SELECT source_lang, target_lang, source_text, target_text, score
FROM phrases
ORDER BY source_lang, target_lang, source_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list phrases: %w", err)
	}
	defer rows.Close()

	var phrases []Phrase
	for rows.Next() {
		phrase, err := scanPhrase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to read phrase: %w", err)
		}
		phrases = append(phrases, phrase)
	}
	return phrases, rows.Err()
}

// Count returns the number of stored phrases.
func (p *Phrasebook) Count(ctx context.Context) (int, error) {
	var n int
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM phrases`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count phrases: %w", err)
	}
	return n, nil
}

// Pairs returns the language pairs present in the phrasebook.
func (p *Phrasebook) Pairs(ctx context.Context) (map[[2]string]bool, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT DISTINCT source_lang, target_lang FROM phrases`)
	if err != nil {
		return nil, fmt.Errorf("failed to list language pairs: %w", err)
	}
	defer rows.Close()

	pairs := make(map[[2]string]bool)
	for rows.Next() {
		var source, target string
		if err := rows.Scan(&source, &target); err != nil {
			return nil, fmt.Errorf("failed to read language pair: %w", err)
		}
		pairs[[2]string{source, target}] = true
	}
	return pairs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPhrase(row rowScanner) (Phrase, error) {
	var phrase Phrase
	var score sql.NullFloat64
	if err := row.Scan(&phrase.SourceLang, &phrase.TargetLang, &phrase.SourceText, &phrase.TargetText, &score); err != nil {
		return Phrase{}, err
	}
	if score.Valid {
		phrase.Score = translation.Float(score.Float64)
	}
	return phrase, nil
}

func normalizePhrase(phrase Phrase) (Phrase, error) {
	phrase.SourceLang = language.NormalizeCode(phrase.SourceLang)
	phrase.TargetLang = language.NormalizeCode(phrase.TargetLang)
	phrase.SourceText = strings.TrimSpace(phrase.SourceText)
	phrase.TargetText = strings.TrimSpace(phrase.TargetText)

	switch {
	case phrase.SourceLang == "" || phrase.TargetLang == "":
		return Phrase{}, errors.New("source and target language are required")
	case phraseKey(phrase.SourceText) == "":
		return Phrase{}, errors.New("source text is empty")
	case phrase.TargetText == "":
		return Phrase{}, fmt.Errorf("translation of %q is empty", phrase.SourceText)
	case phrase.Score != nil && (*phrase.Score < 0 || *phrase.Score > 1):
		return Phrase{}, fmt.Errorf("score %.2f of %q is outside [0,1]", *phrase.Score, phrase.SourceText)
	}
	return phrase, nil
}

// phraseKey normalizes dictated text so that case, surrounding punctuation
// and repeated spaces do not affect lookups.
func phraseKey(text string) string {
	fields := strings.Fields(strings.ToLower(text))
	key := strings.Join(fields, " ")
	return strings.TrimFunc(key, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
}

// PhrasebookLoader loads a phrasebook file as an offline engine. The model
// identifier is the database path. The accelerator placement preloads the
// whole phrasebook into memory; the baseline placement queries SQLite on
// every lookup.
type PhrasebookLoader struct {
	MaxPreload int
	// Path lets SupportsPair answer from the database before the engine
	// is loaded. It should match the model identifier given to Load.
	Path string

	pairsOnce sync.Once
	pairs     map[[2]string]bool
}

// SupportsPair reports whether the phrasebook at Path holds the pair. It
// reads the pairs once; when Path is unset or unreadable every pair is
// accepted and Load reports the problem.
func (l *PhrasebookLoader) SupportsPair(source, target string) bool {
	l.pairsOnce.Do(func() {
		if l.Path == "" {
			return
		}
		if _, err := os.Stat(l.Path); err != nil {
			return
		}
		book, err := OpenPhrasebook(l.Path)
		if err != nil {
			return
		}
		defer book.Close()
		if pairs, err := book.Pairs(context.Background()); err == nil {
			l.pairs = pairs
		}
	})

	if l.pairs == nil {
		return true
	}
	return l.pairs[[2]string{language.NormalizeCode(source), language.NormalizeCode(target)}]
}

// Load opens the phrasebook named by opts.Model.
func (l *PhrasebookLoader) Load(ctx context.Context, opts LoadOptions) (Engine, error) {
	if opts.Task != TaskTranslation {
		return nil, fmt.Errorf("unsupported task: %s", opts.Task)
	}
	if _, err := os.Stat(opts.Model); err != nil {
		return nil, fmt.Errorf("phrasebook %s: %w", opts.Model, err)
	}

	book, err := OpenPhrasebook(opts.Model)
	if err != nil {
		return nil, err
	}

	pairs, err := book.Pairs(ctx)
	if err != nil {
		book.Close()
		return nil, err
	}
	if len(pairs) == 0 {
		book.Close()
		return nil, fmt.Errorf("phrasebook %s is empty", opts.Model)
	}

	switch opts.Placement {
	case translation.PlacementAccelerator:
		defer book.Close()
		return l.preload(ctx, book, pairs)
	case translation.PlacementBaseline:
		return &sqlPhraseEngine{book: book, pairs: pairs}, nil
	default:
		book.Close()
		return nil, fmt.Errorf("unsupported placement: %s", opts.Placement)
	}
}

func (l *PhrasebookLoader) preload(ctx context.Context, book *Phrasebook, pairs map[[2]string]bool) (Engine, error) {
	limit := l.MaxPreload
	if limit <= 0 {
		limit = DefaultMaxPreload
	}

	count, err := book.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count > limit {
		return nil, fmt.Errorf("phrasebook has %d phrases, more than the %d that can be preloaded", count, limit)
	}

	phrases, err := book.List(ctx)
	if err != nil {
		return nil, err
	}

	index := make(map[string]Phrase, len(phrases))
	for _, phrase := range phrases {
		index[memoryKey(phrase.SourceLang, phrase.TargetLang, phrase.SourceText)] = phrase
	}
	return &memoryPhraseEngine{index: index, pairs: pairs}, nil
}

func memoryKey(source, target, text string) string {
	return language.NormalizeCode(source) + "\x00" + language.NormalizeCode(target) + "\x00" + phraseKey(text)
}

type memoryPhraseEngine struct {
	index map[string]Phrase
	pairs map[[2]string]bool
}

func (e *memoryPhraseEngine) Translate(ctx context.Context, text, source, target string) (translation.Output, error) {
	phrase, ok := e.index[memoryKey(source, target, text)]
	if !ok {
		return translation.Output{}, ErrPhraseNotFound
	}
	return translation.Output{Text: phrase.TargetText, Score: phrase.Score}, nil
}

func (e *memoryPhraseEngine) SupportsPair(source, target string) bool {
	return e.pairs[[2]string{language.NormalizeCode(source), language.NormalizeCode(target)}]
}

type sqlPhraseEngine struct {
	book  *Phrasebook
	pairs map[[2]string]bool
}

func (e *sqlPhraseEngine) Translate(ctx context.Context, text, source, target string) (translation.Output, error) {
	phrase, err := e.book.Lookup(ctx, source, target, text)
	if err != nil {
		return translation.Output{}, err
	}
	return translation.Output{Text: phrase.TargetText, Score: phrase.Score}, nil
}

func (e *sqlPhraseEngine) SupportsPair(source, target string) bool {
	return e.pairs[[2]string{language.NormalizeCode(source), language.NormalizeCode(target)}]
}

func (e *sqlPhraseEngine) Close() error {
	return e.book.Close()
}
