// Package offline owns the locally-resident translation engine. The Manager
// loads the engine lazily, at most once at a time, preferring an accelerated
// placement and falling back to a baseline placement. Loaders for an
// OpenAI-compatible local inference server and for a SQLite phrasebook are
// provided.
package offline
