// Package online performs network translation through a remote backend
// (OpenAI or Gemini). The Client refuses to call out while the network is
// known to be unreachable and short-circuits through a circuit breaker after
// repeated backend failures.
package online
