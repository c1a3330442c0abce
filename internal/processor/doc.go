// Package processor wires configuration into a running translator. It
// builds the connectivity monitor, the online client, the offline engine
// manager and the orchestrator, and drives them for single translations,
// batch files, interactive sessions and the HTTP API.
package processor
