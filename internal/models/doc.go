// Package models lists the models available to parlo: translation and
// speech models of the OpenAI account, and the models served by a local
// OpenAI-compatible inference server used for offline translation.
package models
