// Package orchestrator decides per request whether to translate online or
// offline, runs the chosen path, and falls back once from online to offline.
//
// The effective mode is computed once at dispatch:
//
//	requested Offline          -> Offline
//	requested Online, offline  -> NoConnectivityError
//	otherwise                  -> Online if preferOnline && reachable, else Offline
//
// A failed online call is followed by exactly one offline attempt. If that
// fails too the request ends with a TranslationUnavailableError carrying both
// causes.
package orchestrator
