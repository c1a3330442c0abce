// Package translation holds the data model shared by the online and offline
// translation paths: requests, results, modes, engine states and the error
// taxonomy returned by the orchestration core.
package translation
