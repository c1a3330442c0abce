// Package connectivity tracks whether the network is reachable and notifies
// subscribers when reachability flips.
package connectivity
