package internal

// Version is the parlo release, overridden at build time with -ldflags.
var Version = "0.1.0"
