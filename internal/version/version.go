// Package version contains information on the current version of the program.
// It is split from the main program for easy use.
package version

// Current is the string representing the current version of plyfin. It is
// mixed into the keys of cached compiled grammars so that a new version never
// reads artifacts written by an old one.
const Current = "0.4.0"

// ServerCurrent is the string representing the current version of the plyfin
// grammar server.
const ServerCurrent = "0.4.0"
