// Package cli turns the ifgrid command line into an app.Config.
//
// Parsing is done by a single cobra root command: the manifest path comes
// from --manifest or the one positional argument, and the phase, append,
// concurrency, logging and metrics flags map onto Config fields. Help,
// --version and a missing manifest path print to the given writer and ask
// the caller to exit cleanly. Every parse or validation failure is returned
// as an *ExitError with code 2, which cmd/cli turns into the process exit
// status.
package cli
