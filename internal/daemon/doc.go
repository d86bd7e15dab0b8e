// Package daemon hosts the long-running hakimi process.
//
// A Daemon owns the queue store, the workflow manager, and the optional
// HTTP observation API. It guards against concurrent instances with a
// lock file in the log directory and exposes queue maintenance
// operations for the IPC layer.
package daemon
