// Package ipc implements JSON-RPC control of the hakimi daemon over a
// Unix domain socket.
//
// The Server registers a service under the "Hakimi" name; Client wraps
// each RPC with a typed method. Requests and responses are plain DTO
// structs so the CLI never links daemon internals.
package ipc
