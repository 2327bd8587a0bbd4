// Package ports defines the interfaces between the orchestration core and
// its collaborators: the duplex transport, the extraction worker, the
// persistence store, and the clock used for reconnect scheduling.
//
// The core depends only on these contracts; adapters live under
// internal/adapters.
package ports
