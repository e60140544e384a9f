// Package server implements the WebSocket relay: the hub that tracks
// connected peers and fans broadcasts out to them, the per-connection
// read/write pumps, and the router that tells chat messages apart from
// exchange commands.
//
// The implementation is organized into specialized files for configuration,
// hub management, clients, routing, and HTTP handlers to keep the codebase
// maintainable and testable as the project grows.
package server
