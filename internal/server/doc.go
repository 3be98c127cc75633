// Package server is the transport surface: the echo HTTP API, the
// WebSocket endpoint with its message dispatcher, connection limiting,
// and health endpoints.
package server
