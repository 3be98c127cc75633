// Package hub implements the connection registry and broadcast fan-out
// using the actor pattern: a single goroutine owns the client map and
// processes commands from a channel, so membership changes never need a
// mutex. Each connection gets its own writer goroutine with a buffered
// send channel; a client that cannot keep up is evicted instead of
// blocking the fan-out loop.
package hub
