// Package api provides an HTTP API server for browsing archived research
// sessions.
package api

// DefaultListenAddr is used when no address is configured.
const DefaultListenAddr = ":8082"

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8082")
	ListenAddr string
}
