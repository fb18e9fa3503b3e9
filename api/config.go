// Package api provides the HTTP API server for the dream journal.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8055")
	ListenAddr string
}
