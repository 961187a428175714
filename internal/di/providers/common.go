package providers

import "time"

const (
	// cleanupInterval is how often the memory cache drops expired entries.
	cleanupInterval = 10 * time.Minute

	// shutdownTimeout is the maximum time to wait for the HTTP server to drain.
	shutdownTimeout = 30 * time.Second
)

// readHeaderTimeout bounds how long a client may take to send request headers.
const readHeaderTimeout = 10 * time.Second
