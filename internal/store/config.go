package store

import "time"

// Config holds configuration for the Valkey-backed store client.
type Config struct {
	// Address is the store server address
	Address string

	// Username for authentication
	Username string

	// Password for authentication
	Password string

	// Database number
	Database int

	// TTL bounds how long an untaken result survives
	TTL time.Duration
}
