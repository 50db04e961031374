package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 30 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Talk source
const (
	TalkSourceTimeout      = 10 * time.Second
	TalkRefreshJobInterval = 2 * time.Minute
	TalkRefreshJobTimeout  = 30 * time.Second
)

// Batch sizes
const (
	DefaultBatchSize = 20
	MaxBatchSize     = 100
)
