package config

import "time"

const (
	// ServiceName is used for config file names and the env prefix (ANIMELIB_).
	ServiceName = "animelib"

	// Database drivers.
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	DefaultSQLitePath   = "anime-library.db"
	DefaultPostgresPort = 5432

	// Connection pool defaults.
	DefaultMaxConnections  = 10
	DefaultMinConnections  = 2
	DefaultMaxConnLifetime = time.Hour
	DefaultSlowThreshold   = 200 * time.Millisecond

	DefaultLockFile      = "anime-library.lock"
	DefaultSubjectPrefix = "animelib"
)
