package config // package config loads application configuration from environment variables

import (
	"log"  // log is used to report configuration errors and halt execution
	"os"   // os provides access to environment variables
	"time" // time expresses the lock and snapshot windows
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  Storage can run against MySQL (the
// default) or fully in memory for local development and tests.
type Config struct {
	Env              string        // application environment (e.g. "dev", "prod")
	Port             string        // HTTP port to listen on
	StorageDriver    string        // "mysql" or "memory"
	DBUser           string        // database username
	DBPass           string        // database password (optional)
	DBHost           string        // database host address
	DBPort           string        // database port number
	DBName           string        // database name
	JWTSecret        string        // secret used to verify access tokens
	LockTTL          time.Duration // advisory editor lock lifetime
	SnapshotEveryOps int           // automatic snapshot after this many applied operations
	SnapshotEvery    time.Duration // automatic snapshot after this much elapsed time
	IdempotencyTTL   time.Duration // how long replayed batch responses are kept
	AuditConsumer    bool          // run the audit log consumer in-process
}

// Load reads configuration values from environment variables and returns
// a Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  The database
// variables are only required when the MySQL storage driver is selected.
func Load() Config {
	cfg := Config{
		Env:              must("APP_ENV"),
		Port:             must("APP_PORT"),
		StorageDriver:    envStr("STORAGE_DRIVER", "mysql"),
		JWTSecret:        must("JWT_SECRET"),
		LockTTL:          time.Duration(envInt("LOCK_TTL_MIN", 10)) * time.Minute,
		SnapshotEveryOps: envInt("SNAPSHOT_EVERY_OPS", 50),
		SnapshotEvery:    time.Duration(envInt("SNAPSHOT_EVERY_MIN", 15)) * time.Minute,
		IdempotencyTTL:   time.Duration(envInt("IDEMPOTENCY_TTL_MIN", 60)) * time.Minute,
		AuditConsumer:    envBool("AUDIT_CONSUMER", false),
	}
	if cfg.StorageDriver == "mysql" {
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	}
	return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
