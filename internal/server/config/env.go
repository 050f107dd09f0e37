package config

import (
	"fmt"
	"strconv"
	"time"
)

const envPrefix = "TASKS_"

// lookupFunc matches os.LookupEnv.
type lookupFunc func(key string) (string, bool)

// parseEnv overlays TASKS_* environment variables. Durations accept Go
// duration strings; TASKS_TOKEN_LIFETIME also accepts plain seconds.
func parseEnv(c *Config, lookup lookupFunc) error {
	strs := map[string]*string{
		"HTTP_ADDR":        &c.HTTPAddr,
		"ENVIRONMENT":      &c.Environment,
		"DATABASE_DSN":     &c.DatabaseDSN,
		"PRIVATE_KEY_PATH": &c.PrivateKeyPath,
		"PUBLIC_KEY_PATH":  &c.PublicKeyPath,
		"LOG_LEVEL":        &c.LogLevel,
		"LOG_FORMAT":       &c.LogFormat,
		"S3_REGION":        &c.S3Region,
		"S3_BASE_ENDPOINT": &c.S3BaseEndpoint,
		"S3_ACCESS_KEY":    &c.S3AccessKey,
		"S3_SECRET_KEY":    &c.S3SecretKey,
	}
	for name, dst := range strs {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"DB_MAX_OPEN_CONNS": &c.DBMaxOpenConns,
		"DB_MAX_IDLE_CONNS": &c.DBMaxIdleConns,
		"HASH_WORKERS":      &c.HashWorkers,
	}
	for name, dst := range ints {
		v, ok := lookup(envPrefix + name)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = n
	}

	durations := map[string]*time.Duration{
		"TOKEN_LIFETIME":        &c.TokenLifetime,
		"CLOCK_SKEW":            &c.ClockSkew,
		"DB_CONN_MAX_IDLE_TIME": &c.DBConnMaxIdleTime,
		"DB_CONNECT_TIMEOUT":    &c.DBConnectTimeout,
		"SHUTDOWN_TIMEOUT":      &c.ShutdownTimeout,
	}
	for name, dst := range durations {
		v, ok := lookup(envPrefix + name)
		if !ok || v == "" {
			continue
		}
		d, err := parseSecondsOrDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = d
	}

	if v, ok := lookup(envPrefix + "MIGRATE_ON_START"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sMIGRATE_ON_START: %w", envPrefix, err)
		}
		c.MigrateOnStart = b
	}

	return nil
}

func parseSecondsOrDuration(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}
