package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/tasktracker/internal/flagx"
	"github.com/dmitrijs2005/tasktracker/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig mirrors Config for decoding config files. Pointer fields let an
// absent key leave the lower-priority value untouched.
type FileConfig struct {
	HTTPAddr        *string         `json:"http_addr" yaml:"http_addr"`
	Environment     *string         `json:"environment" yaml:"environment"`
	ReadTimeout     *timex.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    *timex.Duration `json:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout *timex.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`

	DatabaseDSN       *string         `json:"database_dsn" yaml:"database_dsn"`
	DBMaxOpenConns    *int            `json:"db_max_open_conns" yaml:"db_max_open_conns"`
	DBMaxIdleConns    *int            `json:"db_max_idle_conns" yaml:"db_max_idle_conns"`
	DBConnMaxIdleTime *timex.Duration `json:"db_conn_max_idle_time" yaml:"db_conn_max_idle_time"`
	DBConnectTimeout  *timex.Duration `json:"db_connect_timeout" yaml:"db_connect_timeout"`
	MigrateOnStart    *bool           `json:"migrate_on_start" yaml:"migrate_on_start"`

	PrivateKeyPath *string         `json:"private_key_path" yaml:"private_key_path"`
	PublicKeyPath  *string         `json:"public_key_path" yaml:"public_key_path"`
	TokenLifetime  *timex.Duration `json:"token_lifetime" yaml:"token_lifetime"`
	ClockSkew      *timex.Duration `json:"clock_skew" yaml:"clock_skew"`
	HashWorkers    *int            `json:"hash_workers" yaml:"hash_workers"`

	LogLevel  *string `json:"log_level" yaml:"log_level"`
	LogFormat *string `json:"log_format" yaml:"log_format"`

	S3Region       *string `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint *string `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	S3AccessKey    *string `json:"s3_access_key" yaml:"s3_access_key"`
	S3SecretKey    *string `json:"s3_secret_key" yaml:"s3_secret_key"`
}

// parseFile overlays the file named by -c/-config, if any. The format is
// chosen by extension; anything other than .yaml/.yml is read as JSON.
func parseFile(config *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	fc.apply(config)
	return nil
}

func (fc *FileConfig) apply(c *Config) {
	setString(&c.HTTPAddr, fc.HTTPAddr)
	setString(&c.Environment, fc.Environment)
	setDuration(&c.ReadTimeout, fc.ReadTimeout)
	setDuration(&c.WriteTimeout, fc.WriteTimeout)
	setDuration(&c.ShutdownTimeout, fc.ShutdownTimeout)

	setString(&c.DatabaseDSN, fc.DatabaseDSN)
	setInt(&c.DBMaxOpenConns, fc.DBMaxOpenConns)
	setInt(&c.DBMaxIdleConns, fc.DBMaxIdleConns)
	setDuration(&c.DBConnMaxIdleTime, fc.DBConnMaxIdleTime)
	setDuration(&c.DBConnectTimeout, fc.DBConnectTimeout)
	if fc.MigrateOnStart != nil {
		c.MigrateOnStart = *fc.MigrateOnStart
	}

	setString(&c.PrivateKeyPath, fc.PrivateKeyPath)
	setString(&c.PublicKeyPath, fc.PublicKeyPath)
	setDuration(&c.TokenLifetime, fc.TokenLifetime)
	setDuration(&c.ClockSkew, fc.ClockSkew)
	setInt(&c.HashWorkers, fc.HashWorkers)

	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.LogFormat, fc.LogFormat)

	setString(&c.S3Region, fc.S3Region)
	setString(&c.S3BaseEndpoint, fc.S3BaseEndpoint)
	setString(&c.S3AccessKey, fc.S3AccessKey)
	setString(&c.S3SecretKey, fc.S3SecretKey)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
