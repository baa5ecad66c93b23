package main

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"

	"github.com/franz/yt-schema/internal/extract"
	"github.com/franz/yt-schema/internal/scan"
	"github.com/franz/yt-schema/internal/store"
	"github.com/franz/yt-schema/internal/util"
)

const (
	defaultKind        = "sqlite"
	defaultDSN         = "yts.db"
	defaultConcurrency = 4
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.kind", defaultKind)
	v.SetDefault("db.dsn", defaultDSN)
	v.SetDefault("db.reset_on_import", false)
	v.SetDefault("import.pattern", scan.DefaultPattern)
	v.SetDefault("import.concurrency", defaultConcurrency)
	v.SetDefault("import.atomic", true)
	v.SetDefault("import.timezone", extract.DefaultTimezone)
	v.SetDefault("artifacts", "artifacts")
}

// GetConfigString retrieves a string config value with proper precedence:
// 1. Command-line flag (if set)
// 2. Environment variable (YTS_*)
// 3. Config file
// 4. Default value
func GetConfigString(key string, defaultValue string) string {
	val := viper.GetString(key)
	if val == "" {
		return defaultValue
	}
	return val
}

// GetConfigInt retrieves an int config value with proper precedence
func GetConfigInt(key string, defaultValue int) int {
	val := viper.GetInt(key)
	if val == 0 {
		return defaultValue
	}
	return val
}

// GetConfigBool retrieves a bool config value
func GetConfigBool(key string) bool {
	return viper.GetBool(key)
}

// storeConfig builds the backend configuration from db.kind and db.dsn.
func storeConfig() store.Config {
	return store.Config{
		Kind: GetConfigString("db.kind", defaultKind),
		DSN:  GetConfigString("db.dsn", defaultDSN),
	}
}

// loadLocation resolves import.timezone. An empty value means UTC.
func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: import.timezone %q: %v", util.ErrInvalidConfig, name, err)
	}
	return loc, nil
}

// redactDSN hides credentials in a postgres URL for log output.
func redactDSN(kind, dsn string) string {
	if kind != "postgres" {
		return dsn
	}
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	return u.Redacted()
}
