package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultLocalPort                 = ":8080"
	defaultDatabaseName              = "contributions"
	defaultStatePath                 = "state.db"
	defaultGenesisFile               = "genesis.yaml"
	defaultRequestTimeout            = 10 * time.Second
	defaultRateLimit                 = 10.0
	defaultRateBurst                 = 20
	defaultDistributionCheckInterval = time.Hour
)

const (
	keyPort                      = "PORT"
	keyStatePath                 = "DB_PATH"
	keyDbURI                     = "DB_URI"
	keyDbName                    = "DB_NAME"
	keyRequestTimeout            = "REQ_TIMEOUT"
	keyGenesisFile               = "GENESIS_FILE"
	keyRateLimit                 = "RATE_LIMIT_RPS"
	keyRateBurst                 = "RATE_LIMIT_BURST"
	keyDistributionCheckInterval = "DISTRIBUTION_CHECK_INTERVAL"
	keyConfigFile                = "CONFIG_FILE"
)

func init() {
	viper.AutomaticEnv()
}

// Load reads the optional config file named by CONFIG_FILE. Environment variables
// take precedence over the file.
func Load() error {
	file := viper.GetString(keyConfigFile)
	if file == "" {
		return nil
	}
	viper.SetConfigFile(file)
	if err := viper.ReadInConfig(); err != nil {
		return errors.New("failed to read the config file: " + err.Error())
	}
	return nil
}

// GetPort returns port prepended with `:`
func GetPort() string {
	port := viper.GetString(keyPort)
	if port == "" {
		return defaultLocalPort
	}
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return port
}

// GetStatePath returns the path of the bbolt state file.
func GetStatePath() string {
	if path := viper.GetString(keyStatePath); path != "" {
		return path
	}
	return defaultStatePath
}

// GetDbConnectionURI returns the URI of the Mongo event archive. Empty disables the archive.
func GetDbConnectionURI() string {
	return viper.GetString(keyDbURI)
}

func GetDatabaseName() string {
	if name := viper.GetString(keyDbName); name != "" {
		return name
	}
	return defaultDatabaseName
}

func GetGenesisFile() string {
	if file := viper.GetString(keyGenesisFile); file != "" {
		return file
	}
	return defaultGenesisFile
}

func GetRequestTimeout() time.Duration {
	return durationOr(keyRequestTimeout, defaultRequestTimeout)
}

// GetDistributionCheckInterval is how often the scheduler tries the monthly distribution.
func GetDistributionCheckInterval() time.Duration {
	return durationOr(keyDistributionCheckInterval, defaultDistributionCheckInterval)
}

// GetRateLimit returns the allowed requests per second per client IP.
func GetRateLimit() float64 {
	if rps := viper.GetFloat64(keyRateLimit); rps > 0 {
		return rps
	}
	return defaultRateLimit
}

func GetRateBurst() int {
	if burst := viper.GetInt(keyRateBurst); burst > 0 {
		return burst
	}
	return defaultRateBurst
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if d := viper.GetDuration(key); d > 0 {
		return d
	}
	return fallback
}
