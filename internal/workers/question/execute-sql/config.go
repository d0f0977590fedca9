// internal/workers/question/execute-sql/config.go
package executesql

import "time"

type Config struct {
	Timeout        time.Duration
	ResultCacheTTL time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout:        30 * time.Second,
		ResultCacheTTL: 5 * time.Minute,
	}
}
