// internal/workers/question/match-template/config.go
package matchtemplate

import "time"

type Config struct {
	Timeout         time.Duration
	UseConfirmation bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
