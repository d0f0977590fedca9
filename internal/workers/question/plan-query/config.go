// internal/workers/question/plan-query/config.go
package planquery

import "time"

type Config struct {
	Timeout    time.Duration
	UseLLMPlan bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout:    30 * time.Second,
		UseLLMPlan: true,
	}
}
