// internal/workers/question/classify-question/config.go
package classifyquestion

import "time"

type Config struct {
	Timeout time.Duration
	UseLLM  bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
		UseLLM:  true,
	}
}
