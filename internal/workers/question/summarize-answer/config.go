// internal/workers/question/summarize-answer/config.go
package summarizeanswer

import "time"

type Config struct {
	Timeout        time.Duration
	PreviewMaxRows int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:        30 * time.Second,
		PreviewMaxRows: 25,
	}
}
