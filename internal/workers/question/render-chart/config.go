// internal/workers/question/render-chart/config.go
package renderchart

import "time"

type Config struct {
	Timeout        time.Duration
	PreviewMaxRows int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:        60 * time.Second,
		PreviewMaxRows: 60,
	}
}
