// internal/workers/composition/compose-workflow/config.go
package composeworkflow

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
