// internal/workers/pipeline/execute-pipeline/config.go
package executepipeline

import "time"

type Config struct {
	Timeout time.Duration
	RunTTL  time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Minute,
		RunTTL:  24 * time.Hour,
	}
}
