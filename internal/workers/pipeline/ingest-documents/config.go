// internal/workers/pipeline/ingest-documents/config.go
package ingestdocuments

import "time"

type Config struct {
	Timeout    time.Duration
	Definition string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:    15 * time.Minute,
		Definition: "document_processing",
	}
}
