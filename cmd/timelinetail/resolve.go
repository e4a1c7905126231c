package main

import (
	"os"
	"path/filepath"

	"nullclaw/internal/infra/config"
)

// resolvePath returns explicit, falling back to the configured timeline
// data directory's events.jsonl when explicit is empty.
func resolvePath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	cfgPath := os.Getenv("NULLCLAW_CONFIG")
	if cfgPath == "" {
		cfgPath = "./config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg.Timeline.DataDir, "events.jsonl"), nil
}
