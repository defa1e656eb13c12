package config

import (
	"fmt"
	"os"
	"strconv"
)

const EnvPipelineHistoryTurns = "BARQADL_PIPELINE_HISTORY_TURNS"

// PipelineConfig tunes pipeline runs.
type PipelineConfig struct {
	// HistoryTurns caps how many prior turns reach the agent; 0 passes all of them.
	HistoryTurns int `toml:"history_turns"`
}

func (c *PipelineConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

func (c *PipelineConfig) Merge(overlay *PipelineConfig) {
	if overlay.HistoryTurns != 0 {
		c.HistoryTurns = overlay.HistoryTurns
	}
}

func (c *PipelineConfig) loadDefaults() {
	if c.HistoryTurns == 0 {
		c.HistoryTurns = 6
	}
}

func (c *PipelineConfig) loadEnv() {
	if v := os.Getenv(EnvPipelineHistoryTurns); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.HistoryTurns = n
		}
	}
}

func (c *PipelineConfig) validate() error {
	if c.HistoryTurns < 0 {
		return fmt.Errorf("history_turns must not be negative")
	}
	return nil
}
