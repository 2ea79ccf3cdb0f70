package engine

import (
	"fmt"

	"github.com/LynnColeArt/gudaflow"
)

// Queue ids used by the overlapped engine. S1 and S3 share Q1, S2 runs on
// Q2.
const (
	Q1 gudaflow.QueueID = 1
	Q2 gudaflow.QueueID = 2
)

// Config holds the run parameters shared by both engines.
type Config struct {
	N          int     // Elements per buffer
	Iterations int     // Pipeline passes
	Tolerance  float32 // Maximum per-element absolute difference when verifying
	BlockSize  int     // Elements per kernel block
	Warmup     bool    // Issue and drain one trivial kernel before the loop
}

// DefaultConfig returns the configuration of the reference benchmark.
func DefaultConfig() Config {
	return Config{
		N:          1_000_000,
		Iterations: 100,
		Tolerance:  gudaflow.DefaultVerifyTolerance,
		BlockSize:  gudaflow.DefaultBlockSize,
		Warmup:     true,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.N <= 0:
		return gudaflow.NewInvalidArgError("Config", fmt.Sprintf("N must be positive, got %d", c.N))
	case c.Iterations < 1:
		return gudaflow.NewInvalidArgError("Config", fmt.Sprintf("iterations must be at least 1, got %d", c.Iterations))
	case c.Tolerance < 0:
		return gudaflow.NewInvalidArgError("Config", fmt.Sprintf("tolerance must not be negative, got %g", c.Tolerance))
	case c.BlockSize < 0 || c.BlockSize > gudaflow.MaxBlockSize:
		return gudaflow.NewInvalidArgError("Config", fmt.Sprintf("block size %d out of range", c.BlockSize))
	}
	return nil
}
