package guest

import (
	"context"

	"github.com/tetratelabs/wazero"
)

// Config holds configuration for runtime creation.
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB
	// each). 0 means the wazero default.
	MemoryLimitPages uint32
}

// NewRuntime creates a wazero runtime suitable for hosting bridge guests.
func NewRuntime(ctx context.Context, cfg *Config) wazero.Runtime {
	runtimeCfg := wazero.NewRuntimeConfig()

	if cfg != nil && cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}

	return wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
}
