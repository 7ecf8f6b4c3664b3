package filepack

import "log/slog"

// packConfig holds configuration for archive creation.
type packConfig struct {
	transform  Transform
	maxEntries int
	progress   ProgressFunc
	logger     *slog.Logger
}

// PackOption configures Pack and PackFile.
type PackOption func(*packConfig)

// PackWithTransform sets the per-entry content transform.
// The default is Identity.
func PackWithTransform(t Transform) PackOption {
	return func(cfg *packConfig) {
		cfg.transform = t
	}
}

// PackWithTyped selects the typed-mode transform: pipeline entries are
// recorded as TypeEncryptedPipeline. It replaces any transform set earlier.
func PackWithTyped(typed bool) PackOption {
	return func(cfg *packConfig) {
		if typed {
			cfg.transform = SealPipelines
		}
	}
}

// PackWithMaxEntries limits the number of entries an archive may hold.
// Zero uses DefaultMaxEntries. Negative means no limit.
func PackWithMaxEntries(n int) PackOption {
	return func(cfg *packConfig) {
		cfg.maxEntries = n
	}
}

// PackWithProgress sets a callback for pack progress.
func PackWithProgress(fn ProgressFunc) PackOption {
	return func(cfg *packConfig) {
		cfg.progress = fn
	}
}

// PackWithLogger sets the logger for pack diagnostics.
func PackWithLogger(logger *slog.Logger) PackOption {
	return func(cfg *packConfig) {
		cfg.logger = logger
	}
}
