package filepack

import "log/slog"

// scanConfig holds configuration for directory scanning.
type scanConfig struct {
	filter     Filter
	maxPath    int
	maxEntries int
	keepOrder  bool
	progress   ProgressFunc
	logger     *slog.Logger
}

func defaultScanConfig() scanConfig {
	return scanConfig{
		filter:     UntypedFilter,
		maxPath:    DefaultMaxPath,
		maxEntries: DefaultMaxEntries,
	}
}

// ScanOption configures Scan.
type ScanOption func(*scanConfig)

// ScanWithFilter sets the filter that selects and tags files.
// The default is UntypedFilter.
func ScanWithFilter(f Filter) ScanOption {
	return func(cfg *scanConfig) {
		if f != nil {
			cfg.filter = f
		}
	}
}

// ScanWithTyped selects TypedFilter when typed is true.
func ScanWithTyped(typed bool) ScanOption {
	return func(cfg *scanConfig) {
		if typed {
			cfg.filter = TypedFilter
		}
	}
}

// ScanWithMaxPath sets the ceiling for root + "/" + relative path.
// Files and directories at or beyond it are skipped and reported as
// ErrPathTooLong. Zero or negative disables the check.
func ScanWithMaxPath(n int) ScanOption {
	return func(cfg *scanConfig) {
		cfg.maxPath = n
	}
}

// ScanWithMaxEntries limits the number of entries a scan may produce.
// Zero uses DefaultMaxEntries. Negative means no limit.
func ScanWithMaxEntries(n int) ScanOption {
	return func(cfg *scanConfig) {
		cfg.maxEntries = n
	}
}

// ScanWithoutSort keeps entries in filesystem walk order instead of sorting
// them by path.
func ScanWithoutSort() ScanOption {
	return func(cfg *scanConfig) {
		cfg.keepOrder = true
	}
}

// ScanWithProgress sets a callback for scan progress.
func ScanWithProgress(fn ProgressFunc) ScanOption {
	return func(cfg *scanConfig) {
		cfg.progress = fn
	}
}

// ScanWithLogger sets the logger for scan diagnostics.
func ScanWithLogger(logger *slog.Logger) ScanOption {
	return func(cfg *scanConfig) {
		cfg.logger = logger
	}
}
