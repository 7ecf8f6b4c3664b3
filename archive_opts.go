package filepack

import "log/slog"

// readConfig holds configuration for parsing an archive header.
type readConfig struct {
	maxEntries int
	logger     *slog.Logger
}

// ReadOption configures Open, Parse and OpenFile.
type ReadOption func(*readConfig)

// ReadWithMaxEntries limits the number of header records accepted.
// Zero uses DefaultMaxEntries. Negative means no limit.
func ReadWithMaxEntries(n int) ReadOption {
	return func(cfg *readConfig) {
		cfg.maxEntries = n
	}
}

// ReadWithLogger sets the logger for the archive and its extractions.
func ReadWithLogger(logger *slog.Logger) ReadOption {
	return func(cfg *readConfig) {
		cfg.logger = logger
	}
}

// unpackConfig holds configuration for extraction.
type unpackConfig struct {
	maxEntries int
	restore    Restore
	progress   ProgressFunc
	logger     *slog.Logger
}

// UnpackOption configures Unpack, UnpackFile and Archive.Extract.
type UnpackOption func(*unpackConfig)

// UnpackWithMaxEntries limits the number of header records accepted.
// Zero uses DefaultMaxEntries. Negative means no limit.
// Archive.Extract ignores it; the limit applies when the header is parsed.
func UnpackWithMaxEntries(n int) UnpackOption {
	return func(cfg *unpackConfig) {
		cfg.maxEntries = n
	}
}

// UnpackWithRestore sets a hook that reverses the pack-side transform
// before each file is written.
func UnpackWithRestore(fn Restore) UnpackOption {
	return func(cfg *unpackConfig) {
		cfg.restore = fn
	}
}

// UnpackWithProgress sets a callback for extraction progress.
func UnpackWithProgress(fn ProgressFunc) UnpackOption {
	return func(cfg *unpackConfig) {
		cfg.progress = fn
	}
}

// UnpackWithLogger sets the logger for extraction diagnostics.
func UnpackWithLogger(logger *slog.Logger) UnpackOption {
	return func(cfg *unpackConfig) {
		cfg.logger = logger
	}
}
