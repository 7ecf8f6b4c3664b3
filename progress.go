package filepack

// ProgressEvent represents a progress update during scan, pack, or extraction.
type ProgressEvent struct {
	// Stage identifies the current phase of the operation.
	Stage ProgressStage

	// Path is the file currently being processed, if applicable.
	Path string

	// BytesDone is the number of content bytes completed.
	BytesDone uint64

	// BytesTotal is the total content bytes for the operation.
	// Zero indicates the total is unknown.
	BytesTotal uint64

	// FilesDone is the number of files completed.
	FilesDone int

	// FilesTotal is the total number of files.
	// Zero indicates the total is unknown (e.g., during scanning).
	FilesTotal int
}

// ProgressStage identifies the current phase of an operation.
type ProgressStage uint8

// Progress stages.
const (
	// StageScanning indicates the directory tree is being walked.
	StageScanning ProgressStage = iota

	// StagePacking indicates file contents are being read into the archive buffer.
	StagePacking

	// StageWriting indicates the archive buffer is being flushed to storage.
	StageWriting

	// StageExtracting indicates files are being written out of an archive.
	StageExtracting
)

// String returns the string representation of the stage.
func (s ProgressStage) String() string {
	switch s {
	case StageScanning:
		return "scanning"
	case StagePacking:
		return "packing"
	case StageWriting:
		return "writing"
	case StageExtracting:
		return "extracting"
	default:
		return "unknown"
	}
}

// ProgressFunc receives progress updates during operations.
type ProgressFunc func(ProgressEvent)

func (fn ProgressFunc) report(ev ProgressEvent) {
	if fn != nil {
		fn(ev)
	}
}
