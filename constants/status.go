package constants

// FileStatus is the per-file outcome recorded in batch reports and the photos table.
type FileStatus string

// Stable values (store these exact strings in DB).
const (
	FileStatusUploaded  FileStatus = "UPLOADED"  // primary asset stored
	FileStatusDuplicate FileStatus = "DUPLICATE" // same content already stored
	FileStatusFailed    FileStatus = "FAILED"    // terminal failure for this file
	FileStatusSkipped   FileStatus = "SKIPPED"   // selection discarded before processing
)
