package constants

// JobStatus is the lifecycle state of a processing job.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusPending    JobStatus = "pending"    // accepted, waiting for a worker
	JobStatusExtracting JobStatus = "extracting" // unpacking the input archive
	JobStatusProcessing JobStatus = "processing" // merging or renaming documents
	JobStatusPacking    JobStatus = "packing"    // writing the output archive
	JobStatusCompleted  JobStatus = "completed"  // output archive ready
	JobStatusFailed     JobStatus = "failed"     // terminal failure
)

// Terminal reports whether no further transition can happen.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}
