package entity

// DocumentRecord is the per-document outcome of a job, used for the job report.
type DocumentRecord struct {
	Source   string           `json:"source"`
	Metadata DocumentMetadata `json:"metadata"`
	Output   string           `json:"output,omitempty"` // path relative to the job output dir
	Merged   bool             `json:"merged,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// Failed reports whether the document was skipped.
func (r DocumentRecord) Failed() bool {
	return r.Error != ""
}
