package constants

// JobStatus is the canonical status for rows in extraction_jobs.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusSucceeded JobStatus = "SUCCEEDED" // sheets extracted
	JobStatusFailed    JobStatus = "FAILED"    // extraction, LLM or parse failure
	JobStatusSkipped   JobStatus = "SKIPPED"   // not a PDF
)
