package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/joseph-ayodele/pdftoxl/constants"
)

// ExtractionJob is one processed upload as recorded in extraction_jobs.
type ExtractionJob struct {
	ID            uuid.UUID           `json:"id"`
	Filename      string              `json:"filename"`
	TemplateID    string              `json:"template_id"`
	Status        constants.JobStatus `json:"status"`
	ExtractedData json.RawMessage     `json:"extracted_data,omitempty"`
	ErrorMessage  *string             `json:"error_message,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}
