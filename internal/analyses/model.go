package analyses

import "time"

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Analysis represents one uploaded lab report and its processing state.
// UserID is empty for anonymous uploads until the document is claimed;
// PatientID is resolved during normalization.
type Analysis struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId,omitempty"`
	PatientID    string    `json:"patientId,omitempty"`
	StorageKey   string    `json:"-"`
	FileName     string    `json:"fileName"`
	MimeType     string    `json:"mimeType"`
	Status       string    `json:"status"`
	Result       *AIResult `json:"result,omitempty"`
	ErrorMessage *string   `json:"errorMessage,omitempty"`
	Attempts     int       `json:"attempts"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Terminal reports whether the analysis can no longer change status.
func (a Analysis) Terminal() bool {
	return a.Status == StatusCompleted || a.Status == StatusFailed
}
