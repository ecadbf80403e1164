package openai

// BatchStatus is the lifecycle state of a batch.
type BatchStatus string

const (
	BatchStatusValidating BatchStatus = "validating"
	BatchStatusFailed     BatchStatus = "failed"
	BatchStatusInProgress BatchStatus = "in_progress"
	BatchStatusFinalizing BatchStatus = "finalizing"
	BatchStatusCompleted  BatchStatus = "completed"
	BatchStatusExpired    BatchStatus = "expired"
	BatchStatusCancelling BatchStatus = "cancelling"
	BatchStatusCancelled  BatchStatus = "cancelled"
)

// IsTerminal reports whether the batch will not change state again.
func (s BatchStatus) IsTerminal() bool {
	switch s {
	case BatchStatusCompleted, BatchStatusFailed, BatchStatusExpired, BatchStatusCancelled:
		return true
	default:
		return false
	}
}

// BatchEndpoint is the API path every line of a batch targets.
type BatchEndpoint string

const (
	BatchEndpointChat        BatchEndpoint = "/v1/chat/completions"
	BatchEndpointEmbeddings  BatchEndpoint = "/v1/embeddings"
	BatchEndpointModerations BatchEndpoint = "/v1/moderations"
)

// DefaultCompletionWindow is the only window the API accepts.
const DefaultCompletionWindow = "24h"

// Batch is an asynchronous bulk job.
type Batch struct {
	ID               string             `json:"id"`
	Object           string             `json:"object"`
	Endpoint         BatchEndpoint      `json:"endpoint"`
	Errors           *BatchErrors       `json:"errors,omitempty"`
	InputFileID      string             `json:"input_file_id"`
	CompletionWindow string             `json:"completion_window"`
	Status           BatchStatus        `json:"status"`
	OutputFileID     string             `json:"output_file_id,omitempty"`
	ErrorFileID      string             `json:"error_file_id,omitempty"`
	CreatedAt        int64              `json:"created_at"`
	InProgressAt     int64              `json:"in_progress_at,omitempty"`
	ExpiresAt        int64              `json:"expires_at,omitempty"`
	FinalizingAt     int64              `json:"finalizing_at,omitempty"`
	CompletedAt      int64              `json:"completed_at,omitempty"`
	FailedAt         int64              `json:"failed_at,omitempty"`
	ExpiredAt        int64              `json:"expired_at,omitempty"`
	CancellingAt     int64              `json:"cancelling_at,omitempty"`
	CancelledAt      int64              `json:"cancelled_at,omitempty"`
	RequestCounts    BatchRequestCounts `json:"request_counts"`
	Metadata         map[string]string  `json:"metadata,omitempty"`
}

// BatchErrors lists validation errors of a failed batch.
type BatchErrors struct {
	Object string           `json:"object"`
	Data   []BatchLineError `json:"data"`
}

// BatchLineError describes a problem with one input line.
type BatchLineError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
	Line    *int   `json:"line,omitempty"`
}

// BatchRequestCounts tracks progress.
type BatchRequestCounts struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// BatchCreateRequest starts a batch over an uploaded JSONL file.
type BatchCreateRequest struct {
	InputFileID      string            `json:"input_file_id"`
	Endpoint         BatchEndpoint     `json:"endpoint"`
	CompletionWindow string            `json:"completion_window"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// BatchListRequest pages through batches. Zero values are omitted.
type BatchListRequest struct {
	After string
	Limit int
}
