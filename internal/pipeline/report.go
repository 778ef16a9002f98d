package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/photomapper/constants"
	"github.com/joseph-ayodele/photomapper/internal/picker"
)

// FileReport is the outcome for one selected file.
type FileReport struct {
	Source    string
	FileName  string
	Status    constants.FileStatus
	PhotoID   uuid.UUID
	ObjectKey string
	ThumbKey  string
	Width     int
	Height    int
	Bytes     int64
	Error     string
}

// BatchReport summarizes one ProcessBatch call.
type BatchReport struct {
	BatchID    uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	Selected   int
	Rejected   string
	Files      []FileReport
	Alerts     []picker.Alert
}

func (r *BatchReport) Count(status constants.FileStatus) int {
	n := 0
	for _, f := range r.Files {
		if f.Status == status {
			n++
		}
	}
	return n
}

func (r *BatchReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
