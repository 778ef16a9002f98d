package async

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/photomapper/internal/picker"
	"github.com/joseph-ayodele/photomapper/internal/pipeline"
)

var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one selection waiting to be processed.
type Job struct {
	ID          uuid.UUID
	Selection   picker.Selection
	Source      string // e.g. the drop folder that produced it
	SubmittedAt time.Time
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// BatchProcessor is satisfied by *pipeline.Processor.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, sel picker.Selection) (*pipeline.BatchReport, error)
}
