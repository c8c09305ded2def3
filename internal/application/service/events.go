package service

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type AnalysisEventType string

const (
	EventCVUploaded        AnalysisEventType = "cv.uploaded"
	EventAnalysisCompleted AnalysisEventType = "analysis.completed"
	EventAnalysisFailed    AnalysisEventType = "analysis.failed"
)

// AnalysisJob asks for one uploaded file to be scored.
type AnalysisJob struct {
	EventType AnalysisEventType `json:"event_type"`
	FileID    uuid.UUID         `json:"file_id"`
	OwnerID   uuid.UUID         `json:"owner_id"`
	FileURL   string            `json:"file_url"`
}

// AnalysisEvent tells subscribers that a file's analysis has finished.
type AnalysisEvent struct {
	EventType AnalysisEventType `json:"event_type"`
	FileID    uuid.UUID         `json:"file_id"`
	OwnerID   uuid.UUID         `json:"owner_id"`
	FileURL   string            `json:"file_url"`
	Score     *int              `json:"score,omitempty"`
	At        time.Time         `json:"at"`
}

// AnalysisDispatcher hands a job to whatever runs the analysis. It must not block on the
// analysis itself.
type AnalysisDispatcher interface {
	Dispatch(ctx context.Context, job AnalysisJob) error
}

type AnalysisNotifier interface {
	Publish(ctx context.Context, ev AnalysisEvent) error
	// Subscribe streams the owner's events until ctx is done or the returned cancel is called.
	Subscribe(ctx context.Context, ownerID uuid.UUID) (<-chan AnalysisEvent, func(), error)
}
