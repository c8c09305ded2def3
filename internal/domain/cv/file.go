package cv

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type FileStatus string

const (
	FileStatusActive   FileStatus = "active"
	FileStatusArchived FileStatus = "archived"
)

type Feedback struct {
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	Keywords     []string `json:"keywords"`
}

type Analysis struct {
	Score    int      `json:"score"`
	Feedback Feedback `json:"feedback"`
}

// File is an uploaded CV and its analysis result. It does not take part in the primary flag.
type File struct {
	ID         uuid.UUID  `json:"id"`
	OwnerID    uuid.UUID  `json:"user_id"`
	Title      string     `json:"title"`
	FileURL    string     `json:"file_url"`
	FilePath   string     `json:"file_path"`
	FileType   string     `json:"file_type"`
	Status     FileStatus `json:"status"`
	AIScore    *int       `json:"ai_score"`
	AIFeedback *Feedback  `json:"ai_feedback"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (f *File) Analyzed() bool {
	return f.AIScore != nil
}

type FileRepository interface {
	Save(ctx context.Context, f *File) error
	// SaveAnalysis attaches the result to the owner's file stored under fileURL.
	SaveAnalysis(ctx context.Context, ownerID uuid.UUID, fileURL string, a Analysis) error
	Delete(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) (*File, error)
	FindByURL(ctx context.Context, fileURL string, ownerID uuid.UUID) (*File, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*File, error)
	// ListPending returns active files of any owner created before the cutoff that still have no
	// score, oldest first.
	ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]*File, error)
}
