package service

import (
	"context"

	"github.com/khoahotran/talentsin/internal/domain/cv"
)

// CVAnalyzer scores an uploaded CV reachable at fileURL.
type CVAnalyzer interface {
	Analyze(ctx context.Context, fileURL string) (cv.Analysis, error)
}
