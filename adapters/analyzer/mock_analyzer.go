package analyzer

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/khoahotran/talentsin/internal/application/service"
	"github.com/khoahotran/talentsin/internal/domain/cv"
	"github.com/khoahotran/talentsin/pkg/logger"
)

const (
	minScore = 60
	maxScore = 100
)

// mockAnalyzer stands in for a real scoring model: it waits, then returns a score in
// [60, 100] with fixed feedback.
type mockAnalyzer struct {
	delay  time.Duration
	logger logger.Logger
}

func NewMockAnalyzer(delay time.Duration, log logger.Logger) service.CVAnalyzer {
	return &mockAnalyzer{delay: delay, logger: log}
}

func (a *mockAnalyzer) Analyze(ctx context.Context, fileURL string) (cv.Analysis, error) {
	if a.delay > 0 {
		t := time.NewTimer(a.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return cv.Analysis{}, ctx.Err()
		case <-t.C:
		}
	}

	score := minScore + rand.IntN(maxScore-minScore+1)
	a.logger.Debug("Mock analysis finished", zap.String("file_url", fileURL), zap.Int("score", score))

	return cv.Analysis{
		Score: score,
		Feedback: cv.Feedback{
			Strengths: []string{
				"Clear professional experience section",
				"Good use of action verbs",
				"Relevant skills highlighted",
			},
			Improvements: []string{
				"Add more quantifiable achievements",
				"Include relevant certifications",
				"Optimize keywords for ATS systems",
			},
			Keywords: []string{"leadership", "project management", "team collaboration"},
		},
	}, nil
}
