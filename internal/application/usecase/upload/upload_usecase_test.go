package upload

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/khoahotran/talentsin/adapters/analyzer"
	"github.com/khoahotran/talentsin/adapters/event"
	"github.com/khoahotran/talentsin/internal/application/service"
	"github.com/khoahotran/talentsin/internal/domain/cv"
	"github.com/khoahotran/talentsin/internal/testutil"
	"github.com/khoahotran/talentsin/pkg/apperror"
	"github.com/khoahotran/talentsin/pkg/logger"
)

type queueDispatcher struct {
	mu   sync.Mutex
	jobs []service.AnalysisJob
	err  error
}

func (d *queueDispatcher) Dispatch(_ context.Context, job service.AnalysisJob) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, job)
	return nil
}

type failingAnalyzer struct{}

func (failingAnalyzer) Analyze(context.Context, string) (cv.Analysis, error) {
	return cv.Analysis{}, errors.New("model offline")
}

type UploadUseCaseSuite struct {
	suite.Suite
	files      *testutil.FileRepo
	store      *testutil.ObjectStore
	notifier   *testutil.Notifier
	dispatcher *queueDispatcher
	upload     *UploadCVUseCase
	analyze    *AnalyzeCVUseCase
	list       *ListCVFilesUseCase
	get        *GetCVFileUseCase
	remove     *RemoveCVFileUseCase
	owner      uuid.UUID
}

func (s *UploadUseCaseSuite) SetupTest() {
	log := logger.NewNop()
	s.files = testutil.NewFileRepo()
	s.store = testutil.NewObjectStore()
	s.notifier = testutil.NewNotifier()
	s.dispatcher = &queueDispatcher{}
	s.upload = NewUploadCVUseCase(s.files, s.store, s.dispatcher, log)
	s.analyze = NewAnalyzeCVUseCase(s.files, analyzer.NewMockAnalyzer(0, log), s.notifier, log)
	s.list = NewListCVFilesUseCase(s.files)
	s.get = NewGetCVFileUseCase(s.files)
	s.remove = NewRemoveCVFileUseCase(s.files, s.store, log)
	s.owner = uuid.New()
}

func TestUploadUseCases(t *testing.T) {
	suite.Run(t, new(UploadUseCaseSuite))
}

func (s *UploadUseCaseSuite) mustUpload(name string) *cv.File {
	out, err := s.upload.Execute(context.Background(), UploadCVInput{
		OwnerID:     s.owner,
		Filename:    name,
		ContentType: "application/pdf",
		File:        strings.NewReader("%PDF-1.4 resume"),
	})
	s.Require().NoError(err)
	return out.File
}

func (s *UploadUseCaseSuite) Test_UploadReturnsBeforeAnalysis() {
	f := s.mustUpload("Resume.PDF")

	s.Nil(f.AIScore)
	s.Nil(f.AIFeedback)
	s.Equal(cv.FileStatusActive, f.Status)
	s.Equal(s.owner.String()+"/"+f.ID.String()+".pdf", f.FilePath)
	s.Equal(s.store.PublicURL(f.FilePath), f.FileURL)
	s.True(s.store.Has(f.FilePath))

	s.Require().Len(s.dispatcher.jobs, 1)
	job := s.dispatcher.jobs[0]
	s.Equal(service.EventCVUploaded, job.EventType)
	s.Equal(f.FileURL, job.FileURL)
	s.Equal(s.owner, job.OwnerID)
}

func (s *UploadUseCaseSuite) Test_AnalysisAttachesScore() {
	f := s.mustUpload("resume.pdf")
	s.Require().NoError(s.analyze.Execute(context.Background(), s.dispatcher.jobs[0]))

	stored, err := s.get.Execute(context.Background(), GetCVFileInput{OwnerID: s.owner, FileID: f.ID})
	s.Require().NoError(err)
	s.Require().NotNil(stored.AIScore)
	s.GreaterOrEqual(*stored.AIScore, 60)
	s.LessOrEqual(*stored.AIScore, 100)
	s.Require().NotNil(stored.AIFeedback)
	s.Len(stored.AIFeedback.Strengths, 3)

	events := s.notifier.Events()
	s.Require().Len(events, 1)
	s.Equal(service.EventAnalysisCompleted, events[0].EventType)
	s.Equal(*stored.AIScore, *events[0].Score)
}

func (s *UploadUseCaseSuite) Test_AnalysisIsIdempotent() {
	s.mustUpload("resume.pdf")
	job := s.dispatcher.jobs[0]
	s.Require().NoError(s.analyze.Execute(context.Background(), job))
	first, err := s.files.FindByURL(context.Background(), job.FileURL, s.owner)
	s.Require().NoError(err)

	s.Require().NoError(s.analyze.Execute(context.Background(), job))
	second, err := s.files.FindByURL(context.Background(), job.FileURL, s.owner)
	s.Require().NoError(err)

	s.Equal(*first.AIScore, *second.AIScore)
	s.Len(s.notifier.Events(), 1)
}

func (s *UploadUseCaseSuite) Test_AnalysisSkipsRemovedFile() {
	f := s.mustUpload("resume.pdf")
	s.Require().NoError(s.remove.Execute(context.Background(), RemoveCVFileInput{OwnerID: s.owner, FileID: f.ID}))

	s.NoError(s.analyze.Execute(context.Background(), s.dispatcher.jobs[0]))
	s.Empty(s.notifier.Events())
}

func (s *UploadUseCaseSuite) Test_AnalysisFailureNotifies() {
	s.mustUpload("resume.pdf")
	uc := NewAnalyzeCVUseCase(s.files, failingAnalyzer{}, s.notifier, logger.NewNop())

	err := uc.Execute(context.Background(), s.dispatcher.jobs[0])
	s.ErrorIs(err, apperror.ErrInternal)

	events := s.notifier.Events()
	s.Require().Len(events, 1)
	s.Equal(service.EventAnalysisFailed, events[0].EventType)
	s.Nil(events[0].Score)
}

func (s *UploadUseCaseSuite) Test_AnalysisWithoutNotifier() {
	s.mustUpload("resume.pdf")
	uc := NewAnalyzeCVUseCase(s.files, analyzer.NewMockAnalyzer(0, logger.NewNop()), nil, logger.NewNop())
	s.NoError(uc.Execute(context.Background(), s.dispatcher.jobs[0]))
}

func (s *UploadUseCaseSuite) Test_InlinePipelineEventuallyScores() {
	log := logger.NewNop()
	inline := event.NewInlineDispatcher(NewAnalyzeCVUseCase(s.files, analyzer.NewMockAnalyzer(20*time.Millisecond, log), s.notifier, log), log)
	uc := NewUploadCVUseCase(s.files, s.store, inline, log)

	updates, stop, err := s.notifier.Subscribe(context.Background(), s.owner)
	s.Require().NoError(err)
	defer stop()

	ctx, cancel := context.WithCancel(context.Background())
	out, err := uc.Execute(ctx, UploadCVInput{OwnerID: s.owner, Filename: "cv.docx", File: strings.NewReader("doc")})
	cancel()
	s.Require().NoError(err)
	s.Nil(out.File.AIScore)

	s.Eventually(func() bool {
		f, err := s.files.FindByID(context.Background(), out.File.ID, s.owner)
		return err == nil && f.Analyzed()
	}, 2*time.Second, 10*time.Millisecond)

	select {
	case ev := <-updates:
		s.Equal(out.File.ID, ev.FileID)
	case <-time.After(2 * time.Second):
		s.Fail("no completion event")
	}
	inline.Wait()
}

func (s *UploadUseCaseSuite) Test_StoreFailureIsStorageUnavailable() {
	s.store.Fail = errors.New("bucket down")

	_, err := s.upload.Execute(context.Background(), UploadCVInput{OwnerID: s.owner, Filename: "a.pdf", File: strings.NewReader("x")})
	s.ErrorIs(err, apperror.ErrStorageUnavailable)
	s.Empty(s.dispatcher.jobs)
}

func (s *UploadUseCaseSuite) Test_RecordFailureRemovesBlob() {
	s.files.Fail = errors.New("db down")

	_, err := s.upload.Execute(context.Background(), UploadCVInput{OwnerID: s.owner, Filename: "a.pdf", File: strings.NewReader("x")})
	s.ErrorIs(err, apperror.ErrStorageUnavailable)
	s.Zero(s.store.Len())
	s.Empty(s.dispatcher.jobs)
}

func (s *UploadUseCaseSuite) Test_DispatchFailureStillSucceeds() {
	s.dispatcher.err = errors.New("kafka down")

	f := s.mustUpload("a.pdf")
	_, err := s.get.Execute(context.Background(), GetCVFileInput{OwnerID: s.owner, FileID: f.ID})
	s.NoError(err)
}

func (s *UploadUseCaseSuite) Test_LostDispatchIsRequeuedBySweep() {
	ctx := context.Background()
	s.dispatcher.err = errors.New("kafka down")
	lost := s.mustUpload("lost.pdf")
	s.Empty(s.dispatcher.jobs)

	s.dispatcher.err = nil
	requeue := NewRequeuePendingUseCase(s.files, s.dispatcher, logger.NewNop())
	requeue.now = func() time.Time { return time.Now().Add(10 * time.Minute) }

	out, err := requeue.Execute(ctx, RequeuePendingInput{MinAge: 2 * time.Minute})
	s.Require().NoError(err)
	s.Equal(1, out.Requeued)
	s.Require().Len(s.dispatcher.jobs, 1)
	s.Equal(lost.ID, s.dispatcher.jobs[0].FileID)
	s.Equal(lost.FileURL, s.dispatcher.jobs[0].FileURL)

	s.Require().NoError(s.analyze.Execute(ctx, s.dispatcher.jobs[0]))

	out, err = requeue.Execute(ctx, RequeuePendingInput{MinAge: 2 * time.Minute})
	s.Require().NoError(err)
	s.Zero(out.Requeued)
}

func (s *UploadUseCaseSuite) Test_SweepSkipsFreshUploads() {
	s.mustUpload("fresh.pdf")
	s.dispatcher.jobs = nil

	requeue := NewRequeuePendingUseCase(s.files, s.dispatcher, logger.NewNop())
	out, err := requeue.Execute(context.Background(), RequeuePendingInput{MinAge: 2 * time.Minute})
	s.Require().NoError(err)
	s.Zero(out.Requeued)
	s.Empty(s.dispatcher.jobs)
}

func (s *UploadUseCaseSuite) Test_SweepStorageFailure() {
	s.files.Fail = errors.New("db down")
	requeue := NewRequeuePendingUseCase(s.files, s.dispatcher, logger.NewNop())
	_, err := requeue.Execute(context.Background(), RequeuePendingInput{})
	s.ErrorIs(err, apperror.ErrStorageUnavailable)
}

func (s *UploadUseCaseSuite) Test_RequiresOwner() {
	_, err := s.upload.Execute(context.Background(), UploadCVInput{Filename: "a.pdf", File: strings.NewReader("x")})
	s.ErrorIs(err, apperror.ErrUnauthorized)
	s.Zero(s.store.Len())

	_, err = s.list.Execute(context.Background(), ListCVFilesInput{})
	s.ErrorIs(err, apperror.ErrUnauthorized)
}

func (s *UploadUseCaseSuite) Test_ListIsOwnerScoped() {
	s.mustUpload("a.pdf")
	s.mustUpload("b.pdf")

	out, err := s.list.Execute(context.Background(), ListCVFilesInput{OwnerID: s.owner})
	s.Require().NoError(err)
	s.Require().Len(out.Files, 2)
	s.Equal("b.pdf", out.Files[0].Title)

	out, err = s.list.Execute(context.Background(), ListCVFilesInput{OwnerID: uuid.New()})
	s.Require().NoError(err)
	s.Empty(out.Files)
}

func (s *UploadUseCaseSuite) Test_RemoveDeletesRowAndBlob() {
	f := s.mustUpload("a.pdf")

	s.Require().NoError(s.remove.Execute(context.Background(), RemoveCVFileInput{OwnerID: s.owner, FileID: f.ID}))
	s.False(s.store.Has(f.FilePath))

	_, err := s.get.Execute(context.Background(), GetCVFileInput{OwnerID: s.owner, FileID: f.ID})
	s.ErrorIs(err, apperror.ErrNotFound)

	err = s.remove.Execute(context.Background(), RemoveCVFileInput{OwnerID: uuid.New(), FileID: f.ID})
	s.ErrorIs(err, apperror.ErrNotFound)
}
