package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/khoahotran/talentsin/adapters/analyzer"
	"github.com/khoahotran/talentsin/adapters/event"
	"github.com/khoahotran/talentsin/internal/application/service"
	authUC "github.com/khoahotran/talentsin/internal/application/usecase/auth"
	cvUC "github.com/khoahotran/talentsin/internal/application/usecase/cv"
	uploadUC "github.com/khoahotran/talentsin/internal/application/usecase/upload"
	"github.com/khoahotran/talentsin/internal/domain/cv"
	"github.com/khoahotran/talentsin/internal/domain/user"
	"github.com/khoahotran/talentsin/internal/testutil"
	"github.com/khoahotran/talentsin/pkg/auth"
	"github.com/khoahotran/talentsin/pkg/logger"
)

type closeNotifyingRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *closeNotifyingRecorder) CloseNotify() <-chan bool { return r.closed }

type RouterTestSuite struct {
	suite.Suite
	router   *gin.Engine
	jwtSvc   *auth.JWTService
	cvRepo   *testutil.CVRepo
	files    *testutil.FileRepo
	store    *testutil.ObjectStore
	notifier *testutil.Notifier
	inline   *event.InlineDispatcher
	owner    uuid.UUID
	token    string
}

func (s *RouterTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()

	users := testutil.NewUserRepo()
	hash, err := auth.HashPassword("jobseeker-pass")
	s.Require().NoError(err)
	s.owner = uuid.New()
	s.Require().NoError(users.Upsert(context.Background(), &user.User{
		ID: s.owner, Email: "jane@talentsin.io", PasswordHash: hash, Role: user.RoleJobseeker,
	}))

	s.jwtSvc = auth.NewJWTService("router-test-secret", time.Hour)
	s.cvRepo = testutil.NewCVRepo()
	s.files = testutil.NewFileRepo()
	s.store = testutil.NewObjectStore()
	s.notifier = testutil.NewNotifier()

	analyze := uploadUC.NewAnalyzeCVUseCase(s.files, analyzer.NewMockAnalyzer(0, log), s.notifier, log)
	s.inline = event.NewInlineDispatcher(analyze, log)

	update := cvUC.NewUpdateCVUseCase(s.cvRepo, log)
	s.router = NewRouter(RouterDeps{
		Auth: NewAuthHandler(authUC.NewLoginUseCase(users, s.jwtSvc, log), log),
		CVs: NewCVHandler(
			cvUC.NewCreateCVUseCase(s.cvRepo, log),
			update,
			cvUC.NewSetPrimaryCVUseCase(update),
			cvUC.NewListCVsUseCase(s.cvRepo),
			cvUC.NewGetCVUseCase(s.cvRepo),
			cvUC.NewDeleteCVUseCase(s.cvRepo, log),
		),
		CVFiles: NewCVFileHandler(
			uploadUC.NewUploadCVUseCase(s.files, s.store, s.inline, log),
			uploadUC.NewListCVFilesUseCase(s.files),
			uploadUC.NewGetCVFileUseCase(s.files),
			uploadUC.NewRemoveCVFileUseCase(s.files, s.store, log),
			s.notifier,
			log,
		),
		JWT:    s.jwtSvc,
		Logger: log,
	})

	s.token, err = s.jwtSvc.GenerateToken(auth.Identity{UserID: s.owner, Email: "jane@talentsin.io"})
	s.Require().NoError(err)
}

func (s *RouterTestSuite) TearDownTest() {
	s.inline.Wait()
}

func TestRouter(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}

func (s *RouterTestSuite) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *RouterTestSuite) createCV(title string, primary bool) CVDTO {
	rr := s.do(http.MethodPost, "/api/cvs", gin.H{"title": title, "is_primary": primary}, s.token)
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	var dto CVDTO
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &dto))
	return dto
}

func (s *RouterTestSuite) listCVs() []CVDTO {
	rr := s.do(http.MethodGet, "/api/cvs", nil, s.token)
	s.Require().Equal(http.StatusOK, rr.Code)
	var resp struct {
		Data []CVDTO `json:"data"`
	}
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Data
}

func (s *RouterTestSuite) Test_LoginFlow() {
	rr := s.do(http.MethodPost, "/api/auth/login", gin.H{"email": "jane@talentsin.io", "password": "wrong"}, "")
	s.Equal(http.StatusUnauthorized, rr.Code)

	rr = s.do(http.MethodPost, "/api/auth/login", gin.H{"email": "not-an-email"}, "")
	s.Equal(http.StatusBadRequest, rr.Code)

	rr = s.do(http.MethodPost, "/api/auth/login", gin.H{"email": "jane@talentsin.io", "password": "jobseeker-pass"}, "")
	s.Require().Equal(http.StatusOK, rr.Code)
	var resp LoginResponse
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &resp))
	s.NotEmpty(resp.AccessToken)
	s.Equal(user.RoleJobseeker, resp.User.Role)

	rr = s.do(http.MethodGet, "/api/auth/me", nil, resp.AccessToken)
	s.Equal(http.StatusOK, rr.Code)
	s.Contains(rr.Body.String(), s.owner.String())
}

func (s *RouterTestSuite) Test_RequiresBearerToken() {
	s.Equal(http.StatusUnauthorized, s.do(http.MethodGet, "/api/cvs", nil, "").Code)
	s.Equal(http.StatusUnauthorized, s.do(http.MethodGet, "/api/cvs", nil, "garbage").Code)
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/api/health", nil, "").Code)
}

func (s *RouterTestSuite) Test_PrimarySwitchesOverHTTP() {
	a := s.createCV("Resume A", true)
	b := s.createCV("Resume B", true)

	list := s.listCVs()
	s.Require().Len(list, 2)
	s.Equal(b.ID, list[0].ID)
	s.True(list[0].IsPrimary)
	s.False(list[1].IsPrimary)

	rr := s.do(http.MethodPut, "/api/cvs/"+a.ID.String()+"/primary", nil, s.token)
	s.Require().Equal(http.StatusOK, rr.Code)

	primary := map[uuid.UUID]bool{}
	for _, c := range s.listCVs() {
		primary[c.ID] = c.IsPrimary
	}
	s.Equal(map[uuid.UUID]bool{a.ID: true, b.ID: false}, primary)
}

func (s *RouterTestSuite) Test_PatchAndDelete() {
	created := s.createCV("Draft", false)
	path := "/api/cvs/" + created.ID.String()

	rr := s.do(http.MethodPatch, path, gin.H{"title": "Final"}, s.token)
	s.Require().Equal(http.StatusOK, rr.Code)
	var updated CVDTO
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &updated))
	s.Equal("Final", updated.Title)
	s.Equal(cv.EmptyCVData(), updated.Body)

	s.Equal(http.StatusNoContent, s.do(http.MethodDelete, path, nil, s.token).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, path, nil, s.token).Code)
	s.Empty(s.listCVs())
}

func (s *RouterTestSuite) Test_OtherOwnerSeesNotFound() {
	created := s.createCV("Mine", false)
	other, err := s.jwtSvc.GenerateToken(auth.Identity{UserID: uuid.New(), Email: "bob@talentsin.io"})
	s.Require().NoError(err)

	path := "/api/cvs/" + created.ID.String()
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, path, nil, other).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodPatch, path, gin.H{"title": "x"}, other).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodDelete, path, nil, other).Code)
	s.Len(s.listCVs(), 1)
}

func (s *RouterTestSuite) Test_BadIDAndStorageErrors() {
	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/api/cvs/not-a-uuid", nil, s.token).Code)

	s.cvRepo.Fail = errors.New("connection refused")
	rr := s.do(http.MethodGet, "/api/cvs", nil, s.token)
	s.Equal(http.StatusServiceUnavailable, rr.Code)
	s.Contains(rr.Body.String(), "storage unavailable")
}

func (s *RouterTestSuite) Test_DisplayView() {
	body := cv.EmptyCVData()
	body.PersonalInfo.Name = "Jane Doe"
	body.Experience = []cv.Experience{{Company: "Acme", Position: "Engineer", StartDate: "2021-03", EndDate: ""}}
	rr := s.do(http.MethodPost, "/api/cvs", gin.H{"title": "Display", "cv_data": body}, s.token)
	s.Require().Equal(http.StatusCreated, rr.Code)
	var created CVDTO
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &created))

	rr = s.do(http.MethodGet, "/api/cvs/"+created.ID.String()+"?view=display", nil, s.token)
	s.Require().Equal(http.StatusOK, rr.Code)
	var display CVDisplayDTO
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &display))
	s.Equal("Jane Doe", display.Header.Name)
	s.Require().Len(display.Sections, 1)
	s.Equal("Mar 2021 - Present", display.Sections[0].Items[0].Period)
}

func (s *RouterTestSuite) upload(name, content string) UploadCVFileResponse {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	s.Require().NoError(err)
	_, err = fw.Write([]byte(content))
	s.Require().NoError(err)
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/cv-files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.token)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	s.Require().Equal(http.StatusAccepted, rr.Code, rr.Body.String())

	var resp UploadCVFileResponse
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func (s *RouterTestSuite) Test_UploadThenPollScore() {
	up := s.upload("resume.pdf", "%PDF-1.4")
	s.True(strings.HasPrefix(up.FileURL, s.store.BaseURL+"/"+s.owner.String()+"/"))

	s.Eventually(func() bool {
		rr := s.do(http.MethodGet, "/api/cv-files/"+up.ID.String(), nil, s.token)
		if rr.Code != http.StatusOK {
			return false
		}
		var f CVFileDTO
		if err := json.Unmarshal(rr.Body.Bytes(), &f); err != nil {
			return false
		}
		return f.AIScore != nil && *f.AIScore >= 60 && *f.AIScore <= 100
	}, 2*time.Second, 10*time.Millisecond)

	rr := s.do(http.MethodGet, "/api/cv-files", nil, s.token)
	s.Require().Equal(http.StatusOK, rr.Code)
	s.Contains(rr.Body.String(), up.FileURL)

	s.Equal(http.StatusNoContent, s.do(http.MethodDelete, "/api/cv-files/"+up.ID.String(), nil, s.token).Code)
	s.Zero(s.store.Len())
}

func (s *RouterTestSuite) Test_UploadRejectsOversizedBody() {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "huge.pdf")
	s.Require().NoError(err)
	_, err = fw.Write(bytes.Repeat([]byte("a"), maxUploadBody+1))
	s.Require().NoError(err)
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/cv-files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.token)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	s.Equal(http.StatusBadRequest, rr.Code, rr.Body.String())
	s.Zero(s.store.Len())
}

func (s *RouterTestSuite) Test_UploadRequiresFile() {
	rr := s.do(http.MethodPost, "/api/cv-files", nil, s.token)
	s.Equal(http.StatusBadRequest, rr.Code)
}

func (s *RouterTestSuite) Test_EventsStream() {
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/cv-files/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+s.token)
	rr := &closeNotifyingRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.router.ServeHTTP(rr, req)
	}()

	s.Require().Eventually(func() bool { return s.notifier.Subscribers(s.owner) == 1 }, time.Second, 5*time.Millisecond)

	score := 88
	fileID := uuid.New()
	s.Require().NoError(s.notifier.Publish(context.Background(), service.AnalysisEvent{
		EventType: service.EventAnalysisCompleted,
		FileID:    fileID,
		OwnerID:   s.owner,
		Score:     &score,
		At:        time.Now().UTC(),
	}))

	s.Eventually(func() bool { return len(s.notifier.Events()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	cancel()
	wg.Wait()

	s.Equal(http.StatusOK, rr.Code)
	s.True(strings.HasPrefix(rr.Header().Get("Content-Type"), "text/event-stream"), rr.Header().Get("Content-Type"))
	s.Contains(rr.Body.String(), "event:analysis.completed")
	s.Contains(rr.Body.String(), fileID.String())
	s.Zero(s.notifier.Subscribers(s.owner))
}
