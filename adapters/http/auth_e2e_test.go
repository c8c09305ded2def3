package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/khoahotran/talentsin/adapters/analyzer"
	"github.com/khoahotran/talentsin/adapters/event"
	"github.com/khoahotran/talentsin/adapters/persistence"
	authUC "github.com/khoahotran/talentsin/internal/application/usecase/auth"
	cvUC "github.com/khoahotran/talentsin/internal/application/usecase/cv"
	uploadUC "github.com/khoahotran/talentsin/internal/application/usecase/upload"
	"github.com/khoahotran/talentsin/internal/config"
	"github.com/khoahotran/talentsin/internal/domain/user"
	"github.com/khoahotran/talentsin/internal/testutil"
	"github.com/khoahotran/talentsin/pkg/auth"
	"github.com/khoahotran/talentsin/pkg/logger"
)

// AuthE2ETestSuite runs against the database named by DB_DSN with migrations applied.
type AuthE2ETestSuite struct {
	suite.Suite
	Router   *gin.Engine
	dbPool   *pgxpool.Pool
	testUser user.User
	testPass string
}

func (s *AuthE2ETestSuite) SetupSuite() {
	cfg, err := config.LoadConfig("../..")
	if err != nil {
		s.T().Fatalf("Failed to load config for E2E test: %v", err)
	}

	dbPool, err := pgxpool.New(context.Background(), cfg.DB.DSN)
	if err != nil {
		s.T().Fatalf("E2E test failed to connect postgres: %v", err)
	}
	s.dbPool = dbPool

	appLogger := logger.NewZapLogger("development")
	userRepo := persistence.NewPostgresUserRepo(dbPool, appLogger)

	s.testPass = "e2e_test_password_123"
	hash, _ := auth.HashPassword(s.testPass)
	s.testUser = user.User{
		ID:           uuid.New(),
		Email:        "e2e_test@example.com",
		PasswordHash: hash,
		Role:         user.RoleJobseeker,
	}
	if err := userRepo.Upsert(context.Background(), &s.testUser); err != nil {
		s.T().Fatalf("E2E test failed to seed user: %v", err)
	}

	cvRepo := persistence.NewPostgresCVRepo(dbPool, appLogger)
	fileRepo := persistence.NewPostgresCVFileRepo(dbPool, appLogger)
	store := testutil.NewObjectStore()
	jwtSvc := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenLifespan)

	analyze := uploadUC.NewAnalyzeCVUseCase(fileRepo, analyzer.NewMockAnalyzer(0, appLogger), nil, appLogger)
	update := cvUC.NewUpdateCVUseCase(cvRepo, appLogger)

	gin.SetMode(gin.TestMode)
	s.Router = NewRouter(RouterDeps{
		Auth: NewAuthHandler(authUC.NewLoginUseCase(userRepo, jwtSvc, appLogger), appLogger),
		CVs: NewCVHandler(
			cvUC.NewCreateCVUseCase(cvRepo, appLogger),
			update,
			cvUC.NewSetPrimaryCVUseCase(update),
			cvUC.NewListCVsUseCase(cvRepo),
			cvUC.NewGetCVUseCase(cvRepo),
			cvUC.NewDeleteCVUseCase(cvRepo, appLogger),
		),
		CVFiles: NewCVFileHandler(
			uploadUC.NewUploadCVUseCase(fileRepo, store, event.NewInlineDispatcher(analyze, appLogger), appLogger),
			uploadUC.NewListCVFilesUseCase(fileRepo),
			uploadUC.NewGetCVFileUseCase(fileRepo),
			uploadUC.NewRemoveCVFileUseCase(fileRepo, store, appLogger),
			nil,
			appLogger,
		),
		JWT:    jwtSvc,
		Logger: appLogger,
	})
}

func (s *AuthE2ETestSuite) TearDownSuite() {
	if s.dbPool != nil {
		_, _ = s.dbPool.Exec(context.Background(), `DELETE FROM cvs WHERE user_id = $1`, s.testUser.ID)
		s.dbPool.Close()
	}
}

func TestAuthE2E(t *testing.T) {
	if os.Getenv("E2E_TESTS") == "" {
		t.Skip("Skipping E2E tests. Set E2E_TESTS=1 to run.")
	}
	suite.Run(t, new(AuthE2ETestSuite))
}

func (s *AuthE2ETestSuite) Test_Login_Flow() {
	bodyBad, _ := json.Marshal(gin.H{"email": s.testUser.Email, "password": "wrongpassword"})
	reqBad := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBuffer(bodyBad))
	reqBad.Header.Set("Content-Type", "application/json")

	rrBad := httptest.NewRecorder()
	s.Router.ServeHTTP(rrBad, reqBad)

	assert.Equal(s.T(), http.StatusUnauthorized, rrBad.Code)

	bodyGood, _ := json.Marshal(gin.H{"email": s.testUser.Email, "password": s.testPass})
	reqGood := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBuffer(bodyGood))
	reqGood.Header.Set("Content-Type", "application/json")

	rrGood := httptest.NewRecorder()
	s.Router.ServeHTTP(rrGood, reqGood)

	assert.Equal(s.T(), http.StatusOK, rrGood.Code)

	var loginResponse LoginResponse
	json.Unmarshal(rrGood.Body.Bytes(), &loginResponse)
	accessToken := loginResponse.AccessToken
	assert.NotEmpty(s.T(), accessToken)

	createBody, _ := json.Marshal(gin.H{"title": "E2E Resume", "is_primary": true})
	reqCreate := httptest.NewRequest(http.MethodPost, "/api/cvs", bytes.NewBuffer(createBody))
	reqCreate.Header.Set("Content-Type", "application/json")
	reqCreate.Header.Set("Authorization", "Bearer "+accessToken)

	rrCreate := httptest.NewRecorder()
	s.Router.ServeHTTP(rrCreate, reqCreate)

	assert.Equal(s.T(), http.StatusCreated, rrCreate.Code)

	reqNoAuth := httptest.NewRequest(http.MethodGet, "/api/cvs", nil)
	rrNoAuth := httptest.NewRecorder()
	s.Router.ServeHTTP(rrNoAuth, reqNoAuth)

	assert.Equal(s.T(), http.StatusUnauthorized, rrNoAuth.Code)
}
