package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/khoahotran/talentsin/internal/application/usecase/auth"
	"github.com/khoahotran/talentsin/pkg/apperror"
	"github.com/khoahotran/talentsin/pkg/logger"
)

type AuthHandler struct {
	loginUseCase *auth.LoginUseCase
	logger       logger.Logger
}

func NewAuthHandler(loginUC *auth.LoginUseCase, log logger.Logger) *AuthHandler {
	return &AuthHandler{
		loginUseCase: loginUC,
		logger:       log,
	}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("email and password are required", err))
		return
	}

	output, err := h.loginUseCase.Execute(c.Request.Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken: output.AccessToken,
		User: UserDTO{
			ID:    output.User.ID,
			Email: output.User.Email,
			Name:  output.User.Name,
			Role:  output.User.Role,
		},
	})
}

// Me echoes the identity carried by the bearer token.
func (h *AuthHandler) Me(c *gin.Context) {
	id, ok := GetIdentityFromGinContext(c)
	if !ok {
		c.Error(apperror.NotAuthenticated())
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id.UserID, "email": id.Email})
}
