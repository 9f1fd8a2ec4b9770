package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	authdomain "github.com/smallbiznis/invoicenexus/internal/auth/domain"
	authservice "github.com/smallbiznis/invoicenexus/internal/auth/service"
	"github.com/smallbiznis/invoicenexus/internal/workspace"
)

type SignupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User    *authdomain.User `json:"user"`
	Loading bool             `json:"loading"`
}

func (s *Server) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	user, err := s.authsvc.CreateUser(c.Request.Context(), authdomain.CreateUserRequest{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		if errors.Is(err, authdomain.ErrInvalidCredentials) {
			AbortWithError(c, newValidationError("password", "invalid_credentials", "a valid email and a password of at least 8 characters are required"))
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

func (s *Server) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	result, err := s.authsvc.Login(ctx, authdomain.LoginRequest{
		Email:     strings.TrimSpace(req.Email),
		Password:  req.Password,
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, result.RawToken, result.ExpiresAt)

	ws, err := s.registry.Bind(ctx, authservice.HashToken(result.RawToken), workspace.SessionState{
		Present:   true,
		User:      &workspace.User{ID: result.User.ID, Email: result.User.Email},
		ExpiresAt: result.ExpiresAt,
	})
	if err != nil {
		s.log.Warn("workspace bind after login failed", zap.Error(err))
	}

	resp := sessionResponse{User: result.User}
	if ws != nil {
		resp.Loading = ws.Loading()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) Logout(c *gin.Context) {
	token, ok := s.sessions.ReadToken(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	ctx := c.Request.Context()
	if err := s.authsvc.Logout(ctx, token); err != nil {
		AbortWithError(c, err)
		return
	}

	s.registry.Release(ctx, authservice.HashToken(token))
	s.sessions.Clear(c)
	c.Status(http.StatusNoContent)
}

func (s *Server) Session(c *gin.Context) {
	resp := sessionResponse{User: userFrom(c)}
	if ws := workspaceFrom(c); ws != nil {
		resp.Loading = ws.Loading()
	}
	c.JSON(http.StatusOK, resp)
}
