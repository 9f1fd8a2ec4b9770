package server

import (
	"errors"
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	authdomain "github.com/smallbiznis/invoicenexus/internal/auth/domain"
	authservice "github.com/smallbiznis/invoicenexus/internal/auth/service"
	obslogger "github.com/smallbiznis/invoicenexus/internal/observability/logger"
	"github.com/smallbiznis/invoicenexus/internal/workspace"
)

const (
	contextUserKey      = "auth_user"
	contextWorkspaceKey = "workspace"
	contextSessionKey   = "session_key"
)

// AuthRequired authenticates the session cookie and binds the caller's workspace.
// A session that is no longer valid releases its workspace.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		ctx := c.Request.Context()
		key := authservice.HashToken(token)

		sess, err := s.authsvc.Authenticate(ctx, token)
		if err != nil {
			if isSessionEnded(err) {
				s.registry.Release(ctx, key)
				s.sessions.Clear(c)
			}
			AbortWithError(c, err)
			return
		}

		user, err := s.authsvc.CurrentUser(ctx, sess.UserID)
		if err != nil {
			if errors.Is(err, authdomain.ErrUserNotFound) {
				s.registry.Release(ctx, key)
				s.sessions.Clear(c)
				AbortWithError(c, ErrUnauthorized)
				return
			}
			AbortWithError(c, err)
			return
		}

		ws, err := s.registry.Bind(ctx, key, workspace.SessionState{
			Present:   true,
			User:      &workspace.User{ID: user.ID, Email: user.Email},
			ExpiresAt: sess.ExpiresAt,
		})
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Request = c.Request.WithContext(obslogger.WithUserID(ctx, user.ID))
		c.Set(contextUserKey, user)
		c.Set(contextSessionKey, key)
		c.Set(contextWorkspaceKey, ws)
		c.Next()
	}
}

// LoginRateLimit throttles login attempts per client IP.
func (s *Server) LoginRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		res := s.limiter.Allow(c.Request.Context(), c.ClientIP())
		if !res.Allowed {
			if res.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
			}
			s.log.Info("login rate limited", zap.String("client_ip", c.ClientIP()))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

func isSessionEnded(err error) bool {
	return errors.Is(err, authdomain.ErrSessionExpired) ||
		errors.Is(err, authdomain.ErrSessionRevoked) ||
		errors.Is(err, authdomain.ErrInvalidSession)
}

func workspaceFrom(c *gin.Context) *workspace.Workspace {
	v, ok := c.Get(contextWorkspaceKey)
	if !ok {
		return nil
	}
	ws, _ := v.(*workspace.Workspace)
	return ws
}

func userFrom(c *gin.Context) *authdomain.User {
	v, ok := c.Get(contextUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*authdomain.User)
	return user
}
