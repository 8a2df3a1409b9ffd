package server

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	apitokendomain "github.com/maidlink/paycore/internal/apitoken/domain"
	"github.com/maidlink/paycore/internal/identity"
	obscontext "github.com/maidlink/paycore/internal/observability/context"
	"gorm.io/gorm"
)

// UserRequired authenticates the bearer token and resolves the verified
// user into the request context. Handlers take identity from context only;
// client-supplied user IDs are never trusted.
func (s *Server) UserRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := s.authenticate(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		s.attachCaller(c, caller)
		c.Next()
	}
}

// AdminRequired additionally demands the admin role.
func (s *Server) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := s.authenticate(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if caller.Role != identity.RoleAdmin {
			AbortWithError(c, ErrForbidden)
			return
		}
		s.attachCaller(c, caller)
		c.Next()
	}
}

func (s *Server) authenticate(c *gin.Context) (identity.Caller, error) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return identity.Caller{}, ErrUnauthorized
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if raw == "" {
		return identity.Caller{}, ErrUnauthorized
	}

	var token apitokendomain.APIToken
	err := s.db.WithContext(c.Request.Context()).
		Where("token_hash = ? AND is_active = ?", apitokendomain.HashToken(raw), true).
		Take(&token).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return identity.Caller{}, ErrUnauthorized
		}
		return identity.Caller{}, err
	}
	if token.ExpiresAt != nil && token.ExpiresAt.Before(time.Now().UTC()) {
		return identity.Caller{}, ErrUnauthorized
	}

	return identity.Caller{
		UserID: token.UserID,
		Role:   identity.Role(token.Role),
	}, nil
}

func (s *Server) attachCaller(c *gin.Context, caller identity.Caller) {
	ctx := identity.WithCaller(c.Request.Context(), caller)
	ctx = obscontext.WithUserID(ctx, caller.UserID)
	c.Request = c.Request.WithContext(ctx)
}

func callerFrom(c *gin.Context) (identity.Caller, error) {
	caller, ok := identity.CallerFromContext(c.Request.Context())
	if !ok {
		return identity.Caller{}, ErrUnauthorized
	}
	return caller, nil
}
