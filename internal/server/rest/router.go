// Package rest exposes the session controller over HTTP with gin. Routes are
// mounted both under /api/v1/auth and at the root.
package rest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/gin-gonic/gin"
)

// APIPrefix is the versioned mount point of the auth routes.
const APIPrefix = "/api/v1/auth"

// SessionManager is the part of services.SessionService the handlers use.
type SessionManager interface {
	Login(ctx context.Context, identifier, password string) (*services.TokenPair, error)
	Refresh(ctx context.Context, rawRefresh string) (*services.TokenPair, error)
	Logout(ctx context.Context, p *auth.Principal) error
	Verify(ctx context.Context, token string) (*auth.Principal, error)
}

// MaxCredentialBody caps request bodies on /login and /refresh.
const MaxCredentialBody = 16 << 10

// NewRouter wires middleware and routes. A nil limiter disables throttling
// of the credential endpoints. Forwarding headers such as X-Forwarded-For
// are only honoured when the direct peer is in trustedProxies (IPs or
// CIDRs); with none, the client IP is always the connection's remote address.
func NewRouter(sessions SessionManager, logger logging.Logger, limiter *RateLimiter, trustedProxies []string) (*gin.Engine, error) {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	if err := r.SetTrustedProxies(trustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	r.Use(RequestLogger(logger))
	r.Use(Recovery(logger))

	h := &handler{sessions: sessions}
	bearer := RequireBearer(sessions)
	throttle := limiter.Handler()
	limitBody := LimitBody(MaxCredentialBody)

	for _, g := range []*gin.RouterGroup{r.Group(APIPrefix), r.Group("/")} {
		g.POST("/login", throttle, limitBody, h.login)
		g.POST("/refresh", throttle, limitBody, h.refresh)
		g.POST("/logout", bearer, h.logout)
		g.GET("/me", bearer, h.me)
	}
	r.GET("/healthz", h.healthz)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, detail("Not found"))
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, detail("Method not allowed"))
	})
	return r, nil
}
